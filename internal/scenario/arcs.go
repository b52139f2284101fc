package scenario

// BuiltIn returns predefined mission scripts.
func BuiltIn() map[string]Scenario {
	return map[string]Scenario{
		"escort-and-recover": {
			Name:        "Escort and Recover",
			Description: "Launch, escort the lead alongside, weave, then descend and land one vehicle at a time.",
			Phases: []Phase{
				{
					Name:        "launch",
					Description: "Vehicles arm and climb to their staggered takeoff altitudes.",
					Triggers:    []Trigger{{Event: EventModeReached, Mode: "alongside", Next: "escort"}},
				},
				{
					Name:        "escort",
					Description: "Hold the wing slots beside the lead.",
					Mode:        "alongside",
					Triggers:    []Trigger{{Event: EventTimeElapsed, Value: 60, Next: "weave"}},
				},
				{
					Name:        "weave",
					Description: "Widen the slots and weave.",
					Mode:        "vertical_weave",
					Triggers:    []Trigger{{Event: EventTimeElapsed, Value: 45, Next: "regroup"}},
				},
				{
					Name:        "regroup",
					Description: "Close back in on the lead.",
					Mode:        "alongside",
					Triggers:    []Trigger{{Event: EventTimeElapsed, Value: 30, Next: "recover"}},
				},
				{
					Name:        "recover",
					Description: "Step down to the approach altitudes.",
					Mode:        "descend_to_altitude",
					Triggers:    []Trigger{{Event: EventModeReached, Mode: "land", Next: "landing"}},
				},
				{
					Name:        "landing",
					Description: "Land on the lead one vehicle at a time.",
					Mode:        "land",
				},
			},
		},
		"patrol-loop": {
			Name:        "Patrol Loop",
			Description: "Short escort legs with a full landing and relaunch between them.",
			Phases: []Phase{
				{
					Name:        "launch",
					Description: "Vehicles arm and climb to their staggered takeoff altitudes.",
					Triggers:    []Trigger{{Event: EventModeReached, Mode: "alongside", Next: "patrol"}},
				},
				{
					Name:        "patrol",
					Description: "Hold the wing slots beside the lead.",
					Mode:        "alongside",
					Triggers:    []Trigger{{Event: EventTimeElapsed, Value: 90, Next: "landing"}},
				},
				{
					Name:        "landing",
					Description: "Land on the lead one vehicle at a time.",
					Mode:        "land",
					Triggers:    []Trigger{{Event: EventAllDisarmed, Value: 1, Next: "reset"}},
				},
				{
					Name:        "reset",
					Description: "Return to idle, which starts the next launch.",
					Mode:        "idle",
					Triggers:    []Trigger{{Event: EventModeReached, Mode: "takeoff", Next: "launch"}},
				},
			},
		},
	}
}
