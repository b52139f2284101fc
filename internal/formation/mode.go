package formation

import (
	"fmt"
	"strings"
)

// Mode is the phase the formation is currently flying.
type Mode int

const (
	Idle Mode = iota
	Takeoff
	Alongside
	VerticalWeave
	DescendToAltitude
	Land
)

var modeNames = [...]string{
	Idle:              "idle",
	Takeoff:           "takeoff",
	Alongside:         "alongside",
	VerticalWeave:     "vertical_weave",
	DescendToAltitude: "descend_to_altitude",
	Land:              "land",
}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts the names returned by Mode.String, case-insensitively.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range modeNames {
		if n == s {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Event drives a transition in the mode table.
type Event int

const (
	// Raised by the control cycle.
	EventStreamsRequested Event = iota + 1
	EventAirborne
	EventSettled

	// Raised by an operator or supervising layer.
	EventRequestAlongside
	EventRequestWeave
	EventRequestDescend
	EventRequestLand
	EventReset
)

var eventNames = map[Event]string{
	EventStreamsRequested: "streams_requested",
	EventAirborne:         "airborne",
	EventSettled:          "settled",
	EventRequestAlongside: "request_alongside",
	EventRequestWeave:     "request_vertical_weave",
	EventRequestDescend:   "request_descend",
	EventRequestLand:      "request_land",
	EventReset:            "reset",
}

func (e Event) String() string {
	if n, ok := eventNames[e]; ok {
		return n
	}
	return fmt.Sprintf("Event(%d)", int(e))
}

// Requested reports whether the event originates outside the control cycle.
func (e Event) Requested() bool { return e >= EventRequestAlongside }

var transitions = map[Mode]map[Event]Mode{
	Idle: {
		EventStreamsRequested: Takeoff,
	},
	Takeoff: {
		EventAirborne: Alongside,
		EventReset:    Idle,
	},
	Alongside: {
		EventRequestWeave:   VerticalWeave,
		EventRequestDescend: DescendToAltitude,
		EventRequestLand:    Land,
		EventReset:          Idle,
	},
	VerticalWeave: {
		EventRequestAlongside: Alongside,
		EventRequestDescend:   DescendToAltitude,
		EventRequestLand:      Land,
		EventReset:            Idle,
	},
	DescendToAltitude: {
		EventSettled:     Land,
		EventRequestLand: Land,
		EventReset:       Idle,
	},
	Land: {
		EventRequestAlongside: Alongside,
		EventReset:            Idle,
	},
}

// requestEvents maps an externally requested target mode to its event.
var requestEvents = map[Mode]Event{
	Idle:              EventReset,
	Alongside:         EventRequestAlongside,
	VerticalWeave:     EventRequestWeave,
	DescendToAltitude: EventRequestDescend,
	Land:              EventRequestLand,
}

// Next looks up the transition for ev in mode m.
func Next(m Mode, ev Event) (Mode, bool) {
	next, ok := transitions[m][ev]
	return next, ok
}

// CanRequest reports whether an operator may move the formation from one mode to another.
func CanRequest(from, to Mode) bool {
	if from == to {
		return true
	}
	ev, ok := requestEvents[to]
	if !ok {
		return false
	}
	_, ok = Next(from, ev)
	return ok
}
