package scenario

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"droneops-formation/internal/formation"
)

// Trigger event types.
const (
	EventTimeElapsed = "time_elapsed" // seconds spent in the current phase
	EventModeReached = "mode_reached" // the formation is flying Trigger.Mode
	EventAllDisarmed = "all_disarmed" // every vehicle reports disarmed
)

var ErrInvalid = errors.New("invalid scenario")

// Scenario defines a mission script with ordered phases and an overall description.
type Scenario struct {
	Name        string  `yaml:"name,omitempty"`
	Description string  `yaml:"description,omitempty"`
	Phases      []Phase `yaml:"phases"`
}

// Phase describes a stage of the mission. On entry the formation is asked to
// fly Mode; an empty Mode leaves the automatic transitions in charge.
type Phase struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Mode        string    `yaml:"mode,omitempty"`
	Triggers    []Trigger `yaml:"triggers,omitempty"`
}

// Trigger moves the scenario to another phase based on an event.
type Trigger struct {
	Event string `yaml:"event"`
	Value int    `yaml:"value,omitempty"`
	Mode  string `yaml:"mode,omitempty"`
	Next  string `yaml:"next"`
}

// Event represents a runtime occurrence that may advance the scenario.
type Event struct {
	Type  string
	Value int
	Mode  string
}

// Load reads a YAML scenario definition from disk.
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Resolve returns the built-in scenario called name, or loads name as a file.
func Resolve(name string) (*Scenario, error) {
	if s, ok := BuiltIn()[name]; ok {
		return &s, nil
	}
	return Load(name)
}

// Validate checks phase names, modes and trigger targets.
func (s *Scenario) Validate() error {
	if len(s.Phases) == 0 {
		return fmt.Errorf("%w: no phases", ErrInvalid)
	}
	names := make(map[string]bool, len(s.Phases))
	for _, p := range s.Phases {
		if p.Name == "" {
			return fmt.Errorf("%w: phase without name", ErrInvalid)
		}
		if names[p.Name] {
			return fmt.Errorf("%w: duplicate phase %q", ErrInvalid, p.Name)
		}
		names[p.Name] = true
		if p.Mode != "" {
			if _, err := formation.ParseMode(p.Mode); err != nil {
				return fmt.Errorf("%w: phase %s: %v", ErrInvalid, p.Name, err)
			}
		}
	}
	for _, p := range s.Phases {
		for _, tr := range p.Triggers {
			switch tr.Event {
			case EventTimeElapsed, EventAllDisarmed:
			case EventModeReached:
				if _, err := formation.ParseMode(tr.Mode); err != nil {
					return fmt.Errorf("%w: phase %s trigger: %v", ErrInvalid, p.Name, err)
				}
			default:
				return fmt.Errorf("%w: phase %s: unknown event %q", ErrInvalid, p.Name, tr.Event)
			}
			if !names[tr.Next] {
				return fmt.Errorf("%w: phase %s: unknown next phase %q", ErrInvalid, p.Name, tr.Next)
			}
		}
	}
	return nil
}

// NextPhase returns the name of the next phase given the current phase and event.
// If no trigger matches, ok will be false.
func (s *Scenario) NextPhase(current string, ev Event) (next string, ok bool) {
	for _, p := range s.Phases {
		if p.Name != current {
			continue
		}
		for _, tr := range p.Triggers {
			if tr.Event != ev.Type || ev.Value < tr.Value {
				continue
			}
			if tr.Event == EventModeReached && tr.Mode != ev.Mode {
				continue
			}
			return tr.Next, true
		}
	}
	return "", false
}

func (s *Scenario) phase(name string) (Phase, bool) {
	for _, p := range s.Phases {
		if p.Name == name {
			return p, true
		}
	}
	return Phase{}, false
}
