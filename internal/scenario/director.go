package scenario

import (
	"log/slog"
	"time"

	"droneops-formation/internal/formation"
)

// Director plays a scenario against a running formation. It is called by the
// mission runner before every cycle and is not safe for concurrent use.
type Director struct {
	sc        *Scenario
	log       *slog.Logger
	current   Phase
	entered   time.Time
	requested bool
}

// NewDirector starts sc at its first phase. sc must have been validated.
func NewDirector(sc *Scenario, log *slog.Logger) *Director {
	if log == nil {
		log = slog.Default()
	}
	return &Director{sc: sc, log: log.With("scenario", sc.Name), current: sc.Phases[0]}
}

// Phase returns the name of the active phase.
func (d *Director) Phase() string { return d.current.Name }

// Next implements mission.Supervisor. It advances the phase when a trigger
// fires and returns the mode the active phase wants, once per phase.
func (d *Director) Next(now time.Time, mode formation.Mode, vehicles []formation.VehicleState) (formation.Mode, bool) {
	if d.entered.IsZero() {
		d.enter(d.current, now)
	}
	for _, ev := range events(now.Sub(d.entered), mode, vehicles) {
		if next, ok := d.sc.NextPhase(d.current.Name, ev); ok {
			p, _ := d.sc.phase(next)
			d.log.Info("scenario phase change", "from", d.current.Name, "to", p.Name, "event", ev.Type)
			d.enter(p, now)
			break
		}
	}

	if d.requested || d.current.Mode == "" {
		return 0, false
	}
	want, err := formation.ParseMode(d.current.Mode)
	if err != nil {
		d.requested = true
		return 0, false
	}
	if want == mode {
		d.requested = true
		return 0, false
	}
	if !formation.CanRequest(mode, want) {
		return 0, false
	}
	d.requested = true
	return want, true
}

func (d *Director) enter(p Phase, now time.Time) {
	d.current = p
	d.entered = now
	d.requested = false
}

func events(inPhase time.Duration, mode formation.Mode, vehicles []formation.VehicleState) []Event {
	evs := []Event{
		{Type: EventTimeElapsed, Value: int(inPhase / time.Second)},
		{Type: EventModeReached, Value: 1, Mode: mode.String()},
	}
	if len(vehicles) == 0 {
		return evs
	}
	for _, v := range vehicles {
		if v.Telemetry.Armed {
			return evs
		}
	}
	return append(evs, Event{Type: EventAllDisarmed, Value: 1})
}
