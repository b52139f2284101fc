// Package formation drives a group of vehicles through takeoff, formation
// keeping and sequential landing relative to a moving reference.
package formation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"droneops-formation/internal/geo"
	"droneops-formation/internal/logging"
	"droneops-formation/internal/reference"
	"droneops-formation/internal/vehicle"
)

const (
	// altTolerance is how close (m) a vehicle must be to a target altitude.
	altTolerance = 0.5
	// takeoffStagger separates takeoff altitudes between adjacent slots (m).
	takeoffStagger = 2.0
	// touchdownRadius is the horizontal distance (m) to the reference below
	// which the active landing vehicle descends.
	touchdownRadius = 1.0
)

var (
	ErrArmRejected       = errors.New("arm command rejected")
	ErrDisarmed          = errors.New("vehicle disarmed")
	ErrIllegalTransition = errors.New("illegal mode transition")
	ErrDuplicateVehicle  = errors.New("vehicle already in roster")
)

// Config is set once by the operator before a mission.
type Config struct {
	TakeoffAlt      float64
	MinOffset       float64
	MaxOffset       float64
	GuidedMode      string
	TelemetryRateHz int
	RetryDelay      time.Duration
	DescendTimeout  time.Duration // zero waits until every vehicle settles or disarms
}

func (c Config) withDefaults() Config {
	if c.GuidedMode == "" {
		c.GuidedMode = "GUIDED"
	}
	if c.TelemetryRateHz <= 0 {
		c.TelemetryRateHz = 10
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 200 * time.Millisecond
	}
	return c
}

// Vehicle is one roster entry. Its slot is fixed when it joins.
type Vehicle struct {
	ID             string
	Slot           int
	Telemetry      vehicle.Telemetry
	Target         geo.Position
	TargetVelocity geo.Vector3
	TakeoffIssued  bool
	Phase          float64

	link vehicle.Link
}

// VehicleState is a read-only copy of a Vehicle.
type VehicleState struct {
	ID             string            `json:"id"`
	Slot           int               `json:"slot"`
	Telemetry      vehicle.Telemetry `json:"telemetry"`
	Target         geo.Position      `json:"target"`
	TargetVelocity geo.Vector3       `json:"target_velocity"`
	TakeoffIssued  bool              `json:"takeoff_issued"`
	Phase          float64           `json:"phase"`
	Active         bool              `json:"active"`
}

// ModeChange describes one transition of the mode table.
type ModeChange struct {
	From  Mode
	To    Mode
	Event Event
	At    time.Time
}

// AlertKind classifies operator alerts.
type AlertKind string

const (
	AlertComm         AlertKind = "communication"
	AlertArm          AlertKind = "arm_rejected"
	AlertDisarm       AlertKind = "disarm_detected"
	AlertDescendAbort AlertKind = "descend_aborted"
)

// Alert is raised whenever a cycle is aborted.
type Alert struct {
	Kind      AlertKind
	Mode      Mode
	VehicleID string
	Err       error
	At        time.Time
}

// Alerter notifies the operator.
type Alerter interface {
	Alert(ctx context.Context, a Alert)
}

// Option configures a Group.
type Option func(*Group)

// WithAlerter routes cycle aborts to a.
func WithAlerter(a Alerter) Option { return func(g *Group) { g.alerter = a } }

// WithTransitionHook calls fn after every mode change.
func WithTransitionHook(fn func(context.Context, ModeChange)) Option { return func(g *Group) { g.onTransition = fn } }

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(g *Group) { g.now = now } }

// WithSleeper overrides how the descend phase waits between retries.
func WithSleeper(fn func(context.Context, time.Duration) error) Option {
	return func(g *Group) { g.sleep = fn }
}

// Group owns the roster and the current mode. It is not safe for concurrent
// use: a single goroutine must call Advance, RequestMode and Add.
type Group struct {
	cfg      Config
	ref      reference.Tracker
	vehicles []*Vehicle
	mode     Mode
	active   string

	alerter      Alerter
	onTransition func(context.Context, ModeChange)
	now          func() time.Time
	sleep        func(context.Context, time.Duration) error
}

// NewGroup creates an empty group in Idle.
func NewGroup(cfg Config, ref reference.Tracker, opts ...Option) *Group {
	g := &Group{
		cfg:   cfg.withDefaults(),
		ref:   ref,
		mode:  Idle,
		now:   time.Now,
		sleep: sleepContext,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Add appends a vehicle to the roster. Its slot is its position in the roster.
func (g *Group) Add(id string, link vehicle.Link) (*Vehicle, error) {
	for _, v := range g.vehicles {
		if v.ID == id {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateVehicle, id)
		}
	}
	v := &Vehicle{ID: id, Slot: len(g.vehicles), link: link}
	g.vehicles = append(g.vehicles, v)
	return v, nil
}

// Mode returns the current mode.
func (g *Group) Mode() Mode { return g.mode }

// Config returns the effective configuration.
func (g *Group) Config() Config { return g.cfg }

// Snapshot copies the roster state in slot order.
func (g *Group) Snapshot() []VehicleState {
	out := make([]VehicleState, len(g.vehicles))
	for i, v := range g.vehicles {
		out[i] = VehicleState{
			ID:             v.ID,
			Slot:           v.Slot,
			Telemetry:      v.Telemetry,
			Target:         v.Target,
			TargetVelocity: v.TargetVelocity,
			TakeoffIssued:  v.TakeoffIssued,
			Phase:          v.Phase,
			Active:         g.mode == Land && v.ID == g.active,
		}
	}
	return out
}

// RequestMode applies an operator transition if the mode table allows it.
// Requesting the current mode is a no-op.
func (g *Group) RequestMode(ctx context.Context, target Mode) error {
	if target == g.mode {
		return nil
	}
	ev, ok := requestEvents[target]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, g.mode, target)
	}
	return g.fire(ctx, ev)
}

func (g *Group) fire(ctx context.Context, ev Event) error {
	next, ok := Next(g.mode, ev)
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrIllegalTransition, g.mode, ev)
	}
	change := ModeChange{From: g.mode, To: next, Event: ev, At: g.now()}
	g.mode = next
	logging.FromContext(ctx).Info("mode change", "from", change.From, "to", change.To, "event", ev)
	if g.onTransition != nil {
		g.onTransition(ctx, change)
	}
	return nil
}

// refresh copies the link's latest telemetry into v.
func (g *Group) refresh(v *Vehicle) {
	if v.link == nil {
		return
	}
	v.Telemetry = v.link.Snapshot()
}

// abort logs err, alerts the operator and returns err for the caller to propagate.
func (g *Group) abort(ctx context.Context, v *Vehicle, kind AlertKind, err error) error {
	id := ""
	if v != nil {
		id = v.ID
	}
	logging.FromContext(ctx).Error("cycle aborted", "mode", g.mode, "vehicle_id", id, "kind", kind, "err", err)
	if g.alerter != nil {
		g.alerter.Alert(ctx, Alert{Kind: kind, Mode: g.mode, VehicleID: id, Err: err, At: g.now()})
	}
	return err
}

// commFailure normalizes a port error into a *vehicle.CommError and aborts.
func (g *Group) commFailure(ctx context.Context, v *Vehicle, op string, err error) error {
	var ce *vehicle.CommError
	if !errors.As(err, &ce) {
		err = &vehicle.CommError{VehicleID: v.ID, Op: op, Err: err}
	}
	return g.abort(ctx, v, AlertComm, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
