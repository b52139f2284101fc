package vehicle

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"droneops-formation/internal/geo"
	"droneops-formation/internal/logging"
)

// ErrNoResponse is returned by SimLink when a command is dropped.
var ErrNoResponse = errors.New("no response from vehicle")

// touchdownAlt is the altitude below which a descending vehicle is considered landed.
const touchdownAlt = 0.05

// SimConfig controls simulated vehicle kinematics and link quality.
type SimConfig struct {
	SpeedMPS     float64
	ClimbRateMPS float64
	CommLoss     float64 // probability [0,1] that a command is dropped
}

// SimLink is an in-process multicopter that accepts guided commands.
type SimLink struct {
	mu      sync.Mutex
	id      string
	cfg     SimConfig
	state   Telemetry
	heading float64
	target  *geo.Position
	rateHz  int
	rand    *rand.Rand
	now     func() time.Time
}

// NewSimLink creates a disarmed vehicle parked at home.
func NewSimLink(id string, home geo.Position, cfg SimConfig, r *rand.Rand) *SimLink {
	if cfg.SpeedMPS <= 0 {
		cfg.SpeedMPS = 8
	}
	if cfg.ClimbRateMPS <= 0 {
		cfg.ClimbRateMPS = 2
	}
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	home.Alt = 0
	l := &SimLink{id: id, cfg: cfg, rand: r, now: time.Now}
	l.state = Telemetry{Position: home, Mode: "STABILIZE", Updated: l.now()}
	return l
}

// ID returns the vehicle identity.
func (l *SimLink) ID() string { return l.id }

// exchange must be called with l.mu held.
func (l *SimLink) exchange(op string) error {
	if l.cfg.CommLoss > 0 && l.rand.Float64() < l.cfg.CommLoss {
		return &CommError{VehicleID: l.id, Op: op, Err: ErrNoResponse}
	}
	return nil
}

// SetMode implements CommandPort.
func (l *SimLink) SetMode(_ context.Context, mode string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.exchange(CmdSetMode); err != nil {
		return err
	}
	l.state.Mode = strings.ToUpper(mode)
	return nil
}

// Arm implements CommandPort.
func (l *SimLink) Arm(_ context.Context, arm bool) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.exchange(CmdArm); err != nil {
		return false, err
	}
	l.state.Armed = arm
	if !arm {
		l.target = nil
	}
	return true, nil
}

// Takeoff implements CommandPort. It is rejected unless armed in GUIDED.
func (l *SimLink) Takeoff(_ context.Context, alt float64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.exchange(CmdTakeoff); err != nil {
		return false, err
	}
	if !l.state.Armed || l.state.Mode != "GUIDED" {
		return false, nil
	}
	t := l.state.Position.WithAlt(alt)
	l.target = &t
	return true, nil
}

// GotoPositionVelocity implements CommandPort. Setpoints sent while disarmed are ignored.
func (l *SimLink) GotoPositionVelocity(_ context.Context, pos geo.Position, _ geo.Vector3) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.exchange(CmdGoto); err != nil {
		return err
	}
	if !l.state.Armed {
		return nil
	}
	l.target = &pos
	return nil
}

// SetYaw implements CommandPort.
func (l *SimLink) SetYaw(_ context.Context, heading float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.exchange(CmdSetYaw); err != nil {
		return err
	}
	l.heading = geo.NormalizeHeading(heading)
	return nil
}

// RequestTelemetryStream implements CommandPort.
func (l *SimLink) RequestTelemetryStream(_ context.Context, rateHz int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.exchange(CmdRequestTelemetry); err != nil {
		return err
	}
	l.rateHz = rateHz
	return nil
}

// Snapshot implements Link.
func (l *SimLink) Snapshot() Telemetry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Step advances the vehicle dt seconds toward its current setpoint.
func (l *SimLink) Step(dt float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Updated = l.now()
	if !l.state.Armed || l.target == nil {
		l.state.Velocity = geo.Zero
		return
	}
	pos := l.state.Position
	tgt := *l.target

	next := pos
	dist := geo.DistanceMeters(pos, tgt)
	if step := l.cfg.SpeedMPS * dt; dist <= step {
		next.Lat, next.Lon = tgt.Lat, tgt.Lon
	} else {
		next = geo.Destination(pos, geo.Bearing(pos, tgt), step)
	}
	dz := tgt.Alt - pos.Alt
	climb := l.cfg.ClimbRateMPS * dt
	next.Alt = pos.Alt + math.Max(-climb, math.Min(climb, dz))

	if dt > 0 {
		moved := geo.DistanceMeters(pos, next)
		brg := geo.Bearing(pos, next)
		v := geo.HeadingVector(brg, moved/dt)
		v.Z = -(next.Alt - pos.Alt) / dt
		l.state.Velocity = v
	}
	l.state.Position = next

	if tgt.Alt <= 0 && next.Alt <= touchdownAlt {
		l.state.Position.Alt = 0
		l.state.Velocity = geo.Zero
		l.state.Armed = false
		l.target = nil
	}
}

// Run steps the vehicle every interval until ctx is done.
func (l *SimLink) Run(ctx context.Context, interval time.Duration) error {
	log := logging.FromContext(ctx).With("vehicle_id", l.id)
	log.Debug("starting simulated vehicle")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Step(interval.Seconds())
		case <-ctx.Done():
			log.Debug("stopping simulated vehicle")
			return nil
		}
	}
}
