package formation

import (
	"context"
	"errors"
	"sync"
	"time"

	"droneops-formation/internal/geo"
	"droneops-formation/internal/vehicle"
)

type call struct {
	vehicle string
	op      string
	pos     geo.Position
	vel     geo.Vector3
	value   float64
}

// recorder collects calls across all fake links in issue order.
type recorder struct {
	mu    sync.Mutex
	calls []call
}

func (r *recorder) add(c call) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
}

func (r *recorder) ops(vehicleID, op string) []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []call
	for _, c := range r.calls {
		if c.vehicle == vehicleID && c.op == op {
			out = append(out, c)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

var errLinkDown = errors.New("link down")

// fakeLink is a scripted vehicle. Commands never move it; tests set telemetry.
type fakeLink struct {
	id  string
	rec *recorder
	tel vehicle.Telemetry

	armResult     bool
	takeoffResult bool
	fail          map[string]error

	// dropArm acknowledges arm commands without the vehicle reporting armed.
	dropArm bool

	// onGoto runs after every recorded goto, e.g. to simulate convergence.
	onGoto func(l *fakeLink, pos geo.Position)
}

func newFakeLink(id string, rec *recorder) *fakeLink {
	return &fakeLink{id: id, rec: rec, armResult: true, takeoffResult: true, fail: map[string]error{}}
}

func (l *fakeLink) record(op string, c call) error {
	c.vehicle = l.id
	c.op = op
	l.rec.add(c)
	return l.fail[op]
}

func (l *fakeLink) SetMode(_ context.Context, mode string) error {
	if err := l.record(vehicle.CmdSetMode, call{}); err != nil {
		return err
	}
	l.tel.Mode = mode
	return nil
}

func (l *fakeLink) Arm(_ context.Context, arm bool) (bool, error) {
	if err := l.record(vehicle.CmdArm, call{}); err != nil {
		return false, err
	}
	if l.armResult && !l.dropArm {
		l.tel.Armed = arm
	}
	return l.armResult, nil
}

func (l *fakeLink) Takeoff(_ context.Context, alt float64) (bool, error) {
	if err := l.record(vehicle.CmdTakeoff, call{value: alt}); err != nil {
		return false, err
	}
	return l.takeoffResult, nil
}

func (l *fakeLink) GotoPositionVelocity(_ context.Context, pos geo.Position, vel geo.Vector3) error {
	if err := l.record(vehicle.CmdGoto, call{pos: pos, vel: vel}); err != nil {
		return err
	}
	if l.onGoto != nil {
		l.onGoto(l, pos)
	}
	return nil
}

func (l *fakeLink) SetYaw(_ context.Context, heading float64) error {
	return l.record(vehicle.CmdSetYaw, call{value: heading})
}

func (l *fakeLink) RequestTelemetryStream(_ context.Context, rateHz int) error {
	return l.record(vehicle.CmdRequestTelemetry, call{value: float64(rateHz)})
}

func (l *fakeLink) Snapshot() vehicle.Telemetry { return l.tel }

type staticTracker struct{ ref geo.Reference }

func (s *staticTracker) Position() (geo.Position, float64) { return s.ref.Position, s.ref.Heading }
func (s *staticTracker) Velocity() geo.Vector3             { return s.ref.Velocity }

type alertSink struct{ alerts []Alert }

func (a *alertSink) Alert(_ context.Context, al Alert) { a.alerts = append(a.alerts, al) }

type countingSleeper struct{ n int }

func (s *countingSleeper) sleep(ctx context.Context, _ time.Duration) error {
	s.n++
	return ctx.Err()
}
