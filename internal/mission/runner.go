package mission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"droneops-formation/internal/formation"
	"droneops-formation/internal/logging"
	"droneops-formation/internal/reference"
	"droneops-formation/internal/telemetry"
	"droneops-formation/internal/vehicle"
)

// ErrQueueFull is returned when operator requests arrive faster than cycles run.
var ErrQueueFull = errors.New("mode request queue full")

const (
	requestQueueSize = 8
	alertHistory     = 20
)

// Supervisor decides mode requests on behalf of an operator. It runs on the
// runner goroutine before every cycle.
type Supervisor interface {
	Next(now time.Time, mode formation.Mode, vehicles []formation.VehicleState) (formation.Mode, bool)
}

// ageReporter is implemented by reference feeds that know when they were last updated.
type ageReporter interface {
	Age(now time.Time) (time.Duration, bool)
}

// Settings configure a Runner.
type Settings struct {
	MissionID  string
	Interval   time.Duration
	StaleAfter time.Duration // zero picks five intervals
	Supervisor Supervisor
	Now        func() time.Time
}

// Status is a read-only view of the mission for operators.
type Status struct {
	MissionID string                   `json:"mission_id"`
	RunID     string                   `json:"run_id"`
	Mode      formation.Mode           `json:"mode"`
	Cycles    uint64                   `json:"cycles"`
	StartedAt time.Time                `json:"started_at"`
	LastCycle time.Time                `json:"last_cycle"`
	LastError string                   `json:"last_error,omitempty"`
	StaleRef  bool                     `json:"stale_reference"`
	Vehicles  []formation.VehicleState `json:"vehicles"`
	Alerts    []telemetry.AlertRow     `json:"alerts"`
}

// Runner owns a formation group and advances it on a fixed interval. All
// group access happens on the goroutine calling Run.
type Runner struct {
	group      *formation.Group
	ref        reference.Tracker
	writer     TelemetryWriter
	missionID  string
	runID      string
	interval   time.Duration
	staleAfter time.Duration
	supervisor Supervisor
	now        func() time.Time
	requests   chan formation.Mode

	mu     sync.RWMutex
	status Status
	alerts []telemetry.AlertRow
}

// NewRunner builds the formation group for ref and wires its transitions and
// alerts into writer, which may be nil.
func NewRunner(s Settings, fcfg formation.Config, ref reference.Tracker, writer TelemetryWriter) *Runner {
	if s.Interval <= 0 {
		s.Interval = 200 * time.Millisecond
	}
	if s.StaleAfter <= 0 {
		s.StaleAfter = 5 * s.Interval
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	r := &Runner{
		ref:        ref,
		writer:     writer,
		missionID:  s.MissionID,
		runID:      uuid.NewString(),
		interval:   s.Interval,
		staleAfter: s.StaleAfter,
		supervisor: s.Supervisor,
		now:        s.Now,
		requests:   make(chan formation.Mode, requestQueueSize),
	}
	r.group = formation.NewGroup(fcfg, ref,
		formation.WithAlerter(r),
		formation.WithTransitionHook(r.recordTransition),
		formation.WithClock(s.Now),
	)
	r.status = Status{MissionID: r.missionID, RunID: r.runID, Mode: formation.Idle, StartedAt: s.Now().UTC()}

	if mr, ok := writer.(ModeRequester); ok {
		mr.SetModeRequester(func(name string) error {
			m, err := formation.ParseMode(name)
			if err != nil {
				return err
			}
			return r.Enqueue(m)
		})
	}
	return r
}

// RunID identifies this controller run in persisted rows.
func (r *Runner) RunID() string { return r.runID }

// AddVehicle appends a vehicle to the roster. Commands are recorded when the
// writer accepts command rows. Call before Run.
func (r *Runner) AddVehicle(id string, link vehicle.Link) error {
	if cw, ok := r.writer.(CommandWriter); ok {
		link = NewRecordingLink(link, id, r.missionID, r.runID, cw)
	}
	if _, err := r.group.Add(id, link); err != nil {
		return err
	}
	r.publish("")
	return nil
}

// Enqueue validates a mode request against the last published mode and queues
// it for the next cycle.
func (r *Runner) Enqueue(m formation.Mode) error {
	current := r.Status().Mode
	if !formation.CanRequest(current, m) {
		return fmt.Errorf("%w: %s -> %s", formation.ErrIllegalTransition, current, m)
	}
	select {
	case r.requests <- m:
		return nil
	default:
		return ErrQueueFull
	}
}

// Status returns the last published mission state.
func (r *Runner) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := r.status
	st.Vehicles = append([]formation.VehicleState(nil), r.status.Vehicles...)
	st.Alerts = append([]telemetry.AlertRow(nil), r.alerts...)
	return st
}

// Run advances the group every interval until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	log := logging.FromContext(ctx).With("mission_id", r.missionID, "run_id", r.runID)
	ctx = logging.NewContext(ctx, log)
	log.Info("starting formation runner", "interval", r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("stopping formation runner", "mode", r.group.Mode())
			return nil
		case m := <-r.requests:
			r.apply(ctx, m, "operator")
		case <-ticker.C:
			r.Step(ctx)
		}
	}
}

func (r *Runner) apply(ctx context.Context, m formation.Mode, source string) {
	if err := r.group.RequestMode(ctx, m); err != nil {
		logging.FromContext(ctx).Warn("mode request rejected", "source", source, "mode", m, "err", err)
	}
	r.publish(r.Status().LastError)
}

// Step runs one control cycle: pending requests, the supervisor, the
// group itself, then output.
func (r *Runner) Step(ctx context.Context) {
	log := logging.FromContext(ctx)
	for pending := true; pending; {
		select {
		case m := <-r.requests:
			r.apply(ctx, m, "operator")
		default:
			pending = false
		}
	}

	if r.supervisor != nil {
		if m, ok := r.supervisor.Next(r.now(), r.group.Mode(), r.group.Snapshot()); ok && m != r.group.Mode() {
			r.apply(ctx, m, "scenario")
		}
	}

	r.checkReference(ctx)

	lastErr := ""
	if err := r.group.Advance(ctx); err != nil {
		lastErr = err.Error()
		log.Debug("cycle aborted", "mode", r.group.Mode(), "err", err)
	}

	r.mu.Lock()
	r.status.Cycles++
	r.status.LastCycle = r.now().UTC()
	r.mu.Unlock()
	r.publish(lastErr)

	if r.writer == nil {
		return
	}
	if err := writeRows(r.writer, r.rows()); err != nil {
		log.Error("vehicle write failed", "err", err)
	}
}

func (r *Runner) checkReference(ctx context.Context) {
	ar, ok := r.ref.(ageReporter)
	if !ok {
		return
	}
	age, seen := ar.Age(r.now())
	stale := !seen || age > r.staleAfter

	r.mu.Lock()
	changed := stale != r.status.StaleRef
	r.status.StaleRef = stale
	r.mu.Unlock()

	if changed && stale {
		logging.FromContext(ctx).Warn("reference feed stale, holding last known value", "age", age, "seen", seen)
	} else if changed {
		logging.FromContext(ctx).Info("reference feed recovered")
	}
}

func (r *Runner) publish(lastErr string) {
	vehicles := r.group.Snapshot()
	r.mu.Lock()
	r.status.Mode = r.group.Mode()
	r.status.Vehicles = vehicles
	r.status.LastError = lastErr
	r.mu.Unlock()
}

func (r *Runner) rows() []telemetry.VehicleRow {
	mode := r.group.Mode().String()
	ts := r.now().UTC()
	states := r.group.Snapshot()
	rows := make([]telemetry.VehicleRow, len(states))
	for i, s := range states {
		rows[i] = telemetry.VehicleRow{
			MissionID:  r.missionID,
			RunID:      r.runID,
			VehicleID:  s.ID,
			Slot:       s.Slot,
			Mode:       mode,
			FlightMode: s.Telemetry.Mode,
			Armed:      s.Telemetry.Armed,
			Active:     s.Active,
			Lat:        s.Telemetry.Position.Lat,
			Lon:        s.Telemetry.Position.Lon,
			Alt:        s.Telemetry.Position.Alt,
			VelN:       s.Telemetry.Velocity.X,
			VelE:       s.Telemetry.Velocity.Y,
			VelD:       s.Telemetry.Velocity.Z,
			TargetLat:  s.Target.Lat,
			TargetLon:  s.Target.Lon,
			TargetAlt:  s.Target.Alt,
			Phase:      s.Phase,
			Timestamp:  ts,
		}
	}
	return rows
}

func (r *Runner) recordTransition(ctx context.Context, c formation.ModeChange) {
	if mw, ok := r.writer.(ModeWriter); ok {
		row := telemetry.ModeChangeRow{
			MissionID: r.missionID,
			RunID:     r.runID,
			From:      c.From.String(),
			To:        c.To.String(),
			Event:     c.Event.String(),
			Requested: c.Event.Requested(),
			Timestamp: c.At.UTC(),
		}
		if err := mw.WriteModeChange(row); err != nil {
			logging.FromContext(ctx).Error("mode change write failed", "err", err)
		}
	}
}

// Alert implements formation.Alerter.
func (r *Runner) Alert(ctx context.Context, a formation.Alert) {
	row := telemetry.AlertRow{
		MissionID: r.missionID,
		RunID:     r.runID,
		Kind:      string(a.Kind),
		Mode:      a.Mode.String(),
		VehicleID: a.VehicleID,
		Timestamp: a.At.UTC(),
	}
	if a.Err != nil {
		row.Message = a.Err.Error()
	}
	r.mu.Lock()
	r.alerts = append(r.alerts, row)
	if len(r.alerts) > alertHistory {
		r.alerts = r.alerts[len(r.alerts)-alertHistory:]
	}
	r.mu.Unlock()

	logging.FromContext(ctx).Warn("operator alert", "kind", row.Kind, "vehicle_id", row.VehicleID, "message", row.Message)
	if aw, ok := r.writer.(AlertWriter); ok {
		if err := aw.WriteAlert(row); err != nil {
			logging.FromContext(ctx).Error("alert write failed", "err", err)
		}
	}
}
