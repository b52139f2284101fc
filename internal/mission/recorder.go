package mission

import (
	"context"
	"strconv"
	"time"

	"droneops-formation/internal/geo"
	"droneops-formation/internal/logging"
	"droneops-formation/internal/telemetry"
	"droneops-formation/internal/vehicle"
)

// RecordingLink wraps a vehicle link and writes every command it carries as
// a CommandRow. Recording failures are logged and never fail the command.
type RecordingLink struct {
	vehicle.Link
	vehicleID string
	missionID string
	runID     string
	sink      CommandWriter
	now       func() time.Time
}

// NewRecordingLink decorates link. A nil sink disables recording.
func NewRecordingLink(link vehicle.Link, vehicleID, missionID, runID string, sink CommandWriter) *RecordingLink {
	return &RecordingLink{
		Link:      link,
		vehicleID: vehicleID,
		missionID: missionID,
		runID:     runID,
		sink:      sink,
		now:       time.Now,
	}
}

func (r *RecordingLink) record(ctx context.Context, row telemetry.CommandRow, accepted bool, err error) {
	if r.sink == nil {
		return
	}
	row.MissionID = r.missionID
	row.RunID = r.runID
	row.VehicleID = r.vehicleID
	row.Accepted = accepted && err == nil
	row.Timestamp = r.now().UTC()
	if err != nil {
		row.Error = err.Error()
	}
	if werr := r.sink.WriteCommand(row); werr != nil {
		logging.FromContext(ctx).Warn("command record failed", "vehicle_id", r.vehicleID, "command", row.Command, "err", werr)
	}
}

func (r *RecordingLink) SetMode(ctx context.Context, mode string) error {
	err := r.Link.SetMode(ctx, mode)
	r.record(ctx, telemetry.CommandRow{Command: vehicle.CmdSetMode, Value: mode}, true, err)
	return err
}

func (r *RecordingLink) Arm(ctx context.Context, arm bool) (bool, error) {
	ok, err := r.Link.Arm(ctx, arm)
	r.record(ctx, telemetry.CommandRow{Command: vehicle.CmdArm, Value: strconv.FormatBool(arm)}, ok, err)
	return ok, err
}

func (r *RecordingLink) Takeoff(ctx context.Context, alt float64) (bool, error) {
	ok, err := r.Link.Takeoff(ctx, alt)
	r.record(ctx, telemetry.CommandRow{Command: vehicle.CmdTakeoff, Alt: alt}, ok, err)
	return ok, err
}

func (r *RecordingLink) GotoPositionVelocity(ctx context.Context, pos geo.Position, vel geo.Vector3) error {
	err := r.Link.GotoPositionVelocity(ctx, pos, vel)
	r.record(ctx, telemetry.CommandRow{
		Command: vehicle.CmdGoto,
		Lat:     pos.Lat, Lon: pos.Lon, Alt: pos.Alt,
		VelN: vel.X, VelE: vel.Y, VelD: vel.Z,
	}, true, err)
	return err
}

func (r *RecordingLink) SetYaw(ctx context.Context, heading float64) error {
	err := r.Link.SetYaw(ctx, heading)
	r.record(ctx, telemetry.CommandRow{Command: vehicle.CmdSetYaw, Value: strconv.FormatFloat(heading, 'f', 1, 64)}, true, err)
	return err
}

func (r *RecordingLink) RequestTelemetryStream(ctx context.Context, rateHz int) error {
	err := r.Link.RequestTelemetryStream(ctx, rateHz)
	r.record(ctx, telemetry.CommandRow{Command: vehicle.CmdRequestTelemetry, Value: strconv.Itoa(rateHz)}, true, err)
	return err
}
