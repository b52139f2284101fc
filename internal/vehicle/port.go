// Package vehicle defines how the controller talks to a single aircraft.
package vehicle

import (
	"context"
	"fmt"
	"time"

	"droneops-formation/internal/geo"
)

// Telemetry is the latest state reported by a vehicle link.
type Telemetry struct {
	Position geo.Position `json:"position"`
	Velocity geo.Vector3  `json:"velocity"`
	Armed    bool         `json:"armed"`
	Mode     string       `json:"mode"`
	Updated  time.Time    `json:"updated"`
}

// CommandPort issues commands to one vehicle. Any call may fail with a *CommError.
type CommandPort interface {
	SetMode(ctx context.Context, mode string) error
	Arm(ctx context.Context, arm bool) (bool, error)
	Takeoff(ctx context.Context, alt float64) (bool, error)
	GotoPositionVelocity(ctx context.Context, pos geo.Position, vel geo.Vector3) error
	SetYaw(ctx context.Context, heading float64) error
	RequestTelemetryStream(ctx context.Context, rateHz int) error
}

// Link is a CommandPort that also reports telemetry. Snapshot must be safe to
// call concurrently with whatever goroutine ingests telemetry.
type Link interface {
	CommandPort
	Snapshot() Telemetry
}

// Command names used in errors and recorded command rows.
const (
	CmdSetMode          = "set_mode"
	CmdArm              = "arm"
	CmdTakeoff          = "takeoff"
	CmdGoto             = "goto_position_velocity"
	CmdSetYaw           = "set_yaw"
	CmdRequestTelemetry = "request_telemetry_stream"
)

// CommError reports a failed command exchange with a vehicle.
type CommError struct {
	VehicleID string
	Op        string
	Err       error
}

func (e *CommError) Error() string {
	return fmt.Sprintf("vehicle %s: %s: %v", e.VehicleID, e.Op, e.Err)
}

func (e *CommError) Unwrap() error { return e.Err }
