package telemetry

import "time"

var (
	ModeChangeTableName = tableName("GREPTIMEDB_MODE_TABLE", "formation_mode_changes")
	CommandTableName    = tableName("GREPTIMEDB_COMMAND_TABLE", "formation_commands")
	AlertTableName      = tableName("GREPTIMEDB_ALERT_TABLE", "formation_alerts")
)

// ModeChangeRow records one formation mode transition.
type ModeChangeRow struct {
	MissionID string    `json:"mission_id"`
	RunID     string    `json:"run_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Event     string    `json:"event"`
	Requested bool      `json:"requested"`
	Timestamp time.Time `json:"ts"`
}

func (ModeChangeRow) TableName() string { return ModeChangeTableName }

// CommandRow records one command sent to a vehicle.
type CommandRow struct {
	MissionID string    `json:"mission_id"`
	RunID     string    `json:"run_id"`
	VehicleID string    `json:"vehicle_id"`
	Command   string    `json:"command"`
	Lat       float64   `json:"lat,omitempty"`
	Lon       float64   `json:"lon,omitempty"`
	Alt       float64   `json:"alt,omitempty"`
	VelN      float64   `json:"vel_n,omitempty"`
	VelE      float64   `json:"vel_e,omitempty"`
	VelD      float64   `json:"vel_d,omitempty"`
	Value     string    `json:"value,omitempty"` // mode, arm flag, heading, rate
	Accepted  bool      `json:"accepted"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"ts"`
}

func (CommandRow) TableName() string { return CommandTableName }

// AlertRow is an operator alert raised when a cycle aborts.
type AlertRow struct {
	MissionID string    `json:"mission_id"`
	RunID     string    `json:"run_id"`
	Kind      string    `json:"kind"`
	Mode      string    `json:"mode"`
	VehicleID string    `json:"vehicle_id,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"ts"`
}

func (AlertRow) TableName() string { return AlertTableName }
