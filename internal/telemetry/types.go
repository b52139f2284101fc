// Row types persisted by the formation controller, with greptime tags
package telemetry

import (
	"os"
	"time"
)

// VehicleRow is one vehicle's state at the end of a control cycle.
type VehicleRow struct {
	MissionID  string    `json:"mission_id"` // TAG
	RunID      string    `json:"run_id"`     // TAG
	VehicleID  string    `json:"vehicle_id"` // TAG
	Slot       int       `json:"slot"`       // FIELD
	Mode       string    `json:"mode"`       // FIELD, formation mode
	FlightMode string    `json:"flight_mode"`
	Armed      bool      `json:"armed"`
	Active     bool      `json:"active"` // active landing vehicle
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Alt        float64   `json:"alt"`
	VelN       float64   `json:"vel_n"`
	VelE       float64   `json:"vel_e"`
	VelD       float64   `json:"vel_d"`
	TargetLat  float64   `json:"target_lat"`
	TargetLon  float64   `json:"target_lon"`
	TargetAlt  float64   `json:"target_alt"`
	Phase      float64   `json:"phase"`
	Timestamp  time.Time `json:"ts"` // TIME INDEX
}

// VehicleTableName is the GreptimeDB table for vehicle rows. It defaults to
// "formation_vehicles" and can be overridden via GREPTIMEDB_TABLE.
var VehicleTableName = tableName("GREPTIMEDB_TABLE", "formation_vehicles")

func (VehicleRow) TableName() string {
	return VehicleTableName
}

func tableName(env, def string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}
