package mission

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"droneops-formation/internal/telemetry"
)

// greptimeClient is the subset of the ingester client the writer needs.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes formation rows to GreptimeDB via the ingester client.
type GreptimeDBWriter struct {
	client       greptimeClient
	vehicleTable string
	modeTable    string
	commandTable string
	alertTable   string
	timeout      time.Duration
}

// NewGreptimeDBWriter connects to endpoint (host or host:port) and writes to database.
func NewGreptimeDBWriter(endpoint, database string) (*GreptimeDBWriter, error) {
	host, port := endpoint, 0
	if h, p, err := net.SplitHostPort(endpoint); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid greptime port %q: %w", p, err)
		}
		host, port = h, n
	}
	cfg := greptime.NewConfig(host).WithDatabase(database)
	if port > 0 {
		cfg = cfg.WithPort(port)
	}
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &GreptimeDBWriter{
		client:       client,
		vehicleTable: telemetry.VehicleTableName,
		modeTable:    telemetry.ModeChangeTableName,
		commandTable: telemetry.CommandTableName,
		alertTable:   telemetry.AlertTableName,
		timeout:      5 * time.Second,
	}, nil
}

func (w *GreptimeDBWriter) write(tbl *table.Table) error {
	timeout := w.timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_, err := w.client.Write(ctx, tbl)
	return err
}

type column struct {
	name string
	typ  types.ColumnType
	tag  bool
}

func newTable(name string, cols []column) (*table.Table, error) {
	tbl, err := table.New(name)
	if err != nil {
		return nil, err
	}
	for _, c := range cols {
		if c.tag {
			err = tbl.AddTagColumn(c.name, c.typ)
		} else {
			err = tbl.AddFieldColumn(c.name, c.typ)
		}
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.name, err)
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}
	return tbl, nil
}

var vehicleColumns = []column{
	{"mission_id", types.STRING, true},
	{"run_id", types.STRING, true},
	{"vehicle_id", types.STRING, true},
	{"slot", types.INT64, false},
	{"mode", types.STRING, false},
	{"flight_mode", types.STRING, false},
	{"armed", types.BOOLEAN, false},
	{"active", types.BOOLEAN, false},
	{"lat", types.FLOAT64, false},
	{"lon", types.FLOAT64, false},
	{"alt", types.FLOAT64, false},
	{"vel_n", types.FLOAT64, false},
	{"vel_e", types.FLOAT64, false},
	{"vel_d", types.FLOAT64, false},
	{"target_lat", types.FLOAT64, false},
	{"target_lon", types.FLOAT64, false},
	{"target_alt", types.FLOAT64, false},
	{"phase", types.FLOAT64, false},
}

// Write inserts a single vehicle row.
func (w *GreptimeDBWriter) Write(row telemetry.VehicleRow) error {
	return w.WriteBatch([]telemetry.VehicleRow{row})
}

// WriteBatch inserts multiple vehicle rows.
func (w *GreptimeDBWriter) WriteBatch(rows []telemetry.VehicleRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := newTable(w.vehicleTable, vehicleColumns)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.MissionID, r.RunID, r.VehicleID, int64(r.Slot), r.Mode, r.FlightMode,
			r.Armed, r.Active, r.Lat, r.Lon, r.Alt, r.VelN, r.VelE, r.VelD,
			r.TargetLat, r.TargetLon, r.TargetAlt, r.Phase, r.Timestamp); err != nil {
			return err
		}
	}
	return w.write(tbl)
}

var modeColumns = []column{
	{"mission_id", types.STRING, true},
	{"run_id", types.STRING, true},
	{"from_mode", types.STRING, false},
	{"to_mode", types.STRING, false},
	{"event", types.STRING, false},
	{"requested", types.BOOLEAN, false},
}

// WriteModeChange inserts a mode transition.
func (w *GreptimeDBWriter) WriteModeChange(r telemetry.ModeChangeRow) error {
	tbl, err := newTable(w.modeTable, modeColumns)
	if err != nil {
		return err
	}
	if err := tbl.AddRow(r.MissionID, r.RunID, r.From, r.To, r.Event, r.Requested, r.Timestamp); err != nil {
		return err
	}
	return w.write(tbl)
}

var commandColumns = []column{
	{"mission_id", types.STRING, true},
	{"run_id", types.STRING, true},
	{"vehicle_id", types.STRING, true},
	{"command", types.STRING, false},
	{"lat", types.FLOAT64, false},
	{"lon", types.FLOAT64, false},
	{"alt", types.FLOAT64, false},
	{"vel_n", types.FLOAT64, false},
	{"vel_e", types.FLOAT64, false},
	{"vel_d", types.FLOAT64, false},
	{"value", types.STRING, false},
	{"accepted", types.BOOLEAN, false},
	{"error", types.STRING, false},
}

// WriteCommand inserts a recorded command.
func (w *GreptimeDBWriter) WriteCommand(r telemetry.CommandRow) error {
	tbl, err := newTable(w.commandTable, commandColumns)
	if err != nil {
		return err
	}
	if err := tbl.AddRow(r.MissionID, r.RunID, r.VehicleID, r.Command, r.Lat, r.Lon, r.Alt,
		r.VelN, r.VelE, r.VelD, r.Value, r.Accepted, r.Error, r.Timestamp); err != nil {
		return err
	}
	return w.write(tbl)
}

var alertColumns = []column{
	{"mission_id", types.STRING, true},
	{"run_id", types.STRING, true},
	{"kind", types.STRING, true},
	{"mode", types.STRING, false},
	{"vehicle_id", types.STRING, false},
	{"message", types.STRING, false},
}

// WriteAlert inserts an operator alert.
func (w *GreptimeDBWriter) WriteAlert(r telemetry.AlertRow) error {
	tbl, err := newTable(w.alertTable, alertColumns)
	if err != nil {
		return err
	}
	if err := tbl.AddRow(r.MissionID, r.RunID, r.Kind, r.Mode, r.VehicleID, r.Message, r.Timestamp); err != nil {
		return err
	}
	return w.write(tbl)
}
