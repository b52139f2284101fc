package mission

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"

	"droneops-formation/internal/config"
	"droneops-formation/internal/telemetry"
)

// collectWriter implements every optional writer interface.
type collectWriter struct {
	rows     []telemetry.VehicleRow
	batches  int
	modes    []telemetry.ModeChangeRow
	commands []telemetry.CommandRow
	alerts   []telemetry.AlertRow
	admin    bool
	request  func(string) error
	err      error
}

func (c *collectWriter) Write(r telemetry.VehicleRow) error {
	c.rows = append(c.rows, r)
	return c.err
}

func (c *collectWriter) WriteBatch(rows []telemetry.VehicleRow) error {
	c.batches++
	c.rows = append(c.rows, rows...)
	return c.err
}

func (c *collectWriter) WriteModeChange(r telemetry.ModeChangeRow) error {
	c.modes = append(c.modes, r)
	return c.err
}

func (c *collectWriter) WriteCommand(r telemetry.CommandRow) error {
	c.commands = append(c.commands, r)
	return c.err
}

func (c *collectWriter) WriteAlert(r telemetry.AlertRow) error {
	c.alerts = append(c.alerts, r)
	return c.err
}

func (c *collectWriter) SetAdminStatus(active bool) { c.admin = active }
func (c *collectWriter) SetModeRequester(fn func(string) error) { c.request = fn }

// plainWriter only handles vehicle rows.
type plainWriter struct{ rows []telemetry.VehicleRow }

func (p *plainWriter) Write(r telemetry.VehicleRow) error {
	p.rows = append(p.rows, r)
	return nil
}

var ts0 = time.Unix(0, 0).UTC()

func TestFileWriter(t *testing.T) {
	dir := t.TempDir()
	paths := map[string]string{
		"vehicles": filepath.Join(dir, "vehicles.jsonl"),
		"modes":    filepath.Join(dir, "modes.jsonl"),
		"commands": filepath.Join(dir, "commands.jsonl"),
		"alerts":   filepath.Join(dir, "alerts.jsonl"),
	}
	fw, err := NewFileWriter(paths["vehicles"], paths["modes"], paths["commands"], paths["alerts"])
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	if err := fw.WriteBatch([]telemetry.VehicleRow{{VehicleID: "a", Alt: 10, Timestamp: ts0}, {VehicleID: "b", Timestamp: ts0}}); err != nil {
		t.Fatalf("batch: %v", err)
	}
	if err := fw.WriteModeChange(telemetry.ModeChangeRow{From: "idle", To: "takeoff", Timestamp: ts0}); err != nil {
		t.Fatalf("mode: %v", err)
	}
	if err := fw.WriteCommand(telemetry.CommandRow{VehicleID: "a", Command: "arm", Accepted: true, Timestamp: ts0}); err != nil {
		t.Fatalf("command: %v", err)
	}
	if err := fw.WriteAlert(telemetry.AlertRow{Kind: "communication", Message: "boom", Timestamp: ts0}); err != nil {
		t.Fatalf("alert: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	want := map[string]int{"vehicles": 2, "modes": 1, "commands": 1, "alerts": 1}
	for name, n := range want {
		b, err := os.ReadFile(paths[name])
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if got := strings.Count(string(b), "\n"); got != n {
			t.Fatalf("%s: %d lines want %d", name, got, n)
		}
	}
	b, _ := os.ReadFile(paths["vehicles"])
	var got telemetry.VehicleRow
	if err := json.Unmarshal(bytes.SplitN(b, []byte("\n"), 2)[0], &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.VehicleID != "a" || got.Alt != 10 {
		t.Fatalf("unexpected row %+v", got)
	}
}

func TestFileWriterOptionalLogs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vehicles.jsonl")
	fw, err := NewFileWriter(path, "", "", "")
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	defer fw.Close()
	if err := fw.WriteAlert(telemetry.AlertRow{Kind: "arm_rejected"}); err != nil {
		t.Fatalf("disabled alert log should be a no-op: %v", err)
	}
}

func TestMultiWriterForwarding(t *testing.T) {
	full := &collectWriter{}
	plain := &plainWriter{}
	mw := NewMultiWriter(full, nil, plain)

	if err := mw.WriteBatch([]telemetry.VehicleRow{{VehicleID: "a"}, {VehicleID: "b"}}); err != nil {
		t.Fatalf("batch: %v", err)
	}
	if full.batches != 1 || len(full.rows) != 2 || len(plain.rows) != 2 {
		t.Fatalf("batch not forwarded: %d/%d/%d", full.batches, len(full.rows), len(plain.rows))
	}
	_ = mw.WriteModeChange(telemetry.ModeChangeRow{To: "land"})
	_ = mw.WriteCommand(telemetry.CommandRow{Command: "arm"})
	_ = mw.WriteAlert(telemetry.AlertRow{Kind: "communication"})
	if len(full.modes) != 1 || len(full.commands) != 1 || len(full.alerts) != 1 {
		t.Fatalf("optional rows not forwarded: %+v", full)
	}
	mw.SetAdminStatus(true)
	mw.SetModeRequester(func(string) error { return nil })
	if !full.admin || full.request == nil {
		t.Fatal("admin status or requester not forwarded")
	}
}

func TestMultiWriterKeepsWritingAfterError(t *testing.T) {
	boom := errors.New("boom")
	bad := &collectWriter{err: boom}
	good := &plainWriter{}
	mw := NewMultiWriter(bad, good)
	if err := mw.Write(telemetry.VehicleRow{VehicleID: "a"}); !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(good.rows) != 1 {
		t.Fatal("second writer skipped after first failed")
	}
}

func TestStdoutWriterJSONFallback(t *testing.T) {
	buf := &bytes.Buffer{}
	w := &StdoutWriter{out: buf}
	if err := w.Write(telemetry.VehicleRow{VehicleID: "a", Timestamp: ts0}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := w.WriteAlert(telemetry.AlertRow{Kind: "communication", Timestamp: ts0}); err != nil {
		t.Fatalf("alert failed: %v", err)
	}
	sc := bufio.NewScanner(buf)
	lines := 0
	for sc.Scan() {
		if !json.Valid(sc.Bytes()) {
			t.Fatalf("expected JSON output, got %q", sc.Text())
		}
		lines++
	}
	if lines != 2 {
		t.Fatalf("expected 2 lines, got %d", lines)
	}
}

func TestStdoutWriterColorized(t *testing.T) {
	cfg := &config.FormationConfig{
		MissionID:  "m1",
		TakeoffAlt: 10,
		MinOffset:  5,
		MaxOffset:  15,
		Vehicles:   []config.VehicleConfig{{ID: "a", HomeLat: 1, HomeLon: 2}},
	}
	buf := &bytes.Buffer{}
	w := &StdoutWriter{cfg: cfg, colorize: true, out: buf}
	row := telemetry.VehicleRow{VehicleID: "a", Mode: "land", Armed: true, Active: true, Timestamp: ts0}
	if err := w.Write(row); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "Formation Configuration:") || !strings.Contains(output, "Roster:") {
		t.Fatalf("overview not printed: %q", output)
	}
	if !strings.Contains(output, "\x1b[") || !strings.Contains(output, "landing") {
		t.Fatalf("expected colorized landing row: %q", output)
	}

	buf.Reset()
	if err := w.WriteModeChange(telemetry.ModeChangeRow{From: "alongside", To: "land", Timestamp: ts0}); err != nil {
		t.Fatalf("mode failed: %v", err)
	}
	if strings.Contains(buf.String(), "Formation Configuration:") {
		t.Fatalf("overview printed more than once")
	}
	if !strings.Contains(buf.String(), "MODE") {
		t.Fatalf("mode change not printed: %q", buf.String())
	}
}

type mockGreptimeClient struct {
	tables []*table.Table
}

func (m *mockGreptimeClient) Write(_ context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error) {
	m.tables = append(m.tables, tables...)
	return &gpb.GreptimeResponse{}, nil
}

func TestGreptimeWriterVehicles(t *testing.T) {
	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, vehicleTable: "formation_vehicles"}
	rows := []telemetry.VehicleRow{
		{MissionID: "m1", RunID: "r1", VehicleID: "a", Slot: 0, Armed: true, Alt: 10.5, Timestamp: ts0},
		{MissionID: "m1", RunID: "r1", VehicleID: "b", Slot: 1, Timestamp: ts0},
	}
	if err := w.WriteBatch(rows); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if len(m.tables) != 1 {
		t.Fatalf("expected one table write, got %d", len(m.tables))
	}
	data := m.tables[0].GetRows()
	if len(data.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(data.Rows))
	}
	schema := data.Schema
	if schema[2].ColumnName != "vehicle_id" || schema[2].SemanticType != gpb.SemanticType_TAG {
		t.Fatalf("unexpected vehicle_id column: %+v", schema[2])
	}
	if last := schema[len(schema)-1]; last.ColumnName != "ts" || last.SemanticType != gpb.SemanticType_TIMESTAMP {
		t.Fatalf("unexpected time index: %+v", last)
	}
	vals := data.Rows[1].Values
	if vals[2].GetStringValue() != "b" || vals[3].GetI64Value() != 1 {
		t.Fatalf("unexpected second row: %v", vals)
	}
	if !data.Rows[0].Values[6].GetBoolValue() || data.Rows[0].Values[10].GetF64Value() != 10.5 {
		t.Fatalf("unexpected first row: %v", data.Rows[0].Values)
	}
}

func TestGreptimeWriterEvents(t *testing.T) {
	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, modeTable: "modes", commandTable: "commands", alertTable: "alerts"}
	if err := w.WriteModeChange(telemetry.ModeChangeRow{MissionID: "m1", From: "alongside", To: "land", Event: "request_land", Requested: true, Timestamp: ts0}); err != nil {
		t.Fatalf("mode: %v", err)
	}
	if err := w.WriteCommand(telemetry.CommandRow{MissionID: "m1", VehicleID: "a", Command: "set_yaw", Value: "90.0", Timestamp: ts0}); err != nil {
		t.Fatalf("command: %v", err)
	}
	if err := w.WriteAlert(telemetry.AlertRow{MissionID: "m1", Kind: "communication", Message: "lost", Timestamp: ts0}); err != nil {
		t.Fatalf("alert: %v", err)
	}
	if len(m.tables) != 3 {
		t.Fatalf("expected 3 table writes, got %d", len(m.tables))
	}
	if got := m.tables[0].GetRows().Rows[0].Values[3].GetStringValue(); got != "land" {
		t.Fatalf("to_mode = %s, want land", got)
	}
	if got := m.tables[1].GetRows().Rows[0].Values[3].GetStringValue(); got != "set_yaw" {
		t.Fatalf("command = %s, want set_yaw", got)
	}
	if got := m.tables[2].GetRows().Rows[0].Values[5].GetStringValue(); got != "lost" {
		t.Fatalf("message = %s, want lost", got)
	}
}

func TestReplayLog(t *testing.T) {
	rows := []telemetry.VehicleRow{
		{VehicleID: "a", Timestamp: time.Unix(0, 0)},
		{VehicleID: "b", Timestamp: time.Unix(1, 0)},
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	pw := &plainWriter{}
	if err := ReplayLog(context.Background(), &buf, pw, 0); err != nil {
		t.Fatalf("ReplayLog: %v", err)
	}
	if len(pw.rows) != 2 || pw.rows[1].VehicleID != "b" {
		t.Fatalf("unexpected replay: %+v", pw.rows)
	}
}

func TestReplayLogCancelled(t *testing.T) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	_ = enc.Encode(telemetry.VehicleRow{VehicleID: "a", Timestamp: time.Unix(0, 0)})
	_ = enc.Encode(telemetry.VehicleRow{VehicleID: "b", Timestamp: time.Unix(3600, 0)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pw := &plainWriter{}
	if err := ReplayLog(ctx, &buf, pw, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if len(pw.rows) != 1 {
		t.Fatalf("expected only the first row before the wait, got %d", len(pw.rows))
	}
}
