package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"droneops-formation/internal/mission"
	"droneops-formation/internal/telemetry"
)

func TestNewWritersPrintOnly(t *testing.T) {
	w, cleanup, err := newWriters(nil, true, false, "")
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	if _, ok := w.(*mission.StdoutWriter); !ok {
		t.Fatalf("expected *mission.StdoutWriter, got %T", w)
	}
}

func TestNewWritersGreptimeFallback(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	w, cleanup, err := newWriters(nil, false, false, "")
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	if _, ok := w.(*mission.StdoutWriter); !ok {
		t.Fatalf("expected *mission.StdoutWriter, got %T", w)
	}
}

func TestNewWritersLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vehicles.log")
	w, cleanup, err := newWriters(nil, true, false, path)
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	defer cleanup()
	if _, ok := w.(*mission.MultiWriter); !ok {
		t.Fatalf("expected *mission.MultiWriter, got %T", w)
	}
	if err := w.Write(telemetry.VehicleRow{MissionID: "m1", VehicleID: "uav-1", Timestamp: time.Now()}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	aw, ok := w.(mission.AlertWriter)
	if !ok {
		t.Fatalf("writer does not implement AlertWriter")
	}
	if err := aw.WriteAlert(telemetry.AlertRow{MissionID: "m1", Kind: "communication", Timestamp: time.Now()}); err != nil {
		t.Fatalf("write alert failed: %v", err)
	}
	for _, p := range []string{path, path + ".alerts"} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat %s: %v", p, err)
		}
		if info.Size() == 0 {
			t.Fatalf("expected %s to be non-empty", p)
		}
	}
	if _, err := os.Stat(path + ".commands"); err != nil {
		t.Fatalf("command log not created: %v", err)
	}
}
