package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const schemaPath = "../../schemas/formation.cue"

const validYAML = `
mission_id: test-mission
takeoff_alt: 10
min_offset: 5
max_offset: 15
cycle_interval: 250ms
reference:
  center_lat: 48.2
  center_lon: 16.4
  radius_m: 150
  period: 90s
vehicles:
  - id: a
    home_lat: 48.2001
    home_lon: 16.4
  - id: b
    home_lat: 48.2002
    home_lon: 16.4
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "formation.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoadConfig_Valid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML), schemaPath)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.MissionID != "test-mission" || len(cfg.Vehicles) != 2 || cfg.Vehicles[1].ID != "b" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.CycleInterval != 250*time.Millisecond || cfg.Reference.Period != 90*time.Second {
		t.Fatalf("durations not decoded: %v %v", cfg.CycleInterval, cfg.Reference.Period)
	}
	if cfg.GuidedMode != "GUIDED" || cfg.TelemetryRateHz != 10 || cfg.RetryDelay != 200*time.Millisecond {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	fc := cfg.Formation()
	if fc.TakeoffAlt != 10 || fc.MinOffset != 5 || fc.MaxOffset != 15 {
		t.Fatalf("unexpected formation settings: %+v", fc)
	}
	if c := cfg.Circuit(); c.RadiusM != 150 || c.Center.Lat != 48.2 {
		t.Fatalf("unexpected circuit: %+v", c)
	}
}

func TestLoadShippedConfig(t *testing.T) {
	cfg, err := Load("../../config/formation.yaml", schemaPath)
	if err != nil {
		t.Fatalf("shipped config rejected: %v", err)
	}
	if len(cfg.Vehicles) == 0 {
		t.Fatal("shipped config has no vehicles")
	}
}

func TestLoadSchemaErrors(t *testing.T) {
	cases := map[string]string{
		"missing takeoff": strings.Replace(validYAML, "takeoff_alt: 10\n", "", 1),
		"unknown field":   validYAML + "wingspan: 3\n",
		"bad duration":    strings.Replace(validYAML, "250ms", "soon", 1),
		"no vehicles":     validYAML[:strings.Index(validYAML, "vehicles:")] + "vehicles: []\n",
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body), schemaPath); err == nil {
			t.Fatalf("%s: expected schema error", name)
		}
	}
}

func TestValidateCrossField(t *testing.T) {
	cases := map[string]func(*FormationConfig){
		"offsets swapped": func(c *FormationConfig) { c.MinOffset, c.MaxOffset = 20, 5 },
		"comm loss":       func(c *FormationConfig) { c.Link.CommLoss = 1.5 },
		"duplicate ids":   func(c *FormationConfig) { c.Vehicles[1].ID = "a" },
		"negative wait":   func(c *FormationConfig) { c.DescendTimeout = -time.Second },
	}
	for name, mutate := range cases {
		cfg, err := Parse([]byte(validYAML))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		mutate(cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s: expected ErrInvalid, got %v", name, err)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MISSION_ID", "from-env")
	t.Setenv("CYCLE_INTERVAL", "1s")
	cfg, err := Load(writeConfig(t, validYAML), schemaPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MissionID != "from-env" || cfg.CycleInterval != time.Second {
		t.Fatalf("env overrides not applied: %s %v", cfg.MissionID, cfg.CycleInterval)
	}

	t.Setenv("CYCLE_INTERVAL", "fast")
	if _, err := Load(writeConfig(t, validYAML), schemaPath); err == nil {
		t.Fatal("expected error for invalid CYCLE_INTERVAL")
	}
}

func TestDefaultMissionID(t *testing.T) {
	cfg, err := Parse([]byte(strings.Replace(validYAML, "mission_id: test-mission\n", "", 1)))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !strings.HasPrefix(cfg.MissionID, "formation-") || len(cfg.MissionID) != len("formation-")+8 {
		t.Fatalf("unexpected generated mission id %q", cfg.MissionID)
	}
}
