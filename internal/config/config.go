// YAML config loader with CUE validation integration
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"droneops-formation/internal/formation"
	"droneops-formation/internal/geo"
	"droneops-formation/internal/reference"
	"droneops-formation/internal/vehicle"
)

// ReferenceConfig describes the simulated navigation source the formation escorts.
type ReferenceConfig struct {
	CenterLat float64       `yaml:"center_lat"`
	CenterLon float64       `yaml:"center_lon"`
	Alt       float64       `yaml:"alt"`
	RadiusM   float64       `yaml:"radius_m"`
	Period    time.Duration `yaml:"period"`
}

// VehicleConfig places one vehicle on the ground. Roster order is file order.
type VehicleConfig struct {
	ID      string  `yaml:"id"`
	HomeLat float64 `yaml:"home_lat"`
	HomeLon float64 `yaml:"home_lon"`
}

// LinkConfig tunes the simulated vehicle links.
type LinkConfig struct {
	SpeedMPS     float64 `yaml:"speed_mps"`
	ClimbRateMPS float64 `yaml:"climb_rate_mps"`
	CommLoss     float64 `yaml:"comm_loss"`
}

// FormationConfig is the root configuration for a formation mission.
type FormationConfig struct {
	MissionID       string          `yaml:"mission_id"`
	TakeoffAlt      float64         `yaml:"takeoff_alt"`
	MinOffset       float64         `yaml:"min_offset"`
	MaxOffset       float64         `yaml:"max_offset"`
	GuidedMode      string          `yaml:"guided_mode"`
	TelemetryRateHz int             `yaml:"telemetry_rate_hz"`
	CycleInterval   time.Duration   `yaml:"cycle_interval"`
	RetryDelay      time.Duration   `yaml:"retry_delay"`
	DescendTimeout  time.Duration   `yaml:"descend_timeout"`
	Reference       ReferenceConfig `yaml:"reference"`
	Vehicles        []VehicleConfig `yaml:"vehicles"`
	Link            LinkConfig      `yaml:"link"`
	Scenario        string          `yaml:"scenario"`
	AdminAddr       string          `yaml:"admin_addr"`
}

// ErrInvalid wraps every cross-field validation failure.
var ErrInvalid = errors.New("invalid formation config")

// Load reads a YAML config, validates it against a CUE schema and applies
// environment overrides and defaults.
func Load(configPath, cueSchemaPath string) (*FormationConfig, error) {
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML and fills defaults without schema validation.
func Parse(data []byte) (*FormationConfig, error) {
	var cfg FormationConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal YAML config: %w", err)
	}
	cfg.setDefaults()
	return &cfg, nil
}

func (c *FormationConfig) setDefaults() {
	if c.MissionID == "" {
		c.MissionID = "formation-" + uuid.NewString()[:8]
	}
	if c.GuidedMode == "" {
		c.GuidedMode = "GUIDED"
	}
	if c.TelemetryRateHz == 0 {
		c.TelemetryRateHz = 10
	}
	if c.CycleInterval == 0 {
		c.CycleInterval = 200 * time.Millisecond
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 200 * time.Millisecond
	}
	if c.Reference.Period == 0 {
		c.Reference.Period = 2 * time.Minute
	}
}

func (c *FormationConfig) applyEnv() error {
	if env := os.Getenv("MISSION_ID"); env != "" {
		c.MissionID = env
	}
	if env := os.Getenv("CYCLE_INTERVAL"); env != "" {
		d, err := time.ParseDuration(env)
		if err != nil {
			return fmt.Errorf("invalid CYCLE_INTERVAL: %w", err)
		}
		c.CycleInterval = d
	}
	if env := os.Getenv("ADMIN_ADDR"); env != "" {
		c.AdminAddr = env
	}
	return nil
}

// Validate checks rules the schema cannot express.
func (c *FormationConfig) Validate() error {
	switch {
	case c.TakeoffAlt <= 0:
		return fmt.Errorf("%w: takeoff_alt must be positive", ErrInvalid)
	case c.MinOffset < 0 || c.MaxOffset < c.MinOffset:
		return fmt.Errorf("%w: need 0 <= min_offset <= max_offset, got %.1f and %.1f", ErrInvalid, c.MinOffset, c.MaxOffset)
	case c.CycleInterval <= 0:
		return fmt.Errorf("%w: cycle_interval must be positive", ErrInvalid)
	case c.DescendTimeout < 0:
		return fmt.Errorf("%w: descend_timeout must not be negative", ErrInvalid)
	case c.Link.CommLoss < 0 || c.Link.CommLoss > 1:
		return fmt.Errorf("%w: comm_loss must be within [0,1]", ErrInvalid)
	case len(c.Vehicles) == 0:
		return fmt.Errorf("%w: at least one vehicle required", ErrInvalid)
	}
	seen := make(map[string]struct{}, len(c.Vehicles))
	for _, v := range c.Vehicles {
		if v.ID == "" {
			return fmt.Errorf("%w: vehicle without id", ErrInvalid)
		}
		if _, ok := seen[v.ID]; ok {
			return fmt.Errorf("%w: duplicate vehicle id %q", ErrInvalid, v.ID)
		}
		seen[v.ID] = struct{}{}
	}
	return nil
}

// Formation returns the controller settings.
func (c *FormationConfig) Formation() formation.Config {
	return formation.Config{
		TakeoffAlt:      c.TakeoffAlt,
		MinOffset:       c.MinOffset,
		MaxOffset:       c.MaxOffset,
		GuidedMode:      c.GuidedMode,
		TelemetryRateHz: c.TelemetryRateHz,
		RetryDelay:      c.RetryDelay,
		DescendTimeout:  c.DescendTimeout,
	}
}

// Circuit returns the simulated reference track.
func (c *FormationConfig) Circuit() reference.Circuit {
	return reference.Circuit{
		Center:  geo.Position{Lat: c.Reference.CenterLat, Lon: c.Reference.CenterLon, Alt: c.Reference.Alt},
		RadiusM: c.Reference.RadiusM,
		Period:  c.Reference.Period,
	}
}

// SimLink returns the simulated link settings.
func (c *FormationConfig) SimLink() vehicle.SimConfig {
	return vehicle.SimConfig{
		SpeedMPS:     c.Link.SpeedMPS,
		ClimbRateMPS: c.Link.ClimbRateMPS,
		CommLoss:     c.Link.CommLoss,
	}
}

// Home returns a vehicle's ground position.
func (v VehicleConfig) Home() geo.Position {
	return geo.Position{Lat: v.HomeLat, Lon: v.HomeLon}
}
