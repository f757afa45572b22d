// Package config loads exposure-control settings from a YAML file.
package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/ironsheep/exposure-control/internal/camera"
	"github.com/ironsheep/exposure-control/internal/exposure"
	"github.com/ironsheep/exposure-control/internal/imaging"
)

// Config is the full configuration. Zero-valued sections in a file keep their
// defaults because the file is decoded over Default().
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Controller holds the PI gains and limits.
	Controller exposure.Params `yaml:"controller"`

	// ConvergenceCycles is the number of identical EVs that ends a session.
	ConvergenceCycles int `yaml:"convergence_cycles"`

	// MaxCycles bounds a session; zero means unbounded.
	MaxCycles int `yaml:"max_cycles"`

	// Region is the metering region name.
	Region string `yaml:"region"`

	Dataset Dataset `yaml:"dataset"`
}

// Dataset configures the file-backed camera simulator.
type Dataset struct {
	Pattern    string  `yaml:"pattern"`
	StartEV    float64 `yaml:"start_ev"`
	BaseEV     float64 `yaml:"base_ev"`
	EVStep     float64 `yaml:"ev_step"`
	MissPolicy string  `yaml:"miss_policy"`
}

// Default returns the reference configuration.
func Default() *Config {
	return &Config{
		LogLevel:          "info",
		Controller:        exposure.DefaultParams(),
		ConvergenceCycles: exposure.DefaultConvergenceCycles,
		Region:            string(imaging.RegionFull),
		Dataset: Dataset{
			StartEV:    1.3,
			BaseEV:     camera.DefaultBaseEV,
			EVStep:     camera.DefaultEVStep,
			MissPolicy: string(camera.MissFail),
		},
	}
}

// Load reads a YAML file over the defaults and validates the result. Unknown
// keys are rejected.
func Load(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(buf)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(buf []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalStrict(buf, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	if err := c.Controller.Validate(); err != nil {
		return err
	}
	if c.ConvergenceCycles < 1 {
		return fmt.Errorf("convergence_cycles must be at least 1, got %d", c.ConvergenceCycles)
	}
	if c.MaxCycles < 0 {
		return fmt.Errorf("max_cycles must not be negative, got %d", c.MaxCycles)
	}
	if _, err := imaging.ParseRegion(c.Region); err != nil {
		return err
	}
	if _, err := camera.ParseMissPolicy(c.Dataset.MissPolicy); err != nil {
		return err
	}
	if !finite(c.Dataset.StartEV) || !finite(c.Dataset.BaseEV) {
		return fmt.Errorf("dataset EVs must be finite")
	}
	if !finite(c.Dataset.EVStep) || c.Dataset.EVStep <= 0 {
		return fmt.Errorf("dataset ev_step must be positive, got %v", c.Dataset.EVStep)
	}
	return nil
}

// MeteringRegion returns the parsed metering region.
func (c *Config) MeteringRegion() imaging.Region {
	r, _ := imaging.ParseRegion(c.Region)
	return r
}

// DatasetOptions returns the camera options the dataset section describes.
func (c *Config) DatasetOptions() []camera.DatasetOption {
	policy, _ := camera.ParseMissPolicy(c.Dataset.MissPolicy)
	return []camera.DatasetOption{
		camera.WithGrid(c.Dataset.BaseEV, c.Dataset.EVStep),
		camera.WithMissPolicy(policy),
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
