package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/exposure-control/internal/exposure"
	"github.com/ironsheep/exposure-control/internal/imaging"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, exposure.DefaultParams(), cfg.Controller)
	assert.Equal(t, 10, cfg.ConvergenceCycles)
	assert.Equal(t, 1.3, cfg.Dataset.StartEV)
	assert.Equal(t, -1.5, cfg.Dataset.BaseEV)
	assert.Equal(t, 0.03, cfg.Dataset.EVStep)
	assert.Equal(t, imaging.RegionFull, cfg.MeteringRegion())
	assert.Len(t, cfg.DatasetOptions(), 2)
}

func TestParse_OverridesKeepDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
log_level: debug
controller:
  kp: 0.1
  deadband: 0.25
max_cycles: 200
region: center
dataset:
  pattern: images/144550/*
  miss_policy: nearest
`))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 0.1, cfg.Controller.KP)
	assert.Equal(t, 0.25, cfg.Controller.Deadband)
	assert.Equal(t, exposure.DefaultKI, cfg.Controller.KI)
	assert.Equal(t, exposure.DefaultDesiredMSV, cfg.Controller.DesiredMSV)
	assert.Equal(t, 200, cfg.MaxCycles)
	assert.Equal(t, imaging.RegionCenter, cfg.MeteringRegion())
	assert.Equal(t, "images/144550/*", cfg.Dataset.Pattern)
	assert.Equal(t, "nearest", cfg.Dataset.MissPolicy)
	assert.Equal(t, 0.03, cfg.Dataset.EVStep)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "gain: 3\n"},
		{"bad yaml", "controller: [\n"},
		{"negative gain", "controller:\n  ki: -0.01\n"},
		{"zero convergence", "convergence_cycles: 0\n"},
		{"negative max cycles", "max_cycles: -1\n"},
		{"unknown region", "region: spot\n"},
		{"unknown miss policy", "dataset:\n  miss_policy: clamp\n"},
		{"zero step", "dataset:\n  ev_step: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exposure.yml")
	require.NoError(t, os.WriteFile(path, []byte("convergence_cycles: 4\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.ConvergenceCycles)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
}
