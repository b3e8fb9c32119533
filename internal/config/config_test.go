package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/tanksim/internal/dynamo"
)

func createTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tanksim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "watertank", cfg.Model)
	assert.Equal(t, "pid", cfg.Controller)
	assert.Equal(t, 0.7, cfg.Setpoint)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ValidFile(t *testing.T) {
	// Arrange
	path := createTempConfig(t, `
model: watertank
model_params:
  max_height: 2
integrator: rk45
controller: onoffhold
controller_params:
  ts: 0.2
  r: 0.1
dt: 0.01
total_time: 12
x0: 0.3
setpoint: 1.2
tolerance: 1.0e-7
adaptive: true
limits:
  action:
    min: 0
    max: 0.8
  derivative:
    max: 0.5
log_level: debug
`)

	// Act
	cfg, err := Load(path)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2.0, cfg.ModelParams["max_height"])
	assert.Equal(t, "onoffhold", cfg.Controller)
	assert.Equal(t, 0.2, cfg.ControllerParams["ts"])
	assert.Equal(t, 12.0, cfg.TotalTime)
	assert.Equal(t, 1e-7, cfg.Tolerance)
	assert.True(t, cfg.Adaptive)

	limits, err := cfg.ApplyLimits(dynamo.Limits{State: dynamo.Between(0, 2)})
	require.NoError(t, err)
	assert.Equal(t, dynamo.Between(0, 0.8), limits.Action)
	assert.Equal(t, dynamo.AtMost(0.5), limits.Derivative)
	assert.Equal(t, dynamo.Between(0, 2), limits.State, "unconfigured limits are kept")
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := createTempConfig(t, "setpoint: 0.4\n")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 0.4, cfg.Setpoint)
	assert.Equal(t, DefaultDt, cfg.Dt)
	assert.Equal(t, DefaultIntegrator, cfg.Integrator)
}

func TestLoadOver_KeepsBaseValues(t *testing.T) {
	base := GetPreset("on-off-hold")
	path := createTempConfig(t, "setpoint: 0.5\ncontroller_params:\n  r: 0.2\n")

	cfg, err := LoadOver(path, base)

	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Setpoint)
	assert.Equal(t, "onoffhold", cfg.Controller)
	assert.Equal(t, 30.0, cfg.TotalTime)
	assert.Equal(t, map[string]float64{"ts": 0.1, "r": 0.2}, cfg.ControllerParams)
	assert.Equal(t, 0.1, base.ControllerParams["r"], "base is not modified")
}

func TestLoadOver_NewControllerDropsParams(t *testing.T) {
	base := GetPreset("open-loop")
	path := createTempConfig(t, "controller: onoff\n")

	cfg, err := LoadOver(path, base)

	require.NoError(t, err)
	assert.Equal(t, "onoff", cfg.Controller)
	assert.Nil(t, cfg.ControllerParams)
	assert.Equal(t, 60.0, cfg.TotalTime)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad yaml", "dt: [1, 2", "failed to parse config file"},
		{"negative dt", "dt: -0.1", "dt must be positive"},
		{"zero total time", "total_time: 0", "total_time must be positive"},
		{"adaptive without tolerance", "adaptive: true\ntolerance: 0", "tolerance must be positive"},
		{"unknown limit", "limits:\n  pressure:\n    max: 1", "unknown quantity"},
		{"inverted limit", "limits:\n  state:\n    min: 2\n    max: 1", "must not exceed"},
		{"bad log level", "log_level: loud", "log_level must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(createTempConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := GetPreset("drain")
	require.NotNil(t, cfg)

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("pid")
	require.NotNil(t, cfg)
	assert.Equal(t, 8.0, cfg.ControllerParams["kp"])

	cfg.ControllerParams["kp"] = 100
	assert.Equal(t, 8.0, GetPreset("pid").ControllerParams["kp"], "preset returned a shared map")

	assert.Nil(t, GetPreset("nonexistent"))
}

func TestPresetsAreValid(t *testing.T) {
	for _, name := range ListPresets() {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, GetPreset(name).Validate())
		})
	}
}

func TestListPresets(t *testing.T) {
	assert.Equal(t, []string{"drain", "on-off", "on-off-hold", "open-loop", "pid", "pid-adaptive"}, ListPresets())
}

func TestParseLogLevel(t *testing.T) {
	lvl, err := ParseLogLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)

	_, err = ParseLogLevel("verbose")
	assert.Error(t, err)
}
