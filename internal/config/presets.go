package config

import "sort"

func ptr(v float64) *float64 { return &v }

var Presets = map[string]*Config{
	"pid": {
		Model: DefaultModel, Integrator: "rk4", Controller: "pid",
		Dt: 0.001, TotalTime: 30, Setpoint: 0.7,
		ControllerParams: map[string]float64{"ts": 0.1, "kp": 8, "ki": 1, "kv": 0.1},
	},
	"pid-adaptive": {
		Model: DefaultModel, Integrator: "rk45", Controller: "pid",
		Dt: 0.001, TotalTime: 30, Setpoint: 0.7, Tolerance: 1e-6, Adaptive: true,
		ControllerParams: map[string]float64{"ts": 0.1, "kp": 8, "ki": 1, "kv": 0.1},
	},
	"on-off": {
		Model: DefaultModel, Integrator: "rk4", Controller: "onoff",
		Dt: 0.001, TotalTime: 30, Setpoint: 0.7,
		ControllerParams: map[string]float64{"ts": 0.1},
	},
	"on-off-hold": {
		Model: DefaultModel, Integrator: "rk4", Controller: "onoffhold",
		Dt: 0.001, TotalTime: 30, Setpoint: 0.7,
		ControllerParams: map[string]float64{"ts": 0.1, "r": 0.1},
	},
	"open-loop": {
		Model: DefaultModel, Integrator: "rk4", Controller: "constant",
		Dt: 0.01, TotalTime: 60, Setpoint: 0.7,
		ControllerParams: map[string]float64{"ts": 0.1, "u": 0.5},
	},
	"drain": {
		Model: DefaultModel, Integrator: "rk45", Controller: "none",
		Dt: 0.01, TotalTime: 15, X0: 1, Setpoint: 0, Tolerance: 1e-6, Adaptive: true,
		Limits: map[string]BoundsConfig{"step": {Min: ptr(1e-6), Max: ptr(0.5)}},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	out := cfg.Clone()
	if out.LogLevel == "" {
		out.LogLevel = DefaultLogLevel
	}
	return out
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
