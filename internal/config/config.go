package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/tanksim/internal/dynamo"
)

const (
	DefaultModel      = "watertank"
	DefaultIntegrator = "rk4"
	DefaultController = "pid"
	DefaultDt         = 0.001
	DefaultTotalTime  = 30.0
	DefaultSetpoint   = 0.7
	DefaultTolerance  = 1e-6
	DefaultLogLevel   = "info"
)

type Config struct {
	Model            string                  `yaml:"model"`
	ModelParams      map[string]float64      `yaml:"model_params,omitempty"`
	Integrator       string                  `yaml:"integrator"`
	Controller       string                  `yaml:"controller"`
	ControllerParams map[string]float64      `yaml:"controller_params,omitempty"`
	Dt               float64                 `yaml:"dt"`
	TotalTime        float64                 `yaml:"total_time"`
	X0               float64                 `yaml:"x0"`
	Setpoint         float64                 `yaml:"setpoint"`
	Tolerance        float64                 `yaml:"tolerance"`
	Adaptive         bool                    `yaml:"adaptive"`
	Limits           map[string]BoundsConfig `yaml:"limits,omitempty"`
	LogLevel         string                  `yaml:"log_level"`
}

// BoundsConfig is one saturation limit. A missing side is unbounded.
type BoundsConfig struct {
	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`
}

func (b BoundsConfig) Bounds() dynamo.Bounds {
	var out dynamo.Bounds
	if b.Min != nil {
		out.Min, out.HasMin = *b.Min, true
	}
	if b.Max != nil {
		out.Max, out.HasMax = *b.Max, true
	}
	return out
}

func DefaultConfig() *Config {
	return &Config{
		Model:      DefaultModel,
		Integrator: DefaultIntegrator,
		Controller: DefaultController,
		Dt:         DefaultDt,
		TotalTime:  DefaultTotalTime,
		Setpoint:   DefaultSetpoint,
		Tolerance:  DefaultTolerance,
		LogLevel:   DefaultLogLevel,
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads a YAML file over base, leaving base untouched. Keys the
// file omits keep base's values. Naming a different model or controller
// drops base's parameters for it.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var names struct {
		Model      string `yaml:"model"`
		Controller string `yaml:"controller"`
	}
	if err := yaml.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg := base.Clone()
	if names.Model != "" && names.Model != cfg.Model {
		cfg.ModelParams = nil
	}
	if names.Controller != "" && names.Controller != cfg.Controller {
		cfg.ControllerParams = nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model must be set")
	}
	if c.Integrator == "" {
		return fmt.Errorf("integrator must be set")
	}
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %g", c.Dt)
	}
	if c.TotalTime <= 0 {
		return fmt.Errorf("total_time must be positive, got %g", c.TotalTime)
	}
	if c.Adaptive && c.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive for adaptive stepping, got %g", c.Tolerance)
	}
	for name, b := range c.Limits {
		if _, err := dynamo.ParseQuantity(name); err != nil {
			return fmt.Errorf("limits: %w", err)
		}
		if b.Min != nil && b.Max != nil && *b.Min > *b.Max {
			return fmt.Errorf("limits.%s: min (%g) must not exceed max (%g)", name, *b.Min, *b.Max)
		}
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ApplyLimits overrides the bounds of every configured quantity.
func (c *Config) ApplyLimits(l dynamo.Limits) (dynamo.Limits, error) {
	for name, b := range c.Limits {
		q, err := dynamo.ParseQuantity(name)
		if err != nil {
			return l, err
		}
		l = l.With(q, b.Bounds())
	}
	return l, nil
}

// Clone returns a deep copy, so presets can be modified safely.
func (c *Config) Clone() *Config {
	out := *c
	out.ModelParams = cloneParams(c.ModelParams)
	out.ControllerParams = cloneParams(c.ControllerParams)
	if c.Limits != nil {
		out.Limits = make(map[string]BoundsConfig, len(c.Limits))
		for k, v := range c.Limits {
			out.Limits[k] = v
		}
	}
	return &out
}

func cloneParams(p map[string]float64) map[string]float64 {
	if p == nil {
		return nil
	}
	out := make(map[string]float64, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log_level must be one of: debug, info, warn, error, got %s", s)
}
