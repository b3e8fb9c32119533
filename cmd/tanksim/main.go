package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/san-kum/tanksim/internal/config"
	"github.com/san-kum/tanksim/internal/dynamo"
	"github.com/san-kum/tanksim/internal/experiment"
	"github.com/san-kum/tanksim/internal/storage"
)

var (
	dataDir  string
	logLevel string

	configFile  string
	preset      string
	model       string
	integrator  string
	controller  string
	dt          float64
	totalTime   float64
	x0          float64
	setpoint    float64
	tolerance   float64
	adaptive    bool
	params      map[string]string
	modelParams map[string]string

	plotWidth  int
	plotHeight int
)

var registry = experiment.NewRegistry()

func main() {
	rootCmd := &cobra.Command{
		Use:           "tanksim",
		Short:         "water tank level control simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".tanksim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newRunCmd(),
		newLiveCmd(),
		newListCmd(),
		newPlotCmd(),
		newExportCSVCmd(),
		newExportJSONCmd(),
		newExportPNGCmd(),
		newAnalyzeCmd(),
		newDeleteCmd(),
		newCompareCmd(),
		newPresetsCmd(),
		newCatalogCmd(),
		newTuneCmd(),
		newScenarioCmd(),
		newSweepCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// addSimFlags registers the flags that describe one simulation.
func addSimFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "start from a preset configuration")
	f.StringVar(&model, "model", config.DefaultModel, "plant model")
	f.StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator (euler, rk4, rk45)")
	f.StringVar(&controller, "controller", config.DefaultController, "controller")
	f.Float64Var(&dt, "dt", config.DefaultDt, "time step in seconds")
	f.Float64Var(&totalTime, "time", config.DefaultTotalTime, "simulated duration in seconds")
	f.Float64Var(&x0, "x0", 0, "initial level")
	f.Float64Var(&setpoint, "setpoint", config.DefaultSetpoint, "target level")
	f.Float64Var(&tolerance, "tolerance", config.DefaultTolerance, "adaptive step tolerance")
	f.BoolVar(&adaptive, "adaptive", false, "use adaptive step size control")
	f.StringToStringVar(&params, "param", nil, "controller parameter, name=value")
	f.StringToStringVar(&modelParams, "model-param", nil, "model parameter, name=value")
}

func addPlotFlags(cmd *cobra.Command, width, height int) {
	cmd.Flags().IntVar(&plotWidth, "width", width, "plot width in columns")
	cmd.Flags().IntVar(&plotHeight, "height", height, "plot height in rows")
}

// resolveConfig layers defaults, a preset, a config file and finally any
// flag set on the command line.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	f := cmd.Flags()
	if f.Changed("model") {
		cfg.Model = model
	}
	if f.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if f.Changed("controller") {
		cfg.Controller = controller
	}
	if f.Changed("dt") {
		cfg.Dt = dt
	}
	if f.Changed("time") {
		cfg.TotalTime = totalTime
	}
	if f.Changed("x0") {
		cfg.X0 = x0
	}
	if f.Changed("setpoint") {
		cfg.Setpoint = setpoint
	}
	if f.Changed("tolerance") {
		cfg.Tolerance = tolerance
	}
	if f.Changed("adaptive") {
		cfg.Adaptive = adaptive
	}
	if f.Changed("log-level") {
		cfg.LogLevel = logLevel
	}

	var err error
	if cfg.ControllerParams, err = mergeParams(cfg.ControllerParams, params); err != nil {
		return nil, fmt.Errorf("--param: %w", err)
	}
	if cfg.ModelParams, err = mergeParams(cfg.ModelParams, modelParams); err != nil {
		return nil, fmt.Errorf("--model-param: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mergeParams(dst map[string]float64, raw map[string]string) (map[string]float64, error) {
	if len(raw) == 0 {
		return dst, nil
	}
	if dst == nil {
		dst = make(map[string]float64, len(raw))
	}
	for name, s := range raw {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		dst[name] = v
	}
	return dst, nil
}

// newLogger writes text logs to stderr. The --log-level flag wins over the
// configured level.
func newLogger(cfg *config.Config) *slog.Logger {
	name := logLevel
	if name == "" && cfg != nil {
		name = cfg.LogLevel
	}
	level, err := config.ParseLogLevel(name)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func openStore() (*storage.Store, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return st, nil
}

// loadRun resolves a run id, or the most recent run when args is empty or
// names "latest".
func loadRun(args []string) (*storage.RunMetadata, *dynamo.Results, error) {
	st, err := openStore()
	if err != nil {
		return nil, nil, err
	}

	var meta *storage.RunMetadata
	if len(args) == 0 || args[0] == "latest" {
		meta, err = st.Latest()
	} else {
		meta, err = st.Load(args[0])
	}
	if err != nil {
		return nil, nil, err
	}

	res, err := st.LoadResults(meta.ID)
	if err != nil {
		return nil, nil, err
	}
	return meta, res, nil
}
