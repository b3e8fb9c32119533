package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/tanksim/internal/analysis"
	"github.com/san-kum/tanksim/internal/config"
	"github.com/san-kum/tanksim/internal/control"
	"github.com/san-kum/tanksim/internal/dynamo"
	"github.com/san-kum/tanksim/internal/experiment"
	"github.com/san-kum/tanksim/internal/sim"
	"github.com/san-kum/tanksim/internal/storage"
	"github.com/san-kum/tanksim/internal/telemetry"
	"github.com/san-kum/tanksim/internal/tui"
	"github.com/san-kum/tanksim/internal/viz"
)

var (
	metricsFile string
	showPlot    bool
	quiet       bool

	speed       float64
	theme       string
	manual      bool
	metricsAddr string
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation and store the results",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addSimFlags(cmd)
	addPlotFlags(cmd, viz.DefaultWidth, viz.DefaultHeight)
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write prometheus metrics to this textfile")
	cmd.Flags().BoolVar(&showPlot, "plot", false, "plot the run after it completes")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not report progress")
	return cmd
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	st, err := openStore()
	if err != nil {
		return err
	}

	rec := telemetry.NewRecorder()
	opts := []sim.Option{
		sim.WithLogger(logger),
		sim.WithObserver(rec.RunObserver()),
	}
	if !quiet {
		opts = append(opts,
			sim.WithProgress(func(pct int) { fmt.Fprintf(os.Stderr, "\rrunning %3d%%", pct) }),
			sim.WithCompletion(func(*dynamo.Results) { fmt.Fprintln(os.Stderr) }),
		)
	}

	exp, err := experiment.New(registry, cfg, opts...)
	if err != nil {
		return err
	}
	exp.WrapController(rec.InstrumentController)

	start := time.Now()
	res, err := exp.Run(cmd.Context())
	elapsed := time.Since(start)
	rec.ObserveRun(res, err, elapsed)
	if metricsFile != "" {
		if werr := rec.WriteToTextfile(metricsFile); werr != nil {
			logger.Warn("failed to write metrics", "path", metricsFile, "error", werr)
		}
	}
	if err != nil {
		return err
	}

	runID, err := st.Save(storage.NewMetadata(cfg, res), res)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("samples: %d\n", res.Len())
	fmt.Printf("final level: %.6f (setpoint %.3f)\n", res.Final().State, cfg.Setpoint)
	printMetrics(res)
	printStepResponse(res, cfg.Setpoint)

	if showPlot {
		graph, err := viz.PlotRun(res, cfg.Setpoint, plotWidth, plotHeight)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Println(graph)
	}
	return nil
}

func printMetrics(res *dynamo.Results) {
	names := res.MetricNames()
	if len(names) == 0 {
		return
	}
	fmt.Println("\nmetrics:")
	for _, name := range names {
		v, _ := res.Metric(name)
		fmt.Printf("  %s: %.6f\n", name, v)
	}
}

func printStepResponse(res *dynamo.Results, sp float64) {
	m, err := analysis.StepResponse(res, sp)
	if err != nil {
		return
	}
	fmt.Println("\nstep response:")
	fmt.Printf("  rise time:     %.3f s\n", m.RiseTime)
	fmt.Printf("  peak:          %.4f at %.3f s\n", m.Peak, m.PeakTime)
	fmt.Printf("  overshoot:     %.2f%%\n", m.Overshoot)
	if m.Settled {
		fmt.Printf("  settling time: %.3f s\n", m.SettlingTime)
	} else {
		fmt.Println("  settling time: not settled")
	}
	fmt.Printf("  steady error:  %.6f\n", m.SteadyStateError)
}

func newLiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "live",
		Short: "run a simulation with a live terminal view and playback",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addSimFlags(cmd)
	cmd.Flags().Float64Var(&speed, "speed", 1, "playback speed")
	cmd.Flags().StringVar(&theme, "theme", "", fmt.Sprintf("color theme %v", viz.ThemeNames()))
	cmd.Flags().BoolVar(&manual, "manual", false, "set the valve opening from the keyboard, n starts a run with it")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	return cmd
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	sys, err := registry.GetModel(cfg.Model, cfg.ModelParams)
	if err != nil {
		return err
	}
	capacity := 1.0
	if b := sys.Limits().For(dynamo.QuantityState); b.HasMax {
		capacity = b.Max
	}

	var valve *control.Manual
	if manual {
		ts := 0.1
		if v, ok := cfg.ControllerParams["ts"]; ok && v > 0 {
			ts = v
		}
		valve = control.NewManual(ts)
	}

	rec := telemetry.NewRecorder()
	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: rec.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fmt.Fprintln(os.Stderr, "metrics server:", err)
			}
		}()
		defer srv.Close()
	}

	run := liveRunner(cfg, rec, valve)
	m := tui.New(run, tui.Options{
		Title:    fmt.Sprintf("%s / %s / %s", cfg.Model, cfg.Integrator, cfg.Controller),
		Setpoint: cfg.Setpoint,
		Capacity: capacity,
		Speed:    speed,
		Theme:    theme,
		Manual:   valve,
	})
	return tui.Run(m)
}

// liveRunner builds a fresh experiment per run, so a retry from the
// terminal view starts from a clean controller.
func liveRunner(cfg *config.Config, rec *telemetry.Recorder, valve *control.Manual) tui.Runner {
	// stderr belongs to the terminal view
	logger := slog.New(slog.DiscardHandler)
	return func(ctx context.Context, opts ...sim.Option) (*dynamo.Results, error) {
		opts = append([]sim.Option{sim.WithLogger(logger), sim.WithObserver(rec.RunObserver())}, opts...)
		exp, err := experiment.New(registry, cfg, opts...)
		if err != nil {
			return nil, err
		}
		if valve != nil {
			exp.WrapController(func(dynamo.Controller) dynamo.Controller { return valve })
		}
		exp.WrapController(rec.InstrumentController)

		start := time.Now()
		res, err := exp.Run(ctx)
		rec.ObserveRun(res, err, time.Since(start))
		return res, err
	}
}
