package main

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/tanksim/internal/analysis"
	"github.com/san-kum/tanksim/internal/automation"
	"github.com/san-kum/tanksim/internal/config"
	"github.com/san-kum/tanksim/internal/dynamo"
	"github.com/san-kum/tanksim/internal/experiment"
	"github.com/san-kum/tanksim/internal/optim"
	"github.com/san-kum/tanksim/internal/sim"
	"github.com/san-kum/tanksim/internal/viz"
)

var (
	compareBy string

	axes       []string
	metric     string
	workers    int
	topN       int
	saveConfig string

	sweepTarget string
	sweepMin    float64
	sweepMax    float64
	sweepSteps  int
	bifurcation bool
	tail        float64
	resolution  float64

	saveRuns bool
)

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [name] [name] ...",
		Short: "compare integrators, controllers or presets on the same configuration",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compareRuns,
	}
	addSimFlags(cmd)
	addPlotFlags(cmd, viz.DefaultWidth, viz.DefaultHeight)
	cmd.Flags().StringVar(&compareBy, "by", "integrator", "what the names select (integrator, controller, preset)")
	return cmd
}

func compareRuns(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(base)

	configs := make([]*config.Config, len(args))
	for i, name := range args {
		var cfg *config.Config
		switch compareBy {
		case "integrator":
			cfg = base.Clone()
			cfg.Integrator = name
		case "controller":
			cfg = base.Clone()
			cfg.Controller = name
			cfg.ControllerParams = nil
		case "preset":
			cfg = config.GetPreset(name)
			if cfg == nil {
				return fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
			}
		default:
			return fmt.Errorf("--by must be integrator, controller or preset, got %q", compareBy)
		}
		configs[i] = cfg
	}

	runs := make([]viz.Series, len(args))
	g, ctx := errgroup.WithContext(cmd.Context())
	for i, cfg := range configs {
		g.Go(func() error {
			exp, err := experiment.New(registry, cfg, sim.WithLogger(logger.With("run", args[i])))
			if err != nil {
				return fmt.Errorf("%s: %w", args[i], err)
			}
			res, err := exp.Run(ctx)
			if err != nil {
				return fmt.Errorf("%s: %w", args[i], err)
			}
			runs[i] = viz.Series{Name: args[i], Results: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSAMPLES\tFINAL\tIAE\tOVERSHOOT\tSETTLING")
	for i, r := range runs {
		iae, _ := r.Results.Metric("iae")
		resp, err := analysis.StepResponse(r.Results, configs[i].Setpoint)
		settling := "-"
		overshoot := "-"
		if err == nil {
			overshoot = fmt.Sprintf("%.2f%%", resp.Overshoot)
			if resp.Settled {
				settling = fmt.Sprintf("%.3fs", resp.SettlingTime)
			}
		}
		fmt.Fprintf(w, "%s\t%d\t%.4f\t%.4f\t%s\t%s\n",
			r.Name, r.Results.Len(), r.Results.Final().State, iae, overshoot, settling)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	graph, err := viz.Compare(runs, plotWidth, plotHeight)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(graph)
	return nil
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list preset configurations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tINTEGRATOR\tCONTROLLER\tSETPOINT\tTIME\tADAPTIVE")
			for _, name := range config.ListPresets() {
				p := config.Presets[name]
				fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%gs\t%t\n",
					name, p.Integrator, p.Controller, p.Setpoint, p.TotalTime, p.Adaptive)
			}
			return w.Flush()
		},
	}
}

func newCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "list models, integrators and controllers with their parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "models:")
			for _, name := range registry.ListModels() {
				spec, _ := registry.Model(name)
				fmt.Fprintf(w, "  %s\t%s\n", name, spec.Help)
				writeFields(w, spec.Fields)
			}
			fmt.Fprintln(w, "\nintegrators:")
			for _, name := range registry.ListIntegrators() {
				fmt.Fprintf(w, "  %s\n", name)
			}
			fmt.Fprintln(w, "\ncontrollers:")
			for _, name := range registry.ListControllers() {
				spec, _ := registry.Controller(name)
				fmt.Fprintf(w, "  %s\t%s\n", name, spec.Help)
				writeFields(w, spec.Fields)
			}
			return w.Flush()
		},
	}
}

func writeFields(w *tabwriter.Writer, fields []dynamo.Param) {
	for _, f := range fields {
		fmt.Fprintf(w, "    %s\t%g\t%s\n", f.Name, f.Default, f.Help)
	}
}

func newTuneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search controller parameters",
		Args:  cobra.NoArgs,
		RunE:  tuneController,
	}
	addSimFlags(cmd)
	cmd.Flags().StringArrayVar(&axes, "axis", nil, "parameter range, name=lo:hi:n or name=v1,v2,...")
	cmd.Flags().StringVar(&metric, "metric", "iae", "metric to minimise")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent runs (default GOMAXPROCS)")
	cmd.Flags().IntVar(&topN, "top", 5, "candidates to print")
	cmd.Flags().StringVar(&saveConfig, "save-config", "", "write the tuned configuration to this file")
	_ = cmd.MarkFlagRequired("axis")
	return cmd
}

// parseAxis reads "kp=0.5:8:5" as five values from 0.5 to 8, or
// "kp=1,2,4" as an explicit list.
func parseAxis(s string) (optim.Axis, error) {
	name, spec, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return optim.Axis{}, fmt.Errorf("axis %q: want name=lo:hi:n or name=v1,v2", s)
	}

	if parts := strings.Split(spec, ":"); len(parts) == 3 {
		lo, err1 := strconv.ParseFloat(parts[0], 64)
		hi, err2 := strconv.ParseFloat(parts[1], 64)
		n, err3 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || err3 != nil || n < 1 {
			return optim.Axis{}, fmt.Errorf("axis %q: bad range", s)
		}
		return optim.Axis{Name: name, Values: optim.Linspace(lo, hi, n)}, nil
	}

	var values []float64
	for _, p := range strings.Split(spec, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return optim.Axis{}, fmt.Errorf("axis %q: %w", s, err)
		}
		values = append(values, v)
	}
	return optim.Axis{Name: name, Values: values}, nil
}

func tuneController(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	parsed := make([]optim.Axis, 0, len(axes))
	for _, a := range axes {
		axis, err := parseAxis(a)
		if err != nil {
			return err
		}
		parsed = append(parsed, axis)
	}

	grid := optim.NewGridSearch(parsed...)
	logger.Info("grid search", "controller", cfg.Controller, "candidates", len(grid.Candidates()), "metric", metric)
	out, err := grid.Search(cmd.Context(), registry, cfg, metric, workers)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "RANK\tPARAMS\t%s\n", strings.ToUpper(metric))
	for i, c := range out.Candidates[:min(max(topN, 0), len(out.Candidates))] {
		fmt.Fprintf(w, "%d\t%s\t%.6f\n", i+1, formatParams(c.Params), c.Score)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if saveConfig != "" {
		tuned := cfg.Clone()
		if tuned.ControllerParams == nil {
			tuned.ControllerParams = map[string]float64{}
		}
		for k, v := range out.Best.Params {
			tuned.ControllerParams[k] = v
		}
		if err := config.Save(saveConfig, tuned); err != nil {
			return err
		}
		fmt.Printf("\nsaved %s\n", saveConfig)
	}
	return nil
}

func formatParams(p map[string]float64) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%g", k, p[k])
	}
	return strings.Join(parts, " ")
}

func newScenarioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of simulations",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	cmd.Flags().BoolVar(&saveRuns, "save", true, "store every step as a run")
	return cmd
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	r := automation.NewRunner(registry, newLogger(nil))
	if saveRuns {
		st, err := openStore()
		if err != nil {
			return err
		}
		r.Store = st
	}

	out, err := r.RunScenario(cmd.Context(), sc)
	if len(out) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STEP\tRUN\tCONTROLLER\tSETPOINT\tFINAL\tIAE")
		for _, s := range out {
			iae, _ := s.Results.Metric("iae")
			id := s.RunID
			if id == "" {
				id = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%.3f\t%.4f\t%.4f\n",
				s.Name, id, s.Config.Controller, s.Config.Setpoint, s.Results.Final().State, iae)
		}
		if ferr := w.Flush(); ferr != nil && err == nil {
			err = ferr
		}
	}
	return err
}

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "sweep one setting across a range",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addSimFlags(cmd)
	addPlotFlags(cmd, 60, 15)
	cmd.Flags().StringVar(&sweepTarget, "target", "setpoint", "setpoint, x0, dt, total_time, tolerance, controller.<name> or model.<name>")
	cmd.Flags().Float64Var(&sweepMin, "min", 0.2, "first value")
	cmd.Flags().Float64Var(&sweepMax, "max", 0.9, "last value")
	cmd.Flags().IntVar(&sweepSteps, "steps", 8, "number of values")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent runs (default unlimited)")
	cmd.Flags().BoolVar(&bifurcation, "bifurcation", false, "draw the level extrema of each run's tail")
	cmd.Flags().Float64Var(&tail, "tail", 0.5, "fraction of each run used for the bifurcation diagram")
	cmd.Flags().Float64Var(&resolution, "resolution", 1e-3, "extrema closer than this are merged")
	return cmd
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if sweepSteps < 1 {
		return fmt.Errorf("--steps must be at least 1, got %d", sweepSteps)
	}
	r := automation.NewRunner(registry, newLogger(cfg))
	s := automation.Sweep{Target: sweepTarget, Min: sweepMin, Max: sweepMax, Steps: sweepSteps, Workers: workers}

	if bifurcation {
		points, err := r.Bifurcation(cmd.Context(), cfg, s, tail, resolution)
		if err != nil {
			return err
		}
		fmt.Printf("%s from %g to %g\n\n", sweepTarget, sweepMin, sweepMax)
		fmt.Println(analysis.BifurcationToASCII(points, plotWidth, plotHeight))
		return nil
	}

	out, err := r.RunSweep(cmd.Context(), cfg, s)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tFINAL\tIAE\tOVERSHOOT\tSETTLING\n", strings.ToUpper(sweepTarget))
	for _, p := range out {
		fmt.Fprintf(w, "%g\t%.4f\t%.4f\t%s\t%s\n",
			p.Value, p.Final.State, p.Metrics["iae"], formatNaN(p.Response.Overshoot, "%.2f%%"), formatNaN(p.Response.SettlingTime, "%.3fs"))
	}
	return w.Flush()
}

func formatNaN(v float64, format string) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf(format, v)
}
