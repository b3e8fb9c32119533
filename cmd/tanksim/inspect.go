package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/tanksim/internal/analysis"
	"github.com/san-kum/tanksim/internal/export"
	"github.com/san-kum/tanksim/internal/viz"
)

var (
	outFile    string
	outDir     string
	imgFormat  string
	sampleDt   float64
	showPhase  bool
	showSpectr bool
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tINTEGRATOR\tCONTROLLER\tSETPOINT\tFINAL\tSAMPLES\tTIMESTAMP")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.3f\t%.4f\t%d\t%s\n",
			r.ID, r.Integrator, r.Controller, r.Setpoint, r.FinalState, r.Samples,
			r.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func newPlotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot [run_id|latest]",
		Short: "plot a stored run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotRun,
	}
	addPlotFlags(cmd, viz.DefaultWidth, viz.DefaultHeight)
	return cmd
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, res, err := loadRun(args)
	if err != nil {
		return err
	}
	graph, err := viz.PlotRun(res, meta.Setpoint, plotWidth, plotHeight)
	if err != nil {
		return err
	}
	fmt.Printf("run %s (%s, %s)\n\n", meta.ID, meta.Integrator, meta.Controller)
	fmt.Println(graph)
	return nil
}

// output opens outFile, or stdout when it is unset.
func output() (io.Writer, func() error, error) {
	if outFile == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outFile)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func newExportCSVCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-csv [run_id|latest]",
		Short: "export run samples to CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportCSV,
	}
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")
	return cmd
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, res, err := loadRun(args)
	if err != nil {
		return err
	}
	w, closeFn, err := output()
	if err != nil {
		return err
	}
	if err := export.WriteCSV(w, res); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

func newExportJSONCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-json [run_id|latest]",
		Short: "export a run with its settings to JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportJSON,
	}
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")
	return cmd
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, res, err := loadRun(args)
	if err != nil {
		return err
	}
	w, closeFn, err := output()
	if err != nil {
		return err
	}
	if err := export.WriteJSON(w, meta.Header(), res); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

func newExportPNGCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-png [run_id|latest]",
		Short: "render level, error and action plots to image files",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportPlots,
	}
	cmd.Flags().StringVar(&outDir, "dir", ".", "output directory")
	cmd.Flags().StringVar(&imgFormat, "format", "png", "image format (png, svg, pdf)")
	return cmd
}

func exportPlots(cmd *cobra.Command, args []string) error {
	meta, res, err := loadRun(args)
	if err != nil {
		return err
	}
	paths, err := export.SavePlots(outDir, meta.ID, imgFormat, res, meta.Setpoint)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [run_id|latest]",
		Short: "step response, oscillation and spectrum of a stored run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  analyzeRun,
	}
	addPlotFlags(cmd, 60, 15)
	cmd.Flags().Float64Var(&sampleDt, "sample-dt", 0.01, "resampling interval for the spectrum")
	cmd.Flags().BoolVar(&showPhase, "phase", false, "draw the level phase portrait")
	cmd.Flags().BoolVar(&showSpectr, "spectrum", false, "plot the tracking error power spectrum")
	return cmd
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, res, err := loadRun(args)
	if err != nil {
		return err
	}
	if sampleDt <= 0 {
		return fmt.Errorf("--sample-dt must be positive, got %g", sampleDt)
	}

	fmt.Printf("run %s: %d samples over %.2f s\n", meta.ID, res.Len(), res.Duration())
	printStepResponse(res, meta.Setpoint)

	fmt.Println("\noscillation:")
	if period := analysis.CyclePeriod(res, meta.Setpoint); period > 0 {
		fmt.Printf("  cycle period:       %.4f s\n", period)
	} else {
		fmt.Println("  cycle period:       none")
	}
	if freq, ok := analysis.DominantFrequency(res, sampleDt); ok {
		fmt.Printf("  dominant frequency: %.4f Hz\n", freq)
	} else {
		fmt.Println("  dominant frequency: none")
	}

	if showSpectr {
		_, _, errs := analysis.Resample(res, sampleDt)
		graph, err := viz.Spectrum(analysis.PowerSpectrum(errs), plotWidth, plotHeight)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Println(graph)
	}
	if showPhase {
		fmt.Println("\nphase portrait (level vs rate):")
		fmt.Println(analysis.PhasePortraitToASCII(analysis.NewPhasePortrait(res), plotWidth, plotHeight))
	}
	return nil
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [run_id]",
		Short: "delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			if err := st.Delete(args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted %s\n", args[0])
			return nil
		},
	}
}
