package viz

import (
	"errors"
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/tanksim/internal/analysis"
	"github.com/san-kum/tanksim/internal/dynamo"
)

const (
	DefaultWidth  = 80
	DefaultHeight = 12
)

var ErrNoData = errors.New("viz: no data to plot")

var palette = []asciigraph.AnsiColor{
	asciigraph.Blue,
	asciigraph.Red,
	asciigraph.Green,
	asciigraph.Yellow,
	asciigraph.Magenta,
	asciigraph.Cyan,
}

// Series is one named run of a comparison plot.
type Series struct {
	Name    string
	Results *dynamo.Results
}

// PlotLevel draws the tank level against a flat setpoint line.
func PlotLevel(res *dynamo.Results, setpoint float64, width, height int) (string, error) {
	if res.Len() == 0 {
		return "", ErrNoData
	}
	states := res.States()
	sp := make([]float64, len(states))
	for i := range sp {
		sp[i] = setpoint
	}
	return asciigraph.PlotMany([][]float64{states, sp},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(palette[0], palette[1]),
		asciigraph.SeriesLegends("level", "setpoint"),
		asciigraph.Caption(fmt.Sprintf("tank level over %.2fs", res.Duration())),
	), nil
}

func PlotSeries(values []float64, caption string, width, height int) (string, error) {
	if len(values) == 0 {
		return "", ErrNoData
	}
	return asciigraph.Plot(values,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	), nil
}

// PlotRun draws the level, tracking error and control action of a run.
func PlotRun(res *dynamo.Results, setpoint float64, width, height int) (string, error) {
	level, err := PlotLevel(res, setpoint, width, height)
	if err != nil {
		return "", err
	}
	errs, err := PlotSeries(res.TrackingErrors(), "tracking error", width, height/2)
	if err != nil {
		return "", err
	}
	action, err := PlotSeries(res.Actions(), "control action", width, height/2)
	if err != nil {
		return "", err
	}
	return strings.Join([]string{level, errs, action}, "\n\n"), nil
}

// Compare overlays the levels of several runs on one time axis. Each run is
// resampled onto the same uniform grid, so a shorter run ends early instead
// of being stretched.
func Compare(runs []Series, width, height int) (string, error) {
	if len(runs) == 0 {
		return "", ErrNoData
	}
	longest := 0.0
	for _, r := range runs {
		if r.Results == nil || r.Results.Len() < 2 {
			return "", fmt.Errorf("%w: run %q", ErrNoData, r.Name)
		}
		longest = max(longest, r.Results.Duration())
	}
	if longest <= 0 {
		return "", ErrNoData
	}

	dt := longest / float64(width-1)
	data := make([][]float64, len(runs))
	names := make([]string, len(runs))
	colors := make([]asciigraph.AnsiColor, len(runs))
	for i, r := range runs {
		_, states, _ := analysis.Resample(r.Results, dt)
		if len(states) > width {
			states = states[:width]
		}
		data[i] = states
		names[i] = r.Name
		colors[i] = palette[i%len(palette)]
	}

	return asciigraph.PlotMany(data,
		asciigraph.Height(height),
		asciigraph.SeriesColors(colors...),
		asciigraph.SeriesLegends(names...),
		asciigraph.Caption(fmt.Sprintf("tank level, %d runs over %.2fs", len(runs), longest)),
	), nil
}

// Spectrum draws the low quarter of a power spectrum.
func Spectrum(power []float64, width, height int) (string, error) {
	if len(power) < 4 {
		return "", ErrNoData
	}
	return PlotSeries(power[:len(power)/4], "power spectrum (tracking error)", width, height)
}
