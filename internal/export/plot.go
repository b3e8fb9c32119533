package export

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/san-kum/tanksim/internal/dynamo"
)

// Figure selects one of the standard run plots.
type Figure string

const (
	FigureLevel  Figure = "level"
	FigureError  Figure = "error"
	FigureAction Figure = "action"
)

var Figures = []Figure{FigureLevel, FigureError, FigureAction}

const (
	plotWidth  = 8 * vg.Inch
	plotHeight = 5 * vg.Inch
	pngDPI     = 300
)

func limitedTicker(maxLabels int, labelFmt string) plot.Ticker {
	if maxLabels < 2 {
		maxLabels = 2
	}
	return plot.TickerFunc(func(min, max float64) []plot.Tick {
		if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
			return nil
		}
		if min == max {
			return []plot.Tick{{Value: min, Label: fmt.Sprintf(labelFmt, min)}}
		}
		step := (max - min) / float64(maxLabels-1)

		ticks := make([]plot.Tick, 0, maxLabels)
		for i := 0; i < maxLabels; i++ {
			v := min + float64(i)*step
			ticks = append(ticks, plot.Tick{Value: v, Label: fmt.Sprintf(labelFmt, v)})
		}
		return ticks
	})
}

func stylePlot(p *plot.Plot) {
	p.Title.TextStyle.Font.Size = vg.Points(18)
	p.Title.Padding = vg.Points(10)

	p.X.Label.TextStyle.Font.Size = vg.Points(14)
	p.Y.Label.TextStyle.Font.Size = vg.Points(14)
	p.X.Padding = vg.Points(10)
	p.Y.Padding = vg.Points(10)

	p.X.Tick.Marker = limitedTicker(10, "%.1f")
	p.Y.Tick.Marker = limitedTicker(8, "%.2f")

	p.Add(plotter.NewGrid())
}

func series(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	return pts
}

// NewPlot builds the requested figure of res.
func NewPlot(fig Figure, res *dynamo.Results, setpoint float64) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = "time (s)"
	stylePlot(p)

	times := res.Times()
	var err error
	switch fig {
	case FigureLevel:
		p.Title.Text = "Tank level"
		p.Y.Label.Text = "h (m)"
		sp := make([]float64, len(times))
		for i := range sp {
			sp[i] = setpoint
		}
		err = plotutil.AddLines(p, "level", series(times, res.States()), "setpoint", series(times, sp))
	case FigureError:
		p.Title.Text = "Tracking error"
		p.Y.Label.Text = "setpoint - h (m)"
		err = addLine(p, series(times, res.TrackingErrors()))
	case FigureAction:
		p.Title.Text = "Valve opening"
		p.Y.Label.Text = "u"
		p.Y.Min, p.Y.Max = -0.05, 1.05
		err = addLine(p, series(times, res.Actions()))
	default:
		return nil, fmt.Errorf("unknown figure %q", fig)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot create line plot: %w", err)
	}
	return p, nil
}

func addLine(p *plot.Plot, pts plotter.XYs) error {
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(line)
	return nil
}

// WritePlot renders p as png, svg or pdf. PNG output uses a 300 DPI canvas.
func WritePlot(w io.Writer, p *plot.Plot, format string) error {
	format = strings.ToLower(format)
	if format == "png" {
		c := vgimg.NewWith(vgimg.UseWH(plotWidth, plotHeight), vgimg.UseDPI(pngDPI))
		p.Draw(draw.New(c))

		bw := bufio.NewWriter(w)
		if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
			return fmt.Errorf("cannot write png: %w", err)
		}
		return bw.Flush()
	}

	wt, err := p.WriterTo(plotWidth, plotHeight, format)
	if err != nil {
		return fmt.Errorf("cannot render %s: %w", format, err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// SavePlots writes every standard figure of res into dir as
// <prefix>_<figure>.<format> and returns the paths written.
func SavePlots(dir, prefix, format string, res *dynamo.Results, setpoint float64) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create directory: %w", err)
	}

	paths := make([]string, 0, len(Figures))
	for _, fig := range Figures {
		p, err := NewPlot(fig, res, setpoint)
		if err != nil {
			return paths, err
		}

		path := filepath.Join(dir, fmt.Sprintf("%s_%s.%s", prefix, fig, format))
		f, err := os.Create(path)
		if err != nil {
			return paths, fmt.Errorf("cannot create %s: %w", path, err)
		}
		err = WritePlot(f, p, format)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
