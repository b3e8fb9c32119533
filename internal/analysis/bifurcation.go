package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/tanksim/internal/dynamo"
)

// BifurcationPoint holds the distinct level extrema found for one
// parameter value. A settled loop yields a single value; a limit cycle
// yields its turning points.
type BifurcationPoint struct {
	Param  float64
	Values []float64
}

// RunFunc simulates the loop with the swept parameter set to p.
type RunFunc func(ctx context.Context, p float64) (*dynamo.Results, error)

// BifurcationDiagram runs the loop for every value in params and records
// the local extrema of the level over the final tail fraction of each run.
// Values closer than resolution are merged.
func BifurcationDiagram(ctx context.Context, params []float64, run RunFunc, tail, resolution float64) ([]BifurcationPoint, error) {
	if tail <= 0 || tail > 1 {
		return nil, fmt.Errorf("tail fraction must be in (0, 1], got %g", tail)
	}

	out := make([]BifurcationPoint, 0, len(params))
	for _, p := range params {
		res, err := run(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("param %g: %w", p, err)
		}
		out = append(out, BifurcationPoint{Param: p, Values: tailExtrema(res, tail, resolution)})
	}
	return out, nil
}

func tailExtrema(res *dynamo.Results, tail, resolution float64) []float64 {
	times, states := res.Times(), res.States()
	if len(states) == 0 {
		return nil
	}
	start := times[len(times)-1] - tail*res.Duration()

	var values []float64
	for i := 1; i < len(states)-1; i++ {
		if times[i] < start {
			continue
		}
		prev, cur, next := states[i-1], states[i], states[i+1]
		if (cur > prev && cur >= next) || (cur < prev && cur <= next) {
			values = append(values, cur)
		}
	}
	if len(values) == 0 {
		values = append(values, states[len(states)-1])
	}

	sort.Float64s(values)
	merged := values[:1]
	for _, v := range values[1:] {
		if math.Abs(v-merged[len(merged)-1]) > resolution {
			merged = append(merged, v)
		}
	}
	return merged
}

// BifurcationToASCII converts bifurcation data to ASCII art
func BifurcationToASCII(data []BifurcationPoint, width, height int) string {
	if len(data) == 0 || width <= 0 || height <= 1 {
		return ""
	}

	minVal, maxVal := math.Inf(1), math.Inf(-1)
	for _, p := range data {
		for _, v := range p.Values {
			minVal, maxVal = min(minVal, v), max(maxVal, v)
		}
	}
	if math.IsInf(minVal, 1) {
		return ""
	}
	if maxVal == minVal {
		maxVal = minVal + 1
	}

	canvas := newCanvas(width, height)
	for i, p := range data {
		col := i * width / len(data)
		for _, v := range p.Values {
			row := height - 1 - int((v-minVal)/(maxVal-minVal)*float64(height-1))
			canvas.set(row, col, '•')
		}
	}
	return canvas.String()
}
