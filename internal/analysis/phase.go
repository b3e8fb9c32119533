package analysis

import (
	"strings"

	"github.com/san-kum/tanksim/internal/dynamo"
)

type Point struct{ X, Y float64 }

// PhasePortrait holds the level h against its rate dh/dt
type PhasePortrait struct {
	Points []Point
}

// NewPhasePortrait estimates dh/dt with central differences over the
// recorded samples, so it works on unevenly spaced adaptive runs.
func NewPhasePortrait(res *dynamo.Results) *PhasePortrait {
	times, states := res.Times(), res.States()
	n := len(states)
	if n < 3 {
		return &PhasePortrait{}
	}

	portrait := &PhasePortrait{Points: make([]Point, 0, n-2)}
	for i := 1; i < n-1; i++ {
		dt := times[i+1] - times[i-1]
		if dt <= 0 {
			continue
		}
		portrait.Points = append(portrait.Points, Point{
			X: states[i],
			Y: (states[i+1] - states[i-1]) / dt,
		})
	}
	return portrait
}

// PhasePortraitToASCII converts phase portrait to ASCII art
func PhasePortraitToASCII(portrait *PhasePortrait, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 || width <= 1 || height <= 1 {
		return ""
	}

	// Find bounds
	minX, maxX := portrait.Points[0].X, portrait.Points[0].X
	minY, maxY := portrait.Points[0].Y, portrait.Points[0].Y
	for _, p := range portrait.Points {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := newCanvas(width, height)

	for _, p := range portrait.Points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))
		canvas.set(row, col, '•')
	}

	// Zero rate is the equilibrium line
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if canvas.get(row, col) == ' ' {
				canvas.set(row, col, '─')
			}
		}
	}

	return canvas.String()
}

// Crossings returns the interpolated times at which the level rises
// through level. On a limit cycle the spacing is the cycle period.
func Crossings(res *dynamo.Results, level float64) []float64 {
	times, states := res.Times(), res.States()
	out := make([]float64, 0)
	for i := 1; i < len(states); i++ {
		a, b := states[i-1], states[i]
		if a < level && b >= level {
			frac := (level - a) / (b - a)
			out = append(out, times[i-1]+frac*(times[i]-times[i-1]))
		}
	}
	return out
}

// CyclePeriod is the mean spacing of the upward crossings of level, or 0
// with fewer than two crossings.
func CyclePeriod(res *dynamo.Results, level float64) float64 {
	c := Crossings(res, level)
	if len(c) < 2 {
		return 0
	}
	return (c[len(c)-1] - c[0]) / float64(len(c)-1)
}

type canvas [][]rune

func newCanvas(width, height int) canvas {
	c := make(canvas, height)
	for i := range c {
		c[i] = []rune(strings.Repeat(" ", width))
	}
	return c
}

func (c canvas) get(row, col int) rune {
	if row < 0 || row >= len(c) || col < 0 || col >= len(c[row]) {
		return 0
	}
	return c[row][col]
}

func (c canvas) set(row, col int, r rune) {
	if row >= 0 && row < len(c) && col >= 0 && col < len(c[row]) {
		c[row][col] = r
	}
}

func (c canvas) String() string {
	var sb strings.Builder
	for _, row := range c {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
