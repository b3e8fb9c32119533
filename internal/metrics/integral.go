package metrics

import (
	"math"

	"github.com/san-kum/tanksim/internal/dynamo"
)

// errorIntegral accumulates g(error) over time with the trapezoid rule,
// which handles the uneven spacing of adaptive runs.
type errorIntegral struct {
	name  string
	g     func(float64) float64
	sum   float64
	prevT float64
	prevG float64
	seen  bool
}

func (m *errorIntegral) Name() string { return m.name }

func (m *errorIntegral) Observe(s dynamo.Sample) {
	v := m.g(s.Error)
	if m.seen {
		m.sum += 0.5 * (v + m.prevG) * (s.Time - m.prevT)
	}
	m.prevT, m.prevG, m.seen = s.Time, v, true
}

func (m *errorIntegral) Value() float64 { return m.sum }

func (m *errorIntegral) Reset() {
	m.sum, m.prevT, m.prevG, m.seen = 0, 0, 0, false
}

// NewIAE integrates the absolute tracking error.
func NewIAE() dynamo.Metric {
	return &errorIntegral{name: "iae", g: math.Abs}
}

// NewISE integrates the squared tracking error.
func NewISE() dynamo.Metric {
	return &errorIntegral{name: "ise", g: func(e float64) float64 { return e * e }}
}
