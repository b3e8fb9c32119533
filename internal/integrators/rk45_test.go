package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/tanksim/internal/dynamo"
)

func TestNextStep(t *testing.T) {
	tests := []struct {
		name string
		e    float64
		tol  float64
		dt   float64
		want float64
	}{
		{"exact step doubles", 0, 1e-6, 0.1, 0.2},
		{"inside band keeps dt", 5e-7, 1e-6, 0.1, 0.1},
		{"band upper edge keeps dt", 1e-6, 1e-6, 0.1, 0.1},
		{"band lower edge keeps dt", 1e-7, 1e-6, 0.1, 0.1},
		{"far below band doubles", 1e-12, 1e-6, 0.1, 0.2},
		{"moderate overshoot halves", 2e-6, 1e-6, 1, 0.5},
		{"large overshoot scales", 1e-3, 1e-6, 0.1, 0.1 * 0.9 * math.Pow(5e-5, 0.2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextStep(tt.e, tt.tol, tt.dt); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("NextStep(%g, %g, %g) = %g, want %g", tt.e, tt.tol, tt.dt, got, tt.want)
			}
		})
	}
}

func TestRK45_FixedStepAccuracy(t *testing.T) {
	x, end := integrate(NewRK45(), decay, 1.0, 1.0, 0.1)

	if expected := math.Exp(-end); math.Abs(x-expected) > 1e-6 {
		t.Errorf("error too large: got %.10f, expected %.10f", x, expected)
	}
}

func TestRK45_AdaptiveStaysInBounds(t *testing.T) {
	r := NewRK45()
	bounds := dynamo.Between(1e-12, 0.1)

	x, elapsed, dt := 1.0, 0.0, 0.01
	for elapsed < 3 {
		var next float64
		x, next = r.StepAdaptive(decay, x, dt, 1e-6, bounds)
		elapsed += dt
		if next < 1e-12 || next > 0.1 {
			t.Fatalf("proposed step %g outside bounds", next)
		}
		dt = next
	}

	if expected := math.Exp(-elapsed); math.Abs(x-expected) > 1e-4 {
		t.Errorf("adaptive solution drifted: got %.8f, expected %.8f", x, expected)
	}
}

func TestRK45_ConstantDerivativeDoublesStep(t *testing.T) {
	still := func(float64) float64 { return 0 }

	x, next := NewRK45().StepAdaptive(still, 0.5, 0.01, 1e-6, dynamo.Unbounded())
	if x != 0.5 {
		t.Errorf("state moved to %v", x)
	}
	if next != 0.02 {
		t.Errorf("next step = %v, want 0.02", next)
	}

	_, next = NewRK45().StepAdaptive(still, 0.5, 0.08, 1e-6, dynamo.AtMost(0.1))
	if next != 0.1 {
		t.Errorf("next step = %v, want clamp to 0.1", next)
	}
}

func TestRK45_TableauConsistency(t *testing.T) {
	rows := [][]float64{
		{b21},
		{b31, b32},
		{b41, b42, b43},
		{b51, b52, b53, b54},
		{b61, b62, b63, b64, b65},
	}
	nodes := []float64{1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1}

	for i, row := range rows {
		sum := 0.0
		for _, v := range row {
			sum += v
		}
		if math.Abs(sum-nodes[i]) > 1e-12 {
			t.Errorf("row %d sums to %.15f, want %.15f", i+2, sum, nodes[i])
		}
	}

	if w := c1 + c3 + c4 + c5 + c6; math.Abs(w-1) > 1e-12 {
		t.Errorf("solution weights sum to %.15f", w)
	}
	if w := e1 + e3 + e4 + e5 + e6 + e7; math.Abs(w) > 1e-12 {
		t.Errorf("error weights sum to %.15f, want 0", w)
	}
}
