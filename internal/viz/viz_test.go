package viz

import (
	"errors"
	"strings"
	"testing"

	"github.com/san-kum/tanksim/internal/dynamo"
)

func ramp(n int, dt float64) *dynamo.Results {
	samples := make([]dynamo.Sample, n)
	for i := range samples {
		t := float64(i) * dt
		samples[i] = dynamo.Sample{Time: t, State: t / 10, Error: 0.7 - t/10, Action: 1}
	}
	return dynamo.FromSamples(samples, nil)
}

func TestSparkline(t *testing.T) {
	got := Sparkline([]float64{0, 1, 2, 3, 4, 5, 6, 7}, 8)
	if got != "▁▂▃▄▅▆▇█" {
		t.Errorf("Sparkline = %q", got)
	}

	got = Sparkline([]float64{9, 9, 0, 7}, 2)
	if len([]rune(got)) != 2 || []rune(got)[0] != '▁' {
		t.Errorf("Sparkline should keep the last values: %q", got)
	}

	if got := Sparkline(nil, 4); got != "────" {
		t.Errorf("empty Sparkline = %q", got)
	}
}

func TestTankGauge(t *testing.T) {
	s := NewStyles(ThemeMinimal)
	lines := strings.Split(TankGauge(0.5, 1, 0.7, 10, 6, s), "\n")

	if len(lines) != 11 {
		t.Fatalf("got %d lines, want 10 rows plus the base", len(lines))
	}
	water := 0
	for _, l := range lines {
		if strings.Contains(l, "≈") {
			water++
		}
	}
	if water != 5 {
		t.Errorf("filled rows = %d, want 5", water)
	}
	if !strings.Contains(lines[2], "◀ sp") {
		t.Errorf("setpoint marker missing from row 2: %q", lines[2])
	}
	if strings.Contains(lines[0], "≈") || !strings.Contains(lines[9], "≈") {
		t.Error("tank should fill from the bottom")
	}

	if TankGauge(1, 0, 0, 10, 6, s) != "" {
		t.Error("zero capacity should render nothing")
	}
}

func TestProgressBar(t *testing.T) {
	s := NewStyles(ThemeMinimal)
	bar := ProgressBar(50, 10, s)
	if strings.Count(bar, "█") != 5 || strings.Count(bar, "░") != 5 {
		t.Errorf("ProgressBar(50) = %q", bar)
	}
	if !strings.HasSuffix(bar, " 50%") {
		t.Errorf("missing percentage: %q", bar)
	}
	if strings.Count(ProgressBar(150, 10, s), "█") != 10 {
		t.Error("overfull bar should saturate")
	}
}

func TestCanvas(t *testing.T) {
	c := NewCanvas(4, 2)
	c.Set(0, 0)
	c.Set(1, 3)
	c.Set(-1, 0)
	c.Set(100, 100)
	if c.Grid[0][0] != 0x2800|0x1|0x80 {
		t.Errorf("cell = %U", c.Grid[0][0])
	}

	c.Trace([]float64{0.5, 0.5, 0.5}, 0, 1)
	for _, r := range c.Grid[1] {
		if r != brailleBlank {
			t.Fatal("flat trace at mid height should stay in the top row")
		}
	}
	if c.Grid[0][0] == brailleBlank || c.Grid[0][3] == brailleBlank {
		t.Error("trace should span the full width")
	}
	if lines := strings.Count(c.String(), "\n"); lines != 2 {
		t.Errorf("String() has %d lines", lines)
	}
}

func TestThemes(t *testing.T) {
	if GetTheme("nope").Name != "water" {
		t.Error("unknown theme should fall back to water")
	}
	names := ThemeNames()
	if NextTheme(names[len(names)-1]).Name != names[0] {
		t.Error("NextTheme should wrap around")
	}
}

func TestPlotRun(t *testing.T) {
	out, err := PlotRun(ramp(100, 0.1), 0.7, 60, 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"level", "setpoint", "tracking error", "control action"} {
		if !strings.Contains(out, want) {
			t.Errorf("plot missing %q", want)
		}
	}

	if _, err := PlotLevel(dynamo.FromSamples(nil, nil), 0.7, 60, 10); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestCompare(t *testing.T) {
	out, err := Compare([]Series{
		{Name: "rk4", Results: ramp(200, 0.05)},
		{Name: "rk45", Results: ramp(50, 0.1)},
	}, 40, 8)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "rk4") || !strings.Contains(out, "rk45") {
		t.Errorf("legend missing:\n%s", out)
	}

	_, err = Compare([]Series{{Name: "short", Results: ramp(1, 0.1)}}, 40, 8)
	if !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}
