package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles are the lipgloss styles derived from a Theme.
type Styles struct {
	Title    lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Hint     lipgloss.Style
	Subtle   lipgloss.Style
	Running  lipgloss.Style
	Paused   lipgloss.Style
	Failed   lipgloss.Style
	Water    lipgloss.Style
	Setpoint lipgloss.Style
	Panel    lipgloss.Style
}

func NewStyles(t Theme) Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Primary).
			MarginBottom(1),
		Label:    lipgloss.NewStyle().Foreground(t.Muted).Width(12),
		Value:    lipgloss.NewStyle().Foreground(t.Text).Bold(true),
		Hint:     lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		Subtle:   lipgloss.NewStyle().Foreground(t.Muted),
		Running:  lipgloss.NewStyle().Bold(true).Foreground(t.Success),
		Paused:   lipgloss.NewStyle().Bold(true).Foreground(t.Warning),
		Failed:   lipgloss.NewStyle().Bold(true).Foreground(t.Error),
		Water:    lipgloss.NewStyle().Foreground(t.Water),
		Setpoint: lipgloss.NewStyle().Foreground(t.Setpoint).Bold(true),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Secondary).
			Padding(0, 2),
	}
}

// ProgressBar renders pct (0..100) as a bar of width cells followed by the
// percentage.
func ProgressBar(pct, width int, s Styles) string {
	filled := max(0, min(width, pct*width/100))
	bar := s.Water.Render(strings.Repeat("█", filled)) +
		s.Subtle.Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %3d%%", bar, pct)
}

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders the last width values as block characters scaled
// between their minimum and maximum.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	var b strings.Builder
	for _, v := range values {
		idx := int((v - lo) / rng * float64(len(sparkChars)-1))
		b.WriteRune(sparkChars[max(0, min(len(sparkChars)-1, idx))])
	}
	return b.String()
}

// TankGauge draws a vertical tank of rows lines holding level out of
// capacity, with a marker on the row containing setpoint.
func TankGauge(level, capacity, setpoint float64, rows, width int, s Styles) string {
	if capacity <= 0 || rows <= 0 {
		return ""
	}
	filled := int(math.Round(level / capacity * float64(rows)))
	filled = max(0, min(rows, filled))
	spRow := rows - 1 - int(math.Floor(setpoint/capacity*float64(rows)))
	spRow = max(0, min(rows-1, spRow))

	lines := make([]string, 0, rows+1)
	for r := 0; r < rows; r++ {
		inner := strings.Repeat(" ", width)
		if r >= rows-filled {
			inner = s.Water.Render(strings.Repeat("≈", width))
		}
		line := "│" + inner + "│"
		if r == spRow {
			line += s.Setpoint.Render(" ◀ sp")
		}
		lines = append(lines, line)
	}
	lines = append(lines, "╰"+strings.Repeat("─", width)+"╯")
	return strings.Join(lines, "\n")
}

func Separator(width int, s Styles) string {
	mid := width / 2
	left := strings.Repeat("─", max(0, mid-3))
	right := strings.Repeat("─", max(0, width-mid-3))
	return s.Subtle.Render(left + " ◆ " + right)
}
