package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/tanksim/internal/control"
	"github.com/san-kum/tanksim/internal/dynamo"
	"github.com/san-kum/tanksim/internal/sim"
	"github.com/san-kum/tanksim/internal/viz"
)

const (
	frameRate       = 30
	historyCapacity = 600
	gaugeRows       = 12
	gaugeWidth      = 10
	traceCols       = 40
	traceRows       = 8
	seekStep        = time.Second
	nudgeStep       = 0.05
)

// Runner executes one simulation with the given extra options.
type Runner func(ctx context.Context, opts ...sim.Option) (*dynamo.Results, error)

type Options struct {
	Title    string
	Setpoint float64
	// Capacity is the tank height shown by the gauge.
	Capacity float64
	// Speed scales playback.
	Speed float64
	Theme string
	// Manual, when set, is adjusted by the up and down keys. The opening
	// applies to the next run.
	Manual *control.Manual
}

type phase int

const (
	phaseRunning phase = iota
	phasePlayback
	phaseFailed
)

type (
	TickMsg     time.Time
	progressMsg int
	doneMsg     struct{ res *dynamo.Results }
	failedMsg   struct{ err error }
)

// Model runs a simulation on a worker goroutine, showing its progress, and
// then plays the recorded tank level back at wall-clock speed.
type Model struct {
	run    Runner
	opts   Options
	theme  viz.Theme
	styles viz.Styles

	ctx    context.Context
	cancel context.CancelFunc
	events chan tea.Msg
	live   *liveObserver

	phase    phase
	pct      int
	levels   []float64
	res      *dynamo.Results
	trace    string
	err      error
	play     playback
	lastTick time.Time
	showHelp bool
}

func New(run Runner, opts Options) Model {
	if opts.Speed <= 0 {
		opts.Speed = 1
	}
	if opts.Title == "" {
		opts.Title = "water tank"
	}
	theme := viz.GetTheme(opts.Theme)
	m := Model{
		run:    run,
		opts:   opts,
		theme:  theme,
		styles: viz.NewStyles(theme),
	}
	m.prepare()
	return m
}

// prepare sets up a fresh worker context. Any previous worker is canceled.
func (m *Model) prepare() {
	if m.cancel != nil {
		m.cancel()
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.events = make(chan tea.Msg, 128)
	m.live = &liveObserver{}
	m.phase = phaseRunning
	m.pct = 0
	m.levels = make([]float64, 0, historyCapacity)
	m.res, m.trace, m.err = nil, "", nil
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.simulate(), m.listen(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) simulate() tea.Cmd {
	ctx, events, live := m.ctx, m.events, m.live
	return func() tea.Msg {
		progress := func(pct int) {
			select {
			case events <- progressMsg(pct):
			case <-ctx.Done():
			}
		}
		res, err := m.run(ctx, sim.WithProgress(progress), sim.WithObserver(live))
		if err != nil {
			return failedMsg{err: err}
		}
		return doneMsg{res: res}
	}
}

// listen delivers the next worker event, or nothing once the worker's
// context is gone.
func (m Model) listen() tea.Cmd {
	ctx, events := m.ctx, m.events
	return func() tea.Msg {
		select {
		case msg := <-events:
			return msg
		case <-ctx.Done():
			return nil
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case progressMsg:
		m.pct = int(msg)
		return m, m.listen()
	case doneMsg:
		m.finish(msg.res)
		return m, nil
	case failedMsg:
		if m.phase == phaseRunning {
			m.phase, m.err = phaseFailed, msg.err
		}
		return m, nil
	case TickMsg:
		now := time.Time(msg)
		switch m.phase {
		case phaseRunning:
			m.sampleLive()
		case phasePlayback:
			if !m.lastTick.IsZero() {
				m.play.advance(now.Sub(m.lastTick))
			}
		}
		m.lastTick = now
		return m, tick()
	}
	return m, nil
}

func (m *Model) finish(res *dynamo.Results) {
	m.phase = phasePlayback
	m.pct = 100
	m.res = res
	m.play = newPlayback(res, m.opts.Speed)

	c := viz.NewCanvas(traceCols, traceRows)
	c.Trace(res.States(), 0, m.opts.Capacity)
	m.trace = c.String()
}

func (m *Model) sampleLive() {
	s, ok := m.live.Latest()
	if !ok {
		return
	}
	m.levels = append(m.levels, s.State)
	if len(m.levels) > historyCapacity {
		m.levels = m.levels[1:]
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.cancel()
		return m, tea.Quit
	case "?":
		m.showHelp = !m.showHelp
	case "t":
		m.theme = viz.NextTheme(m.theme.Name)
		m.styles = viz.NewStyles(m.theme)
	case "up", "k":
		if m.opts.Manual != nil {
			m.opts.Manual.Nudge(nudgeStep)
		}
	case "down", "j":
		if m.opts.Manual != nil {
			m.opts.Manual.Nudge(-nudgeStep)
		}
	}

	switch m.phase {
	case phasePlayback:
		switch msg.String() {
		case " ", "p":
			m.play.toggle()
		case "r":
			m.play.restart()
		case "[":
			m.play.seek(-seekStep)
		case "]":
			m.play.seek(seekStep)
		case "+", "=":
			m.play.speed = min(16, m.play.speed*2)
		case "-", "_":
			m.play.speed = max(0.125, m.play.speed/2)
		case "n":
			return m, m.rerun()
		}
	case phaseFailed:
		if msg.String() == "r" {
			return m, m.rerun()
		}
	}
	return m, nil
}

// rerun discards the current run and starts a new one.
func (m *Model) rerun() tea.Cmd {
	m.prepare()
	return tea.Batch(m.simulate(), m.listen())
}

func (m Model) View() string {
	s := m.styles
	var b strings.Builder
	b.WriteString(s.Title.Render(strings.ToUpper(m.opts.Title)) + "\n")

	var gauge string
	switch m.phase {
	case phaseRunning:
		b.WriteString(s.Running.Render("SIMULATING") + "\n\n")
		b.WriteString(viz.ProgressBar(m.pct, 30, s) + "\n\n")
		level := 0.0
		if sample, ok := m.live.Latest(); ok {
			level = sample.State
			m.writeSample(&b, sample)
		}
		b.WriteString("\n" + s.Water.Render(viz.Sparkline(m.levels, 40)) + "\n")
		gauge = viz.TankGauge(level, m.opts.Capacity, m.opts.Setpoint, gaugeRows, gaugeWidth, s)

	case phasePlayback:
		status := s.Running.Render("PLAYING")
		if !m.play.playing {
			status = s.Paused.Render("PAUSED")
		}
		b.WriteString(fmt.Sprintf("%s  %s  x%g\n\n", status,
			s.Value.Render(FormatElapsed(m.play.clock)), m.play.speed))
		sample := m.current()
		m.writeSample(&b, sample)
		b.WriteString("\n" + s.Water.Render(m.trace))
		gauge = viz.TankGauge(sample.State, m.opts.Capacity, m.opts.Setpoint, gaugeRows, gaugeWidth, s)

	case phaseFailed:
		b.WriteString(s.Failed.Render("FAILED") + "\n\n")
		b.WriteString(s.Failed.Render(m.err.Error()) + "\n")
	}

	b.WriteString("\n" + s.Hint.Render(m.hints()))
	panel := s.Panel.Render(b.String())
	if gauge == "" {
		return panel
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, lipgloss.NewStyle().Padding(1, 2).Render(gauge), panel)
}

// current returns the sample nearest to the playback clock.
func (m Model) current() dynamo.Sample {
	if m.res == nil || m.res.Len() == 0 {
		return dynamo.Sample{}
	}
	start := m.res.At(0).Time
	return m.res.At(m.res.NearestIndex(start + m.play.seconds()))
}

func (m Model) writeSample(b *strings.Builder, sample dynamo.Sample) {
	s := m.styles
	rows := [][2]string{
		{"Time", fmt.Sprintf("%.3fs", sample.Time)},
		{"Level", fmt.Sprintf("%.4f m", sample.State)},
		{"Setpoint", fmt.Sprintf("%.4f m", m.opts.Setpoint)},
		{"Error", fmt.Sprintf("%+.4f", sample.Error)},
		{"Valve", fmt.Sprintf("%.3f", sample.Action)},
	}
	if m.opts.Manual != nil {
		rows = append(rows, [2]string{"Manual", fmt.Sprintf("%.2f", m.opts.Manual.Value())})
	}
	for _, r := range rows {
		b.WriteString(s.Label.Render(r[0]) + s.Value.Render(r[1]) + "\n")
	}
}

func (m Model) hints() string {
	var keys []string
	switch m.phase {
	case phasePlayback:
		keys = append(keys, "space play/pause", "r restart", "[ ] seek", "+/- speed", "n new run")
	case phaseFailed:
		keys = append(keys, "r retry")
	}
	if m.opts.Manual != nil {
		keys = append(keys, "↑/↓ valve")
	}
	keys = append(keys, "t theme", "q quit")
	if !m.showHelp {
		return "? help  q quit"
	}
	return strings.Join(keys, "  ")
}

// Run starts the program on the alternate screen and blocks until it exits.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
