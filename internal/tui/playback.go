package tui

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/san-kum/tanksim/internal/dynamo"
)

// FormatElapsed renders d as seconds and milliseconds, "ss:mmm".
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%03d", ms/1000, ms%1000)
}

// playback is the wall-clock cursor over a finished run.
type playback struct {
	clock    time.Duration
	duration time.Duration
	speed    float64
	playing  bool
}

func newPlayback(res *dynamo.Results, speed float64) playback {
	return playback{
		duration: time.Duration(res.Duration() * float64(time.Second)),
		speed:    speed,
		playing:  true,
	}
}

// advance moves the cursor by d of wall time scaled by the speed and
// pauses at the end of the run.
func (p *playback) advance(d time.Duration) {
	if !p.playing {
		return
	}
	p.clock += time.Duration(float64(d) * p.speed)
	if p.clock >= p.duration {
		p.clock = p.duration
		p.playing = false
	}
}

func (p *playback) seek(d time.Duration) {
	p.clock = max(0, min(p.duration, p.clock+d))
}

func (p *playback) restart() {
	p.clock = 0
	p.playing = true
}

// toggle pauses or resumes. Resuming at the end starts over.
func (p *playback) toggle() {
	if !p.playing && p.clock >= p.duration {
		p.clock = 0
	}
	p.playing = !p.playing
}

func (p *playback) seconds() float64 { return p.clock.Seconds() }

// liveObserver publishes the latest sample of a running simulation.
type liveObserver struct {
	latest atomic.Pointer[dynamo.Sample]
}

func (o *liveObserver) OnSample(s dynamo.Sample) {
	o.latest.Store(&s)
}

// Latest returns the most recent sample, if any has been recorded.
func (o *liveObserver) Latest() (dynamo.Sample, bool) {
	s := o.latest.Load()
	if s == nil {
		return dynamo.Sample{}, false
	}
	return *s, true
}
