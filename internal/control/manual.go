package control

import (
	"math"
	"sync/atomic"
)

// Manual passes an externally set valve opening to the system. The opening
// may be changed from another goroutine while a run is in progress.
type Manual struct {
	Ts float64
	u  atomic.Uint64
}

func NewManual(ts float64) *Manual {
	return &Manual{Ts: ts}
}

// Set updates the opening, clamped to [0, 1].
func (c *Manual) Set(u float64) {
	c.u.Store(math.Float64bits(clamp(u, 0, 1)))
}

// Nudge adds delta to the current opening. Concurrent nudges all apply.
func (c *Manual) Nudge(delta float64) {
	for {
		old := c.u.Load()
		next := math.Float64bits(clamp(math.Float64frombits(old)+delta, 0, 1))
		if c.u.CompareAndSwap(old, next) {
			return
		}
	}
}

func (c *Manual) Value() float64 {
	return math.Float64frombits(c.u.Load())
}

func (c *Manual) SamplingPeriod() float64 { return c.Ts }

func (c *Manual) CalculateAction(_, _ []float64, _ float64) (float64, error) {
	return c.Value(), nil
}
