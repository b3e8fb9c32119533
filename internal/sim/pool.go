package sim

import (
	"sync"

	"github.com/san-kum/tanksim/internal/dynamo"
)

// history is the growing record of a run in progress. Its columns are
// handed to controllers as read-only views and copied out when the run is
// frozen, so the buffers can be reused by the next run.
type history struct {
	time   []float64
	state  []float64
	errs   []float64
	action []float64
}

func (h *history) append(s dynamo.Sample) {
	h.time = append(h.time, s.Time)
	h.state = append(h.state, s.State)
	h.errs = append(h.errs, s.Error)
	h.action = append(h.action, s.Action)
}

type historyPool struct {
	pool sync.Pool
}

var histories = &historyPool{
	pool: sync.Pool{
		New: func() any { return &history{} },
	},
}

// Get returns an empty history able to hold n samples without growing.
func (p *historyPool) Get(n int) *history {
	h := p.pool.Get().(*history)
	if cap(h.time) < n {
		h.time = make([]float64, 0, n)
		h.state = make([]float64, 0, n)
		h.errs = make([]float64, 0, n)
		h.action = make([]float64, 0, n)
	}
	return h
}

func (p *historyPool) Put(h *history) {
	h.time = h.time[:0]
	h.state = h.state[:0]
	h.errs = h.errs[:0]
	h.action = h.action[:0]
	p.pool.Put(h)
}
