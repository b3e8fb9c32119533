package sim

import (
	"log/slog"

	"github.com/san-kum/tanksim/internal/dynamo"
)

type Option func(*Simulator)

// WithProgress registers a callback receiving the completed percentage.
// It is called only when the integer percentage increases.
func WithProgress(fn func(pct int)) Option {
	return func(s *Simulator) { s.progress = fn }
}

// WithCompletion registers a callback invoked with the results of every
// run that reaches its horizon.
func WithCompletion(fn func(*dynamo.Results)) Option {
	return func(s *Simulator) { s.completion = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(ms ...dynamo.Metric) Option {
	return func(s *Simulator) { s.metrics = append(s.metrics, ms...) }
}

func WithObserver(o dynamo.Observer) Option {
	return func(s *Simulator) { s.observers = append(s.observers, o) }
}
