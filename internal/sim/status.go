package sim

// Status is the lifecycle state of a Simulator. A simulator starts Idle,
// is Running for the duration of one Run and ends in one of the three
// terminal states, from which it may be run again.
type Status int32

const (
	StatusIdle Status = iota
	StatusRunning
	StatusFinished
	StatusCanceled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusFinished:
		return "finished"
	case StatusCanceled:
		return "canceled"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}
