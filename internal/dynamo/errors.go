package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidConfig indicates a run or model configuration that cannot be simulated.
	ErrInvalidConfig = errors.New("dynamo: invalid configuration")

	// ErrCanceled indicates the simulation was interrupted before reaching its horizon.
	ErrCanceled = errors.New("dynamo: simulation canceled")

	// ErrBusy indicates a Run on a simulator that is already running.
	ErrBusy = errors.New("dynamo: simulator already running")

	// ErrControllerFailed marks a fault raised while sampling the controller.
	ErrControllerFailed = errors.New("dynamo: controller failed")

	// ErrLengthMismatch indicates result columns of different lengths.
	ErrLengthMismatch = errors.New("dynamo: result columns differ in length")

	// ErrUnknownParam indicates a parameter name no field declares.
	ErrUnknownParam = errors.New("dynamo: unknown parameter")

	// ErrInvalidParam indicates a parameter value outside its valid range.
	ErrInvalidParam = errors.New("dynamo: parameter out of valid bounds")
)

// SimulationError wraps a controller fault with the context of the sample
// that triggered it.
type SimulationError struct {
	Step    int
	Time    float64
	State   float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f, x=%.6f): %v", e.Step, e.Time, e.State, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

// Is lets errors.Is(err, ErrControllerFailed) match any wrapped controller fault.
func (e *SimulationError) Is(target error) bool {
	return target == ErrControllerFailed
}
