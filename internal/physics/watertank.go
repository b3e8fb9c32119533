package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/tanksim/internal/dynamo"
)

const Gravity = 9.81

// WaterTankFields declares the tank parameters and their defaults. Lengths
// are in metres, areas in square metres, velocities in metres per second.
var WaterTankFields = []dynamo.Param{
	{Name: "max_height", Default: 1.0, Help: "tank height", Positive: true},
	{Name: "tank_area", Default: 0.09, Help: "tank cross-section", Positive: true},
	{Name: "tank_escape_area", Default: 0.001 * math.Pi, Help: "outlet area", Positive: true},
	{Name: "incoming_max_velocity", Default: 20, Help: "inflow velocity at full valve", Positive: true},
	{Name: "input_area", Default: 0.0004 * math.Pi, Help: "inlet area", Positive: true},
}

// WaterTank is a gravity-drained tank fed through a valve. The state is the
// water level h and the action u in [0, 1] is the valve opening:
//
//	dh/dt = k2*u - k1*sqrt(h)
type WaterTank struct {
	MaxHeight           float64
	TankArea            float64
	EscapeArea          float64
	IncomingMaxVelocity float64
	InputArea           float64

	k1, k2 float64
	limits dynamo.Limits
}

// NewWaterTank resolves overrides against WaterTankFields. Unknown names and
// non-positive values are rejected.
func NewWaterTank(overrides map[string]float64) (*WaterTank, error) {
	p, err := dynamo.ResolveParams(WaterTankFields, overrides)
	if err != nil {
		return nil, fmt.Errorf("water tank: %w", err)
	}
	w := &WaterTank{
		MaxHeight:           p.Get("max_height"),
		TankArea:            p.Get("tank_area"),
		EscapeArea:          p.Get("tank_escape_area"),
		IncomingMaxVelocity: p.Get("incoming_max_velocity"),
		InputArea:           p.Get("input_area"),
	}
	w.update()
	return w, nil
}

func (w *WaterTank) update() {
	w.k1 = math.Sqrt(2*Gravity) * w.EscapeArea / w.TankArea
	w.k2 = w.IncomingMaxVelocity * w.InputArea / w.TankArea
	w.limits = w.limits.With(dynamo.QuantityState, dynamo.Between(0, w.MaxHeight))
}

// K1 is the outflow coefficient sqrt(2g)*escape/area.
func (w *WaterTank) K1() float64 { return w.k1 }

// K2 is the inflow coefficient vmax*input/area.
func (w *WaterTank) K2() float64 { return w.k2 }

func (w *WaterTank) UnboundedDerivative(h, u float64) float64 {
	return w.k2*u - w.k1*math.Sqrt(math.Max(0, h))
}

func (w *WaterTank) Limits() dynamo.Limits { return w.limits }

// SetLimit replaces one saturation bound. The state bound is reset to
// [0, max_height] whenever a parameter changes.
func (w *WaterTank) SetLimit(q dynamo.Quantity, b dynamo.Bounds) {
	w.limits = w.limits.With(q, b)
}

// Equilibrium is the level at which a constant opening u balances the
// outflow, ignoring the height limit.
func (w *WaterTank) Equilibrium(u float64) float64 {
	r := w.k2 * u / w.k1
	return r * r
}

// Action returns the opening that holds the tank at level h.
func (w *WaterTank) Action(h float64) float64 {
	return w.k1 * math.Sqrt(math.Max(0, h)) / w.k2
}

func (w *WaterTank) GetParams() map[string]float64 {
	return map[string]float64{
		"max_height":            w.MaxHeight,
		"tank_area":             w.TankArea,
		"tank_escape_area":      w.EscapeArea,
		"incoming_max_velocity": w.IncomingMaxVelocity,
		"input_area":            w.InputArea,
	}
}

func (w *WaterTank) SetParam(name string, value float64) error {
	if value <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %g", dynamo.ErrInvalidParam, name, value)
	}
	switch name {
	case "max_height":
		w.MaxHeight = value
	case "tank_area":
		w.TankArea = value
	case "tank_escape_area":
		w.EscapeArea = value
	case "incoming_max_velocity":
		w.IncomingMaxVelocity = value
	case "input_area":
		w.InputArea = value
	default:
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, name)
	}
	w.update()
	return nil
}
