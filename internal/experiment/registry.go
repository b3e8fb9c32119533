package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/tanksim/internal/control"
	"github.com/san-kum/tanksim/internal/dynamo"
	"github.com/san-kum/tanksim/internal/integrators"
	"github.com/san-kum/tanksim/internal/physics"
)

// ModelSpec describes a plant and how to build it from resolved parameters.
type ModelSpec struct {
	Help   string
	Fields []dynamo.Param
	New    func(dynamo.Params) (dynamo.System, error)
}

// ControllerSpec describes a controller. A nil New means open loop.
type ControllerSpec struct {
	Help   string
	Fields []dynamo.Param
	New    func(dynamo.Params) dynamo.Controller
}

type Registry struct {
	models      map[string]ModelSpec
	integrators map[string]func() dynamo.Integrator
	controllers map[string]ControllerSpec
}

func NewRegistry() *Registry {
	r := &Registry{
		models:      make(map[string]ModelSpec),
		integrators: make(map[string]func() dynamo.Integrator),
		controllers: make(map[string]ControllerSpec),
	}

	r.RegisterModel("watertank", ModelSpec{
		Help:   "gravity-drained tank fed through a valve",
		Fields: physics.WaterTankFields,
		New: func(p dynamo.Params) (dynamo.System, error) {
			w, err := physics.NewWaterTank(p)
			if err != nil {
				return nil, err
			}
			return w, nil
		},
	})

	r.RegisterIntegrator("euler", func() dynamo.Integrator { return integrators.NewEuler() })
	r.RegisterIntegrator("rk4", func() dynamo.Integrator { return integrators.NewRK4() })
	r.RegisterIntegrator("rk45", func() dynamo.Integrator { return integrators.NewRK45() })

	r.RegisterController("none", ControllerSpec{Help: "open loop, valve closed"})
	r.RegisterController("pid", ControllerSpec{
		Help:   "PID with output clamped to [0, 1]",
		Fields: control.PIDFields,
		New:    func(p dynamo.Params) dynamo.Controller { return control.NewPIDFromParams(p) },
	})
	r.RegisterController("onoff", ControllerSpec{
		Help:   "bang-bang at the setpoint",
		Fields: control.OnOffFields,
		New:    func(p dynamo.Params) dynamo.Controller { return control.NewOnOff(p.Get("ts")) },
	})
	r.RegisterController("onoffhold", ControllerSpec{
		Help:   "bang-bang with a hysteresis band of relative width r",
		Fields: control.OnOffHoldFields,
		New: func(p dynamo.Params) dynamo.Controller {
			return control.NewOnOffHold(p.Get("ts"), p.Get("r"))
		},
	})
	r.RegisterController("constant", ControllerSpec{
		Help:   "fixed valve opening u",
		Fields: control.ConstantFields,
		New: func(p dynamo.Params) dynamo.Controller {
			return control.NewConstant(p.Get("ts"), p.Get("u"))
		},
	})

	return r
}

func (r *Registry) RegisterModel(name string, spec ModelSpec) { r.models[name] = spec }

func (r *Registry) RegisterIntegrator(name string, fn func() dynamo.Integrator) {
	r.integrators[name] = fn
}

func (r *Registry) RegisterController(name string, spec ControllerSpec) {
	r.controllers[name] = spec
}

func (r *Registry) GetModel(name string, overrides map[string]float64) (dynamo.System, error) {
	spec, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	p, err := dynamo.ResolveParams(spec.Fields, overrides)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", name, err)
	}
	return spec.New(p)
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

// GetController builds a fresh controller. It returns a nil controller and
// no error for open-loop entries such as "none".
func (r *Registry) GetController(name string, overrides map[string]float64) (dynamo.Controller, error) {
	spec, ok := r.controllers[name]
	if !ok {
		return nil, fmt.Errorf("unknown controller: %s", name)
	}
	p, err := dynamo.ResolveParams(spec.Fields, overrides)
	if err != nil {
		return nil, fmt.Errorf("controller %s: %w", name, err)
	}
	if spec.New == nil {
		return nil, nil
	}
	return spec.New(p), nil
}

func (r *Registry) Model(name string) (ModelSpec, bool) {
	spec, ok := r.models[name]
	return spec, ok
}

func (r *Registry) Controller(name string) (ControllerSpec, bool) {
	spec, ok := r.controllers[name]
	return spec, ok
}

func (r *Registry) ListModels() []string      { return sortedKeys(r.models) }
func (r *Registry) ListIntegrators() []string { return sortedKeys(r.integrators) }
func (r *Registry) ListControllers() []string { return sortedKeys(r.controllers) }

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
