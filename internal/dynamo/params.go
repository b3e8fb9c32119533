package dynamo

import (
	"fmt"
	"sort"
	"strings"
)

// Param declares one named, defaulted parameter of a model or controller.
type Param struct {
	Name    string
	Default float64
	Help    string
	// Positive rejects zero and negative values.
	Positive bool
}

// Params is a resolved parameter set.
type Params map[string]float64

// ResolveParams fills every declared field with its override or default.
// Overrides naming an undeclared field are rejected.
func ResolveParams(fields []Param, overrides map[string]float64) (Params, error) {
	known := make(map[string]Param, len(fields))
	out := make(Params, len(fields))
	for _, f := range fields {
		known[f.Name] = f
		out[f.Name] = f.Default
	}
	for name, v := range overrides {
		f, ok := known[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownParam, name, fieldNames(fields))
		}
		if f.Positive && v <= 0 {
			return nil, fmt.Errorf("%w: %s must be positive, got %g", ErrInvalidParam, name, v)
		}
		out[name] = v
	}
	return out, nil
}

func fieldNames(fields []Param) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// Get returns the value of name, or 0 if it was never resolved.
func (p Params) Get(name string) float64 { return p[name] }
