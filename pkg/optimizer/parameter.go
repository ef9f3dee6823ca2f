// Package optimizer searches a strategy's parameter space with a
// two-phase grid, scheduling deduplicated trials across a worker pool
// with checkpointed, resumable progress.
package optimizer

import (
	"fmt"
	"os"

	"github.com/quantlab-io/backtune/pkg/core"
	"gopkg.in/yaml.v3"
)

// ParameterType defines the data type of a tunable parameter
type ParameterType string

const (
	// TypeInt represents integer parameters
	TypeInt ParameterType = "int"
	// TypeFloat represents floating-point parameters
	TypeFloat ParameterType = "float"
	// TypeBool represents boolean parameters
	TypeBool ParameterType = "bool"
	// TypeCategorical represents parameters with predefined options
	TypeCategorical ParameterType = "categorical"
)

// Parameter describes one tunable dimension of the search space.
// Numeric parameters span [Min, Max] discretized into CoarseSteps
// values for the first phase and FineSteps values per neighborhood in
// the second.
type Parameter struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Type        ParameterType `yaml:"type"`
	Min         float64       `yaml:"min,omitempty"`
	Max         float64       `yaml:"max,omitempty"`
	CoarseSteps int           `yaml:"coarse_steps,omitempty"`
	FineSteps   int           `yaml:"fine_steps,omitempty"`
	Options     []any         `yaml:"options,omitempty"`
}

// Validate rejects out-of-domain definitions before any grid is built,
// so an invalid parameter can never reach the scheduler.
func (p Parameter) Validate() error {
	if p.Name == "" {
		return &core.InvalidParameterError{Name: p.Name, Value: nil, Reason: "missing name"}
	}

	switch p.Type {
	case TypeInt, TypeFloat:
		if p.Min > p.Max {
			return &core.InvalidParameterError{
				Name: p.Name, Value: p.Min, Reason: fmt.Sprintf("min %g above max %g", p.Min, p.Max),
			}
		}
		if p.CoarseSteps < 1 {
			return &core.InvalidParameterError{
				Name: p.Name, Value: p.CoarseSteps, Reason: "coarse_steps must be at least 1",
			}
		}
	case TypeBool:
		// nothing to validate
	case TypeCategorical:
		if len(p.Options) == 0 {
			return &core.InvalidParameterError{
				Name: p.Name, Value: nil, Reason: "categorical parameter needs options",
			}
		}
	default:
		return &core.InvalidParameterError{
			Name: p.Name, Value: string(p.Type), Reason: "unsupported type",
		}
	}
	return nil
}

// coarseValues discretizes the parameter for the first search phase.
func (p Parameter) coarseValues() []any {
	switch p.Type {
	case TypeBool:
		return []any{false, true}
	case TypeCategorical:
		return p.Options
	case TypeInt:
		return dedupValues(linspace(p.Min, p.Max, p.CoarseSteps), true)
	default:
		return dedupValues(linspace(p.Min, p.Max, p.CoarseSteps), false)
	}
}

// coarseStep is the spacing between coarse grid points, defining the
// neighborhood half-width for the fine phase.
func (p Parameter) coarseStep() float64 {
	if p.CoarseSteps <= 1 {
		return 0
	}
	return (p.Max - p.Min) / float64(p.CoarseSteps-1)
}

// fineValues discretizes the neighborhood around a winning value.
// Non-numeric parameters keep the winner fixed.
func (p Parameter) fineValues(center any) []any {
	steps := p.FineSteps
	if steps < 2 || (p.Type != TypeInt && p.Type != TypeFloat) {
		return []any{center}
	}

	c := toFloat(center)
	half := p.coarseStep()
	if half == 0 {
		return []any{center}
	}

	lo, hi := c-half, c+half
	if lo < p.Min {
		lo = p.Min
	}
	if hi > p.Max {
		hi = p.Max
	}
	return dedupValues(linspace(lo, hi, steps), p.Type == TypeInt)
}

func linspace(lo, hi float64, n int) []float64 {
	if n <= 1 || lo == hi {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

// dedupValues converts a linspace into typed grid values, collapsing
// duplicates that integer rounding produces.
func dedupValues(values []float64, integer bool) []any {
	out := make([]any, 0, len(values))
	seen := make(map[any]bool, len(values))
	for _, v := range values {
		var typed any
		if integer {
			typed = int(v + 0.5)
		} else {
			typed = v
		}
		if !seen[typed] {
			seen[typed] = true
			out = append(out, typed)
		}
	}
	return out
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

// RangesFile is the on-disk shape of a parameter-ranges document.
type RangesFile struct {
	Parameters []Parameter `yaml:"parameters"`
}

// LoadRanges reads and validates a parameter-ranges YAML file.
func LoadRanges(path string) ([]Parameter, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ranges file: %w", err)
	}

	var file RangesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse ranges file %s: %w", path, err)
	}

	for _, p := range file.Parameters {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	return file.Parameters, nil
}
