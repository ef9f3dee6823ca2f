package optimizer

import (
	"github.com/quantlab-io/backtune/pkg/core"
)

// GenerateCoarse builds the full Cartesian product of every parameter's
// coarse discretization. Parameters must already be validated.
func GenerateCoarse(parameters []Parameter) ([]core.Params, error) {
	for _, p := range parameters {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}

	sets := []core.Params{{}}
	for _, p := range parameters {
		sets = expand(sets, p.Name, p.coarseValues())
	}
	return sets, nil
}

// GenerateFine builds the refined grids around the winning parameter
// assignments: for each winner, the Cartesian product of per-parameter
// neighborhoods. Overlap between neighborhoods, and with the coarse
// grid, is expected; the run-scoped dedup set collapses it before
// anything is scheduled.
func GenerateFine(parameters []Parameter, winners []core.Params) []core.Params {
	var sets []core.Params
	for _, winner := range winners {
		refined := []core.Params{{}}
		for _, p := range parameters {
			center, ok := winner[p.Name]
			if !ok {
				center = p.coarseValues()[0]
			}
			refined = expand(refined, p.Name, p.fineValues(center))
		}
		sets = append(sets, refined...)
	}
	return sets
}

// expand multiplies the existing combinations by each candidate value
// of one parameter.
func expand(sets []core.Params, name string, values []any) []core.Params {
	out := make([]core.Params, 0, len(sets)*len(values))
	for _, s := range sets {
		for _, v := range values {
			next := s.Clone()
			next[name] = v
			out = append(out, next)
		}
	}
	return out
}
