package validate

import (
	"context"
	"math"
	"sort"

	"github.com/quantlab-io/backtune/pkg/core"
	"github.com/quantlab-io/backtune/pkg/optimizer"
)

// SensitivityConfig tunes the parameter perturbation sweep.
type SensitivityConfig struct {
	// PerturbPct is the fractional nudge applied to each numeric
	// parameter in both directions. Defaults to 0.10.
	PerturbPct float64
	// MaxDegradation is the fractional objective drop beyond which a
	// parameter is flagged fragile. Defaults to 0.5.
	MaxDegradation float64
}

// ParamSensitivity is one parameter's perturbation outcome.
type ParamSensitivity struct {
	Name      string
	BaseScore float64
	UpScore   float64
	DownScore float64
	// Degradation is the worst fractional score drop across the two
	// perturbations.
	Degradation float64
	Fragile     bool
}

// SensitivityResult flags parameter assignments sitting on a cliff.
type SensitivityResult struct {
	Params  []ParamSensitivity
	Fragile []string
	Robust  bool
}

// Sensitivity perturbs each numeric parameter of the candidate by a
// fixed percentage in both directions, holding the others fixed, and
// measures objective degradation against the unperturbed baseline.
// Boolean and categorical parameters are skipped; there is no meaningful
// small perturbation of them.
func Sensitivity(ctx context.Context, runner optimizer.Runner, candidate core.TrialSpec, cfg SensitivityConfig) (*SensitivityResult, error) {
	if cfg.PerturbPct <= 0 {
		cfg.PerturbPct = 0.10
	}
	if cfg.MaxDegradation <= 0 {
		cfg.MaxDegradation = 0.5
	}

	objective, err := optimizer.ObjectiveByName(candidate.Objective)
	if err != nil {
		return nil, err
	}

	baseline, err := runner.Run(ctx, candidate)
	if err != nil {
		return nil, err
	}
	baseScore := objective.Score(baseline.Metrics)

	names := make([]string, 0, len(candidate.Params))
	for name := range candidate.Params {
		if _, ok := numericValue(candidate.Params[name]); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	result := &SensitivityResult{Robust: true}
	for _, name := range names {
		base, _ := numericValue(candidate.Params[name])

		up, err := scorePerturbed(ctx, runner, objective, candidate, name, base*(1+cfg.PerturbPct))
		if err != nil {
			return nil, err
		}
		down, err := scorePerturbed(ctx, runner, objective, candidate, name, base*(1-cfg.PerturbPct))
		if err != nil {
			return nil, err
		}

		ps := ParamSensitivity{
			Name:        name,
			BaseScore:   baseScore,
			UpScore:     up,
			DownScore:   down,
			Degradation: math.Max(degradation(baseScore, up), degradation(baseScore, down)),
		}
		ps.Fragile = ps.Degradation > cfg.MaxDegradation
		if ps.Fragile {
			result.Fragile = append(result.Fragile, name)
			result.Robust = false
		}
		result.Params = append(result.Params, ps)
	}
	return result, nil
}

func scorePerturbed(ctx context.Context, runner optimizer.Runner, objective optimizer.Objective, candidate core.TrialSpec, name string, value float64) (float64, error) {
	spec := candidate
	spec.Params = candidate.Params.Clone()
	if _, isInt := candidate.Params[name].(int); isInt {
		spec.Params[name] = int(math.Round(value))
	} else {
		spec.Params[name] = value
	}

	trial, err := runner.Run(ctx, spec)
	if err != nil {
		return 0, err
	}
	return objective.Score(trial.Metrics), nil
}

// degradation is the fractional drop from base to perturbed, zero when
// the perturbation improved the score. A non-positive base is treated
// as fully degraded by any further drop.
func degradation(base, perturbed float64) float64 {
	if perturbed >= base {
		return 0
	}
	if base <= 0 {
		return 1
	}
	return (base - perturbed) / math.Abs(base)
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
