package optimizer

import (
	"fmt"
	"sort"

	"github.com/quantlab-io/backtune/pkg/core"
)

// Objective scores a trial's metrics; higher is better.
type Objective interface {
	Name() string
	Score(m core.Metrics) float64
}

type sharpeObjective struct{}

func (sharpeObjective) Name() string                 { return "sharpe" }
func (sharpeObjective) Score(m core.Metrics) float64 { return m.Sharpe }

type returnObjective struct{}

func (returnObjective) Name() string                 { return "return" }
func (returnObjective) Score(m core.Metrics) float64 { return m.ReturnPct }

// drawdownAdjusted rewards return earned per unit of suffered drawdown.
type drawdownAdjusted struct{}

func (drawdownAdjusted) Name() string { return "dd_return" }
func (drawdownAdjusted) Score(m core.Metrics) float64 {
	return m.ReturnPct / (1 + m.MaxDrawdownPct)
}

// ObjectiveByName resolves a registered objective.
func ObjectiveByName(name string) (Objective, error) {
	switch name {
	case "", "sharpe":
		return sharpeObjective{}, nil
	case "return":
		return returnObjective{}, nil
	case "dd_return":
		return drawdownAdjusted{}, nil
	default:
		return nil, fmt.Errorf("unknown objective: %s", name)
	}
}

// Rank orders results best-first by objective score. Ties break on
// higher trade count, then lexicographically on the spec key, so the
// final ranking is identical no matter in which order workers finished.
// Failed trials sink to the bottom.
func Rank(results []*core.TrialResult, objective Objective) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Failed() != b.Failed() {
			return !a.Failed()
		}

		sa, sb := objective.Score(a.Metrics), objective.Score(b.Metrics)
		if sa != sb {
			return sa > sb
		}
		if a.Metrics.TradeCount != b.Metrics.TradeCount {
			return a.Metrics.TradeCount > b.Metrics.TradeCount
		}
		return a.Spec.Key() < b.Spec.Key()
	})
}
