package validate

import (
	"math/rand"
	"sort"

	"github.com/quantlab-io/backtune/pkg/core"
	"gonum.org/v1/gonum/stat"
)

// MonteCarloConfig tunes the trade-order randomization.
type MonteCarloConfig struct {
	// Iterations is the number of shuffled equity curves. Defaults to 500.
	Iterations int
	// Seed fixes the shuffle sequence; the same seed on the same trade
	// list always yields the same distribution.
	Seed int64
	// Percentile of the max-drawdown distribution reported as the
	// worst-case estimate. Defaults to 0.95.
	Percentile float64
	// InitialBalance anchors the compounded equity curve. Defaults to
	// the trial's initial balance convention of 10000.
	InitialBalance float64
}

// MonteCarloResult is the drawdown distribution of shuffled trade orders.
type MonteCarloResult struct {
	Iterations int
	Percentile float64
	// DrawdownAtPercentile is the configured percentile of simulated
	// max drawdown, fractional.
	DrawdownAtPercentile float64
	MedianDrawdown       float64
	WorstDrawdown        float64
	// Drawdowns holds every iteration's max drawdown, sorted ascending.
	Drawdowns []float64
}

// MonteCarlo holds a trial's trade returns fixed but randomizes their
// order, recomputing the compounded equity curve and its max drawdown
// each iteration. The set of returns never changes, only the sequencing,
// so the distribution isolates path risk from selection risk.
func MonteCarlo(trades []core.Trade, cfg MonteCarloConfig) *MonteCarloResult {
	if cfg.Iterations <= 0 {
		cfg.Iterations = 500
	}
	if cfg.Percentile <= 0 || cfg.Percentile >= 1 {
		cfg.Percentile = 0.95
	}
	if cfg.InitialBalance <= 0 {
		cfg.InitialBalance = 10000
	}

	returns := make([]float64, len(trades))
	for i, t := range trades {
		returns[i] = t.ReturnPct
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	drawdowns := make([]float64, 0, cfg.Iterations)

	shuffled := make([]float64, len(returns))
	for i := 0; i < cfg.Iterations; i++ {
		copy(shuffled, returns)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		drawdowns = append(drawdowns, maxDrawdownOf(shuffled, cfg.InitialBalance))
	}

	sort.Float64s(drawdowns)

	result := &MonteCarloResult{
		Iterations: cfg.Iterations,
		Percentile: cfg.Percentile,
		Drawdowns:  drawdowns,
	}
	if len(drawdowns) > 0 {
		result.DrawdownAtPercentile = stat.Quantile(cfg.Percentile, stat.Empirical, drawdowns, nil)
		result.MedianDrawdown = stat.Quantile(0.5, stat.Empirical, drawdowns, nil)
		result.WorstDrawdown = drawdowns[len(drawdowns)-1]
	}
	return result
}

// maxDrawdownOf compounds the return sequence and tracks the largest
// fractional peak-to-trough decline.
func maxDrawdownOf(returns []float64, initial float64) float64 {
	equity := initial
	peak := initial
	maxDD := 0.0
	for _, r := range returns {
		equity *= 1 + r
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			if dd := (peak - equity) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
