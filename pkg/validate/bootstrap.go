package validate

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Interval is a bootstrap confidence interval over a trade statistic.
type Interval struct {
	Lower  float64
	Upper  float64
	Mean   float64
	StdDev float64
}

// Measure reduces a trade-return sample to one statistic.
type Measure func(returns []float64) float64

// MeanReturn is the arithmetic mean of the returns.
func MeanReturn(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	return stat.Mean(returns, nil)
}

// Payoff is the ratio of average win to average loss, capped at 10 when
// there are no losses.
func Payoff(returns []float64) float64 {
	var wins, losses []float64
	for _, r := range returns {
		if r >= 0 {
			wins = append(wins, r)
		} else {
			losses = append(losses, math.Abs(r))
		}
	}
	if len(losses) == 0 || len(wins) == 0 {
		return 10
	}
	avgLoss := stat.Mean(losses, nil)
	if avgLoss == 0 {
		return 10
	}
	return stat.Mean(wins, nil) / avgLoss
}

// ProfitFactor is the ratio of gross profit to gross loss, capped at 10
// when there are no losses.
func ProfitFactor(returns []float64) float64 {
	var totalWins, totalLosses float64
	for _, r := range returns {
		if r >= 0 {
			totalWins += r
		} else {
			totalLosses -= r
		}
	}
	if totalLosses == 0 {
		return 10
	}
	return totalWins / totalLosses
}

// Bootstrap resamples the returns with replacement and reports the
// confidence interval of the measure across resamples. The seed fixes
// the resampling sequence so repeated reports agree.
func Bootstrap(returns []float64, measure Measure, iterations int, confidence float64, seed int64) Interval {
	if len(returns) == 0 || iterations <= 0 {
		return Interval{}
	}
	if confidence <= 0 || confidence >= 1 {
		confidence = 0.95
	}

	rng := rand.New(rand.NewSource(seed))
	stats := make([]float64, 0, iterations)
	sample := make([]float64, len(returns))

	for i := 0; i < iterations; i++ {
		for j := range sample {
			sample[j] = returns[rng.Intn(len(returns))]
		}
		stats = append(stats, measure(sample))
	}

	sort.Float64s(stats)
	tail := 1 - confidence
	mean, stdDev := stat.MeanStdDev(stats, nil)

	return Interval{
		Lower:  stat.Quantile(tail/2, stat.LinInterp, stats, nil),
		Upper:  stat.Quantile(1-tail/2, stat.LinInterp, stats, nil),
		Mean:   mean,
		StdDev: stdDev,
	}
}
