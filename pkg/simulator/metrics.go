package simulator

import (
	"math"
	"sort"
	"time"

	"github.com/quantlab-io/backtune/pkg/core"
	"gonum.org/v1/gonum/stat"
)

const secondsPerYear = 365.25 * 24 * 3600

// ComputeMetrics derives the performance block from a terminal ledger.
func ComputeMetrics(acct *core.AccountState) core.Metrics {
	m := core.Metrics{}

	initial, _ := acct.InitialBalance().Float64()
	equity, times := equityCurve(acct)

	final := initial
	if len(equity) > 0 {
		final = equity[len(equity)-1]
	}
	m.FinalEquity = final
	if initial > 0 {
		m.ReturnPct = (final/initial - 1) * 100
	}
	m.MaxDrawdownPct = MaxDrawdown(equity) * 100

	returns := sampleReturns(equity)
	factor := AnnualizationFactor(times)
	m.Sharpe = Sharpe(returns, factor)
	m.Sortino = Sortino(returns, factor)

	m.TradeCount = len(acct.Trades)
	if m.TradeCount > 0 {
		wins := 0
		grossProfit, grossLoss, sumPct := 0.0, 0.0, 0.0
		for _, t := range acct.Trades {
			pnl, _ := t.PnL.Float64()
			if pnl >= 0 {
				wins++
				grossProfit += pnl
			} else {
				grossLoss += -pnl
			}
			sumPct += t.ReturnPct
		}
		m.WinRate = float64(wins) / float64(m.TradeCount)
		m.AvgProfitPct = sumPct / float64(m.TradeCount) * 100
		if grossLoss > 0 {
			m.ProfitFactor = grossProfit / grossLoss
		} else if grossProfit > 0 {
			// No losing trades; cap rather than divide by zero.
			m.ProfitFactor = 10
		}
	}

	return m
}

func equityCurve(acct *core.AccountState) ([]float64, []time.Time) {
	equity := make([]float64, len(acct.Equity))
	times := make([]time.Time, len(acct.Equity))
	for i, s := range acct.Equity {
		equity[i], _ = s.Equity.Float64()
		times[i] = s.Time
	}
	return equity, times
}

func sampleReturns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] != 0 {
			returns = append(returns, equity[i]/equity[i-1]-1)
		}
	}
	return returns
}

// AnnualizationFactor derives periods-per-year from the actual spacing
// of the equity samples, so Sharpe values computed on different
// timeframes stay comparable. Mixing timeframes with a fixed constant
// silently produces incomparable scores.
func AnnualizationFactor(times []time.Time) float64 {
	if len(times) < 2 {
		return 0
	}
	intervals := make([]float64, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		if d := times[i].Sub(times[i-1]).Seconds(); d > 0 {
			intervals = append(intervals, d)
		}
	}
	if len(intervals) == 0 {
		return 0
	}
	sort.Float64s(intervals)
	median := intervals[len(intervals)/2]
	return secondsPerYear / median
}

// Sharpe computes the annualized Sharpe ratio of per-sample returns.
// Zero variance yields exactly zero.
func Sharpe(returns []float64, periodsPerYear float64) float64 {
	if len(returns) < 2 || periodsPerYear <= 0 {
		return 0
	}
	mean, std := stat.MeanStdDev(returns, nil)
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return mean / std * math.Sqrt(periodsPerYear)
}

// Sortino computes the annualized Sortino ratio, penalizing only
// downside deviation.
func Sortino(returns []float64, periodsPerYear float64) float64 {
	if len(returns) < 2 || periodsPerYear <= 0 {
		return 0
	}
	mean := stat.Mean(returns, nil)

	downside := 0.0
	for _, r := range returns {
		if r < 0 {
			downside += r * r
		}
	}
	downside = math.Sqrt(downside / float64(len(returns)))
	if downside == 0 {
		return 0
	}
	return mean / downside * math.Sqrt(periodsPerYear)
}

// MaxDrawdown returns the maximum peak-to-trough fractional decline of
// an equity curve (0.25 = -25%).
func MaxDrawdown(equity []float64) float64 {
	maxDD := 0.0
	peak := math.Inf(-1)
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		if peak > 0 {
			if dd := (peak - e) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
