package validate

import (
	"context"
	"math"
	"sort"

	"github.com/quantlab-io/backtune/pkg/core"
	"github.com/quantlab-io/backtune/pkg/optimizer"
	"gonum.org/v1/gonum/stat"
)

// StressConfig tunes the high-volatility sub-period replay.
type StressConfig struct {
	// Chunks is how many equal sub-periods the range is divided into
	// when ranking volatility. Defaults to 10.
	Chunks int
	// Top is how many of the most volatile chunks are replayed.
	// Defaults to 3.
	Top int
}

// StressPeriod is one high-volatility sub-period replay.
type StressPeriod struct {
	Range core.DataRange
	// RealizedVol is the standard deviation of per-bar log returns
	// within the chunk.
	RealizedVol float64
	Sharpe      float64
	ReturnPct   float64
}

// StressResult flags configurations that lose money under turbulence.
type StressResult struct {
	Periods []StressPeriod
	// WorstSharpe is the lowest Sharpe across replayed periods.
	WorstSharpe float64
	Robust      bool
}

// Stress ranks equal-width sub-periods of the candidate's range by
// realized volatility, replays the candidate on the most volatile ones,
// and flags it non-robust when any stressed Sharpe falls below zero.
func Stress(ctx context.Context, runner optimizer.Runner, candidate core.TrialSpec, candles []core.Candle, cfg StressConfig) (*StressResult, error) {
	if cfg.Chunks <= 0 {
		cfg.Chunks = 10
	}
	if cfg.Top <= 0 {
		cfg.Top = 3
	}
	if cfg.Top > cfg.Chunks {
		cfg.Top = cfg.Chunks
	}

	inRange := make([]core.Candle, 0, len(candles))
	for _, c := range candles {
		if candidate.Range.Contains(c.OpenTime) {
			inRange = append(inRange, c)
		}
	}
	if len(inRange) < cfg.Chunks*2 {
		return nil, core.ErrInsufficientData
	}

	chunkLen := len(inRange) / cfg.Chunks
	type chunk struct {
		rng core.DataRange
		vol float64
	}
	chunks := make([]chunk, 0, cfg.Chunks)
	for i := 0; i < cfg.Chunks; i++ {
		lo := i * chunkLen
		hi := lo + chunkLen
		if i == cfg.Chunks-1 {
			hi = len(inRange)
		}
		chunks = append(chunks, chunk{
			rng: core.DataRange{Start: inRange[lo].OpenTime, End: inRange[hi-1].CloseTime},
			vol: realizedVol(inRange[lo:hi]),
		})
	}

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].vol > chunks[j].vol })

	result := &StressResult{Robust: true, WorstSharpe: math.Inf(1)}
	for _, ch := range chunks[:cfg.Top] {
		spec := candidate
		spec.Range = ch.rng

		trial, err := runner.Run(ctx, spec)
		if err != nil {
			return nil, err
		}

		period := StressPeriod{
			Range:       ch.rng,
			RealizedVol: ch.vol,
			Sharpe:      trial.Metrics.Sharpe,
			ReturnPct:   trial.Metrics.ReturnPct,
		}
		result.Periods = append(result.Periods, period)

		if period.Sharpe < result.WorstSharpe {
			result.WorstSharpe = period.Sharpe
		}
		if period.Sharpe < 0 {
			result.Robust = false
		}
	}
	return result, nil
}

// realizedVol is the sample standard deviation of close-to-close log
// returns.
func realizedVol(candles []core.Candle) float64 {
	if len(candles) < 3 {
		return 0
	}
	rets := make([]float64, 0, len(candles)-1)
	prev, _ := candles[0].Close.Float64()
	for _, c := range candles[1:] {
		cur, _ := c.Close.Float64()
		if prev > 0 && cur > 0 {
			rets = append(rets, math.Log(cur/prev))
		}
		prev = cur
	}
	if len(rets) < 2 {
		return 0
	}
	return stat.StdDev(rets, nil)
}
