package validate

import (
	"context"
	"testing"
	"time"

	"github.com/quantlab-io/backtune/pkg/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stressCandles builds hourly candles: calm at 100, with the final
// quarter whipsawing between 100 and 140.
func stressCandles(n int) []core.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]core.Candle, n)
	for i := range candles {
		price := 100.0
		if i >= n*3/4 && i%2 == 1 {
			price = 140.0
		}
		p := decimal.NewFromFloat(price)
		candles[i] = core.Candle{
			Symbol:    "BTCUSDT",
			OpenTime:  start.Add(time.Duration(i) * time.Hour),
			CloseTime: start.Add(time.Duration(i+1)*time.Hour - time.Second),
			Open:      p,
			High:      p,
			Low:       p,
			Close:     p,
			Volume:    decimal.NewFromInt(1),
			Complete:  true,
		}
	}
	return candles
}

func stressCandidate(candles []core.Candle) core.TrialSpec {
	return core.TrialSpec{
		Symbol:    "BTCUSDT",
		Strategy:  "trend_following",
		Params:    core.Params{"ema_fast": 9, "ema_slow": 21},
		Range:     core.DataRange{Start: candles[0].OpenTime, End: candles[len(candles)-1].CloseTime},
		Objective: "sharpe",
	}
}

func TestStress_ReplaysMostVolatileChunks(t *testing.T) {
	candles := stressCandles(80)
	runner := &scoreRunner{score: constScore(1.0)}

	result, err := Stress(context.Background(), runner, stressCandidate(candles), candles, StressConfig{Chunks: 4, Top: 1})
	require.NoError(t, err)

	require.Len(t, result.Periods, 1)
	assert.True(t, result.Robust)
	assert.Equal(t, 1.0, result.WorstSharpe)

	// The whipsaw quarter must be the chunk selected for replay.
	period := result.Periods[0]
	assert.False(t, period.Range.Start.Before(candles[60].OpenTime))
	assert.Greater(t, period.RealizedVol, 0.0)
}

func TestStress_NegativeSharpeFlagsNonRobust(t *testing.T) {
	candles := stressCandles(80)
	runner := &scoreRunner{score: constScore(-0.5)}

	result, err := Stress(context.Background(), runner, stressCandidate(candles), candles, StressConfig{Chunks: 4, Top: 2})
	require.NoError(t, err)

	assert.False(t, result.Robust)
	assert.Equal(t, -0.5, result.WorstSharpe)
	assert.Len(t, result.Periods, 2)
}

func TestStress_InsufficientData(t *testing.T) {
	candles := stressCandles(12)
	_, err := Stress(context.Background(), &scoreRunner{score: constScore(1)}, stressCandidate(candles), candles, StressConfig{Chunks: 10})
	assert.ErrorIs(t, err, core.ErrInsufficientData)
}

func TestStress_TopClampedToChunks(t *testing.T) {
	candles := stressCandles(40)
	runner := &scoreRunner{score: constScore(0.5)}

	result, err := Stress(context.Background(), runner, stressCandidate(candles), candles, StressConfig{Chunks: 3, Top: 9})
	require.NoError(t, err)
	assert.Len(t, result.Periods, 3)
}
