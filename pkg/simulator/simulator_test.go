package simulator

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/quantlab-io/backtune/pkg/core"
	"github.com/quantlab-io/backtune/pkg/risk"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/quantlab-io/backtune/strategies"
)

// scriptedStrategy replays a fixed signal sequence, one per analyze
// tick, then holds. The script rides along in the params map so each
// trial gets a fresh instance.
type scriptedStrategy struct {
	signals []core.Signal
	next    int
}

func init() {
	core.RegisterStrategy("scripted", func(params core.Params) (core.Strategy, error) {
		script, _ := params["script"].([]core.Signal)
		return &scriptedStrategy{signals: script}, nil
	})
}

func (s *scriptedStrategy) Name() string      { return "scripted" }
func (s *scriptedStrategy) Timeframe() string { return "1h" }
func (s *scriptedStrategy) WarmupPeriod() int { return 2 }

func (s *scriptedStrategy) Analyze(w *core.Window) core.Signal {
	if s.next >= len(s.signals) {
		return core.Hold()
	}
	sig := s.signals[s.next]
	s.next++
	return sig
}

// fourHourBreakout is deliberately stateless: it decides purely from
// how many coarse bars it can see, so a repeated invocation on the same
// visible window would emit the same order again.
type fourHourBreakout struct{}

func init() {
	core.RegisterStrategy("four_hour_breakout", func(core.Params) (core.Strategy, error) {
		return fourHourBreakout{}, nil
	})
}

func (fourHourBreakout) Name() string      { return "four_hour_breakout" }
func (fourHourBreakout) Timeframe() string { return "4h" }
func (fourHourBreakout) WarmupPeriod() int { return 1 }

func (fourHourBreakout) Analyze(w *core.Window) core.Signal {
	switch w.Len() {
	case 2:
		return core.Buy(0.5)
	case 4:
		return core.Sell(1)
	}
	return core.Hold()
}

func (fourHourBreakout) AllowedRegimes() []core.RegimeLabel {
	return []core.RegimeLabel{core.RegimeTightRange, core.RegimeWideRange}
}

// alwaysBull pins the classifier to one label.
type alwaysBull struct{}

func (alwaysBull) Classify(*core.Window) core.RegimeLabel { return core.RegimeBullTrend }

func hourlyCandles(n int, price func(i int) float64) []core.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]core.Candle, n)
	for i := range candles {
		p := decimal.NewFromFloat(price(i))
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

func fullRange(candles []core.Candle) core.DataRange {
	return core.DataRange{
		Start: candles[0].OpenTime,
		End:   candles[len(candles)-1].CloseTime,
	}
}

func TestSimulator_FlatMarketProducesNothing(t *testing.T) {
	candles := hourlyCandles(1000, func(int) float64 { return 100 })

	sim := New(Config{InitialBalance: decimal.NewFromInt(10000)},
		"1h", map[string][]core.Candle{"BTCUSDT": candles})

	result, err := sim.Run(context.Background(), core.TrialSpec{
		Symbol:   "BTCUSDT",
		Strategy: "trend_following",
		Params:   core.Params{},
		Range:    fullRange(candles),
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Metrics.TradeCount)
	assert.Zero(t, result.Metrics.Sharpe)
	assert.Zero(t, result.Metrics.ReturnPct)
	assert.False(t, result.Halted)
}

func TestSimulator_DailyLossHalts(t *testing.T) {
	// Price collapses from 100 to 40 right after entry: a 600 loss on a
	// 1000 balance, beyond the 500 daily limit.
	candles := hourlyCandles(10, func(i int) float64 {
		if i < 3 {
			return 100
		}
		return 40
	})

	sim := New(Config{
		InitialBalance: decimal.NewFromInt(1000),
		Gate: risk.NewGate(risk.Config{
			MaxDailyLoss: decimal.NewFromInt(500),
		}),
	}, "1h", map[string][]core.Candle{"BTCUSDT": candles})

	result, err := sim.Run(context.Background(), core.TrialSpec{
		Symbol:   "BTCUSDT",
		Strategy: "scripted",
		Params: core.Params{"script": []core.Signal{
			core.Buy(1),
			core.Sell(1),
			core.Buy(1),
			core.Buy(1),
		}},
		Range: fullRange(candles),
	})
	require.NoError(t, err)

	assert.True(t, result.Halted)
	require.Len(t, result.Trades, 1, "no trades may execute after the halt bar")
	pnl, _ := result.Trades[0].PnL.Float64()
	assert.InDelta(t, -600, pnl, 1e-9)
}

func TestSimulator_CoarseTimeframeFiresOncePerBar(t *testing.T) {
	// 24 flat hourly bars close six 4h bars. The breakout strategy buys
	// half the balance the first time it sees two coarse bars; four base
	// bars share that window, so anything more than one fill means the
	// strategy was re-asked while its window had not moved.
	candles := hourlyCandles(24, func(int) float64 { return 100 })

	sim := New(Config{InitialBalance: decimal.NewFromInt(1000)},
		"1h", map[string][]core.Candle{"BTCUSDT": candles})

	result, err := sim.Run(context.Background(), core.TrialSpec{
		Symbol:   "BTCUSDT",
		Strategy: "four_hour_breakout",
		Params:   core.Params{},
		Range:    fullRange(candles),
	})
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	size, _ := result.Trades[0].Size.Float64()
	assert.InDelta(t, 5, size, 1e-9, "one 500-quote fill at price 100")
}

func TestSimulator_RegimeBlocksCountPerLabel(t *testing.T) {
	// The classifier always reports bull_trend, which the breakout
	// strategy does not trade. Every fresh 4h bar after warmup is
	// blocked, attributed to the blocking label.
	candles := hourlyCandles(24, func(int) float64 { return 100 })

	sim := New(Config{
		InitialBalance: decimal.NewFromInt(1000),
		Classifier:     alwaysBull{},
	}, "1h", map[string][]core.Candle{"BTCUSDT": candles})

	result, err := sim.Run(context.Background(), core.TrialSpec{
		Symbol:   "BTCUSDT",
		Strategy: "four_hour_breakout",
		Params:   core.Params{},
		Range:    fullRange(candles),
	})
	require.NoError(t, err)

	assert.Empty(t, result.Trades)
	assert.Equal(t, 6, result.RegimeBlocks)
	assert.Equal(t, map[core.RegimeLabel]int{core.RegimeBullTrend: 6}, result.RegimeBlocked)
}

func TestSimulator_Deterministic(t *testing.T) {
	candles := hourlyCandles(500, func(i int) float64 {
		return 100 + 10*math.Sin(float64(i)/20)
	})

	sim := New(Config{
		InitialBalance: decimal.NewFromInt(10000),
		FeeRate:        decimal.NewFromFloat(0.001),
	}, "1h", map[string][]core.Candle{"BTCUSDT": candles})

	spec := core.TrialSpec{
		Symbol:   "BTCUSDT",
		Strategy: "trend_following",
		Params:   core.Params{"ema_fast": 5, "ema_slow": 15},
		Range:    fullRange(candles),
	}

	first, err := sim.Run(context.Background(), spec)
	require.NoError(t, err)
	second, err := sim.Run(context.Background(), spec)
	require.NoError(t, err)

	assert.Equal(t, first.Metrics, second.Metrics)
	assert.Equal(t, len(first.Trades), len(second.Trades))
	assert.Greater(t, first.Metrics.TradeCount, 0, "sine series should trigger crossovers")
}

func TestSimulator_EmptyRangeFails(t *testing.T) {
	candles := hourlyCandles(10, func(int) float64 { return 100 })

	sim := New(Config{}, "1h", map[string][]core.Candle{"BTCUSDT": candles})

	_, err := sim.Run(context.Background(), core.TrialSpec{
		Symbol:   "BTCUSDT",
		Strategy: "trend_following",
		Range: core.DataRange{
			Start: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC),
		},
	})
	require.ErrorIs(t, err, core.ErrInsufficientData)
}
