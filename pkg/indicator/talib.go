// Package indicator wraps go-talib behind window-aware helpers and a
// shared memoizing cache for the derived series.
package indicator

import (
	"fmt"

	"github.com/markcheno/go-talib"
	"github.com/quantlab-io/backtune/pkg/core"
)

// cachedSeries computes a full-frame series once per (frame, indicator,
// params) and slices it to the window's visible prefix. Without a cache
// on the window it just computes directly.
func cachedSeries(w *core.Window, id, params string, compute func() []float64) core.Series[float64] {
	if w.Cache == nil {
		return compute()[:w.End]
	}

	key := fmt.Sprintf("%s|%s|%s", w.Frame.Key(), id, params)
	series, err := w.Cache.GetOrCompute(key, func() ([]float64, error) {
		return compute(), nil
	})
	if err != nil {
		// Cache failures fall back to direct computation; the trial
		// decides whether the underlying error is fatal.
		return compute()[:w.End]
	}
	return core.Series[float64](series)[:w.End]
}

// SMA returns the simple moving average of closes, aligned to the window.
func SMA(w *core.Window, period int) core.Series[float64] {
	return cachedSeries(w, "sma", fmt.Sprint(period), func() []float64 {
		return talib.Sma(w.Frame.Close, period)
	})
}

// EMA returns the exponential moving average of closes.
func EMA(w *core.Window, period int) core.Series[float64] {
	return cachedSeries(w, "ema", fmt.Sprint(period), func() []float64 {
		return talib.Ema(w.Frame.Close, period)
	})
}

// RSI returns the relative strength index of closes.
func RSI(w *core.Window, period int) core.Series[float64] {
	return cachedSeries(w, "rsi", fmt.Sprint(period), func() []float64 {
		return talib.Rsi(w.Frame.Close, period)
	})
}

// ATR returns the average true range.
func ATR(w *core.Window, period int) core.Series[float64] {
	return cachedSeries(w, "atr", fmt.Sprint(period), func() []float64 {
		return talib.Atr(w.Frame.High, w.Frame.Low, w.Frame.Close, period)
	})
}

// StdDev returns the rolling standard deviation of closes.
func StdDev(w *core.Window, period int) core.Series[float64] {
	return cachedSeries(w, "stddev", fmt.Sprint(period), func() []float64 {
		return talib.StdDev(w.Frame.Close, period, 1.0)
	})
}

// Highest returns the rolling maximum of highs.
func Highest(w *core.Window, period int) core.Series[float64] {
	return cachedSeries(w, "highest", fmt.Sprint(period), func() []float64 {
		return talib.Max(w.Frame.High, period)
	})
}

// Lowest returns the rolling minimum of lows.
func Lowest(w *core.Window, period int) core.Series[float64] {
	return cachedSeries(w, "lowest", fmt.Sprint(period), func() []float64 {
		return talib.Min(w.Frame.Low, period)
	})
}
