package indicator

import (
	"fmt"
	"math"

	"github.com/quantlab-io/backtune/pkg/core"
)

// SwingHighs returns, per bar, the most recent confirmed swing high.
// A pivot at bar p is a high strictly above its k neighbors on both
// sides; it is confirmed only at bar p+k, so the series never encodes
// future information. Bars before the first confirmed pivot are NaN.
func SwingHighs(w *core.Window, k int) core.Series[float64] {
	return cachedSeries(w, "swing_high", fmt.Sprint(k), func() []float64 {
		return swingSeries(w.Frame.High, k, func(a, b float64) bool { return a > b })
	})
}

// SwingLows returns, per bar, the most recent confirmed swing low.
func SwingLows(w *core.Window, k int) core.Series[float64] {
	return cachedSeries(w, "swing_low", fmt.Sprint(k), func() []float64 {
		return swingSeries(w.Frame.Low, k, func(a, b float64) bool { return a < b })
	})
}

func swingSeries(values []float64, k int, better func(a, b float64) bool) []float64 {
	out := make([]float64, len(values))
	last := math.NaN()

	for i := range values {
		// A pivot centered at i-k is confirmed once bar i closes.
		p := i - k
		if p >= k && isPivot(values, p, k, better) {
			last = values[p]
		}
		out[i] = last
	}
	return out
}

func isPivot(values []float64, p, k int, better func(a, b float64) bool) bool {
	for j := p - k; j <= p+k; j++ {
		if j == p || j < 0 || j >= len(values) {
			continue
		}
		if !better(values[p], values[j]) {
			return false
		}
	}
	return true
}
