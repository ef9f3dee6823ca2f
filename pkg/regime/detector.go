// Package regime labels market windows with one of six mutually
// exclusive behavior classes, used to route strategies away from
// conditions they are not built for.
package regime

import (
	"math"

	"github.com/quantlab-io/backtune/pkg/core"
	"github.com/quantlab-io/backtune/pkg/indicator"
)

// Config holds the detector thresholds. Trend strength is the relative
// distance between the fast and slow EMA; volatility is ATR relative to
// price.
type Config struct {
	EMAFast   int
	EMASlow   int
	ATRPeriod int

	// TrendThreshold is the minimum EMA distance for a trend label.
	// Half of it marks the transition band.
	TrendThreshold float64
	// HighVol splits quiet from volatile transitions.
	HighVol float64
	// LowVol splits tight from wide ranges.
	LowVol float64
}

// DefaultConfig returns thresholds tuned for hourly crypto series.
func DefaultConfig() Config {
	return Config{
		EMAFast:        21,
		EMASlow:        55,
		ATRPeriod:      14,
		TrendThreshold: 0.02,
		HighVol:        0.03,
		LowVol:         0.012,
	}
}

// Detector is the default core.Classifier implementation.
type Detector struct {
	cfg Config
}

// NewDetector builds a detector; zero-valued config fields fall back to
// defaults.
func NewDetector(cfg Config) *Detector {
	def := DefaultConfig()
	if cfg.EMAFast <= 0 {
		cfg.EMAFast = def.EMAFast
	}
	if cfg.EMASlow <= 0 {
		cfg.EMASlow = def.EMASlow
	}
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = def.ATRPeriod
	}
	if cfg.TrendThreshold <= 0 {
		cfg.TrendThreshold = def.TrendThreshold
	}
	if cfg.HighVol <= 0 {
		cfg.HighVol = def.HighVol
	}
	if cfg.LowVol <= 0 {
		cfg.LowVol = def.LowVol
	}
	return &Detector{cfg: cfg}
}

var _ core.Classifier = (*Detector)(nil)

// WarmupPeriod returns the bars needed before classifications are
// meaningful.
func (d *Detector) WarmupPeriod() int {
	return d.cfg.EMASlow + 1
}

// Classify labels the window. Windows shorter than the warmup period
// are RegimeUnknown.
func (d *Detector) Classify(w *core.Window) core.RegimeLabel {
	if w.Len() < d.WarmupPeriod() {
		return core.RegimeUnknown
	}

	fast := indicator.EMA(w, d.cfg.EMAFast).Last(0)
	slow := indicator.EMA(w, d.cfg.EMASlow).Last(0)
	atr := indicator.ATR(w, d.cfg.ATRPeriod).Last(0)
	price := w.Close().Last(0)

	if price <= 0 || math.IsNaN(fast) || math.IsNaN(slow) || math.IsNaN(atr) {
		return core.RegimeUnknown
	}

	trend := (fast - slow) / price
	vol := atr / price

	switch {
	case trend >= d.cfg.TrendThreshold:
		return core.RegimeBullTrend
	case trend <= -d.cfg.TrendThreshold:
		return core.RegimeBearTrend
	case math.Abs(trend) >= d.cfg.TrendThreshold/2:
		if vol >= d.cfg.HighVol {
			return core.RegimeVolatileTransition
		}
		return core.RegimeQuietTransition
	case vol <= d.cfg.LowVol:
		return core.RegimeTightRange
	default:
		return core.RegimeWideRange
	}
}
