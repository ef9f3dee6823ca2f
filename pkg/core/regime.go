package core

// RegimeLabel is a discrete label for prevailing market behavior on a
// classification timeframe. Labels are mutually exclusive.
type RegimeLabel int

const (
	RegimeUnknown RegimeLabel = iota
	RegimeTightRange
	RegimeWideRange
	RegimeQuietTransition
	RegimeVolatileTransition
	RegimeBullTrend
	RegimeBearTrend
)

// AllRegimes lists every classifiable regime, excluding RegimeUnknown.
var AllRegimes = []RegimeLabel{
	RegimeTightRange,
	RegimeWideRange,
	RegimeQuietTransition,
	RegimeVolatileTransition,
	RegimeBullTrend,
	RegimeBearTrend,
}

// String returns the canonical regime name
func (r RegimeLabel) String() string {
	switch r {
	case RegimeTightRange:
		return "tight_range"
	case RegimeWideRange:
		return "wide_range"
	case RegimeQuietTransition:
		return "quiet_transition"
	case RegimeVolatileTransition:
		return "volatile_transition"
	case RegimeBullTrend:
		return "bull_trend"
	case RegimeBearTrend:
		return "bear_trend"
	}
	return "unknown"
}

// Classifier labels a synchronized window with a market regime.
type Classifier interface {
	Classify(w *Window) RegimeLabel
}

// RegimeAware is an optional capability a strategy may implement to
// restrict the regimes it is permitted to trade in. Strategies without
// it trade in every regime.
type RegimeAware interface {
	AllowedRegimes() []RegimeLabel
}
