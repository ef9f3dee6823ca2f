package strategies

import (
	"github.com/quantlab-io/backtune/pkg/core"
	"github.com/quantlab-io/backtune/pkg/indicator"
)

func init() {
	core.RegisterStrategy("range_trading", NewRangeTrading)
}

// RangeTrading fades RSI extremes: buys oversold, sells overbought.
type RangeTrading struct {
	timeframe  string
	rsiPeriod  int
	oversold   float64
	overbought float64
	size       float64
}

// NewRangeTrading builds the variant from a parameter assignment.
func NewRangeTrading(params core.Params) (core.Strategy, error) {
	s := &RangeTrading{}
	var err error
	if s.timeframe, err = params.String("timeframe", "1h"); err != nil {
		return nil, err
	}
	if s.rsiPeriod, err = params.Int("rsi_period", 14); err != nil {
		return nil, err
	}
	if s.oversold, err = params.Float("oversold", 30); err != nil {
		return nil, err
	}
	if s.overbought, err = params.Float("overbought", 70); err != nil {
		return nil, err
	}
	if s.size, err = params.Float("size", 0.5); err != nil {
		return nil, err
	}
	if s.oversold >= s.overbought {
		return nil, &core.InvalidParameterError{
			Name: "oversold", Value: s.oversold,
			Reason: "oversold level must be below overbought level",
		}
	}
	return s, nil
}

func (s *RangeTrading) Name() string { return "range_trading" }

func (s *RangeTrading) Timeframe() string { return s.timeframe }

func (s *RangeTrading) WarmupPeriod() int { return s.rsiPeriod * 4 }

// AllowedRegimes restricts mean reversion to ranging markets; fading a
// trend is how reversion strategies blow up.
func (s *RangeTrading) AllowedRegimes() []core.RegimeLabel {
	return []core.RegimeLabel{
		core.RegimeTightRange,
		core.RegimeWideRange,
	}
}

func (s *RangeTrading) Analyze(w *core.Window) core.Signal {
	rsi := indicator.RSI(w, s.rsiPeriod)

	// Cross back through the band, not the raw level: entering on the
	// recross avoids buying straight into a falling knife.
	prev, cur := rsi.Last(1), rsi.Last(0)
	if prev < s.oversold && cur >= s.oversold {
		sig := core.Buy(s.size)
		sig.Reason = "rsi oversold recross"
		return sig
	}
	if prev > s.overbought && cur <= s.overbought {
		sig := core.Sell(1)
		sig.Reason = "rsi overbought recross"
		return sig
	}
	return core.Hold()
}
