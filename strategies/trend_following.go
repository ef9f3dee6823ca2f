package strategies

import (
	"github.com/quantlab-io/backtune/pkg/core"
	"github.com/quantlab-io/backtune/pkg/indicator"
)

func init() {
	core.RegisterStrategy("trend_following", NewTrendFollowing)
}

// TrendFollowing trades EMA crossovers, entering when the fast average
// crosses above the slow one and exiting on the opposite cross.
type TrendFollowing struct {
	timeframe string
	emaFast   int
	emaSlow   int
	size      float64
}

// NewTrendFollowing builds the variant from a parameter assignment.
func NewTrendFollowing(params core.Params) (core.Strategy, error) {
	s := &TrendFollowing{}
	var err error
	if s.timeframe, err = params.String("timeframe", "1h"); err != nil {
		return nil, err
	}
	if s.emaFast, err = params.Int("ema_fast", 9); err != nil {
		return nil, err
	}
	if s.emaSlow, err = params.Int("ema_slow", 21); err != nil {
		return nil, err
	}
	if s.size, err = params.Float("size", 0.5); err != nil {
		return nil, err
	}
	if s.emaFast >= s.emaSlow {
		return nil, &core.InvalidParameterError{
			Name: "ema_fast", Value: s.emaFast,
			Reason: "fast period must be shorter than slow period",
		}
	}
	return s, nil
}

func (s *TrendFollowing) Name() string { return "trend_following" }

func (s *TrendFollowing) Timeframe() string { return s.timeframe }

func (s *TrendFollowing) WarmupPeriod() int { return s.emaSlow * 3 }

// AllowedRegimes keeps the crossover out of ranging markets, where it
// whipsaws.
func (s *TrendFollowing) AllowedRegimes() []core.RegimeLabel {
	return []core.RegimeLabel{
		core.RegimeBullTrend,
		core.RegimeBearTrend,
		core.RegimeQuietTransition,
	}
}

func (s *TrendFollowing) Analyze(w *core.Window) core.Signal {
	fast := indicator.EMA(w, s.emaFast)
	slow := indicator.EMA(w, s.emaSlow)

	if fast.Crossover(slow) {
		sig := core.Buy(s.size)
		sig.Reason = "ema crossover"
		return sig
	}
	if fast.Crossunder(slow) {
		sig := core.Sell(1)
		sig.Reason = "ema crossunder"
		return sig
	}
	return core.Hold()
}
