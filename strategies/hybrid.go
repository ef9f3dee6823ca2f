package strategies

import (
	"github.com/quantlab-io/backtune/pkg/core"
	"github.com/quantlab-io/backtune/pkg/indicator"
	"github.com/quantlab-io/backtune/pkg/regime"
)

func init() {
	core.RegisterStrategy("hybrid", NewHybrid)
}

// Hybrid switches between trend following and range fading based on its
// own regime read of the window. Transitions are treated as no-trade
// zones: the two sub-styles disagree there and neither has edge.
type Hybrid struct {
	timeframe string
	emaFast   int
	emaSlow   int
	rsiPeriod int
	oversold  float64
	size      float64

	detector *regime.Detector
}

// NewHybrid builds the variant from a parameter assignment.
func NewHybrid(params core.Params) (core.Strategy, error) {
	s := &Hybrid{detector: regime.NewDetector(regime.DefaultConfig())}
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
	if s.rsiPeriod, err = params.Int("rsi_period", 14); err != nil {
		return nil, err
	}
	if s.oversold, err = params.Float("oversold", 30); err != nil {
		return nil, err
	}
	if s.size, err = params.Float("size", 0.5); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Hybrid) Name() string { return "hybrid" }

func (s *Hybrid) Timeframe() string { return s.timeframe }

func (s *Hybrid) WarmupPeriod() int {
	warmup := s.emaSlow * 3
	if d := s.detector.WarmupPeriod(); d > warmup {
		warmup = d
	}
	return warmup
}

func (s *Hybrid) Analyze(w *core.Window) core.Signal {
	switch s.detector.Classify(w) {
	case core.RegimeBullTrend, core.RegimeBearTrend:
		return s.trend(w)
	case core.RegimeTightRange, core.RegimeWideRange:
		return s.fade(w)
	}
	return core.Hold()
}

func (s *Hybrid) trend(w *core.Window) core.Signal {
	fast := indicator.EMA(w, s.emaFast)
	slow := indicator.EMA(w, s.emaSlow)

	if fast.Crossover(slow) {
		sig := core.Buy(s.size)
		sig.Reason = "hybrid trend entry"
		return sig
	}
	if fast.Crossunder(slow) {
		sig := core.Sell(1)
		sig.Reason = "hybrid trend exit"
		return sig
	}
	return core.Hold()
}

func (s *Hybrid) fade(w *core.Window) core.Signal {
	rsi := indicator.RSI(w, s.rsiPeriod)
	overbought := 100 - s.oversold

	prev, cur := rsi.Last(1), rsi.Last(0)
	if prev < s.oversold && cur >= s.oversold {
		sig := core.Buy(s.size)
		sig.Reason = "hybrid range entry"
		return sig
	}
	if prev > overbought && cur <= overbought {
		sig := core.Sell(1)
		sig.Reason = "hybrid range exit"
		return sig
	}
	return core.Hold()
}
