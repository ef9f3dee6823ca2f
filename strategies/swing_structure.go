package strategies

import (
	"math"

	"github.com/quantlab-io/backtune/pkg/core"
	"github.com/quantlab-io/backtune/pkg/indicator"
)

func init() {
	core.RegisterStrategy("swing_structure", NewSwingStructure)
}

// SwingStructure trades breaks of confirmed market structure: a close
// above the last confirmed swing high opens a position, a close below
// the last confirmed swing low closes it. Pivots confirm k bars late, so
// the break level is always one the market already printed.
type SwingStructure struct {
	timeframe string
	pivotK    int
	size      float64
}

// NewSwingStructure builds the variant from a parameter assignment.
func NewSwingStructure(params core.Params) (core.Strategy, error) {
	s := &SwingStructure{}
	var err error
	if s.timeframe, err = params.String("timeframe", "4h"); err != nil {
		return nil, err
	}
	if s.pivotK, err = params.Int("pivot_k", 3); err != nil {
		return nil, err
	}
	if s.size, err = params.Float("size", 0.5); err != nil {
		return nil, err
	}
	if s.pivotK < 1 {
		return nil, &core.InvalidParameterError{
			Name: "pivot_k", Value: s.pivotK,
			Reason: "must be at least 1",
		}
	}
	return s, nil
}

func (s *SwingStructure) Name() string { return "swing_structure" }

func (s *SwingStructure) Timeframe() string { return s.timeframe }

func (s *SwingStructure) WarmupPeriod() int { return s.pivotK*2 + 10 }

func (s *SwingStructure) Analyze(w *core.Window) core.Signal {
	highs := indicator.SwingHighs(w, s.pivotK)
	lows := indicator.SwingLows(w, s.pivotK)

	price := w.Close().Last(0)
	lastHigh := highs.Last(0)
	lastLow := lows.Last(0)

	if !math.IsNaN(lastHigh) && price > lastHigh && w.Close().Last(1) <= lastHigh {
		sig := core.Buy(s.size)
		sig.Reason = "swing high break"
		return sig
	}
	if !math.IsNaN(lastLow) && price < lastLow {
		sig := core.Sell(1)
		sig.Reason = "swing low break"
		return sig
	}
	return core.Hold()
}
