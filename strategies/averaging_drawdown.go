package strategies

import (
	"github.com/quantlab-io/backtune/pkg/core"
	"github.com/quantlab-io/backtune/pkg/indicator"
)

func init() {
	core.RegisterStrategy("averaging_drawdown", NewAveragingDrawdown)
}

// AveragingDrawdown buys in tranches as price extends below its moving
// average and exits the whole position once price recovers a configured
// margin above it. Each dip entry lowers the volume-weighted basis, so
// the recovery exit needs less of a bounce than the first entry did.
type AveragingDrawdown struct {
	timeframe string
	maPeriod  int
	dropPct   float64
	takePct   float64
	tranche   float64
}

// NewAveragingDrawdown builds the variant from a parameter assignment.
func NewAveragingDrawdown(params core.Params) (core.Strategy, error) {
	s := &AveragingDrawdown{}
	var err error
	if s.timeframe, err = params.String("timeframe", "1h"); err != nil {
		return nil, err
	}
	if s.maPeriod, err = params.Int("ma_period", 50); err != nil {
		return nil, err
	}
	if s.dropPct, err = params.Float("drop_pct", 0.03); err != nil {
		return nil, err
	}
	if s.takePct, err = params.Float("take_pct", 0.02); err != nil {
		return nil, err
	}
	if s.tranche, err = params.Float("tranche", 0.15); err != nil {
		return nil, err
	}
	if s.dropPct <= 0 {
		return nil, &core.InvalidParameterError{
			Name: "drop_pct", Value: s.dropPct,
			Reason: "must be positive",
		}
	}
	return s, nil
}

func (s *AveragingDrawdown) Name() string { return "averaging_drawdown" }

func (s *AveragingDrawdown) Timeframe() string { return s.timeframe }

func (s *AveragingDrawdown) WarmupPeriod() int { return s.maPeriod + 1 }

func (s *AveragingDrawdown) Analyze(w *core.Window) core.Signal {
	sma := indicator.SMA(w, s.maPeriod)
	anchor := sma.Last(0)
	if anchor <= 0 {
		return core.Hold()
	}
	price := w.Close().Last(0)
	stretch := (price - anchor) / anchor

	if stretch <= -s.dropPct {
		sig := core.Buy(s.tranche)
		sig.Reason = "averaging into drawdown"
		return sig
	}
	if stretch >= s.takePct {
		sig := core.Sell(1)
		sig.Reason = "recovered above anchor"
		return sig
	}
	return core.Hold()
}
