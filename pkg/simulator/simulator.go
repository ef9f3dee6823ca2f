// Package simulator replays historical windows through a strategy and
// produces scored trial results with exact decimal accounting.
package simulator

import (
	"context"
	"fmt"
	"time"

	"github.com/quantlab-io/backtune/pkg/core"
	"github.com/quantlab-io/backtune/pkg/feed"
	"github.com/quantlab-io/backtune/pkg/logger"
	"github.com/shopspring/decimal"
)

// Config holds the execution assumptions shared by every trial.
type Config struct {
	InitialBalance decimal.Decimal
	// FeeRate is the taker fee as a fraction of notional (0.001 = 10bp).
	FeeRate decimal.Decimal
	// Slippage shifts market fills against the trade, as a fraction.
	Slippage decimal.Decimal
	// FillModel resolves limit-hint fills. Defaults to FillClose.
	FillModel FillModel

	// AnalyzeEvery is the stride, in base bars, between strategy
	// invocations. Zero or one means every bar.
	AnalyzeEvery int
	// GapTolerance is passed through to the feed.
	GapTolerance float64
	// ExtraTimeframes are resampled in addition to the strategy's and
	// classifier's own timeframes.
	ExtraTimeframes []string

	// Classifier enables regime filtering when set.
	Classifier core.Classifier
	// ClassifierTimeframe is the timeframe the classifier reads.
	// Empty means the base timeframe.
	ClassifierTimeframe string

	// Gate is consulted for every signal. Nil disables risk checks.
	Gate core.RiskGate

	// Cache is shared across trials for derived series.
	Cache core.IndicatorCache

	Log logger.Logger
}

// Simulator replays one (symbol, strategy, params, range) combination
// bar by bar. It holds only read-only data and config, so a single
// instance serves many concurrent Run calls.
type Simulator struct {
	cfg           Config
	baseTimeframe string
	data          map[string][]core.Candle
}

// New builds a simulator over per-symbol base-resolution history.
func New(cfg Config, baseTimeframe string, data map[string][]core.Candle) *Simulator {
	if cfg.Log == nil {
		cfg.Log = logger.Nop()
	}
	if cfg.InitialBalance.IsZero() {
		cfg.InitialBalance = decimal.NewFromInt(10000)
	}
	return &Simulator{cfg: cfg, baseTimeframe: baseTimeframe, data: data}
}

// Run executes one trial to completion. The returned error marks the
// trial failed; it never aborts sibling trials.
func (s *Simulator) Run(ctx context.Context, spec core.TrialSpec) (*core.TrialResult, error) {
	strategy, err := core.NewStrategy(spec.Strategy, spec.Params)
	if err != nil {
		return nil, err
	}

	candles := s.sliceRange(spec.Symbol, spec.Range)
	if len(candles) == 0 {
		return nil, fmt.Errorf("%w: %s has no candles in range", core.ErrInsufficientData, spec.Symbol)
	}

	warmupBars, err := s.warmupBars(strategy)
	if err != nil {
		return nil, err
	}

	f, err := feed.New(candles, spec.Symbol, s.baseTimeframe, feed.Config{
		HigherTimeframes: s.higherTimeframes(strategy),
		WarmupBars:       warmupBars,
		AnalyzeEvery:     s.cfg.AnalyzeEvery,
		GapTolerance:     s.cfg.GapTolerance,
		Cache:            s.cfg.Cache,
	})
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	acct := core.NewAccountState(s.cfg.InitialBalance)
	engine := newFillEngine(s.cfg.FillModel, s.cfg.FeeRate, s.cfg.Slippage)
	allowed := allowedRegimes(strategy)

	result := &core.TrialResult{Spec: spec}

	// Bars visible to the strategy at its last invocation. A strategy on
	// a coarser timeframe must not be re-asked while its window is
	// unchanged: the same one-shot condition would fill once per base bar
	// of the still-open coarse candle.
	strategyBars := 0

	for i := 0; i < f.Len(); i++ {
		candle := f.Base().Candles[i]
		acct.RollDay(candle.CloseTime)

		if engine.MatchPending(candle, acct) {
			acct.SampleEquity(candle.CloseTime, candle.Close)
		}

		if !f.ShouldAnalyze(i) {
			continue
		}

		w, err := f.WindowAt(i)
		if err != nil {
			return nil, err
		}

		signal := core.Hold()
		if sw := w.On(strategy.Timeframe()); sw.Len() > strategyBars {
			strategyBars = sw.Len()
			if label, blocked := s.regimeBlocked(w, allowed); blocked {
				result.CountRegimeBlock(label)
			} else {
				signal = strategy.Analyze(sw)
			}
		}

		if s.cfg.Gate != nil {
			switch s.cfg.Gate.Evaluate(signal, acct) {
			case core.DecisionHalt:
				result.Halted = true
			case core.DecisionReject:
				if signal.IsActionable() {
					result.RiskBlocks++
				}
				signal = core.Hold()
			}
		}
		if result.Halted {
			engine.CancelPending()
			acct.SampleEquity(candle.CloseTime, candle.Close)
			break
		}

		if signal.IsActionable() {
			engine.Submit(signal, candle, acct)
		}
		acct.SampleEquity(candle.CloseTime, candle.Close)
	}

	result.Trades = acct.Trades
	result.Equity = acct.Equity
	result.Metrics = ComputeMetrics(acct)
	result.CompletedAt = time.Now().UTC()

	s.cfg.Log.WithFields(map[string]any{
		"symbol":   spec.Symbol,
		"strategy": spec.Strategy,
		"trades":   result.Metrics.TradeCount,
		"return":   fmt.Sprintf("%.2f%%", result.Metrics.ReturnPct),
		"halted":   result.Halted,
	}).Debug("trial complete")

	return result, nil
}

func (s *Simulator) sliceRange(symbol string, r core.DataRange) []core.Candle {
	all := s.data[symbol]
	out := make([]core.Candle, 0, len(all))
	for _, c := range all {
		if r.Contains(c.OpenTime) {
			out = append(out, c)
		}
	}
	return out
}

// warmupBars converts the strategy's warmup period, measured on its own
// timeframe, into base bars, and reserves room for the classifier too.
func (s *Simulator) warmupBars(strategy core.Strategy) (int, error) {
	baseDur, err := feed.ParseTimeframe(s.baseTimeframe)
	if err != nil {
		return 0, err
	}

	warmup := barsOn(strategy.WarmupPeriod(), strategy.Timeframe(), baseDur)

	if wp, ok := s.cfg.Classifier.(interface{ WarmupPeriod() int }); ok {
		tf := s.cfg.ClassifierTimeframe
		if tf == "" {
			tf = s.baseTimeframe
		}
		if cw := barsOn(wp.WarmupPeriod(), tf, baseDur); cw > warmup {
			warmup = cw
		}
	}
	return warmup, nil
}

func barsOn(periods int, timeframe string, baseDur time.Duration) int {
	dur, err := feed.ParseTimeframe(timeframe)
	if err != nil || dur <= baseDur {
		return periods
	}
	return periods * int(dur/baseDur)
}

func (s *Simulator) higherTimeframes(strategy core.Strategy) []string {
	tfs := append([]string{}, s.cfg.ExtraTimeframes...)
	if tf := strategy.Timeframe(); tf != "" && tf != s.baseTimeframe {
		tfs = append(tfs, tf)
	}
	if tf := s.cfg.ClassifierTimeframe; tf != "" && tf != s.baseTimeframe {
		tfs = append(tfs, tf)
	}
	return tfs
}

func allowedRegimes(strategy core.Strategy) map[core.RegimeLabel]bool {
	aware, ok := strategy.(core.RegimeAware)
	if !ok {
		return nil
	}
	allowed := make(map[core.RegimeLabel]bool)
	for _, r := range aware.AllowedRegimes() {
		allowed[r] = true
	}
	return allowed
}

// regimeBlocked reports whether the current regime forbids invoking the
// strategy, and which label blocked it. Unknown regimes never block.
func (s *Simulator) regimeBlocked(w *core.Window, allowed map[core.RegimeLabel]bool) (core.RegimeLabel, bool) {
	if s.cfg.Classifier == nil || allowed == nil {
		return core.RegimeUnknown, false
	}
	label := s.cfg.Classifier.Classify(w.On(s.cfg.ClassifierTimeframe))
	if label == core.RegimeUnknown {
		return label, false
	}
	return label, !allowed[label]
}
