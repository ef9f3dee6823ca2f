package feed

import (
	"fmt"
	"time"

	"github.com/quantlab-io/backtune/pkg/core"
	"github.com/samber/lo"
)

// Config controls window production.
type Config struct {
	// HigherTimeframes are the coarser resolutions resampled from the
	// base series and attached to every window.
	HigherTimeframes []string
	// WarmupBars is the number of leading base bars during which no
	// analyze windows are produced.
	WarmupBars int
	// AnalyzeEvery is the stride, in base bars, between analyze ticks.
	// Zero or one means every bar.
	AnalyzeEvery int
	// GapTolerance is the largest tolerated spacing between consecutive
	// base candles, expressed in multiples of the base interval. Gaps
	// beyond it invalidate the range. Zero means 1.5x.
	GapTolerance float64
	// Cache is attached to produced windows so consumers share derived
	// series across trials. Optional.
	Cache core.IndicatorCache
}

// Feed produces lazy, synchronized multi-timeframe windows over a base
// frame. It is read-only after construction and safe for concurrent
// WindowAt calls.
type Feed struct {
	base   *core.Frame
	higher map[string]*core.Frame

	// visible[tf][i] is the count of tf-candles fully closed at or
	// before the close of base bar i. Precomputed so WindowAt is O(1)
	// per timeframe and can never look ahead into an unclosed candle.
	visible map[string][]int

	cfg Config
}

// New builds a feed from an ordered candle series. The range is gap
// checked up front; resampled frames are built once and shared by all
// windows.
func New(candles []core.Candle, symbol, timeframe string, cfg Config) (*Feed, error) {
	if len(candles) == 0 {
		return nil, fmt.Errorf("%w: %s has no candles", core.ErrInsufficientData, symbol)
	}

	if err := checkGaps(candles, symbol, timeframe, cfg.GapTolerance); err != nil {
		return nil, err
	}

	f := &Feed{
		base:    core.NewFrame(symbol, timeframe, candles),
		higher:  make(map[string]*core.Frame, len(cfg.HigherTimeframes)),
		visible: make(map[string][]int, len(cfg.HigherTimeframes)),
		cfg:     cfg,
	}

	for _, tf := range lo.Uniq(cfg.HigherTimeframes) {
		if tf == timeframe {
			continue
		}
		resampled, err := Resample(candles, timeframe, tf)
		if err != nil {
			return nil, fmt.Errorf("resample %s to %s: %w", timeframe, tf, err)
		}
		frame := core.NewFrame(symbol, tf, resampled)
		f.higher[tf] = frame
		f.visible[tf] = closedCounts(f.base, frame)
	}

	return f, nil
}

// closedCounts aligns a coarser frame to the base frame: for each base
// index, how many coarse candles closed at or before that base bar's
// close. Two-pointer sweep over both ordered series.
func closedCounts(base, coarse *core.Frame) []int {
	counts := make([]int, base.Len())
	j := 0
	for i := 0; i < base.Len(); i++ {
		for j < coarse.Len() && !coarse.CloseTime[j].After(base.CloseTime[i]) {
			j++
		}
		counts[i] = j
	}
	return counts
}

// checkGaps rejects candle series with holes beyond the tolerance.
// Interpolating over a gap would fabricate prices, so the range is
// invalidated instead.
func checkGaps(candles []core.Candle, symbol, timeframe string, tolerance float64) error {
	interval, err := ParseTimeframe(timeframe)
	if err != nil {
		return err
	}
	if tolerance <= 0 {
		tolerance = 1.5
	}
	limit := time.Duration(float64(interval) * tolerance)

	for i := 1; i < len(candles); i++ {
		delta := candles[i].OpenTime.Sub(candles[i-1].OpenTime)
		if delta > limit {
			return &core.DataGapError{
				Symbol:    symbol,
				Timeframe: timeframe,
				At:        candles[i-1].OpenTime.Add(interval),
				Gap:       delta - interval,
			}
		}
	}
	return nil
}

// Len returns the number of base bars
func (f *Feed) Len() int { return f.base.Len() }

// Base returns the base frame
func (f *Feed) Base() *core.Frame { return f.base }

// Higher returns the resampled frame for a coarser timeframe, or nil.
func (f *Feed) Higher(timeframe string) *core.Frame { return f.higher[timeframe] }

// WindowAt produces the synchronized window at base index i. Coarser
// windows contain only candles whose close time is at or before the
// base bar's close time, so no future information can leak.
func (f *Feed) WindowAt(i int) (*core.Window, error) {
	if i < 0 || i >= f.base.Len() {
		return nil, fmt.Errorf("window index %d out of range [0, %d)", i, f.base.Len())
	}

	w := &core.Window{
		Frame:  f.base,
		End:    i + 1,
		Higher: make(map[string]*core.Window, len(f.higher)),
		Cache:  f.cfg.Cache,
	}
	for tf, frame := range f.higher {
		closed := f.visible[tf][i]
		if closed == 0 {
			continue
		}
		w.Higher[tf] = &core.Window{Frame: frame, End: closed, Cache: f.cfg.Cache}
	}
	return w, nil
}

// ShouldAnalyze reports whether base index i is an analyze tick, given
// the warmup span and stride.
func (f *Feed) ShouldAnalyze(i int) bool {
	if i < f.cfg.WarmupBars {
		return false
	}
	stride := f.cfg.AnalyzeEvery
	if stride <= 1 {
		return true
	}
	return (i-f.cfg.WarmupBars)%stride == 0
}

// SliceRange returns the base candle subset inside the given data range.
func (f *Feed) SliceRange(r core.DataRange) []core.Candle {
	return lo.Filter(f.base.Candles, func(c core.Candle, _ int) bool {
		return r.Contains(c.OpenTime)
	})
}
