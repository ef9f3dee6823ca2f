package core

import (
	"fmt"
	"time"
)

// Frame is the float-valued view of a candle series for one timeframe.
// Indicator math runs on these slices; exact fill accounting reads the
// decimal Candles directly. A Frame is built once per run and read-only
// afterwards, so it may be shared freely across workers.
type Frame struct {
	Symbol    string
	Timeframe string

	Time      []time.Time
	CloseTime []time.Time

	Open   Series[float64]
	High   Series[float64]
	Low    Series[float64]
	Close  Series[float64]
	Volume Series[float64]

	Candles []Candle
}

// NewFrame builds a Frame from an ordered candle slice.
func NewFrame(symbol, timeframe string, candles []Candle) *Frame {
	f := &Frame{
		Symbol:    symbol,
		Timeframe: timeframe,
		Time:      make([]time.Time, len(candles)),
		CloseTime: make([]time.Time, len(candles)),
		Open:      make(Series[float64], len(candles)),
		High:      make(Series[float64], len(candles)),
		Low:       make(Series[float64], len(candles)),
		Close:     make(Series[float64], len(candles)),
		Volume:    make(Series[float64], len(candles)),
		Candles:   candles,
	}

	for i, c := range candles {
		f.Time[i] = c.OpenTime
		f.CloseTime[i] = c.CloseTime
		f.Open[i], _ = c.Open.Float64()
		f.High[i], _ = c.High.Float64()
		f.Low[i], _ = c.Low.Float64()
		f.Close[i], _ = c.Close.Float64()
		f.Volume[i], _ = c.Volume.Float64()
	}

	return f
}

// Len returns the number of candles in the frame
func (f *Frame) Len() int { return len(f.Candles) }

// Key returns a stable identifier for the frame's data range, used to
// scope cached indicator series to one (symbol, timeframe, range).
func (f *Frame) Key() string {
	if f.Len() == 0 {
		return fmt.Sprintf("%s--%s--empty", f.Symbol, f.Timeframe)
	}
	return fmt.Sprintf("%s--%s--%d--%d",
		f.Symbol, f.Timeframe, f.Time[0].Unix(), f.Time[f.Len()-1].Unix())
}

// Slice returns a sub-frame covering candles [start, end). The returned
// frame shares backing arrays with the receiver.
func (f *Frame) Slice(start, end int) *Frame {
	return &Frame{
		Symbol:    f.Symbol,
		Timeframe: f.Timeframe,
		Time:      f.Time[start:end],
		CloseTime: f.CloseTime[start:end],
		Open:      f.Open[start:end],
		High:      f.High[start:end],
		Low:       f.Low[start:end],
		Close:     f.Close[start:end],
		Volume:    f.Volume[start:end],
		Candles:   f.Candles[start:end],
	}
}

// IndicatorCache memoizes expensive derived series shared across trials.
// The concrete implementation lives in pkg/indicator; consumers only see
// this interface so core stays dependency-free.
type IndicatorCache interface {
	GetOrCompute(key string, compute func() ([]float64, error)) ([]float64, error)
}

// Window is a read-only view over a Frame up to a fixed bar, plus the
// synchronized coarser-timeframe windows visible at the same instant.
// Higher windows only ever expose candles whose close time is at or
// before the base bar's close time.
type Window struct {
	Frame *Frame
	End   int // number of visible bars, 1-based

	Higher map[string]*Window

	Cache IndicatorCache
}

// Len returns the number of visible bars
func (w *Window) Len() int { return w.End }

// Last returns the most recent visible candle
func (w *Window) Last() Candle { return w.Frame.Candles[w.End-1] }

// Close returns the visible close series
func (w *Window) Close() Series[float64] { return w.Frame.Close[:w.End] }

// Open returns the visible open series
func (w *Window) Open() Series[float64] { return w.Frame.Open[:w.End] }

// High returns the visible high series
func (w *Window) High() Series[float64] { return w.Frame.High[:w.End] }

// Low returns the visible low series
func (w *Window) Low() Series[float64] { return w.Frame.Low[:w.End] }

// Volume returns the visible volume series
func (w *Window) Volume() Series[float64] { return w.Frame.Volume[:w.End] }

// Time returns the open time of the most recent visible candle
func (w *Window) Time() time.Time { return w.Frame.Time[w.End-1] }

// CloseTime returns the close time of the most recent visible candle
func (w *Window) CloseTime() time.Time { return w.Frame.CloseTime[w.End-1] }

// On returns the synchronized window for the given timeframe, falling
// back to the receiver when the timeframe is the base one or has no
// coarser frame attached.
func (w *Window) On(timeframe string) *Window {
	if timeframe == "" || timeframe == w.Frame.Timeframe {
		return w
	}
	if h, ok := w.Higher[timeframe]; ok {
		return h
	}
	return w
}
