package feed

import (
	"fmt"
	"time"

	"github.com/quantlab-io/backtune/pkg/core"
	"github.com/xhit/go-str2duration/v2"
)

// ParseTimeframe converts a timeframe string (1m, 15m, 1h, 4h, 1d, 1w)
// into a duration.
func ParseTimeframe(timeframe string) (time.Duration, error) {
	return str2duration.ParseDuration(timeframe)
}

// isLastCandlePeriod reports whether a base candle opening at t is the
// final constituent of a target-timeframe period.
func isLastCandlePeriod(t time.Time, fromTimeframe, targetTimeframe string) (bool, error) {
	if fromTimeframe == targetTimeframe {
		return true, nil
	}

	fromDuration, err := str2duration.ParseDuration(fromTimeframe)
	if err != nil {
		return false, err
	}

	next := t.Add(fromDuration).UTC()
	return isTimeOnPeriodBoundary(next, targetTimeframe)
}

// isFirstCandlePeriod reports whether a base candle opening at t starts
// a target-timeframe period.
func isFirstCandlePeriod(t time.Time, fromTimeframe, targetTimeframe string) (bool, error) {
	fromDuration, err := str2duration.ParseDuration(fromTimeframe)
	if err != nil {
		return false, err
	}

	prev := t.Add(-fromDuration).UTC()
	return isLastCandlePeriod(prev, fromTimeframe, targetTimeframe)
}

// isTimeOnPeriodBoundary reports whether a timestamp sits exactly on a
// period boundary of the target timeframe.
func isTimeOnPeriodBoundary(t time.Time, targetTimeframe string) (bool, error) {
	switch targetTimeframe {
	case "1m":
		return t.Second() == 0, nil
	case "5m":
		return t.Minute()%5 == 0 && t.Second() == 0, nil
	case "15m":
		return t.Minute()%15 == 0 && t.Second() == 0, nil
	case "30m":
		return t.Minute()%30 == 0 && t.Second() == 0, nil
	case "1h":
		return t.Minute() == 0 && t.Second() == 0, nil
	case "2h":
		return t.Hour()%2 == 0 && t.Minute() == 0 && t.Second() == 0, nil
	case "4h":
		return t.Hour()%4 == 0 && t.Minute() == 0 && t.Second() == 0, nil
	case "12h":
		return t.Hour()%12 == 0 && t.Minute() == 0 && t.Second() == 0, nil
	case "1d":
		return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0, nil
	case "1w":
		return t.Weekday() == time.Monday && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0, nil
	default:
		return false, fmt.Errorf("invalid timeframe: %s", targetTimeframe)
	}
}

// Resample aggregates base-timeframe candles into a coarser timeframe.
// Only fully closed coarse candles are emitted: a coarse candle exists
// in the output once its final constituent base candle has closed, and
// its CloseTime is that base candle's close time. An unfinished tail
// period is dropped entirely.
func Resample(candles []core.Candle, fromTimeframe, targetTimeframe string) ([]core.Candle, error) {
	if len(candles) == 0 {
		return nil, nil
	}

	// Skip to the first candle that starts a full target period so the
	// leading partial period never produces a half-built candle.
	start := 0
	for i := range candles {
		isFirst, err := isFirstCandlePeriod(candles[i].OpenTime, fromTimeframe, targetTimeframe)
		if err != nil {
			return nil, err
		}
		if isFirst {
			start = i
			break
		}
	}

	target := make([]core.Candle, 0, len(candles)/4)
	var current core.Candle
	inPeriod := false

	for _, candle := range candles[start:] {
		if !inPeriod {
			current = candle
			current.Complete = false
			inPeriod = true
		} else {
			if candle.High.GreaterThan(current.High) {
				current.High = candle.High
			}
			if candle.Low.LessThan(current.Low) {
				current.Low = candle.Low
			}
			current.Close = candle.Close
			current.CloseTime = candle.CloseTime
			current.Volume = current.Volume.Add(candle.Volume)
			current.QuoteVolume = current.QuoteVolume.Add(candle.QuoteVolume)
			current.TradeCount += candle.TradeCount
			current.TakerBuyBase = current.TakerBuyBase.Add(candle.TakerBuyBase)
			current.TakerBuyQuote = current.TakerBuyQuote.Add(candle.TakerBuyQuote)
		}

		isLast, err := isLastCandlePeriod(candle.OpenTime, fromTimeframe, targetTimeframe)
		if err != nil {
			return nil, err
		}
		if isLast {
			current.Complete = true
			target = append(target, current)
			inPeriod = false
		}
	}

	return target, nil
}
