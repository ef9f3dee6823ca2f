// Package feed loads historical candle series and exposes synchronized
// multi-timeframe lookback windows to the simulator.
package feed

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/quantlab-io/backtune/pkg/core"
	"github.com/shopspring/decimal"
)

// defaultColumns is the column order of the historical data files when
// no header row is present.
var defaultColumns = map[string]int{
	"open_time": 0, "open": 1, "high": 2, "low": 3, "close": 4, "volume": 5,
	"close_time": 6, "quote_volume": 7, "trade_count": 8,
	"taker_buy_base": 9, "taker_buy_quote": 10,
}

// LoadCSV reads one symbol's candle history from a tabular file.
// Rows with non-monotonic or duplicate open times are rejected, not
// silently fixed: a broken input file must fail the whole load.
func LoadCSV(path, symbol, timeframe string) ([]core.Candle, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer file.Close()

	lines, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read data file %s: %w", path, err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", core.ErrInsufficientData, path)
	}

	columns, hasHeader := parseHeader(lines[0])
	if hasHeader {
		lines = lines[1:]
	}

	candles := make([]core.Candle, 0, len(lines))
	var prev time.Time
	for n, line := range lines {
		candle, err := parseCandle(line, columns, symbol)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, n+1, err)
		}

		if !prev.IsZero() && !candle.OpenTime.After(prev) {
			return nil, fmt.Errorf("%s row %d: non-monotonic open_time %s (previous %s)",
				path, n+1, candle.OpenTime.Format(time.RFC3339), prev.Format(time.RFC3339))
		}
		prev = candle.OpenTime

		candles = append(candles, candle)
	}

	return candles, nil
}

// parseHeader maps column names to indexes. A numeric first field means
// the file has no header row and the default layout applies.
func parseHeader(fields []string) (map[string]int, bool) {
	if _, err := strconv.ParseFloat(fields[0], 64); err == nil {
		return defaultColumns, false
	}

	columns := make(map[string]int, len(fields))
	for i, name := range fields {
		columns[name] = i
	}
	return columns, true
}

func parseCandle(line []string, columns map[string]int, symbol string) (core.Candle, error) {
	candle := core.Candle{Symbol: symbol, Complete: true}

	openTime, err := parseTimestamp(field(line, columns, "open_time"))
	if err != nil {
		return core.Candle{}, fmt.Errorf("open_time: %w", err)
	}
	candle.OpenTime = openTime

	closeTime, err := parseTimestamp(field(line, columns, "close_time"))
	if err != nil {
		return core.Candle{}, fmt.Errorf("close_time: %w", err)
	}
	candle.CloseTime = closeTime

	for name, dst := range map[string]*decimal.Decimal{
		"open":   &candle.Open,
		"high":   &candle.High,
		"low":    &candle.Low,
		"close":  &candle.Close,
		"volume": &candle.Volume,
	} {
		if *dst, err = decimal.NewFromString(field(line, columns, name)); err != nil {
			return core.Candle{}, fmt.Errorf("%s: %w", name, err)
		}
	}

	// Extended columns are optional; short rows just leave them zero.
	if idx, ok := columns["quote_volume"]; ok && idx < len(line) {
		candle.QuoteVolume, _ = decimal.NewFromString(line[idx])
	}
	if idx, ok := columns["trade_count"]; ok && idx < len(line) {
		candle.TradeCount, _ = strconv.ParseInt(line[idx], 10, 64)
	}
	if idx, ok := columns["taker_buy_base"]; ok && idx < len(line) {
		candle.TakerBuyBase, _ = decimal.NewFromString(line[idx])
	}
	if idx, ok := columns["taker_buy_quote"]; ok && idx < len(line) {
		candle.TakerBuyQuote, _ = decimal.NewFromString(line[idx])
	}

	return candle, nil
}

func field(line []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(line) {
		return ""
	}
	return line[idx]
}

// parseTimestamp accepts unix seconds or milliseconds.
func parseTimestamp(s string) (time.Time, error) {
	ts, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	if ts > 1e12 {
		return time.UnixMilli(ts).UTC(), nil
	}
	return time.Unix(ts, 0).UTC(), nil
}
