package core

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Candle represents one interval of OHLCV data for a symbol.
// Price and volume fields are fixed-point decimals so that cumulative
// accounting over thousands of fills does not accumulate float drift.
type Candle struct {
	Symbol    string
	OpenTime  time.Time
	CloseTime time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal

	// Extended columns carried from the source data files
	QuoteVolume   decimal.Decimal
	TradeCount    int64
	TakerBuyBase  decimal.Decimal
	TakerBuyQuote decimal.Decimal

	Complete bool
}

// GetSymbol returns the symbol identifier for the candle
func (c Candle) GetSymbol() string { return c.Symbol }

// GetOpenTime returns the open timestamp of the candle
func (c Candle) GetOpenTime() time.Time { return c.OpenTime }

// GetCloseTime returns the close timestamp of the candle
func (c Candle) GetCloseTime() time.Time { return c.CloseTime }

// IsComplete reports whether the candle period has fully closed
func (c Candle) IsComplete() bool { return c.Complete }

// IsEmpty checks if the candle contains no significant data
func (c Candle) IsEmpty() bool {
	return c.Symbol == "" && c.Close.IsZero() && c.Open.IsZero() && c.Volume.IsZero()
}

// Range returns the high-low spread of the candle
func (c Candle) Range() decimal.Decimal {
	return c.High.Sub(c.Low)
}

// ToSlice converts a candle to a string slice for serialization
// with the specified decimal precision
func (c Candle) ToSlice(precision int32) []string {
	return []string{
		strconv.FormatInt(c.OpenTime.Unix(), 10),
		c.Open.StringFixed(precision),
		c.High.StringFixed(precision),
		c.Low.StringFixed(precision),
		c.Close.StringFixed(precision),
		c.Volume.StringFixed(precision),
	}
}
