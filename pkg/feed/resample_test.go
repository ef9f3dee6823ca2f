package feed

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeframe(t *testing.T) {
	d, err := ParseTimeframe("4h")
	require.NoError(t, err)
	assert.Equal(t, 4*time.Hour, d)

	_, err = ParseTimeframe("banana")
	assert.Error(t, err)
}

func TestResample_AggregatesFullPeriods(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := makeCandles(start, time.Minute, 120, func(i int) float64 {
		return 100 + float64(i)
	})

	hourly, err := Resample(candles, "1m", "1h")
	require.NoError(t, err)
	require.Len(t, hourly, 2)

	first := hourly[0]
	assert.Equal(t, start, first.OpenTime)
	assert.True(t, first.Open.Equal(decimal.NewFromInt(100)))
	assert.True(t, first.Close.Equal(decimal.NewFromInt(159)))
	assert.True(t, first.High.Equal(decimal.NewFromInt(159)))
	assert.True(t, first.Low.Equal(decimal.NewFromInt(100)))
	assert.True(t, first.Volume.Equal(decimal.NewFromInt(60)))
	assert.True(t, first.Complete)

	// The coarse close time is the final constituent's close time.
	assert.Equal(t, candles[59].CloseTime, first.CloseTime)
}

func TestResample_DropsUnfinishedTail(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := makeCandles(start, time.Minute, 90, func(i int) float64 { return 100 })

	hourly, err := Resample(candles, "1m", "1h")
	require.NoError(t, err)
	assert.Len(t, hourly, 1)
}

func TestResample_SkipsLeadingPartialPeriod(t *testing.T) {
	// Series starts mid-hour; the first full hour begins at 01:00.
	start := time.Date(2024, 1, 1, 0, 30, 0, 0, time.UTC)
	candles := makeCandles(start, time.Minute, 150, func(i int) float64 { return 100 })

	hourly, err := Resample(candles, "1m", "1h")
	require.NoError(t, err)
	require.Len(t, hourly, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC), hourly[0].OpenTime)
}

func TestResample_WeeklyOpensMonday(t *testing.T) {
	// 2024-01-01 is a Monday; three weeks of daily candles.
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := makeCandles(start, 24*time.Hour, 21, func(i int) float64 { return 100 })

	weekly, err := Resample(candles, "1d", "1w")
	require.NoError(t, err)
	require.Len(t, weekly, 3)
	for _, c := range weekly {
		assert.Equal(t, time.Monday, c.OpenTime.Weekday())
	}
}
