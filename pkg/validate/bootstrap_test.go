package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBootstrap_SeedDeterminism(t *testing.T) {
	returns := []float64{0.02, -0.01, 0.05, -0.03, 0.01, 0.04, -0.02}

	a := Bootstrap(returns, MeanReturn, 300, 0.95, 99)
	b := Bootstrap(returns, MeanReturn, 300, 0.95, 99)
	assert.Equal(t, a, b)

	c := Bootstrap(returns, MeanReturn, 300, 0.95, 100)
	assert.NotEqual(t, a, c)
}

func TestBootstrap_IntervalBracketsMean(t *testing.T) {
	returns := []float64{0.02, -0.01, 0.05, -0.03, 0.01, 0.04, -0.02, 0.03}

	interval := Bootstrap(returns, MeanReturn, 500, 0.95, 1)
	assert.LessOrEqual(t, interval.Lower, interval.Mean)
	assert.GreaterOrEqual(t, interval.Upper, interval.Mean)
	assert.Greater(t, interval.StdDev, 0.0)
}

func TestBootstrap_EmptyReturns(t *testing.T) {
	assert.Equal(t, Interval{}, Bootstrap(nil, MeanReturn, 100, 0.95, 1))
	assert.Equal(t, Interval{}, Bootstrap([]float64{0.01}, MeanReturn, 0, 0.95, 1))
}

func TestMeanReturn(t *testing.T) {
	assert.Zero(t, MeanReturn(nil))
	assert.InDelta(t, 0.02, MeanReturn([]float64{0.01, 0.03}), 1e-12)
}

func TestPayoff(t *testing.T) {
	// Average win 0.04 against average loss 0.02.
	assert.InDelta(t, 2.0, Payoff([]float64{0.04, -0.02}), 1e-12)
	// No losing trades caps the ratio.
	assert.Equal(t, 10.0, Payoff([]float64{0.01, 0.02}))
	// No winning trades caps as well rather than dividing into zero.
	assert.Equal(t, 10.0, Payoff([]float64{-0.01, -0.02}))
}

func TestProfitFactor(t *testing.T) {
	assert.InDelta(t, 3.0, ProfitFactor([]float64{0.06, -0.02}), 1e-12)
	assert.Equal(t, 10.0, ProfitFactor([]float64{0.01, 0.02}))
}
