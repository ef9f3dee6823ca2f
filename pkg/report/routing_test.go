package report

import (
	"strings"
	"testing"

	"github.com/quantlab-io/backtune/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func routedTrial(strategy string, sharpe float64, blocked map[core.RegimeLabel]int, riskBlocks int, errMsg string) *core.TrialResult {
	total := 0
	for _, n := range blocked {
		total += n
	}
	return &core.TrialResult{
		Spec:          core.TrialSpec{Symbol: "BTCUSDT", Strategy: strategy},
		Metrics:       core.Metrics{Sharpe: sharpe},
		RegimeBlocks:  total,
		RegimeBlocked: blocked,
		RiskBlocks:    riskBlocks,
		Error:         errMsg,
	}
}

func TestRoutingMatrix_AggregatesPerStrategyAndRegime(t *testing.T) {
	results := []*core.TrialResult{
		routedTrial("trend_following", 1.0, map[core.RegimeLabel]int{core.RegimeTightRange: 3, core.RegimeWideRange: 2}, 1, ""),
		routedTrial("trend_following", 2.0, map[core.RegimeLabel]int{core.RegimeTightRange: 3}, 0, ""),
		routedTrial("range_trading", 0.5, map[core.RegimeLabel]int{core.RegimeBullTrend: 40}, 2, ""),
	}

	cells := RoutingMatrix(results)
	require.Len(t, cells, 2)

	// Sorted by strategy name.
	assert.Equal(t, "range_trading", cells[0].Strategy)
	assert.Equal(t, "trend_following", cells[1].Strategy)

	tf := cells[1]
	assert.Equal(t, 2, tf.Trials)
	assert.Equal(t, 8, tf.RegimeBlocks)
	assert.Equal(t, 1, tf.RiskBlocks)
	assert.InDelta(t, 1.5, tf.AvgSharpe, 1e-12)

	// Per-regime totals merge across the strategy's trials.
	assert.Equal(t, 6, tf.BlockedBy[core.RegimeTightRange])
	assert.Equal(t, 2, tf.BlockedBy[core.RegimeWideRange])
	assert.False(t, tf.Permitted(core.RegimeTightRange))
	assert.True(t, tf.Permitted(core.RegimeBullTrend))

	rt := cells[0]
	assert.False(t, rt.Permitted(core.RegimeBullTrend))
	assert.True(t, rt.Permitted(core.RegimeTightRange))
}

func TestRoutingMatrix_FailedTrialsCountButDoNotScore(t *testing.T) {
	results := []*core.TrialResult{
		routedTrial("hybrid", 2.0, nil, 0, ""),
		routedTrial("hybrid", 0, map[core.RegimeLabel]int{core.RegimeBearTrend: 4}, 0, "data gap"),
	}

	cells := RoutingMatrix(results)
	require.Len(t, cells, 1)
	assert.Equal(t, 2, cells[0].Trials)
	assert.Equal(t, 4, cells[0].RegimeBlocks)
	assert.Equal(t, 4, cells[0].BlockedBy[core.RegimeBearTrend])
	assert.InDelta(t, 2.0, cells[0].AvgSharpe, 1e-12)
}

func TestRoutingMatrix_Empty(t *testing.T) {
	assert.Empty(t, RoutingMatrix(nil))
}

func TestRoutingTable_RendersRegimeColumns(t *testing.T) {
	out := RoutingTable(RoutingMatrix([]*core.TrialResult{
		routedTrial("trend_following", 1.25, map[core.RegimeLabel]int{core.RegimeTightRange: 12}, 1, ""),
		routedTrial("range_trading", -0.5, map[core.RegimeLabel]int{core.RegimeBullTrend: 7}, 0, ""),
	}))

	// One column per classifiable regime.
	for _, label := range core.AllRegimes {
		assert.Contains(t, strings.ToLower(out), label.String())
	}

	assert.Contains(t, out, "trend_following")
	assert.Contains(t, out, "blocked (12)")
	assert.Contains(t, out, "blocked (7)")
	assert.Contains(t, out, "permitted")
	assert.Contains(t, out, "1.250")
	assert.Contains(t, out, "-0.500")
}
