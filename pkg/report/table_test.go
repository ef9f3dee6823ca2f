package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/quantlab-io/backtune/pkg/core"
	"github.com/quantlab-io/backtune/pkg/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankedTable_RendersResults(t *testing.T) {
	ok := rankedResult()
	failed := rankedResult()
	failed.Error = "data gap"
	halted := rankedResult()
	halted.Halted = true

	out := RankedTable([]*core.TrialResult{ok, halted, failed}, 0)

	assert.Contains(t, out, "ema_fast=12,ema_slow=26,size=0.5")
	assert.Contains(t, out, "14.20 %")
	assert.Contains(t, out, "1.800")
	assert.Contains(t, out, "9.50 %")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "halted")
}

func TestRankedTable_LimitsRows(t *testing.T) {
	results := []*core.TrialResult{rankedResult(), rankedResult(), rankedResult()}

	limited := RankedTable(results, 1)
	full := RankedTable(results, 0)
	assert.Less(t, strings.Count(limited, "\n"), strings.Count(full, "\n"))

	// A limit past the end falls back to everything.
	assert.Equal(t, full, RankedTable(results, 10))
}

func TestDrawdownHistogram(t *testing.T) {
	trades := []core.Trade{
		{ReturnPct: 0.05}, {ReturnPct: -0.03}, {ReturnPct: 0.02},
		{ReturnPct: -0.08}, {ReturnPct: 0.10},
	}
	mc := validate.MonteCarlo(trades, validate.MonteCarloConfig{Iterations: 100, Seed: 1})

	var buf bytes.Buffer
	require.NoError(t, DrawdownHistogram(&buf, mc))

	out := buf.String()
	assert.Contains(t, out, "100 iterations")
	assert.Contains(t, out, "P95")
	assert.Contains(t, out, "Median")
	assert.Contains(t, out, "Worst")
}
