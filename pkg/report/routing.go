package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/quantlab-io/backtune/pkg/core"
	"github.com/samber/lo"
)

// RoutingCell aggregates one strategy's behavior across trials.
type RoutingCell struct {
	Strategy     string
	Trials       int
	RegimeBlocks int
	RiskBlocks   int
	AvgSharpe    float64

	// BlockedBy counts blocked invocations per regime label. A regime
	// absent from the map never blocked the strategy.
	BlockedBy map[core.RegimeLabel]int
}

// Permitted reports whether the strategy was ever allowed to trade in
// the given regime across the aggregated trials.
func (c RoutingCell) Permitted(label core.RegimeLabel) bool {
	return c.BlockedBy[label] == 0
}

// RoutingMatrix summarizes, per strategy and per regime, how often
// trials were blocked by regime filtering versus risk gating. A
// strategy whose signals are mostly regime-blocked on a data set is
// routed away from it; the matrix makes that visible before anyone
// trades the preset.
func RoutingMatrix(results []*core.TrialResult) []RoutingCell {
	byStrategy := lo.GroupBy(results, func(r *core.TrialResult) string {
		return r.Spec.Strategy
	})

	cells := make([]RoutingCell, 0, len(byStrategy))
	for strategy, group := range byStrategy {
		cell := RoutingCell{Strategy: strategy, BlockedBy: make(map[core.RegimeLabel]int)}
		sharpeSum := 0.0
		scored := 0
		for _, r := range group {
			cell.Trials++
			cell.RegimeBlocks += r.RegimeBlocks
			cell.RiskBlocks += r.RiskBlocks
			for label, n := range r.RegimeBlocked {
				cell.BlockedBy[label] += n
			}
			if !r.Failed() {
				sharpeSum += r.Metrics.Sharpe
				scored++
			}
		}
		if scored > 0 {
			cell.AvgSharpe = sharpeSum / float64(scored)
		}
		cells = append(cells, cell)
	}

	sort.Slice(cells, func(i, j int) bool { return cells[i].Strategy < cells[j].Strategy })
	return cells
}

// RoutingTable renders the matrix as a text table: one row per
// strategy, one column per regime, each cell either permitted or the
// number of blocked invocations.
func RoutingTable(cells []RoutingCell) string {
	header := []string{"Strategy"}
	for _, label := range core.AllRegimes {
		header = append(header, label.String())
	}
	header = append(header, "Risk Blocks", "Avg Sharpe")

	builder := &strings.Builder{}
	table := tablewriter.NewWriter(builder)
	table.SetAutoFormatHeaders(false)
	table.SetHeader(header)

	for _, cell := range cells {
		row := []string{cell.Strategy}
		for _, label := range core.AllRegimes {
			if n := cell.BlockedBy[label]; n > 0 {
				row = append(row, fmt.Sprintf("blocked (%d)", n))
			} else {
				row = append(row, "permitted")
			}
		}
		row = append(row, strconv.Itoa(cell.RiskBlocks), formatSharpe(cell.AvgSharpe))
		table.Append(row)
	}
	table.Render()

	return builder.String()
}

func formatSharpe(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
