package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/olekukonko/tablewriter"
	"github.com/quantlab-io/backtune/pkg/core"
	"github.com/quantlab-io/backtune/pkg/validate"
)

// RankedTable formats the top results of an optimization run as a text
// table, best first.
func RankedTable(results []*core.TrialResult, limit int) string {
	if limit <= 0 || limit > len(results) {
		limit = len(results)
	}

	builder := &strings.Builder{}
	table := tablewriter.NewWriter(builder)
	table.SetHeader([]string{"#", "Params", "Return", "Sharpe", "Sortino", "Max DD", "Trades", "% Win", "Status"})
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT,
	})

	for i, result := range results[:limit] {
		status := "ok"
		if result.Failed() {
			status = "failed"
		} else if result.Halted {
			status = "halted"
		}
		table.Append([]string{
			strconv.Itoa(i + 1),
			result.Spec.Params.Canonical(),
			fmt.Sprintf("%.2f %%", result.Metrics.ReturnPct),
			fmt.Sprintf("%.3f", result.Metrics.Sharpe),
			fmt.Sprintf("%.3f", result.Metrics.Sortino),
			fmt.Sprintf("%.2f %%", result.Metrics.MaxDrawdownPct),
			strconv.Itoa(result.Metrics.TradeCount),
			fmt.Sprintf("%.1f %%", result.Metrics.WinRate*100),
			status,
		})
	}
	table.Render()

	return builder.String()
}

// DrawdownHistogram prints the Monte Carlo max-drawdown distribution
// alongside its percentile summary.
func DrawdownHistogram(w io.Writer, mc *validate.MonteCarloResult) error {
	fmt.Fprintf(w, "------ MONTE CARLO MAX DRAWDOWN (%d iterations) ------\n", mc.Iterations)

	percents := make([]float64, len(mc.Drawdowns))
	for i, dd := range mc.Drawdowns {
		percents[i] = dd * 100
	}
	hist := histogram.Hist(15, percents)
	if err := histogram.Fprint(w, hist, histogram.Linear(10)); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nP%.0f:    %.2f %%\n", mc.Percentile*100, mc.DrawdownAtPercentile*100)
	fmt.Fprintf(w, "Median: %.2f %%\n", mc.MedianDrawdown*100)
	fmt.Fprintf(w, "Worst:  %.2f %%\n", mc.WorstDrawdown*100)
	return nil
}
