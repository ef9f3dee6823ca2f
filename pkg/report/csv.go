package report

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/quantlab-io/backtune/pkg/core"
)

// SaveEquityCSV writes a trial's equity samples for external charting.
func SaveEquityCSV(result *core.TrialResult, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if err := w.Write([]string{"time", "equity"}); err != nil {
		return err
	}
	for _, sample := range result.Equity {
		record := []string{
			strconv.FormatInt(sample.Time.Unix(), 10),
			sample.Equity.String(),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return w.Error()
}

// SaveTradeReturnsCSV writes per-trade fractional returns, one per line.
func SaveTradeReturnsCSV(result *core.TrialResult, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	for _, trade := range result.Trades {
		line := strconv.FormatFloat(trade.ReturnPct, 'f', -1, 64) + "\n"
		if _, err := file.WriteString(line); err != nil {
			return err
		}
	}
	return nil
}
