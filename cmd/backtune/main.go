package main

import (
	"fmt"
	"os"
	"time"

	"github.com/quantlab-io/backtune/pkg/core"
	"github.com/quantlab-io/backtune/pkg/feed"
	"github.com/quantlab-io/backtune/pkg/indicator"
	"github.com/quantlab-io/backtune/pkg/logger"
	log "github.com/quantlab-io/backtune/pkg/logger/zerolog"
	"github.com/quantlab-io/backtune/pkg/optimizer"
	"github.com/quantlab-io/backtune/pkg/regime"
	"github.com/quantlab-io/backtune/pkg/report"
	"github.com/quantlab-io/backtune/pkg/risk"
	"github.com/quantlab-io/backtune/pkg/simulator"
	"github.com/quantlab-io/backtune/pkg/storage"
	"github.com/quantlab-io/backtune/pkg/validate"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	_ "github.com/quantlab-io/backtune/strategies"
)

const dateLayout = "2006-01-02"

// Command line flags
var (
	// Data flags shared by every command
	dataFile  string
	symbol    string
	timeframe string
	startDate string
	endDate   string

	// Execution assumptions
	feeRate      float64
	slippage     float64
	balance      float64
	cacheBudget  int64
	regimeFilter bool

	// Risk flags
	maxDailyLoss   float64
	maxDrawdownPct float64

	// Optimize flags
	strategyName   string
	rangesFile     string
	objectiveName  string
	parallelism    int
	topK           int
	checkpointFile string
	runID          string
	presetOut      string
	tableLimit     int

	// Validate flags
	presetFile string
	mcSeed     int64
	mcIters    int
	wfWindows  int

	// Report flags
	equityOut  string
	returnsOut string

	logLevel string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "backtune",
		Short:   "Backtest, optimize and validate trading strategy parameters",
		Version: "1.0.0",
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(buildOptimizeCmd())
	rootCmd.AddCommand(buildValidateCmd())
	rootCmd.AddCommand(buildReportCmd())
	rootCmd.AddCommand(buildStrategiesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func addDataFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&dataFile, "data", "f", "", "CSV candle file (required)")
	cmd.Flags().StringVarP(&symbol, "symbol", "p", "", "Trading pair (e.g. BTCUSDT)")
	cmd.Flags().StringVarP(&timeframe, "timeframe", "t", "1h", "Base timeframe of the CSV data")
	cmd.Flags().StringVarP(&startDate, "start", "s", "", "Start date (e.g. 2024-01-01)")
	cmd.Flags().StringVarP(&endDate, "end", "e", "", "End date (e.g. 2024-12-31)")
	cmd.Flags().Float64Var(&feeRate, "fee", 0.001, "Taker fee as a fraction of notional")
	cmd.Flags().Float64Var(&slippage, "slippage", 0.0005, "Market fill slippage fraction")
	cmd.Flags().Float64Var(&balance, "balance", 10000, "Initial quote balance")
	cmd.Flags().Int64Var(&cacheBudget, "cache-mb", 256, "Indicator cache budget in MiB")
	cmd.Flags().BoolVar(&regimeFilter, "regime-filter", true, "Block signals outside a strategy's allowed regimes")
	cmd.Flags().Float64Var(&maxDailyLoss, "max-daily-loss", 0, "Halt after this much realized daily loss (0 disables)")
	cmd.Flags().Float64Var(&maxDrawdownPct, "max-drawdown", 0.5, "Halt beyond this fractional drawdown")

	_ = cmd.MarkFlagRequired("data")
	_ = cmd.MarkFlagRequired("symbol")
}

func buildOptimizeCmd() *cobra.Command {
	optimizeCmd := &cobra.Command{
		Use:   "optimize",
		Short: "Grid-search strategy parameters over historical data",
		RunE:  runOptimize,
	}

	addDataFlags(optimizeCmd)
	optimizeCmd.Flags().StringVar(&strategyName, "strategy", "", "Registered strategy name (required)")
	optimizeCmd.Flags().StringVar(&rangesFile, "ranges", "", "Parameter ranges YAML file (required)")
	optimizeCmd.Flags().StringVar(&objectiveName, "objective", "sharpe", "Ranking objective (sharpe, return, dd_return)")
	optimizeCmd.Flags().IntVar(&parallelism, "parallelism", 0, "Worker pool size (0 = NumCPU)")
	optimizeCmd.Flags().IntVar(&topK, "top-k", 3, "Coarse winners refined in the fine phase")
	optimizeCmd.Flags().StringVar(&checkpointFile, "checkpoint", "", "Checkpoint database file (enables resume)")
	optimizeCmd.Flags().StringVar(&runID, "run-id", "", "Run identifier (defaults to a hash of the inputs)")
	optimizeCmd.Flags().StringVarP(&presetOut, "preset-out", "o", "", "Write the winning configuration as YAML")
	optimizeCmd.Flags().IntVar(&tableLimit, "limit", 15, "Ranked rows to print")

	_ = optimizeCmd.MarkFlagRequired("strategy")
	_ = optimizeCmd.MarkFlagRequired("ranges")

	return optimizeCmd
}

func buildValidateCmd() *cobra.Command {
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Run robustness validators against an exported preset",
		RunE:  runValidate,
	}

	addDataFlags(validateCmd)
	validateCmd.Flags().StringVarP(&presetFile, "preset", "c", "", "Preset YAML produced by optimize (required)")
	validateCmd.Flags().Int64Var(&mcSeed, "mc-seed", 42, "Monte Carlo shuffle seed")
	validateCmd.Flags().IntVar(&mcIters, "mc-iterations", 500, "Monte Carlo iterations")
	validateCmd.Flags().IntVar(&wfWindows, "wf-windows", 5, "Walk-forward window count")

	_ = validateCmd.MarkFlagRequired("preset")

	return validateCmd
}

func buildReportCmd() *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Replay a preset once and export equity and trade-return CSVs",
		RunE:  runReport,
	}

	addDataFlags(reportCmd)
	reportCmd.Flags().StringVarP(&presetFile, "preset", "c", "", "Preset YAML produced by optimize (required)")
	reportCmd.Flags().StringVar(&equityOut, "equity-out", "equity.csv", "Equity curve CSV path (empty skips)")
	reportCmd.Flags().StringVar(&returnsOut, "returns-out", "trade_returns.csv", "Per-trade returns CSV path (empty skips)")

	_ = reportCmd.MarkFlagRequired("preset")

	return reportCmd
}

func buildStrategiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List registered strategy variants",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range core.RegisteredStrategies() {
				fmt.Println(name)
			}
		},
	}
}

func runOptimize(cmd *cobra.Command, args []string) error {
	l, sim, dataRange, err := buildSimulator()
	if err != nil {
		return err
	}

	parameters, err := optimizer.LoadRanges(rangesFile)
	if err != nil {
		return err
	}

	var checkpoint core.Checkpoint
	if checkpointFile != "" {
		cp, err := storage.CheckpointFromFile(checkpointFile)
		if err != nil {
			return err
		}
		defer cp.Close()
		checkpoint = cp
	}

	opt := optimizer.New(sim, optimizer.Config{
		Parameters:  parameters,
		TopK:        topK,
		Parallelism: parallelism,
		RunID:       runID,
		Checkpoint:  checkpoint,
		Progress:    true,
		Log:         l,
	})

	result, err := opt.Optimize(cmd.Context(), core.TrialSpec{
		Symbol:    symbol,
		Strategy:  strategyName,
		Range:     dataRange,
		Objective: objectiveName,
	})
	if err != nil {
		return err
	}

	fmt.Printf("\nrun %s finished: %s\n\n", result.RunID, result.State)
	fmt.Println(report.RankedTable(result.Ranked, tableLimit))
	fmt.Println(report.RoutingTable(report.RoutingMatrix(result.Ranked)))

	best := result.Best()
	if best == nil {
		return fmt.Errorf("no successful trial to export")
	}
	if presetOut != "" {
		if err := report.NewPreset(best).Save(presetOut); err != nil {
			return err
		}
		l.Infof("preset written to %s", presetOut)
	}
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	l, sim, dataRange, err := buildSimulator()
	if err != nil {
		return err
	}

	preset, err := report.LoadPreset(presetFile)
	if err != nil {
		return err
	}

	candidate := core.TrialSpec{
		Symbol:    symbol,
		Strategy:  preset.Strategy,
		Params:    preset.Parameters,
		Range:     dataRange,
		Objective: preset.Objective,
	}

	ctx := cmd.Context()

	baseline, err := sim.Run(ctx, candidate)
	if err != nil {
		return err
	}
	l.Infof("baseline: %d trades, sharpe %.3f", baseline.Metrics.TradeCount, baseline.Metrics.Sharpe)

	wf, err := validate.WalkForward(ctx, sim, candidate, validate.WalkForwardConfig{
		Windows: wfWindows,
		Log:     l,
	})
	if err != nil {
		return err
	}
	fmt.Printf("\nWALK-FORWARD: consistency %.0f%%, robust=%v\n", wf.Consistency*100, wf.Robust)
	for i, window := range wf.Windows {
		fmt.Printf("  window %d: train %.3f / test %.3f (pass=%v)\n",
			i+1, window.TrainScore, window.TestScore, window.Pass)
	}

	returns := make([]float64, len(baseline.Trades))
	for i, trade := range baseline.Trades {
		returns[i] = trade.ReturnPct
	}
	meanCI := validate.Bootstrap(returns, validate.MeanReturn, 10000, 0.95, mcSeed)
	payoffCI := validate.Bootstrap(returns, validate.Payoff, 10000, 0.95, mcSeed)
	fmt.Printf("\nBOOTSTRAP (95%%):\n")
	fmt.Printf("  mean return: %.2f%% (%.2f%% ~ %.2f%%)\n", meanCI.Mean*100, meanCI.Lower*100, meanCI.Upper*100)
	fmt.Printf("  payoff:      %.2f (%.2f ~ %.2f)\n", payoffCI.Mean, payoffCI.Lower, payoffCI.Upper)

	mc := validate.MonteCarlo(baseline.Trades, validate.MonteCarloConfig{
		Iterations:     mcIters,
		Seed:           mcSeed,
		InitialBalance: balance,
	})
	fmt.Println()
	if err := report.DrawdownHistogram(os.Stdout, mc); err != nil {
		return err
	}

	candles, err := feed.LoadCSV(dataFile, symbol, timeframe)
	if err != nil {
		return err
	}
	stress, err := validate.Stress(ctx, sim, candidate, candles, validate.StressConfig{})
	if err != nil {
		return err
	}
	fmt.Printf("\nSTRESS: worst sharpe %.3f across %d high-volatility periods, robust=%v\n",
		stress.WorstSharpe, len(stress.Periods), stress.Robust)

	sens, err := validate.Sensitivity(ctx, sim, candidate, validate.SensitivityConfig{})
	if err != nil {
		return err
	}
	fmt.Printf("\nSENSITIVITY: robust=%v\n", sens.Robust)
	for _, param := range sens.Params {
		marker := ""
		if param.Fragile {
			marker = "  <- fragile"
		}
		fmt.Printf("  %-16s base %.3f / +10%% %.3f / -10%% %.3f%s\n",
			param.Name, param.BaseScore, param.UpScore, param.DownScore, marker)
	}
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	l, sim, dataRange, err := buildSimulator()
	if err != nil {
		return err
	}

	preset, err := report.LoadPreset(presetFile)
	if err != nil {
		return err
	}

	result, err := sim.Run(cmd.Context(), core.TrialSpec{
		Symbol:    symbol,
		Strategy:  preset.Strategy,
		Params:    preset.Parameters,
		Range:     dataRange,
		Objective: preset.Objective,
	})
	if err != nil {
		return err
	}

	fmt.Println(report.RankedTable([]*core.TrialResult{result}, 1))

	if equityOut != "" {
		if err := report.SaveEquityCSV(result, equityOut); err != nil {
			return err
		}
		l.Infof("equity curve written to %s", equityOut)
	}
	if returnsOut != "" {
		if err := report.SaveTradeReturnsCSV(result, returnsOut); err != nil {
			return err
		}
		l.Infof("trade returns written to %s", returnsOut)
	}
	return nil
}

// buildSimulator wires the shared feed, cache, risk and logging stack
// from the data flags.
func buildSimulator() (logger.Logger, *simulator.Simulator, core.DataRange, error) {
	l, err := log.New(logLevel, true)
	if err != nil {
		return nil, nil, core.DataRange{}, err
	}

	candles, err := feed.LoadCSV(dataFile, symbol, timeframe)
	if err != nil {
		return nil, nil, core.DataRange{}, err
	}
	if len(candles) == 0 {
		return nil, nil, core.DataRange{}, core.ErrInsufficientData
	}

	dataRange := core.DataRange{
		Start: candles[0].OpenTime,
		End:   candles[len(candles)-1].CloseTime,
	}
	if startDate != "" {
		if dataRange.Start, err = time.Parse(dateLayout, startDate); err != nil {
			return nil, nil, core.DataRange{}, err
		}
	}
	if endDate != "" {
		if dataRange.End, err = time.Parse(dateLayout, endDate); err != nil {
			return nil, nil, core.DataRange{}, err
		}
	}

	cfg := simulator.Config{
		InitialBalance: decimal.NewFromFloat(balance),
		FeeRate:        decimal.NewFromFloat(feeRate),
		Slippage:       decimal.NewFromFloat(slippage),
		Gate: risk.NewGate(risk.Config{
			MaxDailyLoss:   decimal.NewFromFloat(maxDailyLoss),
			MaxDrawdownPct: maxDrawdownPct,
		}),
		Cache: indicator.NewCache(cacheBudget << 20),
		Log:   l,
	}
	if regimeFilter {
		cfg.Classifier = regime.NewDetector(regime.DefaultConfig())
	}

	sim := simulator.New(cfg, timeframe, map[string][]core.Candle{symbol: candles})
	return l, sim, dataRange, nil
}
