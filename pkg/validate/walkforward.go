package validate

import (
	"context"
	"time"

	"github.com/quantlab-io/backtune/pkg/core"
	"github.com/quantlab-io/backtune/pkg/logger"
	"github.com/quantlab-io/backtune/pkg/optimizer"
)

// WalkForwardConfig tunes the rolling train/test validation.
type WalkForwardConfig struct {
	// Windows is the number of sequential windows the data range is
	// partitioned into. Defaults to 5.
	Windows int
	// TrainFrac is the leading fraction of each window used for
	// training; the remainder is the out-of-sample test. Defaults to 0.7.
	TrainFrac float64
	// MinTestScore is the bar a window's test score must meet for the
	// window to count as consistent.
	MinTestScore float64
	// MinConsistency is the fraction of passing windows below which the
	// configuration is flagged non-robust. Defaults to 0.5.
	MinConsistency float64
	// Reoptimizer, when set, re-optimizes parameters on each training
	// split; otherwise the candidate parameters are reused as-is.
	Reoptimizer *optimizer.Optimizer

	Log logger.Logger
}

// WindowScore is one train/test window outcome.
type WindowScore struct {
	Train      core.DataRange
	Test       core.DataRange
	Params     core.Params
	TrainScore float64
	TestScore  float64
	Pass       bool
}

// WalkForwardResult aggregates window outcomes into a verdict.
type WalkForwardResult struct {
	Windows     []WindowScore
	Consistency float64
	Robust      bool
}

// WalkForward partitions the candidate's data range into sequential
// windows, trains on the leading split of each, scores the trailing
// split out-of-sample, and computes the consistency ratio.
func WalkForward(ctx context.Context, runner optimizer.Runner, candidate core.TrialSpec, cfg WalkForwardConfig) (*WalkForwardResult, error) {
	if cfg.Windows <= 0 {
		cfg.Windows = 5
	}
	if cfg.TrainFrac <= 0 || cfg.TrainFrac >= 1 {
		cfg.TrainFrac = 0.7
	}
	if cfg.MinConsistency <= 0 {
		cfg.MinConsistency = 0.5
	}
	if cfg.Log == nil {
		cfg.Log = logger.Nop()
	}

	objective, err := optimizer.ObjectiveByName(candidate.Objective)
	if err != nil {
		return nil, err
	}

	total := candidate.Range.End.Sub(candidate.Range.Start)
	windowSpan := total / time.Duration(cfg.Windows)

	result := &WalkForwardResult{}
	passing := 0

	for i := 0; i < cfg.Windows; i++ {
		windowStart := candidate.Range.Start.Add(time.Duration(i) * windowSpan)
		windowEnd := windowStart.Add(windowSpan)
		if i == cfg.Windows-1 {
			windowEnd = candidate.Range.End
		}
		split := windowStart.Add(time.Duration(float64(windowEnd.Sub(windowStart)) * cfg.TrainFrac))

		score := WindowScore{
			Train:  core.DataRange{Start: windowStart, End: split},
			Test:   core.DataRange{Start: split, End: windowEnd},
			Params: candidate.Params,
		}

		trainSpec := candidate
		trainSpec.Range = score.Train

		if cfg.Reoptimizer != nil {
			optResult, err := cfg.Reoptimizer.Optimize(ctx, trainSpec)
			if err != nil {
				return nil, err
			}
			if best := optResult.Best(); best != nil {
				score.Params = best.Spec.Params
				score.TrainScore = objective.Score(best.Metrics)
			}
		} else {
			trainResult, err := runner.Run(ctx, trainSpec)
			if err != nil {
				return nil, err
			}
			score.TrainScore = objective.Score(trainResult.Metrics)
		}

		testSpec := candidate
		testSpec.Params = score.Params
		testSpec.Range = score.Test

		testResult, err := runner.Run(ctx, testSpec)
		if err != nil {
			return nil, err
		}
		score.TestScore = objective.Score(testResult.Metrics)
		score.Pass = score.TestScore >= cfg.MinTestScore
		if score.Pass {
			passing++
		}

		cfg.Log.WithFields(map[string]any{
			"window":      i + 1,
			"train_score": score.TrainScore,
			"test_score":  score.TestScore,
			"pass":        score.Pass,
		}).Debug("walk-forward window scored")

		result.Windows = append(result.Windows, score)
	}

	result.Consistency = float64(passing) / float64(cfg.Windows)
	result.Robust = result.Consistency >= cfg.MinConsistency
	return result, nil
}
