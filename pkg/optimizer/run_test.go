package optimizer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/quantlab-io/backtune/pkg/core"
	"github.com/quantlab-io/backtune/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parabolicRunner scores every trial deterministically from its "x"
// parameter, peaking at x=7, and counts executions per spec key.
type parabolicRunner struct {
	mu    sync.Mutex
	calls map[string]int
	fail  bool
}

func newParabolicRunner() *parabolicRunner {
	return &parabolicRunner{calls: map[string]int{}}
}

func (p *parabolicRunner) Run(_ context.Context, spec core.TrialSpec) (*core.TrialResult, error) {
	p.mu.Lock()
	p.calls[spec.Key()]++
	p.mu.Unlock()

	if p.fail {
		return nil, errors.New("simulated failure")
	}

	x, err := spec.Params.Float("x", 0)
	if err != nil {
		return nil, err
	}
	return &core.TrialResult{
		Spec: spec,
		Metrics: core.Metrics{
			Sharpe:     -(x - 7) * (x - 7),
			TradeCount: 10,
		},
		CompletedAt: time.Now(),
	}, nil
}

func (p *parabolicRunner) totalCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, n := range p.calls {
		total += n
	}
	return total
}

func baseSpec() core.TrialSpec {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return core.TrialSpec{
		Symbol:    "BTCUSDT",
		Strategy:  "trend_following",
		Range:     core.DataRange{Start: start, End: start.AddDate(0, 6, 0)},
		Objective: "sharpe",
	}
}

func searchSpace() []Parameter {
	return []Parameter{{
		Name:        "x",
		Type:        TypeFloat,
		Min:         0,
		Max:         10,
		CoarseSteps: 5,
		FineSteps:   5,
	}}
}

func TestOptimize_EachSpecRunsOnce(t *testing.T) {
	runner := newParabolicRunner()
	opt := New(runner, Config{Parameters: searchSpace(), Parallelism: 4})

	result, err := opt.Optimize(context.Background(), baseSpec())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, result.State)

	// Fine neighborhoods overlap the coarse grid and each other; the
	// dedup set must collapse every repeat before scheduling.
	runner.mu.Lock()
	defer runner.mu.Unlock()
	for key, n := range runner.calls {
		assert.Equalf(t, 1, n, "spec %s executed %d times", key, n)
	}
	assert.Equal(t, len(runner.calls), len(result.Ranked))
}

func TestOptimize_BestConvergesTowardPeak(t *testing.T) {
	runner := newParabolicRunner()
	opt := New(runner, Config{Parameters: searchSpace(), Parallelism: 2})

	result, err := opt.Optimize(context.Background(), baseSpec())
	require.NoError(t, err)

	best := result.Best()
	require.NotNil(t, best)

	x, err := best.Spec.Params.Float("x", 0)
	require.NoError(t, err)
	// Coarse grid lands on 7.5; fine refinement must do no worse.
	assert.InDelta(t, 7.0, x, 0.7)
}

func TestOptimize_ResumeSkipsCheckpointedTrials(t *testing.T) {
	checkpoint, err := storage.CheckpointFromMemory()
	require.NoError(t, err)
	defer checkpoint.Close()

	cfg := Config{
		Parameters:  searchSpace(),
		Parallelism: 2,
		RunID:       "resume-test",
		Checkpoint:  checkpoint,
	}

	runner := newParabolicRunner()
	first, err := New(runner, cfg).Optimize(context.Background(), baseSpec())
	require.NoError(t, err)
	firstCalls := runner.totalCalls()
	require.Greater(t, firstCalls, 0)

	// Same run id, same space: everything is already checkpointed, so
	// the runner must never fire again.
	resumed := newParabolicRunner()
	second, err := New(resumed, cfg).Optimize(context.Background(), baseSpec())
	require.NoError(t, err)
	assert.Equal(t, 0, resumed.totalCalls())

	require.Equal(t, len(first.Ranked), len(second.Ranked))
	for i := range first.Ranked {
		assert.Equal(t, first.Ranked[i].Spec.Key(), second.Ranked[i].Spec.Key())
	}
}

func TestOptimize_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := newParabolicRunner()
	opt := New(runner, Config{Parameters: searchSpace(), Parallelism: 2})

	result, err := opt.Optimize(ctx, baseSpec())
	require.ErrorIs(t, err, core.ErrRunCancelled)
	require.NotNil(t, result)
	assert.Equal(t, StateCancelled, result.State)
	assert.Equal(t, 0, runner.totalCalls())
}

func TestOptimize_FailedTrialsRankLast(t *testing.T) {
	runner := newParabolicRunner()
	runner.fail = true
	opt := New(runner, Config{Parameters: searchSpace(), Parallelism: 2})

	result, err := opt.Optimize(context.Background(), baseSpec())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, result.State)

	require.NotEmpty(t, result.Ranked)
	for _, r := range result.Ranked {
		assert.True(t, r.Failed())
		assert.Equal(t, "simulated failure", r.Error)
	}
	assert.Nil(t, result.Best())
}

func TestDeriveRunID_StableForSameBase(t *testing.T) {
	a := deriveRunID(baseSpec())
	b := deriveRunID(baseSpec())
	assert.Equal(t, a, b)

	other := baseSpec()
	other.Symbol = "ETHUSDT"
	assert.NotEqual(t, a, deriveRunID(other))
}
