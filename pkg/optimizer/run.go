package optimizer

import (
	"context"
	"fmt"
	"hash/fnv"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/StudioSol/set"
	"github.com/quantlab-io/backtune/pkg/core"
	"github.com/quantlab-io/backtune/pkg/logger"
	"github.com/schollz/progressbar/v3"
)

// State is the lifecycle of one optimization run.
type State int32

const (
	StatePending State = iota
	StateRunning
	StateCompleted
	StateHaltedByRisk
	StateCancelled
	StateFailed
)

// String returns the readable state name
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateHaltedByRisk:
		return "halted_by_risk"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Runner executes one trial. *simulator.Simulator satisfies it.
type Runner interface {
	Run(ctx context.Context, spec core.TrialSpec) (*core.TrialResult, error)
}

// Config tunes one optimization run.
type Config struct {
	// Parameters span the search space.
	Parameters []Parameter
	// TopK coarse winners seed the fine phase. Defaults to 3.
	TopK int
	// Parallelism bounds the worker pool. Defaults to NumCPU.
	Parallelism int
	// RunID identifies the run in the checkpoint; resuming requires
	// the same id. Empty derives a stable id from the base spec.
	RunID string
	// Checkpoint durably records completed trials. Nil disables
	// persistence (and with it, resumability).
	Checkpoint core.Checkpoint
	// Archive, when set, additionally stores results across runs.
	Archive core.ResultArchive
	// Progress renders a console progress bar over scheduled trials.
	Progress bool

	Log logger.Logger
}

// Result is the outcome of a completed (or interrupted) run.
type Result struct {
	RunID  string
	State  State
	Ranked []*core.TrialResult
}

// Best returns the top-ranked successful trial, or nil.
func (r *Result) Best() *core.TrialResult {
	if len(r.Ranked) == 0 || r.Ranked[0].Failed() {
		return nil
	}
	return r.Ranked[0]
}

// Optimizer drives two-phase grid search over a Runner.
type Optimizer struct {
	runner Runner
	cfg    Config
}

// New builds an optimizer; zero config fields get defaults.
func New(runner Runner, cfg Config) *Optimizer {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = runtime.NumCPU()
	}
	if cfg.Log == nil {
		cfg.Log = logger.Nop()
	}
	return &Optimizer{runner: runner, cfg: cfg}
}

// run is the run-scoped context threaded through every scheduling call.
// It is deliberately not package state: concurrent runs must never see
// each other's dedup sets or results.
type run struct {
	id    string
	state atomic.Int32

	// seen holds the canonical key of every spec ever generated for
	// this run; a key already present is a duplicate and is dropped
	// before scheduling. Insertion order is kept for debuggability.
	seen *set.LinkedHashSetString

	mu      sync.Mutex
	results []*core.TrialResult
	halted  int // executed trials that ended risk-halted
	ran     int // trials actually executed this process
}

func (r *run) setState(s State) { r.state.Store(int32(s)) }

func (r *run) currentState() State { return State(r.state.Load()) }

// Optimize searches the parameter space for the base spec. The base
// carries symbol, strategy, data range, and objective; its params act
// as defaults merged under every grid assignment.
func (o *Optimizer) Optimize(ctx context.Context, base core.TrialSpec) (*Result, error) {
	objective, err := ObjectiveByName(base.Objective)
	if err != nil {
		return nil, err
	}

	r := &run{
		id:   o.cfg.RunID,
		seen: set.NewLinkedHashSetString(),
	}
	if r.id == "" {
		r.id = deriveRunID(base)
	}
	r.setState(StatePending)

	log := o.cfg.Log.WithField("run_id", r.id)

	completed, err := o.loadCheckpoint(r)
	if err != nil {
		// Corrupt history must fail the run before any work is wasted.
		r.setState(StateFailed)
		return nil, err
	}
	if len(completed) > 0 {
		log.Infof("resuming: %d trials already checkpointed", len(completed))
	}

	r.setState(StateRunning)

	// Phase 1: coarse grid.
	coarse, err := GenerateCoarse(o.cfg.Parameters)
	if err != nil {
		r.setState(StateFailed)
		return nil, err
	}
	specs := o.dedupe(r, base, coarse, completed)
	log.Infof("coarse phase: %d trials (%d deduplicated or resumed)", len(specs), len(coarse)-len(specs))

	if err := o.execute(ctx, r, specs); err != nil {
		return o.finish(r, objective), err
	}

	// Phase 2: fine grids around the coarse winners.
	Rank(r.snapshot(), objective)
	winners := o.topParams(r, objective)
	fine := GenerateFine(o.cfg.Parameters, winners)
	specs = o.dedupe(r, base, fine, completed)
	log.Infof("fine phase: %d trials (%d deduplicated)", len(specs), len(fine)-len(specs))

	if err := o.execute(ctx, r, specs); err != nil {
		return o.finish(r, objective), err
	}

	return o.finish(r, objective), nil
}

// loadCheckpoint preloads completed trials into the run so they are
// neither rescheduled nor missing from the final ranking.
func (o *Optimizer) loadCheckpoint(r *run) (map[string]*core.TrialResult, error) {
	if o.cfg.Checkpoint == nil {
		return nil, nil
	}
	completed, err := o.cfg.Checkpoint.Completed(r.id)
	if err != nil {
		return nil, err
	}
	for _, result := range completed {
		r.results = append(r.results, result)
	}
	return completed, nil
}

// dedupe turns parameter assignments into specs, dropping anything the
// run has already generated or checkpointed. Grid generation and
// deduplication are one step: coarse and fine phases cannot reintroduce
// duplicate work.
func (o *Optimizer) dedupe(r *run, base core.TrialSpec, assignments []core.Params, completed map[string]*core.TrialResult) []core.TrialSpec {
	specs := make([]core.TrialSpec, 0, len(assignments))
	for _, params := range assignments {
		merged := base.Params.Clone()
		if merged == nil {
			merged = core.Params{}
		}
		for k, v := range params {
			merged[k] = v
		}

		spec := core.TrialSpec{
			Symbol:    base.Symbol,
			Strategy:  base.Strategy,
			Params:    merged,
			Range:     base.Range,
			Objective: base.Objective,
		}

		key := spec.Key()
		if r.seen.InArray(key) {
			continue
		}
		r.seen.Add(key)

		if _, done := completed[key]; done {
			continue
		}
		specs = append(specs, spec)
	}
	return specs
}

// execute dispatches specs to the worker pool. Trial execution is
// embarrassingly parallel; the dispatch queue and the checkpoint writer
// are the only serialized points. Cancellation is honored between
// dispatches only: an in-flight trial always runs to completion so its
// ledger is never torn.
func (o *Optimizer) execute(ctx context.Context, r *run, specs []core.TrialSpec) error {
	if len(specs) == 0 {
		return nil
	}

	var bar *progressbar.ProgressBar
	if o.cfg.Progress {
		bar = progressbar.Default(int64(len(specs)))
	}

	var (
		wg        sync.WaitGroup
		semaphore = make(chan struct{}, o.cfg.Parallelism)
		resultCh  = make(chan *core.TrialResult)
		writerWg  sync.WaitGroup
	)

	// Single writer: checkpoint appends and result collection are
	// serialized here so terminal states are always checkpoint
	// consistent.
	writerWg.Add(1)
	go func() {
		defer writerWg.Done()
		for result := range resultCh {
			o.record(r, result)
			if bar != nil {
				_ = bar.Add(1)
			}
		}
	}()

	cancelled := false
	for _, spec := range specs {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		wg.Add(1)
		semaphore <- struct{}{}

		go func(spec core.TrialSpec) {
			defer wg.Done()
			defer func() { <-semaphore }()

			result, err := o.runner.Run(context.WithoutCancel(ctx), spec)
			if err != nil {
				// A failing spec is recorded and the run continues;
				// historical replay is deterministic, so retrying an
				// unmodified trial cannot succeed.
				result = &core.TrialResult{Spec: spec, Error: err.Error()}
			}
			resultCh <- result
		}(spec)
	}

	wg.Wait()
	close(resultCh)
	writerWg.Wait()

	if cancelled {
		r.setState(StateCancelled)
		return core.ErrRunCancelled
	}
	return nil
}

func (o *Optimizer) record(r *run, result *core.TrialResult) {
	if o.cfg.Checkpoint != nil {
		if err := o.cfg.Checkpoint.Append(r.id, result); err != nil {
			o.cfg.Log.WithError(err).Error("checkpoint append failed")
		}
	}
	if o.cfg.Archive != nil {
		if err := o.cfg.Archive.Save(r.id, result); err != nil {
			o.cfg.Log.WithError(err).Error("archive save failed")
		}
	}

	r.mu.Lock()
	r.results = append(r.results, result)
	r.ran++
	if result.Halted {
		r.halted++
	}
	r.mu.Unlock()
}

func (r *run) snapshot() []*core.TrialResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results
}

// topParams picks the parameter assignments of the best-ranked
// successful trials to seed the fine phase.
func (o *Optimizer) topParams(r *run, objective Objective) []core.Params {
	ranked := append([]*core.TrialResult{}, r.snapshot()...)
	Rank(ranked, objective)

	winners := make([]core.Params, 0, o.cfg.TopK)
	for _, result := range ranked {
		if result.Failed() {
			break
		}
		winners = append(winners, result.Spec.Params)
		if len(winners) == o.cfg.TopK {
			break
		}
	}
	return winners
}

// finish ranks everything and settles the terminal state.
func (o *Optimizer) finish(r *run, objective Objective) *Result {
	ranked := append([]*core.TrialResult{}, r.snapshot()...)
	Rank(ranked, objective)

	if r.currentState() == StateRunning {
		r.mu.Lock()
		allHalted := r.ran > 0 && r.halted == r.ran
		r.mu.Unlock()
		if allHalted {
			r.setState(StateHaltedByRisk)
		} else {
			r.setState(StateCompleted)
		}
	}

	return &Result{
		RunID:  r.id,
		State:  r.currentState(),
		Ranked: ranked,
	}
}

// deriveRunID hashes the base spec so an interrupted run resumed with
// the same inputs lands on the same checkpoint history.
func deriveRunID(base core.TrialSpec) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(base.Key()))
	return fmt.Sprintf("opt-%x", h.Sum64())
}
