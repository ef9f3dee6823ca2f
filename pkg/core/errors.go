package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrInsufficientData is returned when a data range holds fewer candles
// than a consumer needs.
var ErrInsufficientData = errors.New("insufficient data")

// ErrRunCancelled is returned when an optimization run is cancelled
// between trial dispatches.
var ErrRunCancelled = errors.New("run cancelled")

// DataGapError reports a hole in a candle series beyond the configured
// tolerance. It is fatal for the affected trial only; the run records a
// failed trial and continues.
type DataGapError struct {
	Symbol    string
	Timeframe string
	At        time.Time
	Gap       time.Duration
}

func (e *DataGapError) Error() string {
	return fmt.Sprintf("data gap for %s %s at %s: %s missing",
		e.Symbol, e.Timeframe, e.At.Format(time.RFC3339), e.Gap)
}

// InvalidParameterError reports an out-of-domain parameter value. It is
// raised at grid-generation time so the offending spec is never
// scheduled.
type InvalidParameterError struct {
	Name   string
	Value  any
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%v: %s", e.Name, e.Value, e.Reason)
}

// CacheComputeError wraps an indicator computation failure. The failing
// key is not poisoned; other keys remain usable.
type CacheComputeError struct {
	Key string
	Err error
}

func (e *CacheComputeError) Error() string {
	return fmt.Sprintf("indicator compute failed for %s: %v", e.Key, e.Err)
}

func (e *CacheComputeError) Unwrap() error { return e.Err }

// CheckpointCorruptionError reports an unreadable or truncated
// checkpoint record on resume. The run fails fast rather than silently
// dropping completed history.
type CheckpointCorruptionError struct {
	RunID string
	Key   string
	Err   error
}

func (e *CheckpointCorruptionError) Error() string {
	return fmt.Sprintf("corrupt checkpoint record %s in run %s: %v", e.Key, e.RunID, e.Err)
}

func (e *CheckpointCorruptionError) Unwrap() error { return e.Err }
