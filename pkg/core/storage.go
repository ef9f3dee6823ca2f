package core

// Checkpoint is the append-only log of completed trials for one
// optimization run. Replaying it and skipping every spec already
// present reconstructs exactly the set of pending work.
type Checkpoint interface {
	// Append durably records one completed trial. Called from a single
	// writer goroutine per run.
	Append(runID string, result *TrialResult) error
	// Completed returns every recorded trial keyed by TrialSpec.Key().
	// An unreadable record returns *CheckpointCorruptionError: resuming
	// over silently dropped history would corrupt rankings.
	Completed(runID string) (map[string]*TrialResult, error)
	// Close releases the underlying store.
	Close() error
}

// ResultArchive persists trial results across runs for later querying.
type ResultArchive interface {
	Save(runID string, result *TrialResult) error
	ByRun(runID string) ([]*TrialResult, error)
	Close() error
}
