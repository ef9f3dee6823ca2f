// Package storage provides the durable stores behind optimization
// runs: a buntdb-backed checkpoint log and a SQL result archive.
package storage

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quantlab-io/backtune/pkg/core"
	"github.com/tidwall/buntdb"
)

// BuntCheckpoint implements core.Checkpoint on BuntDB. One record per
// completed trial, keyed by run id and spec key; records are only ever
// inserted, never updated.
type BuntCheckpoint struct {
	db *buntdb.DB
}

// CheckpointFromMemory creates an in-memory checkpoint, used by tests
// and throwaway runs.
func CheckpointFromMemory() (*BuntCheckpoint, error) {
	return NewBuntCheckpoint(":memory:")
}

// CheckpointFromFile creates a file-backed checkpoint that survives
// interruption.
func CheckpointFromFile(file string) (*BuntCheckpoint, error) {
	return NewBuntCheckpoint(file)
}

// NewBuntCheckpoint opens a checkpoint store at the given source.
func NewBuntCheckpoint(sourceFile string) (*BuntCheckpoint, error) {
	db, err := buntdb.Open(sourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}
	return &BuntCheckpoint{db: db}, nil
}

var _ core.Checkpoint = (*BuntCheckpoint)(nil)

func recordKey(runID, specKey string) string {
	return fmt.Sprintf("run:%s:trial:%s", runID, specKey)
}

// Append implements core.Checkpoint.
func (b *BuntCheckpoint) Append(runID string, result *core.TrialResult) error {
	content, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal trial result: %w", err)
	}

	return b.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(recordKey(runID, result.Spec.Key()), string(content), nil)
		if err != nil {
			return fmt.Errorf("failed to store trial result: %w", err)
		}
		return nil
	})
}

// Completed implements core.Checkpoint.
func (b *BuntCheckpoint) Completed(runID string) (map[string]*core.TrialResult, error) {
	prefix := fmt.Sprintf("run:%s:trial:", runID)
	results := make(map[string]*core.TrialResult)

	var corrupt error
	err := b.db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend("", func(key, value string) bool {
			if !strings.HasPrefix(key, prefix) {
				return true
			}

			var result core.TrialResult
			if err := json.Unmarshal([]byte(value), &result); err != nil {
				corrupt = &core.CheckpointCorruptionError{RunID: runID, Key: key, Err: err}
				return false
			}
			results[result.Spec.Key()] = &result
			return true
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate checkpoint: %w", err)
	}
	if corrupt != nil {
		return nil, corrupt
	}

	return results, nil
}

// Close implements core.Checkpoint.
func (b *BuntCheckpoint) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
