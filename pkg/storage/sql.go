package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/quantlab-io/backtune/pkg/core"
	"gorm.io/gorm"
)

// TrialRecord is the relational shape of one archived trial result.
// The full result is kept as a JSON payload; the scored columns are
// broken out for querying.
type TrialRecord struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	RunID       string `gorm:"index"`
	SpecKey     string `gorm:"index"`
	Symbol      string `gorm:"index"`
	Strategy    string `gorm:"index"`
	Sharpe      float64
	ReturnPct   float64
	Drawdown    float64
	TradeCount  int
	Halted      bool
	Payload     string
	CompletedAt time.Time
}

// SQLArchive implements core.ResultArchive on any GORM dialector; the
// caller supplies the driver.
type SQLArchive struct {
	db *gorm.DB
}

// FromSQL opens an archive over the given dialector and migrates the
// trial table.
func FromSQL(dialect gorm.Dialector, opts ...gorm.Option) (*SQLArchive, error) {
	db, err := gorm.Open(dialect, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&TrialRecord{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLArchive{db: db}, nil
}

var _ core.ResultArchive = (*SQLArchive)(nil)

// Save implements core.ResultArchive.
func (s *SQLArchive) Save(runID string, result *core.TrialResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal trial result: %w", err)
	}

	record := &TrialRecord{
		RunID:       runID,
		SpecKey:     result.Spec.Key(),
		Symbol:      result.Spec.Symbol,
		Strategy:    result.Spec.Strategy,
		Sharpe:      result.Metrics.Sharpe,
		ReturnPct:   result.Metrics.ReturnPct,
		Drawdown:    result.Metrics.MaxDrawdownPct,
		TradeCount:  result.Metrics.TradeCount,
		Halted:      result.Halted,
		Payload:     string(payload),
		CompletedAt: result.CompletedAt,
	}

	if err := s.db.Create(record).Error; err != nil {
		return fmt.Errorf("failed to archive trial: %w", err)
	}
	return nil
}

// ByRun implements core.ResultArchive.
func (s *SQLArchive) ByRun(runID string) ([]*core.TrialResult, error) {
	var records []TrialRecord
	if err := s.db.Where("run_id = ?", runID).Order("id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query archive: %w", err)
	}

	results := make([]*core.TrialResult, 0, len(records))
	for _, rec := range records {
		var result core.TrialResult
		if err := json.Unmarshal([]byte(rec.Payload), &result); err != nil {
			return nil, fmt.Errorf("failed to decode archived trial %d: %w", rec.ID, err)
		}
		results = append(results, &result)
	}
	return results, nil
}

// Close implements core.ResultArchive.
func (s *SQLArchive) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
