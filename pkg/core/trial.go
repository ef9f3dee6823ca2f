package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Params is a named parameter assignment for one strategy variant.
type Params map[string]any

// Clone returns a shallow copy of the parameter assignment.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Canonical renders the assignment as "k1=v1,k2=v2" with keys sorted,
// so two equal assignments always render identically. Floats keep full
// precision to avoid collapsing distinct grid points.
func (p Params) Canonical() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		switch v := p[k].(type) {
		case float64:
			parts = append(parts, fmt.Sprintf("%s=%g", k, v))
		default:
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
	}
	return strings.Join(parts, ",")
}

// DataRange bounds one historical slice by open time, inclusive on both
// ends.
type DataRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range
func (r DataRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// TrialSpec is the immutable unit of work dispatched to the scheduler.
// Two specs with identical field values are duplicates and must execute
// at most once per run.
type TrialSpec struct {
	Symbol    string
	Strategy  string
	Params    Params
	Range     DataRange
	Objective string
}

// Key returns the canonical dedup/checkpoint identity of the spec.
func (s TrialSpec) Key() string {
	return fmt.Sprintf("%s|%s|%s|%d|%d|%s",
		s.Symbol, s.Strategy, s.Objective,
		s.Range.Start.Unix(), s.Range.End.Unix(),
		s.Params.Canonical())
}

// Metrics is the derived performance block of a completed trial.
type Metrics struct {
	ReturnPct      float64 `json:"return_pct" yaml:"return_pct"`
	Sharpe         float64 `json:"sharpe" yaml:"sharpe"`
	Sortino        float64 `json:"sortino" yaml:"sortino"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct" yaml:"max_drawdown_pct"`
	WinRate        float64 `json:"win_rate" yaml:"win_rate"`
	TradeCount     int     `json:"trade_count" yaml:"trade_count"`
	ProfitFactor   float64 `json:"profit_factor" yaml:"profit_factor"`
	AvgProfitPct   float64 `json:"avg_profit_pct" yaml:"avg_profit_pct"`
	FinalEquity    float64 `json:"final_equity" yaml:"final_equity"`
}

// TrialResult is the immutable outcome of one simulated trial. Failed
// trials carry Error and zero metrics; they are recorded, not retried.
type TrialResult struct {
	Spec    TrialSpec `json:"spec"`
	Metrics Metrics   `json:"metrics"`

	Trades []Trade        `json:"-"`
	Equity []EquitySample `json:"-"`

	RegimeBlocks int `json:"regime_blocks"`
	// RegimeBlocked breaks RegimeBlocks down by the label that blocked,
	// feeding the strategy-by-regime routing matrix.
	RegimeBlocked map[RegimeLabel]int `json:"regime_blocked,omitempty"`
	RiskBlocks    int                 `json:"risk_blocks"`
	Halted        bool                `json:"halted"`

	Error string `json:"error,omitempty"`

	CompletedAt time.Time `json:"completed_at"`
}

// Failed reports whether the trial ended with an error
func (r *TrialResult) Failed() bool { return r.Error != "" }

// CountRegimeBlock records one blocked invocation under the given label.
func (r *TrialResult) CountRegimeBlock(label RegimeLabel) {
	r.RegimeBlocks++
	if r.RegimeBlocked == nil {
		r.RegimeBlocked = make(map[RegimeLabel]int)
	}
	r.RegimeBlocked[label]++
}
