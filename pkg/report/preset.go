package report

import (
	"os"
	"time"

	"github.com/quantlab-io/backtune/pkg/core"
	"gopkg.in/yaml.v3"
)

// Preset is the exportable winning configuration. It carries enough of
// the backtest evidence for a reader to judge the numbers behind the
// parameter choice.
type Preset struct {
	Symbol     string      `yaml:"symbol"`
	Strategy   string      `yaml:"strategy"`
	Objective  string      `yaml:"objective,omitempty"`
	Parameters core.Params `yaml:"parameters"`

	Backtest PresetBacktest `yaml:"backtest"`

	GeneratedAt time.Time `yaml:"generated_at"`
}

// PresetBacktest is the evidence block of a preset.
type PresetBacktest struct {
	Start          time.Time `yaml:"start"`
	End            time.Time `yaml:"end"`
	TradeCount     int       `yaml:"trade_count"`
	WinRate        float64   `yaml:"win_rate"`
	AvgProfitPct   float64   `yaml:"avg_profit_pct"`
	MaxDrawdownPct float64   `yaml:"max_drawdown_pct"`
	Sharpe         float64   `yaml:"sharpe"`
	ReturnPct      float64   `yaml:"return_pct"`
}

// NewPreset extracts a preset from a ranked trial result.
func NewPreset(result *core.TrialResult) *Preset {
	return &Preset{
		Symbol:     result.Spec.Symbol,
		Strategy:   result.Spec.Strategy,
		Objective:  result.Spec.Objective,
		Parameters: result.Spec.Params,
		Backtest: PresetBacktest{
			Start:          result.Spec.Range.Start,
			End:            result.Spec.Range.End,
			TradeCount:     result.Metrics.TradeCount,
			WinRate:        result.Metrics.WinRate,
			AvgProfitPct:   result.Metrics.AvgProfitPct,
			MaxDrawdownPct: result.Metrics.MaxDrawdownPct,
			Sharpe:         result.Metrics.Sharpe,
			ReturnPct:      result.Metrics.ReturnPct,
		},
		GeneratedAt: time.Now().UTC(),
	}
}

// Save writes the preset as YAML.
func (p *Preset) Save(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadPreset reads a previously exported preset.
func LoadPreset(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var preset Preset
	if err := yaml.Unmarshal(data, &preset); err != nil {
		return nil, err
	}
	return &preset, nil
}
