// Package risk implements the account-level gate that approves,
// rejects, or halts proposed signals.
package risk

import (
	"github.com/quantlab-io/backtune/pkg/core"
	"github.com/shopspring/decimal"
)

// Config bounds what the gate tolerates before rejecting trades or
// halting the run entirely.
type Config struct {
	// MaxDailyLoss halts once realized losses since the UTC day
	// boundary reach this quote amount. Zero disables the check.
	MaxDailyLoss decimal.Decimal
	// MaxDrawdownPct halts once equity falls this fraction below the
	// initial balance (0.2 = -20%). Zero disables the check.
	MaxDrawdownPct float64
	// MinOrderQuote rejects buys that would commit less than this quote
	// amount.
	MinOrderQuote decimal.Decimal
	// MaxPositionFrac rejects buys that would push committed capital
	// above this fraction of equity. Zero means no cap.
	MaxPositionFrac float64
}

// Gate is a pure function of (signal, account state): it never mutates
// the account, so identical inputs always produce identical decisions.
type Gate struct {
	cfg Config
}

// NewGate builds a gate from config.
func NewGate(cfg Config) *Gate {
	return &Gate{cfg: cfg}
}

var _ core.RiskGate = (*Gate)(nil)

// Evaluate implements core.RiskGate.
func (g *Gate) Evaluate(signal core.Signal, account *core.AccountState) core.Decision {
	if halt := g.halted(account); halt {
		return core.DecisionHalt
	}

	switch signal.Action {
	case core.ActionBuy:
		return g.evaluateBuy(signal, account)
	case core.ActionSell:
		if !account.HasPosition() {
			return core.DecisionReject
		}
		return core.DecisionApprove
	default:
		return core.DecisionApprove
	}
}

func (g *Gate) halted(account *core.AccountState) bool {
	if g.cfg.MaxDailyLoss.IsPositive() && account.DailyLoss.GreaterThanOrEqual(g.cfg.MaxDailyLoss) {
		return true
	}

	if g.cfg.MaxDrawdownPct > 0 && len(account.Equity) > 0 {
		floor := account.InitialBalance().Mul(
			decimal.NewFromFloat(1 - g.cfg.MaxDrawdownPct))
		if account.Equity[len(account.Equity)-1].Equity.LessThanOrEqual(floor) {
			return true
		}
	}
	return false
}

func (g *Gate) evaluateBuy(signal core.Signal, account *core.AccountState) core.Decision {
	size := signal.Size
	if size <= 0 || size > 1 {
		return core.DecisionReject
	}

	quote := account.Cash.Mul(decimal.NewFromFloat(size))
	if g.cfg.MinOrderQuote.IsPositive() && quote.LessThan(g.cfg.MinOrderQuote) {
		return core.DecisionReject
	}

	if g.cfg.MaxPositionFrac > 0 && len(account.Equity) > 0 {
		equity := account.Equity[len(account.Equity)-1].Equity
		if equity.IsPositive() {
			committed := equity.Sub(account.Cash).Add(quote)
			frac, _ := committed.Div(equity).Float64()
			if frac > g.cfg.MaxPositionFrac {
				return core.DecisionReject
			}
		}
	}
	return core.DecisionApprove
}
