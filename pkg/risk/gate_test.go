package risk

import (
	"testing"
	"time"

	"github.com/quantlab-io/backtune/pkg/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func account(balance float64) *core.AccountState {
	return core.NewAccountState(decimal.NewFromFloat(balance))
}

func TestGate_ApprovesWithinLimits(t *testing.T) {
	gate := NewGate(Config{
		MaxDailyLoss:   decimal.NewFromInt(500),
		MaxDrawdownPct: 0.3,
		MinOrderQuote:  decimal.NewFromInt(10),
	})

	acct := account(10000)
	assert.Equal(t, core.DecisionApprove, gate.Evaluate(core.Buy(0.5), acct))
	assert.Equal(t, core.DecisionApprove, gate.Evaluate(core.Hold(), acct))
}

func TestGate_HaltsOnDailyLoss(t *testing.T) {
	gate := NewGate(Config{MaxDailyLoss: decimal.NewFromInt(500)})

	acct := account(10000)
	acct.RecordLoss(decimal.NewFromInt(499))
	assert.Equal(t, core.DecisionApprove, gate.Evaluate(core.Buy(0.5), acct))

	acct.RecordLoss(decimal.NewFromInt(1))
	assert.Equal(t, core.DecisionHalt, gate.Evaluate(core.Buy(0.5), acct))
	// Any signal halts once the limit is breached, including Hold.
	assert.Equal(t, core.DecisionHalt, gate.Evaluate(core.Hold(), acct))
}

func TestGate_DailyLossResetsAtDayBoundary(t *testing.T) {
	gate := NewGate(Config{MaxDailyLoss: decimal.NewFromInt(500)})

	acct := account(10000)
	day := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	acct.RollDay(day)
	acct.RecordLoss(decimal.NewFromInt(600))
	assert.Equal(t, core.DecisionHalt, gate.Evaluate(core.Buy(0.5), acct))

	acct.RollDay(day.Add(24 * time.Hour))
	assert.Equal(t, core.DecisionApprove, gate.Evaluate(core.Buy(0.5), acct))
}

func TestGate_HaltsOnDrawdownFloor(t *testing.T) {
	gate := NewGate(Config{MaxDrawdownPct: 0.2})

	acct := account(10000)
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	acct.Cash = decimal.NewFromInt(8100)
	acct.SampleEquity(now, decimal.Zero)
	assert.Equal(t, core.DecisionApprove, gate.Evaluate(core.Buy(0.5), acct))

	acct.Cash = decimal.NewFromInt(8000)
	acct.SampleEquity(now.Add(time.Hour), decimal.Zero)
	assert.Equal(t, core.DecisionHalt, gate.Evaluate(core.Buy(0.5), acct))
}

func TestGate_RejectsBadSize(t *testing.T) {
	gate := NewGate(Config{})
	acct := account(10000)

	assert.Equal(t, core.DecisionReject, gate.Evaluate(core.Buy(0), acct))
	assert.Equal(t, core.DecisionReject, gate.Evaluate(core.Buy(-0.5), acct))
	assert.Equal(t, core.DecisionReject, gate.Evaluate(core.Buy(1.5), acct))
	assert.Equal(t, core.DecisionApprove, gate.Evaluate(core.Buy(1), acct))
}

func TestGate_RejectsBelowMinOrderQuote(t *testing.T) {
	gate := NewGate(Config{MinOrderQuote: decimal.NewFromInt(100)})

	acct := account(1000)
	assert.Equal(t, core.DecisionReject, gate.Evaluate(core.Buy(0.05), acct))
	assert.Equal(t, core.DecisionApprove, gate.Evaluate(core.Buy(0.1), acct))
}

func TestGate_RejectsAboveMaxPositionFrac(t *testing.T) {
	gate := NewGate(Config{MaxPositionFrac: 0.5})

	acct := account(10000)
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	acct.SampleEquity(now, decimal.Zero)

	assert.Equal(t, core.DecisionApprove, gate.Evaluate(core.Buy(0.5), acct))
	assert.Equal(t, core.DecisionReject, gate.Evaluate(core.Buy(0.6), acct))
}

func TestGate_RejectsSellWithoutPosition(t *testing.T) {
	gate := NewGate(Config{})

	acct := account(10000)
	assert.Equal(t, core.DecisionReject, gate.Evaluate(core.Sell(1), acct))

	acct.Position = &core.Position{
		Side:     core.SideLong,
		Size:     decimal.NewFromInt(1),
		AvgEntry: decimal.NewFromInt(100),
	}
	assert.Equal(t, core.DecisionApprove, gate.Evaluate(core.Sell(1), acct))
}

func TestGate_IsPureOverAccountState(t *testing.T) {
	gate := NewGate(Config{MaxDailyLoss: decimal.NewFromInt(500)})

	acct := account(10000)
	acct.RecordLoss(decimal.NewFromInt(100))
	before := acct.DailyLoss

	gate.Evaluate(core.Buy(0.5), acct)
	gate.Evaluate(core.Sell(1), acct)
	assert.True(t, before.Equal(acct.DailyLoss))
	assert.True(t, acct.Cash.Equal(decimal.NewFromInt(10000)))
}
