package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionSide marks the direction of an open position
type PositionSide string

const (
	SideLong PositionSide = "LONG"
)

// Position is one open holding inside a simulation
type Position struct {
	Side     PositionSide
	Size     decimal.Decimal // base asset quantity
	AvgEntry decimal.Decimal // volume-weighted entry price
	Entries  int             // fills that built the position
	OpenedAt time.Time
}

// EquitySample is one point of the equity curve
type EquitySample struct {
	Time   time.Time
	Equity decimal.Decimal
}

// Trade is one closed round trip, recorded for metrics and for the
// Monte Carlo reshuffling step.
type Trade struct {
	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice decimal.Decimal
	ExitPrice  decimal.Decimal
	Size       decimal.Decimal
	PnL        decimal.Decimal
	// ReturnPct is the trade return relative to committed capital, in
	// fractional terms (0.05 = +5%).
	ReturnPct float64
}

// AccountState is the mutable simulation-local ledger. It is owned by
// exactly one simulator run, created at trial start and discarded after
// the TrialResult is extracted. All money math is fixed-point.
type AccountState struct {
	Cash        decimal.Decimal
	Position    *Position
	RealizedPnL decimal.Decimal

	Equity []EquitySample
	Trades []Trade

	// DailyLoss accumulates realized losses since the last UTC midnight
	// boundary; the risk gate reads it to enforce max_daily_loss.
	DailyLoss decimal.Decimal
	dailyAt   time.Time

	initial decimal.Decimal
}

// NewAccountState opens a ledger with the given starting balance.
func NewAccountState(initialBalance decimal.Decimal) *AccountState {
	return &AccountState{
		Cash:    initialBalance,
		initial: initialBalance,
	}
}

// InitialBalance returns the opening cash balance
func (a *AccountState) InitialBalance() decimal.Decimal { return a.initial }

// HasPosition reports whether a position is open
func (a *AccountState) HasPosition() bool {
	return a.Position != nil && a.Position.Size.IsPositive()
}

// EquityAt computes cash plus position value marked at the given price.
func (a *AccountState) EquityAt(price decimal.Decimal) decimal.Decimal {
	equity := a.Cash
	if a.HasPosition() {
		equity = equity.Add(a.Position.Size.Mul(price))
	}
	return equity
}

// SampleEquity appends an equity curve point marked at the given price.
func (a *AccountState) SampleEquity(t time.Time, price decimal.Decimal) {
	a.Equity = append(a.Equity, EquitySample{Time: t, Equity: a.EquityAt(price)})
}

// RollDay resets the daily loss accumulator when t crosses a UTC
// calendar boundary relative to the previous roll.
func (a *AccountState) RollDay(t time.Time) {
	day := t.UTC().Truncate(24 * time.Hour)
	if !day.Equal(a.dailyAt) {
		a.DailyLoss = decimal.Zero
		a.dailyAt = day
	}
}

// RecordLoss adds a realized loss (positive magnitude) to the daily
// accumulator.
func (a *AccountState) RecordLoss(amount decimal.Decimal) {
	if amount.IsPositive() {
		a.DailyLoss = a.DailyLoss.Add(amount)
	}
}

// UnrealizedPnL returns the open position's PnL marked at price, or zero.
func (a *AccountState) UnrealizedPnL(price decimal.Decimal) decimal.Decimal {
	if !a.HasPosition() {
		return decimal.Zero
	}
	return price.Sub(a.Position.AvgEntry).Mul(a.Position.Size)
}
