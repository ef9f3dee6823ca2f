package core

import "github.com/shopspring/decimal"

// SignalAction is the tagged action of a strategy signal
type SignalAction string

const (
	ActionBuy  SignalAction = "BUY"
	ActionSell SignalAction = "SELL"
	ActionHold SignalAction = "HOLD"
)

// Signal is a strategy's verdict for one analyze tick. Size and Price
// are hints; zero values mean "let the simulator decide".
type Signal struct {
	Action SignalAction
	// Size is the fraction of available quote balance to commit (0..1].
	Size float64
	// Price is an optional limit price hint. Zero requests a market fill.
	Price decimal.Decimal
	// Reason is carried for logging only.
	Reason string
}

// Hold is the neutral signal.
func Hold() Signal { return Signal{Action: ActionHold} }

// Buy returns a buy signal committing the given balance fraction.
func Buy(size float64) Signal { return Signal{Action: ActionBuy, Size: size} }

// Sell returns a sell signal releasing the given position fraction.
func Sell(size float64) Signal { return Signal{Action: ActionSell, Size: size} }

// IsActionable reports whether the signal requests a trade
func (s Signal) IsActionable() bool { return s.Action == ActionBuy || s.Action == ActionSell }

// Decision is the risk gate verdict for a proposed signal
type Decision int

const (
	DecisionApprove Decision = iota
	DecisionReject
	DecisionHalt
)

// String returns a readable decision name
func (d Decision) String() string {
	switch d {
	case DecisionApprove:
		return "approve"
	case DecisionReject:
		return "reject"
	case DecisionHalt:
		return "halt"
	}
	return "unknown"
}

// RiskGate approves, rejects, or halts a proposed signal given current
// account state. Implementations must be pure: no side effects on the
// account, so the same (signal, state) pair always yields the same
// decision.
type RiskGate interface {
	Evaluate(signal Signal, account *AccountState) Decision
}
