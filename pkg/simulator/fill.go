package simulator

import (
	"time"

	"github.com/quantlab-io/backtune/pkg/core"
	"github.com/shopspring/decimal"
)

// FillModel selects how a limit price hint is matched against a bar.
type FillModel string

const (
	// FillClose fills a limit order only when the bar's close crosses
	// the limit, at the close price. Conservative: never assumes an
	// intrabar touch was tradeable.
	FillClose FillModel = "close"
	// FillTouch fills as soon as the bar's high-low range contains the
	// limit price, at the limit price.
	FillTouch FillModel = "touch"
)

// pendingOrder is a resting limit order awaiting a fill.
type pendingOrder struct {
	action   core.SignalAction
	price    decimal.Decimal
	size     float64 // fraction of cash (buy) or position (sell)
	placedAt time.Time
}

// fillEngine mutates the account ledger for approved signals. Market
// signals fill at the current bar's close adjusted for slippage; limit
// hints rest until a later bar satisfies the fill model.
type fillEngine struct {
	model    FillModel
	feeRate  decimal.Decimal
	slippage decimal.Decimal

	pending *pendingOrder
}

func newFillEngine(model FillModel, feeRate, slippage decimal.Decimal) *fillEngine {
	if model == "" {
		model = FillClose
	}
	return &fillEngine{model: model, feeRate: feeRate, slippage: slippage}
}

// Submit places an approved signal. Market signals fill immediately on
// the current candle; limit signals replace any resting order.
func (e *fillEngine) Submit(sig core.Signal, candle core.Candle, acct *core.AccountState) bool {
	if sig.Price.IsPositive() {
		e.pending = &pendingOrder{
			action:   sig.Action,
			price:    sig.Price,
			size:     sig.Size,
			placedAt: candle.CloseTime,
		}
		return false
	}

	switch sig.Action {
	case core.ActionBuy:
		price := candle.Close.Mul(decimal.NewFromInt(1).Add(e.slippage))
		return e.buy(price, sig.Size, candle.CloseTime, acct)
	case core.ActionSell:
		price := candle.Close.Mul(decimal.NewFromInt(1).Sub(e.slippage))
		return e.sell(price, sig.Size, candle.CloseTime, acct)
	}
	return false
}

// MatchPending tries to fill a resting limit order against a new bar.
// Returns true when a fill mutated the account.
func (e *fillEngine) MatchPending(candle core.Candle, acct *core.AccountState) bool {
	if e.pending == nil {
		return false
	}

	o := e.pending
	var price decimal.Decimal
	switch e.model {
	case FillTouch:
		if o.action == core.ActionBuy && candle.Low.LessThanOrEqual(o.price) {
			price = o.price
		} else if o.action == core.ActionSell && candle.High.GreaterThanOrEqual(o.price) {
			price = o.price
		} else {
			return false
		}
	default: // FillClose
		if o.action == core.ActionBuy && candle.Close.LessThanOrEqual(o.price) {
			price = candle.Close
		} else if o.action == core.ActionSell && candle.Close.GreaterThanOrEqual(o.price) {
			price = candle.Close
		} else {
			return false
		}
	}

	e.pending = nil
	if o.action == core.ActionBuy {
		return e.buy(price, o.size, candle.CloseTime, acct)
	}
	return e.sell(price, o.size, candle.CloseTime, acct)
}

// CancelPending drops any resting order.
func (e *fillEngine) CancelPending() { e.pending = nil }

func (e *fillEngine) buy(price decimal.Decimal, size float64, at time.Time, acct *core.AccountState) bool {
	if size <= 0 || size > 1 || !price.IsPositive() {
		return false
	}

	quote := acct.Cash.Mul(decimal.NewFromFloat(size))
	fee := quote.Mul(e.feeRate)
	spend := quote.Sub(fee)
	if !spend.IsPositive() {
		return false
	}
	qty := spend.Div(price)

	acct.Cash = acct.Cash.Sub(quote)
	acct.RecordLoss(fee)

	if acct.Position == nil || acct.Position.Size.IsZero() {
		acct.Position = &core.Position{
			Side:     core.SideLong,
			Size:     qty,
			AvgEntry: price,
			Entries:  1,
			OpenedAt: at,
		}
		return true
	}

	// Averaging into an open position: volume-weighted entry.
	p := acct.Position
	total := p.Size.Add(qty)
	p.AvgEntry = p.AvgEntry.Mul(p.Size).Add(price.Mul(qty)).Div(total)
	p.Size = total
	p.Entries++
	return true
}

func (e *fillEngine) sell(price decimal.Decimal, size float64, at time.Time, acct *core.AccountState) bool {
	if !acct.HasPosition() || !price.IsPositive() {
		return false
	}
	if size <= 0 || size > 1 {
		size = 1
	}

	p := acct.Position
	qty := p.Size.Mul(decimal.NewFromFloat(size))
	proceeds := qty.Mul(price)
	fee := proceeds.Mul(e.feeRate)
	net := proceeds.Sub(fee)

	cost := p.AvgEntry.Mul(qty)
	pnl := net.Sub(cost)

	acct.Cash = acct.Cash.Add(net)
	acct.RealizedPnL = acct.RealizedPnL.Add(pnl)
	if pnl.IsNegative() {
		acct.RecordLoss(pnl.Neg())
	}

	returnPct := 0.0
	if cost.IsPositive() {
		returnPct, _ = pnl.Div(cost).Float64()
	}
	acct.Trades = append(acct.Trades, core.Trade{
		EntryTime:  p.OpenedAt,
		ExitTime:   at,
		EntryPrice: p.AvgEntry,
		ExitPrice:  price,
		Size:       qty,
		PnL:        pnl,
		ReturnPct:  returnPct,
	})

	p.Size = p.Size.Sub(qty)
	if !p.Size.IsPositive() {
		acct.Position = nil
	}
	return true
}
