package policy

import (
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/tickreplay/pkg/sim"
)

// Intent is a policy's request to place one limit order. The driver assigns
// the order id.
type Intent struct {
	Side  sim.Side
	Size  decimal.Decimal
	Price decimal.Decimal
}

// Policy is invoked once per tick with the update the engine just consumed.
// It returns at most one order to place.
type Policy interface {
	Decide(update sim.MarketUpdate) (Intent, bool)
}

// Canceller is implemented by policies that also withdraw their own resting
// orders. Cancels are applied before the tick's new order is placed.
type Canceller interface {
	Cancels(update sim.MarketUpdate, open []sim.Order) []sim.OrderID
}

// Func adapts a plain function to Policy.
type Func func(sim.MarketUpdate) (Intent, bool)

func (f Func) Decide(u sim.MarketUpdate) (Intent, bool) { return f(u) }

// Nop never trades.
type Nop struct{}

func (Nop) Decide(sim.MarketUpdate) (Intent, bool) { return Intent{}, false }
