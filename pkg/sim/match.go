package sim

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceRule decides whether an observed trade price satisfies an order's
// limit price. Size and position checks are applied separately.
type PriceRule uint8

const (
	// CrossRule fills a bid when the observed ask trades at or below its
	// limit, and an ask when the observed bid trades at or above its limit.
	// Earlier versions of this simulator compared with InverseRule.
	CrossRule PriceRule = iota
	// InverseRule fills a bid when the observed ask trades at or above its
	// limit, and an ask when the observed bid trades at or below its limit.
	InverseRule
)

func (r PriceRule) String() string {
	switch r {
	case CrossRule:
		return "cross"
	case InverseRule:
		return "inverse"
	default:
		return "unknown"
	}
}

// ParsePriceRule maps a config value to a PriceRule.
func ParsePriceRule(s string) (PriceRule, error) {
	switch s {
	case "", "cross":
		return CrossRule, nil
	case "inverse":
		return InverseRule, nil
	}
	return 0, configErr("price_rule", "unknown rule %q", s)
}

func (r PriceRule) accepts(side Side, limit, observed decimal.Decimal) bool {
	switch side {
	case Bid:
		if r == InverseRule {
			return observed.GreaterThanOrEqual(limit)
		}
		return observed.LessThanOrEqual(limit)
	case Ask:
		if r == InverseRule {
			return observed.LessThanOrEqual(limit)
		}
		return observed.GreaterThanOrEqual(limit)
	}
	panic(fmt.Sprintf("sim: unknown side %d", side))
}

// match runs the matching pass for one tick. Every active order is checked
// against the single trade pair of upd, in book order; the position bound is
// evaluated at the moment each order is checked.
func (e *Engine) match(upd MarketUpdate) {
	pair := upd.Trades
	e.book.retain(func(o *Order) bool {
		if !o.Active {
			return true
		}
		var obs Trade
		switch o.Side {
		case Bid:
			if e.position >= e.cfg.MaxPosition {
				return true
			}
			obs = pair.Ask
		case Ask:
			if e.position <= -e.cfg.MaxPosition {
				return true
			}
			obs = pair.Bid
		}
		if obs.Size.LessThan(o.Size) || !e.rule.accepts(o.Side, o.Price, obs.Price) {
			return true
		}
		e.fill(upd.Timestamp, o)
		return false
	})
}

func (e *Engine) fill(ts int64, o *Order) {
	f := OwnFill{
		Timestamp: ts,
		FillID:    e.nextFillID,
		OrderID:   o.ID,
		Side:      o.Side,
		Size:      o.Size,
		Price:     o.Price,
	}
	e.nextFillID++
	e.ledger = append(e.ledger, f)
	if o.Side == Bid {
		e.position++
	} else {
		e.position--
	}

	if e.verbose {
		e.logger.Debugw("order_filled",
			"tick", e.tick,
			"fill_id", f.FillID,
			"order_id", f.OrderID,
			"side", f.Side.String(),
			"price", f.Price.String(),
			"position", e.position)
	}
	if e.onFill != nil {
		e.onFill(f)
	}
}
