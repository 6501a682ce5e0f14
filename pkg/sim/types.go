package sim

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Side uint8

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "BID"
	case Ask:
		return "ASK"
	default:
		return "UNKNOWN"
	}
}

func (s Side) Valid() bool { return s == Bid || s == Ask }

// ParseSide accepts "BID"/"ASK" (case-sensitive, as written by String).
func ParseSide(s string) (Side, error) {
	switch s {
	case "BID":
		return Bid, nil
	case "ASK":
		return Ask, nil
	}
	return 0, fmt.Errorf("unknown side %q", s)
}

func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Side) UnmarshalText(b []byte) error {
	v, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

type OrderID uint64
type FillID uint64

// Order is our own resting limit order. Age and Active are owned by the
// engine; values passed to SubmitOrder have them reset.
type Order struct {
	ID     OrderID         `json:"id"`
	Side   Side            `json:"side"`
	Size   decimal.Decimal `json:"size"`
	Price  decimal.Decimal `json:"price"`
	Age    int             `json:"age"`
	Active bool            `json:"active"`
}

// Trade is an anonymous market trade observation.
type Trade struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// TradePair is the per-tick pair of best ask-side and bid-side observations.
type TradePair struct {
	Timestamp int64 `json:"timestamp"`
	Ask       Trade `json:"ask"`
	Bid       Trade `json:"bid"`
}

// Level is a [price, size] tuple.
type Level struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// QuoteSnapshot is a one-level view of the book at a tick.
type QuoteSnapshot struct {
	Timestamp int64 `json:"timestamp"`
	Ask       Level `json:"ask"`
	Bid       Level `json:"bid"`
}

// MarketUpdate bundles the quote and trade pair observed during one tick.
type MarketUpdate struct {
	Tick      int           `json:"tick"`
	Timestamp int64         `json:"timestamp"`
	Quote     QuoteSnapshot `json:"quote"`
	Trades    TradePair     `json:"trades"`
}

// OwnFill is an execution of one of our orders. Never mutated after it is
// appended to the ledger.
type OwnFill struct {
	Timestamp int64           `json:"timestamp"`
	FillID    FillID          `json:"fillId"`
	OrderID   OrderID         `json:"orderId"`
	Side      Side            `json:"side"`
	Size      decimal.Decimal `json:"size"`
	Price     decimal.Decimal `json:"price"`
}
