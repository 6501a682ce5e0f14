package policy

import (
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/tickreplay/pkg/sim"
)

// RandomConfig controls RandomPolicy.
type RandomConfig struct {
	// BidPercent is the chance, 0..100, that a tick produces a bid rather
	// than an ask.
	BidPercent int
	// Size is the quantity of every order.
	Size decimal.Decimal
	// Seed makes runs reproducible.
	Seed int64
	// CancelAfter, if positive, withdraws our orders older than this many
	// ticks before they would otherwise fill or expire.
	CancelAfter int
}

func DefaultRandomConfig() RandomConfig {
	return RandomConfig{
		BidPercent: 30,
		Size:       decimal.RequireFromString("0.02"),
		Seed:       1,
	}
}

// RandomPolicy takes liquidity on a random side every tick: a bid priced at
// the best ask, or an ask priced at the best bid. A tick whose relevant
// trade observation has a zero price is skipped.
type RandomPolicy struct {
	cfg RandomConfig
	rng *rand.Rand
}

var (
	_ Policy    = (*RandomPolicy)(nil)
	_ Canceller = (*RandomPolicy)(nil)
)

func NewRandomPolicy(cfg RandomConfig) *RandomPolicy {
	if cfg.BidPercent < 0 {
		cfg.BidPercent = 0
	}
	if cfg.BidPercent > 100 {
		cfg.BidPercent = 100
	}
	if cfg.Size.IsZero() {
		cfg.Size = DefaultRandomConfig().Size
	}
	return &RandomPolicy{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

func (p *RandomPolicy) Decide(u sim.MarketUpdate) (Intent, bool) {
	// Intn(101) mirrors a uniform draw over 0..100 inclusive.
	if p.rng.Intn(101) < p.cfg.BidPercent {
		if u.Trades.Ask.Price.IsZero() {
			return Intent{}, false
		}
		return Intent{Side: sim.Bid, Size: p.cfg.Size, Price: u.Quote.Ask.Price}, true
	}
	if u.Trades.Bid.Price.IsZero() {
		return Intent{}, false
	}
	return Intent{Side: sim.Ask, Size: p.cfg.Size, Price: u.Quote.Bid.Price}, true
}

func (p *RandomPolicy) Cancels(_ sim.MarketUpdate, open []sim.Order) []sim.OrderID {
	if p.cfg.CancelAfter <= 0 {
		return nil
	}
	var ids []sim.OrderID
	for _, o := range open {
		if o.Age >= p.cfg.CancelAfter {
			ids = append(ids, o.ID)
		}
	}
	return ids
}
