package sim

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Source yields market updates in time order and returns ErrEndOfData once
// exhausted.
type Source interface {
	Next() (MarketUpdate, error)
}

// Config holds the order life-cycle parameters of an engine.
type Config struct {
	// ActivationLatency is the age, in ticks, at which an order becomes
	// eligible to fill. Zero means eligible from the first Advance after
	// submission.
	ActivationLatency int `json:"activationLatency"`
	// MaxLifetime is the age at which an unfilled order is expired.
	MaxLifetime int `json:"maxLifetime"`
	// MaxPosition caps |position|. Zero forbids every fill.
	MaxPosition int64 `json:"maxPosition"`
}

func (c Config) Validate() error {
	if c.ActivationLatency < 0 {
		return configErr("activation_latency", "must be >= 0, got %d", c.ActivationLatency)
	}
	if c.MaxLifetime <= 0 {
		return configErr("max_lifetime", "must be > 0, got %d", c.MaxLifetime)
	}
	if c.MaxPosition < 0 {
		return configErr("max_position", "must be >= 0, got %d", c.MaxPosition)
	}
	return nil
}

// Engine replays a market-data stream tick by tick against our own orders.
// It is not safe for concurrent use; run independent simulations on
// independent engines.
type Engine struct {
	cfg    Config
	src    Source
	rule   PriceRule
	logger *zap.SugaredLogger

	// verbose enables per-tick debug logging
	verbose bool
	onFill  func(OwnFill)

	book       *book
	position   int64
	ledger     []OwnFill
	nextFillID FillID
	tick       int
	done       bool
}

type Option func(*Engine)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithVerbose(v bool) Option {
	return func(e *Engine) { e.verbose = v }
}

func WithPriceRule(r PriceRule) Option {
	return func(e *Engine) { e.rule = r }
}

// WithFillHook registers a callback invoked synchronously after every fill
// is appended to the ledger. The hook must not call back into the engine.
func WithFillHook(fn func(OwnFill)) Option {
	return func(e *Engine) { e.onFill = fn }
}

func New(cfg Config, src Source, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, configErr("source", "is nil")
	}
	e := &Engine{
		cfg:    cfg,
		src:    src,
		rule:   CrossRule,
		logger: zap.NewNop().Sugar(),
		book:   newBook(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Advance runs one tick: age, expire, activate, fetch, match. It returns
// the fetched update so the caller's policy can react to it, or
// ErrEndOfData once the source is exhausted. After ErrEndOfData the engine
// is finished and further calls change nothing.
func (e *Engine) Advance() (MarketUpdate, error) {
	if e.done {
		return MarketUpdate{}, ErrEndOfData
	}

	for _, o := range e.book.seq {
		o.Age++
	}

	e.book.retain(func(o *Order) bool {
		if o.Age < e.cfg.MaxLifetime {
			return true
		}
		if e.verbose {
			e.logger.Debugw("order_expired", "tick", e.tick, "order_id", o.ID, "age", o.Age, "active", o.Active)
		}
		return false
	})

	for _, o := range e.book.seq {
		if !o.Active && o.Age >= e.cfg.ActivationLatency {
			o.Active = true
		}
	}

	upd, err := e.src.Next()
	if err != nil {
		e.done = true
		if errors.Is(err, ErrEndOfData) {
			e.logger.Infow("market_data_exhausted", "ticks", e.tick, "fills", len(e.ledger), "position", e.position)
			return MarketUpdate{}, ErrEndOfData
		}
		return MarketUpdate{}, fmt.Errorf("fetch market update: %w", err)
	}

	e.match(upd)
	e.tick++
	return upd, nil
}

// SubmitOrder places o at the back of the book with age 0, inactive.
func (e *Engine) SubmitOrder(o Order) error {
	if !o.Side.Valid() {
		return fmt.Errorf("%w: %d (order %d)", ErrInvalidSide, uint8(o.Side), o.ID)
	}
	o.Age = 0
	o.Active = false
	if !e.book.add(&o) {
		return fmt.Errorf("%w: %d", ErrDuplicateOrderID, o.ID)
	}
	if e.verbose {
		e.logger.Debugw("order_submitted", "tick", e.tick, "order_id", o.ID, "side", o.Side.String(),
			"price", o.Price.String(), "size", o.Size.String())
	}
	return nil
}

// CancelOrder removes the order if it is still open. It reports whether
// anything was removed; cancelling an unknown, filled or expired order is a
// no-op.
func (e *Engine) CancelOrder(id OrderID) bool {
	return e.book.remove(id)
}

func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) Rule() PriceRule {
	return e.rule
}

// Position is the signed net count of filled bids minus filled asks.
func (e *Engine) Position() int64 {
	return e.position
}

// Tick is the number of market updates consumed so far.
func (e *Engine) Tick() int {
	return e.tick
}

// Done reports whether the source has been exhausted.
func (e *Engine) Done() bool {
	return e.done
}

func (e *Engine) NumOpen() int {
	return e.book.len()
}

// Fills returns a copy of the ledger.
func (e *Engine) Fills() []OwnFill {
	out := make([]OwnFill, len(e.ledger))
	copy(out, e.ledger)
	return out
}

// FillsSince returns a copy of the ledger entries from index n on.
func (e *Engine) FillsSince(n int) []OwnFill {
	if n < 0 {
		n = 0
	}
	if n >= len(e.ledger) {
		return nil
	}
	out := make([]OwnFill, len(e.ledger)-n)
	copy(out, e.ledger[n:])
	return out
}

// NumFills is the ledger length.
func (e *Engine) NumFills() int {
	return len(e.ledger)
}

// OpenOrders returns copies of the open orders in book order.
func (e *Engine) OpenOrders() []Order {
	return e.book.snapshot()
}

func (e *Engine) Order(id OrderID) (Order, bool) {
	o, ok := e.book.get(id)
	if !ok {
		return Order{}, false
	}
	return *o, true
}
