package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uhyunpark/tickreplay/pkg/policy"
	"github.com/uhyunpark/tickreplay/pkg/report"
	"github.com/uhyunpark/tickreplay/pkg/sim"
	"github.com/uhyunpark/tickreplay/pkg/storage"
	"github.com/uhyunpark/tickreplay/pkg/util"
)

// Publisher receives every fill as it happens. Implementations must not
// block the run.
type Publisher interface {
	PublishFill(runID string, f sim.OwnFill)
}

type nopPublisher struct{}

func (nopPublisher) PublishFill(string, sim.OwnFill) {}

// Runner drives one engine with one policy until the market data runs out.
// Only Engine and Policy are required.
type Runner struct {
	Engine    *sim.Engine
	Policy    policy.Policy
	Logger    *zap.SugaredLogger
	Store     storage.RunStore
	Journal   storage.Journal
	Clock     util.Clock
	Publisher Publisher

	// RunID defaults to a fresh UUID.
	RunID string
	Label string
}

type Result struct {
	RunID       string            `json:"runId"`
	Ticks       int               `json:"ticks"`
	Fills       []sim.OwnFill     `json:"fills"`
	Position    int64             `json:"position"`
	OpenOrders  []sim.Order       `json:"openOrders"`
	StartedAt   time.Time         `json:"startedAt"`
	FinishedAt  time.Time         `json:"finishedAt"`
	Summary     report.Summary    `json:"summary"`
	Fingerprint string            `json:"fingerprint"`
	Status      storage.RunStatus `json:"status"`
}

func (r *Runner) setDefaults() error {
	if r.Engine == nil {
		return errors.New("runner: engine is nil")
	}
	if r.Policy == nil {
		return errors.New("runner: policy is nil")
	}
	if r.Logger == nil {
		r.Logger = zap.NewNop().Sugar()
	}
	if r.Store == nil {
		r.Store = storage.NewInMemoryStore()
	}
	if r.Journal == nil {
		r.Journal = storage.NewNopJournal()
	}
	if r.Clock == nil {
		r.Clock = util.RealClock{}
	}
	if r.Publisher == nil {
		r.Publisher = nopPublisher{}
	}
	if r.RunID == "" {
		r.RunID = uuid.NewString()
	}
	return nil
}

// Run loops Advance → policy → submit until the source is exhausted. Order
// ids are assigned from 0 in submission order. Each fill is stored,
// journaled and published before the policy sees the tick's update.
//
// If ctx is cancelled between ticks, Run stops and returns the partial
// result together with ctx.Err().
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if err := r.setDefaults(); err != nil {
		return nil, err
	}
	log := r.Logger.With("run_id", r.RunID)

	meta := storage.RunMeta{
		ID:        r.RunID,
		Label:     r.Label,
		Status:    storage.StatusRunning,
		Engine:    r.Engine.Config(),
		PriceRule: r.Engine.Rule().String(),
		StartedAt: r.Clock.Now(),
	}
	if err := r.Store.SaveRun(meta); err != nil {
		return nil, fmt.Errorf("failed to save run: %w", err)
	}
	log.Infow("run_started",
		"label", r.Label,
		"activation_latency", meta.Engine.ActivationLatency,
		"max_lifetime", meta.Engine.MaxLifetime,
		"max_position", meta.Engine.MaxPosition,
		"price_rule", meta.PriceRule)

	runErr := r.loop(ctx, log)

	fills := r.Engine.Fills()
	res := &Result{
		RunID:       r.RunID,
		Ticks:       r.Engine.Tick(),
		Fills:       fills,
		Position:    r.Engine.Position(),
		OpenOrders:  r.Engine.OpenOrders(),
		StartedAt:   meta.StartedAt,
		FinishedAt:  r.Clock.Now(),
		Summary:     report.Summarize(fills),
		Fingerprint: report.Fingerprint(fills),
		Status:      storage.StatusCompleted,
	}
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		res.Status = storage.StatusCancelled
	default:
		res.Status = storage.StatusFailed
	}

	meta.Status = res.Status
	meta.FinishedAt = res.FinishedAt
	meta.Ticks = res.Ticks
	meta.FillCount = len(fills)
	meta.Position = res.Position
	meta.OpenOrders = len(res.OpenOrders)
	meta.Fingerprint = res.Fingerprint
	if runErr != nil {
		meta.Error = runErr.Error()
	}
	if err := r.Store.SaveRun(meta); err != nil {
		log.Errorw("run_save_failed", "error", err)
		if runErr == nil {
			runErr = fmt.Errorf("failed to save run: %w", err)
		}
	}

	log.Infow("run_finished",
		"status", res.Status,
		"ticks", res.Ticks,
		"fills", len(fills),
		"position", res.Position,
		"open_orders", len(res.OpenOrders),
		"fingerprint", res.Fingerprint,
		"elapsed", res.FinishedAt.Sub(res.StartedAt))
	return res, runErr
}

func (r *Runner) loop(ctx context.Context, log *zap.SugaredLogger) error {
	var (
		q        = NewActionQueue()
		nextID   sim.OrderID
		recorded int
	)
	canceller, _ := r.Policy.(policy.Canceller)

	for {
		if err := ctx.Err(); err != nil {
			log.Warnw("run_cancelled", "tick", r.Engine.Tick(), "error", err)
			return err
		}

		upd, err := r.Engine.Advance()
		if errors.Is(err, sim.ErrEndOfData) {
			return nil
		}
		if err != nil {
			log.Errorw("advance_failed", "tick", r.Engine.Tick(), "error", err)
			return err
		}

		if r.Engine.NumFills() > recorded {
			for _, f := range r.Engine.FillsSince(recorded) {
				if err := r.record(f); err != nil {
					return err
				}
				recorded++
			}
		}

		if canceller != nil {
			for _, id := range canceller.Cancels(upd, r.Engine.OpenOrders()) {
				q.Cancel(id)
			}
		}
		if in, ok := r.Policy.Decide(upd); ok {
			q.Place(sim.Order{ID: nextID, Side: in.Side, Size: in.Size, Price: in.Price})
			nextID++
		}

		for _, a := range q.Drain() {
			switch a.Type {
			case ActionCancel:
				r.Engine.CancelOrder(a.OrderID)
			case ActionPlace:
				if err := r.Engine.SubmitOrder(a.Order); err != nil {
					log.Errorw("submit_failed", "tick", r.Engine.Tick(), "order_id", a.Order.ID, "error", err)
					return err
				}
			}
		}
	}
}

func (r *Runner) record(f sim.OwnFill) error {
	if err := r.Store.SaveFill(r.RunID, f); err != nil {
		return fmt.Errorf("failed to save fill %d: %w", f.FillID, err)
	}
	if err := r.Journal.Append(r.RunID, f); err != nil {
		return fmt.Errorf("failed to journal fill %d: %w", f.FillID, err)
	}
	r.Publisher.PublishFill(r.RunID, f)
	return nil
}
