package backtest

import "github.com/uhyunpark/tickreplay/pkg/sim"

type ActionType int

const (
	ActionCancel ActionType = iota
	ActionPlace
)

func (t ActionType) String() string {
	switch t {
	case ActionCancel:
		return "cancel"
	case ActionPlace:
		return "place"
	default:
		return "unknown"
	}
}

// Action is one request against the engine collected during a tick.
type Action struct {
	Type    ActionType
	OrderID sim.OrderID // ActionCancel
	Order   sim.Order   // ActionPlace
}

// ActionQueue keeps two FIFO buckets: cancels, then placements.
// Drain hands back cancels before placements so a policy that replaces an
// order in the same tick never has both resting at once.
type ActionQueue struct {
	cancel []Action
	place  []Action
}

func NewActionQueue() *ActionQueue {
	return &ActionQueue{}
}

func (q *ActionQueue) Cancel(id sim.OrderID) {
	q.Push(Action{Type: ActionCancel, OrderID: id})
}

func (q *ActionQueue) Place(o sim.Order) {
	q.Push(Action{Type: ActionPlace, Order: o})
}

func (q *ActionQueue) Push(a Action) {
	switch a.Type {
	case ActionCancel:
		q.cancel = append(q.cancel, a)
	default:
		q.place = append(q.place, a)
	}
}

// Drain returns all queued actions, cancels first, FIFO within each bucket,
// and empties the queue.
func (q *ActionQueue) Drain() []Action {
	out := make([]Action, 0, len(q.cancel)+len(q.place))
	out = append(out, q.cancel...)
	out = append(out, q.place...)
	q.cancel = q.cancel[:0]
	q.place = q.place[:0]
	return out
}

func (q *ActionQueue) Len() int {
	return len(q.cancel) + len(q.place)
}
