package storage

import (
	"errors"
	"time"

	"github.com/uhyunpark/tickreplay/pkg/sim"
)

var ErrRunNotFound = errors.New("run not found")

type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusCancelled RunStatus = "cancelled"
	StatusFailed    RunStatus = "failed"
)

// RunMeta describes one backtest run. It is written when the run starts and
// rewritten when it finishes.
type RunMeta struct {
	ID          string     `json:"id"`
	Label       string     `json:"label,omitempty"`
	Status      RunStatus  `json:"status"`
	Error       string     `json:"error,omitempty"`
	Engine      sim.Config `json:"engine"`
	PriceRule   string     `json:"priceRule"`
	StartedAt   time.Time  `json:"startedAt"`
	FinishedAt  time.Time  `json:"finishedAt,omitempty"`
	Ticks       int        `json:"ticks"`
	FillCount   int        `json:"fillCount"`
	Position    int64      `json:"position"`
	OpenOrders  int        `json:"openOrders"`
	Fingerprint string     `json:"fingerprint,omitempty"`
}

// RunStore persists run metadata and the fills each run produced.
type RunStore interface {
	SaveRun(meta RunMeta) error
	GetRun(id string) (RunMeta, error)
	ListRuns() ([]RunMeta, error)
	SaveFill(runID string, f sim.OwnFill) error
	LoadFills(runID string) ([]sim.OwnFill, error)
}

// Journal is an append-only log of fills, one line per fill.
type Journal interface {
	Append(runID string, f sim.OwnFill) error
}
