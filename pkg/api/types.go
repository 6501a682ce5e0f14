package api

import (
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/tickreplay/pkg/report"
	"github.com/uhyunpark/tickreplay/pkg/sim"
)

// API response types for REST endpoints and WebSocket messages

// ==============================
// REST Response Types
// ==============================

// RunSummary is the per-side aggregate of a stored run's ledger
type RunSummary struct {
	RunID       string          `json:"runId"`
	Summary     report.Summary  `json:"summary"`
	Net         decimal.Decimal `json:"net"`      // Bid volume minus ask volume
	Position    int64           `json:"position"` // Final engine position
	Fingerprint string          `json:"fingerprint"`
	Verified    bool            `json:"verified"` // Stored fills hash to the recorded fingerprint
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ==============================
// WebSocket Message Types
// ==============================

// WSSubscribeRequest is sent by client to subscribe to channels
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // e.g., ["fills", "fills:<runID>"]
}

// WSAck confirms a subscribe or unsubscribe request
type WSAck struct {
	Type     string   `json:"type"` // "subscribed" | "unsubscribed"
	Channels []string `json:"channels"`
}

// FillUpdate is broadcast for every fill of a running backtest
type FillUpdate struct {
	Type  string      `json:"type"` // "fill"
	RunID string      `json:"runId"`
	Fill  sim.OwnFill `json:"fill"`
}
