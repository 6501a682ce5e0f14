package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/tickreplay/pkg/report"
	"github.com/uhyunpark/tickreplay/pkg/sim"
	"github.com/uhyunpark/tickreplay/pkg/storage"
)

// Server exposes stored runs over REST and streams live fills over WebSocket
type Server struct {
	store   storage.RunStore
	router  *mux.Router
	hub     *Hub // WebSocket hub
	logger  *zap.SugaredLogger
	origins []string
	srv     *http.Server
}

// NewServer creates a new API server. allowedOrigins feeds CORS; nil allows
// any origin.
func NewServer(store storage.RunStore, logger *zap.SugaredLogger, allowedOrigins []string) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	s := &Server{
		store:   store,
		router:  mux.NewRouter(),
		hub:     NewHub(logger),
		logger:  logger,
		origins: allowedOrigins,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// API v1 routes
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Run endpoints
	api.HandleFunc("/runs", s.handleListRuns).Methods("GET")
	api.HandleFunc("/runs/{id}", s.handleGetRun).Methods("GET")
	api.HandleFunc("/runs/{id}/fills", s.handleGetFills).Methods("GET")
	api.HandleFunc("/runs/{id}/summary", s.handleGetSummary).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the router wrapped in CORS. The hub must be running for
// WebSocket clients to register; Start does that.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

// Start runs the hub and serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	go s.hub.Run(ctx)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("api_listening", "addr", addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.logger.Infow("api_stopped", "addr", addr, "ws_clients", s.hub.NumClients())
		return nil
	}
}

// Hub gives access to the WebSocket hub, e.g. to run it without Start.
func (s *Server) Hub() *Hub { return s.hub }

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list runs", err.Error())
		return
	}
	if runs == nil {
		runs = []storage.RunMeta{}
	}
	respondJSON(w, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	meta, ok := s.lookupRun(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	respondJSON(w, meta)
}

// handleGetFills serves a run's ledger. Optional query params: side=BID|ASK
// and limit=N (first N after filtering).
func (s *Server) handleGetFills(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.lookupRun(w, id); !ok {
		return
	}

	var (
		sideFilter *sim.Side
		limit      = -1
	)
	if v := r.URL.Query().Get("side"); v != "" {
		side, err := sim.ParseSide(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid side", err.Error())
			return
		}
		sideFilter = &side
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid limit", v)
			return
		}
		limit = n
	}

	fills, err := s.store.LoadFills(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load fills", err.Error())
		return
	}

	out := make([]sim.OwnFill, 0, len(fills))
	for _, f := range fills {
		if limit >= 0 && len(out) >= limit {
			break
		}
		if sideFilter != nil && f.Side != *sideFilter {
			continue
		}
		out = append(out, f)
	}
	respondJSON(w, out)
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	meta, ok := s.lookupRun(w, id)
	if !ok {
		return
	}
	fills, err := s.store.LoadFills(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load fills", err.Error())
		return
	}

	sum := report.Summarize(fills)
	fp := report.Fingerprint(fills)
	respondJSON(w, RunSummary{
		RunID:       id,
		Summary:     sum,
		Net:         sum.Net(),
		Position:    meta.Position,
		Fingerprint: fp,
		Verified:    meta.Fingerprint != "" && fp == meta.Fingerprint,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) lookupRun(w http.ResponseWriter, id string) (storage.RunMeta, bool) {
	meta, err := s.store.GetRun(id)
	if errors.Is(err, storage.ErrRunNotFound) {
		respondError(w, http.StatusNotFound, "run not found", id)
		return storage.RunMeta{}, false
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get run", err.Error())
		return storage.RunMeta{}, false
	}
	return meta, true
}

// ==============================
// Broadcast Methods (called from the runner)
// ==============================

// PublishFill broadcasts a fill to clients subscribed to "fills" or
// "fills:<runID>".
func (s *Server) PublishFill(runID string, f sim.OwnFill) {
	s.hub.BroadcastToChannels(FillUpdate{Type: "fill", RunID: runID, Fill: f}, "fills", "fills:"+runID)
}

// ==============================
// Helper Functions
// ==============================

func respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}
