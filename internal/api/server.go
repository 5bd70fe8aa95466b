package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"storemirror/internal/config"
	"storemirror/internal/database"
	"storemirror/internal/engine"
	"storemirror/internal/metrics"
	"storemirror/internal/pager"
	"storemirror/internal/scheduler"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ReturnsSyncer is the external collaborator that owns return-domain
// ingestion; the API only reports its total.
type ReturnsSyncer interface {
	SyncReturns(ctx context.Context) (int, error)
}

// Backfiller runs the unchunked full sync of every collection.
type Backfiller interface {
	Run(ctx context.Context) (map[string]int, error)
}

// HTTPServer exposes the synchronization endpoints invoked by the external
// time trigger and by operators.
type HTTPServer struct {
	cfg        config.APIConfig
	db         *database.DB
	scheduler  *scheduler.Scheduler
	engine     *engine.Engine
	pager      *pager.Pager
	backfiller Backfiller
	returns    ReturnsSyncer
	logger     *zerolog.Logger
	server     *http.Server
}

func NewHTTPServer(cfg config.APIConfig, db *database.DB, sched *scheduler.Scheduler, eng *engine.Engine,
	pg *pager.Pager, backfiller Backfiller, returns ReturnsSyncer, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:        cfg,
		db:         db,
		scheduler:  sched,
		engine:     eng,
		pager:      pg,
		backfiller: backfiller,
		returns:    returns,
		logger:     logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/sync/run", srv.handleSyncRun)
	mux.HandleFunc("/api/v1/sync/backfill", srv.handleBackfill)
	mux.HandleFunc("/api/v1/sync/returns", srv.handleReturns)
	mux.HandleFunc("/api/v1/sync/tasks", srv.handleTasks)
	mux.HandleFunc("/api/v1/sync/", srv.handleCollection)

	auth := NewBearerAuth(cfg)
	protected := srv.loggingMiddleware(auth.Wrap(mux))

	root := http.NewServeMux()
	root.HandleFunc("/healthz", srv.handleHealth)
	root.Handle("/api/", protected)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           root,
		ReadHeaderTimeout: 5 * time.Second,
		// Each invocation is bounded by design (one task or one page), but
		// the backfill endpoint loops every page, so the ceiling is generous.
		WriteTimeout: 10 * time.Minute,
	}

	return srv
}

// Handler returns the root handler, for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(r.URL.Path, fmt.Sprintf("%d", recorder.status))
		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError emits the failure envelope: {"success": false, "error": msg}.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]any{"success": false, "error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
