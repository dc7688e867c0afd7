// Package api provides the operations HTTP server of the indexer: probes,
// version, metrics and the admin endpoints used to run passes and withdrawal
// steps by hand.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/notebox/notebox-indexer/internal/sync"
	"github.com/notebox/notebox-indexer/internal/withdrawal"
)

const defaultProbeTimeout = 5 * time.Second

// SyncRunner runs one pass of an index variant. coordinator.Runner implements it.
//
//go:generate mockgen -destination=mocks/mock_services.go -package=mocks -source=server.go SyncRunner,WithdrawalService
type SyncRunner interface {
	Variant() sync.Variant
	Sink(ctx context.Context, mode sync.Mode) (*sync.Result, error)
}

// WithdrawalService runs single cascade steps and reads the ledger.
// withdrawal.Cascade implements it.
type WithdrawalService interface {
	Remediate(ctx context.Context, subjectID string, process withdrawal.Process) error
	History(ctx context.Context, subjectID string) ([]withdrawal.History, error)
}

// CheckFunc reports whether a dependency is usable
type CheckFunc func(ctx context.Context) error

type readinessCheck struct {
	name  string
	check CheckFunc
}

// ServerOption configures the ops server
type ServerOption func(*serverConfig)

type serverConfig struct {
	middlewares    []func(http.Handler) http.Handler
	checks         []readinessCheck
	runners        map[sync.Variant]SyncRunner
	withdrawals    WithdrawalService
	metricsHandler http.Handler
	probeTimeout   time.Duration
}

// WithMiddlewares adds middleware to the server
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithReadinessCheck adds a dependency checked by /readiness
func WithReadinessCheck(name string, check CheckFunc) ServerOption {
	return func(cfg *serverConfig) {
		cfg.checks = append(cfg.checks, readinessCheck{name: name, check: check})
	}
}

// WithSyncRunners exposes the admin sync endpoint for each runner's variant
func WithSyncRunners(runners ...SyncRunner) ServerOption {
	return func(cfg *serverConfig) {
		for _, r := range runners {
			cfg.runners[r.Variant()] = r
		}
	}
}

// WithWithdrawals exposes the admin withdrawal endpoints
func WithWithdrawals(svc WithdrawalService) ServerOption {
	return func(cfg *serverConfig) {
		cfg.withdrawals = svc
	}
}

// WithMetricsHandler serves h on /metrics
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.metricsHandler = h
	}
}

// WithProbeTimeout bounds /readiness and the other probes
func WithProbeTimeout(timeout time.Duration) ServerOption {
	return func(cfg *serverConfig) {
		cfg.probeTimeout = timeout
	}
}

// NewServer creates the ops router. Admin routes are only mounted for the
// services that were provided.
func NewServer(opts ...ServerOption) *chi.Mux {
	cfg := &serverConfig{
		runners:      make(map[sync.Variant]SyncRunner),
		probeTimeout: defaultProbeTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()
	r.Use(cfg.middlewares...)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.probeTimeout))
		r.Get("/health", healthHandler)
		r.Get("/readiness", readinessHandler(cfg.checks))
		r.Get("/version", versionHandler)
		if cfg.metricsHandler != nil {
			r.Handle("/metrics", cfg.metricsHandler)
		}
	})

	// Passes run to completion, so admin routes have no request timeout
	r.Route("/admin", func(r chi.Router) {
		if len(cfg.runners) > 0 {
			r.Post("/sync/{variant}/{mode}", syncHandler(cfg.runners))
		}
		if cfg.withdrawals != nil {
			r.Post("/withdrawals/{subjectId}/{step}", remediateHandler(cfg.withdrawals))
			r.Get("/withdrawals/{subjectId}/history", historyHandler(cfg.withdrawals))
		}
	})

	return r
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.DebugContext(r.Context(), "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, ErrorResponse{Error: message}, statusCode)
}
