package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"liquidate/internal/cache"
	"liquidate/internal/core"
	"liquidate/internal/ledger"
	applog "liquidate/internal/log"
	"liquidate/internal/middleware/ratelimit"
	"liquidate/internal/middleware/security"
	"liquidate/internal/middleware/trace"
	"liquidate/internal/services"
)

// Ledger is the full persistence surface the API needs. Both the memory
// store and the SQLite repository satisfy it.
type Ledger interface {
	ledger.ExpenseReader
	ledger.ExpenseRecorder
	ledger.BudgetReader
	ledger.BudgetRecorder
	ledger.ReportStore
}

// Server exposes the reconciliation engine as a JSON API.
type Server struct {
	*http.Server
	service     *services.LiquidationService
	store       Ledger
	budgetCache *cache.Cache[core.Budget]
	limiter     *ratelimit.Limiter
	tracer      *trace.Middleware
}

// NewServer wires all routes and returns a server ready to listen on addr.
func NewServer(addr string, service *services.LiquidationService, store Ledger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: &http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		service:     service,
		store:       store,
		budgetCache: cache.New[core.Budget](64, 5*time.Minute),
		limiter:     ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		tracer:      trace.NewMiddleware(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /budgets", s.withRequestLog(s.handleCreateBudget))
	mux.HandleFunc("GET /budgets", s.withRequestLog(s.handleListBudgets))
	mux.HandleFunc("GET /budgets/{id}", s.withRequestLog(s.handleGetBudget))
	mux.HandleFunc("PUT /budgets/{id}/status", s.withRequestLog(s.handleSetBudgetStatus))

	mux.HandleFunc("POST /receipts", s.withRequestLog(s.handleCreateReceipt))
	mux.HandleFunc("DELETE /receipts/{id}", s.withRequestLog(s.handleDeleteReceipt))

	mux.HandleFunc("GET /budgets/{id}/items/{index}/candidates", s.withRequestLog(s.handleListCandidates))
	mux.HandleFunc("PUT /budgets/{id}/items/{index}/allocation", s.withRequestLog(s.handleCommitAllocation))
	mux.HandleFunc("GET /budgets/{id}/items/{index}/figures", s.withRequestLog(s.handleLineItemFigures))
	mux.HandleFunc("GET /figures/remaining", s.withRequestLog(s.handleAggregateRemaining))

	mux.HandleFunc("POST /budgets/{id}/reports", s.withRequestLog(s.handleGenerateReport))
	mux.HandleFunc("GET /reports", s.withRequestLog(s.handleReportHistory))

	handler := applog.Middleware(applog.Default(applog.ComponentHTTP))(mux)
	handler = s.tracer.Handler(handler)
	handler = security.Middleware(security.DefaultHeadersConfig())(handler)
	handler = s.limiter.Middleware(ratelimit.ClientIP)(handler)
	s.Server.Handler = handler

	return s
}

// cachedBudget serves repeated budget reads through the LRU. Handlers that
// mutate a budget must call invalidateBudget.
func (s *Server) cachedBudget(r *http.Request, id string) (core.Budget, error) {
	if b, ok := s.budgetCache.Get(id); ok {
		return b, nil
	}
	b, err := s.store.GetBudget(r.Context(), id)
	if err != nil {
		return core.Budget{}, err
	}
	s.budgetCache.Set(id, b)
	return b, nil
}

func (s *Server) invalidateBudget(id string) {
	s.budgetCache.Delete(id)
}

// withRequestLog adds structured request logging to a handler
func (s *Server) withRequestLog(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		level := slog.LevelInfo
		if rw.statusCode >= 500 {
			level = slog.LevelError
		} else if rw.statusCode >= 400 {
			level = slog.LevelWarn
		}

		applog.FromContext(r.Context()).Log(r.Context(), level, "HTTP request completed",
			"request_id", trace.RequestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status_code", rw.statusCode,
			"duration_ms", duration.Milliseconds())
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

// Shutdown gracefully shuts down the HTTP server and the rate limiter's
// cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}
