package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/iho/bookkeeper/internal/adapter/http/handler"
	"github.com/iho/bookkeeper/internal/adapter/http/middleware"
	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/infrastructure/metrics"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler        *handler.AccountHandler
	BalanceHandler        *handler.BalanceHandler
	JournalHandler        *handler.JournalHandler
	StatementHandler      *handler.StatementHandler
	ReconciliationHandler *handler.ReconciliationHandler
	MonthlyHandler        *handler.MonthlyHandler
	LedgerHandler         *handler.LedgerHandler
	HealthHandler         *handler.HealthHandler

	Logger zerolog.Logger

	// Metrics and MetricsHandler are optional; /metrics is only mounted with a handler.
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler

	// TokenVerifier switches authentication to bearer tokens. Without one the
	// caller's company is read from the X-Company-ID header.
	TokenVerifier middleware.TokenVerifier

	RateLimiter      *middleware.RateLimiter
	IdempotencyStore middleware.IdempotencyStore
	IdempotencyTTL   time.Duration
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(panicCounter(cfg.Metrics)))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	r.Use(middleware.RequestMeta)

	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	viewer := middleware.RequireRole(domain.RoleViewer)
	operator := middleware.RequireRole(domain.RoleOperator)
	admin := middleware.RequireRole(domain.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.TenantAuth(cfg.TokenVerifier))
		r.Use(middleware.CompanyLogger)
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Limit)
		}
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL).Wrap)
		}

		r.With(admin).Post("/chart/initialize", cfg.AccountHandler.InitializeChart)

		r.Route("/accounts", func(r chi.Router) {
			r.With(admin).Post("/", cfg.AccountHandler.Create)
			r.With(viewer).Get("/", cfg.AccountHandler.List)
			r.With(viewer).Get("/{id}", cfg.AccountHandler.Get)
			r.With(admin).Post("/{id}/deactivate", cfg.AccountHandler.Deactivate)
			r.With(admin).Put("/{id}/bank-link", cfg.AccountHandler.LinkBankAccount)
			r.With(viewer).Get("/{id}/balance", cfg.BalanceHandler.Get)
			r.With(viewer).Get("/{id}/movement", cfg.BalanceHandler.Movement)
			r.With(viewer).Get("/{id}/ledger", cfg.BalanceHandler.Ledger)
		})
		r.With(viewer).Post("/balances", cfg.BalanceHandler.GetMany)

		r.Route("/transactions", func(r chi.Router) {
			r.With(operator).Post("/", cfg.JournalHandler.Create)
			r.With(viewer).Get("/", cfg.JournalHandler.List)
			r.With(viewer).Get("/{id}", cfg.JournalHandler.Get)
			r.With(operator).Post("/{id}/post", cfg.JournalHandler.Post)
			r.With(operator).Post("/{id}/reverse", cfg.JournalHandler.Reverse)
		})
		r.With(operator).Post("/postings/{kind}", cfg.JournalHandler.PostEvent)

		r.Route("/bank-accounts/{bankAccountID}", func(r chi.Router) {
			r.With(operator).Post("/statements/import", cfg.StatementHandler.Import)
			r.With(viewer).Get("/statements", cfg.StatementHandler.List)
			r.With(viewer).Get("/imports", cfg.StatementHandler.Imports)
			r.With(operator).Post("/auto-match", cfg.ReconciliationHandler.AutoMatch)

			r.With(viewer).Get("/monthly/{year}/{month}", cfg.MonthlyHandler.Get)
			r.With(operator).Put("/monthly/{year}/{month}", cfg.MonthlyHandler.Update)
			r.With(operator).Post("/monthly/{year}/{month}/close", cfg.MonthlyHandler.Close)
		})

		r.Route("/statements/{id}", func(r chi.Router) {
			r.With(viewer).Get("/", cfg.StatementHandler.Get)
			r.With(operator).Post("/match", cfg.ReconciliationHandler.Match)
			r.With(operator).Post("/unmatch", cfg.ReconciliationHandler.Unmatch)
			r.With(operator).Post("/categorize", cfg.ReconciliationHandler.Categorize)
			r.With(operator).Post("/confirm-unmatched", cfg.ReconciliationHandler.ConfirmUnmatched)
			r.With(operator).Post("/dispute", cfg.StatementHandler.Dispute)
			r.With(operator).Post("/reopen", cfg.StatementHandler.Reopen)
		})

		r.With(viewer).Get("/ledger/consistency", cfg.LedgerHandler.CheckConsistency)
		r.With(viewer).Get("/audit-logs", cfg.LedgerHandler.AuditLogs)
	})

	return r
}

func panicCounter(m *metrics.Metrics) *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.HTTPPanics
}
