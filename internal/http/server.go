// Package http exposes the dashboard, settings, transaction and category
// operations as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/transactions"
)

type SettingsService interface {
	GetSettings(ctx context.Context, p core.Principal) (core.UserSettings, error)
	UpdateSettings(ctx context.Context, p core.Principal, patch core.SettingsPatch) (core.UserSettings, error)
}

type DashboardService interface {
	Stats(ctx context.Context, p core.Principal) (core.Stats, error)
	CategoryBreakdown(ctx context.Context, p core.Principal) ([]core.CategoryTotal, error)
	MonthlyTrend(ctx context.Context, p core.Principal) ([]core.MonthlyPoint, error)
	Report(ctx context.Context, p core.Principal) (core.Report, error)
}

type TransactionService interface {
	List(ctx context.Context, p core.Principal) ([]core.Transaction, error)
	Create(ctx context.Context, p core.Principal, in transactions.Input) (core.Transaction, error)
	Update(ctx context.Context, p core.Principal, id string, in transactions.Input) (core.Transaction, error)
	Delete(ctx context.Context, p core.Principal, id string) error
	ConvertAmount(ctx context.Context, p core.Principal, id, target string) (decimal.Decimal, error)
	ListCategories(ctx context.Context, p core.Principal) ([]core.Category, error)
	CreateCategory(ctx context.Context, p core.Principal, c core.Category) (core.Category, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Settings     SettingsService
	Dashboard    DashboardService
	Transactions TransactionService
	Store        Pinger // optional
	RateLimitRPM int
}

type Server struct {
	http.Server
	deps     Deps
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer wires the router and returns a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	s := &Server{
		deps:     deps,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitRPM}),
		detector: security.NewDetector(),
		started:  time.Now(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, r, http.StatusNotFound, "resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(requirePrincipal)
		r.Use(s.limiter.Middleware(func(r *http.Request) string {
			return principalFrom(r.Context()).UserID
		}, func(w http.ResponseWriter, r *http.Request) {
			writeStatus(w, r, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
		}))

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/stats", s.handleStats)
			r.Get("/expense-by-category", s.handleExpenseByCategory)
			r.Get("/monthly-analysis", s.handleMonthlyAnalysis)
			r.Get("/report", s.handleReport)
		})

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleUpdateSettings)
		r.Patch("/settings", s.handleUpdateSettings)

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleCreateTransaction)
			r.Put("/{id}", s.handleUpdateTransaction)
			r.Delete("/{id}", s.handleDeleteTransaction)
			r.Get("/{id}/convert", s.handleConvertTransaction)
		})

		r.Get("/categories", s.handleListCategories)
		r.Post("/categories", s.handleCreateCategory)
	})

	return r
}

// Shutdown stops background routines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
