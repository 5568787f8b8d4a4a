package api

import (
	"log/slog"
	"net/http"
	"time"

	"welfare-ledger/internal/api/handler"
	mw "welfare-ledger/internal/api/middleware"
	"welfare-ledger/internal/config"
	"welfare-ledger/internal/domain/interest"
	"welfare-ledger/internal/domain/ledger"
	"welfare-ledger/internal/domain/summary"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/traceid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Services struct {
	Interest interest.Service
	Ledger   ledger.Service
	Summary  summary.Service
	Batch    handler.BatchRunner
}

func SetupRouter(services Services, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()

	setupMiddleware(router, cfg, logger)
	setupMetricsEndpoint(router, cfg, logger)
	setupAuthRoutes(router, cfg, logger)
	setupInterestRoutes(router, services, cfg, logger)
	setupSummaryRoutes(router, services.Summary, cfg, logger)
	setupLedgerRoutes(router, services.Ledger, cfg, logger)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return router
}

func setupMiddleware(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(traceid.Middleware)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(mw.NewRateLimiterMiddleware(cfg.Server.RateLimit, logger).Middleware)
	router.Use(mw.MetricsMiddleware())
}

func setupMetricsEndpoint(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", metricsPath)
	router.Handle(metricsPath, promhttp.Handler())
}

func setupAuthRoutes(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	authHandler := handler.NewAuthHandler(*cfg, logger)
	router.Route("/auth", func(r chi.Router) {
		r.Post("/token", authHandler.GenerateBearerToken)
	})
}

func setupInterestRoutes(router *chi.Mux, services Services, cfg *config.Config, logger *slog.Logger) {
	h := handler.NewInterestHandler(services.Interest, services.Batch, logger)

	router.Route("/interest", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/run", h.RunBatch)
		r.Route("/customers/{customerID}", func(r chi.Router) {
			r.Post("/apply", h.ApplyForCustomer)
			r.Get("/balance", h.GetBalance)
		})
	})
}

func setupSummaryRoutes(router *chi.Mux, svc summary.Service, cfg *config.Config, logger *slog.Logger) {
	h := handler.NewSummaryHandler(svc, logger)

	router.Route("/summary", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Get("/", h.GetSummary)
		r.Get("/{metric}/breakdown", h.GetBreakdown)
	})
}

func setupLedgerRoutes(router *chi.Mux, svc ledger.Service, cfg *config.Config, logger *slog.Logger) {
	h := handler.NewLedgerHandler(svc, logger)

	router.Route("/ledger", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Delete("/entries/{entryID}", h.DeleteEntry)
	})
}
