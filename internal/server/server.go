// Package server exposes the reconciliation results, blended signals and
// backtesting operations over a JSON HTTP API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fedlens/fedlens/internal/server/handler"
	"github.com/fedlens/fedlens/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers the server registers. Nil handlers
// are skipped, so read-only deployments can omit the trigger endpoint.
type Handlers struct {
	Health    *handler.HealthHandler
	Markets   *handler.MarketHandler
	Alerts    *handler.AlertHandler
	Signals   *handler.SignalHandler
	Backtest  *handler.BacktestHandler
	Aggregate *handler.AggregateHandler
}

// Server is the headless HTTP API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered and the middleware
// chain (auth, logging, CORS) applied.
func NewServer(cfg Config, handlers Handlers, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check and metrics carry no auth requirement of their own; the
	// auth middleware wraps everything uniformly, matching how the API is
	// deployed behind a private ingress.
	if handlers.Health != nil {
		mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	}
	mux.Handle("GET /metrics", promhttp.Handler())

	if handlers.Markets != nil {
		mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
		mux.HandleFunc("GET /api/markets/matches", handlers.Markets.ListMatches)
		mux.HandleFunc("GET /api/markets/cached/{venue}", handlers.Markets.ListCached)
	}

	if handlers.Alerts != nil {
		mux.HandleFunc("GET /api/alerts", handlers.Alerts.ListAlerts)
	}

	if handlers.Signals != nil {
		mux.HandleFunc("GET /api/signals", handlers.Signals.GetSignals)
		mux.HandleFunc("GET /api/signals/history", handlers.Signals.GetHistory)
	}

	if handlers.Backtest != nil {
		mux.HandleFunc("GET /api/backtest/accuracy", handlers.Backtest.GetAccuracy)
		mux.HandleFunc("GET /api/backtest/correlation", handlers.Backtest.GetCorrelation)
		mux.HandleFunc("GET /api/backtest/weights", handlers.Backtest.GetWeights)
		mux.HandleFunc("GET /api/backtest/regimes", handlers.Backtest.GetRegimes)
		mux.HandleFunc("GET /api/backtest/markets", handlers.Backtest.GetHistoricalMarkets)
		mux.HandleFunc("GET /api/backtest/markets/{ticker}", handlers.Backtest.GetMarketAtTime)
	}

	if handlers.Aggregate != nil {
		mux.HandleFunc("POST /api/aggregate/trigger", handlers.Aggregate.Trigger)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = corsMiddleware(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// corsMiddleware sets CORS headers for the allowed origins. No configured
// origins means allow all.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}

				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
