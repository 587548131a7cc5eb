package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/polypredict/dashd/internal/domain"
	"github.com/polypredict/dashd/internal/server/handler"
	"github.com/polypredict/dashd/internal/server/middleware"
	"github.com/polypredict/dashd/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
// Actions and Admin are nil in readonly mode; their routes are then omitted.
type Handlers struct {
	Health  *handler.HealthHandler
	Markets *handler.MarketHandler
	Profile *handler.ProfileHandler
	Session *handler.SessionHandler
	Actions *handler.ActionHandler
	Admin   *handler.AdminHandler
}

// Server is the HTTP + WebSocket API behind the dashboard pages.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// actionRateLimit bounds write dispatches per client IP. Reads are uncapped;
// the dispatcher's single-flight guard already serializes transactions, the
// limiter just stops one client from hammering the queue slot.
const (
	actionRateLimit  = 10
	actionRateWindow = time.Minute
)

// NewServer creates a new Server with all routes registered. It wires up the
// middleware chain (CORS, logging, auth) and attaches the WebSocket hub.
// limiter may be nil, which disables rate limiting on the action routes.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// --- Read routes ---

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("GET /api/profile", handlers.Profile.GetProfile)

	mux.HandleFunc("GET /api/session", handlers.Session.Status)
	mux.HandleFunc("POST /api/session/switch", handlers.Session.Switch)

	// --- Write routes, rate limited per client ---

	limit := func(h http.HandlerFunc) http.Handler {
		if limiter == nil {
			return h
		}
		return middleware.RateLimit(limiter, actionRateLimit, actionRateWindow)(h)
	}

	if handlers.Actions != nil {
		mux.Handle("POST /api/actions/deposit", limit(handlers.Actions.Deposit))
		mux.Handle("POST /api/actions/orders", limit(handlers.Actions.PlaceOrder))
		mux.Handle("POST /api/actions/orders/{id}/cancel", limit(handlers.Actions.CancelOrder))
		mux.Handle("POST /api/actions/markets/{id}/claim", limit(handlers.Actions.ClaimProfit))
	}
	if handlers.Admin != nil {
		mux.Handle("POST /api/admin/markets", limit(handlers.Admin.CreateMarket))
		mux.Handle("POST /api/admin/markets/{id}/resolve", limit(handlers.Admin.ResolveMarket))
		mux.Handle("POST /api/admin/markets/{id}/cancel", limit(handlers.Admin.CancelMarket))
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

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
