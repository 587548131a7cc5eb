package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/polypredict/dashd/internal/server"
	"github.com/polypredict/dashd/internal/server/handler"
	"github.com/polypredict/dashd/internal/server/ws"
)

// FullMode runs the complete dashboard daemon: the background poller, the
// HTTP + WebSocket API, and the action dispatcher behind it.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Poller.Run(ctx)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	}

	return g.Wait()
}

// ReadonlyMode runs without a signing key: markets and prices are served and
// streamed, but the action and admin endpoints are not registered.
func (a *App) ReadonlyMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting readonly mode")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Poller.Run(ctx)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	}

	return g.Wait()
}

// startHTTPServer adds the API server and WebSocket hub goroutines to the
// given errgroup. Write endpoints are registered only when a dispatcher was
// wired (full mode).
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	hub := ws.NewHub(deps.SignalBus, a.cfg.Mode, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(a.cfg.Mode, time.Now().UTC(), a.logger),
		Markets: handler.NewMarketHandler(deps.Aggregator, deps.Session, a.logger),
		Profile: handler.NewProfileHandler(deps.Aggregator, deps.Session, a.logger),
		Session: handler.NewSessionHandler(deps.Session, deps.Aggregator, a.logger),
	}
	if deps.Dispatcher != nil {
		handlers.Actions = handler.NewActionHandler(deps.Dispatcher, a.logger)
		handlers.Admin = handler.NewAdminHandler(deps.Dispatcher, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
