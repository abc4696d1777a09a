// Package server initializes and runs the gophauth server.
// It wires the user store, the token store and the session manager, serves
// the HTTP and gRPC gateways and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/httpapi"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/server/session"
	"github.com/dmitrijs2005/gophauth/internal/server/tokenstore"
	"github.com/gin-gonic/gin"

	gs "github.com/dmitrijs2005/gophauth/internal/server/grpc"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	store    tokenstore.Store
	sessions *session.Manager
	users    *services.UserService
	metrics  *metrics.Metrics
	router   *gin.Engine
}

// NewApp connects the configured backends and builds every component.
// Backends opened before a failure are closed again.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (_ *App, err error) {
	app := &App{config: c, logger: logger}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	rm := repomanager.NewMemoryRepositoryManager()
	if c.DatabaseDSN != "" {
		app.db, err = repomanager.Open(c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		if err := tokenstore.WaitReady(ctx, tokenstore.PingFunc(app.db.PingContext),
			c.ConnectAttempts, c.ConnectBaseDelay, logger.With("module", "db")); err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		rm = repomanager.NewPostgresRepositoryManager()
		if err := rm.RunMigrations(ctx, app.db); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	app.users = services.NewUserService(app.db, rm)

	app.store, err = tokenstore.New(ctx, c.TokenStore(), app.db, logger)
	if err != nil {
		return nil, fmt.Errorf("token store init error: %w", err)
	}

	app.metrics = metrics.New()
	app.sessions, err = session.NewManager(c.Session(), app.store, logger, session.WithObserver(app.metrics))
	if err != nil {
		return nil, fmt.Errorf("session manager init error: %w", err)
	}

	app.router = httpapi.NewRouter(httpapi.Deps{
		Sessions: app.sessions,
		Users:    app.users,
		Store:    app.store,
		Logger:   logger,
		Metrics:  app.metrics,
	})

	return app, nil
}

// Close releases the token store and the database.
func (app *App) Close() {
	if app.store != nil {
		if err := app.store.Close(); err != nil {
			app.logger.Warn(context.Background(), "closing token store", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Warn(context.Background(), "closing database", "error", err)
		}
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.EndpointAddrHTTP,
		Handler:           app.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			app.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.sessions, app.store)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// runSweeper purges expired records every interval until ctx is done.
func runSweeper(ctx context.Context, sw tokenstore.Sweeper, interval time.Duration, logger logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sw.Sweep(ctx, time.Now())
			if err != nil {
				logger.Warn(ctx, "sweep failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug(ctx, "expired records swept", "count", n)
			}
		}
	}
}

// Run serves until a signal arrives or a server fails, then closes the backends.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	if sw, ok := app.store.(tokenstore.Sweeper); ok && app.config.SweepInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runSweeper(ctx, sw, app.config.SweepInterval, app.logger.With("module", "sweeper"))
		}()
	}

	wg.Wait()
	app.Close()

	app.logger.Info(context.Background(), "App stopped")
}
