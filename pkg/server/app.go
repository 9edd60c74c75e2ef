package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SPPredict/pkg/config"
	applogger "SPPredict/pkg/logger"
)

// HTTPServer is the listener the App drives.
type HTTPServer interface {
	Start() error
	Errors() <-chan error
	Stop(ctx context.Context) error
}

// ModelLoader fetches the model ahead of the first prediction.
type ModelLoader interface {
	Load(ctx context.Context) error
}

// Pruner drops idle per-client state, e.g. rate limiter buckets.
type Pruner interface {
	Prune(idle time.Duration) int
}

// Closer releases one infrastructure resource during shutdown.
type Closer struct {
	Name  string
	Close func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg     *config.Config
	logger  *applogger.Logger
	server  HTTPServer
	model   ModelLoader
	limiter Pruner
	closers []Closer

	pruneEvery time.Duration
}

// New creates a new App. Closers run in the given order after the HTTP server stops.
func New(cfg *config.Config, l *applogger.Logger, srv HTTPServer, model ModelLoader, limiter Pruner, closers ...Closer) *App {
	if l == nil {
		l = applogger.NewNop()
	}
	return &App{
		cfg:        cfg,
		logger:     l.With(applogger.String("component", "app")),
		server:     srv,
		model:      model,
		limiter:    limiter,
		closers:    closers,
		pruneEvery: time.Minute,
	}
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts the application and blocks until ctx is done or the listener fails.
func (a *App) RunContext(ctx context.Context) error {
	a.logger.Info("starting",
		applogger.String("environment", a.cfg.Environment),
		applogger.String("addr", a.cfg.Addr()),
		applogger.String("symbol", a.cfg.Market.Symbol),
	)

	// A failed preload is not fatal: the first prediction retries the load.
	if a.model != nil && a.cfg.Model.Preload {
		if err := a.model.Load(ctx); err != nil {
			a.logger.Warn("model preload failed, will retry on demand", applogger.Error(err))
		}
	}

	if err := a.server.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		a.close()
		return err
	}

	pruneCtx, cancelPrune := context.WithCancel(ctx)
	defer cancelPrune()
	if a.limiter != nil {
		go a.prune(pruneCtx)
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-a.server.Errors():
		runErr = fmt.Errorf("http server: %w", err)
	}
	cancelPrune()

	if err := a.shutdown(); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

func (a *App) prune(ctx context.Context) {
	ticker := time.NewTicker(a.pruneEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.limiter.Prune(10 * time.Minute); n > 0 {
				a.logger.Debug("pruned idle rate limiters", applogger.Int("count", n))
			}
		}
	}
}

// shutdown stops the listener first so no request touches a closed client.
func (a *App) shutdown() error {
	a.logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var err error
	if stopErr := a.server.Stop(ctx); stopErr != nil {
		a.logger.Error("http shutdown error", applogger.Error(stopErr))
		err = stopErr
	}
	a.close()

	a.logger.Info("shutdown complete")
	return err
}

func (a *App) close() {
	for _, c := range a.closers {
		if c.Close == nil {
			continue
		}
		if err := c.Close(); err != nil {
			a.logger.Warn("close error", applogger.String("resource", c.Name), applogger.Error(err))
		}
	}
}
