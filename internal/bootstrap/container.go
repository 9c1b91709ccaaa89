package bootstrap

import (
	"context"
	"os/signal"
	"syscall"

	"stockalert/internal/adapters/config"
	"stockalert/internal/adapters/email"
	"stockalert/internal/adapters/quotes"
	"stockalert/internal/api"
	"stockalert/internal/domain/watchlist"
	"stockalert/internal/market"
	"stockalert/internal/workers"
	"stockalert/pkg/errors"
	"stockalert/pkg/logger"
)

// Container holds all application dependencies and their lifecycle
// Components are organized in initialization order
type Container struct {
	// Core configuration & logging
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Durable state
	Store *watchlist.Store

	// External Adapters
	Adapters *Adapters

	// Application Layer
	Application *Application

	// Background Processing
	Background *Background

	// Lifecycle management
	Lifecycle *Lifecycle
}

// Adapters groups the collaborators of the monitoring loop
type Adapters struct {
	Market   *market.Window
	Quotes   *quotes.Client
	Notifier *email.Notifier
	Messages *workers.Messages
}

// Application groups the HTTP surface
type Application struct {
	HTTPServer *api.Server
}

// Background groups the workers and their supervisor
type Background struct {
	Monitor   *workers.PriceMonitor
	Registry  *workers.Registry
	Scheduler *workers.Scheduler
}

// NewContainer builds every component from cfg.
// A failure here is a startup failure: the error tracker is flushed before returning.
func NewContainer(cfg *config.Config) (*Container, error) {
	c := &Container{
		Config:    cfg,
		Log:       logger.Get(),
		Lifecycle: NewLifecycle(),
	}

	c.ErrorTracker = provideErrorTracker(cfg, c.Log)
	logger.SetErrorTracker(c.ErrorTracker)

	if err := c.build(); err != nil {
		c.Lifecycle.flushErrorTracker(c.ErrorTracker, context.Background(), c.Log)
		return nil, err
	}
	return c, nil
}

func (c *Container) build() error {
	var err error

	if c.Store, err = provideStore(c.Config, c.Log); err != nil {
		return err
	}

	if c.Adapters, err = provideAdapters(c.Config, c.Log); err != nil {
		return err
	}

	if c.Background, err = provideBackground(c.Config, c.Store, c.Adapters); err != nil {
		return err
	}

	if c.Application, err = provideApplication(c.Config, c.Store, c.Background.Registry, c.Log); err != nil {
		return err
	}

	provideMetrics(c.Store, c.Log)
	return nil
}

// Run serves HTTP, drives the scheduler until SIGINT/SIGTERM or a fatal
// worker error, then shuts everything down in order.
// It returns nil on cooperative shutdown and the fatal error otherwise.
func (c *Container) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := c.Application.HTTPServer.Start(); err != nil {
			c.Log.Errorw("HTTP server stopped", "error", err)
		}
	}()

	c.Log.Infow("System initialized successfully",
		"isins", c.Store.Len(),
		"active", len(watchlist.Active(c.Store.Snapshot())),
		"interval", c.Config.Monitor.CheckInterval(),
		"max_fail_count", c.Config.Monitor.MaxFailCount,
		"market", c.Adapters.Market.String(),
	)

	runErr := c.Background.Scheduler.Run(ctx)
	if runErr == nil {
		c.Log.Info("Shutting down...")
	} else {
		c.Log.Errorw("Monitoring stopped", "error", runErr)
	}

	c.Lifecycle.Shutdown(c.Application.HTTPServer, c.Store, c.ErrorTracker, c.Log)
	return runErr
}
