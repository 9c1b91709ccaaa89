package bootstrap

import (
	"stockalert/internal/adapters/config"
	"stockalert/internal/adapters/email"
	"stockalert/internal/adapters/errors/noop"
	"stockalert/internal/adapters/errors/sentry"
	"stockalert/internal/adapters/quotes"
	"stockalert/internal/api"
	"stockalert/internal/api/admin"
	"stockalert/internal/api/health"
	"stockalert/internal/domain/watchlist"
	"stockalert/internal/market"
	"stockalert/internal/metrics"
	"stockalert/internal/workers"
	"stockalert/pkg/errors"
	"stockalert/pkg/logger"
	"stockalert/pkg/templates"
)

func provideErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment, cfg.App.Version)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

func provideStore(cfg *config.Config, log *logger.Logger) (*watchlist.Store, error) {
	store, err := watchlist.Open(cfg.Monitor.ConfigPath)
	if err != nil {
		log.Errorw("Failed to load watch list", "path", cfg.Monitor.ConfigPath, "error", err)
		return nil, err
	}
	return store, nil
}

func provideMetrics(store *watchlist.Store, log *logger.Logger) {
	metrics.Init()
	if err := metrics.RegisterWatchlist(store); err != nil {
		log.Warnw("Watch list metrics not registered", "error", err)
	}
}

func provideAdapters(cfg *config.Config, log *logger.Logger) (*Adapters, error) {
	window, err := market.NewWindow(cfg.Market.Timezone, cfg.Market.Open, cfg.Market.Close)
	if err != nil {
		log.Errorw("Failed to load market timezone", "timezone", cfg.Market.Timezone, "error", err)
		return nil, err
	}

	quoteClient := quotes.NewClient(quotes.Config{
		URLTemplate: cfg.Quotes.URLTemplate,
		UserAgent:   cfg.Quotes.UserAgent,
		Timeout:     cfg.Quotes.Timeout,
		Retries:     cfg.Quotes.Retries,
		RetryDelay:  cfg.Quotes.RetryDelay,
	}, log)

	notifier, err := email.New(email.Config{
		Transport:    cfg.Mail.Transport,
		From:         cfg.Mail.From,
		To:           email.ParseRecipients(cfg.Mail.To),
		SMTPServer:   cfg.Mail.SMTPServer,
		SMTPPort:     cfg.Mail.SMTPPort,
		Username:     cfg.Mail.SMTPUsername,
		Password:     cfg.Mail.SMTPPassword,
		SendmailPath: cfg.Mail.SendmailPath,
	}, log)
	if err != nil {
		log.Errorw("Failed to init notifier", "error", err)
		return nil, err
	}

	messages, err := provideMessages(cfg, log)
	if err != nil {
		log.Errorw("Failed to load notification templates", "dir", cfg.Mail.TemplatesDir, "error", err)
		return nil, err
	}

	return &Adapters{
		Market:   window,
		Quotes:   quoteClient,
		Notifier: notifier,
		Messages: messages,
	}, nil
}

// provideMessages loads notification templates, overlaying TemplatesDir when set
func provideMessages(cfg *config.Config, log *logger.Logger) (*workers.Messages, error) {
	if cfg.Mail.TemplatesDir == "" {
		return workers.NewMessages(nil), nil
	}

	reg, err := templates.NewRegistry(cfg.Mail.TemplatesDir)
	if err != nil {
		return nil, err
	}
	log.Infow("Notification templates loaded", "dir", cfg.Mail.TemplatesDir, "templates", reg.List())
	return workers.NewMessages(reg), nil
}

func provideBackground(cfg *config.Config, store *watchlist.Store, adapters *Adapters) (*Background, error) {
	monitor := workers.NewPriceMonitor(adapters.Quotes, adapters.Notifier, store, adapters.Market, workers.PriceMonitorConfig{
		Interval:             cfg.Monitor.CheckInterval(),
		MaxFailCount:         cfg.Monitor.MaxFailCount,
		NotifyOnPriceFailure: cfg.Monitor.NotifyOnPriceFailure,
		Messages:             adapters.Messages,
	})

	registry := workers.NewRegistry()
	if err := registry.Register(monitor); err != nil {
		return nil, err
	}

	scheduler := workers.NewScheduler(cfg.Monitor.MaxUnexpectedErrors)
	scheduler.SetFatalHandler(workers.NotifyFatal(adapters.Notifier, adapters.Messages))
	scheduler.RegisterWorker(monitor)

	return &Background{
		Monitor:   monitor,
		Registry:  registry,
		Scheduler: scheduler,
	}, nil
}

func provideApplication(cfg *config.Config, store *watchlist.Store, registry *workers.Registry, log *logger.Logger) (*Application, error) {
	adminHandler, err := admin.New(store, log)
	if err != nil {
		return nil, err
	}
	healthHandler := health.New(log, store, registry, cfg.App.Name, cfg.App.Version)

	return &Application{
		HTTPServer: api.NewServer(api.ServerConfig{Addr: cfg.Admin.Addr}, adminHandler, healthHandler, log),
	}, nil
}
