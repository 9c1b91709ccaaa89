package main

import (
	"context"
	"os"

	"stockalert/internal/adapters/config"
	"stockalert/internal/bootstrap"
	"stockalert/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		logger.Get().Errorw("Failed to load config", "error", err)
		return 1
	}

	// Initialize logger
	if err := initLogger(cfg); err != nil {
		logger.Get().Errorw("Failed to init logger", "error", err)
		return 1
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s %s in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Env)
	logConfig(cfg, log)

	container, err := bootstrap.NewContainer(cfg)
	if err != nil {
		log.Errorw("Startup failed", "error", err)
		return 1
	}

	if err := container.Run(context.Background()); err != nil {
		return 1
	}
	return 0
}

// loadConfig loads application configuration from environment
func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(cfg *config.Config) error {
	return logger.Init(cfg.App.LogLevel, cfg.App.Env)
}

// logConfig prints the effective settings with secrets masked
func logConfig(cfg *config.Config, log *logger.Logger) {
	password := ""
	if cfg.Mail.SMTPPassword != "" {
		password = "***"
	}

	log.Infow("Configuration",
		"config_path", cfg.Monitor.ConfigPath,
		"check_interval", cfg.Monitor.CheckInterval(),
		"max_fail_count", cfg.Monitor.MaxFailCount,
		"max_unexpected_errors", cfg.Monitor.MaxUnexpectedErrors,
		"mail_transport", cfg.Mail.Transport,
		"email_from", cfg.Mail.From,
		"email_to", cfg.Mail.To,
		"smtp_server", cfg.Mail.SMTPServer,
		"smtp_port", cfg.Mail.SMTPPort,
		"smtp_username", cfg.Mail.SMTPUsername,
		"smtp_password", password,
		"admin_addr", cfg.Admin.Addr,
	)
}
