package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"stockalert/internal/adapters/email"
	"stockalert/internal/market"
	"stockalert/pkg/errors"
)

type Config struct {
	App           AppConfig
	Monitor       MonitorConfig
	Market        MarketConfig
	Quotes        QuoteConfig
	Mail          MailConfig
	Admin         AdminConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"stockalert"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Version  string `envconfig:"APP_VERSION" default:"dev"`
}

// MonitorConfig drives the monitoring loop and its failure policy
type MonitorConfig struct {
	ConfigPath           string `envconfig:"CONFIG_PATH" default:"config.json"`
	CheckIntervalSeconds int    `envconfig:"CHECK_INTERVAL" default:"60"`
	MaxFailCount         int    `envconfig:"MAX_FAIL_COUNT" default:"3"`
	MaxUnexpectedErrors  int    `envconfig:"MAX_UNEXPECTED_ERRORS" default:"5"`
	NotifyOnPriceFailure bool   `envconfig:"NOTIFY_ON_PRICE_FAILURE" default:"true"`
}

// CheckInterval is the poll interval as a duration
func (c MonitorConfig) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalSeconds) * time.Second
}

type MarketConfig struct {
	Timezone string           `envconfig:"MARKET_TIMEZONE" default:"Europe/Berlin"`
	Open     market.TimeOfDay `envconfig:"MARKET_OPEN" default:"08:00"`
	Close    market.TimeOfDay `envconfig:"MARKET_CLOSE" default:"22:00"`
}

type QuoteConfig struct {
	URLTemplate string        `envconfig:"QUOTE_URL_TEMPLATE" default:"https://www.tradegate.de/orderbuch_umsaetze.php?isin=%s"`
	Retries     int           `envconfig:"QUOTE_RETRIES" default:"3"`
	RetryDelay  time.Duration `envconfig:"QUOTE_RETRY_DELAY" default:"30s"`
	Timeout     time.Duration `envconfig:"QUOTE_TIMEOUT" default:"10s"`
	UserAgent   string        `envconfig:"QUOTE_USER_AGENT" default:"Mozilla/5.0 (compatible; stockalert/1.0)"`
}

type MailConfig struct {
	Transport    string `envconfig:"MAIL_TRANSPORT" default:"smtp"`
	From         string `envconfig:"EMAIL_FROM" required:"true"`
	To           string `envconfig:"EMAIL_TO" required:"true"`
	SMTPServer   string `envconfig:"SMTP_SERVER"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SendmailPath string `envconfig:"SENDMAIL_PATH" default:"/usr/sbin/sendmail"`
	TemplatesDir string `envconfig:"NOTIFICATION_TEMPLATES_DIR"` // overrides embedded notification texts
}

type AdminConfig struct {
	Addr string `envconfig:"ADMIN_ADDR" default:":5000"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field requirements envconfig tags cannot express
func (c *Config) Validate() error {
	var errs errors.MultiError

	if c.Monitor.CheckIntervalSeconds <= 0 {
		errs.Add(errors.NewValidationError("CHECK_INTERVAL", "must be positive", c.Monitor.CheckIntervalSeconds))
	}
	if c.Monitor.MaxFailCount <= 0 {
		errs.Add(errors.NewValidationError("MAX_FAIL_COUNT", "must be positive", c.Monitor.MaxFailCount))
	}
	if c.Monitor.MaxUnexpectedErrors <= 0 {
		errs.Add(errors.NewValidationError("MAX_UNEXPECTED_ERRORS", "must be positive", c.Monitor.MaxUnexpectedErrors))
	}
	if !strings.Contains(c.Quotes.URLTemplate, "%s") {
		errs.Add(errors.NewValidationError("QUOTE_URL_TEMPLATE", "must contain %s for the ISIN", c.Quotes.URLTemplate))
	}

	if strings.TrimSpace(c.Mail.From) == "" {
		errs.Add(errors.NewValidationError("EMAIL_FROM", "must not be empty", ""))
	}
	if strings.TrimSpace(c.Mail.To) == "" {
		errs.Add(errors.NewValidationError("EMAIL_TO", "must not be empty", ""))
	}

	switch c.Mail.Transport {
	case email.TransportSMTP:
		if c.Mail.SMTPServer == "" {
			errs.Add(errors.NewValidationError("SMTP_SERVER", "required for smtp transport", ""))
		}
		if c.Mail.SMTPUsername == "" {
			errs.Add(errors.NewValidationError("SMTP_USERNAME", "required for smtp transport", ""))
		}
		if c.Mail.SMTPPassword == "" {
			errs.Add(errors.NewValidationError("SMTP_PASSWORD", "required for smtp transport", ""))
		}
	case email.TransportSendmail:
		if c.Mail.SendmailPath == "" {
			errs.Add(errors.NewValidationError("SENDMAIL_PATH", "required for sendmail transport", ""))
		}
	default:
		errs.Add(errors.NewValidationError("MAIL_TRANSPORT", "must be smtp or sendmail", c.Mail.Transport))
	}

	return errs.ToError()
}
