package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockalert/internal/adapters/email"
	"stockalert/internal/market"
	"stockalert/pkg/errors"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("EMAIL_FROM", "alerts@example.com")
	t.Setenv("EMAIL_TO", "me@example.com")
	t.Setenv("SMTP_SERVER", "smtp.example.com")
	t.Setenv("SMTP_USERNAME", "user")
	t.Setenv("SMTP_PASSWORD", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "config.json", cfg.Monitor.ConfigPath)
	assert.Equal(t, 60*time.Second, cfg.Monitor.CheckInterval())
	assert.Equal(t, 3, cfg.Monitor.MaxFailCount)
	assert.Equal(t, 5, cfg.Monitor.MaxUnexpectedErrors)
	assert.True(t, cfg.Monitor.NotifyOnPriceFailure)
	assert.Equal(t, market.TimeOfDay{Hour: 8}, cfg.Market.Open)
	assert.Equal(t, market.TimeOfDay{Hour: 22}, cfg.Market.Close)
	assert.Equal(t, "Europe/Berlin", cfg.Market.Timezone)
	assert.Equal(t, 3, cfg.Quotes.Retries)
	assert.Equal(t, 30*time.Second, cfg.Quotes.RetryDelay)
	assert.Equal(t, 587, cfg.Mail.SMTPPort)
	assert.Equal(t, email.TransportSMTP, cfg.Mail.Transport)
	assert.Equal(t, ":5000", cfg.Admin.Addr)
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	setRequiredEnv(t)
	t.Setenv("CHECK_INTERVAL", "15")
	t.Setenv("MAX_FAIL_COUNT", "7")
	t.Setenv("MARKET_OPEN", "09:30")
	t.Setenv("QUOTE_RETRY_DELAY", "2s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.Monitor.CheckInterval())
	assert.Equal(t, 7, cfg.Monitor.MaxFailCount)
	assert.Equal(t, market.TimeOfDay{Hour: 9, Minute: 30}, cfg.Market.Open)
	assert.Equal(t, 2*time.Second, cfg.Quotes.RetryDelay)
}

func TestLoad_MissingRecipient(t *testing.T) {
	t.Chdir(t.TempDir())
	setRequiredEnv(t)
	t.Setenv("EMAIL_TO", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidMarketTime(t *testing.T) {
	t.Chdir(t.TempDir())
	setRequiredEnv(t)
	t.Setenv("MARKET_CLOSE", "late")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_SMTPCredentialsRequired(t *testing.T) {
	cfg := validConfig()
	cfg.Mail.SMTPServer = ""
	cfg.Mail.SMTPPassword = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	var multi *errors.MultiError
	require.True(t, errors.As(err, &multi))
	assert.Len(t, multi.Errors, 2)
}

func TestValidate_SendmailNeedsNoCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.Mail.Transport = email.TransportSendmail
	cfg.Mail.SMTPServer = ""
	cfg.Mail.SMTPUsername = ""
	cfg.Mail.SMTPPassword = ""

	assert.NoError(t, cfg.Validate())
}

func TestValidate_UnknownTransport(t *testing.T) {
	cfg := validConfig()
	cfg.Mail.Transport = "pigeon"

	assert.Error(t, cfg.Validate())
}

func validConfig() *Config {
	return &Config{
		Monitor: MonitorConfig{CheckIntervalSeconds: 60, MaxFailCount: 3, MaxUnexpectedErrors: 5},
		Quotes:  QuoteConfig{URLTemplate: "https://example.com/?isin=%s"},
		Mail: MailConfig{
			Transport:    email.TransportSMTP,
			From:         "a@example.com",
			To:           "b@example.com",
			SMTPServer:   "smtp.example.com",
			SMTPUsername: "user",
			SMTPPassword: "secret",
			SendmailPath: "/usr/sbin/sendmail",
		},
	}
}
