package testsupport

import (
	"os"
	"strconv"
	"testing"
)

// SMTPEnv bundles settings for live mail delivery tests.
type SMTPEnv struct {
	Server   string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// LoadSMTPEnv reads live SMTP settings for integration tests.
// Tests are skipped when required environment variables are missing.
func LoadSMTPEnv(t *testing.T) SMTPEnv {
	t.Helper()

	required := []string{
		"TEST_SMTP_SERVER", "TEST_SMTP_USERNAME", "TEST_SMTP_PASSWORD",
		"TEST_EMAIL_FROM", "TEST_EMAIL_TO",
	}

	missing := make([]string, 0)
	for _, key := range required {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		t.Skipf("integration environment missing, set %v to run", missing)
	}

	return SMTPEnv{
		Server:   os.Getenv("TEST_SMTP_SERVER"),
		Port:     intValue("TEST_SMTP_PORT", 587),
		Username: os.Getenv("TEST_SMTP_USERNAME"),
		Password: os.Getenv("TEST_SMTP_PASSWORD"),
		From:     os.Getenv("TEST_EMAIL_FROM"),
		To:       os.Getenv("TEST_EMAIL_TO"),
	}
}

func intValue(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}
