package retry

import (
	"context"
	"math"
	"net"
	"net/http"
	"time"

	"stockalert/pkg/errors"
)

// Strategy defines the retry strategy
type Strategy string

const (
	// StrategyFixed waits the same delay between every attempt
	StrategyFixed Strategy = "fixed"
	// StrategyLinear grows the delay by InitialDelay each attempt
	StrategyLinear Strategy = "linear"
	// StrategyExponential multiplies the delay each attempt
	StrategyExponential Strategy = "exponential"
)

// Config contains retry configuration
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Strategy     Strategy
	Multiplier   float64 // For exponential backoff

	// RetryIf decides whether an error deserves another attempt. Defaults to IsRetryable.
	RetryIf func(error) bool

	// OnRetry is called before sleeping, e.g. for logging
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultConfig mirrors a conservative scraper: three attempts, fixed 30s apart
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 30 * time.Second,
		MaxDelay:     5 * time.Minute,
		Strategy:     StrategyFixed,
		Multiplier:   2.0,
	}
}

// Middleware runs functions with bounded retries
type Middleware struct {
	config Config
	sleep  func(ctx context.Context, d time.Duration) error
}

// New creates a new retry middleware
func New(config Config) *Middleware {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if config.InitialDelay < 0 {
		config.InitialDelay = 0
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 5 * time.Minute
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.Strategy == "" {
		config.Strategy = StrategyFixed
	}
	if config.RetryIf == nil {
		config.RetryIf = IsRetryable
	}

	return &Middleware{config: config, sleep: sleepContext}
}

// Attempts returns the maximum number of attempts
func (m *Middleware) Attempts() int {
	return m.config.MaxAttempts
}

// Do executes fn until it succeeds, returns a non-retryable error, or attempts run out
func (m *Middleware) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= m.config.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil || !m.config.RetryIf(err) {
			return err
		}
		if attempt == m.config.MaxAttempts {
			break
		}

		delay := m.calculateDelay(attempt - 1)
		if m.config.OnRetry != nil {
			m.config.OnRetry(attempt, delay, err)
		}

		if err := m.sleep(ctx, delay); err != nil {
			return errors.Wrap(err, "retry cancelled")
		}
	}

	return errors.Wrapf(lastErr, "giving up after %d attempts", m.config.MaxAttempts)
}

// calculateDelay calculates the backoff delay based on the strategy
func (m *Middleware) calculateDelay(attempt int) time.Duration {
	var delay time.Duration

	switch m.config.Strategy {
	case StrategyExponential:
		delay = time.Duration(float64(m.config.InitialDelay) * math.Pow(m.config.Multiplier, float64(attempt)))
	case StrategyLinear:
		delay = m.config.InitialDelay * time.Duration(1+attempt)
	default:
		delay = m.config.InitialDelay
	}

	if delay > m.config.MaxDelay {
		delay = m.config.MaxDelay
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// StatusError is returned for HTTP responses with a failing status code
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return "unexpected HTTP status " + http.StatusText(e.Code) + " from " + e.URL
}

// StatusCode exposes the HTTP status
func (e *StatusError) StatusCode() int {
	return e.Code
}

// IsRetryable treats network failures (timeouts included), 429/5xx responses and
// missing prices as transient. Other client errors are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errors.ErrPriceUnavailable) {
		return true
	}

	var statusErr interface{ StatusCode() int }
	if errors.As(err, &statusErr) {
		code := statusErr.StatusCode()
		return code == http.StatusTooManyRequests ||
			code == http.StatusRequestTimeout ||
			code >= 500
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
