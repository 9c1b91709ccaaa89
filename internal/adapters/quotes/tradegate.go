package quotes

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"stockalert/internal/adapters/retry"
	"stockalert/internal/metrics"
	"stockalert/pkg/errors"
	"stockalert/pkg/logger"
)

// Config contains quote source settings
type Config struct {
	URLTemplate string // must contain %s for the ISIN
	UserAgent   string
	Timeout     time.Duration // per request
	Retries     int           // total attempts per lookup
	RetryDelay  time.Duration
}

// Client scrapes the latest traded price from the Tradegate order book
type Client struct {
	httpClient  *http.Client
	urlTemplate string
	userAgent   string
	retry       *retry.Middleware
	logger      *logger.Logger
}

// NewClient creates a Tradegate quote client
func NewClient(cfg Config, log *logger.Logger) *Client {
	log = log.With("component", "quotes")

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.Retries
	retryCfg.InitialDelay = cfg.RetryDelay
	retryCfg.Strategy = retry.StrategyFixed
	retryCfg.OnRetry = func(attempt int, delay time.Duration, err error) {
		log.Warnw("Price lookup attempt failed, retrying",
			"attempt", attempt,
			"max_attempts", cfg.Retries,
			"delay", delay,
			"error", err,
		)
	}

	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		urlTemplate: cfg.URLTemplate,
		userAgent:   cfg.UserAgent,
		retry:       retry.New(retryCfg),
		logger:      log,
	}
}

// URL returns the order book page for an ISIN
func (c *Client) URL(isin string) string {
	return fmt.Sprintf(c.urlTemplate, isin)
}

// Price returns the latest traded price for an ISIN.
// Every failure mode ends as ok == false once retries are exhausted.
func (c *Client) Price(ctx context.Context, isin string) (float64, bool) {
	url := c.URL(isin)
	c.logger.Debugw("Fetching price", "isin", isin, "url", url)

	start := time.Now()
	var price float64
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		p, err := c.fetch(ctx, url)
		if err != nil {
			return err
		}
		price, _ = p.Float64()
		return nil
	})
	metrics.RecordQuote(time.Since(start), err)

	if err != nil {
		c.logger.Warnw("Failed to retrieve price",
			"isin", isin,
			"attempts", c.retry.Attempts(),
			"error", err,
		)
		return 0, false
	}

	c.logger.Infow("Retrieved price", "isin", isin, "price", price)
	return price, true
}

func (c *Client) fetch(ctx context.Context, url string) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to build request")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decimal.Zero, &retry.StatusError{Code: resp.StatusCode, URL: url}
	}

	return ParsePrice(resp.Body)
}
