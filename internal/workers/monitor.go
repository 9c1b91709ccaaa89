package workers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"stockalert/internal/domain/watchlist"
	"stockalert/internal/metrics"
	"stockalert/pkg/errors"
)

// PriceMonitorName is the worker name used in logs and metrics
const PriceMonitorName = "price_monitor"

// QuoteSource returns the latest traded price of an ISIN
type QuoteSource interface {
	Price(ctx context.Context, isin string) (float64, bool)
}

// Notifier delivers a message; delivery problems are its own business
type Notifier interface {
	Notify(ctx context.Context, subject, body string)
}

// WatchlistStore is the part of the watch list store the monitor needs
type WatchlistStore interface {
	Snapshot() []watchlist.Entry
	Deactivate(isins []string) (int, error)
}

// MarketGate tells whether the exchange is trading at a given instant
type MarketGate interface {
	IsOpen(t time.Time) bool
}

// PriceMonitorConfig contains the monitor failure policy
type PriceMonitorConfig struct {
	Interval             time.Duration
	MaxFailCount         int
	NotifyOnPriceFailure bool
	Messages             *Messages // embedded templates when nil
}

// PriceMonitor checks every active watch list entry against its thresholds
// once per cycle while the market is open.
type PriceMonitor struct {
	*BaseWorker
	quotes   QuoteSource
	notifier Notifier
	store    WatchlistStore
	gate     MarketGate
	cfg      PriceMonitorConfig
	now      func() time.Time

	// consecutive failed lookups across all ISINs, reset by any success.
	// Guarded by healthMu.
	priceFailures int
	marketOpen    *bool
}

// NewPriceMonitor creates the price monitoring worker
func NewPriceMonitor(
	quotes QuoteSource,
	notifier Notifier,
	store WatchlistStore,
	gate MarketGate,
	cfg PriceMonitorConfig,
) *PriceMonitor {
	if cfg.MaxFailCount <= 0 {
		cfg.MaxFailCount = 1
	}
	if cfg.Messages == nil {
		cfg.Messages = NewMessages(nil)
	}
	return &PriceMonitor{
		BaseWorker: NewBaseWorker(PriceMonitorName, cfg.Interval, true),
		quotes:     quotes,
		notifier:   notifier,
		store:      store,
		gate:       gate,
		cfg:        cfg,
		now:        time.Now,
	}
}

// PriceFailures returns the current consecutive lookup failure count
func (m *PriceMonitor) PriceFailures() int {
	m.healthMu.RLock()
	defer m.healthMu.RUnlock()
	return m.priceFailures
}

func (m *PriceMonitor) recordPriceFailure() int {
	m.healthMu.Lock()
	defer m.healthMu.Unlock()
	m.priceFailures++
	return m.priceFailures
}

func (m *PriceMonitor) resetPriceFailures() {
	m.healthMu.Lock()
	m.priceFailures = 0
	m.healthMu.Unlock()
}

// Run executes one monitoring cycle
func (m *PriceMonitor) Run(ctx context.Context) error {
	open := m.gate.IsOpen(m.now())
	m.logMarketTransition(open)
	metrics.SetMarketOpen(open)

	if !open {
		m.SetState(StateMarketClosed)
		return nil
	}
	m.SetState(StateMarketOpenScanning)

	log := m.Log().With("scan_id", uuid.NewString())

	active := watchlist.Active(m.store.Snapshot())
	if len(active) == 0 {
		log.Info("All entries are marked as inactive. No ISINs are currently being monitored.")
		return nil
	}

	log.Debugw("Scanning watch list", "active", len(active))

	var toDeactivate []string
	for _, entry := range active {
		price, ok := m.quotes.Price(ctx, entry.ISIN)
		if !ok {
			failures := m.recordPriceFailure()
			metrics.SetConsecutiveFailures("price", failures)
			log.Warnw("Failed to get stock price",
				"isin", entry.ISIN,
				"consecutive_failures", failures,
				"max_fail_count", m.cfg.MaxFailCount,
			)

			if m.cfg.NotifyOnPriceFailure {
				subject, body := m.cfg.Messages.PriceFailure(entry.ISIN)
				m.notifier.Notify(ctx, subject, body)
			}

			if failures >= m.cfg.MaxFailCount {
				return m.terminate(ctx, toDeactivate, failures)
			}
			continue
		}

		m.resetPriceFailures()
		metrics.SetConsecutiveFailures("price", 0)
		log.Infow("Current price", "isin", entry.ISIN, "price", price)

		breach, hit := entry.Evaluate(price)
		if !hit {
			continue
		}

		metrics.RecordAlert(string(breach.Kind))
		subject, body := m.cfg.Messages.Alert(entry.ISIN, breach, price)
		m.notifier.Notify(ctx, subject, body)
		log.Infow("Alert sent, marking as inactive",
			"isin", entry.ISIN,
			"reason", breach.Reason(),
			"price", price,
		)
		toDeactivate = append(toDeactivate, entry.ISIN)
	}

	if err := m.deactivate(toDeactivate); err != nil {
		return err
	}

	if len(toDeactivate) > 0 && len(watchlist.Active(m.store.Snapshot())) == 0 {
		log.Info("All entries are marked as inactive. No ISINs are currently being monitored.")
	}
	return nil
}

func (m *PriceMonitor) terminate(ctx context.Context, pending []string, failures int) error {
	m.Log().Errorw("Failed to retrieve stock prices too many times in a row. Stopping monitoring.",
		"max_fail_count", m.cfg.MaxFailCount,
	)

	if err := m.deactivate(pending); err != nil {
		m.Log().Errorw("Failed to persist deactivations before stopping", "isins", pending, "error", err)
	}

	subject, body := m.cfg.Messages.ServiceStopped(m.cfg.MaxFailCount)
	m.notifier.Notify(ctx, subject, body)
	return errors.Wrapf(errors.ErrTerminated, "%d consecutive price lookups failed", failures)
}

func (m *PriceMonitor) deactivate(isins []string) error {
	if len(isins) == 0 {
		return nil
	}
	if _, err := m.store.Deactivate(isins); err != nil {
		return errors.Wrap(err, "failed to deactivate alerted ISINs")
	}
	return nil
}

func (m *PriceMonitor) logMarketTransition(open bool) {
	if m.marketOpen != nil && *m.marketOpen == open {
		return
	}
	if open {
		m.Log().Infow("Market is open, monitoring resumes", "at", m.now())
	} else {
		m.Log().Infow("Market is closed, monitoring paused", "at", m.now())
	}
	m.marketOpen = &open
}
