package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockalert_worker_cycles_total",
			Help: "Total number of worker cycles",
		},
		[]string{"worker", "status"}, // status: success|error|terminated
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockalert_worker_cycle_duration_seconds",
			Help:    "Worker cycle duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stockalert_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker cycle",
		},
		[]string{"worker"},
	)

	WorkerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stockalert_worker_state",
			Help: "Current worker state (1 for the active state, 0 otherwise)",
		},
		[]string{"worker", "state"},
	)

	ConsecutiveFailures = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stockalert_consecutive_failures",
			Help: "Current consecutive failure counters",
		},
		[]string{"kind"}, // kind: price|unexpected
	)

	// Market metrics
	MarketOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stockalert_market_open",
			Help: "1 while the market window is open",
		},
	)

	// Quote source metrics
	QuoteRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockalert_quote_requests_total",
			Help: "Total number of price lookups, after retries",
		},
		[]string{"status"}, // status: success|error
	)

	QuoteLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stockalert_quote_latency_seconds",
			Help:    "Price lookup latency in seconds, retries included",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	// Alert metrics
	AlertsFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockalert_alerts_fired_total",
			Help: "Total number of threshold breaches",
		},
		[]string{"breach"}, // breach: upper|lower
	)

	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockalert_notifications_total",
			Help: "Total number of notification attempts",
		},
		[]string{"transport", "status"}, // status: success|error
	)
)

var initOnce sync.Once

// Init registers all metrics with Prometheus; later calls are no-ops
func Init() {
	initOnce.Do(register)
}

func register() {
	prometheus.MustRegister(WorkerExecutions)
	prometheus.MustRegister(WorkerDuration)
	prometheus.MustRegister(WorkerLastRun)
	prometheus.MustRegister(WorkerState)
	prometheus.MustRegister(ConsecutiveFailures)

	prometheus.MustRegister(MarketOpen)

	prometheus.MustRegister(QuoteRequests)
	prometheus.MustRegister(QuoteLatency)

	prometheus.MustRegister(AlertsFired)
	prometheus.MustRegister(Notifications)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordWorkerExecution records one worker cycle
func RecordWorkerExecution(worker string, duration time.Duration, outcome string) {
	WorkerExecutions.WithLabelValues(worker, outcome).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}

// SetWorkerState flags the current state of a worker among all known states
func SetWorkerState(worker, current string, states []string) {
	for _, s := range states {
		v := 0.0
		if s == current {
			v = 1
		}
		WorkerState.WithLabelValues(worker, s).Set(v)
	}
}

// SetConsecutiveFailures publishes a failure counter
func SetConsecutiveFailures(kind string, n int) {
	ConsecutiveFailures.WithLabelValues(kind).Set(float64(n))
}

// SetMarketOpen publishes the market window state
func SetMarketOpen(open bool) {
	if open {
		MarketOpen.Set(1)
		return
	}
	MarketOpen.Set(0)
}

// RecordQuote records a price lookup
func RecordQuote(latency time.Duration, err error) {
	QuoteRequests.WithLabelValues(status(err)).Inc()
	QuoteLatency.Observe(latency.Seconds())
}

// RecordAlert records a fired threshold
func RecordAlert(breach string) {
	AlertsFired.WithLabelValues(breach).Inc()
}

// RecordNotification records a delivery attempt
func RecordNotification(transport string, err error) {
	Notifications.WithLabelValues(transport, status(err)).Inc()
}
