package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"stockalert/internal/domain/watchlist"
)

// Snapshotter is the read side of the watch list store
type Snapshotter interface {
	Snapshot() []watchlist.Entry
}

// WatchlistCollector exposes the watch list at scrape time
type WatchlistCollector struct {
	store Snapshotter

	entries   *prometheus.Desc
	threshold *prometheus.Desc
}

// NewWatchlistCollector creates a collector reading from the store on every scrape
func NewWatchlistCollector(store Snapshotter) *WatchlistCollector {
	return &WatchlistCollector{
		store: store,
		entries: prometheus.NewDesc(
			"stockalert_watchlist_entries",
			"Number of watch list entries by state",
			[]string{"state"}, nil, // state: active|inactive
		),
		threshold: prometheus.NewDesc(
			"stockalert_watchlist_threshold",
			"Configured alert thresholds",
			[]string{"isin", "bound"}, nil, // bound: upper|lower
		),
	}
}

// Describe implements prometheus.Collector
func (c *WatchlistCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entries
	ch <- c.threshold
}

// Collect implements prometheus.Collector
func (c *WatchlistCollector) Collect(ch chan<- prometheus.Metric) {
	snapshot := c.store.Snapshot()

	active := 0
	for _, e := range snapshot {
		if e.Active {
			active++
		}
		if e.UpperThreshold != nil {
			ch <- prometheus.MustNewConstMetric(c.threshold, prometheus.GaugeValue, *e.UpperThreshold, e.ISIN, "upper")
		}
		if e.LowerThreshold != nil {
			ch <- prometheus.MustNewConstMetric(c.threshold, prometheus.GaugeValue, *e.LowerThreshold, e.ISIN, "lower")
		}
	}

	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(active), "active")
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(len(snapshot)-active), "inactive")
}

// RegisterWatchlist registers the watch list collector with Prometheus
func RegisterWatchlist(store Snapshotter) error {
	return prometheus.Register(NewWatchlistCollector(store))
}
