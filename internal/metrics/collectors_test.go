package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockalert/internal/domain/watchlist"
)

type staticStore []watchlist.Entry

func (s staticStore) Snapshot() []watchlist.Entry { return s }

func TestWatchlistCollector(t *testing.T) {
	store := staticStore{
		{ISIN: "DE000BAY0017", UpperThreshold: watchlist.Float(100), Active: true},
		{ISIN: "US0378331005", LowerThreshold: watchlist.Float(150), Active: false},
		{ISIN: "DE0007164600", Active: true},
	}

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(NewWatchlistCollector(store)))

	expected := `
# HELP stockalert_watchlist_entries Number of watch list entries by state
# TYPE stockalert_watchlist_entries gauge
stockalert_watchlist_entries{state="active"} 2
stockalert_watchlist_entries{state="inactive"} 1
# HELP stockalert_watchlist_threshold Configured alert thresholds
# TYPE stockalert_watchlist_threshold gauge
stockalert_watchlist_threshold{bound="lower",isin="US0378331005"} 150
stockalert_watchlist_threshold{bound="upper",isin="DE000BAY0017"} 100
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected)))
}

func TestSetWorkerState(t *testing.T) {
	states := []string{"idle", "scanning", "terminated"}
	SetWorkerState("price_monitor", "scanning", states)

	assert.Equal(t, 1.0, testutil.ToFloat64(WorkerState.WithLabelValues("price_monitor", "scanning")))
	assert.Equal(t, 0.0, testutil.ToFloat64(WorkerState.WithLabelValues("price_monitor", "idle")))
}
