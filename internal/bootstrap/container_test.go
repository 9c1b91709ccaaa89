package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockalert/internal/adapters/config"
	"stockalert/internal/adapters/email"
	"stockalert/internal/domain/watchlist"
	"stockalert/internal/market"
	"stockalert/internal/workers"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"isin":"DE000BAY0017","upper_threshold":100,"lower_threshold":null}]`), 0o644))

	cfg := &config.Config{}
	cfg.App.Name = "stockalert"
	cfg.App.Version = "test"
	cfg.Monitor.ConfigPath = path
	cfg.Monitor.CheckIntervalSeconds = 60
	cfg.Monitor.MaxFailCount = 3
	cfg.Monitor.MaxUnexpectedErrors = 5
	cfg.Market.Timezone = "Europe/Berlin"
	cfg.Market.Open = market.TimeOfDay{Hour: 8}
	cfg.Market.Close = market.TimeOfDay{Hour: 22}
	cfg.Quotes.URLTemplate = "http://127.0.0.1:1/orderbuch_umsaetze.php?isin=%s"
	cfg.Quotes.Retries = 1
	cfg.Mail.Transport = email.TransportSendmail
	cfg.Mail.From = "alerts@example.com"
	cfg.Mail.To = "me@example.com"
	cfg.Mail.SendmailPath = "/usr/sbin/sendmail"
	cfg.Admin.Addr = "127.0.0.1:0"
	return cfg
}

func TestNewContainer(t *testing.T) {
	cfg := testConfig(t)

	c, err := NewContainer(cfg)
	require.NoError(t, err)

	assert.Equal(t, 1, c.Store.Len())
	assert.True(t, c.Store.Snapshot()[0].Active, "missing active flag defaults to true")
	assert.Equal(t, []string{workers.PriceMonitorName}, c.Background.Registry.ListNames())
	assert.Len(t, c.Background.Scheduler.GetWorkers(), 1)
	assert.Equal(t, workers.StateIdle, c.Background.Monitor.State())

	// shutdown persists the watch list even though nothing changed
	require.NoError(t, os.Remove(cfg.Monitor.ConfigPath))
	c.Lifecycle.Shutdown(c.Application.HTTPServer, c.Store, c.ErrorTracker, c.Log)
	_, err = os.Stat(cfg.Monitor.ConfigPath)
	assert.NoError(t, err)
}

func TestNewContainer_MissingWatchlist(t *testing.T) {
	cfg := testConfig(t)
	cfg.Monitor.ConfigPath = filepath.Join(t.TempDir(), "missing.json")

	_, err := NewContainer(cfg)
	assert.Error(t, err)
}

func TestNewContainer_BadTemplatesDir(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.tmpl"), []byte("{{.Oops"), 0o644))
	cfg.Mail.TemplatesDir = dir

	_, err := NewContainer(cfg)
	assert.Error(t, err)
}

func TestContainer_RunCancelledPersists(t *testing.T) {
	cfg := testConfig(t)

	c, err := NewContainer(cfg)
	require.NoError(t, err)
	require.NoError(t, os.Remove(cfg.Monitor.ConfigPath))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, c.Run(ctx), "cooperative shutdown maps to exit status 0")

	persisted, err := watchlist.Load(cfg.Monitor.ConfigPath)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, "DE000BAY0017", persisted[0].ISIN)
	assert.Equal(t, workers.StateIdle, c.Background.Monitor.State(), "no cycle runs after cancellation")
}
