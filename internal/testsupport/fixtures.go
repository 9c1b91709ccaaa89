package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"stockalert/internal/domain/watchlist"
	"stockalert/pkg/logger"
)

// Logger returns a development logger without an error tracker
func Logger() *logger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return logger.New(zapLogger)
}

// NewStore writes entries to a temporary watch list file and opens a store on it
func NewStore(t *testing.T, entries ...watchlist.Entry) *watchlist.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, watchlist.Save(path, entries))

	store, err := watchlist.Open(path)
	require.NoError(t, err)
	return store
}
