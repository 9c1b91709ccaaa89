package bootstrap

import (
	"context"
	"time"

	"stockalert/internal/api"
	"stockalert/internal/domain/watchlist"
	"stockalert/pkg/errors"
	"stockalert/pkg/logger"
)

// Lifecycle manages graceful shutdown of components
type Lifecycle struct {
	shutdownTimeout time.Duration
}

// NewLifecycle creates a new lifecycle manager
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		shutdownTimeout: 15 * time.Second,
	}
}

// Shutdown runs after the scheduler returned, so no cycle is in flight.
// Order:
// 1. Stop accepting admin edits
// 2. Persist the watch list
// 3. Flush the error tracker
// 4. Sync logs
func (l *Lifecycle) Shutdown(
	httpServer *api.Server,
	store *watchlist.Store,
	errorTracker errors.Tracker,
	log *logger.Logger,
) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
	defer shutdownCancel()

	log.Info("[1/4] Stopping HTTP server...")
	httpCtx, httpCancel := context.WithTimeout(shutdownCtx, 5*time.Second)
	defer httpCancel()

	if err := httpServer.Shutdown(httpCtx); err != nil {
		log.Errorw("HTTP server shutdown failed", "error", err)
	}

	log.Info("[2/4] Persisting watch list...")
	if err := store.Persist(); err != nil {
		log.Errorw("Failed to persist watch list", "error", err)
	}

	log.Info("[3/4] Flushing error tracker...")
	l.flushErrorTracker(errorTracker, shutdownCtx, log)

	log.Info("[4/4] Syncing logs...")
	log.Info("Graceful shutdown complete")
	_ = log.Sync()
}

func (l *Lifecycle) flushErrorTracker(tracker errors.Tracker, ctx context.Context, log *logger.Logger) {
	if tracker == nil {
		return
	}

	flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := tracker.Flush(flushCtx); err != nil {
		log.Errorw("Error tracker flush failed", "error", err)
	}
}
