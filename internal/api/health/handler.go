package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"stockalert/internal/workers"
	"stockalert/pkg/logger"
)

// Watchlist is the view of the watch list store health checks need
type Watchlist interface {
	Path() string
	Len() int
}

// WorkerRegistry reports worker health
type WorkerRegistry interface {
	GetAllHealth() map[string]workers.WorkerHealth
}

// Handler provides health check endpoints
type Handler struct {
	log         *logger.Logger
	watchlist   Watchlist
	workers     WorkerRegistry
	startTime   time.Time
	serviceName string
	version     string
}

// New creates a new health check handler
func New(
	log *logger.Logger,
	watchlist Watchlist,
	registry WorkerRegistry,
	serviceName string,
	version string,
) *Handler {
	return &Handler{
		log:         log,
		watchlist:   watchlist,
		workers:     registry,
		startTime:   time.Now(),
		serviceName: serviceName,
		version:     version,
	}
}

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status      string                     `json:"status"` // "healthy", "degraded", "unhealthy"
	Service     string                     `json:"service"`
	Version     string                     `json:"version"`
	Uptime      string                     `json:"uptime"`
	Timestamp   string                     `json:"timestamp"`
	Checks      map[string]ComponentHealth `json:"checks"`
	ErrorDetail string                     `json:"error_detail,omitempty"`
}

// ComponentHealth represents health of a single component
type ComponentHealth struct {
	Status  string `json:"status"`
	State   string `json:"state,omitempty"`
	LastRun string `json:"last_run,omitempty"`
	Detail  string `json:"detail,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HandleLiveness returns 200 OK if service is running
func (h *Handler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "alive",
	})
}

// HandleReadiness reports whether the watch list is usable and monitoring has not stopped
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	checks := h.collect()

	status := h.newStatus(checks)
	statusCode := http.StatusOK
	for _, c := range checks {
		if c.Status == statusUnhealthy {
			status.Status = statusUnhealthy
			statusCode = http.StatusServiceUnavailable
		}
	}

	if statusCode != http.StatusOK {
		h.log.Warnw("Readiness check failed", "checks", checks)
	}
	writeJSON(w, statusCode, status)
}

// HandleHealth returns detailed health status (includes all checks)
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	checks := h.collect()
	status := h.newStatus(checks)
	statusCode := http.StatusOK

	for _, c := range checks {
		switch c.Status {
		case statusUnhealthy:
			status.Status = statusUnhealthy
			statusCode = http.StatusServiceUnavailable
		case statusDegraded:
			if status.Status == statusHealthy {
				status.Status = statusDegraded // still 200
			}
		}
	}

	writeJSON(w, statusCode, status)
}

func (h *Handler) newStatus(checks map[string]ComponentHealth) HealthStatus {
	now := time.Now()
	return HealthStatus{
		Status:    statusHealthy,
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    humanize.RelTime(h.startTime, now, "", ""),
		Timestamp: now.Format(time.RFC3339),
		Checks:    checks,
	}
}

func (h *Handler) collect() map[string]ComponentHealth {
	checks := map[string]ComponentHealth{
		"watchlist": h.checkWatchlist(),
	}
	if h.workers != nil {
		for name, wh := range h.workers.GetAllHealth() {
			checks["worker:"+name] = checkWorker(wh)
		}
	}
	return checks
}

// checkWatchlist verifies the backing file is still there
func (h *Handler) checkWatchlist() ComponentHealth {
	info, err := os.Stat(h.watchlist.Path())
	if err != nil {
		return ComponentHealth{Status: statusUnhealthy, Error: err.Error()}
	}

	return ComponentHealth{
		Status: statusHealthy,
		Detail: fmt.Sprintf("%d entries, %s, modified %s",
			h.watchlist.Len(),
			humanize.Bytes(uint64(info.Size())),
			humanize.Time(info.ModTime()),
		),
	}
}

func checkWorker(wh workers.WorkerHealth) ComponentHealth {
	c := ComponentHealth{
		Status: statusHealthy,
		State:  string(wh.State),
		Detail: fmt.Sprintf("%s cycles, %s errors", humanize.Comma(wh.RunCount), humanize.Comma(wh.ErrorCount)),
	}
	if !wh.LastRun.IsZero() {
		c.LastRun = humanize.Time(wh.LastRun)
	}
	if wh.LastError != nil {
		c.Error = wh.LastError.Error()
	}

	switch wh.State {
	case workers.StateTerminated:
		c.Status = statusUnhealthy
	case workers.StateBackingOff:
		c.Status = statusDegraded
	}
	return c
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
