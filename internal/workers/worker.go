package workers

import (
	"context"
	"sync"
	"time"

	"stockalert/internal/metrics"
	"stockalert/pkg/logger"
)

// Worker defines the interface for background workers
type Worker interface {
	// Name returns the unique identifier for this worker
	Name() string

	// Run executes one cycle and returns.
	// The scheduler calls it repeatedly, sleeping Interval() in between.
	Run(ctx context.Context) error

	// Interval returns the pause between cycles
	Interval() time.Duration

	// Enabled returns whether this worker is active
	Enabled() bool
}

// WorkerWithHealth extends Worker with health monitoring capabilities
type WorkerWithHealth interface {
	Worker
	Health() WorkerHealth
	SetState(state State)
	RecordRun(duration time.Duration)
	RecordError(err error, duration time.Duration, consecutive int)
}

// State is the externally visible phase of a worker
type State string

const (
	StateIdle               State = "IDLE"
	StateMarketClosed       State = "MARKET_CLOSED"
	StateMarketOpenScanning State = "MARKET_OPEN_SCANNING"
	StateBackingOff         State = "BACKING_OFF"
	StateTerminated         State = "TERMINATED"
)

// AllStates lists every state, in lifecycle order
var AllStates = []State{
	StateIdle,
	StateMarketClosed,
	StateMarketOpenScanning,
	StateBackingOff,
	StateTerminated,
}

func stateNames() []string {
	names := make([]string, len(AllStates))
	for i, s := range AllStates {
		names[i] = string(s)
	}
	return names
}

// WorkerHealth contains health information for a worker
type WorkerHealth struct {
	State               State
	LastRun             time.Time
	LastError           error
	RunCount            int64
	ErrorCount          int64
	ConsecutiveFailures int
	AvgDuration         time.Duration
	Enabled             bool
}

// BaseWorker provides common functionality for workers
type BaseWorker struct {
	name     string
	interval time.Duration
	enabled  bool
	log      *logger.Logger

	// Health monitoring
	healthMu      sync.RWMutex
	state         State
	lastRun       time.Time
	lastError     error
	runCount      int64
	errorCount    int64
	consecutive   int
	totalDuration time.Duration
}

// NewBaseWorker creates a new base worker
func NewBaseWorker(name string, interval time.Duration, enabled bool) *BaseWorker {
	return &BaseWorker{
		name:     name,
		interval: interval,
		enabled:  enabled,
		state:    StateIdle,
		log:      logger.Get().With("worker", name),
	}
}

// Name returns the worker name
func (w *BaseWorker) Name() string {
	return w.name
}

// Interval returns the run interval
func (w *BaseWorker) Interval() time.Duration {
	return w.interval
}

// Enabled returns whether the worker is enabled
func (w *BaseWorker) Enabled() bool {
	w.healthMu.RLock()
	defer w.healthMu.RUnlock()
	return w.enabled
}

// Log returns the logger
func (w *BaseWorker) Log() *logger.Logger {
	return w.log
}

// State returns the current state
func (w *BaseWorker) State() State {
	w.healthMu.RLock()
	defer w.healthMu.RUnlock()
	return w.state
}

// SetState records a state change. Once terminated, a worker stays terminated.
func (w *BaseWorker) SetState(state State) {
	w.healthMu.Lock()
	defer w.healthMu.Unlock()

	if w.state == state || w.state == StateTerminated {
		return
	}
	w.log.Debugw("Worker state changed", "from", w.state, "to", state)
	w.state = state
	metrics.SetWorkerState(w.name, string(state), stateNames())
}

// Health returns health information for the worker
func (w *BaseWorker) Health() WorkerHealth {
	w.healthMu.RLock()
	defer w.healthMu.RUnlock()

	avgDuration := time.Duration(0)
	if w.runCount > 0 {
		avgDuration = time.Duration(int64(w.totalDuration) / w.runCount)
	}

	return WorkerHealth{
		State:               w.state,
		LastRun:             w.lastRun,
		LastError:           w.lastError,
		RunCount:            w.runCount,
		ErrorCount:          w.errorCount,
		ConsecutiveFailures: w.consecutive,
		AvgDuration:         avgDuration,
		Enabled:             w.enabled,
	}
}

// RecordRun records a successful run
func (w *BaseWorker) RecordRun(duration time.Duration) {
	w.healthMu.Lock()
	defer w.healthMu.Unlock()

	w.lastRun = time.Now()
	w.runCount++
	w.totalDuration += duration
	w.lastError = nil
	w.consecutive = 0
}

// RecordError records a failed run
func (w *BaseWorker) RecordError(err error, duration time.Duration, consecutive int) {
	w.healthMu.Lock()
	defer w.healthMu.Unlock()

	w.lastRun = time.Now()
	w.runCount++
	w.errorCount++
	w.totalDuration += duration
	w.lastError = err
	w.consecutive = consecutive
}
