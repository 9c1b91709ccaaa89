package workers

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"stockalert/internal/metrics"
	"stockalert/pkg/errors"
	"stockalert/pkg/logger"
)

// FatalHandler is called once when a worker exhausts its unexpected error budget
type FatalHandler func(ctx context.Context, worker string, err error)

// Scheduler supervises registered workers: it runs their cycles, recovers
// panics, counts consecutive unexpected failures and decides when to stop.
type Scheduler struct {
	workers     []Worker
	maxFailures int
	onFatal     FatalHandler
	mu          sync.RWMutex
	log         *logger.Logger
	started     bool
}

// NewScheduler creates a scheduler that gives up on a worker after maxFailures
// consecutive unexpected errors
func NewScheduler(maxFailures int) *Scheduler {
	if maxFailures <= 0 {
		maxFailures = 1
	}
	return &Scheduler{
		workers:     make([]Worker, 0),
		maxFailures: maxFailures,
		log:         logger.Get().With("component", "scheduler"),
	}
}

// SetFatalHandler installs the hook invoked before the scheduler gives up
func (s *Scheduler) SetFatalHandler(h FatalHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFatal = h
}

// RegisterWorker adds a worker to the scheduler
func (s *Scheduler) RegisterWorker(w Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.log.Warnw("Cannot register worker after scheduler has started", "worker", w.Name())
		return
	}

	s.workers = append(s.workers, w)
	s.log.Infow("Worker registered", "worker", w.Name(), "interval", w.Interval())
}

// Run drives all enabled workers until ctx is cancelled or one of them fails fatally.
// It returns nil on cooperative shutdown and the fatal error otherwise.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.Wrapf(errors.ErrInternal, "scheduler already started")
	}
	s.started = true
	workers := make([]Worker, len(s.workers))
	copy(workers, s.workers)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.started = false
		s.mu.Unlock()
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.log.Infow("Starting worker scheduler", "workers", len(workers))

	var wg sync.WaitGroup
	errCh := make(chan error, len(workers))
	for _, worker := range workers {
		if !worker.Enabled() {
			s.log.Infow("Skipping disabled worker", "worker", worker.Name())
			continue
		}

		wg.Add(1)
		go func(w Worker) {
			defer wg.Done()
			if err := s.runWorker(runCtx, w); err != nil {
				errCh <- err
				cancel()
			}
		}(worker)
	}

	wg.Wait()
	close(errCh)

	if err, ok := <-errCh; ok {
		s.log.Errorw("Worker scheduler stopped", "error", err)
		return err
	}

	s.log.Info("All workers stopped gracefully")
	return nil
}

// runWorker executes a single worker in a loop.
// Cancellation is observed between cycles only.
func (s *Scheduler) runWorker(ctx context.Context, worker Worker) error {
	log := s.log.With("worker", worker.Name())
	log.Infow("Worker started", "interval", worker.Interval())

	failures := 0
	for {
		if ctx.Err() != nil {
			log.Info("Worker stopping due to context cancellation")
			return nil
		}

		start := time.Now()
		err := s.executeWorker(context.WithoutCancel(ctx), worker)
		duration := time.Since(start)

		switch {
		case err == nil:
			if failures > 0 {
				log.Infow("Worker recovered", "after_failures", failures)
			}
			failures = 0
			metrics.SetConsecutiveFailures("unexpected", 0)
			metrics.RecordWorkerExecution(worker.Name(), duration, "success")
			if hw, ok := worker.(WorkerWithHealth); ok {
				hw.RecordRun(duration)
			}

		case errors.Is(err, errors.ErrTerminated):
			metrics.RecordWorkerExecution(worker.Name(), duration, "terminated")
			s.terminate(worker, err, duration, failures)
			log.Errorw("Worker terminated", "error", err)
			return err

		default:
			failures++
			metrics.SetConsecutiveFailures("unexpected", failures)
			metrics.RecordWorkerExecution(worker.Name(), duration, "error")
			log.Errorw("Worker execution failed",
				"error", err,
				"duration", duration,
				"consecutive_failures", failures,
				"max_failures", s.maxFailures,
			)

			if failures >= s.maxFailures {
				fatal := errors.Wrapf(errors.ErrTooManyFailures, "%s failed %d cycles in a row: %v", worker.Name(), failures, err)
				s.terminate(worker, fatal, duration, failures)
				s.fatal(ctx, worker, fatal)
				return fatal
			}

			if hw, ok := worker.(WorkerWithHealth); ok {
				hw.RecordError(err, duration, failures)
				hw.SetState(StateBackingOff)
			}
		}

		if !sleepContext(ctx, worker.Interval()) {
			log.Info("Worker stopping due to context cancellation")
			return nil
		}
	}
}

// executeWorker runs a single iteration of the worker, converting panics into errors
func (s *Scheduler) executeWorker(ctx context.Context, worker Worker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker %s panicked: %v\n%s", worker.Name(), r, debug.Stack())
		}
	}()

	return worker.Run(ctx)
}

func (s *Scheduler) terminate(worker Worker, err error, duration time.Duration, failures int) {
	hw, ok := worker.(WorkerWithHealth)
	if !ok {
		return
	}
	hw.RecordError(err, duration, failures)
	hw.SetState(StateTerminated)
}

func (s *Scheduler) fatal(ctx context.Context, worker Worker, err error) {
	s.mu.RLock()
	h := s.onFatal
	s.mu.RUnlock()

	if h == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("Fatal handler panicked", "worker", worker.Name(), "panic", r)
		}
	}()
	h(context.WithoutCancel(ctx), worker.Name(), err)
}

// GetWorkers returns a list of all registered workers (for debugging/monitoring)
func (s *Scheduler) GetWorkers() []Worker {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workers := make([]Worker, len(s.workers))
	copy(workers, s.workers)
	return workers
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
