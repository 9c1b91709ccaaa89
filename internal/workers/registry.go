package workers

import (
	"sort"
	"sync"
	"time"

	"stockalert/pkg/errors"
)

// Registry exposes registered workers to health reporting
type Registry struct {
	workers map[string]WorkerWithHealth
	mu      sync.RWMutex
}

// NewRegistry creates a new worker registry
func NewRegistry() *Registry {
	return &Registry{
		workers: make(map[string]WorkerWithHealth),
	}
}

// Register adds a worker to the registry
func (r *Registry) Register(w WorkerWithHealth) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := w.Name()
	if _, exists := r.workers[name]; exists {
		return errors.Wrapf(errors.ErrAlreadyExists, "worker %s already registered", name)
	}

	r.workers[name] = w
	return nil
}

// Get returns a worker by name
func (r *Registry) Get(name string) (WorkerWithHealth, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.workers[name]
	return w, ok
}

// ListNames returns names of all registered workers, sorted
func (r *Registry) ListNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.workers))
	for name := range r.workers {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// GetAllHealth returns health information for all workers
func (r *Registry) GetAllHealth() map[string]WorkerHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	health := make(map[string]WorkerHealth, len(r.workers))
	for name, w := range r.workers {
		health[name] = w.Health()
	}

	return health
}

// GetUnhealthyWorkers returns enabled workers that are terminated, failing,
// or have not completed a cycle within maxAge
func (r *Registry) GetUnhealthyWorkers(maxAge time.Duration) []string {
	var unhealthy []string
	now := time.Now()

	for name, h := range r.GetAllHealth() {
		if !h.Enabled {
			continue
		}

		switch {
		case h.State == StateTerminated, h.State == StateBackingOff:
			unhealthy = append(unhealthy, name)
		case !h.LastRun.IsZero() && now.Sub(h.LastRun) > maxAge:
			unhealthy = append(unhealthy, name)
		}
	}

	sort.Strings(unhealthy)
	return unhealthy
}
