package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const checkTimeout = 2 * time.Second

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
	WorkerID  *int64 `json:"worker_id,omitempty"`
}

// ReadyResponse is the body of GET /ready.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// CheckFunc reports whether a dependency is usable; a nil error means ready.
type CheckFunc func(ctx context.Context) error

// HealthHandler serves liveness and readiness. Readiness runs every
// registered check in parallel under a shared timeout.
type HealthHandler struct {
	started  time.Time
	draining atomic.Bool
	workerID atomic.Int64

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// NewHealthHandler creates a HealthHandler that reports ready.
func NewHealthHandler() *HealthHandler {
	h := &HealthHandler{
		started: time.Now(),
		checks:  make(map[string]CheckFunc),
	}
	h.workerID.Store(-1)
	return h
}

// Health reports that the process is up.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.started).Truncate(time.Second).String(),
	}
	if id := h.workerID.Load(); id >= 0 {
		resp.WorkerID = &id
	}
	writeJSON(w, http.StatusOK, resp)
}

// Ready reports whether the process should receive traffic.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	results := h.runChecks(ctx)

	ready := !h.draining.Load()
	for _, res := range results {
		if res != "ok" {
			ready = false
		}
	}

	resp := ReadyResponse{
		Status:    "ready",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if len(results) > 0 {
		resp.Checks = results
	}

	status := http.StatusOK
	if !ready {
		resp.Status = "not ready"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (h *HealthHandler) runChecks(ctx context.Context) map[string]string {
	h.mu.RLock()
	checks := make(map[string]CheckFunc, len(h.checks))
	for name, fn := range h.checks {
		checks[name] = fn
	}
	h.mu.RUnlock()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]string, len(checks))
	)
	for name, fn := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := "ok"
			if err := fn(ctx); err != nil {
				res = "fail: " + err.Error()
			}
			mu.Lock()
			results[name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

// SetReady flips readiness independently of the checks. The server clears it
// when shutdown begins.
func (h *HealthHandler) SetReady(ready bool) {
	h.draining.Store(!ready)
}

// IsReady returns the flag set by SetReady.
func (h *HealthHandler) IsReady() bool {
	return !h.draining.Load()
}

// SetWorkerID publishes the generator's worker ID on /health.
func (h *HealthHandler) SetWorkerID(id int64) {
	h.workerID.Store(id)
}

// AddCheck registers or replaces a named dependency check.
func (h *HealthHandler) AddCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// CheckNames lists registered checks in order.
func (h *HealthHandler) CheckNames() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
