package handler

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const readinessTimeout = 5 * time.Second

// Checker pings one dependency.
type Checker func(ctx context.Context) error

// HealthHandler serves liveness and readiness. Readiness fails while the
// server drains, so the balancer stops routing postings before shutdown.
type HealthHandler struct {
	checks   map[string]Checker
	draining atomic.Bool
}

// NewHealthHandler creates a new HealthHandler. checks are run by Readiness, keyed by dependency name.
func NewHealthHandler(checks map[string]Checker) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Drain marks the instance as going away. It cannot be undone.
func (h *HealthHandler) Drain() {
	h.draining.Store(true)
}

// Liveness returns 200 if the service is alive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness pings every dependency concurrently and reports each one. Any
// failure yields 503 with the failing names in the error field.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.draining.Load() {
		writeError(w, http.StatusServiceUnavailable, "draining", "instance is shutting down")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		failed []string
		resp   = map[string]string{"status": "ready"}
	)
	for name, check := range h.checks {
		name, check := name, check
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := check(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				resp[name] = err.Error()
				failed = append(failed, name)
				return
			}
			resp[name] = "ok"
		}()
	}
	wg.Wait()

	if len(failed) > 0 {
		sort.Strings(failed)
		resp["status"] = "unavailable"
		resp["error"] = joinNames(failed) + " unhealthy"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func joinNames(names []string) string {
	out := names[0]
	for _, n := range names[1:] {
		out += ", " + n
	}
	return out
}
