package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	httpContracts "github.com/sawpanic/taskbridge/internal/http"
	"github.com/sawpanic/taskbridge/internal/persistence"
)

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp := httpContracts.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.deps.Version,
		System: httpContracts.SystemInfo{
			GoVersion:     runtime.Version(),
			NumGoroutines: runtime.NumGoroutine(),
			MemAlloc:      mem.Alloc,
		},
		Circuits: make(map[string]httpContracts.CircuitHealth, len(h.deps.Breakers)),
	}

	if h.deps.Store != nil {
		resp.Store = persistence.Check(ctx, h.deps.StoreDriver, h.deps.Store)
		if !resp.Store.Healthy {
			resp.Status = "unhealthy"
		}
	}

	for _, b := range h.deps.Breakers {
		if b == nil {
			continue
		}
		state := b.State()
		resp.Circuits[b.Name()] = httpContracts.CircuitHealth{Name: b.Name(), State: state}
		if state != "closed" && resp.Status == "healthy" {
			resp.Status = "degraded"
		}
	}

	if h.deps.Poller != nil {
		st := h.deps.Poller()
		ph := &httpContracts.PollerHealth{
			Running:  st.Running,
			Interval: st.Interval.String(),
			Runs:     st.Runs,
			Failures: st.Failures,
			Skipped:  st.Skipped,
		}
		if st.LastRun != nil {
			ok, at := st.LastRun.Success, st.LastRun.StartTime
			ph.LastSuccess, ph.LastRun, ph.LastError = &ok, &at, st.LastRun.Error
			if !ok && resp.Status == "healthy" {
				resp.Status = "degraded"
			}
		}
		resp.Poller = ph
	}

	if h.deps.Metrics != nil {
		resp.Counters = h.deps.Metrics.Snapshot()
	}

	status := http.StatusOK
	if resp.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	h.writeJSON(w, status, resp)
}
