package handlers

import (
	"context"
	"net/http"
	"time"
)

// Healthchecker is the slice of internal/store.Store the health handler
// needs.
type Healthchecker interface {
	Healthcheck(ctx context.Context) error
}

const healthCheckTimeout = 5 * time.Second

// HealthHandler serves unauthenticated liveness/readiness probes.
type HealthHandler struct {
	store     Healthchecker
	startedAt time.Time
}

func NewHealthHandler(store Healthchecker) *HealthHandler {
	return &HealthHandler{store: store, startedAt: time.Now()}
}

// Liveness handles GET /health.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	WriteJSONOK(w, map[string]any{
		"status": "healthy",
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// Readiness handles GET /health/ready, pinging the database.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := h.store.Healthcheck(ctx); err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	WriteJSONOK(w, map[string]any{"status": "healthy"})
}
