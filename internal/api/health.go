package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Pinger is anything whose reachability the health check reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	db       Pinger
	backend  string
	instance string
	timeout  time.Duration
}

// NewHealthHandler creates a health handler. db may be nil when the auth
// backend keeps no local state.
func NewHealthHandler(db Pinger, backend, instance string) *HealthHandler {
	return &HealthHandler{db: db, backend: backend, instance: instance, timeout: 5 * time.Second}
}

// Health returns the health status of the server and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := map[string]string{"api": "ok", "auth_backend": h.backend}
	status := map[string]interface{}{
		"status":   "healthy",
		"instance": h.instance,
		"checks":   checks,
	}
	statusCode := http.StatusOK

	if h.db == nil {
		checks["database"] = "unused"
	} else if err := h.db.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		checks["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
