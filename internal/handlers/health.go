package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/secretfriends/backend/internal/logging"
)

// HealthHandler responds with service health information.
type HealthHandler struct {
	// Ping checks the database; nil skips the check.
	Ping func(ctx context.Context) error
}

// Handle implements GET /healthz.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Ping != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := h.Ping(pingCtx); err != nil {
			logging.FromContext(ctx).Warn("health check failed", "error", err)
			respondJSON(ctx, w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}
