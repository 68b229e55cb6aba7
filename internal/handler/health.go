package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"petshop-backend/internal/ports"
)

// HealthHandler exposes a readiness probe over every backing store.
type HealthHandler struct {
	Checks map[string]ports.HealthChecker
}

func (h HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.handleHealth)
}

func (h HealthHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	deps := make(map[string]string, len(h.Checks))
	for name, c := range h.Checks {
		deps[name] = "ok"
		if err := c.Health(ctx); err != nil {
			deps[name] = "down"
			status = "degraded"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":       status,
		"dependencies": deps,
	})
}
