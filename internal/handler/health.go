package handler

import (
	"net/http"

	"github.com/bma-crm/commhub/internal/service"
)

// GetHealth reports component status. Degraded and unhealthy states still
// return a body describing which component is down.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := h.services.Health.GetHealth()

	code := http.StatusOK
	if status.Status == service.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	h.respond(w, r, code, status)
}
