package handler

import "net/http"

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.services.Analytics.Dashboard()
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, stats)
}
