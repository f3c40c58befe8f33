package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.services.Template.List(
		queryInt(r, "skip", 0),
		queryInt(r, "limit", 100),
	)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, templates)
}

func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if !h.decode(w, r, &req) {
		return
	}

	template, err := h.services.Template.Create(req.toInput())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusCreated, template)
}

func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	template, err := h.services.Template.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, template)
}

func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if !h.decode(w, r, &req) {
		return
	}

	template, err := h.services.Template.Update(chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, template)
}

func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Template.Delete(chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
