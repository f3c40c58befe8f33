package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bma-crm/commhub/internal/repository"
)

// queryInt parses an integer query parameter, falling back on absence or
// garbage.
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	filter := repository.CustomerFilter{
		Search: r.URL.Query().Get("search"),
		Tag:    r.URL.Query().Get("tag"),
		Skip:   queryInt(r, "skip", 0),
		Limit:  queryInt(r, "limit", 100),
	}

	customers, err := h.services.Contact.List(filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, customers)
}

func (h *Handler) CreateContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if !h.decode(w, r, &req) {
		return
	}

	customer, err := h.services.Contact.Create(req.toInput())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusCreated, customer)
}

func (h *Handler) GetContact(w http.ResponseWriter, r *http.Request) {
	customer, err := h.services.Contact.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, customer)
}

func (h *Handler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if !h.decode(w, r, &req) {
		return
	}

	customer, err := h.services.Contact.Update(chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, customer)
}

func (h *Handler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Contact.Delete(chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListContactTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.services.Contact.TagGroups()
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, tags)
}

// ImportContacts accepts a multipart form with a CSV file field.
func (h *Handler) ImportContacts(w http.ResponseWriter, r *http.Request) {
	// 10 MB is plenty for a contact sheet.
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		h.respondDetail(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondDetail(w, r, http.StatusBadRequest, "file field is required")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	summary, err := h.services.Contact.ImportCSV(file)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, summary)
}

func (h *Handler) ExportContacts(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="contacts.csv"`)

	if err := h.services.Contact.ExportCSV(w, r.URL.Query().Get("tag")); err != nil {
		h.logger.Error("Contact export failed", zap.Error(err))
	}
}
