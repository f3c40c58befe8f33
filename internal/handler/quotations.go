package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/bma-crm/commhub/internal/middleware"
	"github.com/bma-crm/commhub/internal/models"
	"github.com/bma-crm/commhub/internal/repository"
)

func (h *Handler) ListQuotations(w http.ResponseWriter, r *http.Request) {
	filter := repository.QuotationFilter{
		Status:     models.QuotationStatus(r.URL.Query().Get("status")),
		CustomerID: r.URL.Query().Get("customer_id"),
		Skip:       queryInt(r, "skip", 0),
		Limit:      queryInt(r, "limit", 50),
	}

	quotations, err := h.services.Quotation.List(filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, quotations)
}

func (h *Handler) CreateQuotation(w http.ResponseWriter, r *http.Request) {
	var req quotationRequest
	if !h.decode(w, r, &req) {
		return
	}

	var createdByID string
	if user := middleware.GetUser(r.Context()); user != nil {
		createdByID = user.ID
	}

	quotation, err := h.services.Quotation.Create(req.toInput(createdByID))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusCreated, quotation)
}

func (h *Handler) GetQuotation(w http.ResponseWriter, r *http.Request) {
	quotation, err := h.services.Quotation.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, quotation)
}

func (h *Handler) UpdateQuotation(w http.ResponseWriter, r *http.Request) {
	var req quotationRequest
	if !h.decode(w, r, &req) {
		return
	}

	quotation, err := h.services.Quotation.Update(chi.URLParam(r, "id"), req.toInput(""))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, quotation)
}

func (h *Handler) DeleteQuotation(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Quotation.Delete(chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpdateQuotationStatus(w http.ResponseWriter, r *http.Request) {
	var req quotationStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	quotation, err := h.services.Quotation.UpdateStatus(
		chi.URLParam(r, "id"),
		models.QuotationStatus(req.Status),
	)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, quotation)
}

func (h *Handler) DownloadQuotationPDF(w http.ResponseWriter, r *http.Request) {
	data, filename, err := h.services.Quotation.RenderPDF(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) SendQuotation(w http.ResponseWriter, r *http.Request) {
	// The body is optional; an empty body means WhatsApp.
	var req quotationSendRequest
	_ = render.DecodeJSON(r.Body, &req)

	channel := models.Channel(req.Channel)
	if channel == "" {
		channel = models.ChannelWhatsApp
	}

	quotation, err := h.services.Quotation.Send(chi.URLParam(r, "id"), channel)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, quotation)
}
