package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bma-crm/commhub/internal/middleware"
	"github.com/bma-crm/commhub/internal/models"
)

func (h *Handler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.services.Campaign.List(
		models.CampaignStatus(r.URL.Query().Get("status")),
		queryInt(r, "skip", 0),
		queryInt(r, "limit", 50),
	)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, campaigns)
}

func (h *Handler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if !h.decode(w, r, &req) {
		return
	}

	var createdByID string
	if user := middleware.GetUser(r.Context()); user != nil {
		createdByID = user.ID
	}

	campaign, err := h.services.Campaign.Create(req.toInput(createdByID))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusCreated, campaign)
}

func (h *Handler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := h.services.Campaign.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, campaign)
}

func (h *Handler) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if !h.decode(w, r, &req) {
		return
	}

	campaign, err := h.services.Campaign.Update(chi.URLParam(r, "id"), req.toInput(""))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, campaign)
}

func (h *Handler) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Campaign.Delete(chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SendCampaign answers 202: recipients are enqueued, delivery happens in the
// worker.
func (h *Handler) SendCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := h.services.Campaign.Send(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusAccepted, campaign)
}

func (h *Handler) PauseCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := h.services.Campaign.Pause(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, campaign)
}

func (h *Handler) ResumeCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := h.services.Campaign.Resume(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, campaign)
}

func (h *Handler) ListCampaignRecipients(w http.ResponseWriter, r *http.Request) {
	recipients, err := h.services.Campaign.Recipients(
		chi.URLParam(r, "id"),
		queryInt(r, "skip", 0),
		queryInt(r, "limit", 100),
	)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, recipients)
}
