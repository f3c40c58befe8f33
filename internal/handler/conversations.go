package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bma-crm/commhub/internal/middleware"
	"github.com/bma-crm/commhub/internal/models"
	"github.com/bma-crm/commhub/internal/service"
)

func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.ConversationFilter{
		Channel:      models.Channel(q.Get("channel")),
		Status:       models.ConversationStatus(q.Get("status")),
		AssignedToID: q.Get("assigned_to"),
		Unassigned:   q.Get("unassigned") == "true",
		Search:       q.Get("search"),
		Skip:         queryInt(r, "skip", 0),
		Limit:        queryInt(r, "limit", 50),
	}

	conversations, err := h.services.Conversation.List(filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, conversations)
}

func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	var req conversationRequest
	if !h.decode(w, r, &req) {
		return
	}

	conversation, err := h.services.Conversation.Create(service.ConversationInput{
		CustomerID:   req.CustomerID,
		Channel:      models.Channel(req.Channel),
		Subject:      req.Subject,
		AssignedToID: req.AssignedToID,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusCreated, conversation)
}

func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	conversation, err := h.services.Conversation.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, conversation)
}

func (h *Handler) UpdateConversation(w http.ResponseWriter, r *http.Request) {
	var req conversationUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}

	update := service.ConversationUpdate{
		AssignedToID: req.AssignedToID,
		Subject:      req.Subject,
		Tags:         req.Tags,
	}
	if req.Status != nil {
		status := models.ConversationStatus(*req.Status)
		update.Status = &status
	}

	conversation, err := h.services.Conversation.Update(chi.URLParam(r, "id"), update)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, conversation)
}

// DeleteConversation is restricted to admins; agents close or archive instead.
func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil || user.Role != models.UserRoleAdmin {
		h.respondDetail(w, r, http.StatusForbidden, "admin access required")
		return
	}

	if err := h.services.Conversation.Delete(chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListConversationMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.services.Message.ListByConversation(
		chi.URLParam(r, "id"),
		queryInt(r, "skip", 0),
		queryInt(r, "limit", 100),
	)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, messages)
}
