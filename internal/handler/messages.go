package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bma-crm/commhub/internal/middleware"
	"github.com/bma-crm/commhub/internal/models"
	"github.com/bma-crm/commhub/internal/service"
)

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if !h.decode(w, r, &req) {
		return
	}

	input := service.SendMessageInput{
		ConversationID: req.ConversationID,
		Type:           models.MessageType(req.Type),
		Content:        req.Content,
		MediaURL:       req.MediaURL,
	}
	if user := middleware.GetUser(r.Context()); user != nil {
		input.SenderUserID = user.ID
	}

	message, err := h.services.Message.Send(input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusCreated, message)
}

func (h *Handler) MarkMessageRead(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Message.MarkRead(chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
