package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/bma-crm/commhub/internal/whatsapp"
)

// VerifyWhatsAppWebhook answers the hub.challenge handshake Meta performs
// when the webhook URL is registered.
func (h *Handler) VerifyWhatsAppWebhook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	challenge, err := h.services.Webhook.VerifySubscription(
		q.Get("hub.mode"),
		q.Get("hub.verify_token"),
		q.Get("hub.challenge"),
	)
	if err != nil {
		h.respondDetail(w, r, http.StatusForbidden, "webhook verification failed")
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(challenge))
}

// ReceiveWhatsAppWebhook ingests event payloads. Meta retries non-200
// responses, so processing failures are logged and acknowledged anyway.
func (h *Handler) ReceiveWhatsAppWebhook(w http.ResponseWriter, r *http.Request) {
	var payload whatsapp.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.Warn("Malformed webhook payload", zap.Error(err))
		h.respond(w, r, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	h.services.Webhook.Process(&payload)
	h.respond(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
