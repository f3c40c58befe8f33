package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bma-crm/commhub/internal/service"
)

// errorResponse is the uniform error body: a single human-readable detail.
type errorResponse struct {
	Detail string `json:"detail"`
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	w.WriteHeader(status)
	if body != nil {
		render.JSON(w, r, body)
	}
}

func (h *Handler) respondDetail(w http.ResponseWriter, r *http.Request, status int, detail string) {
	h.respond(w, r, status, errorResponse{Detail: detail})
}

// respondError maps service errors onto HTTP statuses.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrInactiveUser):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrDuplicateUser),
		errors.Is(err, service.ErrDuplicateCustomer),
		errors.Is(err, service.ErrConversationExists),
		errors.Is(err, service.ErrNotEditable),
		errors.Is(err, service.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, service.ErrNoRecipientAddress),
		errors.Is(err, service.ErrNoRecipients):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrChannelNotSupported):
		status = http.StatusNotImplemented
	default:
		h.logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method),
			zap.Error(err))
		h.respondDetail(w, r, http.StatusInternalServerError, "An internal error occurred")
		return
	}
	h.respondDetail(w, r, status, err.Error())
}

// decode parses the JSON body into dst and validates it; a false return
// means the error response was already written.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		h.respondDetail(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			h.respondDetail(w, r, http.StatusUnprocessableEntity, validationDetail(verrs[0]))
			return false
		}
		h.respondDetail(w, r, http.StatusUnprocessableEntity, err.Error())
		return false
	}
	return true
}

func validationDetail(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "min":
		return fe.Field() + " is too short"
	case "max":
		return fe.Field() + " is too long"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "gte":
		return fe.Field() + " must be at least " + fe.Param()
	case "lte":
		return fe.Field() + " must be at most " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}
