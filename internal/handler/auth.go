package handler

import (
	"net/http"

	"github.com/bma-crm/commhub/internal/middleware"
	"github.com/bma-crm/commhub/internal/models"
	"github.com/bma-crm/commhub/internal/service"
)

type loginResponse struct {
	*service.TokenPair
	User *models.User `json:"user"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	pair, user, err := h.services.Auth.Login(req.Username, req.Password)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, loginResponse{TokenPair: pair, User: user})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.services.Auth.Register(service.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		FullName: req.FullName,
		Password: req.Password,
		Role:     models.UserRole(req.Role),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusCreated, user)
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.decode(w, r, &req) {
		return
	}

	pair, err := h.services.Auth.Refresh(req.RefreshToken)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, pair)
}

// Logout is a client-side operation with stateless JWTs; the endpoint exists
// so clients have a uniform call to drop their session against.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		h.respondDetail(w, r, http.StatusUnauthorized, "Not authenticated")
		return
	}
	h.respond(w, r, http.StatusOK, user)
}
