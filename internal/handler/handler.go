// Package handler exposes the HTTP API over chi.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bma-crm/commhub/internal/config"
	"github.com/bma-crm/commhub/internal/middleware"
	"github.com/bma-crm/commhub/internal/service"
)

type Handler struct {
	services *service.Service
	logger   *zap.Logger
	validate *validator.Validate
}

func NewHandler(services *service.Service, logger *zap.Logger) *Handler {
	return &Handler{
		services: services,
		logger:   logger,
		validate: validator.New(),
	}
}

// Router builds the full route tree. Auth, webhooks and health are public;
// everything else requires a bearer token.
func (h *Handler) Router(cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	mwConfig := &middleware.Config{
		Logger:         h.logger,
		RateLimit:      rate.Limit(cfg.Middleware.RateLimit),
		RateLimitBurst: cfg.Middleware.RateLimitBurst,
		RequestTimeout: 60 * time.Second,
	}
	if cfg.Middleware.EnableCORS {
		cors := middleware.DefaultCORSConfig()
		if len(cfg.Middleware.AllowedOrigins) > 0 {
			cors.AllowedOrigins = cfg.Middleware.AllowedOrigins
		}
		mwConfig.CORS = cors
	}
	r.Use(middleware.Chain(mwConfig))

	r.Get("/health", h.GetHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/register", h.Register)
			r.Post("/refresh", h.RefreshToken)
			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(h.services.Auth))
				r.Post("/logout", h.Logout)
				r.Get("/me", h.GetCurrentUser)
			})
		})

		r.Route("/webhooks/whatsapp", func(r chi.Router) {
			r.Get("/", h.VerifyWhatsAppWebhook)
			r.Post("/", h.ReceiveWhatsAppWebhook)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(h.services.Auth))

			r.Route("/contacts", func(r chi.Router) {
				r.Get("/", h.ListContacts)
				r.Post("/", h.CreateContact)
				r.Get("/tags", h.ListContactTags)
				r.Post("/import", h.ImportContacts)
				r.Get("/export", h.ExportContacts)
				r.Get("/{id}", h.GetContact)
				r.Put("/{id}", h.UpdateContact)
				r.Delete("/{id}", h.DeleteContact)
			})

			r.Route("/conversations", func(r chi.Router) {
				r.Get("/", h.ListConversations)
				r.Post("/", h.CreateConversation)
				r.Get("/{id}", h.GetConversation)
				r.Patch("/{id}", h.UpdateConversation)
				r.Delete("/{id}", h.DeleteConversation)
				r.Get("/{id}/messages", h.ListConversationMessages)
			})

			r.Route("/messages", func(r chi.Router) {
				r.Post("/send", h.SendMessage)
				r.Post("/{id}/read", h.MarkMessageRead)
			})

			r.Route("/campaigns", func(r chi.Router) {
				r.Get("/", h.ListCampaigns)
				r.Post("/", h.CreateCampaign)
				r.Get("/{id}", h.GetCampaign)
				r.Put("/{id}", h.UpdateCampaign)
				r.Delete("/{id}", h.DeleteCampaign)
				r.Post("/{id}/send", h.SendCampaign)
				r.Post("/{id}/pause", h.PauseCampaign)
				r.Post("/{id}/resume", h.ResumeCampaign)
				r.Get("/{id}/recipients", h.ListCampaignRecipients)
			})

			r.Route("/quotations", func(r chi.Router) {
				r.Get("/", h.ListQuotations)
				r.Post("/", h.CreateQuotation)
				r.Get("/{id}", h.GetQuotation)
				r.Put("/{id}", h.UpdateQuotation)
				r.Delete("/{id}", h.DeleteQuotation)
				r.Patch("/{id}/status", h.UpdateQuotationStatus)
				r.Get("/{id}/pdf", h.DownloadQuotationPDF)
				r.Post("/{id}/send", h.SendQuotation)
			})

			r.Route("/templates", func(r chi.Router) {
				r.Get("/", h.ListTemplates)
				r.Post("/", h.CreateTemplate)
				r.Get("/{id}", h.GetTemplate)
				r.Put("/{id}", h.UpdateTemplate)
				r.Delete("/{id}", h.DeleteTemplate)
			})

			r.Get("/analytics/dashboard", h.GetDashboard)
		})
	})

	return r
}
