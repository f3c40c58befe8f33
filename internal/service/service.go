package service

import (
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/bma-crm/commhub/internal/config"
	"github.com/bma-crm/commhub/internal/pdf"
	"github.com/bma-crm/commhub/internal/queue"
	"github.com/bma-crm/commhub/internal/repository"
	"github.com/bma-crm/commhub/internal/whatsapp"
)

type Service struct {
	Auth         AuthService
	Contact      ContactService
	Conversation ConversationService
	Message      MessageService
	Webhook      WebhookService
	Campaign     CampaignService
	Quotation    QuotationService
	Template     TemplateService
	Analytics    AnalyticsService
	Scheduler    SchedulerService
	Health       HealthService
}

func NewService(
	cfg *config.Config,
	repo repository.Repository,
	redisClient *redis.Client,
	publisher queue.Publisher,
	brokerCheck func() error,
	logger *zap.Logger,
) *Service {
	waClient := whatsapp.NewClient(&cfg.WhatsApp, logger)
	generator := pdf.NewGenerator(pdf.DefaultCompany)

	messageService := NewMessageService(cfg, repo, redisClient, waClient, logger)
	campaignService := NewCampaignService(repo, publisher, waClient, logger)
	schedulerService := NewSchedulerService(cfg, campaignService, logger)
	healthService := NewHealthService(repo, redisClient, brokerCheck, messageService, schedulerService, logger)

	return &Service{
		Auth:         NewAuthService(cfg, repo, logger),
		Contact:      NewContactService(repo, logger),
		Conversation: NewConversationService(repo, logger),
		Message:      messageService,
		Webhook:      NewWebhookService(cfg, repo, redisClient, logger),
		Campaign:     campaignService,
		Quotation:    NewQuotationService(repo, generator, waClient, logger),
		Template:     NewTemplateService(repo, logger),
		Analytics:    NewAnalyticsService(repo, logger),
		Scheduler:    schedulerService,
		Health:       healthService,
	}
}
