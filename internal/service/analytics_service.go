package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/bma-crm/commhub/internal/models"
	"github.com/bma-crm/commhub/internal/repository"
)

type analyticsService struct {
	repo   repository.Repository
	logger *zap.Logger
}

func NewAnalyticsService(repo repository.Repository, logger *zap.Logger) AnalyticsService {
	return &analyticsService{repo: repo, logger: logger}
}

func (s *analyticsService) Dashboard() (*DashboardStats, error) {
	messageStats, err := s.repo.Message().Stats()
	if err != nil {
		return nil, err
	}
	activeCampaigns, err := s.repo.Campaign().CountByStatus(models.CampaignStatusRunning)
	if err != nil {
		return nil, err
	}
	totalContacts, err := s.repo.Customer().Count()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	newConversations, err := s.repo.Conversation().CountSince(midnight)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		TotalMessagesSent:     messageStats.TotalSent,
		TotalDelivered:        messageStats.TotalDelivered,
		TotalFailed:           messageStats.TotalFailed,
		ActiveCampaigns:       activeCampaigns,
		TotalContacts:         totalContacts,
		NewConversationsToday: newConversations,
	}
	if messageStats.TotalSent > 0 {
		stats.DeliveryRate = float64(messageStats.TotalDelivered) / float64(messageStats.TotalSent) * 100
	}
	return stats, nil
}
