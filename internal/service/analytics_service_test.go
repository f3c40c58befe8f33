package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/bma-crm/commhub/internal/models"
	"github.com/bma-crm/commhub/internal/repository/mocks"
	"github.com/bma-crm/commhub/internal/service"
)

func TestAnalyticsService_Dashboard(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockMessageRepo := mocks.NewMockMessageRepository(ctrl)
	mockCampaignRepo := mocks.NewMockCampaignRepository(ctrl)
	mockCustomerRepo := mocks.NewMockCustomerRepository(ctrl)
	mockConversationRepo := mocks.NewMockConversationRepository(ctrl)
	mockRepo.EXPECT().Message().Return(mockMessageRepo).AnyTimes()
	mockRepo.EXPECT().Campaign().Return(mockCampaignRepo).AnyTimes()
	mockRepo.EXPECT().Customer().Return(mockCustomerRepo).AnyTimes()
	mockRepo.EXPECT().Conversation().Return(mockConversationRepo).AnyTimes()

	mockMessageRepo.EXPECT().Stats().Return(&models.MessageStats{
		TotalSent:      200,
		TotalDelivered: 150,
		TotalFailed:    10,
	}, nil)
	mockCampaignRepo.EXPECT().CountByStatus(models.CampaignStatusRunning).Return(int64(3), nil)
	mockCustomerRepo.EXPECT().Count().Return(int64(420), nil)
	mockConversationRepo.EXPECT().CountSince(gomock.Any()).Return(int64(12), nil)

	svc := service.NewAnalyticsService(mockRepo, zap.NewNop())
	stats, err := svc.Dashboard()
	require.NoError(t, err)

	assert.Equal(t, int64(200), stats.TotalMessagesSent)
	assert.Equal(t, int64(150), stats.TotalDelivered)
	assert.Equal(t, int64(10), stats.TotalFailed)
	assert.InDelta(t, 75.0, stats.DeliveryRate, 0.001)
	assert.Equal(t, int64(3), stats.ActiveCampaigns)
	assert.Equal(t, int64(420), stats.TotalContacts)
	assert.Equal(t, int64(12), stats.NewConversationsToday)
}

func TestAnalyticsService_Dashboard_NoMessages(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockMessageRepo := mocks.NewMockMessageRepository(ctrl)
	mockCampaignRepo := mocks.NewMockCampaignRepository(ctrl)
	mockCustomerRepo := mocks.NewMockCustomerRepository(ctrl)
	mockConversationRepo := mocks.NewMockConversationRepository(ctrl)
	mockRepo.EXPECT().Message().Return(mockMessageRepo).AnyTimes()
	mockRepo.EXPECT().Campaign().Return(mockCampaignRepo).AnyTimes()
	mockRepo.EXPECT().Customer().Return(mockCustomerRepo).AnyTimes()
	mockRepo.EXPECT().Conversation().Return(mockConversationRepo).AnyTimes()

	mockMessageRepo.EXPECT().Stats().Return(&models.MessageStats{}, nil)
	mockCampaignRepo.EXPECT().CountByStatus(models.CampaignStatusRunning).Return(int64(0), nil)
	mockCustomerRepo.EXPECT().Count().Return(int64(0), nil)
	mockConversationRepo.EXPECT().CountSince(gomock.Any()).Return(int64(0), nil)

	svc := service.NewAnalyticsService(mockRepo, zap.NewNop())
	stats, err := svc.Dashboard()
	require.NoError(t, err)
	// No division by zero when nothing was sent.
	assert.Zero(t, stats.DeliveryRate)
}
