package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/bma-crm/commhub/internal/models"
	"github.com/bma-crm/commhub/internal/repository"
	"github.com/bma-crm/commhub/internal/repository/mocks"
	"github.com/bma-crm/commhub/internal/service"
)

func TestConversationService_Create_ConflictsWithActive(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockCustomerRepo := mocks.NewMockCustomerRepository(ctrl)
	mockConversationRepo := mocks.NewMockConversationRepository(ctrl)
	mockRepo.EXPECT().Customer().Return(mockCustomerRepo).AnyTimes()
	mockRepo.EXPECT().Conversation().Return(mockConversationRepo).AnyTimes()

	mockCustomerRepo.EXPECT().GetByID("cust-1").Return(&models.Customer{ID: "cust-1"}, nil)
	mockConversationRepo.EXPECT().
		FindActive("cust-1", models.ChannelWhatsApp).
		Return(&models.Conversation{ID: "conv-1"}, nil)

	svc := service.NewConversationService(mockRepo, zap.NewNop())
	_, err := svc.Create(service.ConversationInput{
		CustomerID: "cust-1",
		Channel:    models.ChannelWhatsApp,
	})
	assert.ErrorIs(t, err, service.ErrConversationExists)
}

func TestConversationService_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockCustomerRepo := mocks.NewMockCustomerRepository(ctrl)
	mockConversationRepo := mocks.NewMockConversationRepository(ctrl)
	mockRepo.EXPECT().Customer().Return(mockCustomerRepo).AnyTimes()
	mockRepo.EXPECT().Conversation().Return(mockConversationRepo).AnyTimes()

	mockCustomerRepo.EXPECT().GetByID("cust-1").Return(&models.Customer{ID: "cust-1"}, nil)
	mockConversationRepo.EXPECT().
		FindActive("cust-1", models.ChannelWhatsApp).
		Return(nil, repository.ErrNotFound)
	mockConversationRepo.EXPECT().Create(gomock.Any()).DoAndReturn(func(c *models.Conversation) error {
		assert.Equal(t, models.ConversationStatusOpen, c.Status)
		c.ID = "conv-1"
		return nil
	})
	mockConversationRepo.EXPECT().GetListItem("conv-1").Return(&models.ConversationListItem{
		Conversation: models.Conversation{ID: "conv-1"},
		CustomerName: "Somchai",
	}, nil)

	svc := service.NewConversationService(mockRepo, zap.NewNop())
	item, err := svc.Create(service.ConversationInput{
		CustomerID: "cust-1",
		Channel:    models.ChannelWhatsApp,
	})
	require.NoError(t, err)
	assert.Equal(t, "Somchai", item.CustomerName)
}

func TestConversationService_Update_CloseStampsClosedAt(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockConversationRepo := mocks.NewMockConversationRepository(ctrl)
	mockRepo.EXPECT().Conversation().Return(mockConversationRepo).AnyTimes()

	mockConversationRepo.EXPECT().GetByID("conv-1").Return(&models.Conversation{
		ID:     "conv-1",
		Status: models.ConversationStatusOpen,
	}, nil)
	mockConversationRepo.EXPECT().Update(gomock.Any()).DoAndReturn(func(c *models.Conversation) error {
		assert.Equal(t, models.ConversationStatusClosed, c.Status)
		assert.True(t, c.ClosedAt.Valid)
		return nil
	})
	mockConversationRepo.EXPECT().GetListItem("conv-1").Return(&models.ConversationListItem{
		Conversation: models.Conversation{ID: "conv-1", Status: models.ConversationStatusClosed},
	}, nil)

	closed := models.ConversationStatusClosed
	svc := service.NewConversationService(mockRepo, zap.NewNop())
	item, err := svc.Update("conv-1", service.ConversationUpdate{Status: &closed})
	require.NoError(t, err)
	assert.Equal(t, models.ConversationStatusClosed, item.Status)
}
