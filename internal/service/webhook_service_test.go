package service_test

import (
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/bma-crm/commhub/internal/config"
	"github.com/bma-crm/commhub/internal/models"
	"github.com/bma-crm/commhub/internal/repository"
	"github.com/bma-crm/commhub/internal/repository/mocks"
	"github.com/bma-crm/commhub/internal/service"
	"github.com/bma-crm/commhub/internal/whatsapp"
)

const inboundTextPayload = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "entry-1",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "contacts": [{"wa_id": "66812345678", "profile": {"name": "Somchai"}}],
        "messages": [{
          "id": "wamid.IN1",
          "from": "66812345678",
          "timestamp": "1756000000",
          "type": "text",
          "text": {"body": "Hello there"}
        }]
      }
    }]
  }]
}`

const statusDeliveredPayload = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "entry-1",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "statuses": [{
          "id": "wamid.OUT1",
          "recipient_id": "66812345678",
          "status": "delivered",
          "timestamp": "1756000100"
        }]
      }
    }]
  }]
}`

func newWebhookService(mockRepo *mocks.MockRepository) service.WebhookService {
	cfg := &config.Config{
		WhatsApp: config.WhatsAppConfig{VerifyToken: "secret-token"},
	}
	return service.NewWebhookService(cfg, mockRepo, testRedis(), zap.NewNop())
}

func decodePayload(t *testing.T, raw string) *whatsapp.WebhookPayload {
	t.Helper()
	var payload whatsapp.WebhookPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	return &payload
}

func TestWebhookService_Process_NewCustomer(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockCustomerRepo := mocks.NewMockCustomerRepository(ctrl)
	mockConversationRepo := mocks.NewMockConversationRepository(ctrl)
	mockMessageRepo := mocks.NewMockMessageRepository(ctrl)
	mockRepo.EXPECT().Customer().Return(mockCustomerRepo).AnyTimes()
	mockRepo.EXPECT().Conversation().Return(mockConversationRepo).AnyTimes()
	mockRepo.EXPECT().Message().Return(mockMessageRepo).AnyTimes()

	mockMessageRepo.EXPECT().GetByExternalID("wamid.IN1").Return(nil, repository.ErrNotFound)
	mockCustomerRepo.EXPECT().GetByWhatsAppID("66812345678").Return(nil, repository.ErrNotFound)
	mockCustomerRepo.EXPECT().GetByPhone("66812345678").Return(nil, repository.ErrNotFound)
	mockCustomerRepo.EXPECT().Create(gomock.Any()).DoAndReturn(func(c *models.Customer) error {
		assert.Equal(t, "Somchai", c.Name)
		assert.Equal(t, "66812345678", c.WhatsAppID.String)
		c.ID = "cust-1"
		return nil
	})
	mockConversationRepo.EXPECT().
		FindActive("cust-1", models.ChannelWhatsApp).
		Return(nil, repository.ErrNotFound)
	mockConversationRepo.EXPECT().Create(gomock.Any()).DoAndReturn(func(c *models.Conversation) error {
		assert.Equal(t, models.ConversationStatusOpen, c.Status)
		c.ID = "conv-1"
		return nil
	})
	mockMessageRepo.EXPECT().Create(gomock.Any()).DoAndReturn(func(m *models.Message) error {
		assert.Equal(t, models.DirectionInbound, m.Direction)
		assert.Equal(t, "Hello there", m.Content)
		assert.Equal(t, "wamid.IN1", m.ExternalID.String)
		m.ID = "msg-1"
		return nil
	})
	mockConversationRepo.EXPECT().RecordMessage("conv-1", gomock.Any(), true).Return(nil)

	svc := newWebhookService(mockRepo)
	svc.Process(decodePayload(t, inboundTextPayload))
}

func TestWebhookService_Process_DuplicateDropped(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockMessageRepo := mocks.NewMockMessageRepository(ctrl)
	mockRepo.EXPECT().Message().Return(mockMessageRepo).AnyTimes()

	// Already ingested; nothing else may be touched.
	mockMessageRepo.EXPECT().GetByExternalID("wamid.IN1").Return(&models.Message{ID: "msg-1"}, nil)

	svc := newWebhookService(mockRepo)
	svc.Process(decodePayload(t, inboundTextPayload))
}

func TestWebhookService_Process_StatusUpdate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockMessageRepo := mocks.NewMockMessageRepository(ctrl)
	mockRepo.EXPECT().Message().Return(mockMessageRepo).AnyTimes()

	mockMessageRepo.EXPECT().GetByExternalID("wamid.OUT1").Return(&models.Message{
		ID:     "msg-1",
		Status: models.MessageStatusSent,
	}, nil)
	mockMessageRepo.EXPECT().
		UpdateStatus("msg-1", models.MessageStatusDelivered, nil, nil).
		Return(nil)

	svc := newWebhookService(mockRepo)
	svc.Process(decodePayload(t, statusDeliveredPayload))
}

func TestWebhookService_Process_StatusNeverRegresses(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockMessageRepo := mocks.NewMockMessageRepository(ctrl)
	mockRepo.EXPECT().Message().Return(mockMessageRepo).AnyTimes()

	// Already read; a late delivered receipt must not move it back.
	mockMessageRepo.EXPECT().GetByExternalID("wamid.OUT1").Return(&models.Message{
		ID:     "msg-1",
		Status: models.MessageStatusRead,
	}, nil)

	svc := newWebhookService(mockRepo)
	svc.Process(decodePayload(t, statusDeliveredPayload))
}

func TestWebhookService_Process_StatusForUnknownMessage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockMessageRepo := mocks.NewMockMessageRepository(ctrl)
	mockRepo.EXPECT().Message().Return(mockMessageRepo).AnyTimes()

	mockMessageRepo.EXPECT().GetByExternalID("wamid.OUT1").Return(nil, repository.ErrNotFound)

	svc := newWebhookService(mockRepo)
	svc.Process(decodePayload(t, statusDeliveredPayload))
}

func TestWebhookService_Process_KnownCustomerBackfillsWhatsAppID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockCustomerRepo := mocks.NewMockCustomerRepository(ctrl)
	mockConversationRepo := mocks.NewMockConversationRepository(ctrl)
	mockMessageRepo := mocks.NewMockMessageRepository(ctrl)
	mockRepo.EXPECT().Customer().Return(mockCustomerRepo).AnyTimes()
	mockRepo.EXPECT().Conversation().Return(mockConversationRepo).AnyTimes()
	mockRepo.EXPECT().Message().Return(mockMessageRepo).AnyTimes()

	mockMessageRepo.EXPECT().GetByExternalID("wamid.IN1").Return(nil, repository.ErrNotFound)
	mockCustomerRepo.EXPECT().GetByWhatsAppID("66812345678").Return(nil, repository.ErrNotFound)
	mockCustomerRepo.EXPECT().GetByPhone("66812345678").Return(&models.Customer{
		ID:    "cust-1",
		Name:  "Somchai",
		Phone: sql.NullString{String: "66812345678", Valid: true},
	}, nil)
	mockCustomerRepo.EXPECT().Update(gomock.Any()).DoAndReturn(func(c *models.Customer) error {
		assert.Equal(t, "66812345678", c.WhatsAppID.String)
		return nil
	})
	mockConversationRepo.EXPECT().
		FindActive("cust-1", models.ChannelWhatsApp).
		Return(&models.Conversation{ID: "conv-1"}, nil)
	mockMessageRepo.EXPECT().Create(gomock.Any()).DoAndReturn(func(m *models.Message) error {
		m.ID = "msg-1"
		return nil
	})
	mockConversationRepo.EXPECT().RecordMessage("conv-1", gomock.Any(), true).Return(nil)

	svc := newWebhookService(mockRepo)
	svc.Process(decodePayload(t, inboundTextPayload))
}

func TestWebhookService_VerifySubscription(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := newWebhookService(mocks.NewMockRepository(ctrl))

	challenge, err := svc.VerifySubscription("subscribe", "secret-token", "12345")
	require.NoError(t, err)
	assert.Equal(t, "12345", challenge)

	_, err = svc.VerifySubscription("subscribe", "wrong", "12345")
	assert.Error(t, err)

	_, err = svc.VerifySubscription("unsubscribe", "secret-token", "12345")
	assert.Error(t, err)
}
