package service_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/bma-crm/commhub/internal/repository/mocks"
	"github.com/bma-crm/commhub/internal/service"
	"github.com/bma-crm/commhub/internal/whatsapp"
)

func newHealthFixture(t *testing.T, mockRepo *mocks.MockRepository, brokerCheck func() error) service.HealthService {
	t.Helper()
	cfg := testConfig("http://localhost:9999")
	waClient := whatsapp.NewClient(&cfg.WhatsApp, zap.NewNop())
	messages := service.NewMessageService(cfg, mockRepo, testRedis(), waClient, zap.NewNop())
	scheduler := service.NewSchedulerService(cfg, service.NewCampaignService(mockRepo, &fakePublisher{}, waClient, zap.NewNop()), zap.NewNop())
	return service.NewHealthService(mockRepo, testRedis(), brokerCheck, messages, scheduler, zap.NewNop())
}

func TestHealthService_DatabaseDownIsUnhealthy(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockRepo.EXPECT().Ping().Return(errors.New("connection refused"))

	svc := newHealthFixture(t, mockRepo, func() error { return nil })
	status := svc.GetHealth()

	assert.Equal(t, service.StatusUnhealthy, status.Status)
	assert.Equal(t, service.ComponentDisconnected, status.DatabaseStatus)
}

func TestHealthService_RedisDownIsDegraded(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockRepo.EXPECT().Ping().Return(nil)

	// Redis points at a non-existent server.
	svc := newHealthFixture(t, mockRepo, func() error { return nil })
	status := svc.GetHealth()

	assert.Equal(t, service.StatusDegraded, status.Status)
	assert.Equal(t, service.ComponentConnected, status.DatabaseStatus)
	assert.Equal(t, service.ComponentDisconnected, status.RedisStatus)
	assert.Equal(t, service.BreakerClosed, status.CircuitBreakerState)
	assert.False(t, status.SchedulerRunning)
}

func TestHealthService_BrokerDownIsDegraded(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockRepo.EXPECT().Ping().Return(nil)

	svc := newHealthFixture(t, mockRepo, func() error { return errors.New("broker down") })
	status := svc.GetHealth()

	assert.Equal(t, service.StatusDegraded, status.Status)
	assert.Equal(t, service.ComponentDisconnected, status.BrokerStatus)
}
