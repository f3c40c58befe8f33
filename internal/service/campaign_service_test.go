package service_test

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/bma-crm/commhub/internal/models"
	"github.com/bma-crm/commhub/internal/queue"
	"github.com/bma-crm/commhub/internal/repository/mocks"
	"github.com/bma-crm/commhub/internal/service"
	"github.com/bma-crm/commhub/internal/whatsapp"
)

// fakePublisher collects dispatch jobs instead of touching a broker.
type fakePublisher struct {
	mu   sync.Mutex
	jobs []queue.DispatchJob
	err  error
}

func (p *fakePublisher) PublishDispatch(_ context.Context, job queue.DispatchJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, job)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func newCampaignService(t *testing.T, mockRepo *mocks.MockRepository, publisher queue.Publisher, serverURL string) service.CampaignService {
	t.Helper()
	cfg := testConfig(serverURL)
	waClient := whatsapp.NewClient(&cfg.WhatsApp, zap.NewNop())
	return service.NewCampaignService(mockRepo, publisher, waClient, zap.NewNop())
}

func TestCampaignService_Send_EnqueuesRecipients(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockCampaignRepo := mocks.NewMockCampaignRepository(ctrl)
	mockCustomerRepo := mocks.NewMockCustomerRepository(ctrl)
	mockRepo.EXPECT().Campaign().Return(mockCampaignRepo).AnyTimes()
	mockRepo.EXPECT().Customer().Return(mockCustomerRepo).AnyTimes()

	campaign := &models.Campaign{
		ID:             "camp-1",
		Name:           "Promo",
		Channel:        models.ChannelWhatsApp,
		Status:         models.CampaignStatusDraft,
		SegmentFilters: models.SegmentFilters{Tags: []string{"vip"}},
	}
	mockCampaignRepo.EXPECT().GetByID("camp-1").Return(campaign, nil)
	mockCustomerRepo.EXPECT().
		ListBySegment(gomock.Any(), 0, gomock.Any()).
		DoAndReturn(func(filter models.SegmentFilter, _, _ int) ([]*models.Customer, error) {
			// WhatsApp campaigns only target reachable contacts.
			assert.True(t, filter.HasWhatsApp)
			return []*models.Customer{{ID: "cust-1"}, {ID: "cust-2"}}, nil
		})
	mockCampaignRepo.EXPECT().MarkStarted("camp-1", gomock.Any()).Return(nil)
	mockCampaignRepo.EXPECT().Update(gomock.Any()).DoAndReturn(func(c *models.Campaign) error {
		assert.Equal(t, 2, c.RecipientCount)
		return nil
	})

	publisher := &fakePublisher{}
	svc := newCampaignService(t, mockRepo, publisher, "http://localhost:9999")

	got, err := svc.Send("camp-1")
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusRunning, got.Status)
	require.Len(t, publisher.jobs, 2)
	assert.Equal(t, queue.DispatchJob{CampaignID: "camp-1", CustomerID: "cust-1"}, publisher.jobs[0])
}

func TestCampaignService_Send_NoRecipients(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockCampaignRepo := mocks.NewMockCampaignRepository(ctrl)
	mockCustomerRepo := mocks.NewMockCustomerRepository(ctrl)
	mockRepo.EXPECT().Campaign().Return(mockCampaignRepo).AnyTimes()
	mockRepo.EXPECT().Customer().Return(mockCustomerRepo).AnyTimes()

	mockCampaignRepo.EXPECT().GetByID("camp-1").Return(&models.Campaign{
		ID:     "camp-1",
		Status: models.CampaignStatusDraft,
	}, nil)
	mockCustomerRepo.EXPECT().ListBySegment(gomock.Any(), 0, gomock.Any()).Return(nil, nil)

	svc := newCampaignService(t, mockRepo, &fakePublisher{}, "http://localhost:9999")
	_, err := svc.Send("camp-1")
	assert.ErrorIs(t, err, service.ErrNoRecipients)
}

func TestCampaignService_Send_InvalidTransition(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockCampaignRepo := mocks.NewMockCampaignRepository(ctrl)
	mockRepo.EXPECT().Campaign().Return(mockCampaignRepo).AnyTimes()

	mockCampaignRepo.EXPECT().GetByID("camp-1").Return(&models.Campaign{
		ID:     "camp-1",
		Status: models.CampaignStatusCompleted,
	}, nil)

	svc := newCampaignService(t, mockRepo, &fakePublisher{}, "http://localhost:9999")
	_, err := svc.Send("camp-1")
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
}

func TestCampaignService_PauseResume(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockCampaignRepo := mocks.NewMockCampaignRepository(ctrl)
	mockCustomerRepo := mocks.NewMockCustomerRepository(ctrl)
	mockRepo.EXPECT().Campaign().Return(mockCampaignRepo).AnyTimes()
	mockRepo.EXPECT().Customer().Return(mockCustomerRepo).AnyTimes()

	mockCampaignRepo.EXPECT().GetByID("camp-1").Return(&models.Campaign{
		ID:     "camp-1",
		Status: models.CampaignStatusRunning,
	}, nil)
	mockCampaignRepo.EXPECT().SetStatus("camp-1", models.CampaignStatusPaused).Return(nil)

	publisher := &fakePublisher{}
	svc := newCampaignService(t, mockRepo, publisher, "http://localhost:9999")
	paused, err := svc.Pause("camp-1")
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusPaused, paused.Status)

	mockCampaignRepo.EXPECT().GetByID("camp-1").Return(&models.Campaign{
		ID:      "camp-1",
		Channel: models.ChannelWhatsApp,
		Status:  models.CampaignStatusPaused,
	}, nil)
	mockCampaignRepo.EXPECT().SetStatus("camp-1", models.CampaignStatusRunning).Return(nil)
	mockCampaignRepo.EXPECT().DispatchedCustomerIDs("camp-1").Return([]string{"cust-1"}, nil)
	mockCustomerRepo.EXPECT().
		ListBySegment(gomock.Any(), 0, gomock.Any()).
		Return([]*models.Customer{{ID: "cust-1"}, {ID: "cust-2"}}, nil)

	resumed, err := svc.Resume("camp-1")
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusRunning, resumed.Status)
	// Only the recipient that was never dispatched goes back on the queue.
	require.Len(t, publisher.jobs, 1)
	assert.Equal(t, "cust-2", publisher.jobs[0].CustomerID)

	// Draft campaigns cannot pause.
	mockCampaignRepo.EXPECT().GetByID("camp-1").Return(&models.Campaign{
		ID:     "camp-1",
		Status: models.CampaignStatusDraft,
	}, nil)
	_, err = svc.Pause("camp-1")
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
}

func TestCampaignService_Update_NotEditable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockCampaignRepo := mocks.NewMockCampaignRepository(ctrl)
	mockRepo.EXPECT().Campaign().Return(mockCampaignRepo).AnyTimes()

	mockCampaignRepo.EXPECT().GetByID("camp-1").Return(&models.Campaign{
		ID:     "camp-1",
		Status: models.CampaignStatusRunning,
	}, nil)

	svc := newCampaignService(t, mockRepo, &fakePublisher{}, "http://localhost:9999")
	_, err := svc.Update("camp-1", service.CampaignInput{Name: "Changed"})
	assert.ErrorIs(t, err, service.ErrNotEditable)
}

func TestCampaignService_HandleDispatchJob_SendsAndCompletes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.CAMP1"}]}`))
	}))
	defer server.Close()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockCampaignRepo := mocks.NewMockCampaignRepository(ctrl)
	mockCustomerRepo := mocks.NewMockCustomerRepository(ctrl)
	mockConversationRepo := mocks.NewMockConversationRepository(ctrl)
	mockMessageRepo := mocks.NewMockMessageRepository(ctrl)
	mockRepo.EXPECT().Campaign().Return(mockCampaignRepo).AnyTimes()
	mockRepo.EXPECT().Customer().Return(mockCustomerRepo).AnyTimes()
	mockRepo.EXPECT().Conversation().Return(mockConversationRepo).AnyTimes()
	mockRepo.EXPECT().Message().Return(mockMessageRepo).AnyTimes()

	running := &models.Campaign{
		ID:             "camp-1",
		Name:           "Promo",
		Channel:        models.ChannelWhatsApp,
		Status:         models.CampaignStatusRunning,
		MessageContent: "Hello from the campaign",
		RecipientCount: 1,
	}
	mockCampaignRepo.EXPECT().GetByID("camp-1").Return(running, nil)
	mockCustomerRepo.EXPECT().GetByID("cust-1").Return(&models.Customer{
		ID:         "cust-1",
		WhatsAppID: sql.NullString{String: "66812345678", Valid: true},
	}, nil)
	mockConversationRepo.EXPECT().
		FindActive("cust-1", models.ChannelWhatsApp).
		Return(&models.Conversation{ID: "conv-1", CustomerID: "cust-1"}, nil)
	mockMessageRepo.EXPECT().Create(gomock.Any()).DoAndReturn(func(m *models.Message) error {
		assert.Equal(t, "Hello from the campaign", m.Content)
		assert.Equal(t, "camp-1", m.ExtraData["campaign_id"])
		m.ID = "msg-1"
		return nil
	})
	mockMessageRepo.EXPECT().
		UpdateStatus("msg-1", models.MessageStatusSent, gomock.Any(), nil).
		Return(nil)
	mockConversationRepo.EXPECT().RecordMessage("conv-1", gomock.Any(), false).Return(nil)

	mockCampaignRepo.EXPECT().IncrementCounter("camp-1", "sent_count").Return(nil)
	completed := *running
	completed.SentCount = 1
	mockCampaignRepo.EXPECT().GetByID("camp-1").Return(&completed, nil)
	mockCampaignRepo.EXPECT().MarkCompleted("camp-1", gomock.Any()).Return(nil)

	svc := newCampaignService(t, mockRepo, &fakePublisher{}, server.URL)
	err := svc.HandleDispatchJob(context.Background(), queue.DispatchJob{CampaignID: "camp-1", CustomerID: "cust-1"})
	require.NoError(t, err)
}

func TestCampaignService_HandleDispatchJob_SkipsNonRunning(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockCampaignRepo := mocks.NewMockCampaignRepository(ctrl)
	mockRepo.EXPECT().Campaign().Return(mockCampaignRepo).AnyTimes()

	mockCampaignRepo.EXPECT().GetByID("camp-1").Return(&models.Campaign{
		ID:     "camp-1",
		Status: models.CampaignStatusPaused,
	}, nil)

	svc := newCampaignService(t, mockRepo, &fakePublisher{}, "http://localhost:9999")
	err := svc.HandleDispatchJob(context.Background(), queue.DispatchJob{CampaignID: "camp-1", CustomerID: "cust-1"})
	assert.NoError(t, err)
}

func TestCampaignService_HandleDispatchJob_OptOutCountsFailed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockCampaignRepo := mocks.NewMockCampaignRepository(ctrl)
	mockCustomerRepo := mocks.NewMockCustomerRepository(ctrl)
	mockRepo.EXPECT().Campaign().Return(mockCampaignRepo).AnyTimes()
	mockRepo.EXPECT().Customer().Return(mockCustomerRepo).AnyTimes()

	running := &models.Campaign{
		ID:             "camp-1",
		Status:         models.CampaignStatusRunning,
		RecipientCount: 5,
	}
	mockCampaignRepo.EXPECT().GetByID("camp-1").Return(running, nil)
	mockCustomerRepo.EXPECT().GetByID("cust-1").Return(&models.Customer{
		ID:         "cust-1",
		OptOut:     true,
		WhatsAppID: sql.NullString{String: "66812345678", Valid: true},
	}, nil)
	mockCampaignRepo.EXPECT().IncrementCounter("camp-1", "failed_count").Return(nil)
	after := *running
	after.FailedCount = 1
	mockCampaignRepo.EXPECT().GetByID("camp-1").Return(&after, nil)

	svc := newCampaignService(t, mockRepo, &fakePublisher{}, "http://localhost:9999")
	err := svc.HandleDispatchJob(context.Background(), queue.DispatchJob{CampaignID: "camp-1", CustomerID: "cust-1"})
	assert.NoError(t, err)
}

func TestCampaignService_DispatchDue(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockCampaignRepo := mocks.NewMockCampaignRepository(ctrl)
	mockCustomerRepo := mocks.NewMockCustomerRepository(ctrl)
	mockRepo.EXPECT().Campaign().Return(mockCampaignRepo).AnyTimes()
	mockRepo.EXPECT().Customer().Return(mockCustomerRepo).AnyTimes()

	due := &models.Campaign{
		ID:          "camp-1",
		Status:      models.CampaignStatusScheduled,
		ScheduledAt: sql.NullTime{Time: time.Now().Add(-time.Minute), Valid: true},
	}
	mockCampaignRepo.EXPECT().ListDue(gomock.Any()).Return([]*models.Campaign{due}, nil)
	mockCampaignRepo.EXPECT().GetByID("camp-1").Return(due, nil)
	mockCustomerRepo.EXPECT().
		ListBySegment(gomock.Any(), 0, gomock.Any()).
		Return([]*models.Customer{{ID: "cust-1"}}, nil)
	mockCampaignRepo.EXPECT().MarkStarted("camp-1", gomock.Any()).Return(nil)
	mockCampaignRepo.EXPECT().Update(gomock.Any()).Return(nil)

	publisher := &fakePublisher{}
	svc := newCampaignService(t, mockRepo, publisher, "http://localhost:9999")

	require.NoError(t, svc.DispatchDue(context.Background()))
	assert.Len(t, publisher.jobs, 1)
}

func TestCampaignService_Create_ScheduledStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockCampaignRepo := mocks.NewMockCampaignRepository(ctrl)
	mockCustomerRepo := mocks.NewMockCustomerRepository(ctrl)
	mockRepo.EXPECT().Campaign().Return(mockCampaignRepo).AnyTimes()
	mockRepo.EXPECT().Customer().Return(mockCustomerRepo).AnyTimes()

	mockCustomerRepo.EXPECT().CountBySegment(gomock.Any()).Return(7, nil)
	mockCampaignRepo.EXPECT().Create(gomock.Any()).Return(nil)

	scheduledAt := time.Now().Add(time.Hour)
	svc := newCampaignService(t, mockRepo, &fakePublisher{}, "http://localhost:9999")
	campaign, err := svc.Create(service.CampaignInput{
		Name:           "Promo",
		Channel:        models.ChannelWhatsApp,
		MessageContent: "Hi",
		ScheduledAt:    &scheduledAt,
	})
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusScheduled, campaign.Status)
	assert.Equal(t, 7, campaign.RecipientCount)
}
