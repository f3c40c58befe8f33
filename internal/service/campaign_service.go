package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bma-crm/commhub/internal/models"
	"github.com/bma-crm/commhub/internal/queue"
	"github.com/bma-crm/commhub/internal/repository"
	"github.com/bma-crm/commhub/internal/whatsapp"
)

type campaignService struct {
	repo      repository.Repository
	publisher queue.Publisher
	waClient  *whatsapp.Client
	logger    *zap.Logger
}

func NewCampaignService(
	repo repository.Repository,
	publisher queue.Publisher,
	waClient *whatsapp.Client,
	logger *zap.Logger,
) CampaignService {
	return &campaignService{
		repo:      repo,
		publisher: publisher,
		waClient:  waClient,
		logger:    logger,
	}
}

func (s *campaignService) Create(input CampaignInput) (*models.Campaign, error) {
	status := models.CampaignStatusDraft
	if input.ScheduledAt != nil {
		status = models.CampaignStatusScheduled
	}

	campaign := &models.Campaign{
		Name:           input.Name,
		Description:    sql.NullString{String: input.Description, Valid: input.Description != ""},
		Channel:        input.Channel,
		TemplateID:     sql.NullString{String: input.TemplateID, Valid: input.TemplateID != ""},
		MessageContent: input.MessageContent,
		Status:         status,
		SegmentFilters: models.SegmentFilters(input.SegmentFilters),
		CreatedByID:    input.CreatedByID,
	}
	if input.ScheduledAt != nil {
		campaign.ScheduledAt = sql.NullTime{Time: *input.ScheduledAt, Valid: true}
	}

	// RecipientCount is an estimate until send time resolves the segment.
	count, err := s.repo.Customer().CountBySegment(input.SegmentFilters)
	if err != nil {
		return nil, fmt.Errorf("failed to count segment: %w", err)
	}
	campaign.RecipientCount = count

	if err := s.repo.Campaign().Create(campaign); err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}
	return campaign, nil
}

func (s *campaignService) Get(id string) (*models.Campaign, error) {
	campaign, err := s.repo.Campaign().GetByID(id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return campaign, err
}

func (s *campaignService) List(status models.CampaignStatus, skip, limit int) ([]*models.Campaign, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.Campaign().List(status, skip, limit)
}

func (s *campaignService) Update(id string, input CampaignInput) (*models.Campaign, error) {
	campaign, err := s.repo.Campaign().GetByID(id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !campaign.Status.IsEditable() {
		return nil, ErrNotEditable
	}

	campaign.Name = input.Name
	campaign.Description = sql.NullString{String: input.Description, Valid: input.Description != ""}
	campaign.Channel = input.Channel
	campaign.TemplateID = sql.NullString{String: input.TemplateID, Valid: input.TemplateID != ""}
	campaign.MessageContent = input.MessageContent
	campaign.SegmentFilters = models.SegmentFilters(input.SegmentFilters)
	if input.ScheduledAt != nil {
		campaign.ScheduledAt = sql.NullTime{Time: *input.ScheduledAt, Valid: true}
		campaign.Status = models.CampaignStatusScheduled
	} else {
		campaign.ScheduledAt = sql.NullTime{}
		campaign.Status = models.CampaignStatusDraft
	}

	count, err := s.repo.Customer().CountBySegment(input.SegmentFilters)
	if err != nil {
		return nil, fmt.Errorf("failed to count segment: %w", err)
	}
	campaign.RecipientCount = count

	if err := s.repo.Campaign().Update(campaign); err != nil {
		return nil, fmt.Errorf("failed to update campaign: %w", err)
	}
	return campaign, nil
}

func (s *campaignService) Delete(id string) error {
	campaign, err := s.repo.Campaign().GetByID(id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if !campaign.Status.IsEditable() {
		return ErrNotEditable
	}
	return s.repo.Campaign().Delete(id)
}

// Send resolves the segment, marks the campaign running and enqueues one
// dispatch job per recipient. Campaigns with an empty segment never start.
func (s *campaignService) Send(id string) (*models.Campaign, error) {
	campaign, err := s.repo.Campaign().GetByID(id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !campaign.Status.CanTransition(models.CampaignStatusRunning) {
		return nil, ErrInvalidTransition
	}

	recipients, err := s.segmentRecipients(campaign, 0, 0)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	now := time.Now()
	if err := s.repo.Campaign().MarkStarted(id, now); err != nil {
		return nil, fmt.Errorf("failed to mark campaign started: %w", err)
	}
	campaign.Status = models.CampaignStatusRunning
	campaign.StartedAt = sql.NullTime{Time: now, Valid: true}
	campaign.RecipientCount = len(recipients)
	if err := s.repo.Campaign().Update(campaign); err != nil {
		return nil, fmt.Errorf("failed to persist recipient count: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	enqueued := 0
	for _, customer := range recipients {
		job := queue.DispatchJob{CampaignID: campaign.ID, CustomerID: customer.ID}
		if err := s.publisher.PublishDispatch(ctx, job); err != nil {
			s.logger.Error("Failed to enqueue dispatch job",
				zap.String("campaignID", campaign.ID),
				zap.String("customerID", customer.ID),
				zap.Error(err))
			continue
		}
		enqueued++
	}

	s.logger.Info("Campaign dispatch enqueued",
		zap.String("campaignID", campaign.ID),
		zap.Int("recipients", len(recipients)),
		zap.Int("enqueued", enqueued))
	return campaign, nil
}

func (s *campaignService) Pause(id string) (*models.Campaign, error) {
	return s.transition(id, models.CampaignStatusPaused)
}

// Resume puts a paused campaign back to running and re-enqueues the
// recipients that were not dispatched before the pause.
func (s *campaignService) Resume(id string) (*models.Campaign, error) {
	campaign, err := s.transition(id, models.CampaignStatusRunning)
	if err != nil {
		return nil, err
	}

	dispatched, err := s.repo.Campaign().DispatchedCustomerIDs(id)
	if err != nil {
		return nil, fmt.Errorf("failed to list dispatched recipients: %w", err)
	}
	seen := make(map[string]bool, len(dispatched))
	for _, customerID := range dispatched {
		seen[customerID] = true
	}

	recipients, err := s.segmentRecipients(campaign, 0, 0)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	enqueued := 0
	for _, customer := range recipients {
		if seen[customer.ID] {
			continue
		}
		job := queue.DispatchJob{CampaignID: campaign.ID, CustomerID: customer.ID}
		if err := s.publisher.PublishDispatch(ctx, job); err != nil {
			s.logger.Error("Failed to re-enqueue dispatch job",
				zap.String("campaignID", campaign.ID),
				zap.String("customerID", customer.ID),
				zap.Error(err))
			continue
		}
		enqueued++
	}

	s.logger.Info("Campaign resumed",
		zap.String("campaignID", campaign.ID),
		zap.Int("reEnqueued", enqueued))
	return campaign, nil
}

func (s *campaignService) transition(id string, to models.CampaignStatus) (*models.Campaign, error) {
	campaign, err := s.repo.Campaign().GetByID(id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !campaign.Status.CanTransition(to) {
		return nil, ErrInvalidTransition
	}
	if err := s.repo.Campaign().SetStatus(id, to); err != nil {
		return nil, fmt.Errorf("failed to set campaign status: %w", err)
	}
	campaign.Status = to
	return campaign, nil
}

// Recipients previews which contacts the segment currently matches.
func (s *campaignService) Recipients(id string, skip, limit int) ([]*models.Customer, error) {
	campaign, err := s.repo.Campaign().GetByID(id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	return s.segmentRecipients(campaign, skip, limit)
}

func (s *campaignService) segmentRecipients(campaign *models.Campaign, skip, limit int) ([]*models.Customer, error) {
	filter := models.SegmentFilter(campaign.SegmentFilters)
	if campaign.Channel == models.ChannelWhatsApp {
		filter.HasWhatsApp = true
	}
	if limit <= 0 {
		limit = 100000
	}
	recipients, err := s.repo.Customer().ListBySegment(filter, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve segment: %w", err)
	}
	return recipients, nil
}

// DispatchDue starts scheduled campaigns whose time has arrived. Called by
// the scheduler every tick.
func (s *campaignService) DispatchDue(ctx context.Context) error {
	due, err := s.repo.Campaign().ListDue(time.Now())
	if err != nil {
		return fmt.Errorf("failed to list due campaigns: %w", err)
	}

	for _, campaign := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := s.Send(campaign.ID); err != nil {
			s.logger.Error("Failed to start due campaign",
				zap.String("campaignID", campaign.ID), zap.Error(err))
			if errors.Is(err, ErrNoRecipients) {
				// An empty segment will stay empty; fail the campaign rather
				// than retrying it every tick.
				if err := s.repo.Campaign().SetStatus(campaign.ID, models.CampaignStatusFailed); err != nil {
					s.logger.Error("Failed to fail empty campaign",
						zap.String("campaignID", campaign.ID), zap.Error(err))
				}
			}
			continue
		}
		s.logger.Info("Scheduled campaign started", zap.String("campaignID", campaign.ID))
	}
	return nil
}

// HandleDispatchJob sends one campaign message. The queue worker calls this
// per delivery; returning an error triggers the broker's redelivery.
func (s *campaignService) HandleDispatchJob(ctx context.Context, job queue.DispatchJob) error {
	campaign, err := s.repo.Campaign().GetByID(job.CampaignID)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("Dispatch job for unknown campaign", zap.String("campaignID", job.CampaignID))
		return nil
	}
	if err != nil {
		return err
	}
	if campaign.Status != models.CampaignStatusRunning {
		// Paused or completed campaigns drop their remaining jobs.
		s.logger.Info("Skipping dispatch for non-running campaign",
			zap.String("campaignID", campaign.ID),
			zap.String("status", string(campaign.Status)))
		return nil
	}

	customer, err := s.repo.Customer().GetByID(job.CustomerID)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("Dispatch job for unknown customer", zap.String("customerID", job.CustomerID))
		return s.recordResult(campaign, "failed_count")
	}
	if err != nil {
		return err
	}

	recipient := recipientAddress(customer)
	if recipient == "" || customer.OptOut {
		return s.recordResult(campaign, "failed_count")
	}

	conversation, err := s.repo.Conversation().FindActive(customer.ID, campaign.Channel)
	if errors.Is(err, repository.ErrNotFound) {
		conversation = &models.Conversation{
			CustomerID: customer.ID,
			Channel:    campaign.Channel,
			Status:     models.ConversationStatusOpen,
			Subject:    sql.NullString{String: campaign.Name, Valid: true},
			Tags:       models.StringList{},
		}
		if err := s.repo.Conversation().Create(conversation); err != nil {
			return fmt.Errorf("failed to create conversation: %w", err)
		}
	} else if err != nil {
		return err
	}

	message := &models.Message{
		ConversationID: conversation.ID,
		Type:           models.MessageTypeText,
		Content:        campaign.MessageContent,
		Direction:      models.DirectionOutbound,
		Status:         models.MessageStatusPending,
		ExtraData:      models.Metadata{"campaign_id": campaign.ID},
	}
	if err := s.repo.Message().Create(message); err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	resp, sendErr := s.waClient.SendText(ctx, recipient, campaign.MessageContent)
	if sendErr != nil {
		errMsg := sendErr.Error()
		if err := s.repo.Message().UpdateStatus(message.ID, models.MessageStatusFailed, nil, &errMsg); err != nil {
			s.logger.Error("Failed to mark campaign message failed",
				zap.String("messageID", message.ID), zap.Error(err))
		}
		s.logger.Error("Failed to send campaign message",
			zap.String("campaignID", campaign.ID),
			zap.String("customerID", customer.ID),
			zap.Error(sendErr))
		return s.recordResult(campaign, "failed_count")
	}

	externalID := resp.MessageID()
	if err := s.repo.Message().UpdateStatus(message.ID, models.MessageStatusSent, &externalID, nil); err != nil {
		return fmt.Errorf("failed to update message status: %w", err)
	}
	if err := s.repo.Conversation().RecordMessage(conversation.ID, time.Now(), false); err != nil {
		s.logger.Warn("Failed to record message on conversation",
			zap.String("conversationID", conversation.ID), zap.Error(err))
	}

	return s.recordResult(campaign, "sent_count")
}

// recordResult bumps the given campaign counter and completes the campaign
// once every recipient is accounted for.
func (s *campaignService) recordResult(campaign *models.Campaign, counter string) error {
	if err := s.repo.Campaign().IncrementCounter(campaign.ID, counter); err != nil {
		return fmt.Errorf("failed to increment %s: %w", counter, err)
	}

	updated, err := s.repo.Campaign().GetByID(campaign.ID)
	if err != nil {
		return err
	}
	if updated.Status == models.CampaignStatusRunning &&
		updated.SentCount+updated.FailedCount >= updated.RecipientCount {
		if err := s.repo.Campaign().MarkCompleted(campaign.ID, time.Now()); err != nil {
			return fmt.Errorf("failed to mark campaign completed: %w", err)
		}
		s.logger.Info("Campaign completed",
			zap.String("campaignID", campaign.ID),
			zap.Int("sent", updated.SentCount),
			zap.Int("failed", updated.FailedCount))
	}
	return nil
}
