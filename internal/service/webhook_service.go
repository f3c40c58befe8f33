package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/bma-crm/commhub/internal/config"
	"github.com/bma-crm/commhub/internal/models"
	"github.com/bma-crm/commhub/internal/repository"
	"github.com/bma-crm/commhub/internal/whatsapp"
)

// dedupTTL keeps seen webhook event ids long enough to cover Meta's retry
// window.
const dedupTTL = 24 * time.Hour

func dedupKey(externalID string) string {
	return "webhook:seen:" + externalID
}

type webhookService struct {
	repo        repository.Repository
	redisClient *redis.Client
	verifyToken string
	logger      *zap.Logger
}

func NewWebhookService(
	cfg *config.Config,
	repo repository.Repository,
	redisClient *redis.Client,
	logger *zap.Logger,
) WebhookService {
	return &webhookService{
		repo:        repo,
		redisClient: redisClient,
		verifyToken: cfg.WhatsApp.VerifyToken,
		logger:      logger,
	}
}

func (s *webhookService) VerifySubscription(mode, token, challenge string) (string, error) {
	return whatsapp.VerifyChallenge(mode, token, challenge, s.verifyToken)
}

func (s *webhookService) Process(payload *whatsapp.WebhookPayload) {
	for _, inbound := range whatsapp.ParseMessages(payload) {
		if err := s.ingestMessage(inbound); err != nil {
			s.logger.Error("Failed to ingest inbound message",
				zap.String("externalID", inbound.ExternalID), zap.Error(err))
		}
	}
	for _, update := range whatsapp.ParseStatuses(payload) {
		if err := s.applyStatus(update); err != nil {
			s.logger.Error("Failed to apply status update",
				zap.String("externalID", update.ExternalID), zap.Error(err))
		}
	}
}

// ingestMessage stores one inbound message, creating the customer and
// conversation on first contact. Redeliveries of the same provider message id
// are dropped.
func (s *webhookService) ingestMessage(inbound whatsapp.InboundMessage) error {
	if s.alreadySeen(inbound.ExternalID) {
		return nil
	}
	if _, err := s.repo.Message().GetByExternalID(inbound.ExternalID); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	customer, err := s.resolveCustomer(inbound)
	if err != nil {
		return err
	}

	conversation, err := s.repo.Conversation().FindActive(customer.ID, models.ChannelWhatsApp)
	if errors.Is(err, repository.ErrNotFound) {
		conversation = &models.Conversation{
			CustomerID: customer.ID,
			Channel:    models.ChannelWhatsApp,
			Status:     models.ConversationStatusOpen,
			Tags:       models.StringList{},
		}
		if err := s.repo.Conversation().Create(conversation); err != nil {
			return fmt.Errorf("failed to create conversation: %w", err)
		}
	} else if err != nil {
		return err
	}

	messageType := models.MessageType(inbound.Type)
	switch messageType {
	case models.MessageTypeText, models.MessageTypeImage, models.MessageTypeVideo,
		models.MessageTypeAudio, models.MessageTypeDocument, models.MessageTypeLocation:
	default:
		messageType = models.MessageTypeText
	}

	message := &models.Message{
		ConversationID: conversation.ID,
		Type:           messageType,
		Content:        inbound.Content,
		MediaURL:       sql.NullString{String: inbound.MediaURL, Valid: inbound.MediaURL != ""},
		Direction:      models.DirectionInbound,
		Status:         models.MessageStatusDelivered,
		ExternalID:     sql.NullString{String: inbound.ExternalID, Valid: true},
	}
	if err := s.repo.Message().Create(message); err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	if err := s.repo.Conversation().RecordMessage(conversation.ID, inbound.Timestamp, true); err != nil {
		s.logger.Warn("Failed to record message on conversation",
			zap.String("conversationID", conversation.ID), zap.Error(err))
	}

	s.logger.Info("Inbound message ingested",
		zap.String("messageID", message.ID),
		zap.String("customerID", customer.ID),
		zap.String("conversationID", conversation.ID))
	return nil
}

// resolveCustomer finds the contact by WhatsApp id, falling back to phone,
// and creates one named after the profile when no match exists.
func (s *webhookService) resolveCustomer(inbound whatsapp.InboundMessage) (*models.Customer, error) {
	customer, err := s.repo.Customer().GetByWhatsAppID(inbound.FromPhone)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	customer, err = s.repo.Customer().GetByPhone(inbound.FromPhone)
	if err == nil {
		// Backfill the WhatsApp id so the next lookup is direct.
		if !customer.WhatsAppID.Valid {
			customer.WhatsAppID = sql.NullString{String: inbound.FromPhone, Valid: true}
			if err := s.repo.Customer().Update(customer); err != nil {
				s.logger.Warn("Failed to backfill whatsapp id",
					zap.String("customerID", customer.ID), zap.Error(err))
			}
		}
		return customer, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	name := inbound.FromName
	if name == "" {
		name = inbound.FromPhone
	}
	customer = &models.Customer{
		Name:       name,
		Phone:      sql.NullString{String: inbound.FromPhone, Valid: true},
		WhatsAppID: sql.NullString{String: inbound.FromPhone, Valid: true},
		Language:   "en",
		Timezone:   "Asia/Bangkok",
		IsActive:   true,
		Tags:       models.StringList{},
	}
	if err := s.repo.Customer().Create(customer); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	s.logger.Info("Customer created from inbound message",
		zap.String("customerID", customer.ID), zap.String("phone", inbound.FromPhone))
	return customer, nil
}

// applyStatus maps a delivery receipt onto our message. Receipts arriving out
// of order never move the status backwards.
func (s *webhookService) applyStatus(update whatsapp.StatusUpdate) error {
	var newStatus models.MessageStatus
	switch update.Status {
	case "sent":
		newStatus = models.MessageStatusSent
	case "delivered":
		newStatus = models.MessageStatusDelivered
	case "read":
		newStatus = models.MessageStatusRead
	case "failed":
		newStatus = models.MessageStatusFailed
	default:
		s.logger.Warn("Unknown delivery status", zap.String("status", update.Status))
		return nil
	}

	message, err := s.lookupByExternalID(update.ExternalID)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("Status update for unknown message",
			zap.String("externalID", update.ExternalID))
		return nil
	}
	if err != nil {
		return err
	}

	if !message.Status.CanTransition(newStatus) {
		return nil
	}

	var errMsg *string
	if update.ErrorMessage != "" {
		errMsg = &update.ErrorMessage
	}
	if err := s.repo.Message().UpdateStatus(message.ID, newStatus, nil, errMsg); err != nil {
		return fmt.Errorf("failed to update message status: %w", err)
	}

	s.logger.Info("Message status updated",
		zap.String("messageID", message.ID),
		zap.String("status", string(newStatus)))
	return nil
}

// lookupByExternalID resolves a provider message id, trying the Redis mapping
// first and falling back to the database.
func (s *webhookService) lookupByExternalID(externalID string) (*models.Message, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if messageID, err := s.redisClient.Get(ctx, externalIDKey(externalID)).Result(); err == nil {
		message, err := s.repo.Message().GetByID(messageID)
		if err == nil {
			return message, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	} else if !errors.Is(err, redis.Nil) {
		s.logger.Warn("Failed to read external id cache",
			zap.String("externalID", externalID), zap.Error(err))
	}

	return s.repo.Message().GetByExternalID(externalID)
}

func (s *webhookService) alreadySeen(externalID string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	set, err := s.redisClient.SetNX(ctx, dedupKey(externalID), 1, dedupTTL).Result()
	if err != nil {
		// Redis being down must not drop inbound messages; the database
		// external id check still dedupes.
		s.logger.Warn("Failed to check webhook dedup key",
			zap.String("externalID", externalID), zap.Error(err))
		return false
	}
	return !set
}
