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

// externalIDKey builds the Redis key mapping a provider message id to ours,
// so webhook status updates avoid a table scan.
func externalIDKey(externalID string) string {
	return "wamid:" + externalID
}

const externalIDTTL = 7 * 24 * time.Hour

type messageService struct {
	repo           repository.Repository
	redisClient    *redis.Client
	waClient       *whatsapp.Client
	circuitBreaker *CircuitBreaker
	logger         *zap.Logger
}

func NewMessageService(
	cfg *config.Config,
	repo repository.Repository,
	redisClient *redis.Client,
	waClient *whatsapp.Client,
	logger *zap.Logger,
) MessageService {
	return &messageService{
		repo:           repo,
		redisClient:    redisClient,
		waClient:       waClient,
		circuitBreaker: NewCircuitBreaker(&cfg.WhatsApp.CircuitBreaker, logger),
		logger:         logger,
	}
}

func (s *messageService) Send(input SendMessageInput) (*models.Message, error) {
	conversation, err := s.repo.Conversation().GetByID(input.ConversationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if conversation.Channel != models.ChannelWhatsApp {
		return nil, ErrChannelNotSupported
	}

	customer, err := s.repo.Customer().GetByID(conversation.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}
	recipient := recipientAddress(customer)
	if recipient == "" {
		return nil, ErrNoRecipientAddress
	}

	messageType := input.Type
	if messageType == "" {
		messageType = models.MessageTypeText
	}

	message := &models.Message{
		ConversationID: conversation.ID,
		SenderUserID:   sql.NullString{String: input.SenderUserID, Valid: input.SenderUserID != ""},
		Type:           messageType,
		Content:        input.Content,
		MediaURL:       sql.NullString{String: input.MediaURL, Valid: input.MediaURL != ""},
		Direction:      models.DirectionOutbound,
		Status:         models.MessageStatusPending,
	}
	if err := s.repo.Message().Create(message); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	var externalID string
	sendErr := s.circuitBreaker.Execute(context.Background(), func() error {
		resp, err := s.waClient.SendText(context.Background(), recipient, input.Content)
		if err != nil {
			return err
		}
		externalID = resp.MessageID()
		return nil
	})

	if sendErr != nil {
		errMsg := sendErr.Error()
		if err := s.repo.Message().UpdateStatus(message.ID, models.MessageStatusFailed, nil, &errMsg); err != nil {
			s.logger.Error("Failed to mark message failed", zap.String("messageID", message.ID), zap.Error(err))
		}
		message.Status = models.MessageStatusFailed
		message.ErrorMessage = sql.NullString{String: errMsg, Valid: true}

		requests, failures := s.circuitBreaker.GetCounts()
		s.logger.Error("Failed to send message",
			zap.String("messageID", message.ID),
			zap.Error(sendErr),
			zap.String("circuitBreakerState", string(s.circuitBreaker.GetState())),
			zap.Uint32("totalRequests", requests),
			zap.Uint32("totalFailures", failures))
		return message, nil
	}

	if err := s.repo.Message().UpdateStatus(message.ID, models.MessageStatusSent, &externalID, nil); err != nil {
		return nil, fmt.Errorf("failed to update message status: %w", err)
	}
	message.Status = models.MessageStatusSent
	message.ExternalID = sql.NullString{String: externalID, Valid: externalID != ""}

	s.cacheExternalID(externalID, message.ID)
	s.recordOutbound(conversation, input.SenderUserID)

	s.logger.Info("Message sent",
		zap.String("messageID", message.ID),
		zap.String("externalMessageID", externalID))
	return message, nil
}

// recordOutbound bumps the conversation activity timestamp and assigns the
// conversation to the sending agent when nobody holds it yet.
func (s *messageService) recordOutbound(conversation *models.Conversation, senderUserID string) {
	if err := s.repo.Conversation().RecordMessage(conversation.ID, time.Now(), false); err != nil {
		s.logger.Warn("Failed to record message on conversation",
			zap.String("conversationID", conversation.ID), zap.Error(err))
	}

	if !conversation.AssignedToID.Valid && senderUserID != "" {
		conversation.AssignedToID = sql.NullString{String: senderUserID, Valid: true}
		if err := s.repo.Conversation().Update(conversation); err != nil {
			s.logger.Warn("Failed to auto-assign conversation",
				zap.String("conversationID", conversation.ID), zap.Error(err))
		}
	}
}

func (s *messageService) cacheExternalID(externalID, messageID string) {
	if externalID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.redisClient.Set(ctx, externalIDKey(externalID), messageID, externalIDTTL).Err(); err != nil {
		s.logger.Warn("Failed to cache external message id",
			zap.String("externalID", externalID), zap.Error(err))
	}
}

// ListByConversation returns the transcript oldest-first. Opening a
// conversation counts as reading it: inbound messages flip to read and the
// unread counter resets.
func (s *messageService) ListByConversation(conversationID string, skip, limit int) ([]*models.Message, error) {
	if _, err := s.repo.Conversation().GetByID(conversationID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	messages, err := s.repo.Message().ListByConversation(conversationID, skip, limit)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.Message().MarkConversationRead(conversationID); err != nil {
		s.logger.Warn("Failed to mark conversation read", zap.String("conversationID", conversationID), zap.Error(err))
	} else if err := s.repo.Conversation().ResetUnread(conversationID); err != nil {
		s.logger.Warn("Failed to reset unread count", zap.String("conversationID", conversationID), zap.Error(err))
	}

	return messages, nil
}

func (s *messageService) MarkRead(messageID string) error {
	message, err := s.repo.Message().GetByID(messageID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if message.Direction != models.DirectionInbound {
		return ErrInvalidTransition
	}
	if message.Status == models.MessageStatusRead {
		return nil
	}
	if !message.Status.CanTransition(models.MessageStatusRead) {
		return ErrInvalidTransition
	}

	if err := s.repo.Message().UpdateStatus(messageID, models.MessageStatusRead, nil, nil); err != nil {
		return fmt.Errorf("failed to update message status: %w", err)
	}

	// Provider read receipt is best effort: the customer seeing blue ticks is
	// cosmetic, our own state is what matters.
	if message.ExternalID.Valid {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.waClient.MarkRead(ctx, message.ExternalID.String); err != nil {
			s.logger.Warn("Failed to send provider read receipt",
				zap.String("messageID", messageID), zap.Error(err))
		}
	}
	return nil
}

func (s *messageService) BreakerStatus() (BreakerState, uint32, uint32) {
	state := s.circuitBreaker.GetState()
	requests, failures := s.circuitBreaker.GetCounts()
	return state, requests, failures
}

// recipientAddress picks the WhatsApp address for a customer.
func recipientAddress(customer *models.Customer) string {
	if customer.WhatsAppID.Valid && customer.WhatsAppID.String != "" {
		return customer.WhatsAppID.String
	}
	if customer.Phone.Valid {
		return customer.Phone.String
	}
	return ""
}
