package service

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bma-crm/commhub/internal/models"
	"github.com/bma-crm/commhub/internal/repository"
)

type conversationService struct {
	repo   repository.Repository
	logger *zap.Logger
}

func NewConversationService(repo repository.Repository, logger *zap.Logger) ConversationService {
	return &conversationService{repo: repo, logger: logger}
}

func (s *conversationService) Create(input ConversationInput) (*models.ConversationListItem, error) {
	if _, err := s.repo.Customer().GetByID(input.CustomerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// At most one non-closed conversation per customer and channel.
	if _, err := s.repo.Conversation().FindActive(input.CustomerID, input.Channel); err == nil {
		return nil, ErrConversationExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check for active conversation: %w", err)
	}

	conversation := &models.Conversation{
		CustomerID:   input.CustomerID,
		Channel:      input.Channel,
		Status:       models.ConversationStatusOpen,
		Subject:      sql.NullString{String: input.Subject, Valid: input.Subject != ""},
		AssignedToID: sql.NullString{String: input.AssignedToID, Valid: input.AssignedToID != ""},
		Tags:         models.StringList{},
	}
	if err := s.repo.Conversation().Create(conversation); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	return s.repo.Conversation().GetListItem(conversation.ID)
}

func (s *conversationService) Get(id string) (*models.ConversationListItem, error) {
	item, err := s.repo.Conversation().GetListItem(id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return item, err
}

func (s *conversationService) List(filter models.ConversationFilter) ([]*models.ConversationListItem, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.repo.Conversation().List(filter)
}

func (s *conversationService) Update(id string, update ConversationUpdate) (*models.ConversationListItem, error) {
	conversation, err := s.repo.Conversation().GetByID(id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if update.Status != nil && *update.Status != conversation.Status {
		conversation.Status = *update.Status
		if *update.Status == models.ConversationStatusClosed {
			conversation.ClosedAt = sql.NullTime{Time: time.Now(), Valid: true}
		}
	}
	if update.AssignedToID != nil {
		conversation.AssignedToID = sql.NullString{String: *update.AssignedToID, Valid: *update.AssignedToID != ""}
	}
	if update.Subject != nil {
		conversation.Subject = sql.NullString{String: *update.Subject, Valid: *update.Subject != ""}
	}
	if update.Tags != nil {
		conversation.Tags = *update.Tags
	}

	if err := s.repo.Conversation().Update(conversation); err != nil {
		return nil, fmt.Errorf("failed to update conversation: %w", err)
	}
	return s.repo.Conversation().GetListItem(id)
}

func (s *conversationService) Delete(id string) error {
	err := s.repo.Conversation().Delete(id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
