package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bma-crm/commhub/internal/models"
)

type messageRepository struct {
	db *sqlx.DB
}

func NewMessageRepository(db *sqlx.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(message *models.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	now := time.Now()
	message.CreatedAt = now
	message.UpdatedAt = now
	if message.Status == "" {
		message.Status = models.MessageStatusPending
	}
	if message.Type == "" {
		message.Type = models.MessageTypeText
	}
	if message.ExtraData == nil {
		message.ExtraData = models.Metadata{}
	}

	query := `
		INSERT INTO messages (id, conversation_id, sender_user_id, type, content, media_url, direction, status, external_id, template_name, error_message, extra_data, created_at, updated_at)
		VALUES (:id, :conversation_id, :sender_user_id, :type, :content, :media_url, :direction, :status, :external_id, :template_name, :error_message, :extra_data, :created_at, :updated_at)
	`
	if _, err := r.db.NamedExec(query, message); err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *messageRepository) GetByID(id string) (*models.Message, error) {
	var message models.Message
	err := r.db.Get(&message, `SELECT * FROM messages WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &message, nil
}

func (r *messageRepository) GetByExternalID(externalID string) (*models.Message, error) {
	var message models.Message
	err := r.db.Get(&message, `SELECT * FROM messages WHERE external_id = $1`, externalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message by external id: %w", err)
	}
	return &message, nil
}

// ListByConversation returns messages ordered by creation time ascending.
func (r *messageRepository) ListByConversation(conversationID string, skip, limit int) ([]*models.Message, error) {
	query := `
		SELECT * FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`
	var messages []*models.Message
	if err := r.db.Select(&messages, query, conversationID, limit, skip); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

func (r *messageRepository) LatestByConversation(conversationID string) (*models.Message, error) {
	var message models.Message
	query := `
		SELECT * FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	err := r.db.Get(&message, query, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest message: %w", err)
	}
	return &message, nil
}

// UpdateStatus applies a status transition. External id and error message are
// only written when provided; the message body itself is immutable.
func (r *messageRepository) UpdateStatus(id string, status models.MessageStatus, externalID, errorMsg *string) error {
	query := `
		UPDATE messages
		SET status = $2,
		    external_id = COALESCE($3, external_id),
		    error_message = COALESCE($4, error_message),
		    updated_at = $5
		WHERE id = $1
	`

	var extID sql.NullString
	if externalID != nil {
		extID = sql.NullString{String: *externalID, Valid: true}
	}
	var errMsg sql.NullString
	if errorMsg != nil {
		errMsg = sql.NullString{String: *errorMsg, Valid: true}
	}

	result, err := r.db.Exec(query, id, status, extID, errMsg, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update message status: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *messageRepository) MarkConversationRead(conversationID string) (int64, error) {
	query := `
		UPDATE messages
		SET status = $2, updated_at = $3
		WHERE conversation_id = $1 AND direction = $4 AND status <> $2
	`
	result, err := r.db.Exec(query, conversationID, models.MessageStatusRead, time.Now(), models.DirectionInbound)
	if err != nil {
		return 0, fmt.Errorf("failed to mark conversation read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return rows, nil
}

func (r *messageRepository) Stats() (*models.MessageStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status IN ($1, $2, $3)) AS total_sent,
			COUNT(*) FILTER (WHERE status IN ($2, $3)) AS total_delivered,
			COUNT(*) FILTER (WHERE status = $4) AS total_failed
		FROM messages
		WHERE direction = $5
	`
	var stats models.MessageStats
	err := r.db.Get(&stats, query,
		models.MessageStatusSent, models.MessageStatusDelivered, models.MessageStatusRead,
		models.MessageStatusFailed, models.DirectionOutbound)
	if err != nil {
		return nil, fmt.Errorf("failed to get message stats: %w", err)
	}
	return &stats, nil
}
