package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bma-crm/commhub/internal/models"
)

type conversationRepository struct {
	db *sqlx.DB
}

func NewConversationRepository(db *sqlx.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Create(conversation *models.Conversation) error {
	if conversation.ID == "" {
		conversation.ID = uuid.New().String()
	}
	now := time.Now()
	conversation.CreatedAt = now
	conversation.UpdatedAt = now
	if conversation.LastMessageAt.IsZero() {
		conversation.LastMessageAt = now
	}
	if conversation.Status == "" {
		conversation.Status = models.ConversationStatusOpen
	}

	query := `
		INSERT INTO conversations (id, customer_id, assigned_to_id, channel, status, unread_count, subject, tags, last_message_at, created_at, updated_at)
		VALUES (:id, :customer_id, :assigned_to_id, :channel, :status, :unread_count, :subject, :tags, :last_message_at, :created_at, :updated_at)
	`
	if _, err := r.db.NamedExec(query, conversation); err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

func (r *conversationRepository) GetByID(id string) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.Get(&conversation, `SELECT * FROM conversations WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conversation, nil
}

// listItemQuery joins conversations with customer identity, assignee name and
// the newest message preview.
const listItemQuery = `
	SELECT c.*,
	       cu.name AS customer_name,
	       cu.phone AS customer_phone,
	       COALESCE(u.full_name, u.username) AS assigned_to_name,
	       lm.content AS last_message_preview
	FROM conversations c
	JOIN customers cu ON cu.id = c.customer_id
	LEFT JOIN users u ON u.id = c.assigned_to_id
	LEFT JOIN LATERAL (
		SELECT content FROM messages m
		WHERE m.conversation_id = c.id
		ORDER BY m.created_at DESC
		LIMIT 1
	) lm ON TRUE
`

func (r *conversationRepository) GetListItem(id string) (*models.ConversationListItem, error) {
	var item models.ConversationListItem
	err := r.db.Get(&item, listItemQuery+` WHERE c.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation list item: %w", err)
	}
	return &item, nil
}

func (r *conversationRepository) FindActive(customerID string, channel models.Channel) (*models.Conversation, error) {
	var conversation models.Conversation
	query := `
		SELECT * FROM conversations
		WHERE customer_id = $1 AND channel = $2 AND status <> $3
		ORDER BY created_at DESC
		LIMIT 1
	`
	err := r.db.Get(&conversation, query, customerID, channel, models.ConversationStatusClosed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active conversation: %w", err)
	}
	return &conversation, nil
}

func (r *conversationRepository) List(filter models.ConversationFilter) ([]*models.ConversationListItem, error) {
	var (
		conds []string
		args  []interface{}
	)

	if filter.Channel != "" {
		args = append(args, filter.Channel)
		conds = append(conds, fmt.Sprintf("c.channel = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("c.status = $%d", len(args)))
	} else {
		// Archived conversations are hidden unless asked for explicitly.
		args = append(args, models.ConversationStatusArchived)
		conds = append(conds, fmt.Sprintf("c.status <> $%d", len(args)))
	}
	if filter.AssignedToID != "" {
		args = append(args, filter.AssignedToID)
		conds = append(conds, fmt.Sprintf("c.assigned_to_id = $%d", len(args)))
	}
	if filter.Unassigned {
		conds = append(conds, "c.assigned_to_id IS NULL")
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		p := "$" + strconv.Itoa(len(args))
		conds = append(conds, fmt.Sprintf("(cu.name ILIKE %s OR cu.phone ILIKE %s OR cu.email ILIKE %s)", p, p, p))
	}

	query := listItemQuery
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY c.last_message_at DESC"

	args = append(args, filter.Limit)
	query += " LIMIT $" + strconv.Itoa(len(args))
	args = append(args, filter.Skip)
	query += " OFFSET $" + strconv.Itoa(len(args))

	var items []*models.ConversationListItem
	if err := r.db.Select(&items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return items, nil
}

func (r *conversationRepository) Update(conversation *models.Conversation) error {
	conversation.UpdatedAt = time.Now()

	query := `
		UPDATE conversations
		SET assigned_to_id = :assigned_to_id,
		    status = :status,
		    unread_count = :unread_count,
		    subject = :subject,
		    tags = :tags,
		    closed_at = :closed_at,
		    updated_at = :updated_at
		WHERE id = :id
	`
	result, err := r.db.NamedExec(query, conversation)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *conversationRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *conversationRepository) RecordMessage(id string, at time.Time, inbound bool) error {
	query := `
		UPDATE conversations
		SET last_message_at = $2,
		    unread_count = unread_count + CASE WHEN $3 THEN 1 ELSE 0 END,
		    updated_at = $2
		WHERE id = $1
	`
	_, err := r.db.Exec(query, id, at, inbound)
	if err != nil {
		return fmt.Errorf("failed to record message on conversation: %w", err)
	}
	return nil
}

func (r *conversationRepository) ResetUnread(id string) error {
	_, err := r.db.Exec(`UPDATE conversations SET unread_count = 0, updated_at = $2 WHERE id = $1`, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to reset unread count: %w", err)
	}
	return nil
}

func (r *conversationRepository) CountSince(t time.Time) (int64, error) {
	var count int64
	if err := r.db.Get(&count, `SELECT COUNT(*) FROM conversations WHERE created_at >= $1`, t); err != nil {
		return 0, fmt.Errorf("failed to count conversations: %w", err)
	}
	return count, nil
}

func (r *conversationRepository) CountActive() (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM conversations WHERE status IN ($1, $2)`
	if err := r.db.Get(&count, query, models.ConversationStatusOpen, models.ConversationStatusPending); err != nil {
		return 0, fmt.Errorf("failed to count active conversations: %w", err)
	}
	return count, nil
}
