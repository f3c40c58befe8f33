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

type campaignRepository struct {
	db *sqlx.DB
}

func NewCampaignRepository(db *sqlx.DB) CampaignRepository {
	return &campaignRepository{db: db}
}

// counterColumns whitelists the counter fields IncrementCounter may touch.
var counterColumns = map[string]bool{
	"sent_count":      true,
	"delivered_count": true,
	"read_count":      true,
	"failed_count":    true,
}

func (r *campaignRepository) Create(campaign *models.Campaign) error {
	if campaign.ID == "" {
		campaign.ID = uuid.New().String()
	}
	now := time.Now()
	campaign.CreatedAt = now
	campaign.UpdatedAt = now
	if campaign.Status == "" {
		campaign.Status = models.CampaignStatusDraft
	}

	query := `
		INSERT INTO campaigns (id, name, description, channel, template_id, message_content, status, scheduled_at, segment_filters, recipient_count, sent_count, delivered_count, read_count, failed_count, created_by_id, created_at, updated_at)
		VALUES (:id, :name, :description, :channel, :template_id, :message_content, :status, :scheduled_at, :segment_filters, :recipient_count, :sent_count, :delivered_count, :read_count, :failed_count, :created_by_id, :created_at, :updated_at)
	`
	if _, err := r.db.NamedExec(query, campaign); err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

func (r *campaignRepository) GetByID(id string) (*models.Campaign, error) {
	var campaign models.Campaign
	err := r.db.Get(&campaign, `SELECT * FROM campaigns WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return &campaign, nil
}

func (r *campaignRepository) List(status models.CampaignStatus, skip, limit int) ([]*models.Campaign, error) {
	var (
		campaigns []*models.Campaign
		err       error
	)
	if status != "" {
		query := `SELECT * FROM campaigns WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		err = r.db.Select(&campaigns, query, status, limit, skip)
	} else {
		query := `SELECT * FROM campaigns ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		err = r.db.Select(&campaigns, query, limit, skip)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return campaigns, nil
}

func (r *campaignRepository) Update(campaign *models.Campaign) error {
	campaign.UpdatedAt = time.Now()

	query := `
		UPDATE campaigns
		SET name = :name,
		    description = :description,
		    channel = :channel,
		    template_id = :template_id,
		    message_content = :message_content,
		    status = :status,
		    scheduled_at = :scheduled_at,
		    segment_filters = :segment_filters,
		    recipient_count = :recipient_count,
		    updated_at = :updated_at
		WHERE id = :id
	`
	result, err := r.db.NamedExec(query, campaign)
	if err != nil {
		return fmt.Errorf("failed to update campaign: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *campaignRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *campaignRepository) SetStatus(id string, status models.CampaignStatus) error {
	result, err := r.db.Exec(`UPDATE campaigns SET status = $2, updated_at = $3 WHERE id = $1`, id, status, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set campaign status: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *campaignRepository) MarkStarted(id string, at time.Time) error {
	query := `UPDATE campaigns SET status = $2, started_at = $3, updated_at = $3 WHERE id = $1`
	result, err := r.db.Exec(query, id, models.CampaignStatusRunning, at)
	if err != nil {
		return fmt.Errorf("failed to mark campaign started: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *campaignRepository) MarkCompleted(id string, at time.Time) error {
	query := `UPDATE campaigns SET status = $2, completed_at = $3, updated_at = $3 WHERE id = $1`
	result, err := r.db.Exec(query, id, models.CampaignStatusCompleted, at)
	if err != nil {
		return fmt.Errorf("failed to mark campaign completed: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *campaignRepository) IncrementCounter(id string, counter string) error {
	if !counterColumns[counter] {
		return fmt.Errorf("unknown campaign counter %q", counter)
	}
	query := fmt.Sprintf(`UPDATE campaigns SET %s = %s + 1, updated_at = $2 WHERE id = $1`, counter, counter)
	result, err := r.db.Exec(query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to increment campaign counter: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *campaignRepository) DispatchedCustomerIDs(campaignID string) ([]string, error) {
	query := `
		SELECT DISTINCT c.customer_id
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE m.extra_data->>'campaign_id' = $1
	`
	var ids []string
	if err := r.db.Select(&ids, query, campaignID); err != nil {
		return nil, fmt.Errorf("failed to list dispatched customers: %w", err)
	}
	return ids, nil
}

func (r *campaignRepository) ListDue(now time.Time) ([]*models.Campaign, error) {
	query := `
		SELECT * FROM campaigns
		WHERE status = $1 AND scheduled_at IS NOT NULL AND scheduled_at <= $2
		ORDER BY scheduled_at ASC
	`
	var campaigns []*models.Campaign
	if err := r.db.Select(&campaigns, query, models.CampaignStatusScheduled, now); err != nil {
		return nil, fmt.Errorf("failed to list due campaigns: %w", err)
	}
	return campaigns, nil
}

func (r *campaignRepository) CountByStatus(status models.CampaignStatus) (int64, error) {
	var count int64
	if err := r.db.Get(&count, `SELECT COUNT(*) FROM campaigns WHERE status = $1`, status); err != nil {
		return 0, fmt.Errorf("failed to count campaigns: %w", err)
	}
	return count, nil
}
