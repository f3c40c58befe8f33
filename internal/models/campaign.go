package models

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"database/sql/driver"
)

type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusScheduled CampaignStatus = "scheduled"
	CampaignStatusRunning   CampaignStatus = "running"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusFailed    CampaignStatus = "failed"
)

// campaignTransitions lists the allowed lifecycle moves.
var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignStatusDraft:     {CampaignStatusScheduled, CampaignStatusRunning},
	CampaignStatusScheduled: {CampaignStatusDraft, CampaignStatusRunning},
	CampaignStatusRunning:   {CampaignStatusPaused, CampaignStatusCompleted, CampaignStatusFailed},
	CampaignStatusPaused:    {CampaignStatusRunning},
}

// CanTransition reports whether the campaign may move to the given status.
func (s CampaignStatus) CanTransition(to CampaignStatus) bool {
	for _, next := range campaignTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsEditable reports whether campaign fields may still be modified.
func (s CampaignStatus) IsEditable() bool {
	return s == CampaignStatusDraft || s == CampaignStatusScheduled
}

// SegmentFilters is the stored form of a SegmentFilter.
type SegmentFilters SegmentFilter

func (f SegmentFilters) Value() (driver.Value, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal segment filters: %w", err)
	}
	return string(b), nil
}

func (f *SegmentFilters) Scan(src interface{}) error {
	if src == nil {
		*f = SegmentFilters{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into SegmentFilters", src)
	}
	return json.Unmarshal(data, f)
}

// Campaign is a broadcast over a tag-filtered contact segment. The recipient
// set is resolved from SegmentFilters when the campaign is sent, so
// RecipientCount is only an estimate until then.
type Campaign struct {
	ID             string         `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	Description    sql.NullString `db:"description" json:"description,omitempty"`
	Channel        Channel        `db:"channel" json:"channel"`
	TemplateID     sql.NullString `db:"template_id" json:"template_id,omitempty"`
	MessageContent string         `db:"message_content" json:"message_content"`
	Status         CampaignStatus `db:"status" json:"status"`
	ScheduledAt    sql.NullTime   `db:"scheduled_at" json:"scheduled_at,omitempty"`
	StartedAt      sql.NullTime   `db:"started_at" json:"started_at,omitempty"`
	CompletedAt    sql.NullTime   `db:"completed_at" json:"completed_at,omitempty"`
	SegmentFilters SegmentFilters `db:"segment_filters" json:"segment_filters"`
	RecipientCount int            `db:"recipient_count" json:"recipient_count"`
	SentCount      int            `db:"sent_count" json:"sent_count"`
	DeliveredCount int            `db:"delivered_count" json:"delivered_count"`
	ReadCount      int            `db:"read_count" json:"read_count"`
	FailedCount    int            `db:"failed_count" json:"failed_count"`
	CreatedByID    string         `db:"created_by_id" json:"created_by_id"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}
