package models

import (
	"database/sql"
	"time"
)

// Customer is a contact correlated to one or more channel addresses.
// Created on first inbound message when no matching address exists.
type Customer struct {
	ID         string         `db:"id" json:"id"`
	Name       string         `db:"name" json:"name"`
	Phone      sql.NullString `db:"phone" json:"phone,omitempty"`
	Email      sql.NullString `db:"email" json:"email,omitempty"`
	WhatsAppID sql.NullString `db:"whatsapp_id" json:"whatsapp_id,omitempty"`
	LineUserID sql.NullString `db:"line_user_id" json:"line_user_id,omitempty"`
	Language   string         `db:"language" json:"language"`
	Timezone   string         `db:"timezone" json:"timezone"`
	IsActive   bool           `db:"is_active" json:"is_active"`
	OptOut     bool           `db:"opt_out" json:"opt_out"`
	Tags       StringList     `db:"tags" json:"tags"`
	Notes      sql.NullString `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
}

// TagCount is one tag with the number of customers carrying it.
type TagCount struct {
	Tag   string `db:"tag" json:"name"`
	Count int    `db:"count" json:"contact_count"`
}

// SegmentFilter selects campaign recipients. Applied at send time, never
// snapshotted, so the matching set can drift between creation and send.
type SegmentFilter struct {
	Tags        []string `json:"tags,omitempty"`
	HasWhatsApp bool     `json:"has_whatsapp,omitempty"`
}
