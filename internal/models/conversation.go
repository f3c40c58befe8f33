package models

import (
	"database/sql"
	"time"
)

type ConversationStatus string

const (
	ConversationStatusOpen     ConversationStatus = "open"
	ConversationStatusPending  ConversationStatus = "pending"
	ConversationStatusClosed   ConversationStatus = "closed"
	ConversationStatusArchived ConversationStatus = "archived"
)

type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelLine     Channel = "line"
	ChannelEmail    Channel = "email"
)

// Conversation groups messages with one customer on one channel. At most one
// non-closed conversation exists per (customer, channel) pair.
type Conversation struct {
	ID           string             `db:"id" json:"id"`
	CustomerID   string             `db:"customer_id" json:"customer_id"`
	AssignedToID sql.NullString     `db:"assigned_to_id" json:"assigned_to_id,omitempty"`
	Channel      Channel            `db:"channel" json:"channel"`
	Status       ConversationStatus `db:"status" json:"status"`
	UnreadCount  int                `db:"unread_count" json:"unread_count"`
	Subject      sql.NullString     `db:"subject" json:"subject,omitempty"`
	Tags         StringList         `db:"tags" json:"tags"`
	LastMessageAt time.Time         `db:"last_message_at" json:"last_message_at"`
	ClosedAt     sql.NullTime       `db:"closed_at" json:"closed_at,omitempty"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `db:"updated_at" json:"updated_at"`
}

// ConversationListItem is a conversation row joined with customer identity and
// the latest message preview, as the inbox list renders it.
type ConversationListItem struct {
	Conversation
	CustomerName       string         `db:"customer_name" json:"customer_name"`
	CustomerPhone      sql.NullString `db:"customer_phone" json:"customer_phone,omitempty"`
	AssignedToName     sql.NullString `db:"assigned_to_name" json:"assigned_to_name,omitempty"`
	LastMessagePreview sql.NullString `db:"last_message_preview" json:"last_message_preview,omitempty"`
}

// ConversationFilter narrows the inbox listing.
type ConversationFilter struct {
	Channel      Channel
	Status       ConversationStatus
	AssignedToID string
	Unassigned   bool
	Search       string
	Skip         int
	Limit        int
}
