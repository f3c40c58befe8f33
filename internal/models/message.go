package models

import (
	"database/sql"
	"time"
)

type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeVideo    MessageType = "video"
	MessageTypeAudio    MessageType = "audio"
	MessageTypeDocument MessageType = "document"
	MessageTypeLocation MessageType = "location"
	MessageTypeTemplate MessageType = "template"
)

type MessageDirection string

const (
	DirectionInbound  MessageDirection = "inbound"
	DirectionOutbound MessageDirection = "outbound"
)

type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "pending"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
	MessageStatusFailed    MessageStatus = "failed"
)

// statusRank orders the delivery lifecycle so that webhook status events
// arriving out of order never move a message backwards.
var statusRank = map[MessageStatus]int{
	MessageStatusPending:   0,
	MessageStatusSent:      1,
	MessageStatusDelivered: 2,
	MessageStatusRead:      3,
	MessageStatusFailed:    4,
}

// CanTransition reports whether a message status may move from one value to
// another. Failed is terminal; the forward chain is pending, sent, delivered,
// read.
func (s MessageStatus) CanTransition(to MessageStatus) bool {
	if s == MessageStatusFailed {
		return false
	}
	if to == MessageStatusFailed {
		return true
	}
	return statusRank[to] > statusRank[s]
}

// Message belongs to exactly one conversation. Immutable once created except
// for status transitions.
type Message struct {
	ID             string           `db:"id" json:"id"`
	ConversationID string           `db:"conversation_id" json:"conversation_id"`
	SenderUserID   sql.NullString   `db:"sender_user_id" json:"sender_user_id,omitempty"`
	Type           MessageType      `db:"type" json:"type"`
	Content        string           `db:"content" json:"content"`
	MediaURL       sql.NullString   `db:"media_url" json:"media_url,omitempty"`
	Direction      MessageDirection `db:"direction" json:"direction"`
	Status         MessageStatus    `db:"status" json:"status"`
	ExternalID     sql.NullString   `db:"external_id" json:"external_id,omitempty"`
	TemplateName   sql.NullString   `db:"template_name" json:"template_name,omitempty"`
	ErrorMessage   sql.NullString   `db:"error_message" json:"error_message,omitempty"`
	ExtraData      Metadata         `db:"extra_data" json:"extra_data,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// MessageStats aggregates outbound delivery counters for analytics.
type MessageStats struct {
	TotalSent      int64 `db:"total_sent" json:"total_sent"`
	TotalDelivered int64 `db:"total_delivered" json:"total_delivered"`
	TotalFailed    int64 `db:"total_failed" json:"total_failed"`
}
