package models

import (
	"database/sql"
	"time"
)

type TemplateStatus string

const (
	TemplateStatusDraft           TemplateStatus = "draft"
	TemplateStatusPendingApproval TemplateStatus = "pending_approval"
	TemplateStatusApproved        TemplateStatus = "approved"
	TemplateStatusRejected        TemplateStatus = "rejected"
)

// Template is a reusable message body, optionally mirroring an approved
// WhatsApp Business template.
type Template struct {
	ID                   string         `db:"id" json:"id"`
	Name                 string         `db:"name" json:"name"`
	Description          sql.NullString `db:"description" json:"description,omitempty"`
	Channel              Channel        `db:"channel" json:"channel"`
	Content              string         `db:"content" json:"content"`
	Subject              sql.NullString `db:"subject" json:"subject,omitempty"`
	Variables            StringList     `db:"variables" json:"variables"`
	WhatsAppTemplateName sql.NullString `db:"whatsapp_template_name" json:"whatsapp_template_name,omitempty"`
	LanguageCode         string         `db:"language_code" json:"language_code"`
	Status               TemplateStatus `db:"status" json:"status"`
	IsActive             bool           `db:"is_active" json:"is_active"`
	Category             sql.NullString `db:"category" json:"category,omitempty"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
}
