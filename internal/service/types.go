package service

import (
	"time"

	"github.com/bma-crm/commhub/internal/models"
)

// BreakerState mirrors the gobreaker states in wire-friendly form.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerHalfOpen BreakerState = "half_open"
	BreakerOpen     BreakerState = "open"
)

type ComponentStatus string

const (
	ComponentConnected    ComponentStatus = "connected"
	ComponentDisconnected ComponentStatus = "disconnected"
)

type OverallStatus string

const (
	StatusHealthy   OverallStatus = "healthy"
	StatusDegraded  OverallStatus = "degraded"
	StatusUnhealthy OverallStatus = "unhealthy"
)

// HealthStatus is the aggregate view reported by GET /health.
type HealthStatus struct {
	Status               OverallStatus   `json:"status"`
	DatabaseStatus       ComponentStatus `json:"database_status"`
	RedisStatus          ComponentStatus `json:"redis_status"`
	BrokerStatus         ComponentStatus `json:"broker_status"`
	SchedulerRunning     bool            `json:"scheduler_running"`
	CircuitBreakerState  BreakerState    `json:"circuit_breaker_state"`
	CircuitBreakerStatus string          `json:"circuit_breaker_status,omitempty"`
}

// TokenPair is what a successful login or refresh returns.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// RegisterInput carries a new operator account request.
type RegisterInput struct {
	Email    string
	Username string
	FullName string
	Password string
	Role     models.UserRole
}

// CustomerInput carries contact create/update fields.
type CustomerInput struct {
	Name       string
	Phone      string
	Email      string
	WhatsAppID string
	LineUserID string
	Language   string
	Timezone   string
	Tags       []string
	Notes      string
}

// ImportSummary reports the outcome of a CSV contact import.
type ImportSummary struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// ConversationInput carries conversation create fields.
type ConversationInput struct {
	CustomerID   string
	Channel      models.Channel
	Subject      string
	AssignedToID string
}

// ConversationUpdate carries the mutable conversation fields; nil means keep.
type ConversationUpdate struct {
	Status       *models.ConversationStatus
	AssignedToID *string
	Subject      *string
	Tags         *[]string
}

// SendMessageInput carries an operator-initiated outbound message.
type SendMessageInput struct {
	ConversationID string
	SenderUserID   string
	Type           models.MessageType
	Content        string
	MediaURL       string
}

// CampaignInput carries campaign create/update fields.
type CampaignInput struct {
	Name           string
	Description    string
	Channel        models.Channel
	TemplateID     string
	MessageContent string
	ScheduledAt    *time.Time
	SegmentFilters models.SegmentFilter
	CreatedByID    string
}

// QuotationItemInput is one requested line item.
type QuotationItemInput struct {
	Description string
	Quantity    float64
	UnitPrice   float64
}

// QuotationInput carries quotation create/update fields. Totals are always
// derived server-side, never accepted from the caller.
type QuotationInput struct {
	CustomerID      string
	CompanyName     string
	CompanyAddress  string
	CompanyTaxID    string
	Title           string
	Description     string
	Items           []QuotationItemInput
	DiscountPercent float64
	TaxPercent      float64
	PaymentTerms    string
	ValidityDays    int
	Notes           string
	CreatedByID     string
}

// TemplateInput carries template create/update fields.
type TemplateInput struct {
	Name                 string
	Description          string
	Channel              models.Channel
	Content              string
	Subject              string
	Variables            []string
	WhatsAppTemplateName string
	LanguageCode         string
	Category             string
	IsActive             bool
}

// DashboardStats is the analytics summary for the dashboard landing page.
type DashboardStats struct {
	TotalMessagesSent    int64   `json:"total_messages_sent"`
	TotalDelivered       int64   `json:"total_delivered"`
	TotalFailed          int64   `json:"total_failed"`
	DeliveryRate         float64 `json:"delivery_rate"`
	ActiveCampaigns      int64   `json:"active_campaigns"`
	TotalContacts        int64   `json:"total_contacts"`
	NewConversationsToday int64  `json:"new_conversations_today"`
}
