package repository

import (
	"errors"
	"time"

	"github.com/bma-crm/commhub/internal/models"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// Repository interface defines all repository operations.
type Repository interface {
	// Ping checks database connectivity
	Ping() error

	User() UserRepository
	Customer() CustomerRepository
	Conversation() ConversationRepository
	Message() MessageRepository
	Campaign() CampaignRepository
	Quotation() QuotationRepository
	Template() TemplateRepository
}

// UserRepository defines operator account operations.
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id string) (*models.User, error)
	GetByLogin(usernameOrEmail string) (*models.User, error)
	UpdateLastLogin(id string, at time.Time) error
	Count() (int64, error)
}

// CustomerFilter narrows contact listings.
type CustomerFilter struct {
	Search string
	Tag    string
	Skip   int
	Limit  int
}

// CustomerRepository defines contact database operations.
type CustomerRepository interface {
	Create(customer *models.Customer) error
	GetByID(id string) (*models.Customer, error)
	GetByPhone(phone string) (*models.Customer, error)
	GetByWhatsAppID(waID string) (*models.Customer, error)
	ExistsByPhoneOrEmail(phone, email string) (bool, error)
	List(filter CustomerFilter) ([]*models.Customer, error)
	Update(customer *models.Customer) error
	Delete(id string) error
	TagCounts() ([]*models.TagCount, error)
	CountBySegment(filter models.SegmentFilter) (int, error)
	ListBySegment(filter models.SegmentFilter, skip, limit int) ([]*models.Customer, error)
	Count() (int64, error)
}

// ConversationRepository defines inbox operations.
type ConversationRepository interface {
	Create(conversation *models.Conversation) error
	GetByID(id string) (*models.Conversation, error)
	GetListItem(id string) (*models.ConversationListItem, error)
	// FindActive returns the non-closed conversation for a (customer, channel)
	// pair, or ErrNotFound.
	FindActive(customerID string, channel models.Channel) (*models.Conversation, error)
	List(filter models.ConversationFilter) ([]*models.ConversationListItem, error)
	Update(conversation *models.Conversation) error
	Delete(id string) error
	// RecordMessage bumps last_message_at and, for inbound messages,
	// increments unread_count.
	RecordMessage(id string, at time.Time, inbound bool) error
	ResetUnread(id string) error
	CountSince(t time.Time) (int64, error)
	CountActive() (int64, error)
}

// MessageRepository defines message operations.
type MessageRepository interface {
	Create(message *models.Message) error
	GetByID(id string) (*models.Message, error)
	GetByExternalID(externalID string) (*models.Message, error)
	ListByConversation(conversationID string, skip, limit int) ([]*models.Message, error)
	LatestByConversation(conversationID string) (*models.Message, error)
	UpdateStatus(id string, status models.MessageStatus, externalID, errorMsg *string) error
	// MarkConversationRead flips unread inbound messages to read and returns
	// how many were affected.
	MarkConversationRead(conversationID string) (int64, error)
	Stats() (*models.MessageStats, error)
}

// CampaignRepository defines campaign operations.
type CampaignRepository interface {
	Create(campaign *models.Campaign) error
	GetByID(id string) (*models.Campaign, error)
	List(status models.CampaignStatus, skip, limit int) ([]*models.Campaign, error)
	Update(campaign *models.Campaign) error
	Delete(id string) error
	SetStatus(id string, status models.CampaignStatus) error
	MarkStarted(id string, at time.Time) error
	MarkCompleted(id string, at time.Time) error
	IncrementCounter(id string, counter string) error
	// DispatchedCustomerIDs lists customers a campaign message was already
	// created for, used to avoid double sends on resume.
	DispatchedCustomerIDs(campaignID string) ([]string, error)
	ListDue(now time.Time) ([]*models.Campaign, error)
	CountByStatus(status models.CampaignStatus) (int64, error)
}

// QuotationFilter narrows quotation listings.
type QuotationFilter struct {
	Status     models.QuotationStatus
	CustomerID string
	Skip       int
	Limit      int
}

// QuotationRepository defines quotation operations.
type QuotationRepository interface {
	Create(quotation *models.Quotation) error
	GetByID(id string) (*models.Quotation, error)
	List(filter QuotationFilter) ([]*models.Quotation, error)
	Update(quotation *models.Quotation) error
	Delete(id string) error
	// CountCreatedOn counts quotations created on the given calendar day,
	// used for per-day quote number sequencing.
	CountCreatedOn(day time.Time) (int, error)
}

// TemplateRepository defines message template operations.
type TemplateRepository interface {
	Create(template *models.Template) error
	GetByID(id string) (*models.Template, error)
	GetByName(name string) (*models.Template, error)
	List(skip, limit int) ([]*models.Template, error)
	Update(template *models.Template) error
	Delete(id string) error
}
