package service

import (
	"context"
	"io"

	"github.com/bma-crm/commhub/internal/models"
	"github.com/bma-crm/commhub/internal/queue"
	"github.com/bma-crm/commhub/internal/repository"
	"github.com/bma-crm/commhub/internal/whatsapp"
)

type AuthService interface {
	Login(usernameOrEmail, password string) (*TokenPair, *models.User, error)
	Register(input RegisterInput) (*models.User, error)
	Refresh(refreshToken string) (*TokenPair, error)
	// Authenticate validates an access token and loads the account.
	Authenticate(accessToken string) (*models.User, error)
}

type ContactService interface {
	Create(input CustomerInput) (*models.Customer, error)
	Get(id string) (*models.Customer, error)
	List(filter repository.CustomerFilter) ([]*models.Customer, error)
	Update(id string, input CustomerInput) (*models.Customer, error)
	Delete(id string) error
	TagGroups() ([]*models.TagCount, error)
	ImportCSV(r io.Reader) (*ImportSummary, error)
	ExportCSV(w io.Writer, tag string) error
}

type ConversationService interface {
	Create(input ConversationInput) (*models.ConversationListItem, error)
	Get(id string) (*models.ConversationListItem, error)
	List(filter models.ConversationFilter) ([]*models.ConversationListItem, error)
	Update(id string, update ConversationUpdate) (*models.ConversationListItem, error)
	Delete(id string) error
}

type MessageService interface {
	// Send stores an outbound message and delivers it synchronously through
	// the provider; the returned message is in status sent or failed.
	Send(input SendMessageInput) (*models.Message, error)
	// ListByConversation returns the transcript oldest-first and, as a side
	// effect, marks inbound messages read.
	ListByConversation(conversationID string, skip, limit int) ([]*models.Message, error)
	MarkRead(messageID string) error
	BreakerStatus() (state BreakerState, requests, failures uint32)
}

type WebhookService interface {
	VerifySubscription(mode, token, challenge string) (string, error)
	// Process ingests one webhook payload. Individual event failures are
	// logged, not returned; the provider always gets a 200.
	Process(payload *whatsapp.WebhookPayload)
}

type CampaignService interface {
	Create(input CampaignInput) (*models.Campaign, error)
	Get(id string) (*models.Campaign, error)
	List(status models.CampaignStatus, skip, limit int) ([]*models.Campaign, error)
	Update(id string, input CampaignInput) (*models.Campaign, error)
	Delete(id string) error
	// Send marks the campaign running and enqueues one dispatch job per
	// matching recipient.
	Send(id string) (*models.Campaign, error)
	Pause(id string) (*models.Campaign, error)
	Resume(id string) (*models.Campaign, error)
	Recipients(id string, skip, limit int) ([]*models.Customer, error)
	// DispatchDue starts scheduled campaigns whose time has arrived; the
	// scheduler calls this every tick.
	DispatchDue(ctx context.Context) error
	// HandleDispatchJob sends one campaign message; the queue worker calls
	// this per delivery.
	HandleDispatchJob(ctx context.Context, job queue.DispatchJob) error
}

type QuotationService interface {
	Create(input QuotationInput) (*models.Quotation, error)
	Get(id string) (*models.Quotation, error)
	List(filter repository.QuotationFilter) ([]*models.Quotation, error)
	Update(id string, input QuotationInput) (*models.Quotation, error)
	Delete(id string) error
	UpdateStatus(id string, status models.QuotationStatus) (*models.Quotation, error)
	// RenderPDF returns the rendered document and its download filename.
	RenderPDF(id string) ([]byte, string, error)
	// Send delivers the quotation PDF over the given channel and stamps the
	// sent transition.
	Send(id string, channel models.Channel) (*models.Quotation, error)
}

type TemplateService interface {
	Create(input TemplateInput) (*models.Template, error)
	Get(id string) (*models.Template, error)
	List(skip, limit int) ([]*models.Template, error)
	Update(id string, input TemplateInput) (*models.Template, error)
	Delete(id string) error
}

type AnalyticsService interface {
	Dashboard() (*DashboardStats, error)
}

type SchedulerService interface {
	Start() error
	Stop() error
	IsRunning() bool
}

type HealthService interface {
	GetHealth() *HealthStatus
}
