package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// repositoryImpl is the concrete implementation of Repository interface.
type repositoryImpl struct {
	db           *sqlx.DB
	user         UserRepository
	customer     CustomerRepository
	conversation ConversationRepository
	message      MessageRepository
	campaign     CampaignRepository
	quotation    QuotationRepository
	template     TemplateRepository
}

// NewRepository creates a new repository instance.
func NewRepository(db *sqlx.DB) Repository {
	return &repositoryImpl{
		db:           db,
		user:         NewUserRepository(db),
		customer:     NewCustomerRepository(db),
		conversation: NewConversationRepository(db),
		message:      NewMessageRepository(db),
		campaign:     NewCampaignRepository(db),
		quotation:    NewQuotationRepository(db),
		template:     NewTemplateRepository(db),
	}
}

func (r *repositoryImpl) User() UserRepository                 { return r.user }
func (r *repositoryImpl) Customer() CustomerRepository         { return r.customer }
func (r *repositoryImpl) Conversation() ConversationRepository { return r.conversation }
func (r *repositoryImpl) Message() MessageRepository           { return r.message }
func (r *repositoryImpl) Campaign() CampaignRepository         { return r.campaign }
func (r *repositoryImpl) Quotation() QuotationRepository       { return r.quotation }
func (r *repositoryImpl) Template() TemplateRepository         { return r.template }

// Ping checks if the database connection is healthy.
func (r *repositoryImpl) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return r.db.PingContext(ctx)
}
