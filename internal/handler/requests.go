package handler

import (
	"time"

	"github.com/bma-crm/commhub/internal/models"
	"github.com/bma-crm/commhub/internal/service"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	FullName string `json:"full_name" validate:"max=100"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=admin manager agent viewer"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type contactRequest struct {
	Name       string   `json:"name" validate:"required,max=200"`
	Phone      string   `json:"phone" validate:"max=20"`
	Email      string   `json:"email" validate:"omitempty,email"`
	WhatsAppID string   `json:"whatsapp_id" validate:"max=50"`
	LineUserID string   `json:"line_user_id" validate:"max=50"`
	Language   string   `json:"language" validate:"max=10"`
	Timezone   string   `json:"timezone" validate:"max=50"`
	Tags       []string `json:"tags"`
	Notes      string   `json:"notes"`
}

func (req *contactRequest) toInput() service.CustomerInput {
	return service.CustomerInput{
		Name:       req.Name,
		Phone:      req.Phone,
		Email:      req.Email,
		WhatsAppID: req.WhatsAppID,
		LineUserID: req.LineUserID,
		Language:   req.Language,
		Timezone:   req.Timezone,
		Tags:       req.Tags,
		Notes:      req.Notes,
	}
}

type conversationRequest struct {
	CustomerID   string `json:"customer_id" validate:"required,uuid"`
	Channel      string `json:"channel" validate:"required,oneof=whatsapp line email"`
	Subject      string `json:"subject" validate:"max=200"`
	AssignedToID string `json:"assigned_to_id" validate:"omitempty,uuid"`
}

type conversationUpdateRequest struct {
	Status       *string   `json:"status" validate:"omitempty,oneof=open pending closed archived"`
	AssignedToID *string   `json:"assigned_to_id"`
	Subject      *string   `json:"subject"`
	Tags         *[]string `json:"tags"`
}

type sendMessageRequest struct {
	ConversationID string `json:"conversation_id" validate:"required,uuid"`
	Type           string `json:"type" validate:"omitempty,oneof=text image video audio document"`
	Content        string `json:"content" validate:"required,max=4096"`
	MediaURL       string `json:"media_url" validate:"omitempty,url"`
}

type campaignRequest struct {
	Name           string     `json:"name" validate:"required,max=200"`
	Description    string     `json:"description"`
	Channel        string     `json:"channel" validate:"required,oneof=whatsapp line email"`
	TemplateID     string     `json:"template_id" validate:"omitempty,uuid"`
	MessageContent string     `json:"message_content" validate:"required"`
	ScheduledAt    *time.Time `json:"scheduled_at"`
	SegmentFilters struct {
		Tags        []string `json:"tags"`
		HasWhatsApp bool     `json:"has_whatsapp"`
	} `json:"segment_filters"`
}

func (req *campaignRequest) toInput(createdByID string) service.CampaignInput {
	return service.CampaignInput{
		Name:           req.Name,
		Description:    req.Description,
		Channel:        models.Channel(req.Channel),
		TemplateID:     req.TemplateID,
		MessageContent: req.MessageContent,
		ScheduledAt:    req.ScheduledAt,
		SegmentFilters: models.SegmentFilter{
			Tags:        req.SegmentFilters.Tags,
			HasWhatsApp: req.SegmentFilters.HasWhatsApp,
		},
		CreatedByID: createdByID,
	}
}

type quotationItemRequest struct {
	Description string  `json:"description" validate:"required,max=500"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
}

type quotationRequest struct {
	CustomerID      string                 `json:"customer_id" validate:"required,uuid"`
	CompanyName     string                 `json:"company_name" validate:"max=200"`
	CompanyAddress  string                 `json:"company_address"`
	CompanyTaxID    string                 `json:"company_tax_id" validate:"max=50"`
	Title           string                 `json:"title" validate:"required,max=200"`
	Description     string                 `json:"description"`
	Items           []quotationItemRequest `json:"items" validate:"required,min=1,dive"`
	DiscountPercent float64                `json:"discount_percent" validate:"gte=0,lte=100"`
	TaxPercent      float64                `json:"tax_percent" validate:"gte=0,lte=100"`
	PaymentTerms    string                 `json:"payment_terms"`
	ValidityDays    int                    `json:"validity_days" validate:"gte=0,lte=365"`
	Notes           string                 `json:"notes"`
}

func (req *quotationRequest) toInput(createdByID string) service.QuotationInput {
	items := make([]service.QuotationItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.QuotationItemInput{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return service.QuotationInput{
		CustomerID:      req.CustomerID,
		CompanyName:     req.CompanyName,
		CompanyAddress:  req.CompanyAddress,
		CompanyTaxID:    req.CompanyTaxID,
		Title:           req.Title,
		Description:     req.Description,
		Items:           items,
		DiscountPercent: req.DiscountPercent,
		TaxPercent:      req.TaxPercent,
		PaymentTerms:    req.PaymentTerms,
		ValidityDays:    req.ValidityDays,
		Notes:           req.Notes,
		CreatedByID:     createdByID,
	}
}

type quotationStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft sent viewed accepted rejected expired"`
}

type quotationSendRequest struct {
	Channel string `json:"channel" validate:"omitempty,oneof=whatsapp line email"`
}

type templateRequest struct {
	Name                 string   `json:"name" validate:"required,max=100"`
	Description          string   `json:"description"`
	Channel              string   `json:"channel" validate:"required,oneof=whatsapp line email"`
	Content              string   `json:"content" validate:"required"`
	Subject              string   `json:"subject" validate:"max=200"`
	Variables            []string `json:"variables"`
	WhatsAppTemplateName string   `json:"whatsapp_template_name" validate:"max=100"`
	LanguageCode         string   `json:"language_code" validate:"max=10"`
	Category             string   `json:"category" validate:"max=50"`
	IsActive             bool     `json:"is_active"`
}

func (req *templateRequest) toInput() service.TemplateInput {
	return service.TemplateInput{
		Name:                 req.Name,
		Description:          req.Description,
		Channel:              models.Channel(req.Channel),
		Content:              req.Content,
		Subject:              req.Subject,
		Variables:            req.Variables,
		WhatsAppTemplateName: req.WhatsAppTemplateName,
		LanguageCode:         req.LanguageCode,
		Category:             req.Category,
		IsActive:             req.IsActive,
	}
}
