package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bma-crm/commhub/internal/models"
	"github.com/bma-crm/commhub/internal/pdf"
	"github.com/bma-crm/commhub/internal/repository"
	"github.com/bma-crm/commhub/internal/whatsapp"
)

const defaultValidityDays = 30

type quotationService struct {
	repo      repository.Repository
	generator *pdf.Generator
	waClient  *whatsapp.Client
	logger    *zap.Logger
}

func NewQuotationService(
	repo repository.Repository,
	generator *pdf.Generator,
	waClient *whatsapp.Client,
	logger *zap.Logger,
) QuotationService {
	return &quotationService{
		repo:      repo,
		generator: generator,
		waClient:  waClient,
		logger:    logger,
	}
}

func (s *quotationService) Create(input QuotationInput) (*models.Quotation, error) {
	if _, err := s.repo.Customer().GetByID(input.CustomerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := validatePercents(input); err != nil {
		return nil, err
	}

	items := itemsFromInput(input.Items)
	totals := models.ComputeTotals(items, input.DiscountPercent, input.TaxPercent)

	quoteNumber, err := s.nextQuoteNumber(time.Now())
	if err != nil {
		return nil, err
	}

	validityDays := input.ValidityDays
	if validityDays <= 0 {
		validityDays = defaultValidityDays
	}

	quotation := &models.Quotation{
		QuoteNumber:     quoteNumber,
		CustomerID:      input.CustomerID,
		CompanyName:     sql.NullString{String: input.CompanyName, Valid: input.CompanyName != ""},
		CompanyAddress:  sql.NullString{String: input.CompanyAddress, Valid: input.CompanyAddress != ""},
		CompanyTaxID:    sql.NullString{String: input.CompanyTaxID, Valid: input.CompanyTaxID != ""},
		Title:           input.Title,
		Description:     sql.NullString{String: input.Description, Valid: input.Description != ""},
		Items:           items,
		Subtotal:        totals.Subtotal,
		DiscountPercent: input.DiscountPercent,
		DiscountAmount:  totals.DiscountAmount,
		TaxPercent:      input.TaxPercent,
		TaxAmount:       totals.TaxAmount,
		TotalAmount:     totals.TotalAmount,
		PaymentTerms:    input.PaymentTerms,
		ValidityDays:    validityDays,
		Notes:           sql.NullString{String: input.Notes, Valid: input.Notes != ""},
		Status:          models.QuotationStatusDraft,
		CreatedByID:     input.CreatedByID,
	}
	if err := s.repo.Quotation().Create(quotation); err != nil {
		return nil, fmt.Errorf("failed to create quotation: %w", err)
	}

	s.logger.Info("Quotation created",
		zap.String("quotationID", quotation.ID),
		zap.String("quoteNumber", quotation.QuoteNumber))
	return quotation, nil
}

func (s *quotationService) Get(id string) (*models.Quotation, error) {
	quotation, err := s.repo.Quotation().GetByID(id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return quotation, err
}

func (s *quotationService) List(filter repository.QuotationFilter) ([]*models.Quotation, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.repo.Quotation().List(filter)
}

func (s *quotationService) Update(id string, input QuotationInput) (*models.Quotation, error) {
	quotation, err := s.repo.Quotation().GetByID(id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !quotation.Status.IsEditable() {
		return nil, ErrNotEditable
	}
	if err := validatePercents(input); err != nil {
		return nil, err
	}

	items := itemsFromInput(input.Items)
	totals := models.ComputeTotals(items, input.DiscountPercent, input.TaxPercent)

	quotation.CompanyName = sql.NullString{String: input.CompanyName, Valid: input.CompanyName != ""}
	quotation.CompanyAddress = sql.NullString{String: input.CompanyAddress, Valid: input.CompanyAddress != ""}
	quotation.CompanyTaxID = sql.NullString{String: input.CompanyTaxID, Valid: input.CompanyTaxID != ""}
	quotation.Title = input.Title
	quotation.Description = sql.NullString{String: input.Description, Valid: input.Description != ""}
	quotation.Items = items
	quotation.Subtotal = totals.Subtotal
	quotation.DiscountPercent = input.DiscountPercent
	quotation.DiscountAmount = totals.DiscountAmount
	quotation.TaxPercent = input.TaxPercent
	quotation.TaxAmount = totals.TaxAmount
	quotation.TotalAmount = totals.TotalAmount
	quotation.PaymentTerms = input.PaymentTerms
	if input.ValidityDays > 0 {
		quotation.ValidityDays = input.ValidityDays
	}
	quotation.Notes = sql.NullString{String: input.Notes, Valid: input.Notes != ""}

	if err := s.repo.Quotation().Update(quotation); err != nil {
		return nil, fmt.Errorf("failed to update quotation: %w", err)
	}
	return quotation, nil
}

func (s *quotationService) Delete(id string) error {
	quotation, err := s.repo.Quotation().GetByID(id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if !quotation.Status.IsEditable() {
		return ErrNotEditable
	}
	return s.repo.Quotation().Delete(id)
}

func (s *quotationService) UpdateStatus(id string, status models.QuotationStatus) (*models.Quotation, error) {
	quotation, err := s.repo.Quotation().GetByID(id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !quotation.Status.CanTransition(status) {
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	quotation.Status = status
	switch status {
	case models.QuotationStatusSent:
		quotation.SentAt = sql.NullTime{Time: now, Valid: true}
	case models.QuotationStatusViewed:
		quotation.ViewedAt = sql.NullTime{Time: now, Valid: true}
	case models.QuotationStatusAccepted, models.QuotationStatusRejected:
		quotation.RespondedAt = sql.NullTime{Time: now, Valid: true}
	}

	if err := s.repo.Quotation().Update(quotation); err != nil {
		return nil, fmt.Errorf("failed to update quotation: %w", err)
	}
	return quotation, nil
}

func (s *quotationService) RenderPDF(id string) ([]byte, string, error) {
	quotation, err := s.repo.Quotation().GetByID(id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}

	customer, err := s.repo.Customer().GetByID(quotation.CustomerID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load customer: %w", err)
	}

	data, err := s.generator.RenderQuotation(quotation, customer)
	if err != nil {
		return nil, "", fmt.Errorf("failed to render quotation pdf: %w", err)
	}
	return data, quotation.QuoteNumber + ".pdf", nil
}

// Send renders the quotation PDF, delivers it as a WhatsApp document and
// records an outbound message in the customer's conversation.
func (s *quotationService) Send(id string, channel models.Channel) (*models.Quotation, error) {
	if channel != models.ChannelWhatsApp {
		return nil, ErrChannelNotSupported
	}

	quotation, err := s.repo.Quotation().GetByID(id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if quotation.Status != models.QuotationStatusDraft && quotation.Status != models.QuotationStatusSent {
		return nil, ErrInvalidTransition
	}

	customer, err := s.repo.Customer().GetByID(quotation.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}
	recipient := recipientAddress(customer)
	if recipient == "" {
		return nil, ErrNoRecipientAddress
	}

	data, err := s.generator.RenderQuotation(quotation, customer)
	if err != nil {
		return nil, fmt.Errorf("failed to render quotation pdf: %w", err)
	}
	filename := quotation.QuoteNumber + ".pdf"

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	mediaID, err := s.waClient.UploadMedia(ctx, data, filename, "application/pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to upload quotation pdf: %w", err)
	}
	caption := fmt.Sprintf("Quotation %s: %s", quotation.QuoteNumber, quotation.Title)
	resp, err := s.waClient.SendDocument(ctx, recipient, mediaID, filename, caption)
	if err != nil {
		return nil, fmt.Errorf("failed to send quotation document: %w", err)
	}

	s.recordQuotationMessage(quotation, customer, resp.MessageID(), caption, filename)

	if quotation.Status == models.QuotationStatusDraft {
		return s.UpdateStatus(id, models.QuotationStatusSent)
	}
	quotation.SentAt = sql.NullTime{Time: time.Now(), Valid: true}
	if err := s.repo.Quotation().Update(quotation); err != nil {
		return nil, fmt.Errorf("failed to update quotation: %w", err)
	}
	return quotation, nil
}

// recordQuotationMessage drops an outbound document message into the
// customer's conversation so the transcript shows the quotation going out.
// Best effort; the document already reached the customer.
func (s *quotationService) recordQuotationMessage(
	quotation *models.Quotation,
	customer *models.Customer,
	externalID, caption, filename string,
) {
	conversation, err := s.repo.Conversation().FindActive(customer.ID, models.ChannelWhatsApp)
	if errors.Is(err, repository.ErrNotFound) {
		conversation = &models.Conversation{
			CustomerID: customer.ID,
			Channel:    models.ChannelWhatsApp,
			Status:     models.ConversationStatusOpen,
			Subject:    sql.NullString{String: quotation.Title, Valid: quotation.Title != ""},
			Tags:       models.StringList{},
		}
		if err := s.repo.Conversation().Create(conversation); err != nil {
			s.logger.Warn("Failed to create conversation for quotation",
				zap.String("quotationID", quotation.ID), zap.Error(err))
			return
		}
	} else if err != nil {
		s.logger.Warn("Failed to find conversation for quotation",
			zap.String("quotationID", quotation.ID), zap.Error(err))
		return
	}

	message := &models.Message{
		ConversationID: conversation.ID,
		Type:           models.MessageTypeDocument,
		Content:        caption,
		Direction:      models.DirectionOutbound,
		Status:         models.MessageStatusSent,
		ExternalID:     sql.NullString{String: externalID, Valid: externalID != ""},
		ExtraData:      models.Metadata{"quotation_id": quotation.ID, "filename": filename},
	}
	if err := s.repo.Message().Create(message); err != nil {
		s.logger.Warn("Failed to record quotation message",
			zap.String("quotationID", quotation.ID), zap.Error(err))
		return
	}
	if err := s.repo.Conversation().RecordMessage(conversation.ID, time.Now(), false); err != nil {
		s.logger.Warn("Failed to record message on conversation",
			zap.String("conversationID", conversation.ID), zap.Error(err))
	}
}

// nextQuoteNumber builds QTyyyymmddNNN where NNN counts quotations created
// the same day.
func (s *quotationService) nextQuoteNumber(now time.Time) (string, error) {
	count, err := s.repo.Quotation().CountCreatedOn(now)
	if err != nil {
		return "", fmt.Errorf("failed to count quotations: %w", err)
	}
	return fmt.Sprintf("QT%s%03d", now.Format("20060102"), count+1), nil
}

func itemsFromInput(inputs []QuotationItemInput) models.QuotationItems {
	items := make(models.QuotationItems, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, models.QuotationItem{
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
		})
	}
	return items
}

func validatePercents(input QuotationInput) error {
	if input.DiscountPercent < 0 || input.DiscountPercent > 100 {
		return fmt.Errorf("discount percent must be between 0 and 100")
	}
	if input.TaxPercent < 0 || input.TaxPercent > 100 {
		return fmt.Errorf("tax percent must be between 0 and 100")
	}
	if len(input.Items) == 0 {
		return fmt.Errorf("quotation requires at least one item")
	}
	return nil
}
