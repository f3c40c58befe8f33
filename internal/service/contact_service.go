package service

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/bma-crm/commhub/internal/models"
	"github.com/bma-crm/commhub/internal/repository"
)

// csvHeader is the import/export column layout.
var csvHeader = []string{"name", "phone", "email", "whatsapp_id", "line_id", "tags", "notes"}

type contactService struct {
	repo   repository.Repository
	logger *zap.Logger
}

func NewContactService(repo repository.Repository, logger *zap.Logger) ContactService {
	return &contactService{repo: repo, logger: logger}
}

func (s *contactService) Create(input CustomerInput) (*models.Customer, error) {
	exists, err := s.repo.Customer().ExistsByPhoneOrEmail(input.Phone, input.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicates: %w", err)
	}
	if exists {
		return nil, ErrDuplicateCustomer
	}

	customer := customerFromInput(&models.Customer{IsActive: true}, input)
	if err := s.repo.Customer().Create(customer); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return customer, nil
}

func (s *contactService) Get(id string) (*models.Customer, error) {
	customer, err := s.repo.Customer().GetByID(id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return customer, err
}

func (s *contactService) List(filter repository.CustomerFilter) ([]*models.Customer, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	return s.repo.Customer().List(filter)
}

func (s *contactService) Update(id string, input CustomerInput) (*models.Customer, error) {
	customer, err := s.repo.Customer().GetByID(id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	customer = customerFromInput(customer, input)
	if err := s.repo.Customer().Update(customer); err != nil {
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}
	return customer, nil
}

func (s *contactService) Delete(id string) error {
	err := s.repo.Customer().Delete(id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *contactService) TagGroups() ([]*models.TagCount, error) {
	return s.repo.Customer().TagCounts()
}

// ImportCSV reads contacts from the fixed-format CSV. Rows missing name or
// phone, or whose phone already exists, are skipped and reported.
func (s *contactService) ImportCSV(r io.Reader) (*ImportSummary, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := col["name"]; !ok {
		return nil, fmt.Errorf("csv header missing name column")
	}
	if _, ok := col["phone"]; !ok {
		return nil, fmt.Errorf("csv header missing phone column")
	}

	field := func(record []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	summary := &ImportSummary{}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			summary.Skipped++
			summary.Errors = append(summary.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		name := field(record, "name")
		phone := field(record, "phone")
		if name == "" || phone == "" {
			summary.Skipped++
			summary.Errors = append(summary.Errors, fmt.Sprintf("line %d: missing name or phone", line))
			continue
		}

		exists, err := s.repo.Customer().ExistsByPhoneOrEmail(phone, field(record, "email"))
		if err != nil {
			return nil, fmt.Errorf("failed to check for duplicates: %w", err)
		}
		if exists {
			summary.Skipped++
			summary.Errors = append(summary.Errors, fmt.Sprintf("line %d: phone or email already exists", line))
			continue
		}

		var tags []string
		if raw := field(record, "tags"); raw != "" {
			for _, tag := range strings.Split(raw, ",") {
				if tag = strings.TrimSpace(tag); tag != "" {
					tags = append(tags, tag)
				}
			}
		}

		customer := customerFromInput(&models.Customer{IsActive: true}, CustomerInput{
			Name:       name,
			Phone:      phone,
			Email:      field(record, "email"),
			WhatsAppID: field(record, "whatsapp_id"),
			LineUserID: field(record, "line_id"),
			Tags:       tags,
			Notes:      field(record, "notes"),
		})
		if err := s.repo.Customer().Create(customer); err != nil {
			summary.Skipped++
			summary.Errors = append(summary.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		summary.Imported++
	}

	s.logger.Info("Contact import finished",
		zap.Int("imported", summary.Imported),
		zap.Int("skipped", summary.Skipped))
	return summary, nil
}

// ExportCSV streams all contacts, optionally narrowed to one tag.
func (s *contactService) ExportCSV(w io.Writer, tag string) error {
	customers, err := s.repo.Customer().List(repository.CustomerFilter{Tag: tag, Limit: 100000})
	if err != nil {
		return fmt.Errorf("failed to list customers: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, c := range customers {
		record := []string{
			c.Name,
			c.Phone.String,
			c.Email.String,
			c.WhatsAppID.String,
			c.LineUserID.String,
			strings.Join(c.Tags, ","),
			c.Notes.String,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func customerFromInput(customer *models.Customer, input CustomerInput) *models.Customer {
	customer.Name = input.Name
	customer.Phone = sql.NullString{String: input.Phone, Valid: input.Phone != ""}
	customer.Email = sql.NullString{String: input.Email, Valid: input.Email != ""}
	customer.WhatsAppID = sql.NullString{String: input.WhatsAppID, Valid: input.WhatsAppID != ""}
	customer.LineUserID = sql.NullString{String: input.LineUserID, Valid: input.LineUserID != ""}
	customer.Notes = sql.NullString{String: input.Notes, Valid: input.Notes != ""}
	if input.Language != "" {
		customer.Language = input.Language
	}
	if customer.Language == "" {
		customer.Language = "en"
	}
	if input.Timezone != "" {
		customer.Timezone = input.Timezone
	}
	if customer.Timezone == "" {
		customer.Timezone = "Asia/Bangkok"
	}
	if input.Tags != nil {
		customer.Tags = input.Tags
	}
	if customer.Tags == nil {
		customer.Tags = models.StringList{}
	}
	// A contact without a WhatsApp id but with a phone can still be reached
	// on WhatsApp; mirror the phone.
	if !customer.WhatsAppID.Valid && customer.Phone.Valid {
		customer.WhatsAppID = customer.Phone
	}
	return customer
}
