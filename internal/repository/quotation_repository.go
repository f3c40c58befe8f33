package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bma-crm/commhub/internal/models"
)

type quotationRepository struct {
	db *sqlx.DB
}

func NewQuotationRepository(db *sqlx.DB) QuotationRepository {
	return &quotationRepository{db: db}
}

func (r *quotationRepository) Create(quotation *models.Quotation) error {
	if quotation.ID == "" {
		quotation.ID = uuid.New().String()
	}
	now := time.Now()
	quotation.CreatedAt = now
	quotation.UpdatedAt = now
	if quotation.Status == "" {
		quotation.Status = models.QuotationStatusDraft
	}

	query := `
		INSERT INTO quotations (id, quote_number, customer_id, company_name, company_address, company_tax_id, title, description, items, subtotal, discount_percent, discount_amount, tax_percent, tax_amount, total_amount, payment_terms, validity_days, notes, status, created_by_id, created_at, updated_at)
		VALUES (:id, :quote_number, :customer_id, :company_name, :company_address, :company_tax_id, :title, :description, :items, :subtotal, :discount_percent, :discount_amount, :tax_percent, :tax_amount, :total_amount, :payment_terms, :validity_days, :notes, :status, :created_by_id, :created_at, :updated_at)
	`
	if _, err := r.db.NamedExec(query, quotation); err != nil {
		return fmt.Errorf("failed to create quotation: %w", err)
	}
	return nil
}

func (r *quotationRepository) GetByID(id string) (*models.Quotation, error) {
	var quotation models.Quotation
	err := r.db.Get(&quotation, `SELECT * FROM quotations WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quotation: %w", err)
	}
	return &quotation, nil
}

func (r *quotationRepository) List(filter QuotationFilter) ([]*models.Quotation, error) {
	var (
		conds []string
		args  []interface{}
	)

	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		conds = append(conds, fmt.Sprintf("customer_id = $%d", len(args)))
	}

	query := `SELECT * FROM quotations`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	args = append(args, filter.Limit)
	query += " LIMIT $" + strconv.Itoa(len(args))
	args = append(args, filter.Skip)
	query += " OFFSET $" + strconv.Itoa(len(args))

	var quotations []*models.Quotation
	if err := r.db.Select(&quotations, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list quotations: %w", err)
	}
	return quotations, nil
}

func (r *quotationRepository) Update(quotation *models.Quotation) error {
	quotation.UpdatedAt = time.Now()

	query := `
		UPDATE quotations
		SET company_name = :company_name,
		    company_address = :company_address,
		    company_tax_id = :company_tax_id,
		    title = :title,
		    description = :description,
		    items = :items,
		    subtotal = :subtotal,
		    discount_percent = :discount_percent,
		    discount_amount = :discount_amount,
		    tax_percent = :tax_percent,
		    tax_amount = :tax_amount,
		    total_amount = :total_amount,
		    payment_terms = :payment_terms,
		    validity_days = :validity_days,
		    notes = :notes,
		    status = :status,
		    sent_at = :sent_at,
		    viewed_at = :viewed_at,
		    responded_at = :responded_at,
		    updated_at = :updated_at
		WHERE id = :id
	`
	result, err := r.db.NamedExec(query, quotation)
	if err != nil {
		return fmt.Errorf("failed to update quotation: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *quotationRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM quotations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete quotation: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *quotationRepository) CountCreatedOn(day time.Time) (int, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	var count int
	query := `SELECT COUNT(*) FROM quotations WHERE created_at >= $1 AND created_at < $2`
	if err := r.db.Get(&count, query, start, end); err != nil {
		return 0, fmt.Errorf("failed to count quotations for day: %w", err)
	}
	return count, nil
}
