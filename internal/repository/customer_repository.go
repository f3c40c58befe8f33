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

type customerRepository struct {
	db *sqlx.DB
}

func NewCustomerRepository(db *sqlx.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(customer *models.Customer) error {
	if customer.ID == "" {
		customer.ID = uuid.New().String()
	}
	now := time.Now()
	customer.CreatedAt = now
	customer.UpdatedAt = now

	query := `
		INSERT INTO customers (id, name, phone, email, whatsapp_id, line_user_id, language, timezone, is_active, opt_out, tags, notes, created_at, updated_at)
		VALUES (:id, :name, :phone, :email, :whatsapp_id, :line_user_id, :language, :timezone, :is_active, :opt_out, :tags, :notes, :created_at, :updated_at)
	`
	if _, err := r.db.NamedExec(query, customer); err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

func (r *customerRepository) GetByID(id string) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.Get(&customer, `SELECT * FROM customers WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &customer, nil
}

func (r *customerRepository) GetByPhone(phone string) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.Get(&customer, `SELECT * FROM customers WHERE phone = $1`, phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer by phone: %w", err)
	}
	return &customer, nil
}

func (r *customerRepository) GetByWhatsAppID(waID string) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.Get(&customer, `SELECT * FROM customers WHERE whatsapp_id = $1`, waID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer by whatsapp id: %w", err)
	}
	return &customer, nil
}

func (r *customerRepository) ExistsByPhoneOrEmail(phone, email string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM customers WHERE phone = $1 OR ($2 <> '' AND email = $2)`
	if err := r.db.Get(&count, query, phone, email); err != nil {
		return false, fmt.Errorf("failed to check customer existence: %w", err)
	}
	return count > 0, nil
}

func (r *customerRepository) List(filter CustomerFilter) ([]*models.Customer, error) {
	var (
		conds []string
		args  []interface{}
	)

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		p := "$" + strconv.Itoa(len(args))
		conds = append(conds, fmt.Sprintf("(name ILIKE %s OR phone ILIKE %s OR email ILIKE %s)", p, p, p))
	}
	if filter.Tag != "" {
		args = append(args, filter.Tag)
		conds = append(conds, fmt.Sprintf("tags @> jsonb_build_array($%d::text)", len(args)))
	}

	query := `SELECT * FROM customers`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY name ASC"

	args = append(args, filter.Limit)
	query += " LIMIT $" + strconv.Itoa(len(args))
	args = append(args, filter.Skip)
	query += " OFFSET $" + strconv.Itoa(len(args))

	var customers []*models.Customer
	if err := r.db.Select(&customers, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return customers, nil
}

func (r *customerRepository) Update(customer *models.Customer) error {
	customer.UpdatedAt = time.Now()

	query := `
		UPDATE customers
		SET name = :name,
		    phone = :phone,
		    email = :email,
		    whatsapp_id = :whatsapp_id,
		    line_user_id = :line_user_id,
		    language = :language,
		    timezone = :timezone,
		    is_active = :is_active,
		    opt_out = :opt_out,
		    tags = :tags,
		    notes = :notes,
		    updated_at = :updated_at
		WHERE id = :id
	`
	result, err := r.db.NamedExec(query, customer)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *customerRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *customerRepository) TagCounts() ([]*models.TagCount, error) {
	query := `
		SELECT tag, COUNT(*) AS count
		FROM customers, jsonb_array_elements_text(tags) AS tag
		GROUP BY tag
		ORDER BY tag ASC
	`
	var counts []*models.TagCount
	if err := r.db.Select(&counts, query); err != nil {
		return nil, fmt.Errorf("failed to count tags: %w", err)
	}
	return counts, nil
}

// segmentQuery builds the WHERE clause shared by CountBySegment and
// ListBySegment. Only active, opted-in customers are ever selected.
func segmentQuery(filter models.SegmentFilter) (string, []interface{}) {
	conds := []string{"is_active = TRUE", "opt_out = FALSE"}
	var args []interface{}

	for _, tag := range filter.Tags {
		args = append(args, tag)
		conds = append(conds, fmt.Sprintf("tags @> jsonb_build_array($%d::text)", len(args)))
	}
	if filter.HasWhatsApp {
		conds = append(conds, "whatsapp_id IS NOT NULL")
	}

	return strings.Join(conds, " AND "), args
}

func (r *customerRepository) CountBySegment(filter models.SegmentFilter) (int, error) {
	where, args := segmentQuery(filter)

	var count int
	query := `SELECT COUNT(*) FROM customers WHERE ` + where
	if err := r.db.Get(&count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count segment: %w", err)
	}
	return count, nil
}

func (r *customerRepository) ListBySegment(filter models.SegmentFilter, skip, limit int) ([]*models.Customer, error) {
	where, args := segmentQuery(filter)

	query := `SELECT * FROM customers WHERE ` + where + ` ORDER BY created_at ASC`
	if limit > 0 {
		args = append(args, limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}
	if skip > 0 {
		args = append(args, skip)
		query += " OFFSET $" + strconv.Itoa(len(args))
	}

	var customers []*models.Customer
	if err := r.db.Select(&customers, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list segment: %w", err)
	}
	return customers, nil
}

func (r *customerRepository) Count() (int64, error) {
	var count int64
	if err := r.db.Get(&count, `SELECT COUNT(*) FROM customers`); err != nil {
		return 0, fmt.Errorf("failed to count customers: %w", err)
	}
	return count, nil
}
