package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bma-crm/commhub/internal/models"
)

type templateRepository struct {
	db *sqlx.DB
}

func NewTemplateRepository(db *sqlx.DB) TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) Create(template *models.Template) error {
	if template.ID == "" {
		template.ID = uuid.New().String()
	}
	now := time.Now()
	template.CreatedAt = now
	template.UpdatedAt = now
	if template.Status == "" {
		template.Status = models.TemplateStatusDraft
	}
	if template.Variables == nil {
		template.Variables = models.StringList{}
	}

	query := `
		INSERT INTO templates (id, name, description, channel, content, subject, variables, whatsapp_template_name, language_code, status, is_active, category, created_at, updated_at)
		VALUES (:id, :name, :description, :channel, :content, :subject, :variables, :whatsapp_template_name, :language_code, :status, :is_active, :category, :created_at, :updated_at)
	`
	if _, err := r.db.NamedExec(query, template); err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

func (r *templateRepository) GetByID(id string) (*models.Template, error) {
	var template models.Template
	err := r.db.Get(&template, `SELECT * FROM templates WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &template, nil
}

func (r *templateRepository) GetByName(name string) (*models.Template, error) {
	var template models.Template
	err := r.db.Get(&template, `SELECT * FROM templates WHERE name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template by name: %w", err)
	}
	return &template, nil
}

func (r *templateRepository) List(skip, limit int) ([]*models.Template, error) {
	query := `SELECT * FROM templates ORDER BY name ASC LIMIT $1 OFFSET $2`
	var templates []*models.Template
	if err := r.db.Select(&templates, query, limit, skip); err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

func (r *templateRepository) Update(template *models.Template) error {
	template.UpdatedAt = time.Now()

	query := `
		UPDATE templates
		SET name = :name,
		    description = :description,
		    channel = :channel,
		    content = :content,
		    subject = :subject,
		    variables = :variables,
		    whatsapp_template_name = :whatsapp_template_name,
		    language_code = :language_code,
		    status = :status,
		    is_active = :is_active,
		    category = :category,
		    updated_at = :updated_at
		WHERE id = :id
	`
	result, err := r.db.NamedExec(query, template)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *templateRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}
