package service

import (
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bma-crm/commhub/internal/models"
	"github.com/bma-crm/commhub/internal/repository"
)

type templateService struct {
	repo   repository.Repository
	logger *zap.Logger
}

func NewTemplateService(repo repository.Repository, logger *zap.Logger) TemplateService {
	return &templateService{repo: repo, logger: logger}
}

func (s *templateService) Create(input TemplateInput) (*models.Template, error) {
	if _, err := s.repo.Template().GetByName(input.Name); err == nil {
		return nil, fmt.Errorf("template %q already exists", input.Name)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	template := templateFromInput(&models.Template{Status: models.TemplateStatusDraft}, input)
	if err := s.repo.Template().Create(template); err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}
	return template, nil
}

func (s *templateService) Get(id string) (*models.Template, error) {
	template, err := s.repo.Template().GetByID(id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return template, err
}

func (s *templateService) List(skip, limit int) ([]*models.Template, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.repo.Template().List(skip, limit)
}

func (s *templateService) Update(id string, input TemplateInput) (*models.Template, error) {
	template, err := s.repo.Template().GetByID(id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	template = templateFromInput(template, input)
	if err := s.repo.Template().Update(template); err != nil {
		return nil, fmt.Errorf("failed to update template: %w", err)
	}
	return template, nil
}

func (s *templateService) Delete(id string) error {
	err := s.repo.Template().Delete(id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func templateFromInput(template *models.Template, input TemplateInput) *models.Template {
	template.Name = input.Name
	template.Description = sql.NullString{String: input.Description, Valid: input.Description != ""}
	template.Channel = input.Channel
	template.Content = input.Content
	template.Subject = sql.NullString{String: input.Subject, Valid: input.Subject != ""}
	template.WhatsAppTemplateName = sql.NullString{String: input.WhatsAppTemplateName, Valid: input.WhatsAppTemplateName != ""}
	template.Category = sql.NullString{String: input.Category, Valid: input.Category != ""}
	template.IsActive = input.IsActive
	if input.LanguageCode != "" {
		template.LanguageCode = input.LanguageCode
	}
	if template.LanguageCode == "" {
		template.LanguageCode = "en"
	}
	if input.Variables != nil {
		template.Variables = input.Variables
	}
	if template.Variables == nil {
		template.Variables = models.StringList{}
	}
	return template
}
