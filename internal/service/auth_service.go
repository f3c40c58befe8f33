package service

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/bma-crm/commhub/internal/config"
	"github.com/bma-crm/commhub/internal/models"
	"github.com/bma-crm/commhub/internal/repository"
)

type authService struct {
	repo   repository.Repository
	tokens *tokenManager
	logger *zap.Logger
}

func NewAuthService(cfg *config.Config, repo repository.Repository, logger *zap.Logger) AuthService {
	return &authService{
		repo:   repo,
		tokens: newTokenManager(&cfg.Auth),
		logger: logger,
	}
}

func (s *authService) Login(usernameOrEmail, password string) (*TokenPair, *models.User, error) {
	user, err := s.repo.User().GetByLogin(usernameOrEmail)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, nil, ErrInactiveUser
	}

	pair, err := s.tokens.Pair(user)
	if err != nil {
		return nil, nil, err
	}

	if err := s.repo.User().UpdateLastLogin(user.ID, time.Now()); err != nil {
		// Login still succeeds; the timestamp is best-effort bookkeeping.
		s.logger.Warn("Failed to update last login", zap.String("userID", user.ID), zap.Error(err))
	}

	return pair, user, nil
}

func (s *authService) Register(input RegisterInput) (*models.User, error) {
	if _, err := s.repo.User().GetByLogin(input.Username); err == nil {
		return nil, ErrDuplicateUser
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if _, err := s.repo.User().GetByLogin(input.Email); err == nil {
		return nil, ErrDuplicateUser
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := input.Role
	if role == "" {
		role = models.UserRoleAgent
	}

	user := &models.User{
		Email:          input.Email,
		Username:       input.Username,
		FullName:       sql.NullString{String: input.FullName, Valid: input.FullName != ""},
		HashedPassword: string(hashed),
		Role:           role,
		IsActive:       true,
	}
	if err := s.repo.User().Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered", zap.String("userID", user.ID), zap.String("username", user.Username))
	return user, nil
}

func (s *authService) Refresh(refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.Parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.User().GetByID(claims.Subject)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	return s.tokens.Pair(user)
}

func (s *authService) Authenticate(accessToken string) (*models.User, error) {
	claims, err := s.tokens.Parse(accessToken, tokenTypeAccess)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.User().GetByID(claims.Subject)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	return user, nil
}
