package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/omsorg/care-api/internal/model"
	"github.com/omsorg/care-api/internal/repository"
	"github.com/omsorg/care-api/pkg/auth"
	apperrors "github.com/omsorg/care-api/pkg/errors"
	"github.com/omsorg/care-api/pkg/logger"
	"github.com/omsorg/care-api/pkg/security"
)

// Service handles caregiver registration and login.
type Service struct {
	users  repository.UserRepository
	hasher security.PasswordHasher
	jwt    auth.JWTService
	logger *logger.Logger
}

func NewService(users repository.UserRepository, hasher security.PasswordHasher, jwt auth.JWTService, logger *logger.Logger) *Service {
	return &Service{users: users, hasher: hasher, jwt: jwt, logger: logger}
}

// Register creates a caregiver account and returns a signed session token.
func (s *Service) Register(ctx context.Context, email, name, password string) (*model.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", apperrors.BadRequest("valid email is required", nil)
	}
	if name == "" {
		return nil, "", apperrors.BadRequest("name is required", nil)
	}

	if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, "", apperrors.Conflict("email already registered")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("failed to check existing user: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, security.ErrTooShort) {
			return nil, "", apperrors.BadRequest(fmt.Sprintf("password must be at least %d characters", security.MinPasswordLen), err)
		}
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Email, user.Name, user.IsAdmin)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID.String())
	return user, token, nil
}

// Login verifies credentials and returns a signed session token. The same
// error is returned for an unknown email and a wrong password.
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", apperrors.Unauthenticated("invalid credentials")
		}
		return nil, "", fmt.Errorf("failed to load user: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, "", apperrors.Unauthenticated("invalid credentials")
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Email, user.Name, user.IsAdmin)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}
	return user, token, nil
}

// Authenticate resolves a bearer token to its user record.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.User, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Unauthenticated("invalid or expired token")
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthenticated("invalid token subject")
	}
	user, err := s.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Unauthenticated("unknown user")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// UpdateSubscriptions toggles the scheduler's email alert subscriptions.
func (s *Service) UpdateSubscriptions(ctx context.Context, user *model.User, missedDose, dailyReports bool) error {
	user.MissedDoseAlerts = missedDose
	user.DailyReports = dailyReports
	if err := s.users.UpdateSubscriptions(ctx, user); err != nil {
		return fmt.Errorf("failed to update subscriptions: %w", err)
	}
	return nil
}
