package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/omsorg/care-api/internal/model"
	"github.com/omsorg/care-api/internal/repository"
)

type userRepository struct {
	BaseRepository
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{NewBaseRepository(db)}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, email, name, password_hash, is_admin, missed_dose_alerts, daily_reports, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	user.CreatedAt = time.Now()

	_, err := r.GetDB().ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.IsAdmin,
		user.MissedDoseAlerts,
		user.DailyReports,
		user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `SELECT * FROM users WHERE id = $1`
	var user model.User
	if err := r.GetDB().GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT * FROM users WHERE email = $1`
	var user model.User
	if err := r.GetDB().GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) UpdateSubscriptions(ctx context.Context, user *model.User) error {
	query := `UPDATE users SET missed_dose_alerts = $1, daily_reports = $2 WHERE id = $3`
	_, err := r.GetDB().ExecContext(ctx, query, user.MissedDoseAlerts, user.DailyReports, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update subscriptions: %w", err)
	}
	return nil
}

func (r *userRepository) ListMissedDoseSubscribers(ctx context.Context) ([]*model.User, error) {
	query := `SELECT * FROM users WHERE missed_dose_alerts = TRUE`
	var users []*model.User
	err := r.GetDB().SelectContext(ctx, &users, query)
	return users, err
}

func (r *userRepository) ListDailyReportSubscribers(ctx context.Context) ([]*model.User, error) {
	query := `SELECT * FROM users WHERE daily_reports = TRUE`
	var users []*model.User
	err := r.GetDB().SelectContext(ctx, &users, query)
	return users, err
}
