package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/omsorg/care-api/internal/model"
	"github.com/omsorg/care-api/internal/repository"
)

type tokenRepository struct {
	BaseRepository
}

func NewTokenRepository(db *sqlx.DB) repository.TokenRepository {
	return &tokenRepository{NewBaseRepository(db)}
}

// Upsert is keyed by the token value itself: re-registering a device simply
// refreshes updated_at, so there is no lost-update risk between concurrent
// clients and the scheduler's cleanup.
func (r *tokenRepository) Upsert(ctx context.Context, token *model.DeliveryToken) error {
	query := `
		INSERT INTO push_tokens (token, user_id, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (token) DO UPDATE
		SET user_id = COALESCE($2, push_tokens.user_id), updated_at = NOW()
	`
	_, err := r.GetDB().ExecContext(ctx, query, token.Token, token.UserID)
	if err != nil {
		return fmt.Errorf("failed to store delivery token: %w", err)
	}
	return nil
}

func (r *tokenRepository) Delete(ctx context.Context, token string) error {
	_, err := r.GetDB().ExecContext(ctx, `DELETE FROM push_tokens WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("failed to delete delivery token: %w", err)
	}
	return nil
}

func (r *tokenRepository) List(ctx context.Context) ([]*model.DeliveryToken, error) {
	query := `SELECT * FROM push_tokens ORDER BY updated_at DESC`
	var tokens []*model.DeliveryToken
	err := r.GetDB().SelectContext(ctx, &tokens, query)
	return tokens, err
}

func (r *tokenRepository) Status(ctx context.Context) (int, *time.Time, error) {
	var status struct {
		Count  int          `db:"count"`
		Latest sql.NullTime `db:"latest"`
	}
	query := `SELECT COUNT(*) AS count, MAX(updated_at) AS latest FROM push_tokens`
	if err := r.GetDB().GetContext(ctx, &status, query); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, nil, fmt.Errorf("failed to read token status: %w", err)
	}
	if !status.Latest.Valid {
		return status.Count, nil, nil
	}
	latest := status.Latest.Time
	return status.Count, &latest, nil
}
