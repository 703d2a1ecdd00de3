package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/omsorg/care-api/internal/model"
	"github.com/omsorg/care-api/internal/repository"
)

type accessRequestRepository struct {
	BaseRepository
}

func NewAccessRequestRepository(db *sqlx.DB) repository.AccessRequestRepository {
	return &accessRequestRepository{NewBaseRepository(db)}
}

func (r *accessRequestRepository) Create(ctx context.Context, req *model.AccessRequest) error {
	query := `
		INSERT INTO access_requests (id, patient_id, user_id, user_email, user_name, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	req.CreatedAt = time.Now()

	_, err := r.GetDB().ExecContext(ctx, query,
		req.ID,
		req.PatientID,
		req.UserID,
		req.UserEmail,
		req.UserName,
		req.Status,
		req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create access request: %w", err)
	}
	return nil
}

func (r *accessRequestRepository) Get(ctx context.Context, patientID, id uuid.UUID) (*model.AccessRequest, error) {
	query := `SELECT * FROM access_requests WHERE patient_id = $1 AND id = $2`
	var req model.AccessRequest
	if err := r.GetDB().GetContext(ctx, &req, query, patientID, id); err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *accessRequestRepository) ListPending(ctx context.Context, patientID uuid.UUID) ([]*model.AccessRequest, error) {
	query := `SELECT * FROM access_requests WHERE patient_id = $1 AND status = $2 ORDER BY created_at`
	var reqs []*model.AccessRequest
	err := r.GetDB().SelectContext(ctx, &reqs, query, patientID, model.AccessRequestPending)
	return reqs, err
}

// Approve grants the allow-list entry and resolves the request in one
// transaction. Partial application would leave the caregiver approved but
// locked out (or the reverse), so both writes commit or neither does.
func (r *accessRequestRepository) Approve(ctx context.Context, patientID, requestID uuid.UUID, email string, processedAt time.Time) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE patients
			SET allowed_emails = array_append(allowed_emails, $1)
			WHERE id = $2 AND NOT ($1 = ANY(allowed_emails))
		`, email, patientID)
		if err != nil {
			return fmt.Errorf("failed to update allow-list: %w", err)
		}
		_ = res

		res, err = tx.ExecContext(ctx, `
			UPDATE access_requests
			SET status = $1, processed_at = $2
			WHERE id = $3 AND patient_id = $4 AND status = $5
		`, model.AccessRequestApproved, processedAt, requestID, patientID, model.AccessRequestPending)
		if err != nil {
			return fmt.Errorf("failed to update request status: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

func (r *accessRequestRepository) Deny(ctx context.Context, patientID, requestID uuid.UUID, processedAt time.Time) error {
	res, err := r.GetDB().ExecContext(ctx, `
		UPDATE access_requests
		SET status = $1, processed_at = $2
		WHERE id = $3 AND patient_id = $4 AND status = $5
	`, model.AccessRequestDenied, processedAt, requestID, patientID, model.AccessRequestPending)
	if err != nil {
		return fmt.Errorf("failed to deny access request: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
