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

type planRepository struct {
	BaseRepository
}

func NewPlanRepository(db *sqlx.DB) repository.PlanRepository {
	return &planRepository{NewBaseRepository(db)}
}

func (r *planRepository) Create(ctx context.Context, plan *model.CustomPlan) error {
	query := `
		INSERT INTO custom_plans (id, patient_id, name, medicines, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	plan.CreatedAt = time.Now()

	_, err := r.GetDB().ExecContext(ctx, query,
		plan.ID,
		plan.PatientID,
		plan.Name,
		plan.Medicines,
		plan.CreatedBy,
		plan.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create custom plan: %w", err)
	}
	return nil
}

func (r *planRepository) Get(ctx context.Context, patientID, id uuid.UUID) (*model.CustomPlan, error) {
	query := `SELECT * FROM custom_plans WHERE patient_id = $1 AND id = $2`
	var plan model.CustomPlan
	if err := r.GetDB().GetContext(ctx, &plan, query, patientID, id); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *planRepository) Delete(ctx context.Context, patientID, id uuid.UUID) error {
	res, err := r.GetDB().ExecContext(ctx,
		`DELETE FROM custom_plans WHERE patient_id = $1 AND id = $2`, patientID, id)
	if err != nil {
		return fmt.Errorf("failed to delete custom plan: %w", err)
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

func (r *planRepository) List(ctx context.Context, patientID uuid.UUID) ([]*model.CustomPlan, error) {
	query := `SELECT * FROM custom_plans WHERE patient_id = $1 ORDER BY created_at`
	var plans []*model.CustomPlan
	err := r.GetDB().SelectContext(ctx, &plans, query, patientID)
	return plans, err
}
