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

type checklistRepository struct {
	BaseRepository
}

func NewChecklistRepository(db *sqlx.DB) repository.ChecklistRepository {
	return &checklistRepository{NewBaseRepository(db)}
}

func (r *checklistRepository) Create(ctx context.Context, item *model.ChecklistItem) error {
	query := `
		INSERT INTO checklist_items
			(id, patient_id, name, dose, unit, category, schedule, times, description, is_custom, stock, low_stock_threshold, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	item.CreatedAt = time.Now()

	_, err := r.GetDB().ExecContext(ctx, query,
		item.ID,
		item.PatientID,
		item.Name,
		item.Dose,
		item.Unit,
		item.Category,
		item.Schedule,
		item.Times,
		item.Description,
		item.IsCustom,
		item.Stock,
		item.LowStockThreshold,
		item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create checklist item: %w", err)
	}
	return nil
}

func (r *checklistRepository) Get(ctx context.Context, patientID, id uuid.UUID) (*model.ChecklistItem, error) {
	query := `SELECT * FROM checklist_items WHERE patient_id = $1 AND id = $2`
	var item model.ChecklistItem
	if err := r.GetDB().GetContext(ctx, &item, query, patientID, id); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *checklistRepository) Delete(ctx context.Context, patientID, id uuid.UUID) error {
	res, err := r.GetDB().ExecContext(ctx,
		`DELETE FROM checklist_items WHERE patient_id = $1 AND id = $2`, patientID, id)
	if err != nil {
		return fmt.Errorf("failed to delete checklist item: %w", err)
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

func (r *checklistRepository) List(ctx context.Context, patientID uuid.UUID) ([]*model.ChecklistItem, error) {
	query := `SELECT * FROM checklist_items WHERE patient_id = $1 ORDER BY category, name`
	var items []*model.ChecklistItem
	err := r.GetDB().SelectContext(ctx, &items, query, patientID)
	return items, err
}

func (r *checklistRepository) GetByNameCategory(ctx context.Context, patientID uuid.UUID, name string, category model.ChecklistCategory) (*model.ChecklistItem, error) {
	query := `SELECT * FROM checklist_items WHERE patient_id = $1 AND name = $2 AND category = $3`
	var item model.ChecklistItem
	if err := r.GetDB().GetContext(ctx, &item, query, patientID, name, category); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *checklistRepository) AdjustStock(ctx context.Context, patientID, id uuid.UUID, delta float64) error {
	res, err := r.GetDB().ExecContext(ctx, `
		UPDATE checklist_items
		SET stock = GREATEST(stock + $1, 0)
		WHERE patient_id = $2 AND id = $3 AND stock IS NOT NULL
	`, delta, patientID, id)
	if err != nil {
		return fmt.Errorf("failed to adjust stock: %w", err)
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
