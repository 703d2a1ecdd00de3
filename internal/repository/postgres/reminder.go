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

type reminderRepository struct {
	BaseRepository
}

func NewReminderRepository(db *sqlx.DB) repository.ReminderRepository {
	return &reminderRepository{NewBaseRepository(db)}
}

func (r *reminderRepository) Create(ctx context.Context, reminder *model.Reminder) error {
	query := `
		INSERT INTO reminders (id, patient_id, name, time, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	reminder.CreatedAt = time.Now()

	_, err := r.GetDB().ExecContext(ctx, query,
		reminder.ID,
		reminder.PatientID,
		reminder.Name,
		reminder.Time,
		reminder.CreatedBy,
		reminder.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}
	return nil
}

func (r *reminderRepository) Get(ctx context.Context, patientID, id uuid.UUID) (*model.Reminder, error) {
	query := `SELECT * FROM reminders WHERE patient_id = $1 AND id = $2`
	var reminder model.Reminder
	if err := r.GetDB().GetContext(ctx, &reminder, query, patientID, id); err != nil {
		return nil, err
	}
	return &reminder, nil
}

func (r *reminderRepository) Update(ctx context.Context, reminder *model.Reminder) error {
	res, err := r.GetDB().ExecContext(ctx,
		`UPDATE reminders SET name = $1, time = $2 WHERE patient_id = $3 AND id = $4`,
		reminder.Name, reminder.Time, reminder.PatientID, reminder.ID)
	if err != nil {
		return fmt.Errorf("failed to update reminder: %w", err)
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

func (r *reminderRepository) Delete(ctx context.Context, patientID, id uuid.UUID) error {
	res, err := r.GetDB().ExecContext(ctx,
		`DELETE FROM reminders WHERE patient_id = $1 AND id = $2`, patientID, id)
	if err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
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

func (r *reminderRepository) List(ctx context.Context, patientID uuid.UUID) ([]*model.Reminder, error) {
	query := `SELECT * FROM reminders WHERE patient_id = $1 ORDER BY time, name`
	var reminders []*model.Reminder
	err := r.GetDB().SelectContext(ctx, &reminders, query, patientID)
	return reminders, err
}

func (r *reminderRepository) ListByTime(ctx context.Context, patientID uuid.UUID, hhmm string) ([]*model.Reminder, error) {
	query := `SELECT * FROM reminders WHERE patient_id = $1 AND time = $2`
	var reminders []*model.Reminder
	err := r.GetDB().SelectContext(ctx, &reminders, query, patientID, hhmm)
	return reminders, err
}

func (r *reminderRepository) Exists(ctx context.Context, patientID uuid.UUID, name, hhmm string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM reminders WHERE patient_id = $1 AND name = $2 AND time = $3)`
	var exists bool
	if err := r.GetDB().GetContext(ctx, &exists, query, patientID, name, hhmm); err != nil {
		return false, fmt.Errorf("failed to check reminder existence: %w", err)
	}
	return exists, nil
}
