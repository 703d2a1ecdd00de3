package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/omsorg/care-api/internal/model"
	"github.com/omsorg/care-api/internal/repository"
)

type logEntryRepository struct {
	BaseRepository
}

func NewLogEntryRepository(db *sqlx.DB) repository.LogEntryRepository {
	return &logEntryRepository{NewBaseRepository(db)}
}

func (r *logEntryRepository) Create(ctx context.Context, entry *model.LogEntry) error {
	query := `
		INSERT INTO log_entries (id, patient_id, type, time, timestamp, logged_by, name, amount, unit, notes, extra)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.GetDB().ExecContext(ctx, query,
		entry.ID,
		entry.PatientID,
		entry.Type,
		entry.Time,
		entry.Timestamp,
		entry.LoggedBy,
		entry.Name,
		entry.Amount,
		entry.Unit,
		entry.Notes,
		entry.Extra,
	)
	if err != nil {
		return fmt.Errorf("failed to create log entry: %w", err)
	}
	return nil
}

func (r *logEntryRepository) Delete(ctx context.Context, patientID, id uuid.UUID) error {
	res, err := r.GetDB().ExecContext(ctx,
		`DELETE FROM log_entries WHERE patient_id = $1 AND id = $2`, patientID, id)
	if err != nil {
		return fmt.Errorf("failed to delete log entry: %w", err)
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

func (r *logEntryRepository) ListBetween(ctx context.Context, patientID uuid.UUID, fromMs, toMs int64, ascending bool) ([]*model.LogEntry, error) {
	order := "DESC"
	if ascending {
		order = "ASC"
	}
	query := fmt.Sprintf(`
		SELECT * FROM log_entries
		WHERE patient_id = $1 AND timestamp >= $2 AND timestamp < $3
		ORDER BY timestamp %s
	`, order)

	var entries []*model.LogEntry
	if err := r.GetDB().SelectContext(ctx, &entries, query, patientID, fromMs, toMs); err != nil {
		return nil, fmt.Errorf("failed to list log entries: %w", err)
	}
	return entries, nil
}

func (r *logEntryRepository) LatestByTypeAndName(ctx context.Context, patientID uuid.UUID, typ model.LogType, name string) (*model.LogEntry, error) {
	query := `
		SELECT * FROM log_entries
		WHERE patient_id = $1 AND type = $2 AND name = $3
		ORDER BY timestamp DESC
		LIMIT 1
	`
	var entry model.LogEntry
	err := r.GetDB().GetContext(ctx, &entry, query, patientID, typ, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest log entry: %w", err)
	}
	return &entry, nil
}
