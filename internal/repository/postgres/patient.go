package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/omsorg/care-api/internal/model"
	"github.com/omsorg/care-api/internal/repository"
)

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{NewBaseRepository(db)}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (id, name, description, needs, birth_date, medication_notes, owner_id, allowed_emails, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	patient.CreatedAt = time.Now()

	_, err := r.GetDB().ExecContext(ctx, query,
		patient.ID,
		patient.Name,
		patient.Description,
		patient.Needs,
		patient.BirthDate,
		patient.MedicationNotes,
		patient.OwnerID,
		patient.AllowedEmails,
		patient.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	query := `SELECT * FROM patients WHERE id = $1`
	var patient model.Patient
	err := r.GetDB().GetContext(ctx, &patient, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	query := `
		UPDATE patients
		SET name = $1, description = $2, needs = $3, birth_date = $4, medication_notes = $5
		WHERE id = $6
	`
	_, err := r.GetDB().ExecContext(ctx, query,
		patient.Name,
		patient.Description,
		patient.Needs,
		patient.BirthDate,
		patient.MedicationNotes,
		patient.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	return nil
}

func (r *patientRepository) ListAll(ctx context.Context) ([]*model.Patient, error) {
	query := `SELECT * FROM patients ORDER BY created_at`
	var patients []*model.Patient
	err := r.GetDB().SelectContext(ctx, &patients, query)
	return patients, err
}

func (r *patientRepository) ListByAccess(ctx context.Context, ownerID uuid.UUID, email string) ([]*model.Patient, error) {
	// Owned patients plus patients whose allow-list carries the email,
	// either exact or case-folded. De-duplicated by id.
	query := `
		SELECT DISTINCT ON (id) * FROM patients
		WHERE owner_id = $1
		   OR $2 = ANY(allowed_emails)
		   OR LOWER($2) = ANY(SELECT LOWER(e) FROM unnest(allowed_emails) AS e)
		ORDER BY id, created_at
	`
	var patients []*model.Patient
	err := r.GetDB().SelectContext(ctx, &patients, query, ownerID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list accessible patients: %w", err)
	}
	return patients, nil
}
