package patient

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/omsorg/care-api/internal/model"
	"github.com/omsorg/care-api/internal/repository"
	apperrors "github.com/omsorg/care-api/pkg/errors"
	"github.com/omsorg/care-api/pkg/logger"
)

// Service manages patient records. There is no delete path: patient data
// outlives any single caregiver's involvement.
type Service struct {
	repo   repository.PatientRepository
	logger *logger.Logger
}

func NewService(repo repository.PatientRepository, logger *logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Create registers a patient owned by the calling user. The owner's email is
// seeded into the allow-list so ownership transfer never strands access.
func (s *Service) Create(ctx context.Context, user *model.User, patient *model.Patient) (*model.Patient, error) {
	if patient.Name == "" {
		return nil, apperrors.BadRequest("patient name is required", nil)
	}

	patient.ID = uuid.New()
	patient.OwnerID = user.ID
	patient.AllowedEmails = pq.StringArray{user.Email}

	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}

	s.logger.Info("patient created",
		"patient_id", patient.ID.String(), "owner_id", user.ID.String())
	return patient, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("patient", err)
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return patient, nil
}

// Update rewrites the patient's metadata. Only the owner or an administrator
// may change it; the allow-list is managed through the access flow and is
// never overwritten here.
func (s *Service) Update(ctx context.Context, user *model.User, updated *model.Patient) (*model.Patient, error) {
	current, err := s.Get(ctx, updated.ID)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin && current.OwnerID != user.ID {
		return nil, apperrors.Unauthorized(nil)
	}

	current.Name = updated.Name
	current.Description = updated.Description
	current.Needs = updated.Needs
	current.BirthDate = updated.BirthDate
	current.MedicationNotes = updated.MedicationNotes

	if err := s.repo.Update(ctx, current); err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}
	return current, nil
}
