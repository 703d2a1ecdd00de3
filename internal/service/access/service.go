package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/omsorg/care-api/internal/model"
	"github.com/omsorg/care-api/internal/repository"
	apperrors "github.com/omsorg/care-api/pkg/errors"
	"github.com/omsorg/care-api/pkg/logger"
)

// Service evaluates who may read and write a patient's data and manages the
// invite/approve flow that grants shared access.
type Service struct {
	patients repository.PatientRepository
	requests repository.AccessRequestRepository
	logger   *logger.Logger
}

func NewService(patients repository.PatientRepository, requests repository.AccessRequestRepository, logger *logger.Logger) *Service {
	return &Service{patients: patients, requests: requests, logger: logger}
}

// CanRead reports whether the user may read the patient's data: super
// administrators, the owner, and anyone on the allow-list.
func (s *Service) CanRead(user *model.User, patient *model.Patient) bool {
	if user == nil || patient == nil {
		return false
	}
	if user.IsAdmin {
		return true
	}
	if patient.OwnerID == user.ID {
		return true
	}
	return patient.EmailAllowed(user.Email)
}

// CanWrite uses the same rule as CanRead: shared access is full access.
func (s *Service) CanWrite(user *model.User, patient *model.Patient) bool {
	return s.CanRead(user, patient)
}

// Authorize loads the patient and checks access in one step.
func (s *Service) Authorize(ctx context.Context, user *model.User, patientID uuid.UUID) (*model.Patient, error) {
	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("patient", err)
		}
		return nil, fmt.Errorf("failed to load patient: %w", err)
	}
	if !s.CanRead(user, patient) {
		return nil, apperrors.Unauthorized(nil)
	}
	return patient, nil
}

// RequestAccess files a pending access request for a patient the user does
// not yet have access to. Duplicate requests are tolerated; the owner's view
// simply shows both.
func (s *Service) RequestAccess(ctx context.Context, user *model.User, patientID uuid.UUID) (*model.AccessRequest, error) {
	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("patient", err)
		}
		return nil, fmt.Errorf("failed to load patient: %w", err)
	}

	req := &model.AccessRequest{
		ID:        uuid.New(),
		PatientID: patient.ID,
		UserID:    user.ID,
		UserEmail: user.Email,
		UserName:  user.Name,
		Status:    model.AccessRequestPending,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create access request: %w", err)
	}

	s.logger.Info("access requested",
		"patient_id", patient.ID.String(), "user_email", user.Email)
	return req, nil
}

// ListPending returns the patient's unresolved requests, owner-only.
func (s *Service) ListPending(ctx context.Context, user *model.User, patientID uuid.UUID) ([]*model.AccessRequest, error) {
	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("patient", err)
		}
		return nil, fmt.Errorf("failed to load patient: %w", err)
	}
	if !user.IsAdmin && patient.OwnerID != user.ID {
		return nil, apperrors.Unauthorized(nil)
	}
	return s.requests.ListPending(ctx, patientID)
}

// Approve grants the requester allow-list access and resolves the request.
// The allow-list append and the status change commit together or not at all.
func (s *Service) Approve(ctx context.Context, user *model.User, patientID, requestID uuid.UUID) error {
	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("patient", err)
		}
		return fmt.Errorf("failed to load patient: %w", err)
	}
	if !user.IsAdmin && patient.OwnerID != user.ID {
		return apperrors.Unauthorized(nil)
	}

	req, err := s.requests.Get(ctx, patientID, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("access request", err)
		}
		return fmt.Errorf("failed to load access request: %w", err)
	}

	if err := s.requests.Approve(ctx, patientID, requestID, req.UserEmail, time.Now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("pending access request", err)
		}
		return fmt.Errorf("failed to approve access request: %w", err)
	}

	s.logger.Info("access approved",
		"patient_id", patientID.String(), "user_email", req.UserEmail)
	return nil
}

// Deny resolves the request without touching the allow-list.
func (s *Service) Deny(ctx context.Context, user *model.User, patientID, requestID uuid.UUID) error {
	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("patient", err)
		}
		return fmt.Errorf("failed to load patient: %w", err)
	}
	if !user.IsAdmin && patient.OwnerID != user.ID {
		return apperrors.Unauthorized(nil)
	}

	if err := s.requests.Deny(ctx, patientID, requestID, time.Now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("pending access request", err)
		}
		return fmt.Errorf("failed to deny access request: %w", err)
	}
	return nil
}

// ListAccessible returns every patient the user may see: owned, shared via
// allow-list, or all of them for a super administrator.
func (s *Service) ListAccessible(ctx context.Context, user *model.User) ([]*model.Patient, error) {
	if user.IsAdmin {
		return s.patients.ListAll(ctx)
	}
	return s.patients.ListByAccess(ctx, user.ID, user.Email)
}
