package reminder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/omsorg/care-api/internal/model"
	"github.com/omsorg/care-api/internal/repository"
	"github.com/omsorg/care-api/internal/service/session"
	apperrors "github.com/omsorg/care-api/pkg/errors"
	"github.com/omsorg/care-api/pkg/logger"
	"github.com/omsorg/care-api/pkg/validator"
)

// Service manages per-patient daily reminders. The duplicate check at
// creation is advisory: the caller surfaces the conflict as a warning and
// may insert anyway through CreateForced.
type Service struct {
	repo   repository.ReminderRepository
	fanout *session.Fanout
	logger *logger.Logger
}

func NewService(repo repository.ReminderRepository, fanout *session.Fanout, logger *logger.Logger) *Service {
	return &Service{repo: repo, fanout: fanout, logger: logger}
}

// Create inserts a reminder after an advisory duplicate check. A same
// name+time duplicate yields a Conflict the handler renders as a warning.
func (s *Service) Create(ctx context.Context, patientID uuid.UUID, reminder *model.Reminder) (*model.Reminder, error) {
	if err := s.validate(reminder); err != nil {
		return nil, err
	}

	exists, err := s.repo.Exists(ctx, patientID, reminder.Name, reminder.Time)
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicate reminder: %w", err)
	}
	if exists {
		return nil, apperrors.Conflict(fmt.Sprintf("reminder %s at %s already exists", reminder.Name, reminder.Time))
	}
	return s.insert(ctx, patientID, reminder)
}

// CreateForced inserts without the duplicate check, for callers that have
// already shown the warning and been told to proceed.
func (s *Service) CreateForced(ctx context.Context, patientID uuid.UUID, reminder *model.Reminder) (*model.Reminder, error) {
	if err := s.validate(reminder); err != nil {
		return nil, err
	}
	return s.insert(ctx, patientID, reminder)
}

func (s *Service) validate(reminder *model.Reminder) error {
	if reminder.Name == "" {
		return apperrors.BadRequest("reminder name is required", nil)
	}
	if !validator.IsClockTime(reminder.Time) {
		return apperrors.BadRequest(fmt.Sprintf("invalid reminder time %q", reminder.Time), nil)
	}
	return nil
}

func (s *Service) insert(ctx context.Context, patientID uuid.UUID, reminder *model.Reminder) (*model.Reminder, error) {
	user, ok := session.UserFrom(ctx)
	if !ok {
		return nil, apperrors.Unauthenticated("no active session")
	}

	reminder.ID = uuid.New()
	reminder.PatientID = patientID
	reminder.CreatedBy = user.Name

	if err := s.repo.Create(ctx, reminder); err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}

	s.fanout.Publish(ctx, patientID, session.CollectionReminders, "created", reminder)
	return reminder, nil
}

func (s *Service) Get(ctx context.Context, patientID, id uuid.UUID) (*model.Reminder, error) {
	reminder, err := s.repo.Get(ctx, patientID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("reminder", err)
		}
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	return reminder, nil
}

// Update rewrites the reminder's name and time.
func (s *Service) Update(ctx context.Context, patientID uuid.UUID, reminder *model.Reminder) (*model.Reminder, error) {
	if err := s.validate(reminder); err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, patientID, reminder.ID)
	if err != nil {
		return nil, err
	}

	current.Name = reminder.Name
	current.Time = reminder.Time
	if err := s.repo.Update(ctx, current); err != nil {
		return nil, fmt.Errorf("failed to update reminder: %w", err)
	}

	s.fanout.Publish(ctx, patientID, session.CollectionReminders, "updated", current)
	return current, nil
}

func (s *Service) Delete(ctx context.Context, patientID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, patientID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("reminder", err)
		}
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	s.fanout.Publish(ctx, patientID, session.CollectionReminders, "deleted", id)
	return nil
}

func (s *Service) List(ctx context.Context, patientID uuid.UUID) ([]*model.Reminder, error) {
	reminders, err := s.repo.List(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	return reminders, nil
}
