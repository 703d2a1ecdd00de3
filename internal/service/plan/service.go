package plan

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

// ReminderCreator is the reminder store's forced-insert path; activation has
// its own duplicate handling and must not trip the advisory check twice.
type ReminderCreator interface {
	CreateForced(ctx context.Context, patientID uuid.UUID, reminder *model.Reminder) (*model.Reminder, error)
	List(ctx context.Context, patientID uuid.UUID) ([]*model.Reminder, error)
}

// Service manages custom plans, the reminder bundles a caregiver can
// activate in one action or export as a calendar feed.
type Service struct {
	repo      repository.PlanRepository
	reminders ReminderCreator
	fanout    *session.Fanout
	logger    *logger.Logger
}

func NewService(repo repository.PlanRepository, reminders ReminderCreator, fanout *session.Fanout, logger *logger.Logger) *Service {
	return &Service{repo: repo, reminders: reminders, fanout: fanout, logger: logger}
}

func (s *Service) Create(ctx context.Context, patientID uuid.UUID, plan *model.CustomPlan) (*model.CustomPlan, error) {
	user, ok := session.UserFrom(ctx)
	if !ok {
		return nil, apperrors.Unauthenticated("no active session")
	}
	if plan.Name == "" {
		return nil, apperrors.BadRequest("plan name is required", nil)
	}
	for _, med := range plan.Medicines {
		if med.Name == "" || !validator.IsClockTime(med.Time) {
			return nil, apperrors.BadRequest(fmt.Sprintf("invalid plan medicine %q at %q", med.Name, med.Time), nil)
		}
	}

	plan.ID = uuid.New()
	plan.PatientID = patientID
	plan.CreatedBy = user.Name

	if err := s.repo.Create(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to create plan: %w", err)
	}

	s.fanout.Publish(ctx, patientID, session.CollectionPlans, "created", plan)
	return plan, nil
}

func (s *Service) Get(ctx context.Context, patientID, id uuid.UUID) (*model.CustomPlan, error) {
	plan, err := s.repo.Get(ctx, patientID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("plan", err)
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return plan, nil
}

func (s *Service) List(ctx context.Context, patientID uuid.UUID) ([]*model.CustomPlan, error) {
	plans, err := s.repo.List(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

func (s *Service) Delete(ctx context.Context, patientID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, patientID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("plan", err)
		}
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	s.fanout.Publish(ctx, patientID, session.CollectionPlans, "deleted", id)
	return nil
}

// Activate inserts one reminder per plan medicine, skipping exact name+time
// duplicates already present. Returns how many reminders were created.
func (s *Service) Activate(ctx context.Context, patientID, id uuid.UUID) (int, error) {
	plan, err := s.Get(ctx, patientID, id)
	if err != nil {
		return 0, err
	}

	existing, err := s.reminders.List(ctx, patientID)
	if err != nil {
		return 0, err
	}
	present := make(map[string]bool, len(existing))
	for _, r := range existing {
		present[r.Name+"\x00"+r.Time] = true
	}

	created := 0
	for _, med := range plan.Medicines {
		if present[med.Name+"\x00"+med.Time] {
			continue
		}
		reminder := &model.Reminder{Name: med.Name, Time: med.Time}
		if _, err := s.reminders.CreateForced(ctx, patientID, reminder); err != nil {
			return created, fmt.Errorf("failed to activate plan %s: %w", plan.Name, err)
		}
		present[med.Name+"\x00"+med.Time] = true
		created++
	}

	s.logger.Info("plan activated",
		"plan", plan.Name, "patient_id", patientID.String(), "reminders_created", created)
	return created, nil
}
