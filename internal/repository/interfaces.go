package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/omsorg/care-api/internal/model"
)

// All repository interfaces in one file
type (
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		UpdateSubscriptions(ctx context.Context, user *model.User) error
		ListMissedDoseSubscribers(ctx context.Context) ([]*model.User, error)
		ListDailyReportSubscribers(ctx context.Context) ([]*model.User, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		// ListAll is used by the super administrator and by the scheduler's
		// cross-tenant sweep; it is the only cross-patient read path.
		ListAll(ctx context.Context) ([]*model.Patient, error)
		ListByAccess(ctx context.Context, ownerID uuid.UUID, email string) ([]*model.Patient, error)
	}

	AccessRequestRepository interface {
		Create(ctx context.Context, req *model.AccessRequest) error
		Get(ctx context.Context, patientID, id uuid.UUID) (*model.AccessRequest, error)
		ListPending(ctx context.Context, patientID uuid.UUID) ([]*model.AccessRequest, error)
		// Approve adds the requester's email to the patient allow-list and
		// marks the request approved in a single transaction.
		Approve(ctx context.Context, patientID, requestID uuid.UUID, email string, processedAt time.Time) error
		Deny(ctx context.Context, patientID, requestID uuid.UUID, processedAt time.Time) error
	}

	LogEntryRepository interface {
		Create(ctx context.Context, entry *model.LogEntry) error
		Delete(ctx context.Context, patientID, id uuid.UUID) error
		// ListBetween returns entries with fromMs <= timestamp < toMs,
		// ordered by timestamp ascending or descending.
		ListBetween(ctx context.Context, patientID uuid.UUID, fromMs, toMs int64, ascending bool) ([]*model.LogEntry, error)
		// LatestByTypeAndName returns the most recent matching entry across
		// the whole log, or nil when none exists.
		LatestByTypeAndName(ctx context.Context, patientID uuid.UUID, typ model.LogType, name string) (*model.LogEntry, error)
	}

	ReminderRepository interface {
		Create(ctx context.Context, reminder *model.Reminder) error
		Get(ctx context.Context, patientID, id uuid.UUID) (*model.Reminder, error)
		Update(ctx context.Context, reminder *model.Reminder) error
		Delete(ctx context.Context, patientID, id uuid.UUID) error
		List(ctx context.Context, patientID uuid.UUID) ([]*model.Reminder, error)
		ListByTime(ctx context.Context, patientID uuid.UUID, hhmm string) ([]*model.Reminder, error)
		Exists(ctx context.Context, patientID uuid.UUID, name, hhmm string) (bool, error)
	}

	ChecklistRepository interface {
		Create(ctx context.Context, item *model.ChecklistItem) error
		Get(ctx context.Context, patientID, id uuid.UUID) (*model.ChecklistItem, error)
		Delete(ctx context.Context, patientID, id uuid.UUID) error
		List(ctx context.Context, patientID uuid.UUID) ([]*model.ChecklistItem, error)
		GetByNameCategory(ctx context.Context, patientID uuid.UUID, name string, category model.ChecklistCategory) (*model.ChecklistItem, error)
		AdjustStock(ctx context.Context, patientID, id uuid.UUID, delta float64) error
	}

	PlanRepository interface {
		Create(ctx context.Context, plan *model.CustomPlan) error
		Get(ctx context.Context, patientID, id uuid.UUID) (*model.CustomPlan, error)
		Delete(ctx context.Context, patientID, id uuid.UUID) error
		List(ctx context.Context, patientID uuid.UUID) ([]*model.CustomPlan, error)
	}

	TokenRepository interface {
		Upsert(ctx context.Context, token *model.DeliveryToken) error
		Delete(ctx context.Context, token string) error
		List(ctx context.Context) ([]*model.DeliveryToken, error)
		Status(ctx context.Context) (count int, latest *time.Time, err error)
	}
)
