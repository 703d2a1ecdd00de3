package checklist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/omsorg/care-api/internal/model"
	"github.com/omsorg/care-api/internal/repository"
	"github.com/omsorg/care-api/internal/service/session"
	apperrors "github.com/omsorg/care-api/pkg/errors"
	"github.com/omsorg/care-api/pkg/logger"
)

// QuickLogNotes marks entries created through the checklist's one-tap flow.
// It is the only thing distinguishing them from manually entered doses.
const QuickLogNotes = "Logget via sjekkliste"

// quickLogCooldown absorbs duplicate taps on the same quick-log button. It
// is a per-action lease, not a guard against concurrent multi-device writes.
const quickLogCooldown = 5 * time.Second

// Appender is the write side of the event log the quick-log flow uses.
type Appender interface {
	Append(ctx context.Context, patientID uuid.UUID, entry *model.LogEntry) (*model.LogEntry, error)
}

type Service struct {
	repo     repository.ChecklistRepository
	appender Appender
	engine   *Engine
	fanout   *session.Fanout
	leases   *cache.Cache
	logger   *logger.Logger
}

func NewService(repo repository.ChecklistRepository, appender Appender, engine *Engine, fanout *session.Fanout, logger *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		appender: appender,
		engine:   engine,
		fanout:   fanout,
		leases:   cache.New(quickLogCooldown, time.Minute),
		logger:   logger,
	}
}

// Create adds a checklist item. A second item with the same name and
// category is refused with an advisory conflict.
func (s *Service) Create(ctx context.Context, patientID uuid.UUID, item *model.ChecklistItem) (*model.ChecklistItem, error) {
	if item.Name == "" {
		return nil, apperrors.BadRequest("checklist item name is required", nil)
	}
	existing, err := s.repo.GetByNameCategory(ctx, patientID, item.Name, item.Category)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check checklist item: %w", err)
	}
	if existing != nil {
		return nil, apperrors.Conflict(fmt.Sprintf("%s already exists in %s", item.Name, item.Category))
	}

	item.ID = uuid.New()
	item.PatientID = patientID
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create checklist item: %w", err)
	}

	s.fanout.Publish(ctx, patientID, session.CollectionChecklist, "created", item)
	return item, nil
}

func (s *Service) Get(ctx context.Context, patientID, id uuid.UUID) (*model.ChecklistItem, error) {
	item, err := s.repo.Get(ctx, patientID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("checklist item", err)
		}
		return nil, fmt.Errorf("failed to get checklist item: %w", err)
	}
	return item, nil
}

func (s *Service) List(ctx context.Context, patientID uuid.UUID) ([]*model.ChecklistItem, error) {
	items, err := s.repo.List(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list checklist items: %w", err)
	}
	return items, nil
}

func (s *Service) Delete(ctx context.Context, patientID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, patientID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("checklist item", err)
		}
		return fmt.Errorf("failed to delete checklist item: %w", err)
	}
	s.fanout.Publish(ctx, patientID, session.CollectionChecklist, "deleted", id)
	return nil
}

// ItemState pairs an item with its derived due state.
type ItemState struct {
	Item  *model.ChecklistItem `json:"item"`
	State string               `json:"state"`
	Count int                  `json:"count,omitempty"`
}

// EvaluateAll lists the patient's checklist with each item's due state at
// now.
func (s *Service) EvaluateAll(ctx context.Context, patientID uuid.UUID, now time.Time) ([]*ItemState, error) {
	items, err := s.repo.List(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list checklist items: %w", err)
	}

	states := make([]*ItemState, 0, len(items))
	for _, item := range items {
		state, err := s.engine.Evaluate(ctx, item, now)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate %s: %w", item.Name, err)
		}
		states = append(states, &ItemState{Item: item, State: state.String(), Count: state.Count})
	}
	return states, nil
}

// LogQuickDose appends a dose entry for the item with the current timestamp.
// A short per-item lease absorbs duplicate taps; a second call within the
// cooldown is refused as a conflict.
func (s *Service) LogQuickDose(ctx context.Context, patientID, itemID uuid.UUID, amount float64, unit string) (*model.LogEntry, error) {
	if amount <= 0 {
		return nil, apperrors.BadRequest("amount must be positive", nil)
	}

	item, err := s.Get(ctx, patientID, itemID)
	if err != nil {
		return nil, err
	}

	lease := fmt.Sprintf("quick_dose:%s:%s", patientID, item.Name)
	if err := s.leases.Add(lease, struct{}{}, quickLogCooldown); err != nil {
		return nil, apperrors.Conflict(fmt.Sprintf("%s is already being logged", item.Name))
	}
	defer s.leases.Delete(lease)

	entry := &model.LogEntry{
		Type:   model.LogTypeMedicine,
		Name:   item.Name,
		Amount: amount,
		Unit:   unit,
		Notes:  QuickLogNotes,
	}
	created, err := s.appender.Append(ctx, patientID, entry)
	if err != nil {
		return nil, err
	}

	if item.Stock != nil {
		if err := s.repo.AdjustStock(ctx, patientID, itemID, -amount); err != nil {
			s.logger.Error(err, "failed to adjust stock", "item", item.Name)
		} else if item.LowOnStock() {
			s.logger.Warn("checklist item low on stock", "item", item.Name, "patient_id", patientID.String())
		}
	}

	s.fanout.Publish(ctx, patientID, session.CollectionChecklist, "logged", created)
	return created, nil
}

// AdjustStock changes the remaining stock by delta, clamped at zero.
func (s *Service) AdjustStock(ctx context.Context, patientID, id uuid.UUID, delta float64) error {
	if err := s.repo.AdjustStock(ctx, patientID, id, delta); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("checklist item", err)
		}
		return fmt.Errorf("failed to adjust stock: %w", err)
	}
	s.fanout.Publish(ctx, patientID, session.CollectionChecklist, "updated", id)
	return nil
}
