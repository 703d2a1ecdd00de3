package checklist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/omsorg/care-api/internal/model"
)

// WindowHours is the tolerance around a scheduled time within which a logged
// dose counts for that slot. It keeps a morning dose from satisfying an
// evening slot when the same drug appears in both categories.
const WindowHours = 3

type DueKind int

const (
	Hidden DueKind = iota
	Due
	Logged
)

// DueState is the derived status of one checklist item at a given instant.
type DueState struct {
	Kind  DueKind
	Count int
}

func (s DueState) String() string {
	switch s.Kind {
	case Hidden:
		return "hidden"
	case Due:
		return "due"
	default:
		return fmt.Sprintf("logged(%d)", s.Count)
	}
}

// EventSource is the slice of the event log the engine reads.
type EventSource interface {
	ListByDay(ctx context.Context, patientID uuid.UUID, day time.Time, ascending bool) ([]*model.LogEntry, error)
	LatestByTypeAndName(ctx context.Context, patientID uuid.UUID, typ model.LogType, name string) (*model.LogEntry, error)
}

// Engine recomputes due states from scratch on every call. Nothing is cached
// or incrementally maintained: the state is always derivable from the event
// log, the item definitions and the clock, so deleting a stale log entry
// immediately un-marks an item as given.
type Engine struct {
	events EventSource
	loc    *time.Location
}

func NewEngine(events EventSource, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{events: events, loc: loc}
}

// Evaluate computes the due state of one item at now.
func (e *Engine) Evaluate(ctx context.Context, item *model.ChecklistItem, now time.Time) (DueState, error) {
	local := now.In(e.loc)

	if item.Schedule == model.ScheduleWeekendOnly && !isWeekend(local) {
		return DueState{Kind: Hidden}, nil
	}

	if n, ok := model.EveryNDays(item.Schedule); ok {
		last, err := e.events.LatestByTypeAndName(ctx, item.PatientID, model.LogTypeMedicine, item.Name)
		if err != nil {
			return DueState{}, err
		}
		if last == nil {
			return DueState{Kind: Due}, nil
		}
		days := int(now.Sub(last.At()).Hours() / 24)
		if days >= n {
			return DueState{Kind: Due}, nil
		}
		return DueState{Kind: Hidden}, nil
	}

	entries, err := e.events.ListByDay(ctx, item.PatientID, local, true)
	if err != nil {
		return DueState{}, err
	}

	count := 0
	for _, entry := range entries {
		if entry.Type != model.LogTypeMedicine || entry.Name != item.Name {
			continue
		}
		if len(item.Times) == 0 {
			count++
			continue
		}
		if e.nearAnySlot(entry, item.Times) {
			count++
		}
	}

	if count > 0 {
		return DueState{Kind: Logged, Count: count}, nil
	}
	return DueState{Kind: Due}, nil
}

// nearAnySlot reports whether the entry's local clock hour is within
// WindowHours of any scheduled slot. The distance is the plain hour
// difference within the day; midnight does not wrap.
func (e *Engine) nearAnySlot(entry *model.LogEntry, slots []string) bool {
	when := entry.At().In(e.loc)
	hour := float64(when.Hour()) + float64(when.Minute())/60
	for _, slot := range slots {
		t, err := time.Parse("15:04", slot)
		if err != nil {
			continue
		}
		slotHour := float64(t.Hour()) + float64(t.Minute())/60
		d := hour - slotHour
		if d < 0 {
			d = -d
		}
		if d <= WindowHours {
			return true
		}
	}
	return false
}

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}
