package checklist

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omsorg/care-api/internal/model"
)

type fakeEventSource struct {
	entries []*model.LogEntry
}

func (f *fakeEventSource) ListByDay(_ context.Context, patientID uuid.UUID, day time.Time, _ bool) ([]*model.LogEntry, error) {
	loc := day.Location()
	local := day.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)

	var out []*model.LogEntry
	for _, e := range f.entries {
		if e.PatientID != patientID {
			continue
		}
		at := e.At()
		if !at.Before(start) && at.Before(end) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEventSource) LatestByTypeAndName(_ context.Context, patientID uuid.UUID, typ model.LogType, name string) (*model.LogEntry, error) {
	var latest *model.LogEntry
	for _, e := range f.entries {
		if e.PatientID != patientID || e.Type != typ || e.Name != name {
			continue
		}
		if latest == nil || e.Timestamp > latest.Timestamp {
			latest = e
		}
	}
	return latest, nil
}

func (f *fakeEventSource) add(patientID uuid.UUID, name string, at time.Time) *model.LogEntry {
	entry := &model.LogEntry{
		ID:        uuid.New(),
		PatientID: patientID,
		Type:      model.LogTypeMedicine,
		Name:      name,
	}
	entry.Stamp(at, at.Location())
	f.entries = append(f.entries, entry)
	return entry
}

func (f *fakeEventSource) remove(id uuid.UUID) {
	for i, e := range f.entries {
		if e.ID == id {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return
		}
	}
}

func mustLoadOslo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Oslo")
	require.NoError(t, err)
	return loc
}

func TestEvaluateWeekendOnly(t *testing.T) {
	loc := mustLoadOslo(t)
	events := &fakeEventSource{}
	engine := NewEngine(events, loc)
	patientID := uuid.New()

	item := &model.ChecklistItem{
		PatientID: patientID,
		Name:      "Bactrim",
		Category:  model.CategoryDay,
		Schedule:  model.ScheduleWeekendOnly,
		Times:     pq.StringArray{"08:00"},
	}

	// 2026-08-25 is a Tuesday.
	tuesday := time.Date(2026, 8, 25, 9, 0, 0, 0, loc)
	state, err := engine.Evaluate(context.Background(), item, tuesday)
	require.NoError(t, err)
	assert.Equal(t, Hidden, state.Kind)

	saturday := time.Date(2026, 8, 29, 9, 0, 0, 0, loc)
	state, err = engine.Evaluate(context.Background(), item, saturday)
	require.NoError(t, err)
	assert.Equal(t, Due, state.Kind)

	events.add(patientID, "Bactrim", time.Date(2026, 8, 29, 7, 45, 0, 0, loc))
	state, err = engine.Evaluate(context.Background(), item, saturday)
	require.NoError(t, err)
	assert.Equal(t, Logged, state.Kind)
	assert.Equal(t, 1, state.Count)
}

func TestEvaluateWeekendBoundary(t *testing.T) {
	loc := mustLoadOslo(t)
	engine := NewEngine(&fakeEventSource{}, loc)

	item := &model.ChecklistItem{
		PatientID: uuid.New(),
		Name:      "Bactrim",
		Schedule:  model.ScheduleWeekendOnly,
		Times:     pq.StringArray{"08:00"},
	}

	// 2026-08-28 is a Friday.
	friday := time.Date(2026, 8, 28, 23, 59, 0, 0, loc)
	state, err := engine.Evaluate(context.Background(), item, friday)
	require.NoError(t, err)
	assert.Equal(t, Hidden, state.Kind)

	saturday := time.Date(2026, 8, 29, 0, 0, 0, 0, loc)
	state, err = engine.Evaluate(context.Background(), item, saturday)
	require.NoError(t, err)
	assert.Equal(t, Due, state.Kind)
}

func TestEvaluateEveryNDaysCycle(t *testing.T) {
	loc := mustLoadOslo(t)
	events := &fakeEventSource{}
	engine := NewEngine(events, loc)
	patientID := uuid.New()

	item := &model.ChecklistItem{
		PatientID: patientID,
		Name:      "Palonosetron",
		Schedule:  "every3days",
	}

	now := time.Date(2026, 8, 25, 12, 0, 0, 0, loc)

	state, err := engine.Evaluate(context.Background(), item, now)
	require.NoError(t, err)
	assert.Equal(t, Due, state.Kind, "never logged means due immediately")

	events.add(patientID, "Palonosetron", now)
	state, err = engine.Evaluate(context.Background(), item, now)
	require.NoError(t, err)
	assert.Equal(t, Hidden, state.Kind, "just logged means hidden")

	state, err = engine.Evaluate(context.Background(), item, now.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, Hidden, state.Kind)

	state, err = engine.Evaluate(context.Background(), item, now.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Equal(t, Due, state.Kind, "due again after exactly 3 days")
}

func TestEvaluateHourWindow(t *testing.T) {
	loc := mustLoadOslo(t)
	events := &fakeEventSource{}
	engine := NewEngine(events, loc)
	patientID := uuid.New()

	item := &model.ChecklistItem{
		PatientID: patientID,
		Name:      "Nexium",
		Category:  model.CategoryEvening,
		Times:     pq.StringArray{"20:00"},
	}

	now := time.Date(2026, 8, 25, 21, 0, 0, 0, loc)

	// A morning dose of the same drug must not satisfy the evening slot.
	events.add(patientID, "Nexium", time.Date(2026, 8, 25, 8, 0, 0, 0, loc))
	state, err := engine.Evaluate(context.Background(), item, now)
	require.NoError(t, err)
	assert.Equal(t, Due, state.Kind)

	events.add(patientID, "Nexium", time.Date(2026, 8, 25, 19, 30, 0, 0, loc))
	state, err = engine.Evaluate(context.Background(), item, now)
	require.NoError(t, err)
	assert.Equal(t, Logged, state.Kind)
	assert.Equal(t, 1, state.Count, "only the in-window entry counts")
}

func TestEvaluateDeleteFlipsBackToDue(t *testing.T) {
	loc := mustLoadOslo(t)
	events := &fakeEventSource{}
	engine := NewEngine(events, loc)
	patientID := uuid.New()

	item := &model.ChecklistItem{
		PatientID: patientID,
		Name:      "Nexium",
		Times:     pq.StringArray{"14:30"},
	}

	now := time.Date(2026, 8, 25, 15, 0, 0, 0, loc)
	entry := events.add(patientID, "Nexium", time.Date(2026, 8, 25, 14, 35, 0, 0, loc))

	state, err := engine.Evaluate(context.Background(), item, now)
	require.NoError(t, err)
	assert.Equal(t, Logged, state.Kind)

	events.remove(entry.ID)
	state, err = engine.Evaluate(context.Background(), item, now)
	require.NoError(t, err)
	assert.Equal(t, Due, state.Kind, "removing the only entry un-marks the item")
}

func TestEvaluatePRNIgnoresHours(t *testing.T) {
	loc := mustLoadOslo(t)
	events := &fakeEventSource{}
	engine := NewEngine(events, loc)
	patientID := uuid.New()

	item := &model.ChecklistItem{
		PatientID: patientID,
		Name:      "Paracet",
		Category:  model.CategoryPRN,
	}

	now := time.Date(2026, 8, 25, 22, 0, 0, 0, loc)

	state, err := engine.Evaluate(context.Background(), item, now)
	require.NoError(t, err)
	assert.Equal(t, Due, state.Kind)

	events.add(patientID, "Paracet", time.Date(2026, 8, 25, 3, 0, 0, 0, loc))
	events.add(patientID, "Paracet", time.Date(2026, 8, 25, 16, 0, 0, 0, loc))

	state, err = engine.Evaluate(context.Background(), item, now)
	require.NoError(t, err)
	assert.Equal(t, Logged, state.Kind)
	assert.Equal(t, 2, state.Count, "all of today's entries count without slot matching")
}
