package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omsorg/care-api/internal/model"
	"github.com/omsorg/care-api/pkg/logger"
)

type firedRecorder struct {
	mu    sync.Mutex
	fired []model.Reminder
}

func (r *firedRecorder) fire(reminder model.Reminder, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired = append(r.fired, reminder)
}

func (r *firedRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fired)
}

func newClientFixture(t *testing.T) (*ClientScheduler, *firedRecorder, *time.Location) {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Oslo")
	require.NoError(t, err)
	rec := &firedRecorder{}
	return NewClientScheduler(rec.fire, loc, logger.NewLogger(nil)), rec, loc
}

func TestRebuildArmsFutureTimeToday(t *testing.T) {
	s, _, loc := newClientFixture(t)

	now := time.Date(2026, 8, 25, 10, 0, 0, 0, loc)
	r := &model.Reminder{ID: uuid.New(), Name: "Nexium", Time: "14:30"}
	s.Rebuild([]*model.Reminder{r}, now)

	next, ok := s.NextFire(r.ID)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 8, 25, 14, 30, 0, 0, loc), next)
}

func TestRebuildArmsTomorrowWhenPassed(t *testing.T) {
	s, _, loc := newClientFixture(t)

	now := time.Date(2026, 8, 25, 15, 0, 0, 0, loc)
	r := &model.Reminder{ID: uuid.New(), Name: "Nexium", Time: "14:30"}
	s.Rebuild([]*model.Reminder{r}, now)

	next, ok := s.NextFire(r.ID)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 8, 26, 14, 30, 0, 0, loc), next)
}

func TestRebuildCancelsRemovedReminders(t *testing.T) {
	s, _, loc := newClientFixture(t)

	now := time.Date(2026, 8, 25, 10, 0, 0, 0, loc)
	r := &model.Reminder{ID: uuid.New(), Name: "Nexium", Time: "14:30"}
	s.Rebuild([]*model.Reminder{r}, now)
	assert.Equal(t, 1, s.Pending())

	// Add then immediately delete: zero pending wake-ups remain.
	s.Rebuild(nil, now)
	assert.Equal(t, 0, s.Pending())
	_, ok := s.NextFire(r.ID)
	assert.False(t, ok)
}

func TestRebuildEditReplacesWakeUp(t *testing.T) {
	s, _, loc := newClientFixture(t)

	now := time.Date(2026, 8, 25, 10, 0, 0, 0, loc)
	r := &model.Reminder{ID: uuid.New(), Name: "Nexium", Time: "14:30"}
	s.Rebuild([]*model.Reminder{r}, now)

	edited := &model.Reminder{ID: r.ID, Name: "Nexium", Time: "16:00"}
	s.Rebuild([]*model.Reminder{edited}, now)

	assert.Equal(t, 1, s.Pending(), "exactly one wake-up after an edit")
	next, ok := s.NextFire(r.ID)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 8, 25, 16, 0, 0, 0, loc), next)
}

func TestTickFiresAndRearmsNextDay(t *testing.T) {
	s, rec, loc := newClientFixture(t)

	now := time.Date(2026, 8, 25, 14, 29, 59, 0, loc)
	r := &model.Reminder{ID: uuid.New(), Name: "Nexium", Time: "14:30"}
	s.Rebuild([]*model.Reminder{r}, now)

	s.tick(now)
	assert.Equal(t, 0, rec.count(), "not yet due")

	fireAt := time.Date(2026, 8, 25, 14, 30, 0, 0, loc)
	s.tick(fireAt)
	assert.Equal(t, 1, rec.count())

	// The next tick in the same minute must not fire again.
	s.tick(fireAt.Add(time.Second))
	assert.Equal(t, 1, rec.count())

	next, ok := s.NextFire(r.ID)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 8, 26, 14, 30, 0, 0, loc), next, "re-armed for the following day")

	s.tick(next)
	assert.Equal(t, 2, rec.count())
}

func TestRebuildSkipsInvalidTime(t *testing.T) {
	s, _, loc := newClientFixture(t)

	now := time.Date(2026, 8, 25, 10, 0, 0, 0, loc)
	s.Rebuild([]*model.Reminder{
		{ID: uuid.New(), Name: "Broken", Time: "25:99"},
		{ID: uuid.New(), Name: "Nexium", Time: "14:30"},
	}, now)

	assert.Equal(t, 1, s.Pending())
}
