package plan

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omsorg/care-api/internal/model"
	"github.com/omsorg/care-api/internal/service/session"
	apperrors "github.com/omsorg/care-api/pkg/errors"
	"github.com/omsorg/care-api/pkg/logger"
)

type fakePlanRepo struct {
	plans map[uuid.UUID]*model.CustomPlan
}

func newFakePlanRepo() *fakePlanRepo {
	return &fakePlanRepo{plans: make(map[uuid.UUID]*model.CustomPlan)}
}

func (f *fakePlanRepo) Create(_ context.Context, p *model.CustomPlan) error {
	f.plans[p.ID] = p
	return nil
}

func (f *fakePlanRepo) Get(_ context.Context, patientID, id uuid.UUID) (*model.CustomPlan, error) {
	p, ok := f.plans[id]
	if !ok || p.PatientID != patientID {
		return nil, sql.ErrNoRows
	}
	return p, nil
}

func (f *fakePlanRepo) Delete(_ context.Context, patientID, id uuid.UUID) error {
	p, ok := f.plans[id]
	if !ok || p.PatientID != patientID {
		return sql.ErrNoRows
	}
	delete(f.plans, id)
	return nil
}

func (f *fakePlanRepo) List(_ context.Context, patientID uuid.UUID) ([]*model.CustomPlan, error) {
	var out []*model.CustomPlan
	for _, p := range f.plans {
		if p.PatientID == patientID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeReminderCreator struct {
	reminders []*model.Reminder
}

func (f *fakeReminderCreator) CreateForced(_ context.Context, patientID uuid.UUID, r *model.Reminder) (*model.Reminder, error) {
	r.ID = uuid.New()
	r.PatientID = patientID
	f.reminders = append(f.reminders, r)
	return r, nil
}

func (f *fakeReminderCreator) List(_ context.Context, patientID uuid.UUID) ([]*model.Reminder, error) {
	var out []*model.Reminder
	for _, r := range f.reminders {
		if r.PatientID == patientID {
			out = append(out, r)
		}
	}
	return out, nil
}

func testContext() context.Context {
	return session.WithUser(context.Background(), &model.User{
		ID: uuid.New(), Email: "mamma@example.com", Name: "Mamma",
	})
}

func newTestService(t *testing.T) (*Service, *fakeReminderCreator) {
	t.Helper()
	creator := &fakeReminderCreator{}
	return NewService(newFakePlanRepo(), creator, nil, logger.NewLogger(nil)), creator
}

func TestCreateValidatesMedicines(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(testContext(), uuid.New(), &model.CustomPlan{
		Name:      "Morgenplan",
		Medicines: model.PlanMedicines{{Name: "Nexium", Time: "99:99"}},
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))
}

func TestActivateSkipsExistingDuplicates(t *testing.T) {
	svc, creator := newTestService(t)
	patientID := uuid.New()
	ctx := testContext()

	creator.reminders = append(creator.reminders, &model.Reminder{
		ID: uuid.New(), PatientID: patientID, Name: "Nexium", Time: "08:00",
	})

	plan, err := svc.Create(ctx, patientID, &model.CustomPlan{
		Name: "Morgenplan",
		Medicines: model.PlanMedicines{
			{Name: "Nexium", Time: "08:00"},  // already present, skipped
			{Name: "Bactrim", Time: "08:00"}, // new
			{Name: "Nexium", Time: "20:00"},  // same name, new time
		},
	})
	require.NoError(t, err)

	created, err := svc.Activate(ctx, patientID, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Len(t, creator.reminders, 3)

	// Re-activation inserts nothing new.
	created, err = svc.Activate(ctx, patientID, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Len(t, creator.reminders, 3)
}

func TestActivateUnknownPlan(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Activate(testContext(), uuid.New(), uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestCalendarFeed(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Oslo")
	require.NoError(t, err)

	plan := &model.CustomPlan{
		ID:   uuid.New(),
		Name: "Morgenplan",
		Medicines: model.PlanMedicines{
			{Name: "Nexium", Time: "08:00"},
			{Name: "Bactrim", Time: "20:30"},
		},
	}

	now := time.Date(2026, 8, 25, 12, 0, 0, 0, loc)
	feed := Calendar(plan, loc, now)

	assert.True(t, strings.HasPrefix(feed, "BEGIN:VCALENDAR\r\n"))
	assert.True(t, strings.HasSuffix(feed, "END:VCALENDAR\r\n"))
	assert.Equal(t, 2, strings.Count(feed, "BEGIN:VEVENT"))
	assert.Equal(t, 2, strings.Count(feed, "RRULE:FREQ=DAILY"))

	// Stable UID per plan and medicine index.
	assert.Contains(t, feed, fmt.Sprintf("UID:%s-0@care-api", plan.ID))
	assert.Contains(t, feed, fmt.Sprintf("UID:%s-1@care-api", plan.ID))
	assert.Equal(t, feed, Calendar(plan, loc, now), "feed is deterministic")

	// Local-time DTSTART at the configured time of day.
	assert.Contains(t, feed, "DTSTART;TZID=Europe/Oslo:20260825T080000")
	assert.Contains(t, feed, "DTSTART;TZID=Europe/Oslo:20260825T203000")

	// One at-time and one 15-minutes-before alarm per event.
	assert.Equal(t, 4, strings.Count(feed, "BEGIN:VALARM"))
	assert.Equal(t, 2, strings.Count(feed, "TRIGGER:-PT15M"))
	assert.Equal(t, 2, strings.Count(feed, "TRIGGER:PT0M"))
}
