package eventlog

import (
	"context"
	"database/sql"
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

type fakeLogRepo struct {
	entries map[uuid.UUID]*model.LogEntry
}

func newFakeLogRepo() *fakeLogRepo {
	return &fakeLogRepo{entries: make(map[uuid.UUID]*model.LogEntry)}
}

func (f *fakeLogRepo) Create(_ context.Context, e *model.LogEntry) error {
	f.entries[e.ID] = e
	return nil
}

func (f *fakeLogRepo) Delete(_ context.Context, patientID, id uuid.UUID) error {
	e, ok := f.entries[id]
	if !ok || e.PatientID != patientID {
		return sql.ErrNoRows
	}
	delete(f.entries, id)
	return nil
}

func (f *fakeLogRepo) ListBetween(_ context.Context, patientID uuid.UUID, fromMs, toMs int64, ascending bool) ([]*model.LogEntry, error) {
	var out []*model.LogEntry
	for _, e := range f.entries {
		if e.PatientID == patientID && e.Timestamp >= fromMs && e.Timestamp < toMs {
			out = append(out, e)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			less := out[i].Timestamp < out[j].Timestamp
			if less != ascending {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (f *fakeLogRepo) LatestByTypeAndName(_ context.Context, patientID uuid.UUID, typ model.LogType, name string) (*model.LogEntry, error) {
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

func testContext() context.Context {
	return session.WithUser(context.Background(), &model.User{
		ID: uuid.New(), Email: "mamma@example.com", Name: "Mamma",
	})
}

func newTestService(t *testing.T) (*Service, *fakeLogRepo, *time.Location) {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Oslo")
	require.NoError(t, err)
	repo := newFakeLogRepo()
	return NewService(repo, nil, loc, logger.NewLogger(nil)), repo, loc
}

func TestAppendStampsSessionIdentity(t *testing.T) {
	svc, _, loc := newTestService(t)
	patientID := uuid.New()

	at := time.Date(2026, 8, 25, 14, 30, 0, 0, loc)
	entry, err := svc.Append(testContext(), patientID, &model.LogEntry{
		ID:        uuid.New(), // client-supplied id is discarded
		Type:      model.LogTypeMedicine,
		Name:      "Nexium",
		Timestamp: at.UnixMilli(),
	})
	require.NoError(t, err)

	assert.Equal(t, "Mamma", entry.LoggedBy)
	assert.Equal(t, patientID, entry.PatientID)
	assert.Equal(t, at.UnixMilli(), entry.Timestamp)
	assert.Equal(t, "2026-08-25T14:30", entry.Time, "display time derived in local calendar")
}

func TestAppendRegeneratesID(t *testing.T) {
	svc, _, _ := newTestService(t)

	clientID := uuid.New()
	entry, err := svc.Append(testContext(), uuid.New(), &model.LogEntry{
		ID:   clientID,
		Type: model.LogTypeDiary,
	})
	require.NoError(t, err)
	assert.NotEqual(t, clientID, entry.ID)
}

func TestAppendRequiresSession(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Append(context.Background(), uuid.New(), &model.LogEntry{Type: model.LogTypeDiary})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthenticated))
}

func TestDeleteAbsentEntryIsNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.Delete(testContext(), uuid.New(), uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestListByDayBoundaries(t *testing.T) {
	svc, _, loc := newTestService(t)
	patientID := uuid.New()
	ctx := testContext()

	stamps := []time.Time{
		time.Date(2026, 8, 24, 23, 59, 0, 0, loc),
		time.Date(2026, 8, 25, 0, 0, 0, 0, loc),
		time.Date(2026, 8, 25, 23, 59, 0, 0, loc),
		time.Date(2026, 8, 26, 0, 0, 0, 0, loc),
	}
	for _, at := range stamps {
		_, err := svc.Append(ctx, patientID, &model.LogEntry{
			Type: model.LogTypeMedicine, Name: "Nexium", Timestamp: at.UnixMilli(),
		})
		require.NoError(t, err)
	}

	day := time.Date(2026, 8, 25, 12, 0, 0, 0, loc)
	entries, err := svc.ListByDay(ctx, patientID, day, true)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2026-08-25T00:00", entries[0].Time)
	assert.Equal(t, "2026-08-25T23:59", entries[1].Time)
}

func TestQueryByNameInWindowNoMidnightWrap(t *testing.T) {
	svc, _, loc := newTestService(t)
	patientID := uuid.New()
	ctx := testContext()

	// 23:00 entry on the reference day.
	_, err := svc.Append(ctx, patientID, &model.LogEntry{
		Type: model.LogTypeMedicine, Name: "Nexium",
		Timestamp: time.Date(2026, 8, 25, 23, 0, 0, 0, loc).UnixMilli(),
	})
	require.NoError(t, err)

	// Reference 01:00 the next day: only 2 clock hours away, but the hour
	// distance is computed within the day, so nothing matches.
	ref := time.Date(2026, 8, 26, 1, 0, 0, 0, loc)
	matched, err := svc.QueryByNameInWindow(ctx, patientID, model.LogTypeMedicine, "Nexium", ref, 3)
	require.NoError(t, err)
	assert.Empty(t, matched)
}

func TestQueryByNameInWindowSameDay(t *testing.T) {
	svc, _, loc := newTestService(t)
	patientID := uuid.New()
	ctx := testContext()

	for _, at := range []time.Time{
		time.Date(2026, 8, 25, 8, 0, 0, 0, loc),
		time.Date(2026, 8, 25, 19, 30, 0, 0, loc),
	} {
		_, err := svc.Append(ctx, patientID, &model.LogEntry{
			Type: model.LogTypeMedicine, Name: "Nexium", Timestamp: at.UnixMilli(),
		})
		require.NoError(t, err)
	}

	ref := time.Date(2026, 8, 25, 20, 0, 0, 0, loc)
	matched, err := svc.QueryByNameInWindow(ctx, patientID, model.LogTypeMedicine, "Nexium", ref, 3)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "2026-08-25T19:30", matched[0].Time)
}

func TestHourDistance(t *testing.T) {
	d, err := HourDistance("08:00", "10:30")
	require.NoError(t, err)
	assert.InDelta(t, 2.5, d, 1e-9)

	d, err = HourDistance("23:00", "01:00")
	require.NoError(t, err)
	assert.InDelta(t, 22, d, 1e-9, "no wrap across midnight")

	_, err = HourDistance("25:00", "01:00")
	assert.Error(t, err)
}
