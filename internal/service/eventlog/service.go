package eventlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/omsorg/care-api/internal/model"
	"github.com/omsorg/care-api/internal/repository"
	"github.com/omsorg/care-api/internal/service/session"
	apperrors "github.com/omsorg/care-api/pkg/errors"
	"github.com/omsorg/care-api/pkg/logger"
)

// Service owns the append-only event log: dose records, bodily events,
// vitals and diary notes. Entries are immutable; corrections are delete
// plus re-append.
type Service struct {
	repo   repository.LogEntryRepository
	fanout *session.Fanout
	loc    *time.Location
	logger *logger.Logger
}

func NewService(repo repository.LogEntryRepository, fanout *session.Fanout, loc *time.Location, logger *logger.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{repo: repo, fanout: fanout, loc: loc, logger: logger}
}

// Append records one entry. The caller's identity is taken from the session,
// never from the payload; any client-supplied ID is discarded.
func (s *Service) Append(ctx context.Context, patientID uuid.UUID, entry *model.LogEntry) (*model.LogEntry, error) {
	user, ok := session.UserFrom(ctx)
	if !ok {
		return nil, apperrors.Unauthenticated("no active session")
	}
	if patientID == uuid.Nil {
		return nil, apperrors.BadRequest("no active patient", nil)
	}
	if entry.Type == "" {
		return nil, apperrors.BadRequest("log entry type is required", nil)
	}

	entry.ID = uuid.New()
	entry.PatientID = patientID
	entry.LoggedBy = user.Name

	at := time.Now()
	if entry.Timestamp > 0 {
		at = entry.At()
	}
	entry.Stamp(at, s.loc)

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append log entry: %w", err)
	}

	s.fanout.Publish(ctx, patientID, session.CollectionLogs, "created", entry)
	return entry, nil
}

// Delete removes one entry; the realtime mirror is updated for all sessions.
func (s *Service) Delete(ctx context.Context, patientID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, patientID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("log entry", err)
		}
		return fmt.Errorf("failed to delete log entry: %w", err)
	}
	s.fanout.Publish(ctx, patientID, session.CollectionLogs, "deleted", id)
	return nil
}

// ListByDay returns the entries of one calendar day in the service's
// location, ordered by timestamp.
func (s *Service) ListByDay(ctx context.Context, patientID uuid.UUID, day time.Time, ascending bool) ([]*model.LogEntry, error) {
	fromMs, toMs := DayRange(day, s.loc)
	entries, err := s.repo.ListBetween(ctx, patientID, fromMs, toMs, ascending)
	if err != nil {
		return nil, fmt.Errorf("failed to list log entries: %w", err)
	}
	return entries, nil
}

// QueryByNameInWindow returns same-day entries of a type and name whose
// clock hour lies within windowHours of at. The distance is the plain hour
// difference within the day; an entry just before midnight is never close
// to a time just after it.
func (s *Service) QueryByNameInWindow(ctx context.Context, patientID uuid.UUID, typ model.LogType, name string, at time.Time, windowHours float64) ([]*model.LogEntry, error) {
	entries, err := s.ListByDay(ctx, patientID, at, true)
	if err != nil {
		return nil, err
	}

	local := at.In(s.loc)
	target := float64(local.Hour()) + float64(local.Minute())/60

	var matched []*model.LogEntry
	for _, entry := range entries {
		if entry.Type != typ || entry.Name != name {
			continue
		}
		when := entry.At().In(s.loc)
		hour := float64(when.Hour()) + float64(when.Minute())/60
		if abs(hour-target) <= windowHours {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

// LatestByTypeAndName returns the most recent matching entry or nil.
func (s *Service) LatestByTypeAndName(ctx context.Context, patientID uuid.UUID, typ model.LogType, name string) (*model.LogEntry, error) {
	entry, err := s.repo.LatestByTypeAndName(ctx, patientID, typ, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest log entry: %w", err)
	}
	return entry, nil
}

// DayRange returns the [from, to) epoch-millisecond bounds of day in loc.
func DayRange(day time.Time, loc *time.Location) (int64, int64) {
	local := day.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start.UnixMilli(), start.AddDate(0, 0, 1).UnixMilli()
}

// HourDistance is the absolute distance in hours between two HH:MM clock
// strings, with no wrap across midnight.
func HourDistance(a, b string) (float64, error) {
	ha, err := clockHours(a)
	if err != nil {
		return 0, err
	}
	hb, err := clockHours(b)
	if err != nil {
		return 0, err
	}
	return abs(ha - hb), nil
}

func clockHours(hhmm string) (float64, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", hhmm, err)
	}
	return float64(t.Hour()) + float64(t.Minute())/60, nil
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
