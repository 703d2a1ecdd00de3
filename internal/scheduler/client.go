package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/omsorg/care-api/internal/model"
	"github.com/omsorg/care-api/pkg/logger"
)

// FireFunc is invoked when an armed reminder's wall-clock time arrives.
type FireFunc func(reminder model.Reminder, at time.Time)

type armedReminder struct {
	reminder model.Reminder
	next     time.Time
}

// ClientScheduler drives per-session reminder alarms off a steady one-second
// tick instead of long one-shot timers, which are unreliable in a throttled
// client context. Each tick compares every armed reminder against the clock;
// a fired reminder immediately re-arms for the following day.
type ClientScheduler struct {
	mu     sync.Mutex
	armed  map[uuid.UUID]*armedReminder
	fire   FireFunc
	loc    *time.Location
	logger *logger.Logger
}

func NewClientScheduler(fire FireFunc, loc *time.Location, logger *logger.Logger) *ClientScheduler {
	if loc == nil {
		loc = time.Local
	}
	return &ClientScheduler{
		armed:  make(map[uuid.UUID]*armedReminder),
		fire:   fire,
		loc:    loc,
		logger: logger,
	}
}

// Rebuild replaces the full armed set from the current reminder list. Any
// previously scheduled wake-up not in the new list is gone when Rebuild
// returns; there is no window in which old and new wake-ups coexist.
func (s *ClientScheduler) Rebuild(reminders []*model.Reminder, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.armed = make(map[uuid.UUID]*armedReminder, len(reminders))
	for _, r := range reminders {
		next, ok := s.nextFireAfter(now, r.Time)
		if !ok {
			s.logger.Warn("skipping reminder with invalid time",
				"reminder_id", r.ID.String(), "time", r.Time)
			continue
		}
		s.armed[r.ID] = &armedReminder{reminder: *r, next: next}
	}
}

// Start runs the tick loop until ctx is done.
func (s *ClientScheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.tick(now)
		}
	}
}

func (s *ClientScheduler) tick(now time.Time) {
	s.mu.Lock()
	var due []*armedReminder
	for _, a := range s.armed {
		if !now.Before(a.next) {
			due = append(due, a)
			a.next = a.next.AddDate(0, 0, 1)
		}
	}
	s.mu.Unlock()

	for _, a := range due {
		s.fire(a.reminder, now)
	}
}

// Pending returns how many wake-ups are currently armed.
func (s *ClientScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.armed)
}

// NextFire returns the armed instant for one reminder, false if not armed.
func (s *ClientScheduler) NextFire(id uuid.UUID) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.armed[id]
	if !ok {
		return time.Time{}, false
	}
	return a.next, true
}

// nextFireAfter computes the next instant at or after now matching the
// reminder's HH:MM in the scheduler's location; if that time today has
// already passed, the target is tomorrow.
func (s *ClientScheduler) nextFireAfter(now time.Time, hhmm string) (time.Time, bool) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, false
	}
	local := now.In(s.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), t.Hour(), t.Minute(), 0, 0, s.loc)
	if next.Before(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next, true
}
