package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/omsorg/care-api/internal/email"
	"github.com/omsorg/care-api/internal/model"
	"github.com/omsorg/care-api/internal/push"
	"github.com/omsorg/care-api/internal/repository"
	"github.com/omsorg/care-api/internal/service/eventlog"
	"github.com/omsorg/care-api/pkg/logger"
	"github.com/omsorg/care-api/pkg/metrics"
)

// missedDoseOffset is how long after a reminder's time the scheduler checks
// whether a matching dose was logged.
const missedDoseOffset = 10 * time.Minute

type Config struct {
	ReportHour   int    `mapstructure:"report_hour"`
	ReportMinute int    `mapstructure:"report_minute"`
	Timezone     string `mapstructure:"timezone"`
	HealthPort   int    `mapstructure:"health_port"`
}

// ServerScheduler is the per-minute sweep: reminder push fan-out with token
// pruning, missed-dose detection and the daily report. It is the only
// cross-patient process; each phase iterates patients one by one so one
// patient's reminders never leak into another's alerts.
type ServerScheduler struct {
	patients  repository.PatientRepository
	reminders repository.ReminderRepository
	logs      repository.LogEntryRepository
	tokens    repository.TokenRepository
	users     repository.UserRepository
	checklist repository.ChecklistRepository

	sender  push.Sender
	mailer  email.Service
	metrics *metrics.Metrics
	logger  *logger.Logger
	loc     *time.Location

	reportHour   int
	reportMinute int

	mu            sync.Mutex
	lastReportDay string
}

func NewServerScheduler(
	patients repository.PatientRepository,
	reminders repository.ReminderRepository,
	logs repository.LogEntryRepository,
	tokens repository.TokenRepository,
	users repository.UserRepository,
	checklist repository.ChecklistRepository,
	sender push.Sender,
	mailer email.Service,
	m *metrics.Metrics,
	log *logger.Logger,
	loc *time.Location,
	cfg Config,
) *ServerScheduler {
	if loc == nil {
		loc = time.Local
	}
	return &ServerScheduler{
		patients:     patients,
		reminders:    reminders,
		logs:         logs,
		tokens:       tokens,
		users:        users,
		checklist:    checklist,
		sender:       sender,
		mailer:       mailer,
		metrics:      m,
		logger:       log,
		loc:          loc,
		reportHour:   cfg.ReportHour,
		reportMinute: cfg.ReportMinute,
	}
}

// Start runs the minute loop until ctx is done. A failed run is logged and
// swallowed; the next minute's run is unaffected.
func (s *ServerScheduler) Start(ctx context.Context) {
	s.logger.Info("server scheduler started")

	// Align to the top of the next minute so HH:MM matching is exact.
	now := time.Now()
	next := now.Truncate(time.Minute).Add(time.Minute)
	select {
	case <-ctx.Done():
		return
	case <-time.After(next.Sub(now)):
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	s.sweep(ctx, next)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("server scheduler stopped")
			return
		case tick := <-ticker.C:
			s.sweep(ctx, tick)
		}
	}
}

func (s *ServerScheduler) sweep(ctx context.Context, now time.Time) {
	start := time.Now()
	defer func() {
		s.metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	if err := s.CheckReminders(ctx, now); err != nil {
		s.metrics.SchedulerRunErrors.WithLabelValues("reminders").Inc()
		s.logger.Error(err, "reminder check aborted")
	}
	if err := s.CheckMissedMedicines(ctx, now); err != nil {
		s.metrics.SchedulerRunErrors.WithLabelValues("missed_doses").Inc()
		s.logger.Error(err, "missed-dose check aborted")
	}
	if s.reportDue(now) {
		if _, err := s.GenerateAndSendReport(ctx, now); err != nil {
			s.metrics.SchedulerRunErrors.WithLabelValues("report").Inc()
			s.logger.Error(err, "daily report aborted")
		}
	}
}

func (s *ServerScheduler) reportDue(now time.Time) bool {
	local := now.In(s.loc)
	if local.Hour() != s.reportHour || local.Minute() != s.reportMinute {
		return false
	}
	day := local.Format("2006-01-02")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastReportDay == day {
		return false
	}
	s.lastReportDay = day
	return true
}

// CheckReminders finds reminders matching the current minute and multicasts
// one push per reminder to every registered token. Tokens the provider
// reports as gone are removed; one bad token never blocks the rest.
func (s *ServerScheduler) CheckReminders(ctx context.Context, now time.Time) error {
	hhmm := now.In(s.loc).Format("15:04")

	patients, err := s.patients.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list patients: %w", err)
	}

	var matched []*model.Reminder
	for _, patient := range patients {
		reminders, err := s.reminders.ListByTime(ctx, patient.ID, hhmm)
		if err != nil {
			return fmt.Errorf("failed to list reminders for %s: %w", patient.ID, err)
		}
		matched = append(matched, reminders...)
	}
	if len(matched) == 0 {
		return nil
	}
	s.metrics.RemindersMatched.Add(float64(len(matched)))

	tokens, err := s.tokens.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list delivery tokens: %w", err)
	}
	if len(tokens) == 0 {
		return nil
	}
	values := make([]string, len(tokens))
	for i, t := range tokens {
		values[i] = t.Token
	}

	for _, reminder := range matched {
		msg := push.Message{
			Title: "Medisinpåminnelse",
			Body:  fmt.Sprintf("%s kl. %s", reminder.Name, reminder.Time),
			Data: map[string]string{
				"type": "reminder",
				"name": reminder.Name,
				"time": reminder.Time,
			},
		}
		results, err := s.sender.Send(ctx, values, msg)
		if err != nil {
			s.metrics.PushesFailed.Add(float64(len(values)))
			s.logger.Error(err, "push multicast failed", "reminder", reminder.Name)
			continue
		}
		s.handleResults(ctx, results)
	}
	return nil
}

func (s *ServerScheduler) handleResults(ctx context.Context, results []push.Result) {
	for _, r := range results {
		if r.Err == nil {
			s.metrics.PushesSent.Inc()
			continue
		}
		s.metrics.PushesFailed.Inc()
		if !r.Invalid {
			continue
		}
		if err := s.tokens.Delete(ctx, r.Token); err != nil {
			s.logger.Error(err, "failed to prune delivery token")
			continue
		}
		s.metrics.TokensPruned.Inc()
	}
}

// CheckMissedMedicines looks 10 minutes back: for each reminder at that
// minute whose name has no medicine entry logged today, one alert email per
// patient is sent to every missed-dose subscriber, listing all missed names.
func (s *ServerScheduler) CheckMissedMedicines(ctx context.Context, now time.Time) error {
	checkAt := now.Add(-missedDoseOffset)
	hhmm := checkAt.In(s.loc).Format("15:04")

	patients, err := s.patients.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list patients: %w", err)
	}

	var subscribers []*model.User
	for _, patient := range patients {
		reminders, err := s.reminders.ListByTime(ctx, patient.ID, hhmm)
		if err != nil {
			return fmt.Errorf("failed to list reminders for %s: %w", patient.ID, err)
		}
		if len(reminders) == 0 {
			continue
		}

		logged, err := s.medicinesLoggedOn(ctx, patient.ID, checkAt)
		if err != nil {
			return err
		}

		var missed []string
		for _, reminder := range reminders {
			if !logged[reminder.Name] {
				missed = append(missed, fmt.Sprintf("%s (skulle vært gitt kl. %s)", reminder.Name, reminder.Time))
			}
		}
		if len(missed) == 0 {
			continue
		}

		if subscribers == nil {
			subscribers, err = s.users.ListMissedDoseSubscribers(ctx)
			if err != nil {
				return fmt.Errorf("failed to list subscribers: %w", err)
			}
		}
		if len(subscribers) == 0 {
			return nil
		}

		recipients := make([]string, len(subscribers))
		for i, u := range subscribers {
			recipients[i] = u.Email
		}
		if _, err := s.mailer.Send(recipients, "Mulig glemt dose: "+patient.Name, missedDoseBody(patient, missed)); err != nil {
			s.logger.Error(err, "failed to send missed-dose alert", "patient_id", patient.ID.String())
			continue
		}
		s.metrics.MissedDoseAlerts.Inc()
	}
	return nil
}

func (s *ServerScheduler) medicinesLoggedOn(ctx context.Context, patientID uuid.UUID, day time.Time) (map[string]bool, error) {
	fromMs, toMs := eventlog.DayRange(day, s.loc)
	entries, err := s.logs.ListBetween(ctx, patientID, fromMs, toMs, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list log entries for %s: %w", patientID, err)
	}
	logged := make(map[string]bool)
	for _, entry := range entries {
		if entry.Type == model.LogTypeMedicine {
			logged[entry.Name] = true
		}
	}
	return logged, nil
}

func missedDoseBody(patient *model.Patient, missed []string) string {
	body := "<p>Følgende medisiner er ikke registrert for " + patient.Name + ":</p><ul>"
	for _, m := range missed {
		body += "<li>" + m + "</li>"
	}
	return body + "</ul>"
}
