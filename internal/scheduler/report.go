package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/omsorg/care-api/internal/model"
	"github.com/omsorg/care-api/internal/service/eventlog"
)

// ReportResult describes one completed report send.
type ReportResult struct {
	EmailID    string   `json:"emailId"`
	Recipients []string `json:"recipients"`
}

var logTypeLabels = map[model.LogType]string{
	model.LogTypeMedicine:      "Medisiner",
	model.LogTypeTubeFeed:      "Sondemat",
	model.LogTypeBowelMovement: "Avføring",
	model.LogTypeUrination:     "Urin",
	model.LogTypeVomit:         "Oppkast",
	model.LogTypeVitals:        "Målinger",
	model.LogTypeDiary:         "Dagbok",
	model.LogTypeOther:         "Annet",
}

var reportTypeOrder = []model.LogType{
	model.LogTypeMedicine,
	model.LogTypeTubeFeed,
	model.LogTypeBowelMovement,
	model.LogTypeUrination,
	model.LogTypeVomit,
	model.LogTypeVitals,
	model.LogTypeDiary,
	model.LogTypeOther,
}

// GenerateAndSendReport builds the day's summary for every patient and
// mails it to the daily-report subscribers. Read-only and idempotent, safe
// to trigger on demand while a scheduled run is in flight.
func (s *ServerScheduler) GenerateAndSendReport(ctx context.Context, now time.Time) (*ReportResult, error) {
	subscribers, err := s.users.ListDailyReportSubscribers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}
	if len(subscribers) == 0 {
		return &ReportResult{}, nil
	}

	patients, err := s.patients.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}

	local := now.In(s.loc)
	var b strings.Builder
	fmt.Fprintf(&b, "<h1>Dagsrapport %s</h1>", local.Format("02.01.2006"))

	for _, patient := range patients {
		if err := s.writePatientSection(ctx, &b, patient, now); err != nil {
			return nil, err
		}
	}

	recipients := make([]string, len(subscribers))
	for i, u := range subscribers {
		recipients[i] = u.Email
	}

	subject := "Dagsrapport " + local.Format("02.01.2006")
	emailID, err := s.mailer.Send(recipients, subject, b.String())
	if err != nil {
		return nil, err
	}

	s.metrics.ReportsSent.Inc()
	return &ReportResult{EmailID: emailID, Recipients: recipients}, nil
}

func (s *ServerScheduler) writePatientSection(ctx context.Context, b *strings.Builder, patient *model.Patient, now time.Time) error {
	fromMs, toMs := eventlog.DayRange(now, s.loc)
	entries, err := s.logs.ListBetween(ctx, patient.ID, fromMs, toMs, true)
	if err != nil {
		return fmt.Errorf("failed to list log entries for %s: %w", patient.ID, err)
	}

	fmt.Fprintf(b, "<h2>%s</h2>", patient.Name)

	byType := make(map[model.LogType][]*model.LogEntry)
	for _, entry := range entries {
		byType[entry.Type] = append(byType[entry.Type], entry)
	}

	for _, typ := range reportTypeOrder {
		group := byType[typ]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(b, "<h3>%s</h3><ul>", logTypeLabels[typ])
		for _, entry := range group {
			when := entry.At().In(s.loc).Format("15:04")
			if entry.Name != "" {
				fmt.Fprintf(b, "<li>%s %s", when, entry.Name)
			} else {
				fmt.Fprintf(b, "<li>%s", when)
			}
			if entry.Amount > 0 {
				fmt.Fprintf(b, " %g %s", entry.Amount, entry.Unit)
			}
			if entry.Notes != "" {
				fmt.Fprintf(b, " (%s)", entry.Notes)
			}
			b.WriteString("</li>")
		}
		b.WriteString("</ul>")
	}

	return s.writeExpectedMedicines(ctx, b, patient, byType[model.LogTypeMedicine], now)
}

// writeExpectedMedicines compares doses given against the checklist's
// scheduled medicines, honoring weekend-only suppression.
func (s *ServerScheduler) writeExpectedMedicines(ctx context.Context, b *strings.Builder, patient *model.Patient, given []*model.LogEntry, now time.Time) error {
	items, err := s.checklist.List(ctx, patient.ID)
	if err != nil {
		return fmt.Errorf("failed to list checklist for %s: %w", patient.ID, err)
	}
	if len(items) == 0 {
		return nil
	}

	local := now.In(s.loc)
	weekend := local.Weekday() == time.Saturday || local.Weekday() == time.Sunday

	givenNames := make(map[string]int)
	for _, entry := range given {
		givenNames[entry.Name]++
	}

	var missing []string
	for _, item := range items {
		if item.Category == model.CategoryPRN {
			continue
		}
		if item.Schedule == model.ScheduleWeekendOnly && !weekend {
			continue
		}
		if _, ok := model.EveryNDays(item.Schedule); ok {
			continue
		}
		if givenNames[item.Name] == 0 {
			missing = append(missing, item.Name)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	b.WriteString("<h3>Ikke registrert</h3><ul>")
	for _, name := range missing {
		fmt.Fprintf(b, "<li>%s</li>", name)
	}
	b.WriteString("</ul>")
	return nil
}
