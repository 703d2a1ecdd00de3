package plan

import (
	"fmt"
	"strings"
	"time"

	"github.com/omsorg/care-api/internal/model"
)

const icsTimeLayout = "20060102T150405"

// Calendar renders a plan as an iCalendar feed: one daily-recurring event
// per medicine with an at-time alarm and a 15-minutes-before alarm. UIDs are
// stable per plan and medicine index so re-imports replace rather than
// duplicate.
func Calendar(plan *model.CustomPlan, loc *time.Location, now time.Time) string {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)

	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\n")
	b.WriteString("VERSION:2.0\r\n")
	b.WriteString("PRODID:-//omsorg//care-api//NO\r\n")
	b.WriteString("CALSCALE:GREGORIAN\r\n")

	for i, med := range plan.Medicines {
		t, err := time.Parse("15:04", med.Time)
		if err != nil {
			continue
		}
		start := time.Date(local.Year(), local.Month(), local.Day(), t.Hour(), t.Minute(), 0, 0, loc)

		b.WriteString("BEGIN:VEVENT\r\n")
		fmt.Fprintf(&b, "UID:%s-%d@care-api\r\n", plan.ID, i)
		fmt.Fprintf(&b, "DTSTAMP:%s\r\n", now.UTC().Format(icsTimeLayout)+"Z")
		fmt.Fprintf(&b, "DTSTART;TZID=%s:%s\r\n", loc.String(), start.Format(icsTimeLayout))
		b.WriteString("RRULE:FREQ=DAILY\r\n")
		fmt.Fprintf(&b, "SUMMARY:%s\r\n", escapeICS(med.Name))
		fmt.Fprintf(&b, "DESCRIPTION:%s\r\n", escapeICS(plan.Name))

		writeAlarm(&b, med.Name, "-PT15M")
		writeAlarm(&b, med.Name, "PT0M")

		b.WriteString("END:VEVENT\r\n")
	}

	b.WriteString("END:VCALENDAR\r\n")
	return b.String()
}

func writeAlarm(b *strings.Builder, name, trigger string) {
	b.WriteString("BEGIN:VALARM\r\n")
	b.WriteString("ACTION:DISPLAY\r\n")
	fmt.Fprintf(b, "TRIGGER:%s\r\n", trigger)
	fmt.Fprintf(b, "DESCRIPTION:%s\r\n", escapeICS(name))
	b.WriteString("END:VALARM\r\n")
}

func escapeICS(s string) string {
	r := strings.NewReplacer("\\", "\\\\", ";", "\\;", ",", "\\,", "\n", "\\n")
	return r.Replace(s)
}
