package model

import (
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type ChecklistCategory string

const (
	CategoryDay     ChecklistCategory = "day"
	CategoryEvening ChecklistCategory = "evening"
	CategorySpecial ChecklistCategory = "special"
	CategoryPRN     ChecklistCategory = "prn"
)

// Schedule strings as stored: "", "weekendOnly" or "every<N>days".
const ScheduleWeekendOnly = "weekendOnly"

var everyNDaysRe = regexp.MustCompile(`^every(\d+)days$`)

// EveryNDays parses an "every<N>days" schedule. Returns 0, false for any
// other schedule string.
func EveryNDays(schedule string) (int, bool) {
	m := everyNDaysRe.FindStringSubmatch(schedule)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// ChecklistItem is the definition of an expected recurring action (medicine
// or tube feed), not an event. Unique per (name, category) within a patient.
type ChecklistItem struct {
	ID                uuid.UUID         `json:"id" db:"id"`
	PatientID         uuid.UUID         `json:"patient_id" db:"patient_id"`
	Name              string            `json:"name" db:"name"`
	Dose              string            `json:"dose" db:"dose"`
	Unit              string            `json:"unit" db:"unit"`
	Category          ChecklistCategory `json:"category" db:"category"`
	Schedule          string            `json:"schedule,omitempty" db:"schedule"`
	Times             pq.StringArray    `json:"times" db:"times"`
	Description       string            `json:"description,omitempty" db:"description"`
	IsCustom          bool              `json:"is_custom" db:"is_custom"`
	Stock             *float64          `json:"stock,omitempty" db:"stock"`
	LowStockThreshold *float64          `json:"low_stock_threshold,omitempty" db:"low_stock_threshold"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
}

// LowOnStock reports whether stock tracking is enabled and the remaining
// stock has reached the configured threshold.
func (i *ChecklistItem) LowOnStock() bool {
	if i.Stock == nil || i.LowStockThreshold == nil {
		return false
	}
	return *i.Stock <= *i.LowStockThreshold
}
