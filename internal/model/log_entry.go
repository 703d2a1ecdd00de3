package model

import (
	"time"

	"github.com/google/uuid"
)

type LogType string

const (
	LogTypeMedicine      LogType = "medicine"
	LogTypeTubeFeed      LogType = "tube_feed"
	LogTypeBowelMovement LogType = "bowel_movement"
	LogTypeUrination     LogType = "urination"
	LogTypeVomit         LogType = "vomit"
	LogTypeVitals        LogType = "vitals"
	LogTypeDiary         LogType = "diary"
	LogTypeOther         LogType = "other"
)

// DisplayTimeLayout is the minute-precision local time stored alongside the
// canonical epoch timestamp for day queries and rendering.
const DisplayTimeLayout = "2006-01-02T15:04"

// LogEntry is an immutable dose/bodily-event/vital/diary record. Timestamp
// (epoch milliseconds) is the canonical ordering key; Time is a display and
// query convenience derived from it at creation and never recomputed.
type LogEntry struct {
	ID        uuid.UUID `json:"id" db:"id"`
	PatientID uuid.UUID `json:"patient_id" db:"patient_id"`
	Type      LogType   `json:"type" db:"type"`
	Time      string    `json:"time" db:"time"`
	Timestamp int64     `json:"timestamp" db:"timestamp"`
	LoggedBy  string    `json:"logged_by" db:"logged_by"`
	Name      string    `json:"name,omitempty" db:"name"`
	Amount    float64   `json:"amount,omitempty" db:"amount"`
	Unit      string    `json:"unit,omitempty" db:"unit"`
	Notes     string    `json:"notes,omitempty" db:"notes"`
	Extra     JSONMap   `json:"extra,omitempty" db:"extra"`
}

// At returns the entry's instant.
func (e *LogEntry) At() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Stamp sets Timestamp from ts and derives Time in loc.
func (e *LogEntry) Stamp(ts time.Time, loc *time.Location) {
	e.Timestamp = ts.UnixMilli()
	e.Time = ts.In(loc).Format(DisplayTimeLayout)
}
