package model

import (
	"time"

	"github.com/google/uuid"
)

// User is an authenticated caregiver principal.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	IsAdmin      bool      `json:"is_admin" db:"is_admin"`

	// Alert subscriptions evaluated by the server scheduler.
	MissedDoseAlerts bool `json:"missed_dose_alerts" db:"missed_dose_alerts"`
	DailyReports     bool `json:"daily_reports" db:"daily_reports"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
