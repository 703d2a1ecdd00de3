package model

import (
	"time"

	"github.com/google/uuid"
)

// Reminder is one recurring daily alarm at a fixed wall-clock time.
// Duplicate (name, time) pairs are tolerated; the duplicate check at
// creation is advisory only.
type Reminder struct {
	ID        uuid.UUID `json:"id" db:"id"`
	PatientID uuid.UUID `json:"patient_id" db:"patient_id"`
	Name      string    `json:"name" db:"name"`
	Time      string    `json:"time" db:"time"`
	CreatedBy string    `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DeliveryToken is one registered push endpoint, keyed by the token value
// itself. Registration is an upsert; the server scheduler deletes tokens the
// provider reports as invalid or unregistered.
type DeliveryToken struct {
	Token     string     `json:"token" db:"token"`
	UserID    *uuid.UUID `json:"user_id,omitempty" db:"user_id"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}
