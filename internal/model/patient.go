package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Patient is the unit of data partitioning. Every log entry, reminder,
// checklist item and custom plan belongs to exactly one patient.
type Patient struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	Name            string         `json:"name" db:"name"`
	Description     string         `json:"description" db:"description"`
	Needs           string         `json:"needs" db:"needs"`
	BirthDate       string         `json:"birth_date" db:"birth_date"`
	MedicationNotes string         `json:"medication_notes" db:"medication_notes"`
	OwnerID         uuid.UUID      `json:"owner_id" db:"owner_id"`
	AllowedEmails   pq.StringArray `json:"allowed_emails" db:"allowed_emails"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
}

// EmailAllowed checks the allow-list with both exact and case-folded
// comparison; identity providers are inconsistent about email casing.
func (p *Patient) EmailAllowed(email string) bool {
	folded := strings.ToLower(email)
	for _, allowed := range p.AllowedEmails {
		if allowed == email || strings.ToLower(allowed) == folded {
			return true
		}
	}
	return false
}

type AccessRequestStatus string

const (
	AccessRequestPending  AccessRequestStatus = "pending"
	AccessRequestApproved AccessRequestStatus = "approved"
	AccessRequestDenied   AccessRequestStatus = "denied"
)

// AccessRequest is created when a non-owner tries to join a patient by ID.
// Pending requests resolve to approved or denied and are terminal after that.
type AccessRequest struct {
	ID          uuid.UUID           `json:"id" db:"id"`
	PatientID   uuid.UUID           `json:"patient_id" db:"patient_id"`
	UserID      uuid.UUID           `json:"user_id" db:"user_id"`
	UserEmail   string              `json:"user_email" db:"user_email"`
	UserName    string              `json:"user_name" db:"user_name"`
	Status      AccessRequestStatus `json:"status" db:"status"`
	CreatedAt   time.Time           `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time          `json:"processed_at,omitempty" db:"processed_at"`
}
