package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PlanMedicine is one scheduled medicine inside a custom plan.
type PlanMedicine struct {
	Name string `json:"name"`
	Time string `json:"time"`
}

// PlanMedicines is stored as a JSONB column.
type PlanMedicines []PlanMedicine

func (m PlanMedicines) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *PlanMedicines) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported type for PlanMedicines: %T", src)
	}
}

// CustomPlan is a named bundle of reminders a caregiver can activate in one
// action or export as a recurring calendar feed. It is a reminder-creation
// template, independent of the checklist.
type CustomPlan struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	PatientID uuid.UUID     `json:"patient_id" db:"patient_id"`
	Name      string        `json:"name" db:"name"`
	Medicines PlanMedicines `json:"medicines" db:"medicines"`
	CreatedBy string        `json:"created_by" db:"created_by"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}
