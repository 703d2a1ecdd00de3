package session

import (
	"context"

	"github.com/google/uuid"

	"github.com/omsorg/care-api/internal/model"
)

type contextKey string

const userKey contextKey = "session_user"

// WithUser attaches the authenticated principal to the request context.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFrom returns the authenticated principal, if any.
func UserFrom(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok
}

// Collections fanned out per patient.
const (
	CollectionLogs      = "logs"
	CollectionReminders = "reminders"
	CollectionChecklist = "checklist"
	CollectionPlans     = "customPlans"
)

// Collections lists every per-patient collection a session subscribes to.
var Collections = []string{
	CollectionLogs,
	CollectionReminders,
	CollectionChecklist,
	CollectionPlans,
}

// Channel returns the fan-out channel name for one patient collection.
func Channel(patientID uuid.UUID, collection string) string {
	return "patients." + patientID.String() + "." + collection
}
