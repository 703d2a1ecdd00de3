package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/omsorg/care-api/pkg/logger"
	"github.com/omsorg/care-api/pkg/messaging"
)

// Event is the payload published on a patient collection channel. Subscribers
// re-render from the latest snapshot they hold; no ordering is guaranteed
// between two rapid successive mutations.
type Event struct {
	PatientID  uuid.UUID   `json:"patient_id"`
	Collection string      `json:"collection"`
	Action     string      `json:"action"`
	Entity     interface{} `json:"entity,omitempty"`
	At         time.Time   `json:"at"`
}

// Fanout publishes collection mutations to all subscribed sessions. Publish
// failures are logged and swallowed: realtime sync is best-effort and must
// never fail the write that triggered it.
type Fanout struct {
	broker messaging.Broker
	logger *logger.Logger
}

func NewFanout(broker messaging.Broker, logger *logger.Logger) *Fanout {
	return &Fanout{broker: broker, logger: logger}
}

func (f *Fanout) Publish(ctx context.Context, patientID uuid.UUID, collection, action string, entity interface{}) {
	if f == nil || f.broker == nil {
		return
	}
	event := Event{
		PatientID:  patientID,
		Collection: collection,
		Action:     action,
		Entity:     entity,
		At:         time.Now(),
	}
	if err := f.broker.Publish(ctx, Channel(patientID, collection), event); err != nil {
		f.logger.Error(err, "failed to publish fan-out event",
			"patient_id", patientID.String(), "collection", collection)
	}
}
