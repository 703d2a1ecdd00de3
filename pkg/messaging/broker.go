package messaging

import "context"

// Broker is the realtime fan-out abstraction. Mutations to a patient's
// collections are published on per-patient channels and every open client
// session subscribed to that patient receives the payload.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
