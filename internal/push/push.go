package push

import "context"

// Message is one notification payload fanned out to delivery tokens. Data is
// echoed to the client so it can tag the system notification and let the OS
// replace a still-pending one for the same reminder.
type Message struct {
	Title string            `json:"notificationTitle"`
	Body  string            `json:"notificationBody"`
	Data  map[string]string `json:"data,omitempty"`
}

// Result is the per-token outcome of a multicast send.
type Result struct {
	Token string
	Err   error
	// Invalid marks tokens the provider reports as unregistered or
	// malformed; the caller removes them from the registry.
	Invalid bool
}

// Sender delivers one message to many tokens. Implementations isolate
// failures per token; one bad token never aborts the rest.
type Sender interface {
	Send(ctx context.Context, tokens []string, msg Message) ([]Result, error)
}
