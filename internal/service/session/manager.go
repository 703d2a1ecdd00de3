package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/omsorg/care-api/internal/model"
	"github.com/omsorg/care-api/pkg/logger"
	"github.com/omsorg/care-api/pkg/messaging"
)

// Update is one applied fan-out payload delivered to the session's view.
type Update struct {
	PatientID  uuid.UUID
	Collection string
	Payload    []byte
	Generation uint64
}

// Manager is one client session: the current user, the active patient and
// the realtime subscriptions bound to it. Switching the active patient
// increments a generation counter; any event that arrives tagged with a
// stale generation is discarded, so a late delivery from the previous
// patient can never bleed into the new patient's view.
type Manager struct {
	broker messaging.Broker
	logger *logger.Logger

	mu         sync.Mutex
	user       *model.User
	patientID  uuid.UUID
	generation uint64
	cancel     context.CancelFunc
	mirrors    map[string][]byte

	updates chan Update
	closed  bool
}

func NewManager(broker messaging.Broker, logger *logger.Logger) *Manager {
	return &Manager{
		broker:  broker,
		logger:  logger,
		mirrors: make(map[string][]byte),
		updates: make(chan Update, 64),
	}
}

func (m *Manager) SetUser(user *model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = user
}

func (m *Manager) User() *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user
}

func (m *Manager) Patient() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.patientID
}

// Updates delivers applied snapshots to the session's view binding.
func (m *Manager) Updates() <-chan Update {
	return m.updates
}

// Mirror returns the latest applied payload for a collection, nil if none
// has arrived since the last patient switch.
func (m *Manager) Mirror(collection string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mirrors[collection]
}

// SwitchPatient tears down the previous patient's subscriptions, clears all
// cached collection mirrors and subscribes to the new patient's channels.
// Teardown happens before the new subscriptions are established.
func (m *Manager) SwitchPatient(ctx context.Context, patientID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.generation++
	m.mirrors = make(map[string][]byte)
	m.patientID = patientID

	gen := m.generation
	subCtx, cancel := context.WithCancel(ctx)

	for _, collection := range Collections {
		ch, err := m.broker.Subscribe(subCtx, Channel(patientID, collection))
		if err != nil {
			cancel()
			return err
		}
		go m.pump(gen, collection, ch)
	}

	m.cancel = cancel
	return nil
}

func (m *Manager) pump(gen uint64, collection string, ch <-chan []byte) {
	for payload := range ch {
		m.apply(gen, collection, payload)
	}
}

// apply installs a delivered payload unless it belongs to a previous
// generation.
func (m *Manager) apply(gen uint64, collection string, payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || gen != m.generation {
		return
	}
	m.mirrors[collection] = payload

	// Non-blocking: a slow view re-renders from the latest mirror anyway.
	select {
	case m.updates <- Update{
		PatientID:  m.patientID,
		Collection: collection,
		Payload:    payload,
		Generation: gen,
	}:
	default:
	}
}

// Close cancels all subscriptions and stops delivery.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	close(m.updates)
}
