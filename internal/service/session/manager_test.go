package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omsorg/care-api/pkg/logger"
)

// fakeBroker hands out channels it keeps writable after unsubscribe, so a
// test can simulate a late delivery from a previous subscription.
type fakeBroker struct {
	mu       sync.Mutex
	channels map[string]chan []byte
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{channels: make(map[string]chan []byte)}
}

func (b *fakeBroker) Publish(_ context.Context, channel string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}
	b.mu.Lock()
	ch, ok := b.channels[channel]
	b.mu.Unlock()
	if ok {
		ch <- payload
	}
	return nil
}

func (b *fakeBroker) Subscribe(_ context.Context, channel string) (<-chan []byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan []byte, 16)
	b.channels[channel] = ch
	return ch, nil
}

func (b *fakeBroker) Close() error { return nil }

// inject delivers a raw payload on a channel that may belong to a torn-down
// subscription.
func (b *fakeBroker) inject(channel string, payload []byte) {
	b.mu.Lock()
	ch, ok := b.channels[channel]
	b.mu.Unlock()
	if ok {
		ch <- payload
	}
}

func waitForMirror(t *testing.T, m *Manager, collection string) []byte {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if payload := m.Mirror(collection); payload != nil {
			return payload
		}
		select {
		case <-deadline:
			t.Fatalf("no mirror for %s", collection)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSwitchPatientSubscribesAllCollections(t *testing.T) {
	broker := newFakeBroker()
	m := NewManager(broker, logger.NewLogger(nil))
	defer m.Close()

	patientID := uuid.New()
	require.NoError(t, m.SwitchPatient(context.Background(), patientID))

	for _, collection := range Collections {
		broker.mu.Lock()
		_, ok := broker.channels[Channel(patientID, collection)]
		broker.mu.Unlock()
		assert.True(t, ok, "missing subscription for %s", collection)
	}
}

func TestSwitchPatientClearsMirrors(t *testing.T) {
	broker := newFakeBroker()
	m := NewManager(broker, logger.NewLogger(nil))
	defer m.Close()

	patientA := uuid.New()
	require.NoError(t, m.SwitchPatient(context.Background(), patientA))

	broker.inject(Channel(patientA, CollectionLogs), []byte(`{"entry":"a"}`))
	waitForMirror(t, m, CollectionLogs)

	patientB := uuid.New()
	require.NoError(t, m.SwitchPatient(context.Background(), patientB))
	assert.Nil(t, m.Mirror(CollectionLogs), "mirrors must be empty right after a switch")
}

func TestLateEventFromOldPatientDiscarded(t *testing.T) {
	broker := newFakeBroker()
	m := NewManager(broker, logger.NewLogger(nil))
	defer m.Close()

	patientA := uuid.New()
	require.NoError(t, m.SwitchPatient(context.Background(), patientA))
	oldChannel := Channel(patientA, CollectionLogs)

	patientB := uuid.New()
	require.NoError(t, m.SwitchPatient(context.Background(), patientB))

	// A late delivery on patient A's old subscription arrives after the
	// switch returned; the stale generation tag must discard it.
	broker.inject(oldChannel, []byte(`{"entry":"stale"}`))

	broker.inject(Channel(patientB, CollectionLogs), []byte(`{"entry":"fresh"}`))
	payload := waitForMirror(t, m, CollectionLogs)
	assert.JSONEq(t, `{"entry":"fresh"}`, string(payload))

	// Give the stale pump a moment; the mirror must still be B's.
	time.Sleep(50 * time.Millisecond)
	assert.JSONEq(t, `{"entry":"fresh"}`, string(m.Mirror(CollectionLogs)))
}

func TestApplyStaleGenerationDirectly(t *testing.T) {
	broker := newFakeBroker()
	m := NewManager(broker, logger.NewLogger(nil))
	defer m.Close()

	require.NoError(t, m.SwitchPatient(context.Background(), uuid.New()))
	require.NoError(t, m.SwitchPatient(context.Background(), uuid.New()))

	m.apply(1, CollectionLogs, []byte(`{"stale":true}`))
	assert.Nil(t, m.Mirror(CollectionLogs))

	m.apply(2, CollectionLogs, []byte(`{"fresh":true}`))
	assert.NotNil(t, m.Mirror(CollectionLogs))
}

func TestUpdatesDelivered(t *testing.T) {
	broker := newFakeBroker()
	m := NewManager(broker, logger.NewLogger(nil))
	defer m.Close()

	patientID := uuid.New()
	require.NoError(t, m.SwitchPatient(context.Background(), patientID))

	broker.inject(Channel(patientID, CollectionReminders), []byte(`{"name":"Nexium"}`))

	select {
	case update := <-m.Updates():
		assert.Equal(t, patientID, update.PatientID)
		assert.Equal(t, CollectionReminders, update.Collection)
	case <-time.After(2 * time.Second):
		t.Fatal("no update delivered")
	}
}
