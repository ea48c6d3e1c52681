package mocks

import (
	"context"
	"sync"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/logger"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/pubsub"
)

// MockNATSPubSub provides a mock NATS/JetStream implementation for local development
type MockNATSPubSub struct {
	*pubsub.PubSub

	mu        sync.Mutex
	consumers []chan pubsub.Event
	wg        sync.WaitGroup
}

// NewMockNATSPubSub creates a mock NATS pub/sub using the in-memory implementation
func NewMockNATSPubSub() *MockNATSPubSub {
	logger.Info("Using MOCK NATS/JetStream (in-memory pub/sub) for local development")

	return &MockNATSPubSub{
		PubSub: pubsub.New(),
	}
}

// SubscribeJetStream delivers every draft event to handler. Unlike JetStream a
// failed event is logged and dropped, and nothing survives a restart.
func (m *MockNATSPubSub) SubscribeJetStream(consumerName string, handler func(pubsub.Event) error) error {
	ch := m.Subscribe()
	m.mu.Lock()
	m.consumers = append(m.consumers, ch)
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for event := range ch {
			if event.DraftID == "" {
				continue
			}
			if err := handler(event); err != nil {
				logger.Warn("Mock durable consumer failed, dropping event", "error", err, "consumer", consumerName, "event_type", event.Type)
			}
		}
	}()
	return nil
}

// Close stops the consumers started by SubscribeJetStream
func (m *MockNATSPubSub) Close() {
	m.mu.Lock()
	consumers := m.consumers
	m.consumers = nil
	m.mu.Unlock()

	for _, ch := range consumers {
		m.Unsubscribe(ch)
	}
	m.wg.Wait()
}

// Ping always succeeds
func (m *MockNATSPubSub) Ping(context.Context) error {
	return nil
}
