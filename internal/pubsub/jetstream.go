package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/logger"
)

// DefaultSubjectPrefix roots every draft event subject
const DefaultSubjectPrefix = "draft.events"

// DefaultStreamName is the JetStream stream holding draft events
const DefaultStreamName = "DRAFT_EVENTS"

// globalToken is the subject token for events not tied to a draft
const globalToken = "global"

// EventSubject returns the subject an event is published on: one subject per
// draft beneath the prefix, so consumers can follow a single draft.
func EventSubject(prefix, draftID string) string {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	token := strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(draftID)
	if token == "" {
		token = globalToken
	}
	return prefix + "." + token
}

// StreamSubjects returns the wildcard subject a stream must capture
func StreamSubjects(prefix string) []string {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return []string{prefix + ".>"}
}

// jetStreamBridge fans JetStream messages out to local subscriber channels.
// It is shared by the external and embedded NATS upstreams.
type jetStreamBridge struct {
	nc          *nats.Conn
	js          nats.JetStreamContext
	prefix      string
	sub         *nats.Subscription
	subscribers []chan Event
	mu          sync.RWMutex
}

func newJetStreamBridge(nc *nats.Conn, js nats.JetStreamContext, prefix string) *jetStreamBridge {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &jetStreamBridge{
		nc:          nc,
		js:          js,
		prefix:      prefix,
		subscribers: make([]chan Event, 0),
	}
}

// ensureStream creates the stream when it does not exist yet
func ensureStream(js nats.JetStreamContext, cfg *nats.StreamConfig) error {
	if _, err := js.StreamInfo(cfg.Name); err == nil {
		return nil
	}
	_, err := js.AddStream(cfg)
	return err
}

// start subscribes to every draft subject and broadcasts to local subscribers
func (b *jetStreamBridge) start() error {
	subject := b.prefix + ".>"
	sub, err := b.js.Subscribe(subject, func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Error("Failed to unmarshal event from JetStream", "error", err)
			msg.Nak()
			return
		}
		b.broadcast(event)
		msg.Ack()
	}, nats.ManualAck(), nats.DeliverNew())
	if err != nil {
		return err
	}
	b.sub = sub
	logger.Debug("Subscribed to JetStream", "subject", subject)
	return nil
}

func (b *jetStreamBridge) broadcast(event Event) {
	b.mu.RLock()
	subs := make([]chan Event, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub <- event:
		default:
			logger.Warn("NATS: Skipping slow subscriber", "event_type", event.Type, "draftId", event.DraftID)
		}
	}
}

// Publish publishes an event on its draft subject
func (b *jetStreamBridge) Publish(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return
	}

	subject := EventSubject(b.prefix, event.DraftID)
	if _, err := b.js.Publish(subject, data); err != nil {
		logger.Error("Failed to publish to NATS", "error", err, "subject", subject, "event_type", event.Type)
		return
	}
	logger.Debug("Published event to NATS", "event_type", event.Type, "subject", subject)
}

// Subscribe creates a subscription channel for events
func (b *jetStreamBridge) Subscribe() chan Event {
	ch := make(chan Event, 100)

	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	count := len(b.subscribers)
	b.mu.Unlock()

	logger.Debug("NATS: New subscriber added", "total_subscribers", count)
	return ch
}

// Unsubscribe removes a subscription channel
func (b *jetStreamBridge) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subscribers {
		if sub == ch {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// SubscribeJetStream creates a durable consumer over every draft subject.
// Messages are acked only after the handler returns without error.
func (b *jetStreamBridge) SubscribeJetStream(consumerName string, handler func(Event) error) error {
	_, err := b.js.Subscribe(b.prefix+".>", func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Error("Failed to unmarshal event", "error", err, "consumer", consumerName)
			msg.Term()
			return
		}
		if err := handler(event); err != nil {
			logger.Warn("Durable consumer failed, redelivering", "error", err, "consumer", consumerName, "event_type", event.Type)
			msg.Nak()
			return
		}
		msg.Ack()
	}, nats.Durable(consumerName), nats.ManualAck())
	return err
}

// SubscriberCount returns the number of active local subscribers
func (b *jetStreamBridge) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Ping reports whether the NATS connection is up
func (b *jetStreamBridge) Ping(context.Context) error {
	if b.nc == nil || !b.nc.IsConnected() {
		return errors.New("nats: not connected")
	}
	return nil
}

func (b *jetStreamBridge) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subscribers {
		close(sub)
	}
	b.subscribers = nil

	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	if b.nc != nil {
		b.nc.Close()
	}
}
