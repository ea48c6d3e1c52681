package pubsub

import (
	"sync"
	"time"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/logger"
)

const (
	EventDraftCreated        = "draft:created"
	EventDraftPick           = "draft:pick"
	EventDraftBlock          = "draft:block"
	EventDraftDeleted        = "draft:deleted"
	EventSimulationCompleted = "simulation:completed"
)

// subscriberBuffer is how many events a slow reader may fall behind before
// further events are dropped for it.
const subscriberBuffer = 10

// Event is a draft or simulation notification. DraftID is empty for events
// that are not tied to one draft.
type Event struct {
	Type    string                 `json:"type"`
	DraftID string                 `json:"draftId,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	TS      int64                  `json:"ts"`
}

// NewEvent stamps an event with the current time in milliseconds
func NewEvent(eventType, draftID string, payload map[string]interface{}) Event {
	return Event{Type: eventType, DraftID: draftID, Payload: payload, TS: time.Now().UnixMilli()}
}

// Upstream carries events between instances (NATS, JetStream or a mock)
type Upstream interface {
	Publish(Event)
	Subscribe() chan Event
	Unsubscribe(chan Event)
}

// PubSub fans draft events out to local listeners. A listener registered for
// one draft only sees that draft's events.
type PubSub struct {
	mu       sync.RWMutex
	subs     map[chan Event]string
	upstream Upstream
}

func New() *PubSub {
	return &PubSub{subs: map[chan Event]string{}}
}

// NewWithUpstream routes Publish through upstream and delivers whatever upstream
// hands back, so every instance sharing the upstream sees every event.
func NewWithUpstream(upstream Upstream) *PubSub {
	ps := &PubSub{subs: map[chan Event]string{}, upstream: upstream}
	go func() {
		for event := range upstream.Subscribe() {
			ps.deliver(event)
		}
		logger.Debug("Draft event upstream closed")
	}()
	return ps
}

// Subscribe registers a listener for every event
func (ps *PubSub) Subscribe() chan Event {
	return ps.SubscribeDraft("")
}

// SubscribeDraft registers a listener for one draft. An empty draftID matches
// every event.
func (ps *PubSub) SubscribeDraft(draftID string) chan Event {
	ch := make(chan Event, subscriberBuffer)
	ps.mu.Lock()
	ps.subs[ch] = draftID
	ps.mu.Unlock()
	return ch
}

// Unsubscribe closes ch. Channels this PubSub did not hand out are left alone.
func (ps *PubSub) Unsubscribe(ch chan Event) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if _, ok := ps.subs[ch]; ok {
		delete(ps.subs, ch)
		close(ch)
	}
}

func (ps *PubSub) SubscriberCount() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subs)
}

// Publish stamps event if needed and sends it upstream, or straight to local
// listeners when there is no upstream.
func (ps *PubSub) Publish(event Event) {
	if event.TS == 0 {
		event.TS = time.Now().UnixMilli()
	}
	if ps.upstream != nil {
		ps.upstream.Publish(event)
		return
	}
	ps.deliver(event)
}

func (ps *PubSub) deliver(event Event) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	dropped := 0
	for ch, draftID := range ps.subs {
		if draftID != "" && draftID != event.DraftID {
			continue
		}
		select {
		case ch <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		logger.Warn("Dropped draft event for slow listeners", "type", event.Type, "draft", event.DraftID, "listeners", dropped)
	}
}
