package pubsub

import (
	"sync"
	"testing"
	"time"
)

func receive(t *testing.T, ch chan Event, wait time.Duration) (Event, bool) {
	t.Helper()
	select {
	case ev := <-ch:
		return ev, true
	case <-time.After(wait):
		return Event{}, false
	}
}

func TestNew(t *testing.T) {
	ps := New()
	if ps == nil {
		t.Fatal("New() returned nil")
	}
	if ps.upstream != nil {
		t.Error("upstream should be nil for basic PubSub")
	}
	if ps.SubscriberCount() != 0 {
		t.Errorf("expected no subscribers, got %d", ps.SubscriberCount())
	}
}

func TestNewEvent(t *testing.T) {
	before := time.Now().UnixMilli()
	ev := NewEvent(EventDraftPick, "d1", map[string]interface{}{"pick": 3})
	if ev.Type != EventDraftPick || ev.DraftID != "d1" {
		t.Errorf("unexpected event %+v", ev)
	}
	if ev.TS < before {
		t.Errorf("timestamp %d earlier than %d", ev.TS, before)
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	ps := New()

	ch1 := ps.Subscribe()
	ch2 := ps.Subscribe()
	ch3 := ps.Subscribe()
	if ps.SubscriberCount() != 3 {
		t.Fatalf("expected 3 subscribers, got %d", ps.SubscriberCount())
	}

	ps.Unsubscribe(ch2)
	if ps.SubscriberCount() != 2 {
		t.Errorf("expected 2 subscribers, got %d", ps.SubscriberCount())
	}
	if _, ok := <-ch2; ok {
		t.Error("channel should be closed after unsubscribe")
	}

	ps.Publish(NewEvent(EventDraftBlock, "d1", nil))
	for i, ch := range []chan Event{ch1, ch3} {
		if _, ok := receive(t, ch, 100*time.Millisecond); !ok {
			t.Errorf("subscriber %d should have received event", i)
		}
	}
}

func TestUnsubscribeNonexistent(t *testing.T) {
	ps := New()
	ch := make(chan Event, 1)

	ps.Unsubscribe(ch)

	// Channel was never managed by pubsub, so it stays open
	ch <- Event{Type: "still-open"}
}

func TestPublishNoSubscribers(t *testing.T) {
	ps := New()
	ps.Publish(Event{Type: EventDraftCreated})
}

func TestPublishStampsTimestamp(t *testing.T) {
	ps := New()
	ch := ps.Subscribe()

	ps.Publish(Event{Type: EventDraftCreated, DraftID: "d9"})

	ev, ok := receive(t, ch, 100*time.Millisecond)
	if !ok {
		t.Fatal("timeout waiting for event")
	}
	if ev.TS == 0 {
		t.Error("expected Publish to stamp a timestamp")
	}
	if ev.DraftID != "d9" {
		t.Errorf("expected draft d9, got %q", ev.DraftID)
	}
}

func TestPublishPayload(t *testing.T) {
	ps := New()
	ch := ps.Subscribe()

	ps.Publish(NewEvent(EventDraftPick, "d1", map[string]interface{}{
		"player":   "RB1-0",
		"pick":     1,
		"override": true,
	}))

	ev, ok := receive(t, ch, 100*time.Millisecond)
	if !ok {
		t.Fatal("timeout waiting for event")
	}
	if ev.Payload["player"] != "RB1-0" || ev.Payload["pick"] != 1 || ev.Payload["override"] != true {
		t.Errorf("payload mismatch: %+v", ev.Payload)
	}
}

func TestPublishDropsWhenChannelFull(t *testing.T) {
	ps := New()
	ch := ps.Subscribe()

	for i := 0; i < 15; i++ {
		ps.Publish(Event{Type: EventDraftPick})
	}

	if len(ch) != 10 {
		t.Errorf("expected 10 buffered events, got %d", len(ch))
	}
}

func TestSubscribeDraftFiltersOtherDrafts(t *testing.T) {
	ps := New()
	mine := ps.SubscribeDraft("d1")
	all := ps.Subscribe()

	ps.Publish(NewEvent(EventDraftPick, "d2", nil))
	ps.Publish(NewEvent(EventSimulationCompleted, "", nil))
	ps.Publish(NewEvent(EventDraftBlock, "d1", nil))

	ev, ok := receive(t, mine, 100*time.Millisecond)
	if !ok {
		t.Fatal("timeout waiting for d1 event")
	}
	if ev.DraftID != "d1" || ev.Type != EventDraftBlock {
		t.Errorf("draft listener got %+v, want the d1 block", ev)
	}
	if len(mine) != 0 {
		t.Errorf("draft listener should hold no other events, has %d", len(mine))
	}
	if len(all) != 3 {
		t.Errorf("unfiltered listener should see all 3 events, has %d", len(all))
	}

	ps.Unsubscribe(mine)
	if ps.SubscriberCount() != 1 {
		t.Errorf("expected 1 subscriber left, got %d", ps.SubscriberCount())
	}
}

func TestSubscribeDraftThroughUpstream(t *testing.T) {
	upstream := NewMockUpstream()
	ps := NewWithUpstream(upstream)
	waitForUpstream(t, upstream)

	ch := ps.SubscribeDraft("remote")
	upstream.Publish(NewEvent(EventDraftPick, "other", nil))
	upstream.Publish(NewEvent(EventDraftPick, "remote", nil))

	ev, ok := receive(t, ch, 100*time.Millisecond)
	if !ok {
		t.Fatal("timeout waiting for remote event")
	}
	if ev.DraftID != "remote" {
		t.Errorf("expected draft remote, got %q", ev.DraftID)
	}
}

func TestConcurrentSubscribeUnsubscribe(t *testing.T) {
	ps := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ch := ps.Subscribe()
			time.Sleep(time.Millisecond)
			ps.Unsubscribe(ch)
		}()
		go func() {
			defer wg.Done()
			ps.Publish(Event{Type: EventDraftPick})
		}()
	}
	wg.Wait()

	if ps.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after all unsubscribe, got %d", ps.SubscriberCount())
	}
}

func TestEventSubject(t *testing.T) {
	tests := []struct {
		prefix, draftID, want string
	}{
		{"draft.events", "abc-123", "draft.events.abc-123"},
		{"", "abc", "draft.events.abc"},
		{"x", "", "x.global"},
		{"x", "a.b*c>d e", "x.a_b_c_d_e"},
	}
	for _, tt := range tests {
		if got := EventSubject(tt.prefix, tt.draftID); got != tt.want {
			t.Errorf("EventSubject(%q, %q) = %q, want %q", tt.prefix, tt.draftID, got, tt.want)
		}
	}
	if got := StreamSubjects(""); len(got) != 1 || got[0] != "draft.events.>" {
		t.Errorf("StreamSubjects default = %v", got)
	}
}

// MockUpstream implements Upstream for testing
type MockUpstream struct {
	mu          sync.Mutex
	published   []Event
	subscribers []chan Event
}

func NewMockUpstream() *MockUpstream {
	return &MockUpstream{}
}

func (m *MockUpstream) Publish(event Event) {
	m.mu.Lock()
	m.published = append(m.published, event)
	subs := append([]chan Event(nil), m.subscribers...)
	m.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func (m *MockUpstream) Subscribe() chan Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan Event, 100)
	m.subscribers = append(m.subscribers, ch)
	return ch
}

func (m *MockUpstream) Unsubscribe(ch chan Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, sub := range m.subscribers {
		if sub == ch {
			close(ch)
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			break
		}
	}
}

func (m *MockUpstream) PublishedEvents() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.published...)
}

func (m *MockUpstream) subscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers)
}

func waitForUpstream(t *testing.T, m *MockUpstream) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for m.subscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("pubsub never subscribed to upstream")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPublishWithUpstream(t *testing.T) {
	upstream := NewMockUpstream()
	ps := NewWithUpstream(upstream)
	waitForUpstream(t, upstream)

	ch := ps.Subscribe()
	ps.Publish(NewEvent(EventSimulationCompleted, "", map[string]interface{}{"simulations": 10}))

	published := upstream.PublishedEvents()
	if len(published) != 1 || published[0].Type != EventSimulationCompleted {
		t.Fatalf("expected one simulation event upstream, got %+v", published)
	}

	ev, ok := receive(t, ch, 100*time.Millisecond)
	if !ok {
		t.Fatal("timeout waiting for event from upstream")
	}
	if ev.Type != EventSimulationCompleted {
		t.Errorf("expected %s, got %s", EventSimulationCompleted, ev.Type)
	}
}

func TestUpstreamBroadcastToLocalSubscribers(t *testing.T) {
	upstream := NewMockUpstream()
	ps := NewWithUpstream(upstream)
	waitForUpstream(t, upstream)

	ch1 := ps.Subscribe()
	ch2 := ps.Subscribe()

	// Another instance publishing through the shared upstream
	upstream.Publish(NewEvent(EventDraftDeleted, "remote", nil))

	for i, ch := range []chan Event{ch1, ch2} {
		ev, ok := receive(t, ch, 100*time.Millisecond)
		if !ok {
			t.Errorf("subscriber %d: timeout waiting for event", i)
			continue
		}
		if ev.DraftID != "remote" {
			t.Errorf("subscriber %d: expected draft remote, got %q", i, ev.DraftID)
		}
	}
}
