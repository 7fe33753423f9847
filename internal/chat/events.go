package chat

import (
	"sync"
	"time"

	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
)

// EventType names a session state change
type EventType string

const (
	EventMessageAppended EventType = "message_appended"
	EventLoadingChanged  EventType = "loading_changed"
	EventActiveChanged   EventType = "active_changed"
	EventRosterRefreshed EventType = "roster_refreshed"
	EventCleared         EventType = "cleared"
	EventModeChanged     EventType = "mode_changed"
	EventLanguageChanged EventType = "language_changed"
	EventSidebarChanged  EventType = "sidebar_changed"
)

// Event is published to subscribers whenever session state changes
type Event struct {
	Type           EventType      `json:"type"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Message        *model.Message `json:"message,omitempty"`
	Loading        *bool          `json:"loading,omitempty"`
	Status         Status         `json:"status,omitempty"`
	Value          string         `json:"value,omitempty"`
	At             time.Time      `json:"at"`
}

const subscriberBuffer = 64

// EventBus fans events out to subscribers. Slow subscribers lose events
// instead of blocking publishers.
type EventBus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

// NewEventBus creates an empty bus
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel of events and a function that cancels it
func (b *EventBus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// Publish delivers evt to every subscriber without blocking
func (b *EventBus) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Close cancels every subscription
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
