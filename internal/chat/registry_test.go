package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRegistry() (*Registry, *fakeStore) {
	store := newFakeStore()
	return NewRegistry(Dependencies{
		Store:      store,
		AI:         echoAI(),
		LocalState: newFakeLocal(),
		Logger:     zap.NewNop(),
	}), store
}

func TestRegistry_SessionIsReused(t *testing.T) {
	r, _ := newTestRegistry()
	defer r.Shutdown()

	a := r.Session("user-1")
	b := r.Session("user-1")
	c := r.Session("user-2")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_OpenLoadsRoster(t *testing.T) {
	r, store := newTestRegistry()
	defer r.Shutdown()

	_, err := store.CreateConversation(context.Background(), "user-1", "Old chat")
	require.NoError(t, err)

	m := r.Open(context.Background(), "user-1")
	require.Len(t, m.Conversations(), 1)
	assert.Equal(t, "Old chat", m.Conversations()[0].Title)
}

func TestRegistry_OpenRestoresLastActive(t *testing.T) {
	store := newFakeStore()
	local := newFakeLocal()
	r := NewRegistry(Dependencies{Store: store, AI: echoAI(), LocalState: local, Logger: zap.NewNop()})
	defer r.Shutdown()

	first, err := r.Session("user-1").SendMessage(context.Background(), "First chat", nil)
	require.NoError(t, err)
	r.Close("user-1")
	assert.Equal(t, first, local.states["user-1"].LastActiveConversation)

	m := r.Open(context.Background(), "user-1")
	assert.Equal(t, first, m.ActiveConversationID())
	assert.Equal(t, StatusEstablished, m.State().Status)
	require.Len(t, m.Messages(), 2)
	assert.Equal(t, "re: First chat", m.Messages()[1].Content)
}

func TestRegistry_OpenSkipsStaleLastActive(t *testing.T) {
	store := newFakeStore()
	local := newFakeLocal()
	require.NoError(t, local.SetLastActiveConversation("user-1", "conv-gone"))
	_, err := store.CreateConversation(context.Background(), "user-1", "Still here")
	require.NoError(t, err)

	r := NewRegistry(Dependencies{Store: store, AI: echoAI(), LocalState: local, Logger: zap.NewNop()})
	defer r.Shutdown()

	m := r.Open(context.Background(), "user-1")
	assert.Len(t, m.Conversations(), 1)
	assert.Empty(t, m.ActiveConversationID())
	assert.Equal(t, StatusUnset, m.State().Status)
}

func TestRegistry_CloseSignsOut(t *testing.T) {
	r, _ := newTestRegistry()
	m := r.Session("user-1")

	_, err := m.SendMessage(context.Background(), "hello", nil)
	require.NoError(t, err)
	r.Close("user-1")

	assert.Empty(t, m.UserID())
	assert.Empty(t, m.Messages())
	_, ok := r.Lookup("user-1")
	assert.False(t, ok)

	id, err := m.SendMessage(context.Background(), "after sign-out", nil)
	assert.NoError(t, err)
	assert.Empty(t, id)

	// closing an unknown user is a no-op
	r.Close("nobody")
}

func TestRegistry_EvictIdle(t *testing.T) {
	r, _ := newTestRegistry()
	defer r.Shutdown()

	r.Session("user-1")
	time.Sleep(20 * time.Millisecond)
	fresh := r.Session("user-2")
	fresh.touch()

	evicted := r.EvictIdle(10 * time.Millisecond)
	assert.Equal(t, 1, evicted)
	_, ok := r.Lookup("user-1")
	assert.False(t, ok)
	_, ok = r.Lookup("user-2")
	assert.True(t, ok)
}

func TestRegistry_ScheduleEviction(t *testing.T) {
	r, _ := newTestRegistry()
	c := cron.New()

	_, err := r.ScheduleEviction(c, "@every 1m", time.Hour)
	assert.NoError(t, err)
	assert.Len(t, c.Entries(), 1)

	_, err = r.ScheduleEviction(c, "not a schedule", time.Hour)
	assert.Error(t, err)
}

func TestDebouncer_ReleasesAfterInterval(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)

	assert.True(t, d.TryAcquire())
	assert.False(t, d.TryAcquire())
	assert.Eventually(t, d.TryAcquire, time.Second, 5*time.Millisecond)
}

func TestEventBus_SubscribeAndCancel(t *testing.T) {
	bus := NewEventBus()
	events, cancel := bus.Subscribe()

	bus.Publish(Event{Type: EventCleared})
	evt := <-events
	assert.Equal(t, EventCleared, evt.Type)
	assert.False(t, evt.At.IsZero())

	cancel()
	cancel()
	_, open := <-events
	assert.False(t, open)

	// publishing without subscribers does not block
	bus.Publish(Event{Type: EventCleared})
}

func TestEventBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewEventBus()
	_, cancel := bus.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			bus.Publish(Event{Type: EventLoadingChanged})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestDeleteSequentially(t *testing.T) {
	var seen []string
	del := func(ctx context.Context, id string) error {
		seen = append(seen, id)
		if id == "b" {
			return ErrConversationNotFound
		}
		return nil
	}

	n, err := DeleteSequentially(context.Background(), []string{"a", "b", "c"}, del)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"a", "b"}, seen)
	assert.True(t, errors.Is(err, ErrConversationNotFound))

	n, err = DeleteSequentially(context.Background(), nil, del)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}
