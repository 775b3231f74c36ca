package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID string `json:"id"`
}

func recv(t *testing.T, s Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-s.Events():
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}
	return Event{}
}

func TestMemoryBusDeliversByTopic(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus(8)
	defer bus.Close()

	mine, err := bus.Subscribe(ctx, NotificationTopic("u1"))
	require.NoError(t, err)
	other, err := bus.Subscribe(ctx, NotificationTopic("u2"))
	require.NoError(t, err)

	ev, err := NewInsert("notifications", row{ID: "n1"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, NotificationTopic("u1"), ev))

	got := recv(t, mine)
	assert.Equal(t, "notifications:u1", got.Topic)
	assert.Equal(t, EventInsert, got.Kind)
	assert.JSONEq(t, `{"id":"n1"}`, string(got.Payload))

	select {
	case <-other.Events():
		t.Fatal("event leaked to another topic")
	default:
	}
}

func TestMemoryBusCloseSubscription(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus(1)
	s, err := bus.Subscribe(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, 1, bus.Subscribers("t"))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Zero(t, bus.Subscribers("t"))
	_, ok := <-s.Events()
	assert.False(t, ok)

	assert.NoError(t, bus.Publish(ctx, "t", Event{}))
}

func TestMemoryBusKeepsEventsForSlowSubscriber(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus(1)
	defer bus.Close()
	s, err := bus.Subscribe(ctx, "t")
	require.NoError(t, err)

	tables := []string{"a", "b", "c", "d", "e", "f"}
	for _, tb := range tables {
		require.NoError(t, bus.Publish(ctx, "t", Event{Table: tb}))
	}
	for _, tb := range tables {
		assert.Equal(t, tb, recv(t, s).Table)
	}
}

func TestMemoryBusClosed(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus(1)
	s, err := bus.Subscribe(ctx, "t")
	require.NoError(t, err)
	require.NoError(t, bus.Close())

	_, ok := <-s.Events()
	assert.False(t, ok)
	assert.ErrorIs(t, bus.Publish(ctx, "t", Event{}), ErrClosed)
	_, err = bus.Subscribe(ctx, "t")
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, s.Close())
}
