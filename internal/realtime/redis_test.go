package realtime

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisBus(t *testing.T) (*RedisBus, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	bus := NewRedisBus(client, 8)
	t.Cleanup(func() { _ = bus.Close() })
	return bus, mr
}

func TestRedisBusRoundTrip(t *testing.T) {
	ctx := context.Background()
	bus, _ := newRedisBus(t)

	s, err := bus.Subscribe(ctx, NotificationTopic("u1"))
	require.NoError(t, err)

	ev, err := NewInsert("notifications", row{ID: "n1"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, NotificationTopic("u1"), ev))

	got := recv(t, s)
	assert.Equal(t, "notifications:u1", got.Topic)
	assert.Equal(t, "notifications", got.Table)
	assert.JSONEq(t, `{"id":"n1"}`, string(got.Payload))
}

func TestRedisBusUndecodableMessageSkipped(t *testing.T) {
	ctx := context.Background()
	bus, mr := newRedisBus(t)

	s, err := bus.Subscribe(ctx, "t")
	require.NoError(t, err)

	mr.Publish("t", "not json")
	require.NoError(t, bus.Publish(ctx, "t", Event{Table: "after"}))
	assert.Equal(t, "after", recv(t, s).Table)
}

func TestRedisBusCloseReleasesSubscription(t *testing.T) {
	ctx := context.Background()
	bus, mr := newRedisBus(t)

	s, err := bus.Subscribe(ctx, "t")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(mr.PubSubChannels("*")) == 1 }, timeout, tick)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	for range s.Events() {
	}
	require.Eventually(t, func() bool { return len(mr.PubSubChannels("*")) == 0 }, timeout, tick)

	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(ctx, "t", Event{}), ErrClosed)
}
