package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/social-feed/internal/apperr"
	"github.com/d60-Lab/social-feed/internal/model"
	"github.com/d60-Lab/social-feed/internal/realtime"
)

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type memStore struct {
	mu        sync.Mutex
	items     []model.Notification
	markErr   error
	markCalls int
	listErr   error
	onList    func()
}

func (s *memStore) ListRecent(_ context.Context, recipientID string, limit int) ([]model.Notification, error) {
	if s.onList != nil {
		s.onList()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []model.Notification
	for _, n := range s.items {
		if n.RecipientID == recipientID && len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *memStore) MarkRead(_ context.Context, _ string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markCalls++
	if s.markErr != nil {
		return s.markErr
	}
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Read = true
		}
	}
	return nil
}

func seed(n int, read func(int) bool) []model.Notification {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.Notification, n)
	for i := range out {
		out[i] = model.Notification{
			ID:          fmt.Sprintf("n%02d", i),
			RecipientID: "u1",
			ActorID:     "u2",
			PostID:      "p1",
			Type:        model.NotificationLike,
			Read:        read(i),
			CreatedAt:   base.Add(-time.Duration(i) * time.Minute),
		}
	}
	return out
}

func publish(t *testing.T, bus realtime.Bus, n model.Notification) {
	t.Helper()
	ev, err := realtime.NewInsert("notifications", n)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), realtime.NotificationTopic(n.RecipientID), ev))
}

func ids(items []model.Notification) []string {
	out := make([]string, len(items))
	for i, n := range items {
		out[i] = n.ID
	}
	return out
}

func TestStartLoadsNewestAndCountsUnread(t *testing.T) {
	store := &memStore{items: seed(12, func(i int) bool { return i%3 == 0 })}
	bus := realtime.NewMemoryBus(8)
	d := New("u1", store, bus)
	defer d.Close()

	assert.Equal(t, Uninitialized, d.Snapshot().State)
	require.NoError(t, d.Start(context.Background()))

	snap := d.Snapshot()
	assert.Equal(t, Loaded, snap.State)
	require.Len(t, snap.Items, DefaultLimit)
	assert.Equal(t, "n00", snap.Items[0].ID)
	// n00, n03, n06, n09 are read among the first ten
	assert.Equal(t, 6, snap.Unread)

	assert.ErrorIs(t, d.Start(context.Background()), ErrAlreadyStarted)
}

func TestLiveEventsPrependAndDedupe(t *testing.T) {
	store := &memStore{items: seed(2, func(int) bool { return false })}
	bus := realtime.NewMemoryBus(8)
	d := New("u1", store, bus, WithLimit(5))
	defer d.Close()
	require.NoError(t, d.Start(context.Background()))
	require.Equal(t, 2, d.Unread())

	fresh := model.Notification{ID: "live1", RecipientID: "u1", Type: model.NotificationComment}
	publish(t, bus, fresh)
	publish(t, bus, fresh)          // redelivery
	publish(t, bus, store.items[0]) // already fetched
	publish(t, bus, model.Notification{ID: "live2", RecipientID: "u1", Type: model.NotificationReply})

	require.Eventually(t, func() bool { return len(d.Snapshot().Items) == 4 }, timeout, tick)
	time.Sleep(20 * time.Millisecond)
	snap := d.Snapshot()
	assert.Equal(t, []string{"live2", "live1", "n00", "n01"}, ids(snap.Items))
	assert.Equal(t, 4, snap.Unread)
}

func TestEventDuringFetchIsNotLostOrDoubled(t *testing.T) {
	store := &memStore{items: seed(1, func(int) bool { return false })}
	bus := realtime.NewMemoryBus(8)
	racing := model.Notification{ID: "race", RecipientID: "u1", Type: model.NotificationLike}
	store.onList = func() {
		// created right at session start: persisted and published while
		// the initial fetch is running
		store.mu.Lock()
		store.items = append([]model.Notification{racing}, store.items...)
		store.mu.Unlock()
		publish(t, bus, racing)
	}

	d := New("u1", store, bus)
	defer d.Close()
	require.NoError(t, d.Start(context.Background()))

	time.Sleep(30 * time.Millisecond)
	snap := d.Snapshot()
	assert.Equal(t, []string{"race", "n00"}, ids(snap.Items))
	assert.Equal(t, 2, snap.Unread)
}

func TestBurstDuringSlowFetchIsKept(t *testing.T) {
	store := &memStore{}
	bus := realtime.NewMemoryBus(4)
	store.onList = func() {
		for i := 0; i < 6; i++ {
			publish(t, bus, model.Notification{ID: fmt.Sprintf("b%d", i), RecipientID: "u1", Type: model.NotificationLike})
		}
	}

	d := New("u1", store, bus, WithOnChange(func(Snapshot) {
		time.Sleep(2 * time.Millisecond) // 下游发送慢
	}))
	defer d.Close()
	require.NoError(t, d.Start(context.Background()))

	require.Eventually(t, func() bool { return d.Unread() == 6 }, timeout, tick)
	assert.Equal(t, []string{"b5", "b4", "b3", "b2", "b1", "b0"}, ids(d.Snapshot().Items))
}

func TestMarkReadTwiceDecrementsOnce(t *testing.T) {
	store := &memStore{items: seed(3, func(int) bool { return false })}
	d := New("u1", store, realtime.NewMemoryBus(8))
	defer d.Close()
	require.NoError(t, d.Start(context.Background()))
	require.Equal(t, 3, d.Unread())

	require.NoError(t, d.MarkRead(context.Background(), "n01"))
	assert.Equal(t, 2, d.Unread())
	assert.True(t, d.Snapshot().Items[1].Read)

	require.NoError(t, d.MarkRead(context.Background(), "n01"))
	assert.Equal(t, 2, d.Unread())
	assert.Equal(t, 1, store.markCalls)
}

func TestMarkReadConcurrentDecrementsOnce(t *testing.T) {
	store := &memStore{items: seed(1, func(int) bool { return false })}
	d := New("u1", store, realtime.NewMemoryBus(8))
	defer d.Close()
	require.NoError(t, d.Start(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.MarkRead(context.Background(), "n00")
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, d.Unread())
}

func TestMarkReadFailureKeepsState(t *testing.T) {
	store := &memStore{items: seed(1, func(int) bool { return false }), markErr: errors.New("update rejected")}
	d := New("u1", store, realtime.NewMemoryBus(8))
	defer d.Close()
	require.NoError(t, d.Start(context.Background()))

	err := d.MarkRead(context.Background(), "n00")
	assert.ErrorIs(t, err, apperr.ErrPersistence)
	assert.Equal(t, 1, d.Unread())
	assert.False(t, d.Snapshot().Items[0].Read)

	assert.ErrorIs(t, d.MarkRead(context.Background(), "nope"), apperr.ErrNotFound)
}

func TestMarkReadBeforeStart(t *testing.T) {
	d := New("u1", &memStore{}, realtime.NewMemoryBus(8))
	assert.ErrorIs(t, d.MarkRead(context.Background(), "n00"), ErrNotStarted)
}

func TestStartFetchFailureReleasesSubscription(t *testing.T) {
	bus := realtime.NewMemoryBus(8)
	d := New("u1", &memStore{listErr: errors.New("db down")}, bus)
	require.Error(t, d.Start(context.Background()))
	assert.Zero(t, bus.Subscribers(realtime.NotificationTopic("u1")))
}

func TestCloseStopsDelivery(t *testing.T) {
	bus := realtime.NewMemoryBus(8)
	var mu sync.Mutex
	changes := 0
	d := New("u1", &memStore{}, bus, WithOnChange(func(Snapshot) {
		mu.Lock()
		changes++
		mu.Unlock()
	}))
	require.NoError(t, d.Start(context.Background()))
	require.Equal(t, 1, bus.Subscribers(realtime.NotificationTopic("u1")))

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.Zero(t, bus.Subscribers(realtime.NotificationTopic("u1")))
	assert.Equal(t, Closed, d.Snapshot().State)

	publish(t, bus, model.Notification{ID: "late", RecipientID: "u1"})
	assert.False(t, d.Deliver(model.Notification{ID: "late2", RecipientID: "u1"}))
	mu.Lock()
	assert.Equal(t, 1, changes, "only the initial load was published")
	mu.Unlock()
	assert.ErrorIs(t, d.Start(context.Background()), ErrClosed)
}

func TestDeliverIgnoresOtherRecipients(t *testing.T) {
	d := New("u1", &memStore{}, realtime.NewMemoryBus(8))
	defer d.Close()
	require.NoError(t, d.Start(context.Background()))
	assert.False(t, d.Deliver(model.Notification{ID: "x", RecipientID: "u9"}))
	assert.True(t, d.Deliver(model.Notification{ID: "y", RecipientID: "u1", Read: true}))
	assert.Zero(t, d.Unread())
}
