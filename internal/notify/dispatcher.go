// Package notify 维护单个收件人的实时通知列表：先拉取最新若干条，
// 再通过订阅把新通知插到最前
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/d60-Lab/social-feed/internal/apperr"
	"github.com/d60-Lab/social-feed/internal/model"
	"github.com/d60-Lab/social-feed/internal/realtime"
	"github.com/d60-Lab/social-feed/pkg/logger"
)

// DefaultLimit 首次拉取条数
const DefaultLimit = 10

var (
	ErrNotStarted     = errors.New("notify: dispatcher not started")
	ErrAlreadyStarted = errors.New("notify: dispatcher already started")
	ErrClosed         = errors.New("notify: dispatcher closed")
)

// State 生命周期
type State int

const (
	Uninitialized State = iota
	Loaded
	Closed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loaded:
		return "loaded"
	case Closed:
		return "closed"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Store 通知的持久化侧
type Store interface {
	ListRecent(ctx context.Context, recipientID string, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, recipientID, id string) error
}

// Snapshot 状态副本
type Snapshot struct {
	State  State                `json:"state"`
	Items  []model.Notification `json:"items"`
	Unread int                  `json:"unread"`
}

// Dispatcher 持有单个收件人有序、去重的通知列表
type Dispatcher struct {
	recipientID string
	limit       int
	store       Store
	bus         realtime.Bus
	onChange    func(Snapshot)

	mu      sync.Mutex
	state   State
	items   []model.Notification
	seen    map[string]struct{}
	marking map[string]struct{}
	unread  int
	sub     realtime.Subscription

	closeOnce sync.Once
	done      chan struct{}
}

type Option func(*Dispatcher)

func WithLimit(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.limit = n
		}
	}
}

// WithOnChange 每次变化后以新快照回调，回调时不持锁
func WithOnChange(fn func(Snapshot)) Option {
	return func(d *Dispatcher) { d.onChange = fn }
}

func New(recipientID string, store Store, bus realtime.Bus, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		recipientID: recipientID,
		limit:       DefaultLimit,
		store:       store,
		bus:         bus,
		seen:        make(map[string]struct{}),
		marking:     make(map[string]struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start 先订阅收件人主题再拉取最新通知。先订阅保证拉取期间产生的通知不丢，
// 重复投递按 id 去重
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	switch d.state {
	case Loaded:
		d.mu.Unlock()
		return ErrAlreadyStarted
	case Closed:
		d.mu.Unlock()
		return ErrClosed
	}
	d.mu.Unlock()

	sub, err := d.bus.Subscribe(ctx, realtime.NotificationTopic(d.recipientID))
	if err != nil {
		return err
	}
	items, err := d.store.ListRecent(ctx, d.recipientID, d.limit)
	if err != nil {
		_ = sub.Close()
		return err
	}

	d.mu.Lock()
	if d.state != Uninitialized {
		st := d.state
		d.mu.Unlock()
		_ = sub.Close()
		if st == Closed {
			return ErrClosed
		}
		return ErrAlreadyStarted
	}
	d.sub = sub
	d.items = make([]model.Notification, 0, len(items))
	for _, n := range items {
		if _, dup := d.seen[n.ID]; dup {
			continue
		}
		d.seen[n.ID] = struct{}{}
		d.items = append(d.items, n)
		if !n.Read {
			d.unread++
		}
	}
	d.state = Loaded
	snap := d.snapshotLocked()
	d.mu.Unlock()

	d.emit(snap)
	go d.consume(sub)
	return nil
}

func (d *Dispatcher) consume(sub realtime.Subscription) {
	for {
		select {
		case <-d.done:
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			var n model.Notification
			if err := json.Unmarshal(ev.Payload, &n); err != nil || n.ID == "" {
				logger.Warn("notify: drop malformed event", zap.String("recipient", d.recipientID), zap.Error(err))
				continue
			}
			d.Deliver(n)
		}
	}
}

// Deliver 把实时通知插到最前（id 已存在则跳过），返回列表是否变化
func (d *Dispatcher) Deliver(n model.Notification) bool {
	d.mu.Lock()
	if d.state != Loaded || (n.RecipientID != "" && n.RecipientID != d.recipientID) {
		d.mu.Unlock()
		return false
	}
	if _, dup := d.seen[n.ID]; dup {
		d.mu.Unlock()
		return false
	}
	d.seen[n.ID] = struct{}{}
	d.items = append([]model.Notification{n}, d.items...)
	if !n.Read {
		d.unread++
	}
	snap := d.snapshotLocked()
	d.mu.Unlock()

	d.emit(snap)
	return true
}

// MarkRead 落库已读并更新本地副本。已读或正在标记中的通知直接返回，
// 每条通知的未读数只减一次
func (d *Dispatcher) MarkRead(ctx context.Context, id string) error {
	d.mu.Lock()
	if d.state != Loaded {
		d.mu.Unlock()
		return ErrNotStarted
	}
	i := d.indexLocked(id)
	if i < 0 {
		d.mu.Unlock()
		return apperr.NotFound("notification", id)
	}
	if _, busy := d.marking[id]; busy || d.items[i].Read {
		d.mu.Unlock()
		return nil
	}
	d.marking[id] = struct{}{}
	d.mu.Unlock()

	err := d.store.MarkRead(ctx, d.recipientID, id)

	d.mu.Lock()
	delete(d.marking, id)
	if err != nil {
		d.mu.Unlock()
		return apperr.Persistence("mark notification read", err)
	}
	changed := false
	if i := d.indexLocked(id); i >= 0 && !d.items[i].Read {
		d.items[i].Read = true
		if d.unread > 0 {
			d.unread--
		}
		changed = true
	}
	snap := d.snapshotLocked()
	d.mu.Unlock()

	if changed {
		d.emit(snap)
	}
	return nil
}

// Snapshot 返回当前状态副本
func (d *Dispatcher) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

func (d *Dispatcher) Unread() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.unread
}

// Close 释放订阅，之后不再推送变化
func (d *Dispatcher) Close() error {
	var err error
	d.closeOnce.Do(func() {
		close(d.done)
		d.mu.Lock()
		d.state = Closed
		sub := d.sub
		d.sub = nil
		d.mu.Unlock()
		if sub != nil {
			err = sub.Close()
		}
	})
	return err
}

func (d *Dispatcher) indexLocked(id string) int {
	for i := range d.items {
		if d.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (d *Dispatcher) snapshotLocked() Snapshot {
	items := make([]model.Notification, len(d.items))
	copy(items, d.items)
	return Snapshot{State: d.state, Items: items, Unread: d.unread}
}

func (d *Dispatcher) emit(s Snapshot) {
	if d.onChange == nil {
		return
	}
	select {
	case <-d.done:
		return
	default:
	}
	d.onChange(s)
}
