package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/social-feed/pkg/logger"
)

// RedisBus 基于 Redis pub/sub 跨节点分发事件；client 由调用方持有并关闭
type RedisBus struct {
	client *redis.Client
	buffer int

	mu     sync.Mutex
	subs   map[*redisSub]struct{}
	closed bool
}

func NewRedisBus(client *redis.Client, buffer int) *RedisBus {
	if buffer <= 0 {
		buffer = 64
	}
	return &RedisBus{client: client, buffer: buffer, subs: make(map[*redisSub]struct{})}
}

func (b *RedisBus) Publish(ctx context.Context, topic string, ev Event) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}
	ev.Topic = topic
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, topic, payload).Err()
}

// Subscribe 等 Redis 确认订阅后才返回，返回之后发布的事件不会漏
func (b *RedisBus) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	b.mu.Unlock()

	ps := b.client.Subscribe(ctx, topic)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	s := &redisSub{
		bus:   b,
		topic: topic,
		ps:    ps,
		relay: newRelay(b.buffer),
	}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	go s.forward(ps.Channel())
	return s, nil
}

func (b *RedisBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := make([]*redisSub, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		_ = s.Close()
	}
	return nil
}

type redisSub struct {
	bus   *RedisBus
	topic string
	ps    *redis.PubSub
	*relay
	once sync.Once
}

func (s *redisSub) Events() <-chan Event { return s.out }

func (s *redisSub) Close() error {
	var err error
	s.once.Do(func() {
		s.close()
		err = s.ps.Close()
		s.bus.mu.Lock()
		delete(s.bus.subs, s)
		s.bus.mu.Unlock()
	})
	return err
}

// forward 解码后放入无界队列，go-redis 的接收通道不会因消费慢而积压丢弃
func (s *redisSub) forward(in <-chan *redis.Message) {
	defer s.close()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.Warn("realtime: drop undecodable redis message", zap.String("topic", s.topic), zap.Error(err))
				continue
			}
			if !s.push(ev) {
				return
			}
		}
	}
}
