// Package realtime 行变更生产方与实时视图会话之间的推送通道。
// 订阅端队列无界，消费慢不丢事件；投递至少一次，且与订阅同时拉取的快照之间无序，
// 消费方需自行去重。
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrClosed 总线已关闭
var ErrClosed = errors.New("realtime: bus closed")

// EventInsert 目前唯一的事件类型
const EventInsert = "INSERT"

// Event 一次行变更
type Event struct {
	Topic   string          `json:"topic"`
	Kind    string          `json:"kind"`
	Table   string          `json:"table"`
	Payload json.RawMessage `json:"payload"`
	SentAt  time.Time       `json:"sent_at"`
}

// Subscription 持续投递单个主题的事件直到关闭；Close 幂等并关闭 Events 通道
type Subscription interface {
	Events() <-chan Event
	Close() error
}

type Bus interface {
	Publish(ctx context.Context, topic string, ev Event) error
	Subscribe(ctx context.Context, topic string) (Subscription, error)
	Close() error
}

// NotificationTopic 收件人的通知主题
func NotificationTopic(recipientID string) string {
	return "notifications:" + recipientID
}

// NewInsert 为一行数据构造插入事件
func NewInsert(table string, row any) (Event, error) {
	payload, err := json.Marshal(row)
	if err != nil {
		return Event{}, err
	}
	return Event{Kind: EventInsert, Table: table, Payload: payload, SentAt: time.Now().UTC()}, nil
}
