package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/social-feed/internal/model"
	"github.com/d60-Lab/social-feed/internal/realtime"
	"github.com/d60-Lab/social-feed/internal/repository"
	"github.com/d60-Lab/social-feed/pkg/logger"
	"github.com/d60-Lab/social-feed/pkg/metrics"
)

// NotificationJob 一条待生成的通知；收件人由调用方解析
type NotificationJob struct {
	Type        model.NotificationType
	RecipientID string
	ActorID     string
	PostID      string
	CommentID   *string
	enqAt       time.Time
}

// NotificationEmitter 本地异步通知生成器：落库、回读（带 actor/post）、按收件人主题推送
type NotificationEmitter struct {
	repo repository.NotificationRepository
	bus  realtime.Bus
	ch   chan NotificationJob
}

func NewNotificationEmitter(repo repository.NotificationRepository, bus realtime.Bus, queueSize int) *NotificationEmitter {
	if queueSize <= 0 {
		queueSize = 10000
	}
	return &NotificationEmitter{
		repo: repo,
		bus:  bus,
		ch:   make(chan NotificationJob, queueSize),
	}
}

// Start 启动 workers 个消费协程，返回的 stop 先等待队列排空（受 ctx 约束）再退出
func (e *NotificationEmitter) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 4
	}
	stopCh := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case job := <-e.ch:
					e.handle(job)
				case <-stopCh:
					return
				}
			}
		}()
	}

	var once sync.Once
	return func(ctx context.Context) error {
		var err error
		once.Do(func() {
			ticker := time.NewTicker(50 * time.Millisecond)
			defer ticker.Stop()
		drain:
			for len(e.ch) > 0 {
				select {
				case <-ctx.Done():
					err = ctx.Err()
					break drain
				case <-ticker.C:
				}
			}
			close(stopCh)
			wg.Wait()
		})
		return err
	}
}

func (e *NotificationEmitter) handle(job NotificationJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := e.Emit(ctx, job); err != nil {
		logger.Error("emit notification failed",
			zap.String("type", string(job.Type)),
			zap.String("recipient", job.RecipientID),
			zap.Error(err))
	}
	if !job.enqAt.IsZero() {
		metrics.NotificationLatency.Observe(time.Since(job.enqAt).Seconds())
	}
}

// Enqueue 非阻塞入队；队列满时丢弃并告警
func (e *NotificationEmitter) Enqueue(job NotificationJob) bool {
	job.enqAt = time.Now()
	select {
	case e.ch <- job:
		return true
	default:
		metrics.NotificationsDropped.Inc()
		logger.Warn("notification queue full, drop",
			zap.String("type", string(job.Type)),
			zap.String("recipient", job.RecipientID),
			zap.String("post", job.PostID))
		return false
	}
}

// Emit 同步生成一条通知。自己对自己的操作不产生通知，返回 (nil, nil)。
// 推送失败只记日志：通知已落库，收件人下次拉取仍能看到。
func (e *NotificationEmitter) Emit(ctx context.Context, job NotificationJob) (*model.Notification, error) {
	if job.RecipientID == "" || job.RecipientID == job.ActorID {
		return nil, nil
	}
	n := &model.Notification{
		RecipientID: job.RecipientID,
		ActorID:     job.ActorID,
		PostID:      job.PostID,
		CommentID:   job.CommentID,
		Type:        job.Type,
	}
	if err := e.repo.Create(ctx, n); err != nil {
		return nil, storeErr("create notification", "notification", n.ID, err)
	}
	full, err := e.repo.GetByID(ctx, n.ID)
	if err != nil {
		return nil, storeErr("reload notification", "notification", n.ID, err)
	}
	metrics.NotificationsEmitted.WithLabelValues(string(job.Type)).Inc()

	if e.bus != nil {
		ev, err := realtime.NewInsert("notifications", full)
		if err == nil {
			err = e.bus.Publish(ctx, realtime.NotificationTopic(full.RecipientID), ev)
		}
		if err != nil {
			logger.Warn("publish notification failed", zap.String("id", full.ID), zap.Error(err))
		}
	}
	return full, nil
}

// QueueLen 返回当前队列长度（采样值）
func (e *NotificationEmitter) QueueLen() int { return len(e.ch) }
