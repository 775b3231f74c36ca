// Package session 承载单个观看者的实时视图：已加载内容的点赞状态机与评论草稿框，
// 以及该观看者的通知分发器。每次状态变化都以 Frame 推给连接。
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/d60-Lab/social-feed/internal/apperr"
	"github.com/d60-Lab/social-feed/internal/feed"
	"github.com/d60-Lab/social-feed/internal/interaction"
	"github.com/d60-Lab/social-feed/internal/model"
	"github.com/d60-Lab/social-feed/internal/notify"
	"github.com/d60-Lab/social-feed/internal/realtime"
	"github.com/d60-Lab/social-feed/internal/service"
	"github.com/d60-Lab/social-feed/internal/thread"
	"github.com/d60-Lab/social-feed/pkg/logger"
	"github.com/d60-Lab/social-feed/pkg/metrics"
)

type FrameType string

const (
	FrameFeed           FrameType = "feed"
	FramePost           FrameType = "post"
	FrameProfile        FrameType = "profile"
	FrameLikeState      FrameType = "like_state"
	FrameCommentCreated FrameType = "comment_created"
	FrameNotifications  FrameType = "notifications"
	FrameNotice         FrameType = "notice"
	FrameAuthRequired   FrameType = "auth_required"
	FrameError          FrameType = "error"
)

// Frame 服务端到客户端的一条消息
type Frame struct {
	Type FrameType `json:"type"`
	Data any       `json:"data,omitempty"`
}

// Notice 临时提示；Draft 为恢复的评论草稿
type Notice struct {
	Message string `json:"message"`
	Draft   string `json:"draft,omitempty"`
}

// Deps 会话依赖的服务
type Deps struct {
	Feed              service.FeedService
	Interactions      service.InteractionService
	Notifications     notify.Store
	Bus               realtime.Bus
	NotificationLimit int
}

// Session 可并发使用，send 也必须并发安全
type Session struct {
	viewerID string
	deps     Deps
	send     func(Frame)
	likes    *interaction.Registry

	mu        sync.Mutex
	composers map[string]*interaction.Composer
	inbox     *notify.Dispatcher
	counted   bool
	closed    bool
}

func New(viewerID string, deps Deps, send func(Frame)) *Session {
	s := &Session{
		viewerID:  viewerID,
		deps:      deps,
		send:      send,
		composers: make(map[string]*interaction.Composer),
	}
	s.likes = interaction.NewRegistry(deps.Interactions.LikeStores(), s.onTransition)
	return s
}

func (s *Session) Viewer() string { return s.viewerID }

// Start 为已登录观看者打开通知列表，匿名会话没有通知
func (s *Session) Start(ctx context.Context) error {
	if s.viewerID == "" || s.deps.Notifications == nil || s.deps.Bus == nil {
		return nil
	}
	d := notify.New(s.viewerID, s.deps.Notifications, s.deps.Bus,
		notify.WithLimit(s.deps.NotificationLimit),
		notify.WithOnChange(func(snap notify.Snapshot) {
			s.send(Frame{Type: FrameNotifications, Data: snap})
		}))
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return notify.ErrClosed
	}
	s.inbox = d
	s.counted = true
	s.mu.Unlock()
	metrics.LiveSessions.Inc()

	if err := d.Start(ctx); err != nil {
		s.mu.Lock()
		s.inbox = nil
		s.mu.Unlock()
		s.uncount()
		return err
	}
	return nil
}

func (s *Session) uncount() {
	s.mu.Lock()
	counted := s.counted
	s.counted = false
	s.mu.Unlock()
	if counted {
		metrics.LiveSessions.Dec()
	}
}

func (s *Session) LoadFeed(ctx context.Context) error {
	views, err := s.deps.Feed.Home(ctx, s.viewerID)
	if err != nil {
		return s.fail(err)
	}
	s.seed(views...)
	s.send(Frame{Type: FrameFeed, Data: views})
	return nil
}

func (s *Session) LoadPost(ctx context.Context, id string) error {
	v, err := s.deps.Feed.Post(ctx, id, s.viewerID)
	if err != nil {
		return s.fail(err)
	}
	s.seed(*v)
	s.send(Frame{Type: FramePost, Data: v})
	return nil
}

func (s *Session) LoadProfile(ctx context.Context, username string) error {
	v, err := s.deps.Feed.Profile(ctx, username, s.viewerID)
	if err != nil {
		return s.fail(err)
	}
	s.seed(v.Posts...)
	s.seed(v.Commented...)
	s.seed(v.Liked...)
	s.send(Frame{Type: FrameProfile, Data: v})
	return nil
}

// seed 把视图中每个帖子和评论登记到点赞状态机
func (s *Session) seed(views ...feed.PostView) {
	for i := range views {
		v := &views[i]
		_ = s.likes.Seed(interaction.KindPost, v.ID, interaction.LikeState{Liked: v.IsLiked, Count: v.LikeCount})
		thread.Walk(v.Comments, func(n *thread.Node) {
			_ = s.likes.Seed(interaction.KindComment, n.ID, interaction.LikeState{Liked: n.IsLiked, Count: n.LikeCount})
		})
	}
}

// ToggleLike 切换已加载帖子或评论的点赞，迁移通过 like_state 帧推送
func (s *Session) ToggleLike(ctx context.Context, kind interaction.Kind, id string) error {
	_, err := s.likes.Toggle(ctx, kind, id, s.viewerID)
	if err == nil {
		return nil
	}
	if errors.Is(err, interaction.ErrInFlight) {
		// 上一次切换尚未落库，忽略
		metrics.LikeToggles.WithLabelValues(string(kind), "rejected").Inc()
		return nil
	}
	if errors.Is(err, apperr.ErrAuthRequired) {
		metrics.LikeToggles.WithLabelValues(string(kind), "rejected").Inc()
	}
	if errors.Is(err, apperr.ErrPersistence) {
		// 状态机已回滚并推送 Reverted
		s.send(Frame{Type: FrameNotice, Data: Notice{Message: "Could not save your like. Please try again."}})
		return err
	}
	return s.fail(err)
}

func (s *Session) onTransition(t interaction.Transition) {
	switch t.Phase {
	case interaction.Confirmed, interaction.Reverted:
		metrics.LikeToggles.WithLabelValues(string(t.Kind), t.Phase.String()).Inc()
	}
	s.send(Frame{Type: FrameLikeState, Data: t})
}

func composerKey(postID string, parentID *string) string {
	if parentID == nil {
		return postID
	}
	return postID + "/" + *parentID
}

func (s *Session) composer(postID string, parentID *string) *interaction.Composer {
	k := composerKey(postID, parentID)
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.composers[k]
	if !ok {
		c = interaction.NewComposer(postID, parentID, s.deps.Interactions)
		s.composers[k] = c
	}
	return c
}

// Draft 回复目标当前的草稿
func (s *Session) Draft(postID string, parentID *string) string {
	return s.composer(postID, parentID).Draft()
}

// SubmitComment 发表评论或回复。成功后重新加载帖子以刷新评论树；
// 失败时保留草稿并在 notice 中回传
func (s *Session) SubmitComment(ctx context.Context, postID string, parentID *string, content string) (*model.Comment, error) {
	c := s.composer(postID, parentID)
	c.SetDraft(content)
	created, err := c.Submit(ctx, s.viewerID)
	if err != nil {
		if errors.Is(err, interaction.ErrInFlight) {
			return nil, err
		}
		if errors.Is(err, apperr.ErrPersistence) {
			s.send(Frame{Type: FrameNotice, Data: Notice{Message: "Could not post your comment.", Draft: c.Draft()}})
			return nil, err
		}
		return nil, s.fail(err)
	}
	s.send(Frame{Type: FrameCommentCreated, Data: created})
	if err := s.LoadPost(ctx, postID); err != nil {
		logger.Warn("reload post after comment", zap.String("post", postID), zap.Error(err))
	}
	return created, nil
}

func (s *Session) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	d := s.inbox
	s.mu.Unlock()
	if d == nil {
		return s.fail(apperr.ErrAuthRequired)
	}
	if err := d.MarkRead(ctx, id); err != nil {
		return s.fail(err)
	}
	return nil
}

// Notifications 通知快照；没有通知列表时 ok 为 false
func (s *Session) Notifications() (notify.Snapshot, bool) {
	s.mu.Lock()
	d := s.inbox
	s.mu.Unlock()
	if d == nil {
		return notify.Snapshot{}, false
	}
	return d.Snapshot(), true
}

// Close 释放通知订阅，可重复调用
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	d := s.inbox
	s.mu.Unlock()
	s.uncount()
	if d == nil {
		return nil
	}
	return d.Close()
}

// fail 推送与 err 对应的帧并原样返回 err
func (s *Session) fail(err error) error {
	switch {
	case errors.Is(err, apperr.ErrAuthRequired):
		s.send(Frame{Type: FrameAuthRequired, Data: Notice{Message: "Sign in to continue."}})
	case errors.Is(err, apperr.ErrPersistence):
		s.send(Frame{Type: FrameNotice, Data: Notice{Message: "Something went wrong. Please try again."}})
	default:
		s.send(Frame{Type: FrameError, Data: Notice{Message: err.Error()}})
	}
	return err
}

// Command 客户端到服务端的一条消息
type Command struct {
	Type     string           `json:"type"`
	ID       string           `json:"id,omitempty"`
	Kind     interaction.Kind `json:"kind,omitempty"`
	PostID   string           `json:"post_id,omitempty"`
	ParentID *string          `json:"parent_id,omitempty"`
	Content  string           `json:"content,omitempty"`
	Username string           `json:"username,omitempty"`
}

// Handle 执行一条命令；出错时已推送对应的帧
func (s *Session) Handle(ctx context.Context, cmd Command) error {
	switch cmd.Type {
	case "load_feed":
		return s.LoadFeed(ctx)
	case "load_post":
		return s.LoadPost(ctx, cmd.ID)
	case "load_profile":
		return s.LoadProfile(ctx, cmd.Username)
	case "toggle_like":
		return s.ToggleLike(ctx, cmd.Kind, cmd.ID)
	case "submit_comment":
		_, err := s.SubmitComment(ctx, cmd.PostID, cmd.ParentID, cmd.Content)
		return err
	case "mark_read":
		return s.MarkRead(ctx, cmd.ID)
	}
	return s.fail(apperr.Malformed(fmt.Sprintf("unknown command %q", cmd.Type)))
}
