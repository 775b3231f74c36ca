package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/social-feed/config"
	"github.com/d60-Lab/social-feed/internal/apperr"
	"github.com/d60-Lab/social-feed/internal/feed"
	"github.com/d60-Lab/social-feed/internal/interaction"
	"github.com/d60-Lab/social-feed/internal/model"
	"github.com/d60-Lab/social-feed/internal/notify"
	"github.com/d60-Lab/social-feed/internal/realtime"
	"github.com/d60-Lab/social-feed/internal/repository"
	"github.com/d60-Lab/social-feed/internal/service"
	"github.com/d60-Lab/social-feed/pkg/database"
)

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type recorder struct {
	mu     sync.Mutex
	frames []Frame
}

func (r *recorder) send(f Frame) {
	r.mu.Lock()
	r.frames = append(r.frames, f)
	r.mu.Unlock()
}

func (r *recorder) types() []FrameType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]FrameType, len(r.frames))
	for i, f := range r.frames {
		out[i] = f.Type
	}
	return out
}

func (r *recorder) last(t FrameType) (Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.frames) - 1; i >= 0; i-- {
		if r.frames[i].Type == t {
			return r.frames[i], true
		}
	}
	return Frame{}, false
}

type env struct {
	db      *gorm.DB
	bus     *realtime.MemoryBus
	deps    Deps
	emitter *service.NotificationEmitter
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := database.OpenMemory(model.All()...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	bus := realtime.NewMemoryBus(16)

	cfg := config.FeedConfig{HomeLimit: 50, MaxReplyDepth: 2, NotificationLimit: 10, MaxContentLength: 200}
	posts := repository.NewPostRepository(db)
	profiles := repository.NewProfileRepository(db)
	comments := repository.NewCommentRepository(db)
	notes := repository.NewNotificationRepository(db)
	emitter := service.NewNotificationEmitter(notes, bus, 16)

	ctx := context.Background()
	require.NoError(t, profiles.Create(ctx, &model.Profile{ID: "alice", Username: "alice"}))
	require.NoError(t, profiles.Create(ctx, &model.Profile{ID: "bob", Username: "bob"}))
	require.NoError(t, posts.Create(ctx, &model.Post{ID: "p1", Content: "hello", UserID: "alice"}))
	require.NoError(t, comments.Create(ctx, &model.Comment{ID: "c1", Content: "hey", UserID: "bob", PostID: "p1"}))

	return &env{
		db:      db,
		bus:     bus,
		emitter: emitter,
		deps: Deps{
			Feed:              service.NewFeedService(posts, profiles, cfg),
			Interactions:      service.NewInteractionService(posts, comments, repository.NewLikeRepository(db), nil, cfg),
			Notifications:     service.NewNotificationService(notes),
			Bus:               bus,
			NotificationLimit: cfg.NotificationLimit,
		},
	}
}

func TestAnonymousToggleAsksForSignIn(t *testing.T) {
	e := newEnv(t)
	rec := &recorder{}
	s := New("", e.deps, rec.send)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	_, ok := s.Notifications()
	assert.False(t, ok)

	require.NoError(t, s.LoadPost(ctx, "p1"))
	err := s.ToggleLike(ctx, interaction.KindPost, "p1")
	assert.ErrorIs(t, err, apperr.ErrAuthRequired)
	assert.Equal(t, []FrameType{FramePost, FrameAuthRequired}, rec.types())

	var cnt int64
	require.NoError(t, e.db.Model(&model.Like{}).Count(&cnt).Error)
	assert.Zero(t, cnt)
}

func TestToggleLikePushesPendingThenConfirmed(t *testing.T) {
	e := newEnv(t)
	rec := &recorder{}
	s := New("bob", e.deps, rec.send)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.LoadFeed(ctx))
	require.NoError(t, s.ToggleLike(ctx, interaction.KindPost, "p1"))

	var phases []interaction.Phase
	for _, f := range rec.frames {
		if f.Type == FrameLikeState {
			tr := f.Data.(interaction.Transition)
			phases = append(phases, tr.Phase)
			assert.Equal(t, interaction.LikeState{Liked: true, Count: 1}, tr.State)
		}
	}
	assert.Equal(t, []interaction.Phase{interaction.Pending, interaction.Confirmed}, phases)

	require.NoError(t, s.ToggleLike(ctx, interaction.KindComment, "c1"))
	require.NoError(t, s.LoadPost(ctx, "p1"))
	f, ok := rec.last(FramePost)
	require.True(t, ok)
	v := f.Data.(*feed.PostView)
	assert.True(t, v.IsLiked)
	assert.True(t, v.Comments[0].IsLiked)
}

// gatedLikes 让帖子点赞阻塞在 gate 上，模拟慢落库
type gatedLikes struct {
	service.InteractionService
	gate    chan struct{}
	entered chan struct{}
}

func (g *gatedLikes) LikeStores() map[interaction.Kind]interaction.LikeStore {
	stores := g.InteractionService.LikeStores()
	stores[interaction.KindPost] = gatedStore{LikeStore: stores[interaction.KindPost], g: g}
	return stores
}

type gatedStore struct {
	interaction.LikeStore
	g *gatedLikes
}

func (s gatedStore) Like(ctx context.Context, viewerID, id string) error {
	s.g.entered <- struct{}{}
	<-s.g.gate
	return s.LikeStore.Like(ctx, viewerID, id)
}

func TestToggleWhilePendingIsIgnored(t *testing.T) {
	e := newEnv(t)
	g := &gatedLikes{InteractionService: e.deps.Interactions, gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	e.deps.Interactions = g
	rec := &recorder{}
	s := New("bob", e.deps, rec.send)
	defer s.Close()
	ctx := context.Background()
	require.NoError(t, s.LoadPost(ctx, "p1"))

	done := make(chan error, 1)
	go func() { done <- s.ToggleLike(ctx, interaction.KindPost, "p1") }()
	<-g.entered

	assert.NoError(t, s.ToggleLike(ctx, interaction.KindPost, "p1"))
	_, hasErr := rec.last(FrameError)
	assert.False(t, hasErr)

	close(g.gate)
	require.NoError(t, <-done)
	f, ok := rec.last(FrameLikeState)
	require.True(t, ok)
	tr := f.Data.(interaction.Transition)
	assert.Equal(t, interaction.Confirmed, tr.Phase)
	assert.Equal(t, interaction.LikeState{Liked: true, Count: 1}, tr.State)
}

func TestToggleUntrackedIsError(t *testing.T) {
	e := newEnv(t)
	rec := &recorder{}
	s := New("bob", e.deps, rec.send)
	defer s.Close()

	err := s.ToggleLike(context.Background(), interaction.KindPost, "p1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, []FrameType{FrameError}, rec.types())
}

func TestToggleFailureRevertsWithNotice(t *testing.T) {
	e := newEnv(t)
	rec := &recorder{}
	s := New("bob", e.deps, rec.send)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.LoadPost(ctx, "p1"))
	require.NoError(t, database.Close(e.db))

	err := s.ToggleLike(ctx, interaction.KindPost, "p1")
	assert.ErrorIs(t, err, apperr.ErrPersistence)
	f, ok := rec.last(FrameLikeState)
	require.True(t, ok)
	tr := f.Data.(interaction.Transition)
	assert.Equal(t, interaction.Reverted, tr.Phase)
	assert.Equal(t, interaction.LikeState{}, tr.State)
	_, ok = rec.last(FrameNotice)
	assert.True(t, ok)
}

func TestSubmitComment(t *testing.T) {
	e := newEnv(t)
	rec := &recorder{}
	s := New("alice", e.deps, rec.send)
	defer s.Close()
	ctx := context.Background()

	_, err := s.SubmitComment(ctx, "p1", nil, "   ")
	assert.ErrorIs(t, err, apperr.ErrMalformedInput)

	parent := "c1"
	c, err := s.SubmitComment(ctx, "p1", &parent, "thanks")
	require.NoError(t, err)
	assert.Equal(t, "c1", *c.ParentID)
	assert.Empty(t, s.Draft("p1", &parent))

	f, ok := rec.last(FramePost)
	require.True(t, ok)
	v := f.Data.(*feed.PostView)
	require.Len(t, v.Comments, 1)
	require.Len(t, v.Comments[0].Children, 1)
	assert.Equal(t, c.ID, v.Comments[0].Children[0].ID)

	// 新评论已纳入点赞追踪
	require.NoError(t, s.ToggleLike(ctx, interaction.KindComment, c.ID))
}

func TestSubmitCommentFailureKeepsDraft(t *testing.T) {
	e := newEnv(t)
	rec := &recorder{}
	s := New("alice", e.deps, rec.send)
	defer s.Close()
	require.NoError(t, database.Close(e.db))

	_, err := s.SubmitComment(context.Background(), "p1", nil, "keep me")
	assert.ErrorIs(t, err, apperr.ErrPersistence)
	assert.Equal(t, "keep me", s.Draft("p1", nil))
	f, ok := rec.last(FrameNotice)
	require.True(t, ok)
	assert.Equal(t, "keep me", f.Data.(Notice).Draft)
}

func TestLiveNotifications(t *testing.T) {
	e := newEnv(t)
	rec := &recorder{}
	s := New("alice", e.deps, rec.send)
	ctx := context.Background()
	require.NoError(t, s.Start(ctx))

	n, err := e.emitter.Emit(ctx, service.NotificationJob{Type: model.NotificationComment, RecipientID: "alice", ActorID: "bob", PostID: "p1"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap, _ := s.Notifications()
		return snap.Unread == 1
	}, timeout, tick)
	f, ok := rec.last(FrameNotifications)
	require.True(t, ok)
	assert.Len(t, f.Data.(notify.Snapshot).Items, 1)

	require.NoError(t, s.Handle(ctx, Command{Type: "mark_read", ID: n.ID}))
	require.NoError(t, s.MarkRead(ctx, n.ID))
	snap, _ := s.Notifications()
	assert.Zero(t, snap.Unread)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Zero(t, e.bus.Subscribers(realtime.NotificationTopic("alice")))
}

func TestHandleUnknownCommand(t *testing.T) {
	e := newEnv(t)
	rec := &recorder{}
	s := New("alice", e.deps, rec.send)
	defer s.Close()

	err := s.Handle(context.Background(), Command{Type: "dance"})
	assert.ErrorIs(t, err, apperr.ErrMalformedInput)
	assert.Equal(t, []FrameType{FrameError}, rec.types())

	require.NoError(t, s.Handle(context.Background(), Command{Type: "load_profile", Username: "bob"}))
	_, ok := rec.last(FrameProfile)
	assert.True(t, ok)
}
