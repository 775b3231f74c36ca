package service

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/d60-Lab/social-feed/config"
	"github.com/d60-Lab/social-feed/internal/feed"
	"github.com/d60-Lab/social-feed/internal/model"
	"github.com/d60-Lab/social-feed/internal/repository"
	"github.com/d60-Lab/social-feed/pkg/metrics"
)

// FeedService 读路径：拉取预加载的帖子行并聚合成面向当前查看者的视图
type FeedService interface {
	Home(ctx context.Context, viewerID string) ([]feed.PostView, error)
	Post(ctx context.Context, id, viewerID string) (*feed.PostView, error)
	Profile(ctx context.Context, username, viewerID string) (*feed.ProfileView, error)
}

type feedService struct {
	posts    repository.PostRepository
	profiles repository.ProfileRepository
	limit    int
	depth    int
}

func NewFeedService(posts repository.PostRepository, profiles repository.ProfileRepository, cfg config.FeedConfig) FeedService {
	return &feedService{posts: posts, profiles: profiles, limit: cfg.HomeLimit, depth: cfg.MaxReplyDepth}
}

func (s *feedService) aggregate(posts []model.Post, viewerID string) []feed.PostView {
	timer := prometheus.NewTimer(metrics.AggregateDuration)
	defer timer.ObserveDuration()
	return feed.Aggregate(posts, viewerID, s.depth)
}

func (s *feedService) Home(ctx context.Context, viewerID string) ([]feed.PostView, error) {
	posts, err := s.posts.ListRecent(ctx, s.limit)
	if err != nil {
		return nil, storeErr("list posts", "feed", "home", err)
	}
	return s.aggregate(posts, viewerID), nil
}

func (s *feedService) Post(ctx context.Context, id, viewerID string) (*feed.PostView, error) {
	p, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("load post", "post", id, err)
	}
	v := feed.AggregateOne(p, viewerID, s.depth)
	return &v, nil
}

// Profile 三个标签页并发加载
func (s *feedService) Profile(ctx context.Context, username, viewerID string) (*feed.ProfileView, error) {
	p, err := s.profiles.GetByUsername(ctx, username)
	if err != nil {
		return nil, storeErr("load profile", "profile", username, err)
	}

	var own, commented, liked []model.Post
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		own, err = s.posts.ListByAuthor(gctx, p.ID)
		return err
	})
	g.Go(func() error {
		ids, err := s.posts.CommentedPostIDs(gctx, p.ID)
		if err != nil {
			return err
		}
		commented, err = s.posts.ListByIDs(gctx, ids)
		return err
	})
	g.Go(func() error {
		ids, err := s.posts.LikedPostIDs(gctx, p.ID)
		if err != nil {
			return err
		}
		liked, err = s.posts.ListByIDs(gctx, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storeErr("load profile tabs", "profile", username, err)
	}

	return &feed.ProfileView{
		Profile:   *p,
		IsOwner:   viewerID != "" && viewerID == p.ID,
		Posts:     s.aggregate(own, viewerID),
		Commented: s.aggregate(commented, viewerID),
		Liked:     s.aggregate(liked, viewerID),
	}, nil
}
