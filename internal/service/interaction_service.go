package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/d60-Lab/social-feed/config"
	"github.com/d60-Lab/social-feed/internal/apperr"
	"github.com/d60-Lab/social-feed/internal/interaction"
	"github.com/d60-Lab/social-feed/internal/model"
	"github.com/d60-Lab/social-feed/internal/repository"
)

// InteractionService 写路径：发帖、评论、点赞；成功后异步生成通知
type InteractionService interface {
	CreatePost(ctx context.Context, viewerID, content string, imageURL *string) (*model.Post, error)
	CreateComment(ctx context.Context, in interaction.NewComment) (*model.Comment, error)
	LikePost(ctx context.Context, viewerID, postID string) error
	UnlikePost(ctx context.Context, viewerID, postID string) error
	LikeComment(ctx context.Context, viewerID, commentID string) error
	UnlikeComment(ctx context.Context, viewerID, commentID string) error
	// LikeStores 供乐观点赞状态机使用
	LikeStores() map[interaction.Kind]interaction.LikeStore
}

var _ interaction.CommentStore = (*interactionService)(nil)

type interactionService struct {
	posts    repository.PostRepository
	comments repository.CommentRepository
	likes    repository.LikeRepository
	emitter  *NotificationEmitter
	maxLen   int
}

func NewInteractionService(
	posts repository.PostRepository,
	comments repository.CommentRepository,
	likes repository.LikeRepository,
	emitter *NotificationEmitter,
	cfg config.FeedConfig,
) InteractionService {
	return &interactionService{posts: posts, comments: comments, likes: likes, emitter: emitter, maxLen: cfg.MaxContentLength}
}

func (s *interactionService) checkContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return apperr.Malformed("content is blank")
	}
	if s.maxLen > 0 && utf8.RuneCountInString(content) > s.maxLen {
		return apperr.Malformed(fmt.Sprintf("content exceeds %d characters", s.maxLen))
	}
	return nil
}

func (s *interactionService) CreatePost(ctx context.Context, viewerID, content string, imageURL *string) (*model.Post, error) {
	if viewerID == "" {
		return nil, apperr.ErrAuthRequired
	}
	if err := s.checkContent(content); err != nil {
		return nil, err
	}
	if imageURL != nil && strings.TrimSpace(*imageURL) == "" {
		imageURL = nil
	}
	p := &model.Post{Content: content, UserID: viewerID, ImageURL: imageURL}
	if err := s.posts.Create(ctx, p); err != nil {
		return nil, apperr.Persistence("create post", err)
	}
	full, err := s.posts.GetByID(ctx, p.ID)
	if err != nil {
		return nil, storeErr("reload post", "post", p.ID, err)
	}
	return full, nil
}

// CreateComment 父评论必须存在且属于同一帖子，保证祖先链不跨帖
func (s *interactionService) CreateComment(ctx context.Context, in interaction.NewComment) (*model.Comment, error) {
	if in.UserID == "" {
		return nil, apperr.ErrAuthRequired
	}
	if err := s.checkContent(in.Content); err != nil {
		return nil, err
	}
	owner, err := s.posts.AuthorID(ctx, in.PostID)
	if err != nil {
		return nil, storeErr("load post", "post", in.PostID, err)
	}

	recipient, typ := owner, model.NotificationComment
	if in.ParentID != nil {
		parent, err := s.comments.GetByID(ctx, *in.ParentID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Malformed("parent comment does not exist")
		}
		if err != nil {
			return nil, apperr.Persistence("load parent comment", err)
		}
		if parent.PostID != in.PostID {
			return nil, apperr.Malformed("parent comment belongs to another post")
		}
		recipient, typ = parent.UserID, model.NotificationReply
	}

	c := &model.Comment{Content: in.Content, UserID: in.UserID, PostID: in.PostID, ParentID: in.ParentID}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, apperr.Persistence("create comment", err)
	}
	if s.emitter != nil {
		id := c.ID
		s.emitter.Enqueue(NotificationJob{Type: typ, RecipientID: recipient, ActorID: in.UserID, PostID: in.PostID, CommentID: &id})
	}
	return c, nil
}

func (s *interactionService) LikePost(ctx context.Context, viewerID, postID string) error {
	if viewerID == "" {
		return apperr.ErrAuthRequired
	}
	owner, err := s.posts.AuthorID(ctx, postID)
	if err != nil {
		return storeErr("load post", "post", postID, err)
	}
	inserted, err := s.likes.LikePost(ctx, viewerID, postID)
	if err != nil {
		return apperr.Persistence("like post", err)
	}
	// 重复点赞不再通知
	if inserted && s.emitter != nil {
		s.emitter.Enqueue(NotificationJob{Type: model.NotificationLike, RecipientID: owner, ActorID: viewerID, PostID: postID})
	}
	return nil
}

func (s *interactionService) UnlikePost(ctx context.Context, viewerID, postID string) error {
	if viewerID == "" {
		return apperr.ErrAuthRequired
	}
	return apperr.Persistence("unlike post", s.likes.UnlikePost(ctx, viewerID, postID))
}

func (s *interactionService) LikeComment(ctx context.Context, viewerID, commentID string) error {
	if viewerID == "" {
		return apperr.ErrAuthRequired
	}
	if _, err := s.comments.GetByID(ctx, commentID); err != nil {
		return storeErr("load comment", "comment", commentID, err)
	}
	return apperr.Persistence("like comment", s.likes.LikeComment(ctx, viewerID, commentID))
}

func (s *interactionService) UnlikeComment(ctx context.Context, viewerID, commentID string) error {
	if viewerID == "" {
		return apperr.ErrAuthRequired
	}
	return apperr.Persistence("unlike comment", s.likes.UnlikeComment(ctx, viewerID, commentID))
}

func (s *interactionService) LikeStores() map[interaction.Kind]interaction.LikeStore {
	return map[interaction.Kind]interaction.LikeStore{
		interaction.KindPost:    postLikes{s},
		interaction.KindComment: commentLikes{s},
	}
}

// postLikes / commentLikes 把服务方法适配成状态机的 LikeStore
type postLikes struct{ s *interactionService }

func (p postLikes) Like(ctx context.Context, viewerID, id string) error {
	return p.s.LikePost(ctx, viewerID, id)
}

func (p postLikes) Unlike(ctx context.Context, viewerID, id string) error {
	return p.s.UnlikePost(ctx, viewerID, id)
}

type commentLikes struct{ s *interactionService }

func (c commentLikes) Like(ctx context.Context, viewerID, id string) error {
	return c.s.LikeComment(ctx, viewerID, id)
}

func (c commentLikes) Unlike(ctx context.Context, viewerID, id string) error {
	return c.s.UnlikeComment(ctx, viewerID, id)
}
