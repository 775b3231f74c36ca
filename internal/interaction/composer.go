package interaction

import (
	"context"
	"strings"
	"sync"

	"github.com/d60-Lab/social-feed/internal/apperr"
	"github.com/d60-Lab/social-feed/internal/model"
)

// NewComment 一次评论提交
type NewComment struct {
	PostID   string
	ParentID *string
	UserID   string
	Content  string
}

// CommentStore 评论落库，id 由存储层分配
type CommentStore interface {
	CreateComment(ctx context.Context, in NewComment) (*model.Comment, error)
}

// Composer 单个回复目标（帖子或其中某条评论）的草稿框。
// Submit 在写库前清空草稿，失败时恢复，被拒绝的评论内容不会丢
type Composer struct {
	postID   string
	parentID *string
	store    CommentStore

	mu         sync.Mutex
	draft      string
	submitting bool
}

func NewComposer(postID string, parentID *string, store CommentStore) *Composer {
	return &Composer{postID: postID, parentID: parentID, store: store}
}

func (c *Composer) SetDraft(s string) {
	c.mu.Lock()
	c.draft = s
	c.mu.Unlock()
}

func (c *Composer) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// CanSubmit 提交按钮是否可用
func (c *Composer) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.submitting && strings.TrimSpace(c.draft) != ""
}

// Submit 以 viewerID 身份提交当前草稿
func (c *Composer) Submit(ctx context.Context, viewerID string) (*model.Comment, error) {
	if viewerID == "" {
		return nil, apperr.ErrAuthRequired
	}

	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return nil, ErrInFlight
	}
	content := c.draft
	if strings.TrimSpace(content) == "" {
		c.mu.Unlock()
		return nil, apperr.Malformed("empty comment")
	}
	c.draft = ""
	c.submitting = true
	c.mu.Unlock()

	created, err := c.store.CreateComment(ctx, NewComment{
		PostID:   c.postID,
		ParentID: c.parentID,
		UserID:   viewerID,
		Content:  content,
	})

	c.mu.Lock()
	c.submitting = false
	if err != nil && c.draft == "" {
		c.draft = content
	}
	c.mu.Unlock()

	if err != nil {
		return nil, apperr.Persistence("create comment", err)
	}
	return created, nil
}
