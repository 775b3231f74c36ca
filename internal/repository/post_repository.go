package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/social-feed/internal/model"
)

// PostRepository 帖子读取统一带上作者、评论（含评论作者与评论点赞）和点赞，
// 一次查询即可交给聚合层。
type PostRepository interface {
	Create(ctx context.Context, p *model.Post) error
	GetByID(ctx context.Context, id string) (*model.Post, error)
	AuthorID(ctx context.Context, id string) (string, error)
	ListRecent(ctx context.Context, limit int) ([]model.Post, error)
	ListByAuthor(ctx context.Context, userID string) ([]model.Post, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.Post, error)
	CommentedPostIDs(ctx context.Context, userID string) ([]string, error)
	LikedPostIDs(ctx context.Context, userID string) ([]string, error)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) Create(ctx context.Context, p *model.Post) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error
}

// embedded 预加载聚合所需的全部关联；评论按创建时间升序，保证树内子节点顺序
func (r *postRepository) embedded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Profile").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("comments.created_at ASC, comments.id ASC")
		}).
		Preload("Comments.Profile").
		Preload("Comments.Likes").
		Preload("Likes")
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*model.Post, error) {
	var p model.Post
	if err := r.embedded(ctx).Where("posts.id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// AuthorID 只查作者，不做预加载
func (r *postRepository) AuthorID(ctx context.Context, id string) (string, error) {
	var p model.Post
	if err := r.db.WithContext(ctx).Select("id", "user_id").Where("id = ?", id).First(&p).Error; err != nil {
		return "", err
	}
	return p.UserID, nil
}

func (r *postRepository) ListRecent(ctx context.Context, limit int) ([]model.Post, error) {
	var res []model.Post
	q := r.embedded(ctx).Order("posts.created_at DESC, posts.id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&res).Error
	return res, err
}

func (r *postRepository) ListByAuthor(ctx context.Context, userID string) ([]model.Post, error) {
	var res []model.Post
	err := r.embedded(ctx).
		Where("posts.user_id = ?", userID).
		Order("posts.created_at DESC, posts.id DESC").
		Find(&res).Error
	return res, err
}

// ListByIDs 空列表直接返回，不发查询；重复 id 先去重
func (r *postRepository) ListByIDs(ctx context.Context, ids []string) ([]model.Post, error) {
	ids = uniq(ids)
	if len(ids) == 0 {
		return []model.Post{}, nil
	}
	var res []model.Post
	err := r.embedded(ctx).
		Where("posts.id IN ?", ids).
		Order("posts.created_at DESC, posts.id DESC").
		Find(&res).Error
	return res, err
}

func (r *postRepository) CommentedPostIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Comment{}).
		Where("user_id = ?", userID).
		Distinct().
		Pluck("post_id", &ids).Error
	return ids, err
}

func (r *postRepository) LikedPostIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Like{}).
		Where("user_id = ?", userID).
		Pluck("post_id", &ids).Error
	return ids, err
}

func uniq(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
