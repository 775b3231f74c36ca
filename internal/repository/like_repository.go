package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/social-feed/internal/model"
)

// LikeRepository 帖子与评论点赞；行存在即已点赞
type LikeRepository interface {
	// LikePost 返回 inserted=false 表示此前已点赞
	LikePost(ctx context.Context, userID, postID string) (inserted bool, err error)
	UnlikePost(ctx context.Context, userID, postID string) error
	LikeComment(ctx context.Context, userID, commentID string) error
	UnlikeComment(ctx context.Context, userID, commentID string) error
}

type likeRepository struct {
	db *gorm.DB
}

func NewLikeRepository(db *gorm.DB) LikeRepository { return &likeRepository{db: db} }

func (r *likeRepository) LikePost(ctx context.Context, userID, postID string) (bool, error) {
	l := &model.Like{UserID: userID, PostID: postID}
	// 幂等：重复点赞不报错，RowsAffected 为 0
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(l)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *likeRepository) UnlikePost(ctx context.Context, userID, postID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&model.Like{}).Error
}

func (r *likeRepository) LikeComment(ctx context.Context, userID, commentID string) error {
	l := &model.CommentLike{UserID: userID, CommentID: commentID}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(l).Error
}

func (r *likeRepository) UnlikeComment(ctx context.Context, userID, commentID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND comment_id = ?", userID, commentID).
		Delete(&model.CommentLike{}).Error
}
