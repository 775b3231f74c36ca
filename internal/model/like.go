package model

import "time"

// Like 帖子点赞；(user_id, post_id) 复合主键，行存在即已点赞
type Like struct {
	UserID    string    `json:"user_id" gorm:"primaryKey;type:varchar(36)"`
	PostID    string    `json:"post_id" gorm:"primaryKey;type:varchar(36);index"`
	CreatedAt time.Time `json:"created_at"`
}

func (Like) TableName() string { return "likes" }

// CommentLike 评论点赞；(user_id, comment_id) 复合主键
type CommentLike struct {
	UserID    string    `json:"user_id" gorm:"primaryKey;type:varchar(36)"`
	CommentID string    `json:"comment_id" gorm:"primaryKey;type:varchar(36);index"`
	CreatedAt time.Time `json:"created_at"`
}

func (CommentLike) TableName() string { return "comment_likes" }
