package model

import "time"

// Comment 评论；ParentID 为空表示顶层评论，非空时指向同一帖子下的另一条评论
type Comment struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	UserID    string    `json:"user_id" gorm:"type:varchar(36);index;not null"`
	PostID    string    `json:"post_id" gorm:"type:varchar(36);index:idx_comment_post_created;not null"`
	ParentID  *string   `json:"parent_id,omitempty" gorm:"type:varchar(36);index"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_comment_post_created"`

	Profile Profile       `json:"profile" gorm:"foreignKey:UserID;references:ID"`
	Likes   []CommentLike `json:"likes,omitempty" gorm:"foreignKey:CommentID"`
}

func (Comment) TableName() string { return "comments" }
