package model

import "time"

// Post 帖子；Profile/Comments/Likes 由仓储层一次性 Preload
type Post struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	ImageURL  *string   `json:"image_url,omitempty" gorm:"type:text"`
	UserID    string    `json:"user_id" gorm:"type:varchar(36);index:idx_post_author_created;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_post_author_created;index"`

	Profile  Profile   `json:"profile" gorm:"foreignKey:UserID;references:ID"`
	Comments []Comment `json:"comments,omitempty" gorm:"foreignKey:PostID"`
	Likes    []Like    `json:"likes,omitempty" gorm:"foreignKey:PostID"`
}

func (Post) TableName() string { return "posts" }
