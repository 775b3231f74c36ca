package model

import "time"

type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
	NotificationReply   NotificationType = "reply"
)

// Text 通知展示文案
func (t NotificationType) Text() string {
	switch t {
	case NotificationLike:
		return "liked your post"
	case NotificationComment:
		return "commented on your post"
	case NotificationReply:
		return "replied to your comment"
	}
	return ""
}

// Notification 通知；只允许翻转 Read
type Notification struct {
	ID          string           `json:"id" gorm:"primaryKey;type:varchar(36)"`
	RecipientID string           `json:"recipient_id" gorm:"type:varchar(36);index:idx_notification_recipient_created;not null"`
	ActorID     string           `json:"actor_id" gorm:"type:varchar(36);not null"`
	PostID      string           `json:"post_id" gorm:"type:varchar(36);not null"`
	CommentID   *string          `json:"comment_id,omitempty" gorm:"type:varchar(36)"`
	Type        NotificationType `json:"type" gorm:"type:varchar(16);not null"`
	Read        bool             `json:"read" gorm:"not null;default:false"`
	CreatedAt   time.Time        `json:"created_at" gorm:"index:idx_notification_recipient_created"`

	Actor *Profile `json:"actor,omitempty" gorm:"foreignKey:ActorID;references:ID"`
	Post  *Post    `json:"post,omitempty" gorm:"foreignKey:PostID;references:ID"`
}

func (Notification) TableName() string { return "notifications" }
