package model

import "time"

// Profile 用户资料（注册时由外部创建，仅本人可改头像/横幅）
type Profile struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username  string    `json:"username" gorm:"type:varchar(64);uniqueIndex;not null"`
	FullName  string    `json:"full_name" gorm:"type:varchar(128)"`
	AvatarURL string    `json:"avatar_url" gorm:"type:text"`
	BannerURL *string   `json:"banner_url,omitempty" gorm:"type:text"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }
