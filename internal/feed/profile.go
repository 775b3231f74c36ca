package feed

import "github.com/d60-Lab/social-feed/internal/model"

// ProfileView 个人主页：资料与三个帖子标签页
type ProfileView struct {
	Profile   model.Profile `json:"profile"`
	IsOwner   bool          `json:"is_owner"`
	Posts     []PostView    `json:"posts"`
	Commented []PostView    `json:"commented"`
	Liked     []PostView    `json:"liked"`
}
