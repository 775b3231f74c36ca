// Package feed 把预加载好的帖子行转换为面向某个观看者的视图
package feed

import (
	"time"

	"github.com/d60-Lab/social-feed/internal/model"
	"github.com/d60-Lab/social-feed/internal/thread"
)

// PostView 帖子连同作者、回复森林与点赞状态，按观看者视角计算
type PostView struct {
	ID           string         `json:"id"`
	Content      string         `json:"content"`
	ImageURL     *string        `json:"image_url,omitempty"`
	UserID       string         `json:"user_id"`
	CreatedAt    time.Time      `json:"created_at"`
	Profile      model.Profile  `json:"profile"`
	Comments     []*thread.Node `json:"comments"`
	CommentCount int            `json:"comment_count"`
	LikeCount    int            `json:"like_count"`
	IsLiked      bool           `json:"is_liked"`
}

// Aggregate 按输入顺序为每个帖子构建 PostView；viewerID 为空表示匿名，
// 匿名观看者没有点赞。各类列表共用同一变换，不修改输入
func Aggregate(posts []model.Post, viewerID string, maxDepth int) []PostView {
	views := make([]PostView, 0, len(posts))
	for i := range posts {
		views = append(views, aggregateOne(&posts[i], viewerID, maxDepth))
	}
	return views
}

// AggregateOne 单个帖子的 Aggregate
func AggregateOne(post *model.Post, viewerID string, maxDepth int) PostView {
	return aggregateOne(post, viewerID, maxDepth)
}

func aggregateOne(p *model.Post, viewerID string, maxDepth int) PostView {
	roots := thread.Build(p.Comments, maxDepth)
	if viewerID != "" {
		liked := make(map[string]bool, len(p.Comments))
		for _, c := range p.Comments {
			if likedBy(c.Likes, viewerID) {
				liked[c.ID] = true
			}
		}
		thread.Walk(roots, func(n *thread.Node) { n.IsLiked = liked[n.ID] })
	}

	return PostView{
		ID:           p.ID,
		Content:      p.Content,
		ImageURL:     p.ImageURL,
		UserID:       p.UserID,
		CreatedAt:    p.CreatedAt,
		Profile:      p.Profile,
		Comments:     roots,
		CommentCount: len(p.Comments),
		LikeCount:    len(p.Likes),
		IsLiked:      viewerID != "" && postLikedBy(p.Likes, viewerID),
	}
}

func postLikedBy(likes []model.Like, viewerID string) bool {
	for _, l := range likes {
		if l.UserID == viewerID {
			return true
		}
	}
	return false
}

func likedBy(likes []model.CommentLike, viewerID string) bool {
	for _, l := range likes {
		if l.UserID == viewerID {
			return true
		}
	}
	return false
}
