package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/social-feed/internal/model"
	"github.com/d60-Lab/social-feed/internal/thread"
)

func strp(s string) *string { return &s }

func samplePosts() []model.Post {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return []model.Post{
		{
			ID: "p2", Content: "second", UserID: "u1", CreatedAt: now,
			Profile: model.Profile{ID: "u1", Username: "ann"},
			Likes:   []model.Like{{UserID: "u2", PostID: "p2"}, {UserID: "u3", PostID: "p2"}},
			Comments: []model.Comment{
				{ID: "c1", PostID: "p2", UserID: "u2", Likes: []model.CommentLike{{UserID: "u3", CommentID: "c1"}}},
				{ID: "c2", PostID: "p2", UserID: "u3", ParentID: strp("c1"), Likes: []model.CommentLike{{UserID: "u2", CommentID: "c2"}}},
			},
		},
		{
			ID: "p1", Content: "first", UserID: "u2", CreatedAt: now.Add(-time.Hour),
			Profile: model.Profile{ID: "u2", Username: "bob"},
		},
	}
}

func TestAggregateViewerRelative(t *testing.T) {
	views := Aggregate(samplePosts(), "u2", 2)

	require.Len(t, views, 2)
	assert.Equal(t, []string{"p2", "p1"}, []string{views[0].ID, views[1].ID}, "input order kept")

	p2 := views[0]
	assert.True(t, p2.IsLiked)
	assert.Equal(t, 2, p2.LikeCount)
	assert.Equal(t, 2, p2.CommentCount)
	assert.Equal(t, "ann", p2.Profile.Username)
	require.Len(t, p2.Comments, 1)
	assert.False(t, p2.Comments[0].IsLiked)
	assert.Equal(t, 1, p2.Comments[0].LikeCount)
	require.Len(t, p2.Comments[0].Children, 1)
	assert.True(t, p2.Comments[0].Children[0].IsLiked)

	p1 := views[1]
	assert.False(t, p1.IsLiked)
	assert.Zero(t, p1.LikeCount)
	assert.NotNil(t, p1.Comments)
	assert.Empty(t, p1.Comments)
}

func TestAggregateAnonymousNeverLiked(t *testing.T) {
	posts := samplePosts()
	// a like row with an empty user id must not match an anonymous viewer
	posts[1].Likes = []model.Like{{UserID: "", PostID: "p1"}}

	for _, v := range Aggregate(posts, "", 2) {
		assert.False(t, v.IsLiked, v.ID)
		thread.Walk(v.Comments, func(n *thread.Node) { assert.False(t, n.IsLiked, n.ID) })
	}
}

func TestAggregateIdempotent(t *testing.T) {
	posts := samplePosts()
	first := Aggregate(posts, "u3", 2)
	second := Aggregate(posts, "u3", 2)
	assert.Equal(t, first, second)
	assert.Equal(t, samplePosts(), posts, "input not mutated")
}

func TestAggregateEmpty(t *testing.T) {
	views := Aggregate(nil, "u1", 2)
	require.NotNil(t, views)
	assert.Empty(t, views)
}

func TestAggregateOneMatchesAggregate(t *testing.T) {
	posts := samplePosts()
	assert.Equal(t, Aggregate(posts, "u2", 2)[0], AggregateOne(&posts[0], "u2", 2))
}
