// Package thread 把扁平评论列表整理成回复森林。
//
// Build 只做数据形状变换：每条输入评论在输出中恰好出现一次。
// 父评论不在输入中、或父链会成环的评论，提升为顶层节点。
package thread

import (
	"time"

	"github.com/d60-Lab/social-feed/internal/model"
)

// DefaultMaxDepth 达到该深度后不再提供回复入口
const DefaultMaxDepth = 2

// Node 评论及其回复
type Node struct {
	ID        string        `json:"id"`
	Content   string        `json:"content"`
	UserID    string        `json:"user_id"`
	PostID    string        `json:"post_id"`
	ParentID  *string       `json:"parent_id,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	Profile   model.Profile `json:"profile"`
	LikeCount int           `json:"like_count"`
	IsLiked   bool          `json:"is_liked"`
	Depth     int           `json:"depth"`
	CanReply  bool          `json:"can_reply"`
	Children  []*Node       `json:"children"`
}

// Build 按输入顺序返回顶层节点，回复也保持输入顺序。
// 深度 >= maxDepth 的节点 CanReply 为 false；maxDepth <= 0 时取 DefaultMaxDepth
func Build(comments []model.Comment, maxDepth int) []*Node {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	roots := make([]*Node, 0)
	if len(comments) == 0 {
		return roots
	}

	nodes := make([]*Node, len(comments))
	index := make(map[string]int, len(comments))
	for i := range comments {
		nodes[i] = newNode(&comments[i])
		if _, dup := index[comments[i].ID]; !dup {
			index[comments[i].ID] = i
		}
	}

	// parent[i] 为父节点下标，顶层为 -1
	parent := make([]int, len(comments))
	for i := range comments {
		parent[i] = -1
		if p := comments[i].ParentID; p != nil {
			if j, ok := index[*p]; ok && j != i {
				parent[i] = j
			}
		}
	}

	// 断环：祖先链回到自身的节点被摘下；按输入顺序处理保证结果确定
	state := make([]uint8, len(comments)) // 0 未访问，1 在栈上，2 已确定
	for i := range comments {
		if state[i] != 0 {
			continue
		}
		var chain []int
		j := i
		for j != -1 && state[j] == 0 {
			state[j] = 1
			chain = append(chain, j)
			j = parent[j]
		}
		if j != -1 && state[j] == 1 {
			// j 在当前链上闭环，摘下后 j 成为该环的根
			parent[j] = -1
		}
		for _, k := range chain {
			state[k] = 2
		}
	}

	for i, n := range nodes {
		if parent[i] == -1 {
			roots = append(roots, n)
			continue
		}
		p := nodes[parent[i]]
		p.Children = append(p.Children, n)
	}

	for _, r := range roots {
		setDepth(r, 0, maxDepth)
	}
	return roots
}

func newNode(c *model.Comment) *Node {
	return &Node{
		ID:        c.ID,
		Content:   c.Content,
		UserID:    c.UserID,
		PostID:    c.PostID,
		ParentID:  c.ParentID,
		CreatedAt: c.CreatedAt,
		Profile:   c.Profile,
		LikeCount: len(c.Likes),
		Children:  make([]*Node, 0),
	}
}

func setDepth(n *Node, depth, maxDepth int) {
	n.Depth = depth
	n.CanReply = depth < maxDepth
	for _, c := range n.Children {
		setDepth(c, depth+1, maxDepth)
	}
}

// Walk 深度优先遍历，父节点先于子节点
func Walk(nodes []*Node, fn func(*Node)) {
	for _, n := range nodes {
		fn(n)
		Walk(n.Children, fn)
	}
}

// Count 返回森林节点总数
func Count(nodes []*Node) int {
	total := 0
	Walk(nodes, func(*Node) { total++ })
	return total
}

// Find 按 id 查找节点，找不到返回 nil
func Find(nodes []*Node, id string) *Node {
	var found *Node
	Walk(nodes, func(n *Node) {
		if found == nil && n.ID == id {
			found = n
		}
	})
	return found
}
