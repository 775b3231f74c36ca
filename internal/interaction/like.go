// Package interaction 观看者的乐观、可回滚写操作：帖子与评论点赞切换、评论提交。
//
// LikeMachine 在接受切换前处于 Idle。翻转后的状态先推给观察者再写库，
// 写库结果要么确认该状态，要么精确恢复之前的状态。
// 写库期间的再次切换返回 ErrInFlight，每个实体同一时刻至多一个未决写操作。
package interaction

import (
	"context"
	"errors"
	"sync"

	"github.com/d60-Lab/social-feed/internal/apperr"
)

// ErrInFlight 上一次切换或提交尚未完成，本次请求被忽略
var ErrInFlight = errors.New("mutation already in flight")

// Kind 点赞目标类型
type Kind string

const (
	KindPost    Kind = "post"
	KindComment Kind = "comment"
)

// Phase 推给观察者的状态或迁移
type Phase int

const (
	Idle Phase = iota
	Pending
	Confirmed
	Reverted
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	case Reverted:
		return "reverted"
	}
	return "unknown"
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// LikeState 界面展示的 (是否已赞, 点赞数)
type LikeState struct {
	Liked bool `json:"liked"`
	Count int  `json:"count"`
}

func (s LikeState) flipped() LikeState {
	if s.Liked {
		n := s.Count - 1
		if n < 0 {
			n = 0
		}
		return LikeState{Liked: false, Count: n}
	}
	return LikeState{Liked: true, Count: s.Count + 1}
}

// LikeStore 某类实体的点赞落库
type LikeStore interface {
	Like(ctx context.Context, viewerID, targetID string) error
	Unlike(ctx context.Context, viewerID, targetID string) error
}

// Transition 每次状态变化时推给观察者
type Transition struct {
	Kind     Kind      `json:"kind"`
	TargetID string    `json:"target_id"`
	Phase    Phase     `json:"phase"`
	State    LikeState `json:"state"`
	Err      error     `json:"-"`
}

// Observer 同步接收迁移，调用时不持有状态机的锁
type Observer func(Transition)

// LikeMachine 单个帖子或评论的乐观点赞状态
type LikeMachine struct {
	kind     Kind
	targetID string
	store    LikeStore
	observer Observer

	mu      sync.Mutex
	pending bool
	state   LikeState
}

// NewLikeMachine 以聚合结果为初值，处于 Idle
func NewLikeMachine(kind Kind, targetID string, initial LikeState, store LikeStore, observer Observer) *LikeMachine {
	return &LikeMachine{kind: kind, targetID: targetID, state: initial, store: store, observer: observer}
}

// State 返回展示值以及是否有切换未决
func (m *LikeMachine) State() (LikeState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.pending
}

// Toggle 为 viewerID 翻转点赞，返回应用写库结果之后的状态。
// 匿名返回 ErrAuthRequired，并发切换返回 ErrInFlight，两者都不改状态也不写库。
// 写库失败时回滚，返回的错误匹配 apperr.ErrPersistence
func (m *LikeMachine) Toggle(ctx context.Context, viewerID string) (LikeState, error) {
	if viewerID == "" {
		return m.current(), apperr.ErrAuthRequired
	}

	m.mu.Lock()
	if m.pending {
		s := m.state
		m.mu.Unlock()
		return s, ErrInFlight
	}
	prev := m.state
	next := prev.flipped()
	m.state = next
	m.pending = true
	m.mu.Unlock()

	m.notify(Transition{Phase: Pending, State: next})

	var err error
	if next.Liked {
		err = m.store.Like(ctx, viewerID, m.targetID)
	} else {
		err = m.store.Unlike(ctx, viewerID, m.targetID)
	}

	m.mu.Lock()
	if err != nil {
		m.state = prev
	}
	m.pending = false
	final := m.state
	m.mu.Unlock()

	if err != nil {
		err = apperr.Persistence("toggle "+string(m.kind)+" like", err)
		m.notify(Transition{Phase: Reverted, State: final, Err: err})
		return final, err
	}
	m.notify(Transition{Phase: Confirmed, State: final})
	return final, nil
}

func (m *LikeMachine) current() LikeState {
	s, _ := m.State()
	return s
}

func (m *LikeMachine) notify(t Transition) {
	if m.observer == nil {
		return
	}
	t.Kind = m.kind
	t.TargetID = m.targetID
	m.observer(t)
}
