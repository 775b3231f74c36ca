package interaction

import (
	"context"
	"fmt"
	"sync"

	"github.com/d60-Lab/social-feed/internal/apperr"
)

type key struct {
	kind Kind
	id   string
}

// Registry 一个视图会话内的全部点赞状态机
type Registry struct {
	stores   map[Kind]LikeStore
	observer Observer

	mu       sync.Mutex
	machines map[key]*LikeMachine
}

func NewRegistry(stores map[Kind]LikeStore, observer Observer) *Registry {
	return &Registry{stores: stores, observer: observer, machines: make(map[key]*LikeMachine)}
}

// Seed 用最新聚合结果登记实体。已登记的状态机仅在 Idle 时采用新值，
// 未决的切换按它自己的基准完成
func (r *Registry) Seed(kind Kind, id string, state LikeState) error {
	store, ok := r.stores[kind]
	if !ok {
		return apperr.Malformed(fmt.Sprintf("unknown like kind %q", kind))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.machines[key{kind, id}]; ok {
		m.reseed(state)
		return nil
	}
	r.machines[key{kind, id}] = NewLikeMachine(kind, id, state, store, r.observer)
	return nil
}

// Toggle 切换已登记实体，未登记返回 ErrNotFound
func (r *Registry) Toggle(ctx context.Context, kind Kind, id, viewerID string) (LikeState, error) {
	m, ok := r.machine(kind, id)
	if !ok {
		return LikeState{}, apperr.NotFound(string(kind), id)
	}
	return m.Toggle(ctx, viewerID)
}

// State 查询已登记实体的展示值
func (r *Registry) State(kind Kind, id string) (LikeState, bool, bool) {
	m, ok := r.machine(kind, id)
	if !ok {
		return LikeState{}, false, false
	}
	s, pending := m.State()
	return s, pending, true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.machines)
}

func (r *Registry) machine(kind Kind, id string) (*LikeMachine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.machines[key{kind, id}]
	return m, ok
}

func (m *LikeMachine) reseed(s LikeState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.pending {
		m.state = s
	}
}
