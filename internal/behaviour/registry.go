package behaviour

import (
	"sync"
	"time"

	"github.com/dep2p/go-dx/pkg/types"
)

// RoutingSnapshot 某一时刻 DHT 给出的最近节点集合
type RoutingSnapshot struct {
	Peers      []types.PeerID
	ObservedAt time.Time
}

// StatusSnapshot 某一时刻收到的状态
type StatusSnapshot struct {
	Payload    types.Payload
	ObservedAt time.Time
}

// PeerInfo 注册表条目
//
// Routing、Status 为 nil 表示尚未观测到。
type PeerInfo struct {
	ID      types.PeerID
	Routing *RoutingSnapshot
	Status  *StatusSnapshot
}

// clone 深拷贝
func (p *PeerInfo) clone() PeerInfo {
	out := PeerInfo{ID: p.ID}
	if p.Routing != nil {
		out.Routing = &RoutingSnapshot{
			Peers:      append([]types.PeerID(nil), p.Routing.Peers...),
			ObservedAt: p.Routing.ObservedAt,
		}
	}
	if p.Status != nil {
		s := *p.Status
		out.Status = &s
	}
	return out
}

// Registry 关注节点注册表
//
// 一把互斥锁覆盖整个集合；每个 PeerID 至多一个条目，条目从不删除。
type Registry struct {
	mu      sync.Mutex
	entries map[types.PeerID]*PeerInfo
	order   []types.PeerID
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[types.PeerID]*PeerInfo),
	}
}

// Add 添加条目，已存在时返回 false
func (r *Registry) Add(id types.PeerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; ok {
		return false
	}
	r.entries[id] = &PeerInfo{ID: id}
	r.order = append(r.order, id)
	return true
}

// Lookup 返回条目副本
func (r *Registry) Lookup(id types.PeerID) (PeerInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return PeerInfo{}, false
	}
	return e.clone(), true
}

// Contains 是否已关注
func (r *Registry) Contains(id types.PeerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[id]
	return ok
}

// UpdateRouting 设置路由字段；id 未知时返回 false
func (r *Registry) UpdateRouting(id types.PeerID, peers []types.PeerID, observedAt time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return false
	}
	e.Routing = &RoutingSnapshot{
		Peers:      append([]types.PeerID(nil), peers...),
		ObservedAt: observedAt,
	}
	return true
}

// UpdateStatus 设置状态字段；id 未知时返回 false
func (r *Registry) UpdateStatus(id types.PeerID, payload types.Payload, observedAt time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return false
	}
	e.Status = &StatusSnapshot{Payload: payload, ObservedAt: observedAt}
	return true
}

// Peers 按加入顺序返回全部条目副本
func (r *Registry) Peers() []PeerInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]PeerInfo, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id].clone())
	}
	return out
}

// Len 返回条目数
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}
