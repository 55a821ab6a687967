package dht

import (
	"sort"
	"sync"
	"time"

	"github.com/dep2p/go-dx/pkg/types"
)

// numBuckets K 桶数量（PeerID 位数）
const numBuckets = types.PeerIDLen * 8

// maxAddrsPerPeer 每个节点保留的地址上限
const maxAddrsPerPeer = 8

// routingNode 路由表节点
type routingNode struct {
	id       types.PeerID
	addrs    []string
	lastSeen time.Time
}

// kbucket K 桶，最近活跃的在前
type kbucket struct {
	nodes        []*routingNode
	replacements []*routingNode
}

// RoutingTable XOR 距离路由表
type RoutingTable struct {
	local      types.PeerID
	bucketSize int

	mu      sync.RWMutex
	buckets [numBuckets]kbucket
}

// NewRoutingTable 创建路由表
func NewRoutingTable(local types.PeerID, bucketSize int) *RoutingTable {
	return &RoutingTable{local: local, bucketSize: bucketSize}
}

// Add 添加节点或合并其地址
//
// 桶已满时节点进入替换缓存并返回 false。自身永不加入。
func (rt *RoutingTable) Add(id types.PeerID, addrs ...string) bool {
	if id == rt.local {
		return false
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()

	b := &rt.buckets[bucketIndex(rt.local, id)]
	now := time.Now()

	for i, n := range b.nodes {
		if n.id == id {
			n.addrs = mergeAddrs(n.addrs, addrs)
			n.lastSeen = now
			// 移到前端
			copy(b.nodes[1:i+1], b.nodes[:i])
			b.nodes[0] = n
			return true
		}
	}

	node := &routingNode{id: id, addrs: mergeAddrs(nil, addrs), lastSeen: now}
	if len(b.nodes) < rt.bucketSize {
		b.nodes = append([]*routingNode{node}, b.nodes...)
		return true
	}

	for i, n := range b.replacements {
		if n.id == id {
			b.replacements = append(b.replacements[:i], b.replacements[i+1:]...)
			node.addrs = mergeAddrs(n.addrs, addrs)
			break
		}
	}
	b.replacements = append([]*routingNode{node}, b.replacements...)
	if len(b.replacements) > rt.bucketSize {
		b.replacements = b.replacements[:rt.bucketSize]
	}
	return false
}

// Remove 移除节点，从替换缓存提升一个
func (rt *RoutingTable) Remove(id types.PeerID) bool {
	if id == rt.local {
		return false
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()

	b := &rt.buckets[bucketIndex(rt.local, id)]
	for i, n := range b.nodes {
		if n.id == id {
			b.nodes = append(b.nodes[:i], b.nodes[i+1:]...)
			if len(b.replacements) > 0 {
				b.nodes = append(b.nodes, b.replacements[0])
				b.replacements = b.replacements[1:]
			}
			return true
		}
	}
	for i, n := range b.replacements {
		if n.id == id {
			b.replacements = append(b.replacements[:i], b.replacements[i+1:]...)
			return true
		}
	}
	return false
}

// AddrsOf 返回节点地址，实现 interfaces.AddrSource
//
// 替换缓存中的节点同样可拨号。
func (rt *RoutingTable) AddrsOf(id types.PeerID) []string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	b := &rt.buckets[bucketIndex(rt.local, id)]
	for _, list := range [][]*routingNode{b.nodes, b.replacements} {
		for _, n := range list {
			if n.id == id {
				return append([]string(nil), n.addrs...)
			}
		}
	}
	return nil
}

// Contains 节点是否在表中（不含替换缓存）
func (rt *RoutingTable) Contains(id types.PeerID) bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	for _, n := range rt.buckets[bucketIndex(rt.local, id)].nodes {
		if n.id == id {
			return true
		}
	}
	return false
}

// Nearest 按 XOR 距离返回离 target 最近的 count 个节点
func (rt *RoutingTable) Nearest(target types.PeerID, count int) []PeerInfo {
	rt.mu.RLock()
	all := make([]PeerInfo, 0, rt.bucketSize)
	for i := range rt.buckets {
		for _, n := range rt.buckets[i].nodes {
			all = append(all, PeerInfo{ID: n.id, Addrs: append([]string(nil), n.addrs...)})
		}
	}
	rt.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return closer(all[i].ID, all[j].ID, target)
	})
	if len(all) > count {
		all = all[:count]
	}
	return all
}

// NearestPeers 与 Nearest 相同，只返回 PeerID
func (rt *RoutingTable) NearestPeers(target types.PeerID, count int) []types.PeerID {
	near := rt.Nearest(target, count)
	out := make([]types.PeerID, len(near))
	for i, p := range near {
		out[i] = p.ID
	}
	return out
}

// Size 返回节点总数（不含替换缓存）
func (rt *RoutingTable) Size() int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	total := 0
	for i := range rt.buckets {
		total += len(rt.buckets[i].nodes)
	}
	return total
}

// mergeAddrs 合并地址，新地址在前，去重并截断
func mergeAddrs(old, fresh []string) []string {
	out := make([]string, 0, len(old)+len(fresh))
	seen := make(map[string]struct{}, len(old)+len(fresh))
	for _, list := range [][]string{fresh, old} {
		for _, a := range list {
			if a == "" {
				continue
			}
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			out = append(out, a)
		}
	}
	if len(out) > maxAddrsPerPeer {
		out = out[:maxAddrsPerPeer]
	}
	return out
}
