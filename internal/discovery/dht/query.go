package dht

import (
	"bufio"
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-dx/pkg/types"
)

// lookup 迭代查找离 key 最近的节点
//
//  1. 从路由表取最近的 K 个节点作为候选
//  2. 每轮并发查询 alpha 个未查询的候选
//  3. 合并响应，按距离排序并截断到 K
//  4. 一轮没有带来更近的节点，或达到 MaxRounds 时结束
//
// 路由表为空时返回空结果而非错误。
func (d *DHT) lookup(ctx context.Context, key []byte) ([]types.PeerID, error) {
	target := keyToTarget(key)
	self := d.host.ID()
	k := d.cfg.BucketSize

	candidates := d.rt.Nearest(target, k)
	if len(candidates) == 0 {
		return nil, nil
	}
	queried := make(map[types.PeerID]struct{})
	failed := make(map[types.PeerID]struct{})

	for round := 0; round < d.cfg.MaxRounds; round++ {
		var batch []PeerInfo
		for _, c := range candidates {
			if _, ok := queried[c.ID]; ok {
				continue
			}
			batch = append(batch, c)
			if len(batch) == d.cfg.Alpha {
				break
			}
		}
		if len(batch) == 0 {
			break
		}
		best := candidates[0].ID

		results := make([][]PeerInfo, len(batch))
		errs := make([]error, len(batch))
		var g errgroup.Group
		for i, p := range batch {
			i, p := i, p
			queried[p.ID] = struct{}{}
			g.Go(func() error {
				results[i], errs[i] = d.findNode(ctx, p, key)
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		known := make(map[types.PeerID]int, len(candidates))
		for i, c := range candidates {
			known[c.ID] = i
		}
		for i, p := range batch {
			if errs[i] != nil {
				logger.Debug("FIND_NODE 失败", "peer", p.ID.ShortString(), "error", errs[i])
				failed[p.ID] = struct{}{}
				d.rt.Remove(p.ID)
				continue
			}
			d.rt.Add(p.ID, p.Addrs...)
			for _, found := range results[i] {
				if found.ID == self {
					continue
				}
				if idx, ok := known[found.ID]; ok {
					candidates[idx].Addrs = mergeAddrs(candidates[idx].Addrs, found.Addrs)
					continue
				}
				known[found.ID] = len(candidates)
				candidates = append(candidates, found)
			}
		}

		candidates = pruneCandidates(candidates, failed, target, k)
		if len(candidates) == 0 || candidates[0].ID == best {
			break
		}
	}

	out := make([]types.PeerID, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.ID)
	}
	return out, nil
}

// pruneCandidates 去掉失败节点，按距离排序并截断
func pruneCandidates(candidates []PeerInfo, failed map[types.PeerID]struct{}, target types.PeerID, k int) []PeerInfo {
	kept := candidates[:0]
	for _, c := range candidates {
		if _, ok := failed[c.ID]; !ok {
			kept = append(kept, c)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		return closer(kept[i].ID, kept[j].ID, target)
	})
	if len(kept) > k {
		kept = kept[:k]
	}
	return kept
}

// findNode 向单个节点发送 FIND_NODE
func (d *DHT) findNode(ctx context.Context, p PeerInfo, key []byte) ([]PeerInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.QueryTimeout)
	defer cancel()

	if len(p.Addrs) > 0 {
		if err := d.host.Connect(ctx, p.ID, p.Addrs); err != nil {
			return nil, err
		}
	}
	s, err := d.host.NewStream(ctx, p.ID, ProtocolID)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	if dl, ok := ctx.Deadline(); ok {
		_ = s.SetDeadline(dl)
	}
	if err := writeFindNode(s, key); err != nil {
		return nil, err
	}
	return readPeers(bufio.NewReader(s))
}
