package swarm

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/multierr"

	"github.com/dep2p/go-dx/pkg/interfaces"
	"github.com/dep2p/go-dx/pkg/types"
)

// Connect 连接到指定节点
//
// 已有连接时直接返回。同一节点的并发拨号合并为一次。
func (s *Swarm) Connect(ctx context.Context, peer types.PeerID, addrs []string) error {
	if s.closed.Load() {
		return ErrSwarmClosed
	}
	if peer == s.localID {
		return ErrDialToSelf
	}
	if len(s.ConnsToPeer(peer)) > 0 {
		return nil
	}

	if len(addrs) == 0 {
		s.mu.RLock()
		src := s.addrSrc
		s.mu.RUnlock()
		if src != nil {
			addrs = src.AddrsOf(peer)
		}
	}
	if len(addrs) == 0 {
		return fmt.Errorf("%w: %s", ErrNoAddresses, peer.ShortString())
	}

	ch := s.dials.DoChan(peer.String(), func() (any, error) {
		return nil, s.dialAddrs(ctx, peer, addrs)
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case r := <-ch:
		return r.Err
	}
}

// dialAddrs 依次尝试每个地址，第一个成功即返回
func (s *Swarm) dialAddrs(ctx context.Context, peer types.PeerID, addrs []string) error {
	var errs error
	for _, addr := range addrs {
		if len(s.ConnsToPeer(peer)) > 0 {
			return nil
		}
		err := s.dialAddr(ctx, peer, addr)
		if err == nil {
			return nil
		}
		logger.Debug("拨号失败", "peer", peer.ShortString(), "addr", addr, "error", err)
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", addr, err))
	}
	return fmt.Errorf("swarm: dial %s: %w", peer.ShortString(), errs)
}

func (s *Swarm) dialAddr(ctx context.Context, peer types.PeerID, addr string) error {
	dctx, cancel := context.WithTimeout(ctx, s.cfg.DialTimeout)
	defer cancel()

	var d net.Dialer
	raw, err := d.DialContext(dctx, "tcp", addr)
	if err != nil {
		return err
	}
	c, err := s.upgrade(dctx, raw, interfaces.DirOutbound, peer)
	if err != nil {
		_ = raw.Close()
		return err
	}
	if err := s.addConn(c); err != nil {
		_ = c.session.Close()
		return err
	}
	return nil
}
