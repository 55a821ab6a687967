package dht

import (
	"bufio"
	"time"

	"github.com/dep2p/go-dx/pkg/interfaces"
)

// handleStream 响应入站 FIND_NODE
func (d *DHT) handleStream(s interfaces.Stream) {
	defer s.Close()

	remote := s.Conn().RemotePeer()
	if !d.limiter.Allow() {
		logger.Debug("丢弃入站请求", "peer", remote.ShortString(), "error", ErrRateLimited)
		return
	}
	_ = s.SetDeadline(time.Now().Add(d.cfg.QueryTimeout))

	key, err := readFindNode(bufio.NewReader(s))
	if err != nil {
		logger.Debug("读取 FIND_NODE 失败", "peer", remote.ShortString(), "error", err)
		return
	}

	near := d.rt.Nearest(keyToTarget(key), d.cfg.BucketSize+1)
	peers := make([]PeerInfo, 0, len(near))
	for _, p := range near {
		if p.ID == remote || len(p.Addrs) == 0 {
			continue
		}
		peers = append(peers, p)
	}
	if len(peers) > d.cfg.BucketSize {
		peers = peers[:d.cfg.BucketSize]
	}

	if err := writePeers(s, peers); err != nil {
		logger.Debug("写出 FIND_NODE 响应失败", "peer", remote.ShortString(), "error", err)
	}
}
