package dht

import (
	"bufio"
	"fmt"
	"io"

	"github.com/multiformats/go-varint"

	"github.com/dep2p/go-dx/pkg/protocolids"
	"github.com/dep2p/go-dx/pkg/types"
)

// ProtocolID DHT 协议 ID
const ProtocolID = protocolids.Kad

// 消息限制
const (
	maxKeyLen           = 256
	maxPeersPerResponse = 64
	maxAddrLen          = 256
)

// PeerInfo FIND_NODE 响应中的节点
type PeerInfo struct {
	ID    types.PeerID
	Addrs []string
}

// ============================================================================
//                              编码
// ============================================================================

// writeFindNode 写出 FIND_NODE 请求
func writeFindNode(w io.Writer, key []byte) error {
	if len(key) > maxKeyLen {
		return ErrMessageTooLarge
	}
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(varint.ToUvarint(uint64(len(key)))); err != nil {
		return err
	}
	if _, err := bw.Write(key); err != nil {
		return err
	}
	return bw.Flush()
}

// readFindNode 读取 FIND_NODE 请求
func readFindNode(r *bufio.Reader) ([]byte, error) {
	n, err := varint.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("dht: read key length: %w", err)
	}
	if n > maxKeyLen {
		return nil, ErrMessageTooLarge
	}
	key := make([]byte, n)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("dht: read key: %w", err)
	}
	return key, nil
}

// writePeers 写出 FIND_NODE 响应
func writePeers(w io.Writer, peers []PeerInfo) error {
	if len(peers) > maxPeersPerResponse {
		peers = peers[:maxPeersPerResponse]
	}
	bw := bufio.NewWriter(w)
	_, _ = bw.Write(varint.ToUvarint(uint64(len(peers))))
	for _, p := range peers {
		addrs := p.Addrs
		if len(addrs) > maxAddrsPerPeer {
			addrs = addrs[:maxAddrsPerPeer]
		}
		_, _ = bw.Write(p.ID[:])
		_, _ = bw.Write(varint.ToUvarint(uint64(len(addrs))))
		for _, a := range addrs {
			if len(a) > maxAddrLen {
				return ErrMessageTooLarge
			}
			_, _ = bw.Write(varint.ToUvarint(uint64(len(a))))
			_, _ = bw.WriteString(a)
		}
	}
	return bw.Flush()
}

// readPeers 读取 FIND_NODE 响应
func readPeers(r *bufio.Reader) ([]PeerInfo, error) {
	count, err := varint.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("dht: read peer count: %w", err)
	}
	if count > maxPeersPerResponse {
		return nil, ErrMessageTooLarge
	}

	peers := make([]PeerInfo, 0, count)
	for i := uint64(0); i < count; i++ {
		var p PeerInfo
		if _, err := io.ReadFull(r, p.ID[:]); err != nil {
			return nil, fmt.Errorf("dht: read peer id: %w", err)
		}
		n, err := varint.ReadUvarint(r)
		if err != nil {
			return nil, fmt.Errorf("dht: read addr count: %w", err)
		}
		if n > maxAddrsPerPeer {
			return nil, ErrMessageTooLarge
		}
		for j := uint64(0); j < n; j++ {
			l, err := varint.ReadUvarint(r)
			if err != nil {
				return nil, fmt.Errorf("dht: read addr length: %w", err)
			}
			if l > maxAddrLen {
				return nil, ErrMessageTooLarge
			}
			buf := make([]byte, l)
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, fmt.Errorf("dht: read addr: %w", err)
			}
			p.Addrs = append(p.Addrs, string(buf))
		}
		peers = append(peers, p)
	}
	return peers, nil
}
