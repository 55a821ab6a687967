package swarm

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/hashicorp/yamux"
	mss "github.com/multiformats/go-multistream"

	"github.com/dep2p/go-dx/internal/core/security/noise"
	"github.com/dep2p/go-dx/pkg/interfaces"
	"github.com/dep2p/go-dx/pkg/protocolids"
	"github.com/dep2p/go-dx/pkg/types"
)

// upgrade 把原始 TCP 连接升级为已认证、已多路复用的连接
//
// expected 仅对出站连接有效。
func (s *Swarm) upgrade(ctx context.Context, raw net.Conn, dir interfaces.Direction, expected types.PeerID) (*conn, error) {
	isServer := dir == interfaces.DirInbound

	if err := negotiate(ctx, raw, protocolids.Noise, isServer); err != nil {
		return nil, fmt.Errorf("security negotiation: %w", err)
	}

	var (
		sc  *noise.Conn
		err error
	)
	if isServer {
		sc, err = noise.SecureInbound(ctx, raw, s.priv)
	} else {
		sc, err = noise.SecureOutbound(ctx, raw, s.priv, expected)
	}
	if err != nil {
		return nil, err
	}

	if err := negotiate(ctx, sc, protocolids.Yamux, isServer); err != nil {
		return nil, fmt.Errorf("muxer negotiation: %w", err)
	}

	var session *yamux.Session
	if isServer {
		session, err = yamux.Server(sc, yamuxConfig())
	} else {
		session, err = yamux.Client(sc, yamuxConfig())
	}
	if err != nil {
		return nil, fmt.Errorf("yamux session: %w", err)
	}

	return newConn(s, session, sc.RemotePeer(), raw.RemoteAddr().String(), dir), nil
}

// negotiate 在整条连接上协商单一协议
//
// 服务器端使用 MultistreamMuxer.Negotiate()，客户端使用 SelectProtoOrFail()。
func negotiate(ctx context.Context, c net.Conn, proto string, isServer bool) error {
	if d, ok := ctx.Deadline(); ok {
		if err := c.SetDeadline(d); err != nil {
			return err
		}
		defer c.SetDeadline(time.Time{})
	}

	if !isServer {
		return mss.SelectProtoOrFail(proto, c)
	}

	muxer := mss.NewMultistreamMuxer[string]()
	muxer.AddHandler(proto, nil)
	selected, _, err := muxer.Negotiate(c)
	if err != nil {
		return err
	}
	if selected != proto {
		return fmt.Errorf("unexpected protocol %s", selected)
	}
	return nil
}
