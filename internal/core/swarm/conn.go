package swarm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/yamux"
	mss "github.com/multiformats/go-multistream"

	"github.com/dep2p/go-dx/pkg/interfaces"
	"github.com/dep2p/go-dx/pkg/lib/log"
	"github.com/dep2p/go-dx/pkg/types"
)

var connCounter atomic.Uint64

// conn 一条已升级的连接
type conn struct {
	id         uint64
	swarm      *Swarm
	session    *yamux.Session
	remotePeer types.PeerID
	remoteAddr string
	dir        interfaces.Direction

	// 活动统计（空闲策略使用）
	streams      atomic.Int32
	lastActivity atomic.Int64

	kaMu      sync.Mutex
	keepAlive map[string]bool

	closeOnce sync.Once
	closed    atomic.Bool
}

var _ interfaces.Conn = (*conn)(nil)

func newConn(s *Swarm, session *yamux.Session, remote types.PeerID, addr string, dir interfaces.Direction) *conn {
	c := &conn{
		id:         connCounter.Add(1),
		swarm:      s,
		session:    session,
		remotePeer: remote,
		remoteAddr: addr,
		dir:        dir,
		keepAlive:  make(map[string]bool),
	}
	c.touch()
	return c
}

func (c *conn) ID() uint64                      { return c.id }
func (c *conn) LocalPeer() types.PeerID         { return c.swarm.localID }
func (c *conn) RemotePeer() types.PeerID        { return c.remotePeer }
func (c *conn) RemoteAddr() string              { return c.remoteAddr }
func (c *conn) Direction() interfaces.Direction { return c.dir }
func (c *conn) IsClosed() bool                  { return c.closed.Load() || c.session.IsClosed() }

// NewStream 在此连接上打开新流并协商协议
func (c *conn) NewStream(ctx context.Context, protocolID string) (interfaces.Stream, error) {
	if c.IsClosed() {
		return nil, ErrConnClosed
	}
	ys, err := c.session.OpenStream()
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}

	deadline := time.Now().Add(c.swarm.cfg.NegotiateTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = ys.SetDeadline(deadline)
	if err := mss.SelectProtoOrFail(protocolID, ys); err != nil {
		_ = ys.Close()
		return nil, fmt.Errorf("negotiate %s: %w", protocolID, err)
	}
	_ = ys.SetDeadline(time.Time{})

	c.touch()
	return newStream(ys, protocolID, c), nil
}

// SetKeepAlive 设置某协议对该连接的保活意见
func (c *conn) SetKeepAlive(protocolID string, keep bool) {
	c.kaMu.Lock()
	defer c.kaMu.Unlock()
	if keep {
		c.keepAlive[protocolID] = true
	} else {
		delete(c.keepAlive, protocolID)
	}
}

func (c *conn) keptAlive() bool {
	c.kaMu.Lock()
	defer c.kaMu.Unlock()
	return len(c.keepAlive) > 0
}

// Close 关闭连接
func (c *conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		err = c.session.Close()
		c.swarm.removeConn(c)
	})
	return err
}

// acceptLoop 接受入站流，会话关闭时退出并清理连接
func (c *conn) acceptLoop() {
	defer c.Close()
	for {
		ys, err := c.session.AcceptStream()
		if err != nil {
			if !errors.Is(err, yamux.ErrSessionShutdown) {
				logger.Debug("接受流失败", "peer", c.remotePeer.ShortString(), "error", err)
			}
			return
		}
		c.touch()
		go c.swarm.handleStream(c, ys)
	}
}

func (c *conn) touch() {
	c.lastActivity.Store(c.swarm.clock.Now().UnixNano())
}

func (c *conn) streamOpened() { c.streams.Add(1) }

func (c *conn) streamClosed() {
	c.streams.Add(-1)
	c.touch()
}

// idleSince 返回空闲时长；有活动流时返回 0
func (c *conn) idleSince(now time.Time) time.Duration {
	if c.streams.Load() > 0 {
		return 0
	}
	return now.Sub(time.Unix(0, c.lastActivity.Load()))
}

func (c *conn) String() string {
	return fmt.Sprintf("conn#%d(%s %s %s)", c.id, c.dir, log.TruncateID(c.remotePeer.String(), 8), c.remoteAddr)
}
