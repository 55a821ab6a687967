package swarm

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/yamux"
	mss "github.com/multiformats/go-multistream"
	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"

	"github.com/dep2p/go-dx/pkg/interfaces"
	"github.com/dep2p/go-dx/pkg/lib/log"
	"github.com/dep2p/go-dx/pkg/types"
)

var logger = log.Logger("core/swarm")

// Swarm 连接群管理
type Swarm struct {
	priv    ed25519.PrivateKey
	localID types.PeerID
	cfg     Config
	clock   clock.Clock

	mu        sync.RWMutex
	conns     map[types.PeerID][]*conn
	listeners []net.Listener
	handlers  map[string]interfaces.StreamHandler
	notifiees []interfaces.Notifiee
	addrSrc   interfaces.AddrSource

	// 入站流协议协商
	mux *mss.MultistreamMuxer[string]

	dials singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool
}

var _ interfaces.Host = (*Swarm)(nil)

// Option Swarm 选项
type Option func(*Swarm)

// WithClock 替换时钟（测试使用）
func WithClock(c clock.Clock) Option {
	return func(s *Swarm) { s.clock = c }
}

// New 创建 Swarm
func New(priv ed25519.PrivateKey, cfg Config, opts ...Option) (*Swarm, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: private key", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Swarm{
		priv:     priv,
		localID:  types.PeerIDFromPublicKey(priv.Public().(ed25519.PublicKey)),
		cfg:      cfg,
		clock:    clock.New(),
		conns:    make(map[types.PeerID][]*conn),
		handlers: make(map[string]interfaces.StreamHandler),
		mux:      mss.NewMultistreamMuxer[string](),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ============================================================================
//                              生命周期
// ============================================================================

// Start 监听配置的地址并启动空闲检查
func (s *Swarm) Start(_ context.Context) error {
	if s.closed.Load() {
		return ErrSwarmClosed
	}
	for _, addr := range s.cfg.ListenAddrs {
		if err := s.Listen(addr); err != nil {
			return err
		}
	}
	if s.cfg.IdleTimeout > 0 {
		s.wg.Add(1)
		go s.idleLoop()
	}
	logger.Info("Swarm 已启动", "peer", s.localID.ShortString(), "addrs", s.Addrs())
	return nil
}

// Listen 监听单个地址
func (s *Swarm) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("swarm: listen %s: %w", addr, err)
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, ln)
	s.mu.Unlock()

	s.wg.Add(1)
	go s.acceptLoop(ln)
	return nil
}

// Close 关闭所有监听器与连接
func (s *Swarm) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.cancel()

	s.mu.Lock()
	listeners := s.listeners
	s.listeners = nil
	var conns []*conn
	for _, cs := range s.conns {
		conns = append(conns, cs...)
	}
	s.mu.Unlock()

	var err error
	for _, ln := range listeners {
		err = multierr.Append(err, ln.Close())
	}
	for _, c := range conns {
		if cerr := c.Close(); cerr != nil && !errors.Is(cerr, yamux.ErrSessionShutdown) {
			err = multierr.Append(err, cerr)
		}
	}
	s.wg.Wait()
	return err
}

// ============================================================================
//                              Host 接口
// ============================================================================

// ID 返回本地 PeerID
func (s *Swarm) ID() types.PeerID { return s.localID }

// Addrs 返回可拨号的监听地址
//
// 监听在 0.0.0.0 / :: 时展开为本机各接口地址。
func (s *Swarm) Addrs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, ln := range s.listeners {
		tcp, ok := ln.Addr().(*net.TCPAddr)
		if !ok {
			continue
		}
		if !tcp.IP.IsUnspecified() {
			out = append(out, tcp.String())
			continue
		}
		for _, ip := range interfaceIPs(tcp.IP.To4() != nil) {
			out = append(out, net.JoinHostPort(ip.String(), fmt.Sprint(tcp.Port)))
		}
	}
	return out
}

func interfaceIPs(v4 bool) []net.IP {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}
	var ips []net.IP
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLinkLocalUnicast() {
			continue
		}
		if (ipnet.IP.To4() != nil) != v4 {
			continue
		}
		ips = append(ips, ipnet.IP)
	}
	return ips
}

// SetStreamHandler 为指定协议设置流处理器
func (s *Swarm) SetStreamHandler(protocolID string, handler interfaces.StreamHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[protocolID] = handler
	s.mux.AddHandler(protocolID, nil)
}

// RemoveStreamHandler 移除指定协议的流处理器
func (s *Swarm) RemoveStreamHandler(protocolID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, protocolID)
	s.mux.RemoveHandler(protocolID)
}

// Notify 注册连接事件通知
func (s *Swarm) Notify(n interfaces.Notifiee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifiees = append(s.notifiees, n)
}

// SetAddrSource 设置地址来源
func (s *Swarm) SetAddrSource(src interfaces.AddrSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addrSrc = src
}

// Peers 返回所有已连接的节点 ID
func (s *Swarm) Peers() []types.PeerID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	peers := make([]types.PeerID, 0, len(s.conns))
	for p := range s.conns {
		peers = append(peers, p)
	}
	return peers
}

// ConnsToPeer 返回到指定节点的所有连接
func (s *Swarm) ConnsToPeer(peer types.PeerID) []interfaces.Conn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cs := s.conns[peer]
	out := make([]interfaces.Conn, 0, len(cs))
	for _, c := range cs {
		out = append(out, c)
	}
	return out
}

// NewStream 创建到指定节点的新流，没有连接时先拨号
func (s *Swarm) NewStream(ctx context.Context, peer types.PeerID, protocolID string) (interfaces.Stream, error) {
	if s.closed.Load() {
		return nil, ErrSwarmClosed
	}
	if len(s.ConnsToPeer(peer)) == 0 {
		if err := s.Connect(ctx, peer, nil); err != nil {
			return nil, err
		}
	}

	var errs error
	for _, c := range s.ConnsToPeer(peer) {
		if c.IsClosed() {
			continue
		}
		st, err := c.NewStream(ctx, protocolID)
		if err == nil {
			return st, nil
		}
		errs = multierr.Append(errs, err)
	}
	if errs == nil {
		return nil, ErrNoConnection
	}
	return nil, errs
}

// ============================================================================
//                              内部
// ============================================================================

func (s *Swarm) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	for {
		raw, err := ln.Accept()
		if err != nil {
			if !s.closed.Load() {
				logger.Warn("接受连接失败", "addr", ln.Addr().String(), "error", err)
			}
			return
		}
		go s.handleInbound(raw)
	}
}

func (s *Swarm) handleInbound(raw net.Conn) {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.DialTimeout)
	defer cancel()

	c, err := s.upgrade(ctx, raw, interfaces.DirInbound, types.EmptyPeerID)
	if err != nil {
		logger.Debug("入站连接升级失败", "remote", raw.RemoteAddr().String(), "error", err)
		_ = raw.Close()
		return
	}
	if err := s.addConn(c); err != nil {
		_ = c.session.Close()
	}
}

// addConn 登记连接、启动接受流循环并通知订阅者
func (s *Swarm) addConn(c *conn) error {
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		return ErrSwarmClosed
	}
	s.conns[c.remotePeer] = append(s.conns[c.remotePeer], c)
	notifiees := append([]interfaces.Notifiee(nil), s.notifiees...)
	s.mu.Unlock()

	logger.Debug("连接已建立", "conn", c.String())
	go c.acceptLoop()
	for _, n := range notifiees {
		n.Connected(c)
	}
	return nil
}

func (s *Swarm) removeConn(c *conn) {
	s.mu.Lock()
	cs := s.conns[c.remotePeer]
	found := false
	for i, x := range cs {
		if x == c {
			cs = append(cs[:i], cs[i+1:]...)
			found = true
			break
		}
	}
	if len(cs) == 0 {
		delete(s.conns, c.remotePeer)
	} else {
		s.conns[c.remotePeer] = cs
	}
	notifiees := append([]interfaces.Notifiee(nil), s.notifiees...)
	s.mu.Unlock()

	if !found {
		return
	}
	logger.Debug("连接已关闭", "conn", c.String())
	for _, n := range notifiees {
		n.Disconnected(c)
	}
}

// handleStream 协商入站流协议并分发给处理器
func (s *Swarm) handleStream(c *conn, ys *yamux.Stream) {
	_ = ys.SetDeadline(time.Now().Add(s.cfg.NegotiateTimeout))
	proto, _, err := s.mux.Negotiate(ys)
	if err != nil {
		logger.Debug("入站流协商失败", "peer", c.remotePeer.ShortString(), "error", err)
		_ = ys.Close()
		return
	}
	_ = ys.SetDeadline(time.Time{})

	s.mu.RLock()
	h := s.handlers[proto]
	s.mu.RUnlock()
	if h == nil {
		_ = ys.Close()
		return
	}
	h(newStream(ys, proto, c))
}

// idleLoop 周期性关闭空闲连接
func (s *Swarm) idleLoop() {
	defer s.wg.Done()
	ticker := s.clock.Ticker(s.cfg.IdleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.closeIdle()
		}
	}
}

func (s *Swarm) closeIdle() {
	now := s.clock.Now()
	s.mu.RLock()
	var idle []*conn
	for _, cs := range s.conns {
		for _, c := range cs {
			if !c.keptAlive() && c.idleSince(now) >= s.cfg.IdleTimeout {
				idle = append(idle, c)
			}
		}
	}
	s.mu.RUnlock()

	for _, c := range idle {
		logger.Debug("关闭空闲连接", "conn", c.String())
		_ = c.Close()
	}
}
