package mdns

import (
	"context"
	"net"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/hashicorp/mdns"

	"github.com/dep2p/go-dx/pkg/interfaces"
	"github.com/dep2p/go-dx/pkg/lib/log"
	"github.com/dep2p/go-dx/pkg/types"
)

var logger = log.Logger("discovery/mdns")

// eventBufferSize 事件通道缓冲
const eventBufferSize = 64

// Option mDNS 选项
type Option func(*MDNS)

// WithClock 替换查询循环的时钟（测试用）
func WithClock(c clock.Clock) Option {
	return func(m *MDNS) { m.clock = c }
}

// MDNS 局域网发现服务，实现 interfaces.LocalDiscovery
type MDNS struct {
	host  interfaces.Host
	cfg   Config
	clock clock.Clock

	// PeerID → 最近一次发现的地址；TTL 淘汰即过期
	peers  *expirable.LRU[types.PeerID, []string]
	events chan types.DiscoveryEvent

	mu     sync.Mutex
	server *mdns.Server

	started atomic.Bool
	closed  atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

var _ interfaces.LocalDiscovery = (*MDNS)(nil)

// New 创建 mDNS 服务
func New(host interfaces.Host, cfg Config, opts ...Option) (*MDNS, error) {
	if host == nil {
		return nil, ErrNilHost
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &MDNS{
		host:   host,
		cfg:    cfg,
		clock:  clock.New(),
		events: make(chan types.DiscoveryEvent, eventBufferSize),
		ctx:    ctx,
		cancel: cancel,
	}
	m.peers = expirable.NewLRU[types.PeerID, []string](cfg.MaxPeers, m.onEvict, cfg.PeerTTL)
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Events 返回发现事件通道
func (m *MDNS) Events() <-chan types.DiscoveryEvent {
	return m.events
}

// Start 开始广播并启动查询循环
//
// 没有可广播的地址时只查询不广播。
func (m *MDNS) Start(_ context.Context) error {
	if m.closed.Load() {
		return ErrAlreadyClosed
	}
	if m.started.Swap(true) {
		return ErrAlreadyStarted
	}

	if err := m.startServer(); err != nil {
		logger.Warn("mDNS 广播启动失败，仅查询", "error", err)
	}

	m.wg.Add(1)
	go m.queryLoop()

	logger.Info("mDNS 服务已启动", "service", m.cfg.ServiceTag, "interval", m.cfg.QueryInterval)
	return nil
}

// Stop 停止服务
func (m *MDNS) Stop(_ context.Context) error {
	if m.closed.Swap(true) {
		return nil
	}
	m.cancel()

	m.mu.Lock()
	if m.server != nil {
		if err := m.server.Shutdown(); err != nil {
			logger.Debug("关闭 mDNS 服务器失败", "error", err)
		}
		m.server = nil
	}
	m.mu.Unlock()

	m.wg.Wait()
	return nil
}

// Peers 返回当前未过期的节点
func (m *MDNS) Peers() []types.PeerID {
	return m.peers.Keys()
}

// ============================================================================
//                              广播
// ============================================================================

func (m *MDNS) startServer() error {
	addrs := m.host.Addrs()
	ips, port := advertiseTarget(addrs)
	if len(ips) == 0 {
		logger.Debug("无可广播的地址")
		return nil
	}

	id := m.host.ID()
	svc, err := mdns.NewMDNSService(
		"dx-"+id.ShortString(),
		m.cfg.ServiceTag,
		Domain,
		"",
		port,
		ips,
		encodeTXT(id, addrs),
	)
	if err != nil {
		return err
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: svc})
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.server = server
	m.mu.Unlock()
	return nil
}

// advertiseTarget 从 host:port 地址中提取 IP 与端口
//
// 端口取第一个可解析的地址；回环地址只在没有其他地址时使用。
func advertiseTarget(addrs []string) ([]net.IP, int) {
	var ips, loopback []net.IP
	port := 0
	for _, a := range addrs {
		host, p, err := net.SplitHostPort(a)
		if err != nil {
			continue
		}
		ip := net.ParseIP(host)
		if ip == nil || ip.IsUnspecified() {
			continue
		}
		if port == 0 {
			port, _ = strconv.Atoi(p)
		}
		if ip.IsLoopback() {
			loopback = append(loopback, ip)
			continue
		}
		ips = append(ips, ip)
	}
	if len(ips) == 0 {
		ips = loopback
	}
	return ips, port
}

// ============================================================================
//                              查询
// ============================================================================

func (m *MDNS) queryLoop() {
	defer m.wg.Done()

	ticker := m.clock.Ticker(m.cfg.QueryInterval)
	defer ticker.Stop()

	m.query()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.query()
		}
	}
}

func (m *MDNS) query() {
	entries := make(chan *mdns.ServiceEntry, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range entries {
			m.handleEntry(e)
		}
	}()

	params := mdns.DefaultParams(m.cfg.ServiceTag)
	params.Timeout = m.cfg.QueryTimeout
	params.Entries = entries
	if err := mdns.Query(params); err != nil {
		logger.Debug("mDNS 查询失败", "error", err)
	}
	close(entries)
	<-done
}

// handleEntry 处理一条服务记录
func (m *MDNS) handleEntry(e *mdns.ServiceEntry) {
	id, addrs, err := decodeTXT(e.InfoFields)
	if err != nil {
		logger.Debug("忽略无效的 mDNS 记录", "name", e.Name, "error", err)
		return
	}
	if len(addrs) == 0 && e.AddrV4 != nil && e.Port > 0 {
		addrs = []string{net.JoinHostPort(e.AddrV4.String(), strconv.Itoa(e.Port))}
	}
	m.observe(id, addrs)
}

// observe 记录一次发现
//
// 刷新 TTL；地址集合变化时，消失的地址投递 PeersExpired，新地址投递 PeersDiscovered。
func (m *MDNS) observe(id types.PeerID, addrs []string) {
	if id == m.host.ID() || len(addrs) == 0 || m.closed.Load() {
		return
	}

	prev, _ := m.peers.Peek(id)
	m.peers.Add(id, append([]string(nil), addrs...))

	var stale []types.PeerAddr
	for _, a := range prev {
		if !slices.Contains(addrs, a) {
			stale = append(stale, types.PeerAddr{Peer: id, Addr: a})
		}
	}
	if len(stale) > 0 {
		logger.Debug("局域网节点地址失效", "peer", id.ShortString(), "addrs", len(stale))
		m.emit(&types.PeersExpired{Peers: stale})
	}

	var fresh []types.PeerAddr
	for _, a := range addrs {
		if !slices.Contains(prev, a) {
			fresh = append(fresh, types.PeerAddr{Peer: id, Addr: a})
		}
	}
	if len(fresh) > 0 {
		logger.Debug("发现局域网节点", "peer", id.ShortString(), "addrs", len(fresh))
		m.emit(&types.PeersDiscovered{Peers: fresh})
	}
}

func (m *MDNS) emit(ev types.DiscoveryEvent) {
	select {
	case m.events <- ev:
	case <-m.ctx.Done():
	}
}

// onEvict 缓存淘汰回调，在 LRU 锁内执行，不得阻塞
func (m *MDNS) onEvict(id types.PeerID, addrs []string) {
	if m.closed.Load() {
		return
	}
	expired := make([]types.PeerAddr, 0, len(addrs))
	for _, a := range addrs {
		expired = append(expired, types.PeerAddr{Peer: id, Addr: a})
	}
	select {
	case m.events <- &types.PeersExpired{Peers: expired}:
		logger.Debug("局域网节点过期", "peer", id.ShortString())
	default:
		logger.Warn("事件通道已满，丢弃过期事件", "peer", id.ShortString())
	}
}
