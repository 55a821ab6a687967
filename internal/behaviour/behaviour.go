package behaviour

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-dx/internal/core/metrics"
	"github.com/dep2p/go-dx/internal/protocol/status"
	"github.com/dep2p/go-dx/pkg/interfaces"
	"github.com/dep2p/go-dx/pkg/lib/log"
	"github.com/dep2p/go-dx/pkg/types"
)

var logger = log.Logger("behaviour")

// StatusSource 状态事件来源
type StatusSource interface {
	Events() <-chan status.Event
}

// Option 行为层选项
type Option func(*Behaviour)

// WithClock 替换时钟（测试用）
func WithClock(c clock.Clock) Option {
	return func(b *Behaviour) { b.clock = c }
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Behaviour) { b.metrics = m }
}

// WithDiscovery 设置本地发现事件源
func WithDiscovery(d interfaces.LocalDiscovery) Option {
	return func(b *Behaviour) { b.discovery = d }
}

// WithStatus 设置状态事件来源
func WithStatus(s StatusSource) Option {
	return func(b *Behaviour) { b.status = s }
}

// Behaviour 事件组合层
type Behaviour struct {
	cfg       Config
	dht       interfaces.DHT
	discovery interfaces.LocalDiscovery
	status    StatusSource
	registry  *Registry
	clock     clock.Clock
	metrics   *metrics.Metrics

	// 仅 dispatch 所在 goroutine 访问
	retries map[types.PeerID]int

	subMu       sync.Mutex
	subscribers []chan Event
	subClosed   bool

	mu      sync.Mutex
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// New 创建 Behaviour
func New(dht interfaces.DHT, cfg Config, opts ...Option) (*Behaviour, error) {
	if dht == nil {
		return nil, ErrNilDHT
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &Behaviour{
		cfg:      cfg,
		dht:      dht,
		registry: NewRegistry(),
		clock:    clock.New(),
		retries:  make(map[types.PeerID]int),
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Start 加入引导节点、发起 DHT 引导并启动事件循环
func (b *Behaviour) Start(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return ErrAlreadyStarted
	}
	b.started = true
	b.ctx, b.cancel = context.WithCancel(context.Background())
	b.done = make(chan struct{})

	b.subMu.Lock()
	b.subClosed = false
	b.subMu.Unlock()

	for _, pa := range b.cfg.BootstrapPeers {
		b.dht.AddAddress(pa.Peer, pa.Addr)
	}
	b.dht.Bootstrap()

	go b.run(b.ctx)
	return nil
}

// Stop 停止事件循环
func (b *Behaviour) Stop(_ context.Context) error {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return nil
	}
	b.started = false
	b.cancel()
	done := b.done
	b.mu.Unlock()

	<-done
	return nil
}

// AddPeer 关注节点
//
// 条目不存在时加入注册表；每次调用都会对该节点发起最近节点查询。
func (b *Behaviour) AddPeer(id types.PeerID) {
	if b.registry.Add(id) {
		logger.Info("关注节点", "peer", id.ShortString())
		b.metrics.SetRegistryPeers(b.registry.Len())
	}
	b.dht.GetClosestPeers(id.Bytes())
}

// Lookup 返回节点条目副本
func (b *Behaviour) Lookup(id types.PeerID) (PeerInfo, bool) {
	return b.registry.Lookup(id)
}

// Peers 返回全部关注节点
func (b *Behaviour) Peers() []PeerInfo {
	return b.registry.Peers()
}

// Registry 返回注册表
func (b *Behaviour) Registry() *Registry {
	return b.registry
}

// subscriberBuffer 订阅通道缓冲
const subscriberBuffer = 64

// Subscribe 订阅已处理的事件
//
// 订阅者跟不上时事件被丢弃，不会阻塞 dispatch。通道在 Stop 后关闭；
// Stop 之后订阅得到的是已关闭的通道。
func (b *Behaviour) Subscribe() <-chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.subMu.Lock()
	defer b.subMu.Unlock()
	if b.subClosed {
		close(ch)
		return ch
	}
	b.subscribers = append(b.subscribers, ch)
	return ch
}

func (b *Behaviour) publish(ev Event) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *Behaviour) closeSubscribers() {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
	b.subClosed = true
}

// ============================================================================
//                              事件循环
// ============================================================================

func (b *Behaviour) run(ctx context.Context) {
	defer close(b.done)
	defer b.closeSubscribers()

	dhtCh := b.dht.Events()
	var discCh <-chan types.DiscoveryEvent
	if b.discovery != nil {
		discCh = b.discovery.Events()
	}
	var statusCh <-chan status.Event
	if b.status != nil {
		statusCh = b.status.Events()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-dhtCh:
			if !ok {
				dhtCh = nil
				continue
			}
			b.dispatch(ctx, DHTEvent(ev))
		case ev, ok := <-discCh:
			if !ok {
				discCh = nil
				continue
			}
			b.dispatch(ctx, DiscoveryEvent(ev))
		case ev, ok := <-statusCh:
			if !ok {
				statusCh = nil
				continue
			}
			b.dispatch(ctx, StatusEvent(ev))
		}
	}
}

// dispatch 处理一个事件
func (b *Behaviour) dispatch(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EventDHT:
		b.handleDHT(ctx, ev.DHT)
	case EventDiscovery:
		b.handleDiscovery(ev.Discovery)
	case EventStatus:
		b.handleStatus(ev.Status)
	}
	b.publish(ev)
}

func (b *Behaviour) handleDHT(ctx context.Context, ev types.DHTEvent) {
	switch e := ev.(type) {
	case *types.BootstrapResult:
		if e.Err != nil {
			b.metrics.DHTQuery("bootstrap", "error")
			logger.Warn("DHT 引导失败", "error", e.Err)
			return
		}
		b.metrics.DHTQuery("bootstrap", "ok")
		logger.Info("DHT 引导完成", "peers", e.Peers)

	case *types.ClosestPeersResult:
		b.handleClosestPeers(ctx, e)
	}
}

func (b *Behaviour) handleClosestPeers(ctx context.Context, e *types.ClosestPeersResult) {
	if e.Err != nil {
		b.metrics.DHTQuery("closest_peers", "error")
		logger.Warn("查找节点失败", "error", e.Err)
		return
	}

	id, err := types.PeerIDFromBytes(e.Key)
	if err != nil {
		logger.Debug("丢弃无法解析的查询键", "error", err)
		return
	}

	if len(e.Peers) == 0 {
		b.metrics.DHTQuery("closest_peers", "empty")
		b.requery(ctx, id)
		return
	}
	b.metrics.DHTQuery("closest_peers", "ok")
	delete(b.retries, id)

	if !b.registry.UpdateRouting(id, e.Peers, b.clock.Now()) {
		logger.Info("未关注的节点", "peer", id.ShortString(), "closest", len(e.Peers))
		return
	}
	logger.Info("更新节点路由", "peer", id.ShortString(), "closest", len(e.Peers))
}

// requery 空结果时对同一 key 重新查询一次
func (b *Behaviour) requery(ctx context.Context, id types.PeerID) {
	if b.cfg.RetryLimit > 0 {
		if b.retries[id] >= b.cfg.RetryLimit {
			logger.Warn("最近节点查询持续为空，放弃", "peer", id.ShortString(), "attempts", b.retries[id])
			delete(b.retries, id)
			return
		}
		b.retries[id]++
	}

	key := id.Bytes()
	if b.cfg.RetryDelay <= 0 {
		b.dht.GetClosestPeers(key)
		return
	}
	b.clock.AfterFunc(b.cfg.RetryDelay, func() {
		if ctx.Err() != nil {
			return
		}
		b.dht.GetClosestPeers(key)
	})
}

func (b *Behaviour) handleDiscovery(ev types.DiscoveryEvent) {
	switch e := ev.(type) {
	case *types.PeersDiscovered:
		b.metrics.DiscoveryEvent("discovered")
		for _, pa := range e.Peers {
			logger.Debug("发现本地节点", "peer", pa.Peer.ShortString(), "addr", pa.Addr)
			b.dht.AddAddress(pa.Peer, pa.Addr)
		}
	case *types.PeersExpired:
		b.metrics.DiscoveryEvent("expired")
		for _, pa := range e.Peers {
			logger.Debug("本地节点过期", "peer", pa.Peer.ShortString(), "addr", pa.Addr)
		}
	}
}

func (b *Behaviour) handleStatus(ev status.Event) {
	r := ev.Result
	switch {
	case r.IsReceived():
		logger.Info("收到状态", "peer", ev.Peer.ShortString(), "status", r.Payload.String())
		if b.cfg.RecordStatus {
			b.registry.UpdateStatus(ev.Peer, r.Payload, b.clock.Now())
		}
	case r.IsSuccess():
		logger.Debug("已答复状态请求", "peer", ev.Peer.ShortString())
	case ev.Closed:
		logger.Warn("状态交换失败，连接已关闭", "peer", ev.Peer.ShortString(), "error", r.Failure)
	default:
		logger.Info("状态交换失败", "peer", ev.Peer.ShortString(), "error", r.Failure)
	}
}
