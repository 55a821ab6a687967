package dht

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/dep2p/go-dx/pkg/interfaces"
	"github.com/dep2p/go-dx/pkg/lib/log"
	"github.com/dep2p/go-dx/pkg/types"
)

var logger = log.Logger("discovery/dht")

// eventBufferSize 事件通道缓冲
const eventBufferSize = 64

// DHT 节点路由
//
// 实现 interfaces.DHT 与 interfaces.AddrSource。
type DHT struct {
	host    interfaces.Host
	cfg     Config
	rt      *RoutingTable
	limiter *rate.Limiter
	events  chan types.DHTEvent

	mu      sync.Mutex
	closed  bool
	started bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

var (
	_ interfaces.DHT        = (*DHT)(nil)
	_ interfaces.AddrSource = (*DHT)(nil)
)

// New 创建 DHT
//
// 查询在 New 之后即可发起；Start 注册入站处理器并接管 host 的地址来源。
func New(host interfaces.Host, cfg Config) (*DHT, error) {
	if host == nil {
		return nil, ErrNilHost
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &DHT{
		host:    host,
		cfg:     cfg,
		rt:      NewRoutingTable(host.ID(), cfg.BucketSize),
		limiter: rate.NewLimiter(rate.Limit(cfg.InboundRate), cfg.InboundBurst),
		events:  make(chan types.DHTEvent, eventBufferSize),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start 注册 FIND_NODE 处理器与连接通知
func (d *DHT) Start(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if d.started {
		return nil
	}
	d.started = true

	d.host.SetAddrSource(d)
	d.host.SetStreamHandler(ProtocolID, d.handleStream)
	d.host.Notify(&interfaces.NotifyBundle{ConnectedF: d.onConnected})
	logger.Info("DHT 已启动", "bucketSize", d.cfg.BucketSize, "alpha", d.cfg.Alpha)
	return nil
}

// Stop 停止全部查询
func (d *DHT) Stop(_ context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	started := d.started
	d.mu.Unlock()

	d.cancel()
	if started {
		d.host.RemoveStreamHandler(ProtocolID)
	}
	d.wg.Wait()
	return nil
}

// RoutingTable 返回路由表
func (d *DHT) RoutingTable() *RoutingTable {
	return d.rt
}

// AddrsOf 实现 interfaces.AddrSource
func (d *DHT) AddrsOf(peer types.PeerID) []string {
	return d.rt.AddrsOf(peer)
}

// AddAddress 把地址作为路由提示加入路由表
func (d *DHT) AddAddress(peer types.PeerID, addr string) {
	if d.rt.Add(peer, addr) {
		logger.Debug("加入路由提示", "peer", peer.ShortString(), "addr", addr)
	}
}

// Events 返回查询结果通道
func (d *DHT) Events() <-chan types.DHTEvent {
	return d.events
}

// Bootstrap 连接路由表中的节点并执行一次自查找
func (d *DHT) Bootstrap() {
	d.spawn(d.bootstrap)
}

// GetClosestPeers 异步查找离 key 最近的节点
func (d *DHT) GetClosestPeers(key []byte) {
	key = append([]byte(nil), key...)
	d.spawn(func(ctx context.Context) {
		peers, err := d.lookup(ctx, key)
		if ctx.Err() != nil {
			return
		}
		d.emit(&types.ClosestPeersResult{Key: key, Peers: peers, Err: err})
	})
}

func (d *DHT) spawn(fn func(ctx context.Context)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		fn(d.ctx)
	}()
}

func (d *DHT) emit(ev types.DHTEvent) {
	select {
	case d.events <- ev:
	case <-d.ctx.Done():
	}
}

func (d *DHT) bootstrap(ctx context.Context) {
	seeds := d.rt.Nearest(d.host.ID(), d.cfg.BucketSize)
	if len(seeds) == 0 {
		d.emit(&types.BootstrapResult{Err: ErrNoPeers})
		return
	}

	var g errgroup.Group
	g.SetLimit(d.cfg.Alpha)
	for _, p := range seeds {
		p := p
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, d.cfg.QueryTimeout)
			defer cancel()
			if err := d.host.Connect(cctx, p.ID, p.Addrs); err != nil {
				logger.Debug("引导节点不可达", "peer", p.ID.ShortString(), "error", err)
				d.rt.Remove(p.ID)
			}
			return nil
		})
	}
	_ = g.Wait()
	if ctx.Err() != nil {
		return
	}

	if _, err := d.lookup(ctx, d.host.ID().Bytes()); err != nil && ctx.Err() != nil {
		return
	}

	res := &types.BootstrapResult{Peers: d.rt.Size()}
	if res.Peers == 0 {
		res.Err = ErrNoPeers
	}
	d.emit(res)
}

// onConnected 出站连接的远端加入路由表
func (d *DHT) onConnected(c interfaces.Conn) {
	if c.Direction() != interfaces.DirOutbound {
		return
	}
	d.rt.Add(c.RemotePeer(), c.RemoteAddr())
}
