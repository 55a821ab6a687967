package dx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-dx/internal/behaviour"
	"github.com/dep2p/go-dx/internal/core/identity"
	"github.com/dep2p/go-dx/internal/core/metrics"
	"github.com/dep2p/go-dx/internal/core/swarm"
	"github.com/dep2p/go-dx/internal/discovery/dht"
	"github.com/dep2p/go-dx/internal/discovery/mdns"
	"github.com/dep2p/go-dx/internal/protocol/status"
	"github.com/dep2p/go-dx/pkg/interfaces"
	"github.com/dep2p/go-dx/pkg/lib/log"
	"github.com/dep2p/go-dx/pkg/types"
)

var logger = log.Logger("dx")

// NodeState 节点状态
type NodeState int

const (
	// StateIdle 已创建，未启动
	StateIdle NodeState = iota
	// StateStarting 正在启动
	StateStarting
	// StateRunning 运行中
	StateRunning
	// StateStopping 正在停止
	StateStopping
	// StateStopped 已停止
	StateStopped
)

// String 返回状态名
func (s NodeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

const (
	// initializeTimeout Fx App 启动超时
	initializeTimeout = 30 * time.Second

	// shutdownTimeout Fx App 停止超时
	shutdownTimeout = 10 * time.Second
)

type (
	// PeerInfo 关注节点的注册表条目
	PeerInfo = behaviour.PeerInfo

	// Event Behaviour 处理过的事件
	Event = behaviour.Event
)

// Node 状态交换节点
//
// 由 New 创建，Start 启动，Close 释放。一个 Node 只能启动一次。
type Node struct {
	config *nodeConfig
	app    *fx.App

	mu     sync.Mutex
	state  NodeState
	closed bool

	// 由 Fx 注入
	identity  *identity.Identity
	payload   types.Payload
	swarm     *swarm.Swarm
	host      interfaces.Host
	dht       *dht.DHT
	status    *status.Service
	behaviour *behaviour.Behaviour
	mdns      *mdns.MDNS
	metrics   *metrics.Metrics
}

// New 创建节点
//
// 未指定身份时生成临时身份，未指定负载时随机生成。
func New(opts ...Option) (*Node, error) {
	cfg := newNodeConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}
	if err := cfg.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.identity == nil {
		id, err := identity.Generate("ephemeral")
		if err != nil {
			return nil, err
		}
		cfg.identity = id
	}
	if cfg.payload == nil {
		p := types.RandomPayload()
		cfg.payload = &p
	}

	node := &Node{config: cfg}

	var err error
	node.app, err = buildFxApp(cfg, node)
	if err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	return node, nil
}

// Start 快捷启动函数
//
// 等价于 New() + node.Start()。
func Start(ctx context.Context, opts ...Option) (*Node, error) {
	node, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := node.Start(ctx); err != nil {
		return nil, fmt.Errorf("start node: %w", err)
	}
	return node, nil
}

// Start 启动节点
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrNodeClosed
	}
	if n.state != StateIdle {
		return ErrAlreadyStarted
	}

	n.state = StateStarting
	logger.Info("正在启动节点", "peer", n.identity.ID().ShortString())

	initCtx, cancel := context.WithTimeout(ctx, initializeTimeout)
	defer cancel()

	if err := n.app.Start(initCtx); err != nil {
		n.state = StateStopped
		n.closed = true
		logger.Error("节点启动失败", "error", err)
		return fmt.Errorf("initialize failed: %w", err)
	}

	n.state = StateRunning
	logger.Info("节点已启动", "addrs", n.host.Addrs(), "payload", n.payload.String())
	return nil
}

// Stop 停止节点
//
// 停止后节点不可再启动。
func (n *Node) Stop(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}
	n.closed = true

	if n.state != StateRunning {
		n.state = StateStopped
		return nil
	}

	n.state = StateStopping
	logger.Info("正在停止节点")

	err := n.app.Stop(ctx)
	n.state = StateStopped
	if err != nil {
		logger.Warn("节点停止时出错", "error", err)
		return err
	}
	logger.Info("节点已停止")
	return nil
}

// Close 关闭节点
func (n *Node) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs error
	errs = multierr.Append(errs, n.Stop(ctx))
	if n.swarm != nil {
		// swarm 已由 Fx 关闭时为空操作
		errs = multierr.Append(errs, n.swarm.Close())
	}
	return errs
}

// State 返回节点状态
func (n *Node) State() NodeState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// ════════════════════════════════════════════════════════════════════════════
//                              基本信息
// ════════════════════════════════════════════════════════════════════════════

// ID 返回本地 PeerID
func (n *Node) ID() types.PeerID {
	return n.identity.ID()
}

// Identity 返回本地身份
func (n *Node) Identity() *identity.Identity {
	return n.identity
}

// Addrs 返回监听地址
func (n *Node) Addrs() []string {
	if n.host == nil {
		return nil
	}
	return n.host.Addrs()
}

// Payload 返回本节点宣告的状态负载
func (n *Node) Payload() types.Payload {
	return n.payload
}

// Metrics 返回指标收集器，未启用时为 nil
func (n *Node) Metrics() *metrics.Metrics {
	return n.metrics
}

// ════════════════════════════════════════════════════════════════════════════
//                              节点操作
// ════════════════════════════════════════════════════════════════════════════

func (n *Node) checkRunning() error {
	switch n.State() {
	case StateRunning:
		return nil
	case StateIdle, StateStarting:
		return ErrNotStarted
	default:
		return ErrNodeClosed
	}
}

// AddPeer 关注节点并发起最近节点查询
func (n *Node) AddPeer(id types.PeerID) error {
	if err := n.checkRunning(); err != nil {
		return err
	}
	if id == n.ID() {
		return ErrSelfPeer
	}
	n.behaviour.AddPeer(id)
	return nil
}

// AddAddress 为节点添加已知地址
func (n *Node) AddAddress(id types.PeerID, addr string) error {
	if err := n.checkRunning(); err != nil {
		return err
	}
	n.dht.AddAddress(id, addr)
	return nil
}

// Connect 连接到节点
//
// addrs 为空时使用 DHT 路由表中的地址。
func (n *Node) Connect(ctx context.Context, id types.PeerID, addrs ...string) error {
	if err := n.checkRunning(); err != nil {
		return err
	}
	if id == n.ID() {
		return ErrSelfPeer
	}
	return n.host.Connect(ctx, id, addrs)
}

// Lookup 返回关注节点的条目
func (n *Node) Lookup(id types.PeerID) (PeerInfo, bool) {
	if n.behaviour == nil {
		return PeerInfo{}, false
	}
	return n.behaviour.Lookup(id)
}

// Peers 返回全部关注节点
func (n *Node) Peers() []PeerInfo {
	if n.behaviour == nil {
		return nil
	}
	return n.behaviour.Peers()
}

// ConnectedPeers 返回当前有连接的节点
func (n *Node) ConnectedPeers() []types.PeerID {
	if n.host == nil {
		return nil
	}
	return n.host.Peers()
}

// Subscribe 订阅节点事件
//
// 通道在节点停止后关闭；消费过慢时事件被丢弃。
func (n *Node) Subscribe() <-chan Event {
	return n.behaviour.Subscribe()
}
