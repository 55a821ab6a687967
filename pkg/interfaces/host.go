package interfaces

import (
	"context"
	"io"
	"time"

	"github.com/dep2p/go-dx/pkg/types"
)

// Host 定义 P2P 主机接口
//
// Host 负责连接管理、协议注册和流处理。
type Host interface {
	// ID 返回本地 PeerID
	ID() types.PeerID

	// Addrs 返回监听地址（host:port）
	Addrs() []string

	// Connect 连接到指定节点
	//
	// addrs 为空时从地址源（SetAddrSource）查找地址。
	// 已存在连接时直接返回 nil。
	Connect(ctx context.Context, peer types.PeerID, addrs []string) error

	// NewStream 创建到指定节点的新流并协商 protocolID
	NewStream(ctx context.Context, peer types.PeerID, protocolID string) (Stream, error)

	// SetStreamHandler 为指定协议设置入站流处理器
	SetStreamHandler(protocolID string, handler StreamHandler)

	// RemoveStreamHandler 移除指定协议的流处理器
	RemoveStreamHandler(protocolID string)

	// Notify 注册连接事件通知
	Notify(n Notifiee)

	// Peers 返回当前有连接的节点
	Peers() []types.PeerID

	// ConnsToPeer 返回到指定节点的全部连接
	ConnsToPeer(peer types.PeerID) []Conn

	// SetAddrSource 设置按 PeerID 查找地址的来源（通常为 DHT 路由表）
	SetAddrSource(src AddrSource)

	// Close 关闭主机
	Close() error
}

// AddrSource 按 PeerID 查找拨号地址
type AddrSource interface {
	AddrsOf(peer types.PeerID) []string
}

// Direction 连接方向
type Direction int

const (
	// DirInbound 入站连接
	DirInbound Direction = iota
	// DirOutbound 出站连接
	DirOutbound
)

// String 返回方向字符串
func (d Direction) String() string {
	if d == DirOutbound {
		return "outbound"
	}
	return "inbound"
}

// Conn 定义一条已认证、已多路复用的连接
type Conn interface {
	// ID 返回进程内唯一的连接编号
	ID() uint64

	// LocalPeer 返回本地 PeerID
	LocalPeer() types.PeerID

	// RemotePeer 返回远端 PeerID（Noise 握手认证）
	RemotePeer() types.PeerID

	// RemoteAddr 返回远端地址（host:port）
	RemoteAddr() string

	// Direction 返回连接方向
	Direction() Direction

	// NewStream 在此连接上打开新流并协商协议
	NewStream(ctx context.Context, protocolID string) (Stream, error)

	// SetKeepAlive 设置某协议对该连接的保活意见
	//
	// 任一协议持有保活时，空闲策略不会关闭该连接。
	SetKeepAlive(protocolID string, keep bool)

	// Close 关闭连接
	Close() error

	// IsClosed 检查连接是否已关闭
	IsClosed() bool
}

// StreamHandler 定义流处理函数类型
type StreamHandler func(Stream)

// Stream 定义双向流接口
type Stream interface {
	io.Reader
	io.Writer
	io.Closer

	// Protocol 返回协商得到的协议
	Protocol() string

	// Conn 返回流所属连接
	Conn() Conn

	// SetDeadline 设置读写截止时间
	SetDeadline(t time.Time) error
}

// Notifiee 连接事件订阅者
//
// 回调在 swarm 的 goroutine 中同步执行，实现不得阻塞。
type Notifiee interface {
	Connected(c Conn)
	Disconnected(c Conn)
}

// NotifyBundle 以函数字段实现 Notifiee
type NotifyBundle struct {
	ConnectedF    func(Conn)
	DisconnectedF func(Conn)
}

// Connected 实现 Notifiee
func (nb *NotifyBundle) Connected(c Conn) {
	if nb.ConnectedF != nil {
		nb.ConnectedF(c)
	}
}

// Disconnected 实现 Notifiee
func (nb *NotifyBundle) Disconnected(c Conn) {
	if nb.DisconnectedF != nil {
		nb.DisconnectedF(c)
	}
}
