package interfaces

import (
	"github.com/dep2p/go-dx/pkg/types"
)

// DHT 定义行为层使用的 DHT 能力
//
// 所有查询都是异步的：方法立即返回，结果稍后经 Events() 投递。
type DHT interface {
	// Bootstrap 发起引导，结果为 *types.BootstrapResult
	Bootstrap()

	// GetClosestPeers 查询离 key 最近的节点，结果为 *types.ClosestPeersResult
	GetClosestPeers(key []byte)

	// AddAddress 把 (节点, 地址) 作为路由提示加入路由表
	AddAddress(peer types.PeerID, addr string)

	// Events 返回查询结果通道
	Events() <-chan types.DHTEvent
}

// LocalDiscovery 定义本地发现（mDNS）事件源
type LocalDiscovery interface {
	// Events 返回发现事件通道
	Events() <-chan types.DiscoveryEvent
}
