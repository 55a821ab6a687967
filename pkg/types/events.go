package types

// ============================================================================
//                              DHT 事件
// ============================================================================

// DHTEvent DHT 异步查询结果
//
// 具体类型：*BootstrapResult、*ClosestPeersResult。
type DHTEvent interface {
	dhtEvent()
}

// BootstrapResult 引导完成
type BootstrapResult struct {
	// Peers 引导结束时路由表中的节点数
	Peers int
	Err   error
}

// ClosestPeersResult 最近节点查询结果
type ClosestPeersResult struct {
	// Key 查询键（原样返回）
	Key []byte
	// Peers 离 Key 最近的节点，可能为空
	Peers []PeerID
	Err   error
}

func (*BootstrapResult) dhtEvent()    {}
func (*ClosestPeersResult) dhtEvent() {}

// ============================================================================
//                              本地发现事件
// ============================================================================

// DiscoveryEvent 本地发现（mDNS）事件
//
// 具体类型：*PeersDiscovered、*PeersExpired。
type DiscoveryEvent interface {
	discoveryEvent()
}

// PeersDiscovered 发现新的 (节点, 地址) 对
type PeersDiscovered struct {
	Peers []PeerAddr
}

// PeersExpired (节点, 地址) 对过期
type PeersExpired struct {
	Peers []PeerAddr
}

func (*PeersDiscovered) discoveryEvent() {}
func (*PeersExpired) discoveryEvent()    {}
