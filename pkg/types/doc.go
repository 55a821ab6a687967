// Package types 定义 dx 的基础类型
//
// 这是整个系统的最底层包，不依赖任何其他 dx 内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据：
//
//   - PeerID: 节点标识（Ed25519 公钥的 SHA-256，Base58 文本形式）
//   - Payload: 20 字节状态负载
//   - PeerAddr: (节点, 地址) 对
//   - DHTEvent / DiscoveryEvent: 发现层向上投递的事件
package types
