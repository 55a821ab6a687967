package protocolids

import "strings"

// Prefix 所有 dx 应用协议的前缀
const Prefix = "/dx/"

// ============================================================================
//                              应用协议
// ============================================================================

// Status 状态交换协议
//
// 一条流一次交换：响应方写出 20 字节负载并 flush，发起方读满 20 字节。
const Status = "/dx/status/0.1.0"

// Kad DHT FIND_NODE 协议
const Kad = "/dx/kad/0.1.0"

// ============================================================================
//                              连接层协议
// ============================================================================

// Noise Noise XX 安全握手
const Noise = "/noise"

// Yamux yamux 多路复用
const Yamux = "/yamux/1.0.0"

// IsApp 检查协议是否为 dx 应用协议
func IsApp(proto string) bool {
	return strings.HasPrefix(proto, Prefix)
}
