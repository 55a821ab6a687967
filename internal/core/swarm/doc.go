// Package swarm 实现连接群管理
//
// 每条 TCP 连接按以下顺序升级：
//
//	TCP → multistream(/noise) → Noise XX → multistream(/yamux/1.0.0) → yamux
//
// 之后每条 yamux 流再用 multistream-select 协商应用协议，并交给
// SetStreamHandler 注册的处理器。Swarm 同时实现 interfaces.Host。
//
// 空闲策略：IdleTimeout > 0 时，没有活动流、超过 IdleTimeout 未开流、
// 且没有任何协议持有保活的连接会被关闭。
package swarm
