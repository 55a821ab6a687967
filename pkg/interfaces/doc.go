// Package interfaces 定义 dx 公共接口
//
// 协议层（status）与行为层（behaviour）只依赖本包中的接口，
// 不直接依赖 swarm / dht / mdns 的具体实现，便于在测试中替换。
package interfaces
