// Package dht 提供 Kademlia 风格的节点路由
//
// 只实现 FIND_NODE：XOR 距离的 K-桶路由表，加上 alpha 并发的迭代查找。
// 所有查询异步执行，结果经 Events() 投递（types.BootstrapResult、
// types.ClosestPeersResult）。
//
// 线路格式（/dx/kad/0.1.0，每条流一次往返）：
//
//	请求：uvarint(len(key)) key
//	响应：uvarint(count) { 32 字节 PeerID, uvarint(n) { uvarint(len) addr } }
//
// DHT 同时实现 interfaces.AddrSource，swarm 据此按 PeerID 拨号。
package dht
