// Package mdns 在局域网内广播并发现节点
//
// 服务实例 dx-<短ID>，TXT 记录：
//
//	id=<Base58 PeerID>
//	addrs=<host:port>,<host:port>...   （可出现多条，每条不超过 255 字节）
//
// 查询周期性执行。首次发现或地址变化时投递 types.PeersDiscovered；
// 超过 PeerTTL 未再次发现的节点被缓存淘汰，投递 types.PeersExpired。
package mdns
