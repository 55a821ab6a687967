// Package behaviour 组合 DHT、本地发现与状态协议事件
//
// Behaviour 持有节点注册表（Registry），把三类事件源汇入同一个
// dispatch 函数：
//
//   - DHT：引导结果只记录日志；最近节点结果更新已知节点的路由，
//     空结果对同一 key 重新查询
//   - 本地发现：发现的 (节点, 地址) 作为路由提示交给 DHT；过期只记录日志
//   - 状态协议：记录日志，可选写入注册表
//
// 注册表只增不删。
package behaviour
