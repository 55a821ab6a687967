// Package protocolids 定义 dx 所有协议 ID 的注册表。
//
// 本包是协议 ID 的唯一来源。所有模块、测试与 CLI 在需要协议 ID 时
// 引用本包中的常量，不在其他位置定义字面量。
//
// 命名规范: /dx/{name}/{version}
//
// 连接层协议（Noise、yamux）在原始 TCP 连接上通过 multistream-select
// 协商；其余协议在每条 yamux 流上单独协商。
package protocolids
