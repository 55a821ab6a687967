// Package status 实现 /dx/status/0.1.0 状态交换协议
//
// 协议：
//
//   - 发起方为每次交换打开一条新流，不发送任何请求体
//   - 响应方写出 20 字节负载并 flush，然后关闭流
//   - 发起方读满 20 字节
//
// 每条连接由一个 Handler（纯状态机）与一个 driver goroutine 组成：
// Handler 决定何时发请求、何时放弃、连续失败多少次后关闭连接；
// driver 负责计时器、实际 I/O 与事件投递。
//
// Handler 状态：
//
//	Idle ──deadline 到期──▶ Outstanding ──结果 / 错误 / 超时──▶ Idle
//
// 同一时刻最多一个出站请求在途。第 N 次（N = MaxFailures）连续失败时
// Poll 返回 *ThresholdError，driver 随即关闭连接。任何 Received 成功都会
// 清零失败计数。
package status
