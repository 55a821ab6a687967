package dht

import "errors"

var (
	// ErrNilHost Host 为 nil
	ErrNilHost = errors.New("dht: host is nil")

	// ErrInvalidConfig 无效配置
	ErrInvalidConfig = errors.New("dht: invalid config")

	// ErrNoPeers 路由表为空
	ErrNoPeers = errors.New("dht: routing table is empty")

	// ErrMessageTooLarge 消息超出限制
	ErrMessageTooLarge = errors.New("dht: message too large")

	// ErrRateLimited 入站请求被限流
	ErrRateLimited = errors.New("dht: rate limited")

	// ErrClosed DHT 已关闭
	ErrClosed = errors.New("dht: closed")
)
