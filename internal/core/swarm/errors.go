package swarm

import "errors"

var (
	// ErrSwarmClosed Swarm 已关闭
	ErrSwarmClosed = errors.New("swarm: closed")

	// ErrNoAddresses 没有可用地址
	ErrNoAddresses = errors.New("swarm: no addresses")

	// ErrNoConnection 没有连接
	ErrNoConnection = errors.New("swarm: no connection to peer")

	// ErrDialToSelf 尝试拨号自己
	ErrDialToSelf = errors.New("swarm: dial to self attempted")

	// ErrConnClosed 连接已关闭
	ErrConnClosed = errors.New("swarm: connection closed")

	// ErrInvalidConfig 无效配置
	ErrInvalidConfig = errors.New("swarm: invalid config")
)
