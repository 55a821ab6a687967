package config

import (
	"errors"
	"net"
	"time"
)

// SwarmConfig 传输与连接配置
//
// 地址均为 TCP "host:port" 形式。
type SwarmConfig struct {
	// ListenAddrs 监听地址
	ListenAddrs []string `json:"listen_addrs"`

	// DialTimeout 拨号（含握手）超时
	DialTimeout Duration `json:"dial_timeout"`

	// NegotiateTimeout 单条流协议协商超时
	NegotiateTimeout Duration `json:"negotiate_timeout"`

	// IdleTimeout 空闲连接关闭时间，0 表示不关闭
	IdleTimeout Duration `json:"idle_timeout"`
}

// DefaultSwarmConfig 返回默认传输配置
func DefaultSwarmConfig() SwarmConfig {
	return SwarmConfig{
		ListenAddrs:      []string{"0.0.0.0:0"},
		DialTimeout:      Duration(15 * time.Second),
		NegotiateTimeout: Duration(10 * time.Second),
		IdleTimeout:      Duration(60 * time.Second),
	}
}

// Validate 验证传输配置
func (c SwarmConfig) Validate() error {
	for _, addr := range c.ListenAddrs {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return errors.New("listen address must be host:port: " + addr)
		}
	}
	if c.DialTimeout <= 0 {
		return errors.New("dial_timeout must be positive")
	}
	if c.NegotiateTimeout <= 0 {
		return errors.New("negotiate_timeout must be positive")
	}
	if c.IdleTimeout < 0 {
		return errors.New("idle_timeout must not be negative")
	}
	return nil
}
