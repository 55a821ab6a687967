package swarm

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/hashicorp/yamux"

	"github.com/dep2p/go-dx/config"
)

// Config Swarm 配置
type Config struct {
	// ListenAddrs 监听地址（host:port）
	ListenAddrs []string

	// DialTimeout 拨号 + 握手超时
	DialTimeout time.Duration

	// NegotiateTimeout 单条流协议协商超时
	NegotiateTimeout time.Duration

	// IdleTimeout 空闲连接关闭时间，0 表示不关闭
	IdleTimeout time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		ListenAddrs:      []string{"0.0.0.0:0"},
		DialTimeout:      15 * time.Second,
		NegotiateTimeout: 10 * time.Second,
		IdleTimeout:      60 * time.Second,
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	for _, a := range c.ListenAddrs {
		if _, _, err := net.SplitHostPort(a); err != nil {
			return fmt.Errorf("%w: listen address %q", ErrInvalidConfig, a)
		}
	}
	if c.DialTimeout <= 0 || c.NegotiateTimeout <= 0 || c.IdleTimeout < 0 {
		return fmt.Errorf("%w: timeouts", ErrInvalidConfig)
	}
	return nil
}

// ConfigFromUnified 从统一配置创建 Swarm 配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return Config{
		ListenAddrs:      append([]string(nil), cfg.Swarm.ListenAddrs...),
		DialTimeout:      cfg.Swarm.DialTimeout.Duration(),
		NegotiateTimeout: cfg.Swarm.NegotiateTimeout.Duration(),
		IdleTimeout:      cfg.Swarm.IdleTimeout.Duration(),
	}
}

// yamuxConfig 返回 yamux 配置
func yamuxConfig() *yamux.Config {
	cfg := yamux.DefaultConfig()
	cfg.AcceptBacklog = 256
	cfg.EnableKeepAlive = true
	cfg.KeepAliveInterval = 30 * time.Second
	cfg.ConnectionWriteTimeout = 10 * time.Second
	cfg.MaxStreamWindowSize = 256 * 1024
	cfg.LogOutput = io.Discard
	return cfg
}
