package config

import (
	"errors"
	"time"
)

// StatusConfig 状态交换协议配置
type StatusConfig struct {
	// Timeout 单次请求超时
	Timeout Duration `json:"timeout"`

	// Interval 成功后到下一次请求的间隔
	Interval Duration `json:"interval"`

	// MaxFailures 连续失败达到此值时关闭连接，至少为 1
	MaxFailures uint32 `json:"max_failures"`

	// KeepAlive 是否要求保持连接
	KeepAlive bool `json:"keep_alive"`
}

// DefaultStatusConfig 返回默认状态协议配置
func DefaultStatusConfig() StatusConfig {
	return StatusConfig{
		Timeout:     Duration(20 * time.Second),
		Interval:    Duration(15 * time.Second),
		MaxFailures: 1,
		KeepAlive:   false,
	}
}

// Validate 验证状态协议配置
func (c StatusConfig) Validate() error {
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.Interval <= 0 {
		return errors.New("interval must be positive")
	}
	if c.MaxFailures == 0 {
		return errors.New("max_failures must be at least 1")
	}
	return nil
}
