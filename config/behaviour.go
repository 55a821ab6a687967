package config

import (
	"errors"
	"time"
)

// BehaviourConfig 行为层配置
type BehaviourConfig struct {
	// RecordStatus 收到状态时写入注册表
	RecordStatus bool `json:"record_status"`

	// RetryLimit 最近节点查询返回空时的重查上限，0 表示不限
	RetryLimit int `json:"retry_limit"`

	// RetryDelay 重查前的等待时间，0 表示立即
	RetryDelay Duration `json:"retry_delay"`
}

// DefaultBehaviourConfig 返回默认行为层配置
func DefaultBehaviourConfig() BehaviourConfig {
	return BehaviourConfig{
		RecordStatus: false,
		RetryLimit:   0,
		RetryDelay:   Duration(5 * time.Second),
	}
}

// Validate 验证行为层配置
func (c BehaviourConfig) Validate() error {
	if c.RetryLimit < 0 {
		return errors.New("retry_limit must not be negative")
	}
	if c.RetryDelay < 0 {
		return errors.New("retry_delay must not be negative")
	}
	return nil
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// Enabled 是否采集指标
	Enabled bool `json:"enabled"`

	// ListenAddr /metrics HTTP 监听地址，空表示不对外暴露
	ListenAddr string `json:"listen_addr,omitempty"`
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{Enabled: true}
}

// Validate 验证指标配置
func (c MetricsConfig) Validate() error {
	if c.ListenAddr != "" && !c.Enabled {
		return errors.New("listen_addr requires enabled")
	}
	return nil
}
