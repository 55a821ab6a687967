package dht

import (
	"fmt"
	"time"

	"github.com/dep2p/go-dx/config"
)

// Config DHT 配置
type Config struct {
	// BucketSize K 桶大小，也是一次查找返回的节点数上限
	BucketSize int

	// Alpha 每轮并发查询数
	Alpha int

	// QueryTimeout 单次 FIND_NODE 超时
	QueryTimeout time.Duration

	// MaxRounds 一次查找的最大轮数
	MaxRounds int

	// InboundRate 入站请求速率（每秒）
	InboundRate float64

	// InboundBurst 入站请求突发上限
	InboundBurst int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BucketSize:   20,
		Alpha:        3,
		QueryTimeout: 10 * time.Second,
		MaxRounds:    8,
		InboundRate:  50,
		InboundBurst: 100,
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	if c.BucketSize <= 0 || c.BucketSize > maxPeersPerResponse {
		return fmt.Errorf("%w: bucket size must be in [1, %d]", ErrInvalidConfig, maxPeersPerResponse)
	}
	if c.Alpha <= 0 {
		return fmt.Errorf("%w: alpha must be positive", ErrInvalidConfig)
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("%w: query timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxRounds <= 0 {
		return fmt.Errorf("%w: max rounds must be positive", ErrInvalidConfig)
	}
	if c.InboundRate <= 0 || c.InboundBurst <= 0 {
		return fmt.Errorf("%w: inbound rate", ErrInvalidConfig)
	}
	return nil
}

// ConfigFromUnified 从统一配置创建 DHT 配置
func ConfigFromUnified(cfg *config.Config) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	c.BucketSize = cfg.Discovery.DHT.BucketSize
	c.Alpha = cfg.Discovery.DHT.Alpha
	c.QueryTimeout = cfg.Discovery.DHT.QueryTimeout.Duration()
	c.MaxRounds = cfg.Discovery.DHT.MaxRounds
	return c
}
