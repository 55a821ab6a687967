package mdns

import (
	"fmt"
	"time"

	"github.com/dep2p/go-dx/config"
)

const (
	// DefaultServiceTag 服务标签
	DefaultServiceTag = "_dx._tcp"

	// Domain mDNS 域
	Domain = "local."
)

// Config mDNS 配置
type Config struct {
	// ServiceTag 服务标签
	ServiceTag string

	// QueryInterval 查询间隔
	QueryInterval time.Duration

	// QueryTimeout 单次查询等待响应的时间
	QueryTimeout time.Duration

	// PeerTTL 未再次发现的节点多久后过期
	PeerTTL time.Duration

	// MaxPeers 缓存节点上限
	MaxPeers int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		ServiceTag:    DefaultServiceTag,
		QueryInterval: 10 * time.Second,
		QueryTimeout:  time.Second,
		PeerTTL:       2 * time.Minute,
		MaxPeers:      256,
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	if c.ServiceTag == "" {
		return fmt.Errorf("%w: service tag is empty", ErrInvalidConfig)
	}
	if c.QueryInterval <= 0 || c.QueryTimeout <= 0 || c.PeerTTL <= 0 {
		return fmt.Errorf("%w: durations must be positive", ErrInvalidConfig)
	}
	if c.QueryTimeout >= c.QueryInterval {
		return fmt.Errorf("%w: query timeout must be shorter than interval", ErrInvalidConfig)
	}
	if c.MaxPeers <= 0 {
		return fmt.Errorf("%w: max peers must be positive", ErrInvalidConfig)
	}
	return nil
}

// ConfigFromUnified 从统一配置创建 mDNS 配置
func ConfigFromUnified(cfg *config.Config) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	c.ServiceTag = cfg.Discovery.MDNS.ServiceTag
	c.QueryInterval = cfg.Discovery.MDNS.QueryInterval.Duration()
	c.PeerTTL = cfg.Discovery.MDNS.PeerTTL.Duration()
	if c.QueryTimeout >= c.QueryInterval {
		c.QueryTimeout = c.QueryInterval / 2
	}
	return c
}
