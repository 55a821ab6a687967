package behaviour

import (
	"fmt"
	"time"

	"github.com/dep2p/go-dx/config"
	"github.com/dep2p/go-dx/pkg/types"
)

// Config 行为层配置
type Config struct {
	// RecordStatus 收到的状态写入注册表
	RecordStatus bool

	// RetryLimit 同一 key 连续空结果的重查上限，0 表示不限
	RetryLimit int

	// RetryDelay 重查前等待，0 表示立即重查
	RetryDelay time.Duration

	// BootstrapPeers 启动时作为路由提示加入 DHT 的节点
	BootstrapPeers []types.PeerAddr
}

// DefaultConfig 返回默认配置：不限次、立即重查
func DefaultConfig() Config {
	return Config{}
}

// Validate 验证配置
func (c Config) Validate() error {
	if c.RetryLimit < 0 {
		return fmt.Errorf("%w: retry limit must not be negative", ErrInvalidConfig)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: retry delay must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ConfigFromUnified 从统一配置创建行为层配置
//
// 无法解析的引导节点在统一配置校验时已被拒绝，这里直接跳过。
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	c := Config{
		RecordStatus: cfg.Behaviour.RecordStatus,
		RetryLimit:   cfg.Behaviour.RetryLimit,
		RetryDelay:   cfg.Behaviour.RetryDelay.Duration(),
	}
	for _, kp := range cfg.Discovery.DHT.BootstrapPeers {
		id, err := types.ParsePeerID(kp.PeerID)
		if err != nil {
			continue
		}
		for _, a := range kp.Addrs {
			c.BootstrapPeers = append(c.BootstrapPeers, types.PeerAddr{Peer: id, Addr: a})
		}
	}
	return c
}
