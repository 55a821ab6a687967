package dx

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-dx/config"
	"github.com/dep2p/go-dx/internal/core/identity"
	"github.com/dep2p/go-dx/pkg/types"
)

// Option 用户配置选项函数
type Option func(*nodeConfig) error

// nodeConfig 内部选项结构
type nodeConfig struct {
	// config 统一配置
	config *config.Config

	// identity 本地身份，nil 时生成临时身份
	identity *identity.Identity

	// payload 状态负载，nil 时随机生成
	payload *types.Payload

	// fxOptions 额外的 Fx 选项（测试注入）
	fxOptions []fx.Option
}

func newNodeConfig() *nodeConfig {
	return &nodeConfig{config: config.NewConfig()}
}

// WithConfig 使用完整的统一配置
//
// 之后的选项会在此配置上继续覆盖。
func WithConfig(cfg *config.Config) Option {
	return func(c *nodeConfig) error {
		if cfg == nil {
			return config.ErrNilConfig
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		cp := *cfg
		c.config = &cp
		return nil
	}
}

// WithConfigFile 从 JSON 文件加载统一配置
func WithConfigFile(path string) Option {
	return func(c *nodeConfig) error {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		c.config = cfg
		return nil
	}
}

// WithIdentity 设置本地身份
func WithIdentity(id *identity.Identity) Option {
	return func(c *nodeConfig) error {
		if id == nil {
			return errors.New("identity is nil")
		}
		if !id.HasPrivateKey() {
			return ErrNoPrivateKey
		}
		c.identity = id
		return nil
	}
}

// WithPayload 设置本节点对外宣告的状态负载
func WithPayload(p types.Payload) Option {
	return func(c *nodeConfig) error {
		c.payload = &p
		return nil
	}
}

// WithListenAddrs 设置监听地址（host:port）
func WithListenAddrs(addrs ...string) Option {
	return func(c *nodeConfig) error {
		c.config.Swarm.ListenAddrs = append([]string(nil), addrs...)
		return c.config.Swarm.Validate()
	}
}

// WithKeepAlive 设置状态协议是否要求保持连接
func WithKeepAlive(keep bool) Option {
	return func(c *nodeConfig) error {
		c.config.Status.KeepAlive = keep
		return nil
	}
}

// WithStatusTiming 设置状态协议的超时、间隔与失败上限
func WithStatusTiming(timeout, interval time.Duration, maxFailures uint32) Option {
	return func(c *nodeConfig) error {
		c.config.Status.Timeout = config.Duration(timeout)
		c.config.Status.Interval = config.Duration(interval)
		c.config.Status.MaxFailures = maxFailures
		if err := c.config.Status.Validate(); err != nil {
			return fmt.Errorf("status: %w", err)
		}
		return nil
	}
}

// WithMDNS 启用或关闭 mDNS 本地发现
func WithMDNS(enable bool) Option {
	return func(c *nodeConfig) error {
		c.config.Discovery.EnableMDNS = enable
		return nil
	}
}

// WithBootstrapPeers 追加 DHT 引导节点
func WithBootstrapPeers(peers ...config.KnownPeer) Option {
	return func(c *nodeConfig) error {
		for _, p := range peers {
			if err := p.Validate(); err != nil {
				return err
			}
		}
		c.config.Discovery.DHT.BootstrapPeers = append(c.config.Discovery.DHT.BootstrapPeers, peers...)
		return nil
	}
}

// WithMetricsAddr 开启指标并在 addr 上暴露 /metrics
func WithMetricsAddr(addr string) Option {
	return func(c *nodeConfig) error {
		c.config.Metrics.Enabled = true
		c.config.Metrics.ListenAddr = addr
		return nil
	}
}

// WithFxOptions 追加 Fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(c *nodeConfig) error {
		c.fxOptions = append(c.fxOptions, opts...)
		return nil
	}
}
