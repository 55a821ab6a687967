package status

import (
	"fmt"
	"time"

	"github.com/dep2p/go-dx/config"
	"github.com/dep2p/go-dx/pkg/types"
)

// Config 状态协议配置
//
// Handler 在构造时复制一份，之后不可变。
type Config struct {
	// Payload 本地对外宣告的状态
	Payload types.Payload

	// Timeout 单次出站请求超时
	Timeout time.Duration

	// Interval 一次成功后到下一次请求的间隔
	Interval time.Duration

	// MaxFailures 连续失败达到此值时关闭连接，至少为 1
	MaxFailures uint32

	// KeepAlive 是否要求保持连接
	KeepAlive bool
}

// Option 定义配置选项函数
type Option func(*Config)

// DefaultConfig 返回默认配置
//
//   - 健康连接每 15 秒请求一次
//   - 每次请求须在 20 秒内得到响应
//   - 一次失败即关闭连接
//   - 协议本身不要求保持连接
func DefaultConfig(payload types.Payload) Config {
	return Config{
		Payload:     payload,
		Timeout:     20 * time.Second,
		Interval:    15 * time.Second,
		MaxFailures: 1,
		KeepAlive:   false,
	}
}

// NewConfig 以默认值为基础应用选项
func NewConfig(payload types.Payload, opts ...Option) (Config, error) {
	cfg := DefaultConfig(payload)
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg, cfg.Validate()
}

// WithTimeout 设置请求超时
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithInterval 设置请求间隔
func WithInterval(d time.Duration) Option {
	return func(c *Config) { c.Interval = d }
}

// WithMaxFailures 设置最大连续失败次数
func WithMaxFailures(n uint32) Option {
	return func(c *Config) { c.MaxFailures = n }
}

// WithKeepAlive 设置保活
func WithKeepAlive(b bool) Option {
	return func(c *Config) { c.KeepAlive = b }
}

// Validate 验证配置
func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if c.MaxFailures == 0 {
		return fmt.Errorf("%w: max failures must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// ConfigFromUnified 从统一配置创建状态协议配置
func ConfigFromUnified(cfg *config.Config, payload types.Payload) Config {
	if cfg == nil {
		return DefaultConfig(payload)
	}
	return Config{
		Payload:     payload,
		Timeout:     cfg.Status.Timeout.Duration(),
		Interval:    cfg.Status.Interval.Duration(),
		MaxFailures: cfg.Status.MaxFailures,
		KeepAlive:   cfg.Status.KeepAlive,
	}
}
