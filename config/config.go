// Package config 提供统一的配置管理
//
// 主 Config 结构体嵌入所有子配置，每个子配置在独立文件中定义，
// 支持从 JSON 加载和保存。
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.Status.KeepAlive = true
//
//	cfg, err := config.LoadFile("dx.json")
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrNilConfig 配置为空
var ErrNilConfig = errors.New("config: config is nil")

// Config 是 dx 节点的完整配置结构
//
//   - Identity: 身份与信任目录
//   - Swarm: 传输与连接
//   - Status: 状态交换协议
//   - Discovery: DHT / mDNS
//   - Behaviour: 行为层
//   - Metrics: 指标
type Config struct {
	Identity  IdentityConfig  `json:"identity"`
	Swarm     SwarmConfig     `json:"swarm"`
	Status    StatusConfig    `json:"status"`
	Discovery DiscoveryConfig `json:"discovery"`
	Behaviour BehaviourConfig `json:"behaviour"`
	Metrics   MetricsConfig   `json:"metrics"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Identity:  DefaultIdentityConfig(),
		Swarm:     DefaultSwarmConfig(),
		Status:    DefaultStatusConfig(),
		Discovery: DefaultDiscoveryConfig(),
		Behaviour: DefaultBehaviourConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if err := c.Identity.Validate(); err != nil {
		return fmt.Errorf("identity: %w", err)
	}
	if err := c.Swarm.Validate(); err != nil {
		return fmt.Errorf("swarm: %w", err)
	}
	if err := c.Status.Validate(); err != nil {
		return fmt.Errorf("status: %w", err)
	}
	if err := c.Discovery.Validate(); err != nil {
		return fmt.Errorf("discovery: %w", err)
	}
	if err := c.Behaviour.Validate(); err != nil {
		return fmt.Errorf("behaviour: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}

// FromJSON 从 JSON 解析配置
//
// 未出现的字段保留默认值。
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse json: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ToJSON 序列化配置
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// LoadFile 从文件加载配置
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return FromJSON(data)
}
