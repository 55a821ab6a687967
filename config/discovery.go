package config

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/dep2p/go-dx/pkg/types"
)

// KnownPeer 已知节点配置
//
// 作为 DHT 引导节点，启动时加入路由表并尝试连接。
type KnownPeer struct {
	// PeerID 目标节点的 Base58 PeerID
	PeerID string `json:"peer_id"`

	// Addrs 目标节点的地址列表（host:port）
	Addrs []string `json:"addrs"`
}

// Validate 验证已知节点
func (p KnownPeer) Validate() error {
	if _, err := types.ParsePeerID(p.PeerID); err != nil {
		return fmt.Errorf("bootstrap peer %q: %w", p.PeerID, err)
	}
	if len(p.Addrs) == 0 {
		return fmt.Errorf("bootstrap peer %q has no addresses", p.PeerID)
	}
	for _, a := range p.Addrs {
		if _, _, err := net.SplitHostPort(a); err != nil {
			return fmt.Errorf("bootstrap peer %q: bad address %q", p.PeerID, a)
		}
	}
	return nil
}

// DiscoveryConfig 节点发现配置
type DiscoveryConfig struct {
	// EnableMDNS 是否启用 mDNS
	EnableMDNS bool `json:"enable_mdns"`

	// DHT DHT 配置
	DHT DHTConfig `json:"dht"`

	// MDNS mDNS 配置
	MDNS MDNSConfig `json:"mdns"`
}

// DHTConfig DHT 配置
type DHTConfig struct {
	// BucketSize K-桶大小
	BucketSize int `json:"bucket_size"`

	// Alpha 并发查询参数
	Alpha int `json:"alpha"`

	// QueryTimeout 单次 FIND_NODE 超时
	QueryTimeout Duration `json:"query_timeout"`

	// MaxRounds 一次查找的最大迭代轮数
	MaxRounds int `json:"max_rounds"`

	// BootstrapPeers 引导节点
	BootstrapPeers []KnownPeer `json:"bootstrap_peers,omitempty"`
}

// MDNSConfig mDNS 配置
type MDNSConfig struct {
	// ServiceTag 服务标签
	ServiceTag string `json:"service_tag"`

	// QueryInterval 查询间隔
	QueryInterval Duration `json:"query_interval"`

	// PeerTTL 未再次发现的节点多久后过期
	PeerTTL Duration `json:"peer_ttl"`
}

// DefaultDiscoveryConfig 返回默认发现配置
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		EnableMDNS: true,
		DHT: DHTConfig{
			BucketSize:   20,
			Alpha:        3,
			QueryTimeout: Duration(10 * time.Second),
			MaxRounds:    8,
		},
		MDNS: MDNSConfig{
			ServiceTag:    "_dx._tcp",
			QueryInterval: Duration(10 * time.Second),
			PeerTTL:       Duration(2 * time.Minute),
		},
	}
}

// Validate 验证发现配置
func (c DiscoveryConfig) Validate() error {
	if c.DHT.BucketSize <= 0 {
		return errors.New("dht.bucket_size must be positive")
	}
	if c.DHT.Alpha <= 0 {
		return errors.New("dht.alpha must be positive")
	}
	if c.DHT.QueryTimeout <= 0 {
		return errors.New("dht.query_timeout must be positive")
	}
	if c.DHT.MaxRounds <= 0 {
		return errors.New("dht.max_rounds must be positive")
	}
	for _, p := range c.DHT.BootstrapPeers {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	if c.EnableMDNS {
		if c.MDNS.ServiceTag == "" {
			return errors.New("mdns.service_tag is required")
		}
		if c.MDNS.QueryInterval <= 0 {
			return errors.New("mdns.query_interval must be positive")
		}
		if c.MDNS.PeerTTL <= 0 {
			return errors.New("mdns.peer_ttl must be positive")
		}
	}
	return nil
}
