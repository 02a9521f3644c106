package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dep2p/go-syncmesh/pkg/types"
)

// KnownPeer 启动时直接拨号的节点
type KnownPeer struct {
	PeerID string   `json:"peer_id"`
	Addrs  []string `json:"addrs"`
}

// DiscoveryConfig 发现与拨号配置
type DiscoveryConfig struct {
	// EnableMDNS 启用局域网 mDNS 发现
	EnableMDNS bool `json:"enable_mdns"`

	MDNS MDNSConfig `json:"mdns"`

	// DialTimeout 单次拨号超时
	DialTimeout Duration `json:"dial_timeout"`

	// DialRate 每秒最多发起的拨号数
	DialRate float64 `json:"dial_rate"`

	// DialBurst 拨号突发上限
	DialBurst int `json:"dial_burst"`

	// KnownPeers 启动时拨号的节点
	KnownPeers []KnownPeer `json:"known_peers,omitempty"`
}

// MDNSConfig mDNS 配置
type MDNSConfig struct {
	// ServiceName 服务名
	ServiceName string `json:"service_name"`

	// Domain 域
	Domain string `json:"domain"`

	// QueryInterval 查询间隔
	QueryInterval Duration `json:"query_interval"`

	// QueryTimeout 单次查询等待时间
	QueryTimeout Duration `json:"query_timeout"`
}

// DefaultDiscoveryConfig 默认发现配置
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		EnableMDNS: true,
		MDNS: MDNSConfig{
			ServiceName:   "_syncmesh._udp",
			Domain:        "local.",
			QueryInterval: Duration(10 * time.Second),
			QueryTimeout:  Duration(2 * time.Second),
		},
		DialTimeout: Duration(10 * time.Second),
		DialRate:    5,
		DialBurst:   8,
	}
}

// Validate 验证发现配置
func (c DiscoveryConfig) Validate() error {
	if c.DialTimeout <= 0 {
		return errors.New("dial_timeout must be positive")
	}
	if c.DialRate <= 0 || c.DialBurst <= 0 {
		return errors.New("dial_rate and dial_burst must be positive")
	}
	if c.EnableMDNS {
		if c.MDNS.ServiceName == "" || c.MDNS.Domain == "" {
			return errors.New("mdns service_name and domain required")
		}
		if c.MDNS.QueryTimeout <= 0 || c.MDNS.QueryInterval < c.MDNS.QueryTimeout {
			return errors.New("mdns query_interval must be >= query_timeout > 0")
		}
	}
	for i, kp := range c.KnownPeers {
		if _, err := types.ParsePeerID(kp.PeerID); err != nil {
			return fmt.Errorf("known_peers[%d]: %w", i, err)
		}
		if len(kp.Addrs) == 0 {
			return fmt.Errorf("known_peers[%d]: no addrs", i)
		}
	}
	return nil
}
