// Package config 提供 syncmesh 的统一配置
//
// 主 Config 嵌入各组件子配置，每个子配置在独立文件中定义，
// 各自提供 DefaultXxxConfig() 与 Validate()。
//
//	cfg := config.NewConfig()
//	cfg.Node.Name = "laptop"
//	cfg.Liveness.Interval = config.Duration(5 * time.Second)
//
//	cfg, err := config.LoadFile("syncmesh.json")
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrNilConfig 配置为空
var ErrNilConfig = errors.New("config: nil config")

// Config syncmesh 完整配置
type Config struct {
	Node       NodeConfig       `json:"node"`
	Identity   IdentityConfig   `json:"identity"`
	Transport  TransportConfig  `json:"transport"`
	Discovery  DiscoveryConfig  `json:"discovery"`
	Wire       WireConfig       `json:"wire"`
	Broadcast  BroadcastConfig  `json:"broadcast"`
	Dispatcher DispatcherConfig `json:"dispatcher"`
	Sync       SyncConfig       `json:"sync"`
	Liveness   LivenessConfig   `json:"liveness"`
	Metrics    MetricsConfig    `json:"metrics"`
}

// NewConfig 返回全部使用默认值的配置
func NewConfig() *Config {
	return &Config{
		Node:       DefaultNodeConfig(),
		Identity:   DefaultIdentityConfig(),
		Transport:  DefaultTransportConfig(),
		Discovery:  DefaultDiscoveryConfig(),
		Wire:       DefaultWireConfig(),
		Broadcast:  DefaultBroadcastConfig(),
		Dispatcher: DefaultDispatcherConfig(),
		Sync:       DefaultSyncConfig(),
		Liveness:   DefaultLivenessConfig(),
		Metrics:    DefaultMetricsConfig(),
	}
}

// Validate 逐个验证子配置，返回第一个错误
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	checks := []struct {
		name string
		fn   func() error
	}{
		{"node", c.Node.Validate},
		{"identity", c.Identity.Validate},
		{"transport", c.Transport.Validate},
		{"discovery", c.Discovery.Validate},
		{"wire", c.Wire.Validate},
		{"broadcast", c.Broadcast.Validate},
		{"dispatcher", c.Dispatcher.Validate},
		{"sync", c.Sync.Validate},
		{"liveness", c.Liveness.Validate},
		{"metrics", c.Metrics.Validate},
	}
	for _, check := range checks {
		if err := check.fn(); err != nil {
			return fmt.Errorf("config.%s: %w", check.name, err)
		}
	}
	return nil
}

// Clone 深拷贝
func (c *Config) Clone() *Config {
	out := *c
	out.Transport.ListenAddrs = append([]string(nil), c.Transport.ListenAddrs...)
	out.Discovery.KnownPeers = make([]KnownPeer, len(c.Discovery.KnownPeers))
	for i, kp := range c.Discovery.KnownPeers {
		kp.Addrs = append([]string(nil), kp.Addrs...)
		out.Discovery.KnownPeers[i] = kp
	}
	return &out
}

// FromJSON 在默认配置之上解析 JSON，缺省字段保持默认值
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

// ToJSON 序列化为缩进 JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// LoadFile 从文件加载
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return FromJSON(data)
}

// SaveFile 写入文件
func (c *Config) SaveFile(path string) error {
	data, err := c.ToJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
