// Package metadata 生成节点对外广告的元数据
//
// 每次调用都从当前配置重新生成，不缓存；配置不可用时回退到默认值，从不失败。
package metadata

import (
	"os"
	"sync/atomic"

	"github.com/dep2p/go-syncmesh/config"
	"github.com/dep2p/go-syncmesh/internal/util/logger"
	"github.com/dep2p/go-syncmesh/pkg/interfaces"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

var log = logger.Logger("core/metadata")

// DefaultName 主机名也无法获取时使用的名称
const DefaultName = "syncmesh"

// Provider 元数据提供者，并发安全
type Provider struct {
	version  string
	current  atomic.Pointer[config.NodeConfig]
	hostname func() (string, error)
	goos     func() types.OperatingSystem
}

var _ interfaces.MetadataProvider = (*Provider)(nil)

// NewProvider 创建提供者
//
// version 为构建版本，NodeConfig.Version 非空时覆盖它。
func NewProvider(version string, cfg config.NodeConfig) *Provider {
	p := &Provider{
		version:  version,
		hostname: os.Hostname,
		goos:     types.CurrentOS,
	}
	p.Update(cfg)
	return p
}

// Update 替换当前节点配置，之后的 Provide 立即反映新值
func (p *Provider) Update(cfg config.NodeConfig) {
	p.current.Store(&cfg)
}

// SetName 只修改显示名
func (p *Provider) SetName(name string) {
	cfg := p.Config()
	cfg.Name = name
	p.Update(cfg)
}

// Config 当前节点配置副本
func (p *Provider) Config() config.NodeConfig {
	if cfg := p.current.Load(); cfg != nil {
		return *cfg
	}
	return config.DefaultNodeConfig()
}

// Provide 生成元数据
func (p *Provider) Provide() (md types.PeerMetadata) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("生成元数据 panic，使用默认值", "panic", r)
			md = types.PeerMetadata{Name: DefaultName}
		}
	}()

	cfg := p.Config()

	name := cfg.Name
	if name == "" {
		if host, err := p.hostname(); err == nil && host != "" {
			name = host
		} else {
			name = DefaultName
		}
	}

	md = types.PeerMetadata{Name: name}
	if osName := p.goos(); osName != "" {
		md.OS = &osName
	}
	version := cfg.Version
	if version == "" {
		version = p.version
	}
	if version != "" {
		md.Version = &version
	}
	return md
}
