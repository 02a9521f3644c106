package broadcast

import (
	"time"

	"github.com/dep2p/go-syncmesh/config"
	"github.com/dep2p/go-syncmesh/internal/core/metrics"
	"github.com/dep2p/go-syncmesh/pkg/interfaces"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

// Config 广播器配置
type Config struct {
	// QueueSize 出站队列容量
	QueueSize int

	// Scoped 只发送给 library 成员
	Scoped bool

	// SendTimeout 单条操作扇出超时
	SendTimeout time.Duration

	// PanicOnInvariant 编码失败时 panic
	PanicOnInvariant bool

	signer  interfaces.Identity
	scope   Scope
	ingress <-chan types.Ingress
	metrics *metrics.Metrics
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	c := config.DefaultBroadcastConfig()
	return &Config{
		QueueSize:   c.QueueSize,
		Scoped:      c.Scoped,
		SendTimeout: c.SendTimeout.Std(),
	}
}

// Option 配置选项
type Option func(*Config)

// WithQueueSize 设置队列容量
func WithQueueSize(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.QueueSize = n
		}
	}
}

// WithScope 设置成员关系来源；未设置或 Scoped 关闭时发送给全部已连接节点
func WithScope(scope Scope) Option {
	return func(c *Config) {
		c.scope = scope
	}
}

// WithUnscoped 发送给全部已连接节点
func WithUnscoped() Option {
	return func(c *Config) {
		c.Scoped = false
	}
}

// WithSendTimeout 设置扇出超时
func WithSendTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.SendTimeout = d
	}
}

// WithPanicOnInvariant 编码失败时 panic
func WithPanicOnInvariant(enable bool) Option {
	return func(c *Config) {
		c.PanicOnInvariant = enable
	}
}

// WithSigner 以节点身份签名每条操作
func WithSigner(id interfaces.Identity) Option {
	return func(c *Config) {
		c.signer = id
	}
}

// WithIngress 从外部通道按序接收操作
func WithIngress(ch <-chan types.Ingress) Option {
	return func(c *Config) {
		c.ingress = ch
	}
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Config) {
		c.metrics = m
	}
}

// FromConfig 从节点配置构建选项
func FromConfig(cfg config.BroadcastConfig) []Option {
	opts := []Option{
		WithQueueSize(cfg.QueueSize),
		WithSendTimeout(cfg.SendTimeout.Std()),
		WithPanicOnInvariant(cfg.PanicOnInvariant),
	}
	if !cfg.Scoped {
		opts = append(opts, WithUnscoped())
	}
	return opts
}
