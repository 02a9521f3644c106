package dispatcher

import (
	"time"

	"github.com/dep2p/go-syncmesh/config"
	"github.com/dep2p/go-syncmesh/internal/core/metrics"
)

// Config 分发器配置
type Config struct {
	// MaxConcurrent 同时处理的入站流上限
	MaxConcurrent int64

	// RequestTimeout 单个请求超时
	RequestTimeout time.Duration

	// MaxRetries 出站请求重试次数
	MaxRetries int

	// RetryDelay 重试间隔
	RetryDelay time.Duration

	// SeenCacheSize 已处理操作 ID 缓存容量
	SeenCacheSize int

	// RequireSignature 拒绝未签名或签名无效的操作
	RequireSignature bool

	// RequireMembership 拒绝非 library 成员签名的操作
	RequireMembership bool
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	d, s := config.DefaultDispatcherConfig(), config.DefaultSyncConfig()
	return &Config{
		MaxConcurrent:     d.MaxConcurrent,
		RequestTimeout:    d.RequestTimeout.Std(),
		MaxRetries:        d.MaxRetries,
		RetryDelay:        d.RetryDelay.Std(),
		SeenCacheSize:     d.SeenCacheSize,
		RequireSignature:  s.RequireSignature,
		RequireMembership: s.RequireMembership,
	}
}

// Option 配置选项
type Option func(*Config)

// WithMaxConcurrent 设置并发上限
func WithMaxConcurrent(n int64) Option {
	return func(c *Config) {
		c.MaxConcurrent = n
	}
}

// WithRequestTimeout 设置请求超时
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.RequestTimeout = d
	}
}

// WithRetry 设置出站重试策略
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

// WithSeenCacheSize 设置去重缓存容量
func WithSeenCacheSize(n int) Option {
	return func(c *Config) {
		c.SeenCacheSize = n
	}
}

// WithVerification 设置签名与成员校验
func WithVerification(requireSignature, requireMembership bool) Option {
	return func(c *Config) {
		c.RequireSignature = requireSignature
		c.RequireMembership = requireMembership
	}
}

// FromConfig 从节点配置构建选项
func FromConfig(d config.DispatcherConfig, s config.SyncConfig) []Option {
	return []Option{
		WithMaxConcurrent(d.MaxConcurrent),
		WithRequestTimeout(d.RequestTimeout.Std()),
		WithRetry(d.MaxRetries, d.RetryDelay.Std()),
		WithSeenCacheSize(d.SeenCacheSize),
		WithVerification(s.RequireSignature, s.RequireMembership),
	}
}

// ============================================================================
//                              依赖注入
// ============================================================================

// Deps 可选依赖
type Deps struct {
	// Membership 成员校验，RequireMembership 开启时使用
	Membership MembershipVerifier

	// Heartbeats 心跳记录
	Heartbeats HeartbeatRecorder

	// Metrics 指标
	Metrics *metrics.Metrics
}
