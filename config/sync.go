package config

import (
	"errors"
	"time"
)

// WireConfig 线路编码配置
type WireConfig struct {
	// CompressThreshold 超过该大小的消息体使用 zstd 压缩，0 表示不压缩
	CompressThreshold int `json:"compress_threshold"`

	// MaxMessageSize 单条消息（含解压后）最大字节数
	MaxMessageSize int `json:"max_message_size"`
}

// DefaultWireConfig 默认编码配置
func DefaultWireConfig() WireConfig {
	return WireConfig{
		CompressThreshold: 4 << 10,
		MaxMessageSize:    4 << 20,
	}
}

// Validate 验证编码配置
func (c WireConfig) Validate() error {
	if c.CompressThreshold < 0 {
		return errors.New("compress_threshold must not be negative")
	}
	if c.MaxMessageSize <= 0 {
		return errors.New("max_message_size must be positive")
	}
	return nil
}

// BroadcastConfig 同步广播器配置
type BroadcastConfig struct {
	// QueueSize 出站操作队列容量；队列满时生产者阻塞
	QueueSize int `json:"queue_size"`

	// Scoped 只向持有该 library 的节点发送
	Scoped bool `json:"scoped"`

	// SendTimeout 单条操作扇出的超时
	SendTimeout Duration `json:"send_timeout"`

	// PanicOnInvariant 编码失败时 panic，仅用于测试和调试构建
	PanicOnInvariant bool `json:"panic_on_invariant,omitempty"`
}

// DefaultBroadcastConfig 默认广播配置
func DefaultBroadcastConfig() BroadcastConfig {
	return BroadcastConfig{
		QueueSize:   1024,
		Scoped:      true,
		SendTimeout: Duration(5 * time.Second),
	}
}

// Validate 验证广播配置
func (c BroadcastConfig) Validate() error {
	if c.QueueSize <= 0 {
		return errors.New("queue_size must be positive")
	}
	if c.SendTimeout <= 0 {
		return errors.New("send_timeout must be positive")
	}
	return nil
}

// DispatcherConfig 请求分发器配置
type DispatcherConfig struct {
	// MaxConcurrent 同时处理的入站流上限
	MaxConcurrent int64 `json:"max_concurrent"`

	// RequestTimeout 单个请求（含处理）超时
	RequestTimeout Duration `json:"request_timeout"`

	// MaxRetries 出站请求遇到传输错误时的重试次数
	MaxRetries int `json:"max_retries"`

	// RetryDelay 重试间隔
	RetryDelay Duration `json:"retry_delay"`

	// SeenCacheSize 已处理操作ID缓存容量
	SeenCacheSize int `json:"seen_cache_size"`
}

// DefaultDispatcherConfig 默认分发器配置
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		MaxConcurrent:  64,
		RequestTimeout: Duration(30 * time.Second),
		MaxRetries:     2,
		RetryDelay:     Duration(200 * time.Millisecond),
		SeenCacheSize:  4096,
	}
}

// Validate 验证分发器配置
func (c DispatcherConfig) Validate() error {
	if c.MaxConcurrent <= 0 {
		return errors.New("max_concurrent must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	if c.MaxRetries < 0 || c.RetryDelay < 0 {
		return errors.New("max_retries and retry_delay must not be negative")
	}
	if c.SeenCacheSize <= 0 {
		return errors.New("seen_cache_size must be positive")
	}
	return nil
}

// SyncConfig 操作接收侧的访问控制
type SyncConfig struct {
	// RequireSignature 拒绝未签名或签名无效的操作
	RequireSignature bool `json:"require_signature"`

	// RequireMembership 拒绝来自未知 library 成员的操作
	RequireMembership bool `json:"require_membership"`

	// MembershipRefresh 成员表刷新间隔
	MembershipRefresh Duration `json:"membership_refresh"`
}

// DefaultSyncConfig 默认同步配置
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		RequireSignature:  true,
		RequireMembership: true,
		MembershipRefresh: Duration(30 * time.Second),
	}
}

// Validate 验证同步配置
func (c SyncConfig) Validate() error {
	if c.MembershipRefresh <= 0 {
		return errors.New("membership_refresh must be positive")
	}
	if c.RequireMembership && !c.RequireSignature {
		return errors.New("require_membership needs require_signature")
	}
	return nil
}

// LivenessConfig 心跳配置
type LivenessConfig struct {
	Enable bool `json:"enable"`

	// Grace 启动后首次心跳前的等待
	Grace Duration `json:"grace"`

	// Interval 心跳间隔
	Interval Duration `json:"interval"`

	// MaxBackoff 连续失败时等待时间的上限
	MaxBackoff Duration `json:"max_backoff"`
}

// DefaultLivenessConfig 默认心跳配置
func DefaultLivenessConfig() LivenessConfig {
	return LivenessConfig{
		Enable:     true,
		Grace:      Duration(500 * time.Millisecond),
		Interval:   Duration(3 * time.Second),
		MaxBackoff: Duration(30 * time.Second),
	}
}

// Validate 验证心跳配置
func (c LivenessConfig) Validate() error {
	if !c.Enable {
		return nil
	}
	if c.Grace < 0 || c.Interval <= 0 {
		return errors.New("grace must not be negative and interval must be positive")
	}
	if c.MaxBackoff < c.Interval {
		return errors.New("max_backoff must be >= interval")
	}
	return nil
}
