package liveness

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-syncmesh/config"
	"github.com/dep2p/go-syncmesh/internal/core/metrics"
)

// Option 定义配置选项函数
type Option func(*Config)

// Config 探测器配置
type Config struct {
	// Grace 启动后首次心跳前的等待
	Grace time.Duration

	// Interval 心跳间隔
	Interval time.Duration

	// MaxBackoff 连续失败时等待时间上限
	MaxBackoff time.Duration

	clock   clock.Clock
	metrics *metrics.Metrics
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	c := config.DefaultLivenessConfig()
	return &Config{
		Grace:      c.Grace.Std(),
		Interval:   c.Interval.Std(),
		MaxBackoff: c.MaxBackoff.Std(),
		clock:      clock.New(),
	}
}

// WithGrace 设置宽限期
func WithGrace(d time.Duration) Option {
	return func(c *Config) {
		c.Grace = d
	}
}

// WithInterval 设置心跳间隔
func WithInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.Interval = interval
	}
}

// WithMaxBackoff 设置退避上限
func WithMaxBackoff(d time.Duration) Option {
	return func(c *Config) {
		c.MaxBackoff = d
	}
}

// WithClock 指定时间源
func WithClock(clk clock.Clock) Option {
	return func(c *Config) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Config) {
		c.metrics = m
	}
}

// FromConfig 从节点配置构建选项
func FromConfig(cfg config.LivenessConfig) []Option {
	return []Option{
		WithGrace(cfg.Grace.Std()),
		WithInterval(cfg.Interval.Std()),
		WithMaxBackoff(cfg.MaxBackoff.Std()),
	}
}
