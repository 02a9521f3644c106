package discovery

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-syncmesh/config"
	"github.com/dep2p/go-syncmesh/internal/core/metrics"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

// Config 反应器配置
type Config struct {
	// DialTimeout 单次拨号超时
	DialTimeout time.Duration

	// DialRate 每秒拨号数上限
	DialRate float64

	// DialBurst 拨号突发上限
	DialBurst int

	// KnownPeers 启动时拨号的节点
	KnownPeers []types.DiscoveredPeer
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	d := config.DefaultDiscoveryConfig()
	return &Config{
		DialTimeout: d.DialTimeout.Std(),
		DialRate:    d.DialRate,
		DialBurst:   d.DialBurst,
	}
}

// Option 配置选项
type Option func(*Reactor)

// WithDialTimeout 设置拨号超时
func WithDialTimeout(d time.Duration) Option {
	return func(r *Reactor) {
		r.cfg.DialTimeout = d
	}
}

// WithDialRate 设置拨号速率
func WithDialRate(perSecond float64, burst int) Option {
	return func(r *Reactor) {
		r.cfg.DialRate = perSecond
		r.cfg.DialBurst = burst
	}
}

// WithKnownPeers 设置启动时拨号的节点
func WithKnownPeers(peers []types.DiscoveredPeer) Option {
	return func(r *Reactor) {
		r.cfg.KnownPeers = peers
	}
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reactor) {
		r.metrics = m
	}
}

// WithClock 设置时间源
func WithClock(c clock.Clock) Option {
	return func(r *Reactor) {
		r.clock = c
	}
}

// FromConfig 从节点配置构建选项；无效的已知节点被跳过
func FromConfig(c config.DiscoveryConfig) []Option {
	opts := []Option{
		WithDialTimeout(c.DialTimeout.Std()),
		WithDialRate(c.DialRate, c.DialBurst),
	}
	var known []types.DiscoveredPeer
	for _, kp := range c.KnownPeers {
		id, err := types.ParsePeerID(kp.PeerID)
		if err != nil {
			log.Warn("忽略无效的已知节点", "peer", kp.PeerID, "err", err)
			continue
		}
		known = append(known, types.DiscoveredPeer{ID: id, Addrs: kp.Addrs})
	}
	if len(known) > 0 {
		opts = append(opts, WithKnownPeers(known))
	}
	return opts
}
