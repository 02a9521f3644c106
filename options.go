package syncmesh

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-syncmesh/config"
	"github.com/dep2p/go-syncmesh/internal/core/identity"
	"github.com/dep2p/go-syncmesh/pkg/interfaces"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	config    *config.Config
	target    interfaces.SyncTarget
	transport interfaces.PeerTransport
	ingress   <-chan types.Ingress
	identity  *identity.Identity
	registry  *prometheus.Registry
	clock     clock.Clock

	userFxOptions []fx.Option
}

func newOptions() *options {
	return &options{config: config.NewConfig()}
}

// ════════════════════════════════════════════════════════════════════════════
//                              配置
// ════════════════════════════════════════════════════════════════════════════

// WithConfig 使用完整配置；未调用时使用 config.NewConfig()
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return errors.New("config is nil")
		}
		o.config = cfg.Clone()
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              数据层
// ════════════════════════════════════════════════════════════════════════════

// WithSyncTarget 设置数据层（必需）
//
// 收到的操作交给 ApplyOperation，单播请求交给 Handle。
func WithSyncTarget(target interfaces.SyncTarget) Option {
	return func(o *options) error {
		if target == nil {
			return ErrNoSyncTarget
		}
		o.target = target
		return nil
	}
}

// WithIngress 设置数据层的出站操作通道
//
// 通道中的每一项按顺序签名并扇出；通道关闭后转发任务结束，Publish 仍可用。
func WithIngress(ch <-chan types.Ingress) Option {
	return func(o *options) error {
		o.ingress = ch
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              网络与身份
// ════════════════════════════════════════════════════════════════════════════

// WithTransport 使用指定传输替代默认的 QUIC 传输
//
// 传输的 LocalID 应与节点身份一致，否则签名校验会拒绝本节点的操作。
func WithTransport(t interfaces.PeerTransport) Option {
	return func(o *options) error {
		if t == nil {
			return errors.New("transport is nil")
		}
		o.transport = t
		return nil
	}
}

// WithIdentity 使用指定私钥，优先于 Identity.KeyFile
func WithIdentity(priv ed25519.PrivateKey) Option {
	return func(o *options) error {
		id, err := identity.New(priv)
		if err != nil {
			return fmt.Errorf("identity: %w", err)
		}
		o.identity = id
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              观测与测试
// ════════════════════════════════════════════════════════════════════════════

// WithMetricsRegisterer 在指定注册表上注册指标；未设置时每个节点独立创建
func WithMetricsRegisterer(reg *prometheus.Registry) Option {
	return func(o *options) error {
		o.registry = reg
		return nil
	}
}

// WithClock 指定时间源，测试中传入 clock.NewMock()
func WithClock(c clock.Clock) Option {
	return func(o *options) error {
		o.clock = c
		return nil
	}
}

// WithFxOptions 追加自定义 fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.userFxOptions = append(o.userFxOptions, opts...)
		return nil
	}
}
