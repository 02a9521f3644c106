package broadcast

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-syncmesh/config"
	"github.com/dep2p/go-syncmesh/internal/core/lifecycle"
	"github.com/dep2p/go-syncmesh/internal/core/membership"
	"github.com/dep2p/go-syncmesh/internal/core/metrics"
	"github.com/dep2p/go-syncmesh/internal/protocol/wire"
	"github.com/dep2p/go-syncmesh/pkg/interfaces"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

// ModuleInput 模块输入
type ModuleInput struct {
	fx.In

	Config    *config.Config
	Transport interfaces.PeerTransport
	Codec     *wire.Codec
	Identity  interfaces.Identity
	Verifier  *membership.Verifier `optional:"true"`
	Metrics   *metrics.Metrics     `optional:"true"`

	// Ingress 数据层的操作通道（WithIngress）
	Ingress <-chan types.Ingress `name:"preset_ingress" optional:"true"`
}

// ProvideServices 提供广播器
func ProvideServices(input ModuleInput) (*Broadcaster, error) {
	opts := append(FromConfig(input.Config.Broadcast),
		WithSigner(input.Identity),
		WithMetrics(input.Metrics),
	)
	if input.Verifier != nil {
		opts = append(opts, WithScope(input.Verifier))
	}
	if input.Ingress != nil {
		opts = append(opts, WithIngress(input.Ingress))
	}
	return New(input.Transport, input.Codec, opts...)
}

func registerLifecycle(lc fx.Lifecycle, g *lifecycle.Group, b *Broadcaster) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if err := g.Go("broadcast", b.Run); err != nil {
				return err
			}
			if b.HasIngress() {
				return g.Go("broadcast-ingress", b.Forward)
			}
			return nil
		},
	})
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("broadcast",
		fx.Provide(ProvideServices),
		fx.Invoke(registerLifecycle),
	)
}
