package discovery

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-syncmesh/config"
	"github.com/dep2p/go-syncmesh/internal/core/lifecycle"
	"github.com/dep2p/go-syncmesh/internal/core/metrics"
	"github.com/dep2p/go-syncmesh/pkg/interfaces"
)

// ModuleInput 模块输入
type ModuleInput struct {
	fx.In

	Config    *config.Config
	Transport interfaces.PeerTransport
	Clock     clock.Clock      `optional:"true"`
	Metrics   *metrics.Metrics `optional:"true"`
}

// ProvideServices 提供发现反应器
func ProvideServices(input ModuleInput) (*Reactor, error) {
	opts := append(FromConfig(input.Config.Discovery), WithMetrics(input.Metrics))
	if input.Clock != nil {
		opts = append(opts, WithClock(input.Clock))
	}
	return New(input.Transport, opts...)
}

func registerLifecycle(lc fx.Lifecycle, g *lifecycle.Group, r *Reactor) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return g.Go("discovery", r.Run)
		},
	})
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("discovery",
		fx.Provide(ProvideServices),
		fx.Invoke(registerLifecycle),
	)
}
