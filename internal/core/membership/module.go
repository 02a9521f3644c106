package membership

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-syncmesh/config"
	"github.com/dep2p/go-syncmesh/internal/core/lifecycle"
	"github.com/dep2p/go-syncmesh/internal/protocol/dispatcher"
	"github.com/dep2p/go-syncmesh/pkg/interfaces"
)

// ModuleInput 模块输入
type ModuleInput struct {
	fx.In

	Config    *config.Config
	Client    *dispatcher.Client
	Transport interfaces.PeerTransport
	Clock     clock.Clock `optional:"true"`
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Table     *Table
	Refresher *Refresher
	Verifier  *Verifier
	Checker   dispatcher.MembershipVerifier
}

// ProvideServices 提供成员表、刷新器与校验器
func ProvideServices(input ModuleInput) ModuleOutput {
	var ropts []RefresherOption
	var vopts []VerifierOption
	if input.Clock != nil {
		ropts = append(ropts, WithClock(input.Clock))
		vopts = append(vopts, WithVerifierClock(input.Clock))
	}
	vopts = append(vopts, WithRefreshTimeout(input.Config.Dispatcher.RequestTimeout.Std()))

	table := NewTable()
	refresher := NewRefresher(table, input.Client, input.Transport, input.Config.Sync.MembershipRefresh.Std(), ropts...)
	verifier := NewVerifier(table, refresher, vopts...)
	return ModuleOutput{
		Table:     table,
		Refresher: refresher,
		Verifier:  verifier,
		Checker:   verifier,
	}
}

func registerLifecycle(lc fx.Lifecycle, g *lifecycle.Group, r *Refresher) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return g.Go("membership-refresh", r.Run)
		},
	})
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("membership",
		fx.Provide(ProvideServices),
		fx.Invoke(registerLifecycle),
	)
}
