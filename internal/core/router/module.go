package router

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-syncmesh/internal/core/lifecycle"
	"github.com/dep2p/go-syncmesh/internal/core/membership"
	"github.com/dep2p/go-syncmesh/internal/core/metrics"
	"github.com/dep2p/go-syncmesh/internal/protocol/discovery"
	"github.com/dep2p/go-syncmesh/internal/protocol/dispatcher"
	"github.com/dep2p/go-syncmesh/internal/protocol/liveness"
	"github.com/dep2p/go-syncmesh/pkg/interfaces"
)

// ModuleInput 模块输入
type ModuleInput struct {
	fx.In

	Transport  interfaces.PeerTransport
	Reactor    *discovery.Reactor
	Dispatcher *dispatcher.Dispatcher
	Refresher  *membership.Refresher
	Table      *membership.Table
	Verifier   *membership.Verifier
	Tracker    *liveness.Tracker
	Metrics    *metrics.Metrics `optional:"true"`
}

// ProvideServices 创建事件循环并连接各组件的回调
func ProvideServices(input ModuleInput) *Router {
	r := New(input.Transport, input.Reactor, input.Dispatcher, input.Metrics)
	input.Reactor.OnConnected(input.Refresher.Trigger)
	r.OnDisconnected(input.Table.Remove)
	r.OnDisconnected(input.Verifier.Forget)
	r.OnDisconnected(input.Tracker.Forget)
	return r
}

func registerLifecycle(lc fx.Lifecycle, g *lifecycle.Group, r *Router) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return g.Go("router", r.Run)
		},
	})
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("router",
		fx.Provide(ProvideServices),
		fx.Invoke(registerLifecycle),
	)
}
