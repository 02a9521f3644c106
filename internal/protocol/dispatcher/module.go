package dispatcher

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-syncmesh/config"
	"github.com/dep2p/go-syncmesh/internal/core/metrics"
	"github.com/dep2p/go-syncmesh/internal/protocol/wire"
	"github.com/dep2p/go-syncmesh/pkg/interfaces"
)

// ModuleInput 模块输入
type ModuleInput struct {
	fx.In

	Config     *config.Config
	Codec      *wire.Codec
	Target     interfaces.SyncTarget
	Membership MembershipVerifier `optional:"true"`
	Heartbeats HeartbeatRecorder  `optional:"true"`
	Metrics    *metrics.Metrics   `optional:"true"`
}

// ProvideDispatcher 提供分发器
func ProvideDispatcher(input ModuleInput) (*Dispatcher, error) {
	return New(input.Codec, input.Target, Deps{
		Membership: input.Membership,
		Heartbeats: input.Heartbeats,
		Metrics:    input.Metrics,
	}, FromConfig(input.Config.Dispatcher, input.Config.Sync)...)
}

// ClientInput 客户端输入
type ClientInput struct {
	fx.In

	Config    *config.Config
	Codec     *wire.Codec
	Transport interfaces.PeerTransport
}

// ProvideClient 提供出站请求客户端
//
// 客户端不依赖分发器，成员模块可以在分发器之前拿到它。
func ProvideClient(input ClientInput) *Client {
	return NewClient(input.Transport, input.Codec, FromConfig(input.Config.Dispatcher, input.Config.Sync)...)
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("dispatcher",
		fx.Provide(ProvideDispatcher),
		fx.Provide(ProvideClient),
	)
}
