package liveness

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-syncmesh/config"
	"github.com/dep2p/go-syncmesh/internal/core/lifecycle"
	"github.com/dep2p/go-syncmesh/internal/core/metrics"
	"github.com/dep2p/go-syncmesh/internal/protocol/dispatcher"
	"github.com/dep2p/go-syncmesh/internal/protocol/wire"
	"github.com/dep2p/go-syncmesh/pkg/interfaces"
)

// ModuleInput 模块输入
type ModuleInput struct {
	fx.In

	Config    *config.Config
	Transport interfaces.PeerTransport
	Codec     *wire.Codec
	Clock     clock.Clock      `optional:"true"`
	Metrics   *metrics.Metrics `optional:"true"`
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Tracker  *Tracker
	Recorder dispatcher.HeartbeatRecorder
	Prober   *Prober
}

// ProvideServices 提供心跳记录器与探测器；关闭心跳时不创建探测器
func ProvideServices(input ModuleInput) (ModuleOutput, error) {
	tracker := NewTracker(input.Clock)
	out := ModuleOutput{Tracker: tracker, Recorder: tracker}
	if !input.Config.Liveness.Enable {
		return out, nil
	}

	opts := append(FromConfig(input.Config.Liveness), WithClock(input.Clock), WithMetrics(input.Metrics))
	prober, err := New(input.Transport, input.Codec, opts...)
	if err != nil {
		return ModuleOutput{}, err
	}
	out.Prober = prober
	return out, nil
}

type lifecycleInput struct {
	fx.In

	LC     fx.Lifecycle
	Group  *lifecycle.Group
	Prober *Prober `optional:"true"`
}

func registerLifecycle(input lifecycleInput) {
	if input.Prober == nil {
		return
	}
	input.LC.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return input.Group.Go("liveness", input.Prober.Run)
		},
	})
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("liveness",
		fx.Provide(ProvideServices),
		fx.Invoke(registerLifecycle),
	)
}
