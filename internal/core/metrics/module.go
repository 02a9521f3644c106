package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-syncmesh/config"
)

// ModuleInput 模块输入
type ModuleInput struct {
	fx.In

	Config *config.Config

	// Registry 外部注册表（WithMetricsRegisterer），未提供时每个节点独立创建
	Registry *prometheus.Registry `optional:"true"`
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Metrics *Metrics
	Server  *Server
}

// ProvideServices 提供指标
func ProvideServices(input ModuleInput) ModuleOutput {
	if !input.Config.Metrics.Enable {
		return ModuleOutput{}
	}
	reg := input.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	out := ModuleOutput{Metrics: New(reg)}
	if input.Config.Metrics.ListenAddr != "" {
		out.Server = NewServer(input.Config.Metrics.ListenAddr, reg)
	}
	return out
}

type lifecycleInput struct {
	fx.In

	LC     fx.Lifecycle
	Server *Server `optional:"true"`
}

func registerLifecycle(input lifecycleInput) {
	if input.Server == nil {
		return
	}
	input.LC.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return input.Server.Start()
		},
		OnStop: func(ctx context.Context) error {
			return input.Server.Stop(ctx)
		},
	})
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(ProvideServices),
		fx.Invoke(registerLifecycle),
	)
}
