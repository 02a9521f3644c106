package lifecycle

import (
	"context"

	"go.uber.org/fx"
)

// Module 返回 fx 模块
//
// OnStart 进入 Running；OnStop 取消并等待全部任务。
// 应注册在传输模块之后、各服务模块之前：服务的 OnStart 在任务组运行后才启动任务，
// 任务组的 OnStop 先于传输关闭执行。
func Module() fx.Option {
	return fx.Module("lifecycle",
		fx.Provide(NewGroup),
		fx.Invoke(registerLifecycle),
	)
}

func registerLifecycle(lc fx.Lifecycle, g *Group) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return g.Start()
		},
		OnStop: func(ctx context.Context) error {
			return g.Stop(ctx)
		},
	})
}
