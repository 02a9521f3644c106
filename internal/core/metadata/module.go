package metadata

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-syncmesh/config"
	"github.com/dep2p/go-syncmesh/pkg/interfaces"
)

// ModuleInput 模块输入
type ModuleInput struct {
	fx.In

	Config  *config.Config
	Version string `name:"version"`
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Provider  *Provider
	Interface interfaces.MetadataProvider
}

// ProvideServices 提供元数据提供者
func ProvideServices(input ModuleInput) ModuleOutput {
	p := NewProvider(input.Version, input.Config.Node)
	return ModuleOutput{Provider: p, Interface: p}
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("metadata",
		fx.Provide(ProvideServices),
	)
}
