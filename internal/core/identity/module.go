package identity

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-syncmesh/config"
	"github.com/dep2p/go-syncmesh/pkg/interfaces"
)

// ModuleInput 模块输入
type ModuleInput struct {
	fx.In

	Config *config.Config

	// Preset 直接注入的身份（WithIdentity），优先于配置
	Preset *Identity `name:"preset_identity" optional:"true"`
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Identity  *Identity
	Interface interfaces.Identity
}

// ProvideServices 提供身份
func ProvideServices(input ModuleInput) (ModuleOutput, error) {
	id := input.Preset
	if id == nil {
		var err error
		if id, err = FromConfig(input.Config.Identity); err != nil {
			return ModuleOutput{}, err
		}
	}
	return ModuleOutput{Identity: id, Interface: id}, nil
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("identity",
		fx.Provide(ProvideServices),
	)
}
