package transport

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-syncmesh/config"
	"github.com/dep2p/go-syncmesh/internal/core/discovery/mdns"
	"github.com/dep2p/go-syncmesh/internal/core/identity"
	"github.com/dep2p/go-syncmesh/internal/core/transport/quic"
	"github.com/dep2p/go-syncmesh/internal/util/logger"
	"github.com/dep2p/go-syncmesh/pkg/interfaces"
)

var log = logger.Logger("core/transport")

// ModuleInput 模块输入
type ModuleInput struct {
	fx.In

	Config   *config.Config
	Identity *identity.Identity
	Metadata interfaces.MetadataProvider

	// Preset 直接注入的传输（WithTransport）
	Preset interfaces.PeerTransport `name:"preset_transport" optional:"true"`
}

// ProvideTransport 提供传输
func ProvideTransport(input ModuleInput) (interfaces.PeerTransport, error) {
	if input.Preset != nil {
		log.Debug("使用注入的传输", "peer", input.Preset.LocalID().ShortString())
		return input.Preset, nil
	}

	var opts []quic.Option
	if input.Config.Discovery.EnableMDNS {
		d := mdns.New(mdns.ConfigFrom(input.Config.Discovery.MDNS), input.Identity.PeerID(), input.Metadata)
		opts = append(opts, quic.WithDiscoverer(d))
	}
	return quic.New(input.Identity, input.Config.Transport, opts...)
}

func registerLifecycle(lc fx.Lifecycle, t interfaces.PeerTransport) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return t.Close()
		},
	})
}

// Module 返回 fx 模块
//
// 必须在 lifecycle 模块之前注册：OnStop 逆序执行，任务先停止，传输后关闭。
func Module() fx.Option {
	return fx.Module("transport",
		fx.Provide(ProvideTransport),
		fx.Invoke(registerLifecycle),
	)
}
