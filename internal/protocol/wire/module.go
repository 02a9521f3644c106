package wire

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-syncmesh/config"
)

// ProvideCodec 按配置创建编解码器，OnStop 时释放
func ProvideCodec(lc fx.Lifecycle, cfg *config.Config) (*Codec, error) {
	c, err := New(FromConfig(cfg.Wire)...)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return c.Close()
		},
	})
	return c, nil
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("wire",
		fx.Provide(ProvideCodec),
	)
}
