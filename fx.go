package syncmesh

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-syncmesh/internal/core/identity"
	"github.com/dep2p/go-syncmesh/internal/core/lifecycle"
	"github.com/dep2p/go-syncmesh/internal/core/membership"
	"github.com/dep2p/go-syncmesh/internal/core/metadata"
	"github.com/dep2p/go-syncmesh/internal/core/metrics"
	"github.com/dep2p/go-syncmesh/internal/core/router"
	"github.com/dep2p/go-syncmesh/internal/core/transport"
	"github.com/dep2p/go-syncmesh/internal/protocol/broadcast"
	"github.com/dep2p/go-syncmesh/internal/protocol/discovery"
	"github.com/dep2p/go-syncmesh/internal/protocol/dispatcher"
	"github.com/dep2p/go-syncmesh/internal/protocol/liveness"
	"github.com/dep2p/go-syncmesh/internal/protocol/wire"
	"github.com/dep2p/go-syncmesh/internal/util/logger"
	"github.com/dep2p/go-syncmesh/pkg/interfaces"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

var fxLogger = logger.Logger("syncmesh/fx")

// buildModules 组装全部内部模块
//
// 加载顺序（按依赖与停止顺序）：
//  1. 配置与预设注入
//  2. identity → metadata → metrics → wire → transport
//  3. lifecycle（OnStop 逆序执行：任务组先于传输停止）
//  4. dispatcher → membership → liveness → broadcast → discovery → router
func buildModules(o *options) ([]fx.Option, error) {
	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置验证（前置）
	// ════════════════════════════════════════════════════════════════════════
	if o.target == nil {
		return nil, ErrNoSyncTarget
	}
	if err := o.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	version := o.config.Node.Version
	if version == "" {
		version = Version
	}

	modules := []fx.Option{
		fx.Supply(o.config),
		fx.Supply(fx.Annotated{Name: "version", Target: version}),
		fx.Provide(func() interfaces.SyncTarget { return o.target }),
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 预设（可选）
	// ════════════════════════════════════════════════════════════════════════
	if o.identity != nil {
		id := o.identity
		modules = append(modules, fx.Provide(fx.Annotated{
			Name:   "preset_identity",
			Target: func() *identity.Identity { return id },
		}))
	}
	if o.transport != nil {
		t := o.transport
		modules = append(modules, fx.Provide(fx.Annotated{
			Name:   "preset_transport",
			Target: func() interfaces.PeerTransport { return t },
		}))
	}
	if o.ingress != nil {
		ch := o.ingress
		modules = append(modules, fx.Provide(fx.Annotated{
			Name:   "preset_ingress",
			Target: func() <-chan types.Ingress { return ch },
		}))
	}
	if o.registry != nil {
		modules = append(modules, fx.Supply(o.registry))
	}
	if o.clock != nil {
		c := o.clock
		modules = append(modules, fx.Provide(func() clock.Clock { return c }))
	}

	// ════════════════════════════════════════════════════════════════════════
	// 3. 基础模块
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		identity.Module(),
		metadata.Module(),
		metrics.Module(),
		wire.Module(),
		transport.Module(),
		lifecycle.Module(),
	)

	// ════════════════════════════════════════════════════════════════════════
	// 4. 协议层
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		dispatcher.Module(),
		membership.Module(),
		liveness.Module(),
		broadcast.Module(),
		discovery.Module(),
		router.Module(),
	)

	// ════════════════════════════════════════════════════════════════════════
	// 5. 用户扩展
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, o.userFxOptions...)

	// 禁用 Fx 日志输出（避免干扰用户日志）
	modules = append(modules,
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)
	return modules, nil
}

// nodeComponents Node 持有的组件
type nodeComponents struct {
	fx.In

	Identity    *identity.Identity
	Transport   interfaces.PeerTransport
	Group       *lifecycle.Group
	Broadcaster *broadcast.Broadcaster
	Client      *dispatcher.Client
	Reactor     *discovery.Reactor
	Table       *membership.Table
	Tracker     *liveness.Tracker
	Metrics     *metrics.Metrics `optional:"true"`
}

func buildFxApp(o *options, node *Node) (*fx.App, error) {
	modules, err := buildModules(o)
	if err != nil {
		return nil, err
	}
	modules = append(modules, fx.Invoke(func(c nodeComponents) {
		node.components = c
	}))

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		fxLogger.Error("组装节点失败", "error", err)
		return nil, err
	}
	return app, nil
}
