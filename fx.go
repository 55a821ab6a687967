package dx

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-dx/internal/behaviour"
	"github.com/dep2p/go-dx/internal/core/identity"
	"github.com/dep2p/go-dx/internal/core/metrics"
	"github.com/dep2p/go-dx/internal/core/swarm"
	"github.com/dep2p/go-dx/internal/discovery/dht"
	"github.com/dep2p/go-dx/internal/discovery/mdns"
	"github.com/dep2p/go-dx/internal/protocol/status"
	"github.com/dep2p/go-dx/pkg/interfaces"
	"github.com/dep2p/go-dx/pkg/types"
)

// buildFxApp 构建 Fx 应用
//
// 模块启动顺序由依赖关系决定：swarm → dht / mdns / status → behaviour，
// 停止时逆序执行。
func buildFxApp(cfg *nodeConfig, node *Node) (*fx.App, error) {
	modules := []fx.Option{
		fx.Supply(cfg.config),
		fx.Supply(cfg.identity),
		fx.Supply(*cfg.payload),

		metrics.Module,
		swarm.Module,
		dht.Module,
		mdns.Module,
		status.Module,
		behaviour.Module,

		fx.Invoke(injectNodeComponents(node)),
	}

	modules = append(modules, cfg.fxOptions...)

	// 静默 Fx 自身日志
	modules = append(modules, fx.WithLogger(func() fxevent.Logger {
		return &fxevent.ZapLogger{Logger: zap.NewNop()}
	}))

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return app, nil
}

// nodeInjectParams 注入 Node 的组件
type nodeInjectParams struct {
	fx.In

	Identity  *identity.Identity
	Payload   types.Payload
	Swarm     *swarm.Swarm
	Host      interfaces.Host
	DHT       *dht.DHT
	Status    *status.Service
	Behaviour *behaviour.Behaviour
	MDNS      *mdns.MDNS       `optional:"true"`
	Metrics   *metrics.Metrics `optional:"true"`
}

func injectNodeComponents(node *Node) func(nodeInjectParams) {
	return func(p nodeInjectParams) {
		node.identity = p.Identity
		node.payload = p.Payload
		node.swarm = p.Swarm
		node.host = p.Host
		node.dht = p.DHT
		node.status = p.Status
		node.behaviour = p.Behaviour
		node.mdns = p.MDNS
		node.metrics = p.Metrics
	}
}
