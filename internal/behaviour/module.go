package behaviour

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-dx/config"
	"github.com/dep2p/go-dx/internal/core/metrics"
	"github.com/dep2p/go-dx/internal/protocol/status"
	"github.com/dep2p/go-dx/pkg/interfaces"
)

// Params Behaviour 依赖参数
type Params struct {
	fx.In

	DHT        interfaces.DHT
	Status     *status.Service           `optional:"true"`
	Discovery  interfaces.LocalDiscovery `optional:"true"`
	UnifiedCfg *config.Config            `optional:"true"`
	Metrics    *metrics.Metrics          `optional:"true"`
}

// Module Behaviour Fx 模块
var Module = fx.Module("behaviour",
	fx.Provide(provide),
	fx.Invoke(registerLifecycle),
)

func provide(p Params) (*Behaviour, error) {
	opts := []Option{WithMetrics(p.Metrics)}
	if p.Status != nil {
		opts = append(opts, WithStatus(p.Status))
	}
	if p.Discovery != nil {
		opts = append(opts, WithDiscovery(p.Discovery))
	}
	return New(p.DHT, ConfigFromUnified(p.UnifiedCfg), opts...)
}

func registerLifecycle(lc fx.Lifecycle, b *Behaviour) {
	lc.Append(fx.Hook{
		OnStart: b.Start,
		OnStop:  b.Stop,
	})
}
