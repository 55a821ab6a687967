package status

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-dx/config"
	"github.com/dep2p/go-dx/internal/core/metrics"
	"github.com/dep2p/go-dx/pkg/interfaces"
	"github.com/dep2p/go-dx/pkg/types"
)

// Params 状态协议服务依赖参数
type Params struct {
	fx.In

	Host       interfaces.Host
	Payload    types.Payload
	UnifiedCfg *config.Config   `optional:"true"`
	Metrics    *metrics.Metrics `optional:"true"`
}

// Module 状态协议 Fx 模块
var Module = fx.Module("status",
	fx.Provide(provide),
	fx.Invoke(registerLifecycle),
)

func provide(p Params) (*Service, error) {
	return NewService(p.Host, ConfigFromUnified(p.UnifiedCfg, p.Payload), WithMetrics(p.Metrics))
}

func registerLifecycle(lc fx.Lifecycle, s *Service) {
	lc.Append(fx.Hook{
		OnStart: s.Start,
		OnStop:  s.Stop,
	})
}
