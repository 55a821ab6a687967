package swarm

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-dx/config"
	"github.com/dep2p/go-dx/internal/core/identity"
	"github.com/dep2p/go-dx/pkg/interfaces"
)

// Params Swarm 依赖参数
type Params struct {
	fx.In

	Identity   *identity.Identity
	UnifiedCfg *config.Config `optional:"true"`
}

// Output Swarm 模块输出
type Output struct {
	fx.Out

	Swarm *Swarm
	Host  interfaces.Host
}

// Module Swarm Fx 模块
var Module = fx.Module("swarm",
	fx.Provide(provide),
	fx.Invoke(registerLifecycle),
)

func provide(p Params) (Output, error) {
	if !p.Identity.HasPrivateKey() {
		return Output{}, identity.ErrNoPrivateKey
	}
	s, err := New(p.Identity.PrivateKey(), ConfigFromUnified(p.UnifiedCfg))
	if err != nil {
		return Output{}, err
	}
	return Output{Swarm: s, Host: s}, nil
}

func registerLifecycle(lc fx.Lifecycle, s *Swarm) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Start(ctx)
		},
		OnStop: func(_ context.Context) error {
			return s.Close()
		},
	})
}
