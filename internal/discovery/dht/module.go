package dht

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-dx/config"
	"github.com/dep2p/go-dx/pkg/interfaces"
)

// Params DHT 依赖参数
type Params struct {
	fx.In

	Host       interfaces.Host
	UnifiedCfg *config.Config `optional:"true"`
}

// Output DHT 模块输出
type Output struct {
	fx.Out

	DHT     *DHT
	Routing interfaces.DHT
}

// Module DHT Fx 模块
var Module = fx.Module("dht",
	fx.Provide(provide),
	fx.Invoke(registerLifecycle),
)

func provide(p Params) (Output, error) {
	d, err := New(p.Host, ConfigFromUnified(p.UnifiedCfg))
	if err != nil {
		return Output{}, err
	}
	return Output{DHT: d, Routing: d}, nil
}

func registerLifecycle(lc fx.Lifecycle, d *DHT) {
	lc.Append(fx.Hook{
		OnStart: d.Start,
		OnStop:  d.Stop,
	})
}
