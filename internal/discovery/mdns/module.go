package mdns

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-dx/config"
	"github.com/dep2p/go-dx/pkg/interfaces"
)

// Params mDNS 依赖参数
type Params struct {
	fx.In

	Host       interfaces.Host
	UnifiedCfg *config.Config `optional:"true"`
}

// Output mDNS 模块输出
//
// 未启用时 Discovery 为 nil。
type Output struct {
	fx.Out

	MDNS      *MDNS
	Discovery interfaces.LocalDiscovery
}

// Module mDNS Fx 模块
var Module = fx.Module("mdns",
	fx.Provide(provide),
	fx.Invoke(registerLifecycle),
)

func provide(p Params) (Output, error) {
	if p.UnifiedCfg != nil && !p.UnifiedCfg.Discovery.EnableMDNS {
		return Output{}, nil
	}
	m, err := New(p.Host, ConfigFromUnified(p.UnifiedCfg))
	if err != nil {
		return Output{}, err
	}
	return Output{MDNS: m, Discovery: m}, nil
}

func registerLifecycle(lc fx.Lifecycle, m *MDNS) {
	if m == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStart: m.Start,
		OnStop:  m.Stop,
	})
}
