package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-dx/config"
	"github.com/dep2p/go-dx/pkg/lib/log"
)

var logger = log.Logger("core/metrics")

// Params Metrics 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// Module 是 metrics 的 Fx 模块
//
// 未启用时提供 nil *Metrics。
var Module = fx.Module("metrics",
	fx.Provide(provide),
	fx.Invoke(registerLifecycle),
)

func provide(p Params) *Metrics {
	if p.UnifiedCfg != nil && !p.UnifiedCfg.Metrics.Enabled {
		return nil
	}
	return New()
}

func registerLifecycle(lc fx.Lifecycle, m *Metrics, p Params) {
	if m == nil || p.UnifiedCfg == nil || p.UnifiedCfg.Metrics.ListenAddr == "" {
		return
	}

	srv := &http.Server{
		Addr:              p.UnifiedCfg.Metrics.ListenAddr,
		Handler:           metricsMux(m),
		ReadHeaderTimeout: 5 * time.Second,
	}
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Warn("指标服务退出", "error", err)
				}
			}()
			logger.Info("指标服务已启动", "addr", ln.Addr().String())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func metricsMux(m *Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return mux
}
