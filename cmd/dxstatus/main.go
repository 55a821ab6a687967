// Package main 提供 dxstatus 命令行入口
//
// 用法：
//
//	dxstatus [flags] <name>
//
// 从信任目录加载名为 <name> 的本地身份，启动节点，
// 关注并连接其余全部受信任身份，持续打印状态事件直到收到 SIGINT / SIGTERM。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dep2p/go-dx"
	"github.com/dep2p/go-dx/config"
	"github.com/dep2p/go-dx/internal/core/identity"
	"github.com/dep2p/go-dx/pkg/lib/log"
	"github.com/dep2p/go-dx/pkg/types"
)

var logger = log.Logger("cmd/dxstatus")

var (
	logLevel    = flag.String("log-level", "info", "日志级别 (debug/info/warn/error)")
	configFile  = flag.String("config", "", "配置文件路径")
	trustDir    = flag.String("trust-dir", "", "信任目录（默认: ~/.dx）")
	listenAddr  = flag.String("listen", "", "监听地址 host:port（覆盖配置文件）")
	metricsAddr = flag.String("metrics", "", "/metrics 监听地址（空表示不暴露）")
	redial      = flag.Duration("redial", 10*time.Second, "未连接节点的重拨间隔")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "用法: %s [flags] <name>\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	lvl, err := log.ParseLevel(*logLevel)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	name := flag.Arg(0)
	if name == "" {
		name = cfg.Identity.Name
	}
	if name == "" {
		flag.Usage()
		return fmt.Errorf("缺少身份名")
	}

	dir, err := cfg.Identity.ResolveTrustDir()
	if err != nil {
		return err
	}
	store, err := identity.LoadTrustStore(dir)
	if err != nil {
		return fmt.Errorf("加载信任目录失败: %w", err)
	}
	self, err := store.Find(name)
	if err != nil {
		return err
	}
	if !self.HasPrivateKey() {
		return fmt.Errorf("身份 %q 没有私钥", name)
	}
	others := store.Others(name)

	opts := []dx.Option{
		dx.WithConfig(cfg),
		dx.WithIdentity(self),
		dx.WithPayload(types.RandomPayload()),
		dx.WithKeepAlive(true),
	}
	if *metricsAddr != "" {
		opts = append(opts, dx.WithMetricsAddr(*metricsAddr))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	node, err := dx.Start(ctx, opts...)
	if err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	defer func() { _ = node.Close() }()

	printNodeInfo(node, len(others))

	events := node.Subscribe()
	for _, other := range others {
		if err := node.AddPeer(other.ID()); err != nil {
			logger.Warn("关注节点失败", "name", other.Name(), "error", err)
		}
	}

	names := make(map[types.PeerID]string, len(others))
	for _, other := range others {
		names[other.ID()] = other.Name()
	}

	go dialLoop(ctx, node, others)

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\n正在关闭节点...")
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if line := formatEvent(ev, names); line != "" {
				fmt.Println(line)
			}
		}
	}
}

// loadConfig 加载配置并应用命令行覆盖
func loadConfig() (*config.Config, error) {
	cfg := config.NewConfig()
	if *configFile != "" {
		var err error
		cfg, err = config.LoadFile(*configFile)
		if err != nil {
			return nil, err
		}
	}
	if *trustDir != "" {
		cfg.Identity.TrustDir = *trustDir
	}
	if *listenAddr != "" {
		cfg.Swarm.ListenAddrs = []string{*listenAddr}
	}
	return cfg, cfg.Validate()
}

// dialLoop 周期性连接尚未连接的受信任节点
//
// 地址来自 DHT 路由表（mDNS 发现或引导节点写入）。
func dialLoop(ctx context.Context, node *dx.Node, others []*identity.Identity) {
	ticker := time.NewTicker(*redial)
	defer ticker.Stop()

	for {
		connected := make(map[types.PeerID]bool)
		for _, p := range node.ConnectedPeers() {
			connected[p] = true
		}
		for _, other := range others {
			if connected[other.ID()] {
				continue
			}
			dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := node.Connect(dialCtx, other.ID()); err != nil {
				logger.Debug("连接节点失败", "name", other.Name(), "error", err)
			}
			cancel()
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func printNodeInfo(node *dx.Node, watched int) {
	fmt.Println("═══════════════════════════════════════════════")
	fmt.Printf("  身份:     %s\n", node.Identity().Name())
	fmt.Printf("  PeerID:   %s\n", node.ID())
	fmt.Printf("  状态负载: %s\n", node.Payload())
	for _, a := range node.Addrs() {
		fmt.Printf("  监听:     %s\n", a)
	}
	fmt.Printf("  关注节点: %d\n", watched)
	fmt.Println("═══════════════════════════════════════════════")
	fmt.Println("节点已启动，按 Ctrl+C 退出")
}
