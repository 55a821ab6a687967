// Package dx 提供状态交换节点
//
// 节点之间通过 /dx/status/0.1.0 协议周期性交换一个 20 字节的状态负载。
// 节点借助 DHT 与 mDNS 找到关注的对端，并为每条连接维护一个状态交换驱动。
//
// # 快速开始
//
//	import "github.com/dep2p/go-dx"
//
//	node, err := dx.Start(ctx,
//	    dx.WithIdentity(id),
//	    dx.WithPayload(types.RandomPayload()),
//	    dx.WithKeepAlive(true),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer node.Close()
//
//	events := node.Subscribe()
//	node.AddPeer(remoteID)
//
// # 组件层次
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  Node         dx.New() / dx.Start()                         │
//	├─────────────────────────────────────────────────────────────┤
//	│  Behaviour    注册表 + 事件分发（DHT / 发现 / 状态）           │
//	├─────────────────────────────────────────────────────────────┤
//	│  Status       每条连接一个 Handler 驱动                       │
//	├─────────────────────────────────────────────────────────────┤
//	│  Discovery    DHT（FIND_NODE）、mDNS                         │
//	├─────────────────────────────────────────────────────────────┤
//	│  Swarm        TCP + Noise + yamux + multistream             │
//	└─────────────────────────────────────────────────────────────┘
//
// # 文件组织
//
//	dx/
//	├── node.go      # Node 结构、生命周期、基本信息
//	├── fx.go        # Fx 应用组装
//	├── options.go   # WithXxx 配置选项
//	└── errors.go    # 错误定义
package dx
