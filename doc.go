// Package syncmesh 提供局域网/广域网上的数据同步覆盖网络
//
// 节点通过 mDNS 或显式地址发现彼此，建立 QUIC 连接后：
//
//   - 把本地数据层产生的操作（Operation）签名后扇出给同一 library 的成员
//   - 以请求/应答流服务其他节点的查询（Ping、GetLibrary、ListLibraries、GetOperations）
//   - 校验并应用收到的操作，交给调用方提供的 SyncTarget
//   - 周期性广播心跳，维持连接
//
// # 快速开始
//
//	store := library.New()
//	node, err := syncmesh.New(
//	    syncmesh.WithConfig(cfg),
//	    syncmesh.WithSyncTarget(store),
//	    syncmesh.WithIngress(store.Ingress()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := node.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer node.Close()
//
// # 组件
//
//	┌──────────────────────────────────────────────────────────┐
//	│  Node (fx 组装)                                           │
//	├──────────────────────────────────────────────────────────┤
//	│  router: 事件循环                                          │
//	│    ├─ discovery  发现 → 拨号                               │
//	│    ├─ dispatcher 单播请求 / 广播操作                        │
//	│    └─ membership 成员表                                    │
//	│  broadcast: 出站操作队列    liveness: 心跳                  │
//	├──────────────────────────────────────────────────────────┤
//	│  wire 编码   transport (quic | memory)   metadata         │
//	└──────────────────────────────────────────────────────────┘
//
// 所有后台任务都挂在同一个 lifecycle.Group 上，Stop 先取消并等待任务，再关闭传输。
package syncmesh
