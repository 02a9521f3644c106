// Package interfaces 定义 syncmesh 与外部协作者之间的契约
//
//   - transport.go  - PeerTransport：发现、拨号、广播/单播两类流
//   - sync.go       - SyncTarget：应用数据层，持有并应用 CRDT 操作
//   - identity.go   - Identity：节点密钥与签名
//   - metadata.go   - MetadataProvider：发现阶段广告的元数据
//
// # 依赖方向
//
//	syncmesh → internal/protocol → internal/core → pkg/interfaces → pkg/types
package interfaces
