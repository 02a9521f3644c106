// Package types 定义 syncmesh 的基础值类型
//
// 这是最底层的包，不依赖任何其他 syncmesh 包。
// 所有类型都是纯值类型，用于在各模块间传递数据：
//
//   - PeerID: 节点标识（公钥 SHA-256，Base58 外部表示）
//   - LibraryID / ActorID / OperationID: 数据集、写入者、操作标识
//   - Timestamp / HLC: 混合逻辑时钟
//   - PeerMetadata: 发现阶段广告的节点元数据
//   - Operation / Request / Response: 协议值
package types
