// Package quic 基于 QUIC 的 PeerTransport 实现
//
// 每对节点之间维持一条 QUIC 连接；TLS 1.3 双向认证，节点 ID 由证书中的
// Ed25519 公钥派生，不可伪造。
//
// 广播消息使用单向流，请求/应答使用双向流；一条流承载一条消息，
// 发送方写完即关闭发送方向。
//
// 监听与拨号共享同一个 UDP socket。
package quic
