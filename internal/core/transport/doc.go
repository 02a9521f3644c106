// Package transport 组装节点使用的 PeerTransport
//
// 调用方通过 WithTransport 注入的实现优先；否则按配置创建 QUIC 传输，
// 并在启用 mDNS 时挂上局域网发现。两种情况下传输都在节点停止时关闭。
//
// 具体实现见子包 memory（进程内，测试与示例）与 quic（生产）。
package transport
