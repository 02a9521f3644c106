package interfaces

import (
	"context"
	"io"

	"github.com/dep2p/go-syncmesh/pkg/types"
)

// PeerTransport 底层传输能力
//
// 连接建立、地址交换与链路加密都由实现负责；连接表的并发安全同样由实现保证，
// 同一个实例会被反应器、分发器、广播器、探测器并发使用。
//
// 消息边界：一条消息对应一条流，写方写完后关闭发送方向，读方读到 EOF 即得到完整消息。
type PeerTransport interface {
	// LocalID 本节点标识
	LocalID() types.PeerID

	// ListenAddrs 当前监听地址
	ListenAddrs() []string

	// Dial 连接节点；对已连接节点必须幂等，不建立重复连接
	Dial(ctx context.Context, peer types.DiscoveredPeer) error

	// Broadcast 向所有已连接节点各发送一次 data
	//
	// 每个节点的投递相互独立，返回值只包含失败的节点。
	Broadcast(ctx context.Context, data []byte) map[types.PeerID]error

	// Multicast 向指定节点各发送一次 data，语义同 Broadcast
	Multicast(ctx context.Context, peers []types.PeerID, data []byte) map[types.PeerID]error

	// OpenUnicast 打开到指定节点的请求/应答流
	OpenUnicast(ctx context.Context, peer types.PeerID) (Stream, error)

	// ConnectedPeers 当前已连接节点
	ConnectedPeers() []types.PeerID

	// Events 传输事件流，Close 后关闭
	Events() <-chan Event

	// Close 关闭传输
	Close() error
}

// Stream 一条消息流
type Stream interface {
	io.ReadWriteCloser

	// CloseWrite 关闭发送方向，对端读到 EOF
	CloseWrite() error

	// Reset 异常终止流，对端读写均失败
	Reset() error

	// Peer 对端节点（已由传输层认证）
	Peer() types.PeerID

	// Kind 流类型
	Kind() types.StreamKind
}

// ============================================================================
//                              传输事件
// ============================================================================

// Event 传输事件，具体类型见下方各变体
type Event interface {
	isEvent()
}

// PeerDiscovered 发现节点
type PeerDiscovered struct {
	Peer types.DiscoveredPeer
}

// PeerConnected 连接建立（入站或出站）
type PeerConnected struct {
	ID types.PeerID
}

// PeerDisconnected 连接断开
type PeerDisconnected struct {
	ID types.PeerID
}

// PeerMessage 收到入站流，接收方负责关闭 Stream
type PeerMessage struct {
	From   types.PeerID
	Stream Stream
}

func (PeerDiscovered) isEvent()   {}
func (PeerConnected) isEvent()    {}
func (PeerDisconnected) isEvent() {}
func (PeerMessage) isEvent()      {}
