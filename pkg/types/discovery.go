package types

// ============================================================================
//                              发现与连接
// ============================================================================

// DiscoveredPeer 一次发现事件携带的节点信息，仅在事件期间有效
type DiscoveredPeer struct {
	ID       PeerID
	Addrs    []string
	Metadata PeerMetadata
}

// StreamKind 流类型
type StreamKind uint8

const (
	// StreamBroadcast 单向扇出流，无应答
	StreamBroadcast StreamKind = iota + 1
	// StreamUnicast 点对点请求/应答流
	StreamUnicast
)

// String 返回流类型名称
func (k StreamKind) String() string {
	switch k {
	case StreamBroadcast:
		return "broadcast"
	case StreamUnicast:
		return "unicast"
	default:
		return "unknown"
	}
}

// PeerState 发现反应器中单个节点的状态
type PeerState int

const (
	PeerSeen PeerState = iota
	PeerDialing
	PeerConnected
	PeerDialFailed
	PeerDisconnected
)

// String 返回状态名称
func (s PeerState) String() string {
	switch s {
	case PeerSeen:
		return "seen"
	case PeerDialing:
		return "dialing"
	case PeerConnected:
		return "connected"
	case PeerDialFailed:
		return "dial_failed"
	case PeerDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

