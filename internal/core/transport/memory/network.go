// Package memory 提供进程内 PeerTransport 实现
//
// 一个 Network 代表一个虚拟局域网，加入其中的 Transport 互相可达。
// 发现由测试显式触发（Announce），可注入投递失败，用于单元测试与多节点场景。
package memory

import (
	"sync"

	"github.com/dep2p/go-syncmesh/pkg/interfaces"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

// Network 虚拟网络
type Network struct {
	mu      sync.RWMutex
	nodes   map[types.PeerID]*Transport
	failing map[types.PeerID]bool
	links   int
}

// NewNetwork 创建虚拟网络
func NewNetwork() *Network {
	return &Network{
		nodes:   make(map[types.PeerID]*Transport),
		failing: make(map[types.PeerID]bool),
	}
}

// NewTransport 创建并加入一个传输实例
func (n *Network) NewTransport(id types.PeerID, opts ...Option) *Transport {
	t := newTransport(n, id, opts...)
	n.mu.Lock()
	n.nodes[id] = t
	n.mu.Unlock()
	return t
}

// Announce 让 id 被网络中所有其他节点发现
func (n *Network) Announce(id types.PeerID) {
	src := n.lookup(id)
	if src == nil {
		return
	}
	peer := src.describe()
	for _, t := range n.snapshot() {
		if t.id != id {
			t.emit(interfaces.PeerDiscovered{Peer: peer})
		}
	}
}

// AnnounceTo 只让 to 发现 id
func (n *Network) AnnounceTo(to, id types.PeerID) {
	src, dst := n.lookup(id), n.lookup(to)
	if src == nil || dst == nil {
		return
	}
	dst.emit(interfaces.PeerDiscovered{Peer: src.describe()})
}

// FailDelivery 设置发往 id 的消息是否失败
func (n *Network) FailDelivery(id types.PeerID, fail bool) {
	n.mu.Lock()
	n.failing[id] = fail
	n.mu.Unlock()
}

// Disconnect 断开两个节点之间的连接
func (n *Network) Disconnect(a, b types.PeerID) {
	ta, tb := n.lookup(a), n.lookup(b)
	if ta == nil || tb == nil {
		return
	}
	if ta.unlink(b) {
		ta.emit(interfaces.PeerDisconnected{ID: b})
	}
	if tb.unlink(a) {
		tb.emit(interfaces.PeerDisconnected{ID: a})
	}
}

// Links 网络中建立过的连接总数（重复拨号不计）
func (n *Network) Links() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.links
}

func (n *Network) lookup(id types.PeerID) *Transport {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.nodes[id]
}

func (n *Network) snapshot() []*Transport {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*Transport, 0, len(n.nodes))
	for _, t := range n.nodes {
		out = append(out, t)
	}
	return out
}

func (n *Network) isFailing(id types.PeerID) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.failing[id]
}

// connect 建立 a-b 连接；已连接返回 false
func (n *Network) connect(a, b *Transport) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !a.link(b.id) {
		return false
	}
	b.link(a.id)
	n.links++
	return true
}

func (n *Network) remove(id types.PeerID) {
	n.mu.Lock()
	delete(n.nodes, id)
	n.mu.Unlock()
}
