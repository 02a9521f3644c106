package broadcast

import (
	"context"
	"sync"

	"github.com/dep2p/go-syncmesh/pkg/types"
)

// Delivery 一次记录下来的扇出
type Delivery struct {
	Peers []types.PeerID
	Data  []byte
	All   bool
}

// MockSender 测试用 Sender，记录每次扇出
type MockSender struct {
	mu         sync.Mutex
	peers      []types.PeerID
	fail       map[types.PeerID]error
	deliveries []Delivery
}

// NewMockSender 创建已连接 peers 的 MockSender
func NewMockSender(peers ...types.PeerID) *MockSender {
	return &MockSender{
		peers: peers,
		fail:  make(map[types.PeerID]error),
	}
}

// FailPeer 让发往 peer 的投递返回 err，err 为 nil 时恢复
func (m *MockSender) FailPeer(peer types.PeerID, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, peer)
		return
	}
	m.fail[peer] = err
}

// ConnectedPeers 实现 Sender
func (m *MockSender) ConnectedPeers() []types.PeerID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.PeerID(nil), m.peers...)
}

// Broadcast 实现 Sender
func (m *MockSender) Broadcast(_ context.Context, data []byte) map[types.PeerID]error {
	return m.record(m.ConnectedPeers(), data, true)
}

// Multicast 实现 Sender
func (m *MockSender) Multicast(_ context.Context, peers []types.PeerID, data []byte) map[types.PeerID]error {
	return m.record(peers, data, false)
}

func (m *MockSender) record(peers []types.PeerID, data []byte, all bool) map[types.PeerID]error {
	m.mu.Lock()
	failed := make(map[types.PeerID]error)
	for _, p := range peers {
		if err := m.fail[p]; err != nil {
			failed[p] = err
		}
	}
	m.deliveries = append(m.deliveries, Delivery{
		Peers: append([]types.PeerID(nil), peers...),
		Data:  append([]byte(nil), data...),
		All:   all,
	})
	m.mu.Unlock()
	return failed
}

// Deliveries 已记录的扇出
func (m *MockSender) Deliveries() []Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Delivery(nil), m.deliveries...)
}

// StaticScope 固定的成员关系
type StaticScope map[types.LibraryID][]types.PeerID

// Filter 实现 Scope
func (s StaticScope) Filter(_ context.Context, peers []types.PeerID, lib types.LibraryID) []types.PeerID {
	members := make(map[types.PeerID]struct{}, len(s[lib]))
	for _, p := range s[lib] {
		members[p] = struct{}{}
	}
	out := make([]types.PeerID, 0, len(peers))
	for _, p := range peers {
		if _, ok := members[p]; ok {
			out = append(out, p)
		}
	}
	return out
}
