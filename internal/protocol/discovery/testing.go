package discovery

import (
	"context"
	"sync"

	"github.com/dep2p/go-syncmesh/pkg/types"
)

// MockDialer 测试用拨号器
type MockDialer struct {
	ID types.PeerID

	mu    sync.Mutex
	calls map[types.PeerID]int
	errs  map[types.PeerID]error
	block chan struct{}
}

// NewMockDialer 创建 MockDialer
func NewMockDialer(id types.PeerID) *MockDialer {
	return &MockDialer{
		ID:    id,
		calls: make(map[types.PeerID]int),
		errs:  make(map[types.PeerID]error),
	}
}

// LocalID 实现 Dialer
func (m *MockDialer) LocalID() types.PeerID { return m.ID }

// Dial 实现 Dialer
func (m *MockDialer) Dial(ctx context.Context, peer types.DiscoveredPeer) error {
	m.mu.Lock()
	m.calls[peer.ID]++
	err := m.errs[peer.ID]
	block := m.block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// FailWith 设置拨号 peer 时返回的错误
func (m *MockDialer) FailWith(peer types.PeerID, err error) {
	m.mu.Lock()
	m.errs[peer] = err
	m.mu.Unlock()
}

// Block 使后续拨号阻塞直到 ch 关闭
func (m *MockDialer) Block(ch chan struct{}) {
	m.mu.Lock()
	m.block = ch
	m.mu.Unlock()
}

// Calls 对 peer 的拨号次数
func (m *MockDialer) Calls(peer types.PeerID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[peer]
}
