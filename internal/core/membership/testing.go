package membership

import (
	"context"
	"sync"

	"github.com/dep2p/go-syncmesh/pkg/types"
)

// MockQuerier 测试用 Querier，按节点返回预设应答
type MockQuerier struct {
	mu        sync.Mutex
	Responses map[types.PeerID]types.Response
	Errs      map[types.PeerID]error
	Calls     []types.PeerID
}

// NewMockQuerier 创建 MockQuerier
func NewMockQuerier() *MockQuerier {
	return &MockQuerier{
		Responses: make(map[types.PeerID]types.Response),
		Errs:      make(map[types.PeerID]error),
	}
}

// Request 实现 Querier
func (m *MockQuerier) Request(_ context.Context, peer types.PeerID, _ types.Request) (types.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, peer)
	if err := m.Errs[peer]; err != nil {
		return types.Response{}, err
	}
	return m.Responses[peer], nil
}

// CallCount 调用次数
func (m *MockQuerier) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// StaticPeers 固定的已连接节点列表
type StaticPeers []types.PeerID

// ConnectedPeers 实现 PeerLister
func (s StaticPeers) ConnectedPeers() []types.PeerID { return s }
