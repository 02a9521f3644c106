package dispatcher

import (
	"context"
	"sync"

	"github.com/dep2p/go-syncmesh/pkg/interfaces"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

// MockTarget 测试用 SyncTarget
type MockTarget struct {
	mu      sync.Mutex
	libs    map[types.LibraryID]types.LibraryInfo
	applied []types.Operation

	// HandleFunc 自定义数据查询处理，未设置时返回 Library 信息
	HandleFunc func(ctx context.Context, rc interfaces.RequestContext, req types.Request) (types.Response, error)

	// ApplyErr ApplyOperation 返回的错误
	ApplyErr error
}

var _ interfaces.SyncTarget = (*MockTarget)(nil)

// NewMockTarget 创建持有 libs 的 MockTarget
func NewMockTarget(libs ...types.LibraryInfo) *MockTarget {
	m := &MockTarget{libs: make(map[types.LibraryID]types.LibraryInfo)}
	for _, l := range libs {
		m.libs[l.ID] = l
	}
	return m
}

// Handle 实现 SyncTarget
func (m *MockTarget) Handle(ctx context.Context, rc interfaces.RequestContext, req types.Request) (types.Response, error) {
	if m.HandleFunc != nil {
		return m.HandleFunc(ctx, rc, req)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return types.LibraryResponse(m.libs[req.Library]), nil
}

// ApplyOperation 实现 SyncTarget
func (m *MockTarget) ApplyOperation(_ context.Context, _ types.PeerID, op types.Operation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ApplyErr != nil {
		return m.ApplyErr
	}
	m.applied = append(m.applied, op)
	return nil
}

// HasLibrary 实现 SyncTarget
func (m *MockTarget) HasLibrary(lib types.LibraryID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.libs[lib]
	return ok
}

// Libraries 实现 SyncTarget
func (m *MockTarget) Libraries() []types.LibraryInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.LibraryInfo, 0, len(m.libs))
	for _, l := range m.libs {
		out = append(out, l)
	}
	return out
}

// SetApplyErr 设置 ApplyOperation 返回的错误
func (m *MockTarget) SetApplyErr(err error) {
	m.mu.Lock()
	m.ApplyErr = err
	m.mu.Unlock()
}

// Applied 已应用的操作
func (m *MockTarget) Applied() []types.Operation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.Operation(nil), m.applied...)
}

// StaticMembership 固定的成员关系
type StaticMembership map[types.PeerID][]types.LibraryID

// Verify 实现 MembershipVerifier
func (s StaticMembership) Verify(_ context.Context, peer types.PeerID, lib types.LibraryID) bool {
	for _, l := range s[peer] {
		if l == lib {
			return true
		}
	}
	return false
}

// RecordingHeartbeats 记录心跳来源
type RecordingHeartbeats struct {
	mu    sync.Mutex
	peers []types.PeerID
}

// Observe 实现 HeartbeatRecorder
func (r *RecordingHeartbeats) Observe(peer types.PeerID) {
	r.mu.Lock()
	r.peers = append(r.peers, peer)
	r.mu.Unlock()
}

// Peers 收到心跳的来源
func (r *RecordingHeartbeats) Peers() []types.PeerID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.PeerID(nil), r.peers...)
}
