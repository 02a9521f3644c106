package membership

import (
	"sort"
	"sync"

	"github.com/dep2p/go-syncmesh/internal/util/logger"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

var log = logger.Logger("core/membership")

// Table 成员表，并发安全
type Table struct {
	mu    sync.RWMutex
	peers map[types.PeerID]map[types.LibraryID]struct{}
}

// NewTable 创建成员表
func NewTable() *Table {
	return &Table{peers: make(map[types.PeerID]map[types.LibraryID]struct{})}
}

// Set 以 libs 整体替换 peer 的成员关系
func (t *Table) Set(peer types.PeerID, libs []types.LibraryID) {
	set := make(map[types.LibraryID]struct{}, len(libs))
	for _, l := range libs {
		set[l] = struct{}{}
	}
	t.mu.Lock()
	t.peers[peer] = set
	t.mu.Unlock()

	log.Debug("更新成员关系", "peer", peer.ShortString(), "libraries", len(set))
}

// Add 记录 peer 持有 lib
func (t *Table) Add(peer types.PeerID, lib types.LibraryID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.peers[peer]
	if !ok {
		set = make(map[types.LibraryID]struct{})
		t.peers[peer] = set
	}
	set[lib] = struct{}{}
}

// Remove 移除 peer 的全部成员关系
func (t *Table) Remove(peer types.PeerID) {
	t.mu.Lock()
	_, ok := t.peers[peer]
	delete(t.peers, peer)
	t.mu.Unlock()

	if ok {
		log.Debug("移除成员关系", "peer", peer.ShortString())
	}
}

// IsMember peer 是否持有 lib
func (t *Table) IsMember(peer types.PeerID, lib types.LibraryID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.peers[peer][lib]
	return ok
}

// Known 是否已获知 peer 的成员信息
func (t *Table) Known(peer types.PeerID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.peers[peer]
	return ok
}

// Members 持有 lib 的节点，按 ID 排序
func (t *Table) Members(lib types.LibraryID) []types.PeerID {
	t.mu.RLock()
	var out []types.PeerID
	for p, set := range t.peers {
		if _, ok := set[lib]; ok {
			out = append(out, p)
		}
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Libraries peer 持有的 library
func (t *Table) Libraries(peer types.PeerID) []types.LibraryID {
	t.mu.RLock()
	set := t.peers[peer]
	out := make([]types.LibraryID, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Size 已知成员信息的节点数
func (t *Table) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.peers)
}
