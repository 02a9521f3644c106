package liveness

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-syncmesh/pkg/types"
)

// Tracker 记录各节点最近一次心跳
type Tracker struct {
	clock clock.Clock

	mu   sync.RWMutex
	seen map[types.PeerID]time.Time
}

// NewTracker 创建记录器；clk 为 nil 时使用系统时钟
func NewTracker(clk clock.Clock) *Tracker {
	if clk == nil {
		clk = clock.New()
	}
	return &Tracker{clock: clk, seen: make(map[types.PeerID]time.Time)}
}

// Observe 记录收到 peer 的心跳
func (t *Tracker) Observe(peer types.PeerID) {
	now := t.clock.Now()
	t.mu.Lock()
	_, known := t.seen[peer]
	t.seen[peer] = now
	t.mu.Unlock()

	if !known {
		log.Debug("首次收到心跳", "peer", peer.ShortString())
	}
}

// LastSeen 最近一次心跳时间
func (t *Tracker) LastSeen(peer types.PeerID) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ts, ok := t.seen[peer]
	return ts, ok
}

// Forget 清除 peer 的记录
func (t *Tracker) Forget(peer types.PeerID) {
	t.mu.Lock()
	delete(t.seen, peer)
	t.mu.Unlock()
}

// Snapshot 全部记录的副本
func (t *Tracker) Snapshot() map[types.PeerID]time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[types.PeerID]time.Time, len(t.seen))
	for p, ts := range t.seen {
		out[p] = ts
	}
	return out
}
