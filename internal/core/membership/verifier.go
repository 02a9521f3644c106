package membership

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/dep2p/go-syncmesh/pkg/types"
)

// DefaultMinRefreshInterval 同一 (节点, library) 两次按需刷新的最小间隔
const DefaultMinRefreshInterval = time.Second

// status 一次查询得到的成员关系
type status int

const (
	statusUnknown status = iota
	statusMember
	statusAbsent
)

type refreshKey struct {
	peer types.PeerID
	lib  types.LibraryID
}

// Verifier 成员校验
//
// 成员表未命中时按需向对端刷新一次再判断，避免连接刚建立、周期刷新尚未
// 完成时丢弃合法操作。同一节点的并发刷新合并为一次，同一 (节点, library)
// 的按需刷新受最小间隔约束。
type Verifier struct {
	table     *Table
	refresher *Refresher
	clock     clock.Clock
	minGap    time.Duration
	timeout   time.Duration

	group singleflight.Group

	mu   sync.Mutex
	last map[refreshKey]time.Time
}

// VerifierOption 校验器选项
type VerifierOption func(*Verifier)

// WithMinRefreshInterval 设置按需刷新的最小间隔
func WithMinRefreshInterval(d time.Duration) VerifierOption {
	return func(v *Verifier) {
		v.minGap = d
	}
}

// WithRefreshTimeout 设置按需刷新的超时
func WithRefreshTimeout(d time.Duration) VerifierOption {
	return func(v *Verifier) {
		v.timeout = d
	}
}

// WithVerifierClock 指定时间源
func WithVerifierClock(c clock.Clock) VerifierOption {
	return func(v *Verifier) {
		v.clock = c
	}
}

// NewVerifier 创建校验器；refresher 为 nil 时只查成员表
func NewVerifier(table *Table, refresher *Refresher, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		table:     table,
		refresher: refresher,
		clock:     clock.New(),
		minGap:    DefaultMinRefreshInterval,
		timeout:   5 * time.Second,
		last:      make(map[refreshKey]time.Time),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify peer 是否为 lib 的成员
func (v *Verifier) Verify(ctx context.Context, peer types.PeerID, lib types.LibraryID) bool {
	return v.lookup(ctx, peer, lib) == statusMember
}

// Filter 从 peers 中选出应接收 lib 操作的节点，保持原有顺序
//
// 只排除刚刷新过且确认不持有 lib 的节点。刷新被限流或失败时成员关系未知，
// 照常发送，由接收端按 HasLibrary 丢弃。
func (v *Verifier) Filter(ctx context.Context, peers []types.PeerID, lib types.LibraryID) []types.PeerID {
	keep := make([]bool, len(peers))
	var g errgroup.Group
	for i, p := range peers {
		if v.table.IsMember(p, lib) {
			keep[i] = true
			continue
		}
		i, p := i, p
		g.Go(func() error {
			keep[i] = v.lookup(ctx, p, lib) != statusAbsent
			return nil
		})
	}
	_ = g.Wait()

	out := make([]types.PeerID, 0, len(peers))
	for i, p := range peers {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

func (v *Verifier) lookup(ctx context.Context, peer types.PeerID, lib types.LibraryID) status {
	if v.table.IsMember(peer, lib) {
		return statusMember
	}
	if v.refresher == nil {
		if v.table.Known(peer) {
			return statusAbsent
		}
		return statusUnknown
	}

	// 并发调用共享同一次刷新，结果表示本次是否真正刷新过
	res, err, _ := v.group.Do(peer.String(), func() (any, error) {
		if !v.allow(peer, lib) {
			return false, nil
		}
		rctx, cancel := context.WithTimeout(ctx, v.timeout)
		defer cancel()
		return true, v.refresher.Refresh(rctx, peer)
	})
	if err != nil {
		log.Debug("按需刷新成员信息失败", "peer", peer.ShortString(), "err", err)
		return statusUnknown
	}
	if v.table.IsMember(peer, lib) {
		return statusMember
	}
	if refreshed, _ := res.(bool); refreshed {
		return statusAbsent
	}
	return statusUnknown
}

// Forget 清除 peer 的刷新记录
func (v *Verifier) Forget(peer types.PeerID) {
	v.mu.Lock()
	for k := range v.last {
		if k.peer == peer {
			delete(v.last, k)
		}
	}
	v.mu.Unlock()
}

func (v *Verifier) allow(peer types.PeerID, lib types.LibraryID) bool {
	key := refreshKey{peer: peer, lib: lib}
	now := v.clock.Now()
	v.mu.Lock()
	defer v.mu.Unlock()
	if last, ok := v.last[key]; ok && now.Sub(last) < v.minGap {
		return false
	}
	v.last[key] = now
	return true
}
