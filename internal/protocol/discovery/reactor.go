package discovery

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/time/rate"

	"github.com/dep2p/go-syncmesh/internal/core/metrics"
	"github.com/dep2p/go-syncmesh/internal/util/logger"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

var log = logger.Logger("protocol/discovery")

// Dialer 拨号能力，由 PeerTransport 提供
type Dialer interface {
	LocalID() types.PeerID
	Dial(ctx context.Context, peer types.DiscoveredPeer) error
}

// PeerRecord 节点状态快照
type PeerRecord struct {
	ID        types.PeerID
	State     types.PeerState
	Addrs     []string
	Metadata  types.PeerMetadata
	Attempts  int
	LastError string
	LastSeen  time.Time
}

// Reactor 发现反应器
type Reactor struct {
	dialer  Dialer
	cfg     *Config
	limiter *rate.Limiter
	metrics *metrics.Metrics
	clock   clock.Clock

	mu          sync.RWMutex
	peers       map[types.PeerID]*PeerRecord
	onConnected []func(types.PeerID)
	stopped     bool

	wg sync.WaitGroup
}

// New 创建反应器
func New(dialer Dialer, opts ...Option) (*Reactor, error) {
	if dialer == nil {
		return nil, ErrNilDialer
	}
	r := &Reactor{
		dialer: dialer,
		cfg:    DefaultConfig(),
		clock:  clock.New(),
		peers:  make(map[types.PeerID]*PeerRecord),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.limiter = rate.NewLimiter(rate.Limit(r.cfg.DialRate), r.cfg.DialBurst)
	return r, nil
}

// OnConnected 注册新连接回调；节点从非连接状态进入 Connected 时调用
func (r *Reactor) OnConnected(fn func(types.PeerID)) {
	r.mu.Lock()
	r.onConnected = append(r.onConnected, fn)
	r.mu.Unlock()
}

// Run 拨号已知节点，等待 ctx 取消后等待进行中的拨号退出
func (r *Reactor) Run(ctx context.Context) error {
	for _, p := range r.cfg.KnownPeers {
		r.HandleDiscovered(ctx, p)
	}
	<-ctx.Done()
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	r.wg.Wait()
	return ctx.Err()
}

// HandleDiscovered 处理发现事件，立即返回
func (r *Reactor) HandleDiscovered(ctx context.Context, peer types.DiscoveredPeer) {
	if peer.ID == r.dialer.LocalID() {
		return
	}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	rec, ok := r.peers[peer.ID]
	if !ok {
		rec = &PeerRecord{ID: peer.ID, State: types.PeerSeen}
		r.peers[peer.ID] = rec
	}
	if len(peer.Addrs) > 0 {
		rec.Addrs = append([]string(nil), peer.Addrs...)
	}
	if peer.Metadata.Name != "" {
		rec.Metadata = peer.Metadata
	}
	rec.LastSeen = r.clock.Now()
	r.wg.Add(1)
	r.mu.Unlock()

	log.Debug("发现节点", "peer", peer.ID.ShortString(), "name", peer.Metadata.Name, "new", !ok)

	go func() {
		defer r.wg.Done()
		r.dial(ctx, peer)
	}()
}

func (r *Reactor) dial(ctx context.Context, peer types.DiscoveredPeer) {
	if err := r.limiter.Wait(ctx); err != nil {
		return
	}

	r.mu.Lock()
	rec := r.peers[peer.ID]
	if rec.State != types.PeerConnected {
		rec.State = types.PeerDialing
	}
	rec.Attempts++
	r.mu.Unlock()

	dctx, cancel := context.WithTimeout(ctx, r.cfg.DialTimeout)
	err := r.dialer.Dial(dctx, peer)
	cancel()

	if err != nil {
		r.metrics.Dial(metrics.OutcomeFailed)
		if ctx.Err() != nil {
			return
		}
		r.mu.Lock()
		if rec.State == types.PeerDialing {
			rec.State = types.PeerDialFailed
		}
		rec.LastError = err.Error()
		r.mu.Unlock()
		log.Warn("拨号失败", "peer", peer.ID.ShortString(), "err", err)
		return
	}

	r.metrics.Dial(metrics.OutcomeOK)
	r.markConnected(peer.ID)
}

// HandleConnected 处理连接建立事件（入站或出站）
func (r *Reactor) HandleConnected(id types.PeerID) {
	r.markConnected(id)
}

func (r *Reactor) markConnected(id types.PeerID) {
	r.mu.Lock()
	rec, ok := r.peers[id]
	if !ok {
		rec = &PeerRecord{ID: id}
		r.peers[id] = rec
	}
	fresh := rec.State != types.PeerConnected
	rec.State = types.PeerConnected
	rec.LastError = ""
	rec.LastSeen = r.clock.Now()
	callbacks := append([]func(types.PeerID){}, r.onConnected...)
	r.mu.Unlock()

	if !fresh {
		return
	}
	log.Info("节点已连接", "peer", id.ShortString())
	for _, fn := range callbacks {
		fn(id)
	}
}

// HandleDisconnected 处理连接断开事件
func (r *Reactor) HandleDisconnected(id types.PeerID) {
	r.mu.Lock()
	rec, ok := r.peers[id]
	if ok {
		rec.State = types.PeerDisconnected
	}
	r.mu.Unlock()

	if ok {
		log.Info("节点已断开", "peer", id.ShortString())
	}
}

// Peer 单个节点的状态快照
func (r *Reactor) Peer(id types.PeerID) (PeerRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.peers[id]
	if !ok {
		return PeerRecord{}, false
	}
	return rec.clone(), true
}

// Peers 全部节点的状态快照，按 ID 排序
func (r *Reactor) Peers() []PeerRecord {
	r.mu.RLock()
	out := make([]PeerRecord, 0, len(r.peers))
	for _, rec := range r.peers {
		out = append(out, rec.clone())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

// Wait 等待进行中的拨号结束
func (r *Reactor) Wait() {
	r.wg.Wait()
}

func (p *PeerRecord) clone() PeerRecord {
	c := *p
	c.Addrs = append([]string(nil), p.Addrs...)
	return c
}
