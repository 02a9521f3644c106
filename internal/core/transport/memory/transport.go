package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dep2p/go-syncmesh/internal/util/logger"
	"github.com/dep2p/go-syncmesh/pkg/interfaces"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

var log = logger.Logger("transport/memory")

// Option 传输选项
type Option func(*Transport)

// WithMetadata 设置被发现时携带的元数据来源
func WithMetadata(p interfaces.MetadataProvider) Option {
	return func(t *Transport) {
		t.metadata = p
	}
}

// WithEventBuffer 设置事件缓冲大小
func WithEventBuffer(n int) Option {
	return func(t *Transport) {
		if n > 0 {
			t.events = make(chan interfaces.Event, n)
		}
	}
}

// Transport 进程内 PeerTransport
type Transport struct {
	net      *Network
	id       types.PeerID
	addr     string
	metadata interfaces.MetadataProvider

	events chan interfaces.Event
	done   chan struct{}

	emitMu    sync.RWMutex
	closed    bool
	closeOnce sync.Once

	mu    sync.RWMutex
	conns map[types.PeerID]struct{}
	dials map[types.PeerID]int
}

var _ interfaces.PeerTransport = (*Transport)(nil)

func newTransport(n *Network, id types.PeerID, opts ...Option) *Transport {
	t := &Transport{
		net:    n,
		id:     id,
		addr:   "mem://" + id.String(),
		events: make(chan interfaces.Event, 1024),
		done:   make(chan struct{}),
		conns:  make(map[types.PeerID]struct{}),
		dials:  make(map[types.PeerID]int),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// LocalID 实现 PeerTransport
func (t *Transport) LocalID() types.PeerID { return t.id }

// ListenAddrs 实现 PeerTransport
func (t *Transport) ListenAddrs() []string { return []string{t.addr} }

// Events 实现 PeerTransport
func (t *Transport) Events() <-chan interfaces.Event { return t.events }

// Dial 实现 PeerTransport；已连接时直接返回
func (t *Transport) Dial(ctx context.Context, peer types.DiscoveredPeer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.isClosed() {
		return ErrTransportClosed
	}
	if peer.ID == t.id {
		return ErrDialSelf
	}

	t.mu.Lock()
	t.dials[peer.ID]++
	t.mu.Unlock()

	remote := t.net.lookup(peer.ID)
	if remote == nil || remote.isClosed() {
		return ErrUnreachable
	}
	if !t.net.connect(t, remote) {
		return nil
	}
	log.Debug("连接建立", "local", t.id.ShortString(), "remote", peer.ID.ShortString())
	t.emit(interfaces.PeerConnected{ID: remote.id})
	remote.emit(interfaces.PeerConnected{ID: t.id})
	return nil
}

// Broadcast 实现 PeerTransport
func (t *Transport) Broadcast(ctx context.Context, data []byte) map[types.PeerID]error {
	return t.Multicast(ctx, t.ConnectedPeers(), data)
}

// Multicast 实现 PeerTransport
func (t *Transport) Multicast(ctx context.Context, peers []types.PeerID, data []byte) map[types.PeerID]error {
	failed := make(map[types.PeerID]error)
	for _, p := range peers {
		if err := t.send(ctx, p, data); err != nil {
			failed[p] = err
		}
	}
	return failed
}

func (t *Transport) send(ctx context.Context, peer types.PeerID, data []byte) error {
	local, err := t.open(ctx, peer, types.StreamBroadcast)
	if err != nil {
		return err
	}
	if _, err := local.Write(data); err != nil {
		local.Reset()
		return err
	}
	return local.CloseWrite()
}

// OpenUnicast 实现 PeerTransport
func (t *Transport) OpenUnicast(ctx context.Context, peer types.PeerID) (interfaces.Stream, error) {
	return t.open(ctx, peer, types.StreamUnicast)
}

func (t *Transport) open(ctx context.Context, peer types.PeerID, kind types.StreamKind) (*stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.isClosed() {
		return nil, ErrTransportClosed
	}
	if !t.isConnected(peer) {
		return nil, ErrNotConnected
	}
	if t.net.isFailing(peer) {
		return nil, ErrDeliveryFailed
	}
	remote := t.net.lookup(peer)
	if remote == nil {
		return nil, ErrUnreachable
	}

	local, far := newStreamPair(t.id, peer, kind)
	if !remote.emit(interfaces.PeerMessage{From: t.id, Stream: far}) {
		return nil, ErrUnreachable
	}
	return local, nil
}

// ConnectedPeers 实现 PeerTransport，按 ID 排序
func (t *Transport) ConnectedPeers() []types.PeerID {
	t.mu.RLock()
	out := make([]types.PeerID, 0, len(t.conns))
	for p := range t.conns {
		out = append(out, p)
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// DialCount 对 peer 发起 Dial 的次数
func (t *Transport) DialCount(peer types.PeerID) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.dials[peer]
}

// Close 实现 PeerTransport；断开所有连接并关闭事件流
func (t *Transport) Close() error {
	first := false
	t.closeOnce.Do(func() {
		first = true
		close(t.done)
	})
	if !first {
		return nil
	}
	t.emitMu.Lock()
	t.closed = true
	t.emitMu.Unlock()

	t.net.remove(t.id)
	for _, p := range t.ConnectedPeers() {
		t.unlink(p)
		if remote := t.net.lookup(p); remote != nil && remote.unlink(t.id) {
			remote.emit(interfaces.PeerDisconnected{ID: t.id})
		}
	}

	t.emitMu.Lock()
	close(t.events)
	t.emitMu.Unlock()
	log.Debug("传输已关闭", "local", t.id.ShortString())
	return nil
}

// ============================================================================
//                              内部
// ============================================================================

func (t *Transport) describe() types.DiscoveredPeer {
	peer := types.DiscoveredPeer{ID: t.id, Addrs: []string{t.addr}}
	if t.metadata != nil {
		peer.Metadata = t.metadata.Provide()
	}
	return peer
}

func (t *Transport) isClosed() bool {
	t.emitMu.RLock()
	defer t.emitMu.RUnlock()
	return t.closed
}

func (t *Transport) isConnected(p types.PeerID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.conns[p]
	return ok
}

func (t *Transport) link(p types.PeerID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.conns[p]; ok {
		return false
	}
	t.conns[p] = struct{}{}
	return true
}

func (t *Transport) unlink(p types.PeerID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.conns[p]; !ok {
		return false
	}
	delete(t.conns, p)
	return true
}

// emit 投递事件；传输关闭后返回 false
func (t *Transport) emit(ev interfaces.Event) bool {
	t.emitMu.RLock()
	defer t.emitMu.RUnlock()
	if t.closed {
		return false
	}
	select {
	case t.events <- ev:
		return true
	case <-t.done:
		return false
	}
}
