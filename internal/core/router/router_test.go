package router

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-syncmesh/internal/core/transport/memory"
	"github.com/dep2p/go-syncmesh/pkg/interfaces"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

func testPeer(b byte) types.PeerID {
	var id types.PeerID
	id[0] = b
	id[31] = b
	return id
}

// recorder 记录路由到的事件
type recorder struct {
	mu           sync.Mutex
	discovered   []types.PeerID
	connected    []types.PeerID
	disconnected []types.PeerID
	served       []types.PeerID
	ingested     []types.PeerID
	entered      []types.PeerID

	block chan struct{}
}

func (r *recorder) HandleDiscovered(_ context.Context, peer types.DiscoveredPeer) {
	r.mu.Lock()
	r.discovered = append(r.discovered, peer.ID)
	r.mu.Unlock()
}

func (r *recorder) HandleConnected(id types.PeerID) {
	r.mu.Lock()
	r.connected = append(r.connected, id)
	r.mu.Unlock()
}

func (r *recorder) HandleDisconnected(id types.PeerID) {
	r.mu.Lock()
	r.disconnected = append(r.disconnected, id)
	r.mu.Unlock()
}

func (r *recorder) Serve(ctx context.Context, s interfaces.Stream) {
	r.mu.Lock()
	r.entered = append(r.entered, s.Peer())
	r.mu.Unlock()
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
		}
	}
	r.mu.Lock()
	r.served = append(r.served, s.Peer())
	r.mu.Unlock()
	_ = s.Close()
}

func (r *recorder) Ingest(_ context.Context, s interfaces.Stream) {
	r.mu.Lock()
	r.ingested = append(r.ingested, s.Peer())
	r.mu.Unlock()
	_ = s.Close()
}

func (r *recorder) count(list *[]types.PeerID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(*list)
}

func startRouter(t *testing.T, tr interfaces.PeerTransport, rec *recorder) (*Router, context.CancelFunc, <-chan error) {
	t.Helper()
	r := New(tr, rec, rec, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	return r, cancel, done
}

func TestRouter_RoutesEvents(t *testing.T) {
	net := memory.NewNetwork()
	a := net.NewTransport(testPeer(1))
	b := net.NewTransport(testPeer(2))
	defer a.Close()
	defer b.Close()

	rec := &recorder{}
	r, cancel, done := startRouter(t, b, rec)
	var gone []types.PeerID
	var goneMu sync.Mutex
	r.OnDisconnected(func(id types.PeerID) {
		goneMu.Lock()
		gone = append(gone, id)
		goneMu.Unlock()
	})
	go func() {
		for range a.Events() {
		}
	}()

	net.Announce(a.LocalID())
	require.Eventually(t, func() bool { return rec.count(&rec.discovered) == 1 }, 2*time.Second, 5*time.Millisecond)

	ctx := context.Background()
	require.NoError(t, a.Dial(ctx, types.DiscoveredPeer{ID: b.LocalID()}))
	require.Eventually(t, func() bool { return rec.count(&rec.connected) == 1 }, 2*time.Second, 5*time.Millisecond)

	assert.Empty(t, a.Broadcast(ctx, []byte("op")))
	s, err := a.OpenUnicast(ctx, b.LocalID())
	require.NoError(t, err)
	require.NoError(t, s.CloseWrite())
	require.Eventually(t, func() bool {
		return rec.count(&rec.ingested) == 1 && rec.count(&rec.served) == 1
	}, 2*time.Second, 5*time.Millisecond)

	net.Disconnect(a.LocalID(), b.LocalID())
	require.Eventually(t, func() bool { return rec.count(&rec.disconnected) == 1 }, 2*time.Second, 5*time.Millisecond)
	goneMu.Lock()
	assert.Equal(t, []types.PeerID{a.LocalID()}, gone)
	goneMu.Unlock()

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestRouter_SlowHandlerDoesNotBlockLoop(t *testing.T) {
	net := memory.NewNetwork()
	a := net.NewTransport(testPeer(1))
	b := net.NewTransport(testPeer(2))
	defer a.Close()
	defer b.Close()
	go func() {
		for range a.Events() {
		}
	}()

	rec := &recorder{block: make(chan struct{})}
	_, cancel, done := startRouter(t, b, rec)

	ctx := context.Background()
	require.NoError(t, a.Dial(ctx, types.DiscoveredPeer{ID: b.LocalID()}))
	_, err := a.OpenUnicast(ctx, b.LocalID())
	require.NoError(t, err)

	// 单播处理阻塞期间广播仍被处理
	assert.Empty(t, a.Broadcast(ctx, []byte("op")))
	require.Eventually(t, func() bool { return rec.count(&rec.ingested) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, rec.count(&rec.served))

	close(rec.block)
	require.Eventually(t, func() bool { return rec.count(&rec.served) == 1 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestRouter_StopsWhenEventsClose(t *testing.T) {
	net := memory.NewNetwork()
	b := net.NewTransport(testPeer(2))
	rec := &recorder{}
	_, cancel, done := startRouter(t, b, rec)
	defer cancel()

	require.NoError(t, b.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("事件流关闭后 Run 未退出")
	}
}

func TestRouter_WaitsForHandlersOnStop(t *testing.T) {
	net := memory.NewNetwork()
	a := net.NewTransport(testPeer(1))
	b := net.NewTransport(testPeer(2))
	defer a.Close()
	defer b.Close()
	go func() {
		for range a.Events() {
		}
	}()

	rec := &recorder{block: make(chan struct{})}
	_, cancel, done := startRouter(t, b, rec)

	ctx := context.Background()
	require.NoError(t, a.Dial(ctx, types.DiscoveredPeer{ID: b.LocalID()}))
	_, err := a.OpenUnicast(ctx, b.LocalID())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return rec.count(&rec.entered) == 1 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	// 被阻塞的处理器在 ctx 取消后返回，Run 等待它结束
	assert.Equal(t, 1, rec.count(&rec.served))
}
