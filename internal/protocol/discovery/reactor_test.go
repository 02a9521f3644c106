package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-syncmesh/config"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

func testPeer(b byte) types.PeerID {
	var id types.PeerID
	id[0] = b
	id[1] = 0xAA
	return id
}

func newTestReactor(t *testing.T, d *MockDialer, opts ...Option) *Reactor {
	t.Helper()
	opts = append([]Option{WithDialRate(1000, 100)}, opts...)
	r, err := New(d, opts...)
	require.NoError(t, err)
	return r
}

func TestNew_NilDialer(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNilDialer)
}

func TestReactor_DialsOnDiscovery(t *testing.T) {
	d := NewMockDialer(testPeer(1))
	r := newTestReactor(t, d)
	peer := types.DiscoveredPeer{ID: testPeer(2), Addrs: []string{"mem://b"}, Metadata: types.PeerMetadata{Name: "bob"}}

	var connected []types.PeerID
	r.OnConnected(func(id types.PeerID) { connected = append(connected, id) })

	r.HandleDiscovered(context.Background(), peer)
	r.Wait()

	assert.Equal(t, 1, d.Calls(peer.ID))
	rec, ok := r.Peer(peer.ID)
	require.True(t, ok)
	assert.Equal(t, types.PeerConnected, rec.State)
	assert.Equal(t, "bob", rec.Metadata.Name)
	assert.Equal(t, 1, rec.Attempts)
	assert.Equal(t, []types.PeerID{peer.ID}, connected)
}

func TestReactor_RedialsEveryDiscovery(t *testing.T) {
	d := NewMockDialer(testPeer(1))
	r := newTestReactor(t, d)
	peer := types.DiscoveredPeer{ID: testPeer(2)}

	var connected int
	r.OnConnected(func(types.PeerID) { connected++ })

	r.HandleDiscovered(context.Background(), peer)
	r.Wait()
	r.HandleDiscovered(context.Background(), peer)
	r.Wait()

	assert.Equal(t, 2, d.Calls(peer.ID))
	assert.Equal(t, 1, connected, "已连接节点重复发现不触发新连接回调")
}

func TestReactor_SkipsSelf(t *testing.T) {
	d := NewMockDialer(testPeer(1))
	r := newTestReactor(t, d)
	r.HandleDiscovered(context.Background(), types.DiscoveredPeer{ID: testPeer(1)})
	r.Wait()
	assert.Equal(t, 0, d.Calls(testPeer(1)))
	assert.Empty(t, r.Peers())
}

func TestReactor_DialFailureRetriedOnRediscovery(t *testing.T) {
	d := NewMockDialer(testPeer(1))
	r := newTestReactor(t, d)
	peer := types.DiscoveredPeer{ID: testPeer(3)}

	d.FailWith(peer.ID, errors.New("unreachable"))
	r.HandleDiscovered(context.Background(), peer)
	r.Wait()

	rec, _ := r.Peer(peer.ID)
	assert.Equal(t, types.PeerDialFailed, rec.State)
	assert.Equal(t, "unreachable", rec.LastError)

	d.FailWith(peer.ID, nil)
	r.HandleDiscovered(context.Background(), peer)
	r.Wait()

	rec, _ = r.Peer(peer.ID)
	assert.Equal(t, types.PeerConnected, rec.State)
	assert.Equal(t, 2, rec.Attempts)
	assert.Empty(t, rec.LastError)
}

func TestReactor_HandleDiscoveredDoesNotBlock(t *testing.T) {
	d := NewMockDialer(testPeer(1))
	block := make(chan struct{})
	d.Block(block)
	r := newTestReactor(t, d)

	done := make(chan struct{})
	go func() {
		r.HandleDiscovered(context.Background(), types.DiscoveredPeer{ID: testPeer(2)})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("HandleDiscovered 阻塞")
	}

	assert.Eventually(t, func() bool {
		rec, ok := r.Peer(testPeer(2))
		return ok && rec.State == types.PeerDialing
	}, time.Second, 5*time.Millisecond)

	close(block)
	r.Wait()
	rec, _ := r.Peer(testPeer(2))
	assert.Equal(t, types.PeerConnected, rec.State)
}

func TestReactor_Disconnect(t *testing.T) {
	d := NewMockDialer(testPeer(1))
	r := newTestReactor(t, d)

	r.HandleConnected(testPeer(4))
	rec, ok := r.Peer(testPeer(4))
	require.True(t, ok)
	assert.Equal(t, types.PeerConnected, rec.State)

	r.HandleDisconnected(testPeer(4))
	rec, _ = r.Peer(testPeer(4))
	assert.Equal(t, types.PeerDisconnected, rec.State)
}

func TestReactor_RunDialsKnownPeersAndStops(t *testing.T) {
	d := NewMockDialer(testPeer(1))
	known := []types.DiscoveredPeer{{ID: testPeer(5), Addrs: []string{"10.0.0.5:4001"}}}
	r := newTestReactor(t, d, WithKnownPeers(known))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	assert.Eventually(t, func() bool { return d.Calls(testPeer(5)) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	r.HandleDiscovered(context.Background(), types.DiscoveredPeer{ID: testPeer(6)})
	assert.Equal(t, 0, d.Calls(testPeer(6)))
}

func TestFromConfig_SkipsInvalidKnownPeers(t *testing.T) {
	cfg := config.DefaultDiscoveryConfig()
	cfg.KnownPeers = []config.KnownPeer{
		{PeerID: testPeer(7).String(), Addrs: []string{"10.0.0.7:1"}},
		{PeerID: "not-a-peer", Addrs: []string{"x"}},
	}
	d := NewMockDialer(testPeer(1))
	r, err := New(d, FromConfig(cfg)...)
	require.NoError(t, err)
	require.Len(t, r.cfg.KnownPeers, 1)
	assert.Equal(t, testPeer(7), r.cfg.KnownPeers[0].ID)
	assert.Equal(t, cfg.DialTimeout.Std(), r.cfg.DialTimeout)
}
