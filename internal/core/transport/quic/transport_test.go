package quic

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-syncmesh/config"
	"github.com/dep2p/go-syncmesh/internal/core/identity"
	"github.com/dep2p/go-syncmesh/pkg/interfaces"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

func newTestTransport(t *testing.T) *Transport {
	t.Helper()
	id, err := identity.Generate()
	require.NoError(t, err)
	cfg := config.DefaultTransportConfig()
	cfg.ListenAddrs = []string{"127.0.0.1:0"}
	tr, err := New(id, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func waitEvent[T interfaces.Event](t *testing.T, tr *Transport) T {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-tr.Events():
			require.True(t, ok, "事件流已关闭")
			if v, ok := ev.(T); ok {
				return v
			}
		case <-deadline:
			var zero T
			t.Fatalf("等待 %T 超时", zero)
			return zero
		}
	}
}

func describe(tr *Transport) types.DiscoveredPeer {
	return types.DiscoveredPeer{ID: tr.LocalID(), Addrs: tr.ListenAddrs()}
}

func TestTransport_DialAuthenticates(t *testing.T) {
	a, b := newTestTransport(t), newTestTransport(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, a.Dial(ctx, describe(b)))
	assert.Equal(t, b.LocalID(), waitEvent[interfaces.PeerConnected](t, a).ID)
	assert.Equal(t, a.LocalID(), waitEvent[interfaces.PeerConnected](t, b).ID)

	// 已连接时再次拨号不建立新连接
	require.NoError(t, a.Dial(ctx, describe(b)))
	assert.Equal(t, []types.PeerID{b.LocalID()}, a.ConnectedPeers())
}

func TestTransport_DialWrongID(t *testing.T) {
	a, b := newTestTransport(t), newTestTransport(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	other, err := identity.Generate()
	require.NoError(t, err)
	err = a.Dial(ctx, types.DiscoveredPeer{ID: other.PeerID(), Addrs: b.ListenAddrs()})
	assert.ErrorIs(t, err, ErrPeerIDMismatch)
	assert.Empty(t, a.ConnectedPeers())
}

func TestTransport_DialErrors(t *testing.T) {
	a := newTestTransport(t)
	ctx := context.Background()
	assert.ErrorIs(t, a.Dial(ctx, describe(a)), ErrDialSelf)

	other, err := identity.Generate()
	require.NoError(t, err)
	assert.ErrorIs(t, a.Dial(ctx, types.DiscoveredPeer{ID: other.PeerID()}), ErrNoAddress)

	_, err = a.OpenUnicast(ctx, other.PeerID())
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestTransport_BroadcastAndUnicast(t *testing.T) {
	a, b := newTestTransport(t), newTestTransport(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, a.Dial(ctx, describe(b)))
	waitEvent[interfaces.PeerConnected](t, b)

	failed := a.Broadcast(ctx, []byte("hello"))
	assert.Empty(t, failed)

	msg := waitEvent[interfaces.PeerMessage](t, b)
	assert.Equal(t, a.LocalID(), msg.From)
	assert.Equal(t, types.StreamBroadcast, msg.Stream.Kind())
	data, err := io.ReadAll(msg.Stream)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	_ = msg.Stream.Close()

	s, err := a.OpenUnicast(ctx, b.LocalID())
	require.NoError(t, err)
	_, err = s.Write([]byte("ping"))
	require.NoError(t, err)
	require.NoError(t, s.CloseWrite())

	msg = waitEvent[interfaces.PeerMessage](t, b)
	assert.Equal(t, types.StreamUnicast, msg.Stream.Kind())
	req, err := io.ReadAll(msg.Stream)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(req))
	_, err = msg.Stream.Write([]byte("pong"))
	require.NoError(t, err)
	require.NoError(t, msg.Stream.CloseWrite())

	resp, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(resp))
	_ = s.Close()
}

func TestTransport_CloseNotifiesPeer(t *testing.T) {
	a, b := newTestTransport(t), newTestTransport(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, a.Dial(ctx, describe(b)))
	waitEvent[interfaces.PeerConnected](t, b)

	require.NoError(t, a.Close())
	assert.Equal(t, a.LocalID(), waitEvent[interfaces.PeerDisconnected](t, b).ID)

	_, err := a.OpenUnicast(ctx, b.LocalID())
	assert.ErrorIs(t, err, ErrTransportClosed)
}

type fakeDiscoverer struct {
	found   chan types.DiscoveredPeer
	started []string
}

func (f *fakeDiscoverer) Start(_ context.Context, addrs []string) error {
	f.started = addrs
	return nil
}
func (f *fakeDiscoverer) Found() <-chan types.DiscoveredPeer { return f.found }
func (f *fakeDiscoverer) Close() error                       { return nil }

func TestTransport_ForwardsDiscovery(t *testing.T) {
	id, err := identity.Generate()
	require.NoError(t, err)
	cfg := config.DefaultTransportConfig()
	cfg.ListenAddrs = []string{"127.0.0.1:0"}

	disc := &fakeDiscoverer{found: make(chan types.DiscoveredPeer, 1)}
	tr, err := New(id, cfg, WithDiscoverer(disc))
	require.NoError(t, err)
	defer tr.Close()
	assert.Equal(t, tr.ListenAddrs(), disc.started)

	other, err := identity.Generate()
	require.NoError(t, err)
	disc.found <- types.DiscoveredPeer{ID: other.PeerID(), Addrs: []string{"127.0.0.1:9"}}
	ev := waitEvent[interfaces.PeerDiscovered](t, tr)
	assert.Equal(t, other.PeerID(), ev.Peer.ID)
}

func TestVerifyPeerCertificate(t *testing.T) {
	id, err := identity.Generate()
	require.NoError(t, err)
	cert, err := selfSignedCert(id)
	require.NoError(t, err)
	require.NoError(t, verifyPeerCertificate(cert.Certificate, nil))
	assert.ErrorIs(t, verifyPeerCertificate(nil, nil), ErrInvalidCertificate)
}
