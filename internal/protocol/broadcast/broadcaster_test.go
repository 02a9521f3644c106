package broadcast

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-syncmesh/internal/core/identity"
	"github.com/dep2p/go-syncmesh/internal/core/membership"
	"github.com/dep2p/go-syncmesh/internal/protocol/wire"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

func testPeer(b byte) types.PeerID {
	var id types.PeerID
	id[0] = b
	return id
}

func testOp(lib types.LibraryID, field string) types.Operation {
	return types.Operation{
		ID:        types.NewOperationID(),
		Library:   lib,
		Actor:     types.NewActorID(),
		Timestamp: types.NewTimestamp(1700000000000, 0),
		Model:     "note",
		Record:    []byte("n1"),
		Kind:      types.OpUpdate,
		Field:     field,
		Value:     []byte("v"),
	}
}

func decodeOp(t *testing.T, raw []byte) types.Operation {
	t.Helper()
	op, err := wire.MustNew().DecodeOperation(raw)
	require.NoError(t, err)
	return op
}

func runBroadcaster(t *testing.T, b *Broadcaster) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(nil, wire.MustNew())
	assert.ErrorIs(t, err, ErrNilSender)
	_, err = New(NewMockSender(), nil)
	assert.ErrorIs(t, err, ErrNilCodec)
}

func TestBroadcaster_PreservesOrder(t *testing.T) {
	sender := NewMockSender(testPeer(1), testPeer(2))
	b, err := New(sender, wire.MustNew(), WithUnscoped())
	require.NoError(t, err)

	lib := types.NewLibraryID()
	var want []types.OperationID
	for _, f := range []string{"a", "b", "c"} {
		op := testOp(lib, f)
		want = append(want, op.ID)
		require.NoError(t, b.Enqueue(context.Background(), lib, op))
	}
	runBroadcaster(t, b)

	require.Eventually(t, func() bool { return len(sender.Deliveries()) == 3 }, 2*time.Second, 5*time.Millisecond)
	for i, d := range sender.Deliveries() {
		assert.True(t, d.All)
		assert.Equal(t, want[i], decodeOp(t, d.Data).ID)
	}
}

func TestBroadcaster_ScopedToMembers(t *testing.T) {
	a, b2, c := testPeer(1), testPeer(2), testPeer(3)
	lib, other := types.NewLibraryID(), types.NewLibraryID()
	sender := NewMockSender(a, b2, c)
	scope := StaticScope{lib: {a, c}}
	b, err := New(sender, wire.MustNew(), WithScope(scope))
	require.NoError(t, err)

	res, err := b.Publish(context.Background(), types.Ingress{Library: lib, Op: testOp(lib, "x")})
	require.NoError(t, err)
	assert.Equal(t, []types.PeerID{a, c}, res.Recipients)

	res, err = b.Publish(context.Background(), types.Ingress{Library: other, Op: testOp(other, "x")})
	require.NoError(t, err)
	assert.Empty(t, res.Recipients)

	deliveries := sender.Deliveries()
	require.Len(t, deliveries, 1)
	assert.False(t, deliveries[0].All)
	assert.Equal(t, []types.PeerID{a, c}, deliveries[0].Peers)
}

func TestBroadcaster_ScopeRefreshesLateJoiner(t *testing.T) {
	peer, outsider := testPeer(1), testPeer(2)
	lib := types.NewLibraryID()

	// 连接时两个节点都还没有持有 lib
	tbl := membership.NewTable()
	tbl.Set(peer, nil)
	tbl.Set(outsider, nil)
	q := membership.NewMockQuerier()
	q.Responses[peer] = types.LibrariesResponse([]types.LibraryInfo{{ID: lib}})
	q.Responses[outsider] = types.LibrariesResponse(nil)
	verifier := membership.NewVerifier(tbl, membership.NewRefresher(tbl, q, membership.StaticPeers{}, time.Minute))

	sender := NewMockSender(peer, outsider)
	b, err := New(sender, wire.MustNew(), WithScope(verifier))
	require.NoError(t, err)

	op := testOp(lib, "x")
	res, err := b.Publish(context.Background(), types.Ingress{Library: lib, Op: op})
	require.NoError(t, err)
	assert.Equal(t, []types.PeerID{peer}, res.Recipients)

	deliveries := sender.Deliveries()
	require.Len(t, deliveries, 1)
	assert.Equal(t, []types.PeerID{peer}, deliveries[0].Peers)
	assert.Equal(t, op.ID, decodeOp(t, deliveries[0].Data).ID)
}

func TestBroadcaster_UnscopedIgnoresScope(t *testing.T) {
	sender := NewMockSender(testPeer(1), testPeer(2))
	lib := types.NewLibraryID()
	b, err := New(sender, wire.MustNew(), WithScope(StaticScope{}), WithUnscoped())
	require.NoError(t, err)

	res, err := b.Publish(context.Background(), types.Ingress{Library: lib, Op: testOp(lib, "x")})
	require.NoError(t, err)
	assert.Len(t, res.Recipients, 2)
	assert.True(t, sender.Deliveries()[0].All)
}

func TestBroadcaster_PeerFailureIsolated(t *testing.T) {
	a, b2 := testPeer(1), testPeer(2)
	sender := NewMockSender(a, b2)
	sender.FailPeer(a, errors.New("reset"))
	b, err := New(sender, wire.MustNew(), WithUnscoped())
	require.NoError(t, err)

	lib := types.NewLibraryID()
	res, err := b.Publish(context.Background(), types.Ingress{Library: lib, Op: testOp(lib, "x")})
	require.NoError(t, err)
	assert.Len(t, res.Failed, 1)
	assert.Contains(t, res.Failed, a)

	// 后续操作照常发送
	sender.FailPeer(a, nil)
	res, err = b.Publish(context.Background(), types.Ingress{Library: lib, Op: testOp(lib, "y")})
	require.NoError(t, err)
	assert.Empty(t, res.Failed)
	assert.Len(t, sender.Deliveries(), 2)
}

func TestBroadcaster_SignsOperations(t *testing.T) {
	id, err := identity.Generate()
	require.NoError(t, err)
	sender := NewMockSender(testPeer(1))
	b, err := New(sender, wire.MustNew(), WithSigner(id), WithUnscoped())
	require.NoError(t, err)

	lib := types.NewLibraryID()
	_, err = b.Publish(context.Background(), types.Ingress{Library: lib, Op: testOp(lib, "x")})
	require.NoError(t, err)

	op := decodeOp(t, sender.Deliveries()[0].Data)
	signer, err := wire.VerifyOperation(&op)
	require.NoError(t, err)
	assert.Equal(t, id.PeerID(), signer)
}

func TestBroadcaster_EnqueueStampsLibrary(t *testing.T) {
	b, err := New(NewMockSender(), wire.MustNew(), WithQueueSize(4))
	require.NoError(t, err)
	lib := types.NewLibraryID()

	op := testOp(types.NilLibraryID, "x")
	require.NoError(t, b.TryEnqueue(lib, op))
	item := <-b.queue
	assert.Equal(t, lib, item.Op.Library)

	err = b.TryEnqueue(lib, testOp(types.NewLibraryID(), "x"))
	assert.ErrorIs(t, err, ErrLibraryMismatch)

	bad := testOp(lib, "x")
	bad.Model = ""
	assert.ErrorIs(t, b.TryEnqueue(lib, bad), types.ErrInvalidOperation)
}

func TestBroadcaster_QueueFull(t *testing.T) {
	b, err := New(NewMockSender(), wire.MustNew(), WithQueueSize(1))
	require.NoError(t, err)
	lib := types.NewLibraryID()

	require.NoError(t, b.TryEnqueue(lib, testOp(lib, "a")))
	assert.ErrorIs(t, b.TryEnqueue(lib, testOp(lib, "b")), ErrQueueFull)
	assert.Equal(t, 1, b.Pending())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, b.Enqueue(ctx, lib, testOp(lib, "c")), context.DeadlineExceeded)
}

func TestBroadcaster_ForwardsIngress(t *testing.T) {
	sender := NewMockSender(testPeer(1))
	ingress := make(chan types.Ingress, 4)
	b, err := New(sender, wire.MustNew(), WithIngress(ingress), WithUnscoped())
	require.NoError(t, err)
	require.True(t, b.HasIngress())
	runBroadcaster(t, b)

	lib := types.NewLibraryID()
	first, second := testOp(lib, "a"), testOp(lib, "b")
	ingress <- types.Ingress{Library: lib, Op: first}
	ingress <- types.Ingress{Library: lib, Op: second}
	close(ingress)

	require.NoError(t, b.Forward(context.Background()))
	require.Eventually(t, func() bool { return len(sender.Deliveries()) == 2 }, 2*time.Second, 5*time.Millisecond)
	d := sender.Deliveries()
	assert.Equal(t, first.ID, decodeOp(t, d[0].Data).ID)
	assert.Equal(t, second.ID, decodeOp(t, d[1].Data).ID)
}

func TestBroadcaster_EncodeFailureIsInvariant(t *testing.T) {
	sender := NewMockSender(testPeer(1))
	codec := wire.MustNew(wire.WithMaxMessageSize(32), wire.WithCompressThreshold(0))
	lib := types.NewLibraryID()
	item := types.Ingress{Library: lib, Op: testOp(lib, "x")}

	b, err := New(sender, codec, WithUnscoped())
	require.NoError(t, err)
	_, err = b.Publish(context.Background(), item)
	assert.ErrorIs(t, err, ErrInvariant)
	assert.Empty(t, sender.Deliveries())

	strict, err := New(sender, codec, WithUnscoped(), WithPanicOnInvariant(true))
	require.NoError(t, err)
	assert.Panics(t, func() {
		_, _ = strict.Publish(context.Background(), item)
	})
}
