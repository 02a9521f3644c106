package membership

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-syncmesh/pkg/types"
)

func testPeer(b byte) types.PeerID {
	var id types.PeerID
	id[0] = b
	return id
}

func TestTable_Basic(t *testing.T) {
	tbl := NewTable()
	lib1, lib2 := types.NewLibraryID(), types.NewLibraryID()
	a, b := testPeer(1), testPeer(2)

	tbl.Set(a, []types.LibraryID{lib1, lib2})
	tbl.Add(b, lib1)

	assert.True(t, tbl.IsMember(a, lib2))
	assert.False(t, tbl.IsMember(b, lib2))
	assert.ElementsMatch(t, []types.PeerID{a, b}, tbl.Members(lib1))
	assert.Len(t, tbl.Libraries(a), 2)

	tbl.Set(a, nil)
	assert.True(t, tbl.Known(a))
	assert.False(t, tbl.IsMember(a, lib1))

	tbl.Remove(a)
	assert.False(t, tbl.Known(a))
	assert.Equal(t, 1, tbl.Size())
}

func TestRefresher_Refresh(t *testing.T) {
	tbl := NewTable()
	q := NewMockQuerier()
	lib := types.NewLibraryID()
	peer := testPeer(1)
	q.Responses[peer] = types.LibrariesResponse([]types.LibraryInfo{{ID: lib, Name: "docs"}})

	r := NewRefresher(tbl, q, StaticPeers{peer}, time.Minute)
	require.NoError(t, r.Refresh(context.Background(), peer))
	assert.True(t, tbl.IsMember(peer, lib))
}

func TestRefresher_RefreshErrors(t *testing.T) {
	tbl := NewTable()
	q := NewMockQuerier()
	a, b, c := testPeer(1), testPeer(2), testPeer(3)
	q.Errs[a] = errors.New("boom")
	q.Responses[b] = types.NoneResponse()
	q.Responses[c] = types.ErrorResponse(types.ErrCodeInternal, "nope")

	r := NewRefresher(tbl, q, StaticPeers{}, time.Minute)
	assert.Error(t, r.Refresh(context.Background(), a))
	assert.ErrorIs(t, r.Refresh(context.Background(), b), ErrUnexpectedResponse)
	assert.Error(t, r.Refresh(context.Background(), c))
	assert.Equal(t, 0, tbl.Size())
}

func TestRefresher_RunTriggersAndTicks(t *testing.T) {
	tbl := NewTable()
	q := NewMockQuerier()
	lib := types.NewLibraryID()
	a, b := testPeer(1), testPeer(2)
	q.Responses[a] = types.LibrariesResponse([]types.LibraryInfo{{ID: lib}})
	q.Responses[b] = types.LibrariesResponse([]types.LibraryInfo{{ID: lib}})

	mock := clock.NewMock()
	r := NewRefresher(tbl, q, StaticPeers{a, b}, 30*time.Second, WithClock(mock))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	r.Trigger(a)
	assert.Eventually(t, func() bool { return tbl.IsMember(a, lib) }, time.Second, 5*time.Millisecond)
	assert.False(t, tbl.Known(b))

	assert.Eventually(t, func() bool {
		mock.Add(30 * time.Second)
		return tbl.IsMember(b, lib)
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestVerifier_RefreshesOnMiss(t *testing.T) {
	tbl := NewTable()
	q := NewMockQuerier()
	lib := types.NewLibraryID()
	peer := testPeer(1)
	q.Responses[peer] = types.LibrariesResponse([]types.LibraryInfo{{ID: lib}})

	mock := clock.NewMock()
	v := NewVerifier(tbl, NewRefresher(tbl, q, StaticPeers{}, time.Minute), WithVerifierClock(mock))

	assert.True(t, v.Verify(context.Background(), peer, lib))
	assert.Equal(t, 1, q.CallCount())

	// 命中成员表不再刷新
	assert.True(t, v.Verify(context.Background(), peer, lib))
	assert.Equal(t, 1, q.CallCount())

	// 同一 (节点, library) 在最小间隔内不重复刷新
	other := types.NewLibraryID()
	assert.False(t, v.Verify(context.Background(), peer, other))
	assert.Equal(t, 2, q.CallCount())
	assert.False(t, v.Verify(context.Background(), peer, other))
	assert.Equal(t, 2, q.CallCount())

	mock.Add(2 * DefaultMinRefreshInterval)
	q.Responses[peer] = types.LibrariesResponse([]types.LibraryInfo{{ID: lib}, {ID: other}})
	assert.True(t, v.Verify(context.Background(), peer, other))
	assert.Equal(t, 3, q.CallCount())
}

func TestVerifier_RefreshFailure(t *testing.T) {
	tbl := NewTable()
	q := NewMockQuerier()
	peer := testPeer(1)
	q.Errs[peer] = errors.New("unreachable")

	v := NewVerifier(tbl, NewRefresher(tbl, q, StaticPeers{}, time.Minute), WithMinRefreshInterval(0))
	assert.False(t, v.Verify(context.Background(), peer, types.NewLibraryID()))
	assert.False(t, v.Verify(context.Background(), peer, types.NewLibraryID()))
	assert.Equal(t, 2, q.CallCount())

	static := NewVerifier(tbl, nil)
	tbl.Add(peer, types.NewLibraryID())
	assert.False(t, static.Verify(context.Background(), peer, types.NewLibraryID()))
}

func TestVerifier_Filter(t *testing.T) {
	tbl := NewTable()
	q := NewMockQuerier()
	lib := types.NewLibraryID()
	member, joined, absent, unreachable := testPeer(1), testPeer(2), testPeer(3), testPeer(4)

	// 连接时的刷新早于 joined 加入 lib
	tbl.Set(member, []types.LibraryID{lib})
	tbl.Set(joined, nil)
	tbl.Set(absent, nil)
	q.Responses[joined] = types.LibrariesResponse([]types.LibraryInfo{{ID: lib}})
	q.Responses[absent] = types.LibrariesResponse(nil)
	q.Errs[unreachable] = errors.New("unreachable")

	mock := clock.NewMock()
	v := NewVerifier(tbl, NewRefresher(tbl, q, StaticPeers{}, time.Minute), WithVerifierClock(mock))

	peers := []types.PeerID{member, joined, absent, unreachable}
	assert.Equal(t, []types.PeerID{member, joined, unreachable}, v.Filter(context.Background(), peers, lib))
	assert.True(t, tbl.IsMember(joined, lib))
	assert.Equal(t, 3, q.CallCount())

	// 刷新被限流时成员关系未知，照常保留
	assert.Equal(t, peers, v.Filter(context.Background(), peers, lib))
	assert.Equal(t, 3, q.CallCount())
}

func TestVerifier_FilterWithoutRefresher(t *testing.T) {
	tbl := NewTable()
	lib := types.NewLibraryID()
	member, absent, unknown := testPeer(1), testPeer(2), testPeer(3)
	tbl.Set(member, []types.LibraryID{lib})
	tbl.Set(absent, nil)

	v := NewVerifier(tbl, nil)
	got := v.Filter(context.Background(), []types.PeerID{member, absent, unknown}, lib)
	assert.Equal(t, []types.PeerID{member, unknown}, got)
}
