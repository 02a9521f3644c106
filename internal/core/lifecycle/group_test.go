package lifecycle

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroup_StopCancelsAndWaits(t *testing.T) {
	g := NewGroup()
	require.NoError(t, g.Start())

	var exited atomic.Int32
	for i := 0; i < 3; i++ {
		require.NoError(t, g.Go("worker", func(ctx context.Context) error {
			<-ctx.Done()
			exited.Add(1)
			return ctx.Err()
		}))
	}
	assert.Equal(t, 3, g.Active()["worker"])

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, g.Stop(ctx))

	assert.Equal(t, int32(3), exited.Load())
	assert.Equal(t, PhaseStopped, g.Phase())
	assert.Empty(t, g.Active())
}

func TestGroup_GoAfterStop(t *testing.T) {
	g := NewGroup()
	require.NoError(t, g.Start())
	require.NoError(t, g.Stop(context.Background()))

	err := g.Go("late", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrStopped)
}

func TestGroup_TaskErrorSurfacesOnStop(t *testing.T) {
	g := NewGroup()
	require.NoError(t, g.Start())

	boom := errors.New("boom")
	require.NoError(t, g.Go("failing", func(context.Context) error { return boom }))

	assert.ErrorIs(t, g.Stop(context.Background()), boom)
}

func TestGroup_PanicRecovered(t *testing.T) {
	g := NewGroup()
	require.NoError(t, g.Start())
	require.NoError(t, g.Go("panicky", func(context.Context) error { panic("bad") }))

	err := g.Stop(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicky")
}

func TestGroup_StopTimeout(t *testing.T) {
	g := NewGroup()
	require.NoError(t, g.Start())

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	require.NoError(t, g.Go("stubborn", func(context.Context) error {
		<-release
		return nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, g.Stop(ctx), ErrStopTimeout)
}

func TestGroup_WaitFor(t *testing.T) {
	g := NewGroup()

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		done <- g.WaitFor(ctx, PhaseRunning)
	}()

	require.NoError(t, g.Start())
	assert.NoError(t, <-done)
	assert.Error(t, g.Start())
}
