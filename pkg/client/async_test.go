package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexosim/nexosim-go/internal/simtest"
	simerrors "github.com/nexosim/nexosim-go/pkg/errors"
	"github.com/nexosim/nexosim-go/pkg/simtime"
)

func TestFuture(t *testing.T) {
	release := make(chan struct{})
	f := Go(context.Background(), func(context.Context) (int, error) {
		<-release
		return 7, nil
	})

	select {
	case <-f.Done():
		t.Fatal("future completed early")
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	v, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	v, err = f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestWaitAll(t *testing.T) {
	boom := errors.New("boom")
	ok := Go(context.Background(), func(context.Context) (int, error) { return 1, nil })
	bad := Go(context.Background(), func(context.Context) (int, error) { return 0, boom })

	values, err := WaitAll(context.Background(), ok, bad)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{1, 0}, values)
}

func TestAsyncSimulation(t *testing.T) {
	ctx := context.Background()
	sim := connect(t, startBench(t))
	async := sim.Async()
	assert.Same(t, sim, async.Sync())

	_, err := async.Start(ctx, simtest.DemoConfig{StartSecs: 1}).Wait(ctx)
	require.NoError(t, err)

	key, err := async.ScheduleEvent(ctx, simtime.Seconds(2), "input", "later", WithKey()).Wait(ctx)
	require.NoError(t, err)
	require.NotNil(t, key)

	_, err = async.ProcessEvent(ctx, "input", "now").Wait(ctx)
	require.NoError(t, err)

	now, err := async.StepUntil(ctx, simtime.Seconds(5)).Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, simtime.NewMonotonicTime(6, 0), now)

	events, err := ReadEventsAsync[string](ctx, async, "output").Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"now", "later"}, events)

	replies, err := ProcessQueryAsync[int](ctx, async, "double", 4).Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{8}, replies)

	// Concurrent queries share one connection.
	futures := make([]*Future[[]int], 8)
	for i := range futures {
		futures[i] = ProcessQueryAsync[int](ctx, async, "double", i)
	}
	results, err := WaitAll(ctx, futures...)
	require.NoError(t, err)
	for i, r := range results {
		assert.Equal(t, []int{2 * i}, r)
	}

	awaited := AwaitEventAsync[string](ctx, async, "output", simtime.Seconds(5))
	_, err = async.ProcessEvent(ctx, "input", "awaited").Wait(ctx)
	require.NoError(t, err)
	v, err := awaited.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "awaited", v)

	state, err := async.Save(ctx).Wait(ctx)
	require.NoError(t, err)
	_, err = async.Restore(ctx, state).Wait(ctx)
	require.NoError(t, err)

	t0, err := async.Time(ctx).Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, now, t0)

	_, err = async.CancelEvent(ctx, key).Wait(ctx)
	assert.ErrorIs(t, err, simerrors.ErrInvalidKey)

	_, err = async.Terminate(ctx).Wait(ctx)
	require.NoError(t, err)
	_, err = async.Step(ctx).Wait(ctx)
	assert.ErrorIs(t, err, simerrors.ErrSimulationTerminated)
}
