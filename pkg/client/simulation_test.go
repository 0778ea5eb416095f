package client

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"

	"github.com/nexosim/nexosim-go/internal/simtest"
	"github.com/nexosim/nexosim-go/pkg/config"
	simerrors "github.com/nexosim/nexosim-go/pkg/errors"
	"github.com/nexosim/nexosim-go/pkg/logger"
	"github.com/nexosim/nexosim-go/pkg/simtime"
)

func startBench(t *testing.T, serverOpts ...grpc.ServerOption) *simtest.Listener {
	t.Helper()
	l := simtest.Start(simtest.NewServer(simtest.Demo, nil), serverOpts...)
	t.Cleanup(l.Stop)
	return l
}

func connect(t *testing.T, l *simtest.Listener, opts ...Option) *Simulation {
	t.Helper()
	base := []Option{
		WithDialer(l.Dialer()),
		WithLogger(logger.Discard()),
		WithCallTimeout(5 * time.Second),
	}
	sim, err := NewSimulation(simtest.Address, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sim.Close() })
	return sim
}

func newStarted(t *testing.T, startSecs int64) *Simulation {
	t.Helper()
	sim := connect(t, startBench(t))
	require.NoError(t, sim.Start(context.Background(), simtest.DemoConfig{StartSecs: startSecs}))
	return sim
}

func TestStartAndTime(t *testing.T) {
	sim := newStarted(t, 42)

	now, err := sim.Time(context.Background())
	require.NoError(t, err)
	assert.Equal(t, simtime.NewMonotonicTime(42, 0), now)
}

func TestCallsBeforeStartFail(t *testing.T) {
	sim := connect(t, startBench(t))

	_, err := sim.Time(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, simerrors.ErrSimulationNotStarted)
	assert.True(t, simerrors.IsSimulationError(err))

	code, ok := simerrors.GetCode(err)
	assert.True(t, ok)
	assert.Equal(t, simerrors.CodeSimulationNotStarted, code)
}

func TestScheduleStepAndRead(t *testing.T) {
	ctx := context.Background()
	sim := newStarted(t, 0)

	key, err := sim.ScheduleEvent(ctx, simtime.Seconds(1), "input", "first")
	require.NoError(t, err)
	assert.Nil(t, key)

	_, err = sim.ScheduleEvent(ctx, simtime.NewMonotonicTime(3, 0), "input", map[string]int{"n": 2})
	require.NoError(t, err)

	now, err := sim.Step(ctx)
	require.NoError(t, err)
	assert.Equal(t, simtime.NewMonotonicTime(1, 0), now)

	events, err := ReadEvents[string](ctx, sim, "output")
	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, events)

	now, err = sim.StepUnbounded(ctx)
	require.NoError(t, err)
	assert.Equal(t, simtime.NewMonotonicTime(3, 0), now)

	type payload struct {
		N int `cbor:"n"`
	}
	decoded, err := ReadEvents[payload](ctx, sim, "output")
	require.NoError(t, err)
	assert.Equal(t, []payload{{N: 2}}, decoded)
}

func TestStepUntil(t *testing.T) {
	ctx := context.Background()
	sim := newStarted(t, 10)

	now, err := sim.StepUntil(ctx, simtime.Seconds(5))
	require.NoError(t, err)
	assert.Equal(t, simtime.NewMonotonicTime(15, 0), now)

	now, err = sim.StepUntil(ctx, simtime.NewMonotonicTime(20, 500))
	require.NoError(t, err)
	assert.Equal(t, simtime.NewMonotonicTime(20, 500), now)

	_, err = sim.StepUntil(ctx, simtime.NewMonotonicTime(1, 0))
	assert.ErrorIs(t, err, simerrors.ErrInvalidDeadline)

	_, err = sim.StepUntil(ctx, nil)
	assert.ErrorIs(t, err, simerrors.ErrInvalidDeadline)
}

func TestPeriodicEventAndCancel(t *testing.T) {
	ctx := context.Background()
	sim := newStarted(t, 0)
	require.NoError(t, sim.OpenSink(ctx, "count"))

	key, err := sim.ScheduleEvent(ctx, simtime.Seconds(1), "counter", nil, WithPeriod(simtime.Seconds(1)), WithKey())
	require.NoError(t, err)
	require.NotNil(t, key)

	_, err = sim.StepUntil(ctx, simtime.Seconds(2))
	require.NoError(t, err)

	counts, err := ReadEvents[uint64](ctx, sim, "count")
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, counts)

	require.NoError(t, sim.CancelEvent(ctx, key))
	assert.ErrorIs(t, sim.CancelEvent(ctx, key), simerrors.ErrInvalidKey)
	assert.ErrorIs(t, sim.CancelEvent(ctx, nil), simerrors.ErrInvalidKey)

	_, err = sim.ScheduleEvent(ctx, simtime.Seconds(1), "counter", nil, WithPeriod(simtime.Duration{}))
	assert.ErrorIs(t, err, simerrors.ErrInvalidPeriod)
}

func TestProcessEventAndQuery(t *testing.T) {
	ctx := context.Background()
	sim := newStarted(t, 0)

	require.NoError(t, sim.ProcessEvent(ctx, "input", []int{1, 2}))
	events, err := ReadEvents[[]int](ctx, sim, "output")
	require.NoError(t, err)
	assert.Equal(t, [][]int{{1, 2}}, events)

	replies, err := ProcessQuery[int64](ctx, sim, "double", 21)
	require.NoError(t, err)
	assert.Equal(t, []int64{42}, replies)

	raw, err := sim.ProcessQueryRaw(ctx, "double", 1)
	require.NoError(t, err)
	assert.Len(t, raw, 1)

	err = sim.ProcessEvent(ctx, "missing", nil)
	assert.ErrorIs(t, err, simerrors.ErrSourceNotFound)
	assert.True(t, simerrors.IsNotFoundError(err))

	_, err = ReadEvents[any](ctx, sim, "missing")
	assert.ErrorIs(t, err, simerrors.ErrSinkNotFound)
}

func TestTypedDecodeMismatch(t *testing.T) {
	ctx := context.Background()
	sim := newStarted(t, 0)

	require.NoError(t, sim.ProcessEvent(ctx, "input", "not a number"))
	_, err := ReadEvents[int](ctx, sim, "output")
	require.Error(t, err)
	assert.True(t, simerrors.IsSerializationError(err))
}

func TestAwaitEvent(t *testing.T) {
	ctx := context.Background()
	sim := newStarted(t, 0)

	_, err := AwaitEvent[string](ctx, sim, "output", simtime.DurationOf(20*time.Millisecond))
	assert.ErrorIs(t, err, simerrors.ErrSinkReadTimeout)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = sim.ProcessEvent(context.Background(), "input", "hello")
	}()

	v, err := AwaitEvent[string](ctx, sim, "output", simtime.Seconds(5))
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func TestAwaitEventWithVeryLongTimeout(t *testing.T) {
	ctx := context.Background()
	sim := newStarted(t, 0)

	go func() {
		time.Sleep(200 * time.Millisecond)
		_ = sim.ProcessEvent(context.Background(), "input", "late")
	}()

	v, err := AwaitEvent[string](ctx, sim, "output", simtime.Duration{Secs: math.MaxInt64 / 2})
	require.NoError(t, err)
	assert.Equal(t, "late", v)
}

func TestAddTimeoutSaturates(t *testing.T) {
	assert.Equal(t, 7*time.Second, addTimeout(5*time.Second, 2*time.Second))
	assert.Equal(t, 5*time.Second, addTimeout(5*time.Second, 0))
	assert.Equal(t, time.Duration(math.MaxInt64), addTimeout(5*time.Second, math.MaxInt64))
	assert.Equal(t, time.Duration(math.MaxInt64), addTimeout(math.MaxInt64-1, 2))
}

func TestSinkOpenClose(t *testing.T) {
	ctx := context.Background()
	sim := newStarted(t, 0)

	require.NoError(t, sim.CloseSink(ctx, "output"))
	require.NoError(t, sim.ProcessEvent(ctx, "input", 1))
	events, err := sim.ReadEventsRaw(ctx, "output")
	require.NoError(t, err)
	assert.Empty(t, events)

	require.NoError(t, sim.OpenSink(ctx, "output"))
	require.NoError(t, sim.ProcessEvent(ctx, "input", 2))
	events, err = sim.ReadEventsRaw(ctx, "output")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestSaveRestore(t *testing.T) {
	ctx := context.Background()
	sim := newStarted(t, 0)

	_, err := sim.ScheduleEvent(ctx, simtime.Seconds(4), "input", "scheduled")
	require.NoError(t, err)

	state, err := sim.Save(ctx)
	require.NoError(t, err)

	_, err = sim.StepUnbounded(ctx)
	require.NoError(t, err)
	_, err = sim.ReadEventsRaw(ctx, "output")
	require.NoError(t, err)

	require.NoError(t, sim.Restore(ctx, state))
	now, err := sim.Time(ctx)
	require.NoError(t, err)
	assert.Equal(t, simtime.Epoch, now)

	now, err = sim.Step(ctx)
	require.NoError(t, err)
	assert.Equal(t, simtime.NewMonotonicTime(4, 0), now)

	events, err := ReadEvents[string](ctx, sim, "output")
	require.NoError(t, err)
	assert.Equal(t, []string{"scheduled"}, events)
}

func TestHaltAndTerminate(t *testing.T) {
	ctx := context.Background()
	sim := newStarted(t, 0)

	_, err := sim.ScheduleEvent(ctx, simtime.Seconds(1), "counter", nil, WithPeriod(simtime.Seconds(1)))
	require.NoError(t, err)

	require.NoError(t, sim.Halt(ctx))
	_, err = sim.StepUnbounded(ctx)
	assert.ErrorIs(t, err, simerrors.ErrSimulationHalted)

	require.NoError(t, sim.Terminate(ctx))
	_, err = sim.Time(ctx)
	assert.ErrorIs(t, err, simerrors.ErrSimulationTerminated)
}

func TestModelFailureSurfaces(t *testing.T) {
	sim := newStarted(t, 0)

	err := sim.ProcessEvent(context.Background(), "fail", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, simerrors.ErrSimulationPanic)
	assert.Contains(t, err.Error(), "ProcessEvent")
}

func TestCloseIsIdempotent(t *testing.T) {
	sim := newStarted(t, 0)

	require.NoError(t, sim.Close())
	require.NoError(t, sim.Close())

	_, err := sim.Time(context.Background())
	assert.ErrorIs(t, err, simerrors.ErrClosed)
	assert.ErrorIs(t, sim.Start(context.Background(), nil), simerrors.ErrClosed)
}

func TestTransportError(t *testing.T) {
	l := startBench(t)
	sim := connect(t, l)
	l.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := sim.Time(ctx)
	require.Error(t, err)
	assert.True(t, simerrors.IsTransportError(err))
	assert.False(t, simerrors.IsSimulationError(err))
}

func TestContextCancellation(t *testing.T) {
	sim := newStarted(t, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sim.Time(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, simerrors.IsContextError(err))
}

func TestCallIDMetadata(t *testing.T) {
	ids := make(chan string, 1)
	capture := func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		if v := md.Get(CallIDHeader); len(v) > 0 {
			select {
			case ids <- v[0]:
			default:
			}
		}
		return handler(ctx, req)
	}

	sim := connect(t, startBench(t, grpc.UnaryInterceptor(capture)))
	_, _ = sim.Time(context.Background())

	select {
	case id := <-ids:
		assert.Len(t, id, 20)
	case <-time.After(time.Second):
		t.Fatal("no call id received")
	}
}

func TestRateLimit(t *testing.T) {
	sim := connect(t, startBench(t), WithRateLimit(0.001, 1))

	_, err := sim.Time(context.Background())
	require.ErrorIs(t, err, simerrors.ErrSimulationNotStarted)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = sim.Time(ctx)
	require.Error(t, err)
	var te *simerrors.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, codes.ResourceExhausted, te.StatusCode())
}

func TestNewSimulationFromConfig(t *testing.T) {
	l := startBench(t)
	server := &config.Server{
		Address:     simtest.Address,
		CallTimeout: time.Second,
		RateLimit:   100,
		Burst:       10,
	}

	sim, err := NewSimulationFromConfig(server, WithDialer(l.Dialer()), WithLogger(logger.Discard()))
	require.NoError(t, err)
	defer sim.Close()

	assert.Equal(t, simtest.Address, sim.Address())
	require.NoError(t, sim.Start(context.Background(), nil))

	_, err = NewSimulationFromConfig(nil)
	assert.Error(t, err)

	_, err = NewSimulationFromConfig(&config.Server{Address: "a:1", TLS: &config.TLSConfig{CA: "garbage"}})
	assert.Error(t, err)
}

func TestNewSimulationRejectsBadAddress(t *testing.T) {
	_, err := NewSimulation("no-port")
	assert.ErrorIs(t, err, simerrors.ErrInvalidAddress)
}
