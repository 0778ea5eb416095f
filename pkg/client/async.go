package client

import (
	"context"

	"github.com/nexosim/nexosim-go/pkg/simtime"
)

// Future is the pending result of a call started in the background.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Go runs fn on its own goroutine and returns a Future for its result.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.value, f.err = fn(ctx)
	}()
	return f
}

func goErr(ctx context.Context, fn func(context.Context) error) *Future[struct{}] {
	return Go(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available or ctx ends. Abandoning the
// wait does not cancel the call; cancel the context the call was started
// with for that.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result blocks until the call completes.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.value, f.err
}

// WaitAll waits for every future and returns the first error, if any.
func WaitAll[T any](ctx context.Context, futures ...*Future[T]) ([]T, error) {
	out := make([]T, len(futures))
	var firstErr error
	for i, f := range futures {
		v, err := f.Wait(ctx)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		out[i] = v
	}
	return out, firstErr
}

// AsyncSimulation exposes the operations of a Simulation as Futures. It
// shares the connection of the Simulation it was obtained from.
type AsyncSimulation struct {
	sim *Simulation
}

// Async returns the asynchronous view of s.
func (s *Simulation) Async() *AsyncSimulation {
	return &AsyncSimulation{sim: s}
}

// Sync returns the underlying synchronous handle.
func (a *AsyncSimulation) Sync() *Simulation {
	return a.sim
}

// Start is the Future form of Simulation.Start.
func (a *AsyncSimulation) Start(ctx context.Context, cfg any) *Future[struct{}] {
	return goErr(ctx, func(ctx context.Context) error { return a.sim.Start(ctx, cfg) })
}

// Terminate is the Future form of Simulation.Terminate.
func (a *AsyncSimulation) Terminate(ctx context.Context) *Future[struct{}] {
	return goErr(ctx, a.sim.Terminate)
}

// Halt is the Future form of Simulation.Halt.
func (a *AsyncSimulation) Halt(ctx context.Context) *Future[struct{}] {
	return goErr(ctx, a.sim.Halt)
}

// Time is the Future form of Simulation.Time.
func (a *AsyncSimulation) Time(ctx context.Context) *Future[simtime.MonotonicTime] {
	return Go(ctx, a.sim.Time)
}

// Step is the Future form of Simulation.Step.
func (a *AsyncSimulation) Step(ctx context.Context) *Future[simtime.MonotonicTime] {
	return Go(ctx, a.sim.Step)
}

// StepUnbounded is the Future form of Simulation.StepUnbounded.
func (a *AsyncSimulation) StepUnbounded(ctx context.Context) *Future[simtime.MonotonicTime] {
	return Go(ctx, a.sim.StepUnbounded)
}

// StepUntil is the Future form of Simulation.StepUntil.
func (a *AsyncSimulation) StepUntil(ctx context.Context, deadline simtime.Deadline) *Future[simtime.MonotonicTime] {
	return Go(ctx, func(ctx context.Context) (simtime.MonotonicTime, error) {
		return a.sim.StepUntil(ctx, deadline)
	})
}

// ScheduleEvent is the Future form of Simulation.ScheduleEvent.
func (a *AsyncSimulation) ScheduleEvent(ctx context.Context, deadline simtime.Deadline, source string, event any, opts ...ScheduleOption) *Future[*EventKey] {
	return Go(ctx, func(ctx context.Context) (*EventKey, error) {
		return a.sim.ScheduleEvent(ctx, deadline, source, event, opts...)
	})
}

// CancelEvent is the Future form of Simulation.CancelEvent.
func (a *AsyncSimulation) CancelEvent(ctx context.Context, key *EventKey) *Future[struct{}] {
	return goErr(ctx, func(ctx context.Context) error { return a.sim.CancelEvent(ctx, key) })
}

// ProcessEvent is the Future form of Simulation.ProcessEvent.
func (a *AsyncSimulation) ProcessEvent(ctx context.Context, source string, event any) *Future[struct{}] {
	return goErr(ctx, func(ctx context.Context) error { return a.sim.ProcessEvent(ctx, source, event) })
}

// ProcessQueryRaw is the Future form of Simulation.ProcessQueryRaw.
func (a *AsyncSimulation) ProcessQueryRaw(ctx context.Context, source string, request any) *Future[[][]byte] {
	return Go(ctx, func(ctx context.Context) ([][]byte, error) {
		return a.sim.ProcessQueryRaw(ctx, source, request)
	})
}

// ReadEventsRaw is the Future form of Simulation.ReadEventsRaw.
func (a *AsyncSimulation) ReadEventsRaw(ctx context.Context, sink string) *Future[[][]byte] {
	return Go(ctx, func(ctx context.Context) ([][]byte, error) {
		return a.sim.ReadEventsRaw(ctx, sink)
	})
}

// AwaitEventRaw is the Future form of Simulation.AwaitEventRaw.
func (a *AsyncSimulation) AwaitEventRaw(ctx context.Context, sink string, timeout simtime.Duration) *Future[[]byte] {
	return Go(ctx, func(ctx context.Context) ([]byte, error) {
		return a.sim.AwaitEventRaw(ctx, sink, timeout)
	})
}

// OpenSink is the Future form of Simulation.OpenSink.
func (a *AsyncSimulation) OpenSink(ctx context.Context, sink string) *Future[struct{}] {
	return goErr(ctx, func(ctx context.Context) error { return a.sim.OpenSink(ctx, sink) })
}

// CloseSink is the Future form of Simulation.CloseSink.
func (a *AsyncSimulation) CloseSink(ctx context.Context, sink string) *Future[struct{}] {
	return goErr(ctx, func(ctx context.Context) error { return a.sim.CloseSink(ctx, sink) })
}

// Save is the Future form of Simulation.Save.
func (a *AsyncSimulation) Save(ctx context.Context) *Future[[]byte] {
	return Go(ctx, a.sim.Save)
}

// Restore is the Future form of Simulation.Restore.
func (a *AsyncSimulation) Restore(ctx context.Context, state []byte) *Future[struct{}] {
	return goErr(ctx, func(ctx context.Context) error { return a.sim.Restore(ctx, state) })
}

// ProcessQueryAsync is the Future form of ProcessQuery.
func ProcessQueryAsync[T any](ctx context.Context, a *AsyncSimulation, source string, request any) *Future[[]T] {
	return Go(ctx, func(ctx context.Context) ([]T, error) {
		return ProcessQuery[T](ctx, a.sim, source, request)
	})
}

// ReadEventsAsync is the Future form of ReadEvents.
func ReadEventsAsync[T any](ctx context.Context, a *AsyncSimulation, sink string) *Future[[]T] {
	return Go(ctx, func(ctx context.Context) ([]T, error) {
		return ReadEvents[T](ctx, a.sim, sink)
	})
}

// AwaitEventAsync is the Future form of AwaitEvent.
func AwaitEventAsync[T any](ctx context.Context, a *AsyncSimulation, sink string, timeout simtime.Duration) *Future[T] {
	return Go(ctx, func(ctx context.Context) (T, error) {
		return AwaitEvent[T](ctx, a.sim, sink, timeout)
	})
}
