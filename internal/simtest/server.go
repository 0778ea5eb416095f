// Package simtest provides an in-memory simulation server speaking the
// simulation.v1 schema over a bufconn listener. It backs the client and
// command tests.
package simtest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nexosim/nexosim-go/internal/proto"
	simerrors "github.com/nexosim/nexosim-go/pkg/errors"
	"github.com/nexosim/nexosim-go/pkg/logger"
	"github.com/nexosim/nexosim-go/pkg/serialization"
	"github.com/nexosim/nexosim-go/pkg/simtime"
)

const (
	stateIdle int32 = iota
	stateRunning
	stateTerminated
)

// Server implements proto.Handler on top of a Bench built by an
// Initializer on every Init or Restore call.
type Server struct {
	init Initializer
	log  *logger.Logger

	mu         sync.Mutex
	bench      *Bench
	generation uint64

	state atomic.Int32
	halt  atomic.Bool
	calls sync.Map // method -> *atomic.Int64
}

// NewServer returns an idle server. A nil logger discards output.
func NewServer(init Initializer, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	return &Server{init: init, log: log.WithComponent("simtest")}
}

// Calls returns how many times method was invoked.
func (s *Server) Calls(method string) int64 {
	if v, ok := s.calls.Load(method); ok {
		return v.(*atomic.Int64).Load()
	}
	return 0
}

// Handle serves one call. Simulation failures are reported in the reply,
// never as gRPC errors.
func (s *Server) Handle(ctx context.Context, method string, req *proto.Message) (*proto.Message, error) {
	counter, _ := s.calls.LoadOrStore(method, new(atomic.Int64))
	counter.(*atomic.Int64).Add(1)

	reply := proto.NewReply(method)

	var f *failure
	switch method {
	case "Init":
		f = s.initialize(req.Bytes("cfg"), reply)
	case "Halt":
		f = s.haltSimulation(reply)
	case "AwaitEvent":
		f = s.awaitEvent(ctx, req, reply)
	case "Restore":
		f = s.restore(req.Bytes("state"), reply)
	default:
		f = s.withBench(func(b *Bench) *failure {
			return s.dispatch(b, method, req, reply)
		})
	}

	if f != nil {
		s.log.Debug("call failed", "method", method, "code", f.code.String(), "message", f.message)
		reply.SetError(f.code, f.message)
	}
	return reply, nil
}

func (s *Server) withBench(fn func(*Bench) *failure) *failure {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state.Load() {
	case stateIdle:
		return fail(simerrors.CodeSimulationNotStarted, "the simulation was not started")
	case stateTerminated:
		return fail(simerrors.CodeSimulationTerminated, "the simulation was terminated")
	}
	return fn(s.bench)
}

func (s *Server) halted() bool {
	return s.halt.Swap(false)
}

func (s *Server) build(cfg []byte) (b *Bench, f *failure) {
	s.generation++
	b = newBench(cfg, s.generation)

	defer func() {
		if r := recover(); r != nil {
			f = fail(simerrors.CodeInitializerPanic, "bench initializer panicked: %v", r)
		}
	}()
	if s.init != nil {
		if err := s.init(cfg, b); err != nil {
			return nil, fail(simerrors.CodeInitializerPanic, "bench initialization failed: %v", err)
		}
	}
	return b, nil
}

func (s *Server) initialize(cfg []byte, reply *proto.Message) *failure {
	if !serialization.Valid(cfg) {
		return fail(simerrors.CodeInvalidMessage, "the bench configuration could not be decoded")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, f := s.build(cfg)
	if f != nil {
		return f
	}
	s.bench = b
	s.halt.Store(false)
	s.state.Store(stateRunning)
	s.log.Debug("simulation initialized", "time", b.time.String())

	reply.SetEmpty("empty")
	return nil
}

func (s *Server) haltSimulation(reply *proto.Message) *failure {
	switch s.state.Load() {
	case stateIdle:
		return fail(simerrors.CodeSimulationNotStarted, "the simulation was not started")
	case stateTerminated:
		return fail(simerrors.CodeSimulationTerminated, "the simulation was terminated")
	}
	s.halt.Store(true)
	reply.SetEmpty("empty")
	return nil
}

func (s *Server) dispatch(b *Bench, method string, req, reply *proto.Message) *failure {
	switch method {
	case "Terminate":
		s.bench = nil
		s.state.Store(stateTerminated)
		reply.SetEmpty("empty")
		return nil

	case "Time":
		setTime(reply, b.time)
		return nil

	case "Step":
		if f := b.stepSlice(); f != nil {
			return f
		}
		setTime(reply, b.time)
		return nil

	case "StepUntil":
		target, f := readDeadline(b, req, false)
		if f != nil {
			return f
		}
		if f := b.stepUntil(target, s.halted); f != nil {
			return f
		}
		setTime(reply, b.time)
		return nil

	case "StepUnbounded":
		if f := b.stepUnbounded(s.halted); f != nil {
			return f
		}
		setTime(reply, b.time)
		return nil

	case "ScheduleEvent":
		return s.scheduleEvent(b, req, reply)

	case "CancelEvent":
		if !req.Has("key") {
			return fail(simerrors.CodeMissingArgument, "missing event key")
		}
		key := req.Get("key")
		if f := b.cancel(eventKey{subkey1: key.Uint64("subkey1"), subkey2: key.Uint64("subkey2")}); f != nil {
			return f
		}
		reply.SetEmpty("empty")
		return nil

	case "ProcessEvent":
		source := req.String("source_name")
		if _, ok := b.sources[source]; !ok {
			return fail(simerrors.CodeSourceNotFound, "no source registered with the name '%s'", source)
		}
		if !serialization.Valid(req.Bytes("event")) {
			return fail(simerrors.CodeInvalidMessage, "the event for source '%s' could not be decoded", source)
		}
		if f := b.dispatch(source, req.Bytes("event")); f != nil {
			return f
		}
		reply.SetEmpty("empty")
		return nil

	case "ProcessQuery":
		replies, f := b.query(req.String("source_name"), req.Bytes("request"))
		if f != nil {
			return f
		}
		reply.AppendBytes("replies", replies...).SetEmpty("empty")
		return nil

	case "ReadEvents":
		sk, f := b.sink(req.String("sink_name"))
		if f != nil {
			return f
		}
		events := sk.events
		sk.events = nil
		reply.AppendBytes("events", events...).SetEmpty("empty")
		return nil

	case "OpenSink", "CloseSink":
		sk, f := b.sink(req.String("sink_name"))
		if f != nil {
			return f
		}
		sk.open = method == "OpenSink"
		reply.SetEmpty("empty")
		return nil

	case "Save":
		state, err := serialization.Marshal(b.snapshot())
		if err != nil {
			return fail(simerrors.CodeInternal, "state could not be encoded: %v", err)
		}
		reply.SetBytes("state", state)
		return nil
	}

	return fail(simerrors.CodeInternal, "unsupported method %s", method)
}

func (s *Server) scheduleEvent(b *Bench, req, reply *proto.Message) *failure {
	at, f := readDeadline(b, req, true)
	if f != nil {
		return f
	}

	var period simtime.Duration
	if req.Has("period") {
		secs, nanos := req.Duration("period")
		period = simtime.NewDuration(secs, int64(nanos))
		if !period.IsPositive() {
			return fail(simerrors.CodeInvalidPeriod, "the period must be strictly positive, got %s", period)
		}
	}

	key, f := b.schedule(at, req.String("source_name"), req.Bytes("event"), period, req.Bool("with_key"))
	if f != nil {
		return f
	}

	if key != nil {
		reply.Mutable("key").SetUint64("subkey1", key.subkey1).SetUint64("subkey2", key.subkey2)
	} else {
		reply.SetEmpty("empty")
	}
	return nil
}

func (s *Server) awaitEvent(ctx context.Context, req, reply *proto.Message) *failure {
	name := req.String("sink_name")
	secs, nanos := req.Duration("timeout")
	timeout := simtime.NewDuration(secs, int64(nanos))
	if !timeout.IsPositive() && !timeout.IsZero() {
		return fail(simerrors.CodeInvalidMessage, "the timeout must not be negative")
	}

	timer := time.NewTimer(timeout.Std())
	defer timer.Stop()

	for {
		var (
			event  []byte
			notify chan struct{}
		)
		f := s.withBench(func(b *Bench) *failure {
			sk, f := b.sink(name)
			if f != nil {
				return f
			}
			if len(sk.events) > 0 {
				event = sk.events[0]
				sk.events = sk.events[1:]
				return nil
			}
			notify = sk.notify
			return nil
		})
		if f != nil {
			return f
		}
		if event != nil {
			reply.SetBytes("event", event)
			return nil
		}

		select {
		case <-notify:
		case <-timer.C:
			return fail(simerrors.CodeSinkReadTimeout, "no event was received by sink '%s' within %s", name, timeout)
		case <-ctx.Done():
			return fail(simerrors.CodeSinkReadTimeout, "the wait on sink '%s' was abandoned: %v", name, ctx.Err())
		}
	}
}

func (s *Server) restore(state []byte, reply *proto.Message) *failure {
	var snap snapshot
	if err := serialization.Unmarshal(state, &snap); err != nil {
		return fail(simerrors.CodeInvalidMessage, "the state could not be decoded: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, f := s.build(snap.Cfg)
	if f != nil {
		return f
	}
	if f := b.restore(snap); f != nil {
		return f
	}
	s.bench = b
	s.halt.Store(false)
	s.state.Store(stateRunning)

	reply.SetEmpty("empty")
	return nil
}

func setTime(reply *proto.Message, t simtime.MonotonicTime) {
	reply.SetTimestamp("time", t.Secs, int32(t.Nanos))
}

// readDeadline resolves the deadline oneof against the current time. A
// relative deadline must be strictly positive when scheduling.
func readDeadline(b *Bench, req *proto.Message, strict bool) (simtime.MonotonicTime, *failure) {
	switch req.Which("deadline") {
	case "time":
		secs, nanos := req.Timestamp("time")
		if nanos < 0 || nanos >= 1_000_000_000 {
			return simtime.MonotonicTime{}, fail(simerrors.CodeInvalidTime, "invalid nanoseconds %d", nanos)
		}
		return simtime.NewMonotonicTime(secs, int64(nanos)), nil
	case "duration":
		secs, nanos := req.Duration("duration")
		d := simtime.NewDuration(secs, int64(nanos))
		if d.Secs < 0 || (strict && !d.IsPositive()) {
			return simtime.MonotonicTime{}, fail(simerrors.CodeInvalidDeadline, "invalid relative deadline %s", d)
		}
		return b.time.Add(d), nil
	}
	return simtime.MonotonicTime{}, fail(simerrors.CodeMissingArgument, "missing deadline")
}
