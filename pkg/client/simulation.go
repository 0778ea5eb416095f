package client

import (
	"context"
	"fmt"

	"github.com/nexosim/nexosim-go/internal/proto"
	simerrors "github.com/nexosim/nexosim-go/pkg/errors"
	"github.com/nexosim/nexosim-go/pkg/serialization"
	"github.com/nexosim/nexosim-go/pkg/simtime"
)

// Start initializes the simulation with a bench configuration. The
// configuration is CBOR-encoded; nil is sent as null. Starting an already
// started simulation resets it.
func (s *Simulation) Start(ctx context.Context, cfg any) error {
	data, err := serialization.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = s.invoke(ctx, "Init", proto.NewRequest("Init").SetBytes("cfg", data), 0)
	return err
}

// Terminate shuts the simulation down. The server keeps running and a new
// simulation can be started.
func (s *Simulation) Terminate(ctx context.Context) error {
	_, err := s.invoke(ctx, "Terminate", proto.NewRequest("Terminate"), 0)
	return err
}

// Halt requests that a running StepUnbounded or StepUntil stops at the next
// opportunity.
func (s *Simulation) Halt(ctx context.Context) error {
	_, err := s.invoke(ctx, "Halt", proto.NewRequest("Halt"), 0)
	return err
}

// Time returns the current simulation time.
func (s *Simulation) Time(ctx context.Context) (simtime.MonotonicTime, error) {
	return s.timeCall(ctx, "Time", proto.NewRequest("Time"))
}

// Step advances the simulation to the next scheduled event and processes
// every event scheduled at that time.
func (s *Simulation) Step(ctx context.Context) (simtime.MonotonicTime, error) {
	return s.timeCall(ctx, "Step", proto.NewRequest("Step"))
}

// StepUnbounded runs until no event remains or the simulation is halted.
func (s *Simulation) StepUnbounded(ctx context.Context) (simtime.MonotonicTime, error) {
	return s.timeCall(ctx, "StepUnbounded", proto.NewRequest("StepUnbounded"))
}

// StepUntil advances to an absolute time or by a duration, processing every
// event scheduled up to and including the deadline.
func (s *Simulation) StepUntil(ctx context.Context, deadline simtime.Deadline) (simtime.MonotonicTime, error) {
	req := proto.NewRequest("StepUntil")
	if err := setDeadline(req, deadline); err != nil {
		return simtime.MonotonicTime{}, err
	}
	return s.timeCall(ctx, "StepUntil", req)
}

func (s *Simulation) timeCall(ctx context.Context, method string, req *proto.Message) (simtime.MonotonicTime, error) {
	reply, err := s.invoke(ctx, method, req, 0)
	if err != nil {
		return simtime.MonotonicTime{}, err
	}
	if reply.Which("result") != "time" {
		return simtime.MonotonicTime{}, fmt.Errorf("%s: %w", method, simerrors.ErrUnexpectedResponse)
	}
	secs, nanos := reply.Timestamp("time")
	return simtime.NewMonotonicTime(secs, int64(nanos)), nil
}

func setDeadline(req *proto.Message, deadline simtime.Deadline) error {
	switch d := deadline.(type) {
	case simtime.MonotonicTime:
		req.SetTimestamp("time", d.Secs, int32(d.Nanos))
	case *simtime.MonotonicTime:
		req.SetTimestamp("time", d.Secs, int32(d.Nanos))
	case simtime.Duration:
		req.SetDuration("duration", d.Secs, int32(d.Nanos))
	case *simtime.Duration:
		req.SetDuration("duration", d.Secs, int32(d.Nanos))
	default:
		return fmt.Errorf("%w: deadline must be a MonotonicTime or a Duration, got %T", simerrors.ErrInvalidDeadline, deadline)
	}
	return nil
}

// ScheduleOption configures ScheduleEvent.
type ScheduleOption func(*scheduleOptions)

type scheduleOptions struct {
	period  *simtime.Duration
	withKey bool
}

// WithPeriod makes the event recur with the given period.
func WithPeriod(period simtime.Duration) ScheduleOption {
	return func(o *scheduleOptions) { o.period = &period }
}

// WithKey asks the server for a key so the event can be cancelled.
func WithKey() ScheduleOption {
	return func(o *scheduleOptions) { o.withKey = true }
}

// ScheduleEvent schedules an event from source at deadline. The returned key
// is nil unless WithKey is given.
func (s *Simulation) ScheduleEvent(ctx context.Context, deadline simtime.Deadline, source string, event any, opts ...ScheduleOption) (*EventKey, error) {
	var o scheduleOptions
	for _, opt := range opts {
		opt(&o)
	}

	data, err := serialization.Marshal(event)
	if err != nil {
		return nil, err
	}

	req := proto.NewRequest("ScheduleEvent").
		SetString("source_name", source).
		SetBytes("event", data).
		SetBool("with_key", o.withKey)
	if err := setDeadline(req, deadline); err != nil {
		return nil, err
	}
	if o.period != nil {
		req.SetDuration("period", o.period.Secs, int32(o.period.Nanos))
	}

	reply, err := s.invoke(ctx, "ScheduleEvent", req, 0)
	if err != nil {
		return nil, err
	}
	if reply.Which("result") != "key" {
		return nil, nil
	}
	key := reply.Get("key")
	return &EventKey{Subkey1: key.Uint64("subkey1"), Subkey2: key.Uint64("subkey2")}, nil
}

// CancelEvent cancels an event scheduled with a key.
func (s *Simulation) CancelEvent(ctx context.Context, key *EventKey) error {
	if key == nil {
		return fmt.Errorf("CancelEvent: %w: nil key", simerrors.ErrInvalidKey)
	}
	req := proto.NewRequest("CancelEvent")
	req.Mutable("key").SetUint64("subkey1", key.Subkey1).SetUint64("subkey2", key.Subkey2)
	_, err := s.invoke(ctx, "CancelEvent", req, 0)
	return err
}

// ProcessEvent broadcasts an event from source immediately. Simulation time
// is unchanged.
func (s *Simulation) ProcessEvent(ctx context.Context, source string, event any) error {
	data, err := serialization.Marshal(event)
	if err != nil {
		return err
	}
	req := proto.NewRequest("ProcessEvent").SetString("source_name", source).SetBytes("event", data)
	_, err = s.invoke(ctx, "ProcessEvent", req, 0)
	return err
}

// ProcessQueryRaw broadcasts a query from source and returns the encoded
// replies of every connected replier.
func (s *Simulation) ProcessQueryRaw(ctx context.Context, source string, request any) ([][]byte, error) {
	data, err := serialization.Marshal(request)
	if err != nil {
		return nil, err
	}
	req := proto.NewRequest("ProcessQuery").SetString("source_name", source).SetBytes("request", data)
	reply, err := s.invoke(ctx, "ProcessQuery", req, 0)
	if err != nil {
		return nil, err
	}
	return reply.RepeatedBytes("replies"), nil
}

// ReadEventsRaw drains the events buffered by a sink.
func (s *Simulation) ReadEventsRaw(ctx context.Context, sink string) ([][]byte, error) {
	reply, err := s.invoke(ctx, "ReadEvents", proto.NewRequest("ReadEvents").SetString("sink_name", sink), 0)
	if err != nil {
		return nil, err
	}
	return reply.RepeatedBytes("events"), nil
}

// AwaitEventRaw blocks until the sink receives an event or timeout elapses
// in wall-clock time. The call timeout is extended by timeout.
func (s *Simulation) AwaitEventRaw(ctx context.Context, sink string, timeout simtime.Duration) ([]byte, error) {
	req := proto.NewRequest("AwaitEvent").
		SetString("sink_name", sink).
		SetDuration("timeout", timeout.Secs, int32(timeout.Nanos))

	reply, err := s.invoke(ctx, "AwaitEvent", req, timeout.Std())
	if err != nil {
		return nil, err
	}
	if reply.Which("result") != "event" {
		return nil, fmt.Errorf("AwaitEvent: %w", simerrors.ErrUnexpectedResponse)
	}
	return reply.Bytes("event"), nil
}

// OpenSink enables the reception of events by a sink.
func (s *Simulation) OpenSink(ctx context.Context, sink string) error {
	_, err := s.invoke(ctx, "OpenSink", proto.NewRequest("OpenSink").SetString("sink_name", sink), 0)
	return err
}

// CloseSink disables the reception of events by a sink. Events already
// buffered can still be read.
func (s *Simulation) CloseSink(ctx context.Context, sink string) error {
	_, err := s.invoke(ctx, "CloseSink", proto.NewRequest("CloseSink").SetString("sink_name", sink), 0)
	return err
}

// Save returns an opaque snapshot of the simulation state.
func (s *Simulation) Save(ctx context.Context) ([]byte, error) {
	reply, err := s.invoke(ctx, "Save", proto.NewRequest("Save"), 0)
	if err != nil {
		return nil, err
	}
	if reply.Which("result") != "state" {
		return nil, fmt.Errorf("Save: %w", simerrors.ErrUnexpectedResponse)
	}
	return reply.Bytes("state"), nil
}

// Restore replaces the simulation state with a snapshot returned by Save.
func (s *Simulation) Restore(ctx context.Context, state []byte) error {
	_, err := s.invoke(ctx, "Restore", proto.NewRequest("Restore").SetBytes("state", state), 0)
	return err
}
