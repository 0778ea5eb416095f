package simtest

import (
	"fmt"

	simerrors "github.com/nexosim/nexosim-go/pkg/errors"
	"github.com/nexosim/nexosim-go/pkg/serialization"
	"github.com/nexosim/nexosim-go/pkg/simtime"
)

// EventHandler reacts to an event sent to a source. The event is raw CBOR.
type EventHandler func(b *Bench, event []byte) error

// QueryHandler answers a query sent to a query source with zero or more
// replies, each encoded as CBOR by the server.
type QueryHandler func(b *Bench, request []byte) ([]any, error)

// Initializer builds a bench from the configuration passed to Init.
type Initializer func(cfg []byte, b *Bench) error

type sink struct {
	open   bool
	events [][]byte
	notify chan struct{}
}

func (s *sink) push(event []byte) {
	if !s.open {
		return
	}
	s.events = append(s.events, event)
	close(s.notify)
	s.notify = make(chan struct{})
}

// Bench is the model side of the in-memory simulator: named sources,
// query sources and sinks, a clock and a scheduler. Handlers run with the
// server lock held and may use every Bench method.
type Bench struct {
	cfg        []byte
	time       simtime.MonotonicTime
	sources    map[string]EventHandler
	queries    map[string]QueryHandler
	sinks      map[string]*sink
	queue      eventQueue
	keys       map[eventKey]*scheduledEvent
	seq        uint64
	generation uint64
}

func newBench(cfg []byte, generation uint64) *Bench {
	return &Bench{
		cfg:        cfg,
		sources:    make(map[string]EventHandler),
		queries:    make(map[string]QueryHandler),
		sinks:      make(map[string]*sink),
		keys:       make(map[eventKey]*scheduledEvent),
		generation: generation,
	}
}

// AddSource registers an event source.
func (b *Bench) AddSource(name string, h EventHandler) {
	b.sources[name] = h
}

// AddQuery registers a query source.
func (b *Bench) AddQuery(name string, h QueryHandler) {
	b.queries[name] = h
}

// AddSink registers a sink, initially open or closed.
func (b *Bench) AddSink(name string, open bool) {
	b.sinks[name] = &sink{open: open, notify: make(chan struct{})}
}

// SetTime sets the clock. Intended for initializers.
func (b *Bench) SetTime(t simtime.MonotonicTime) {
	b.time = t
}

// Time returns the current simulation time.
func (b *Bench) Time() simtime.MonotonicTime {
	return b.time
}

// Emit sends a value to a sink. Values sent to a closed sink are dropped.
func (b *Bench) Emit(sinkName string, v any) error {
	s, ok := b.sinks[sinkName]
	if !ok {
		return fmt.Errorf("%w: %s", simerrors.ErrSinkNotFound, sinkName)
	}
	data, err := serialization.Marshal(v)
	if err != nil {
		return err
	}
	s.push(data)
	return nil
}

// ScheduleIn schedules an event from source after delay. Handlers use it to
// model self-scheduling behaviour.
func (b *Bench) ScheduleIn(delay simtime.Duration, source string, v any) error {
	data, err := serialization.Marshal(v)
	if err != nil {
		return err
	}
	_, ferr := b.schedule(b.time.Add(delay), source, data, simtime.Duration{}, false)
	if ferr != nil {
		return ferr
	}
	return nil
}

// Pending returns the number of scheduled events.
func (b *Bench) Pending() int {
	return b.queue.Len()
}

func (b *Bench) schedule(at simtime.MonotonicTime, source string, event []byte, period simtime.Duration, withKey bool) (*eventKey, *failure) {
	if !at.After(b.time) {
		return nil, fail(simerrors.CodeInvalidDeadline, "the deadline %s is not in the future of %s", at, b.time)
	}
	if _, ok := b.sources[source]; !ok {
		return nil, fail(simerrors.CodeSourceNotFound, "no source registered with the name '%s'", source)
	}
	if !serialization.Valid(event) {
		return nil, fail(simerrors.CodeInvalidMessage, "the event for source '%s' could not be decoded", source)
	}

	b.seq++
	evt := &scheduledEvent{time: at, seq: b.seq, source: source, event: event, period: period}
	if withKey {
		evt.key = &eventKey{subkey1: b.seq, subkey2: b.generation}
		b.keys[*evt.key] = evt
	}
	b.queue.push(evt)
	return evt.key, nil
}

func (b *Bench) cancel(key eventKey) *failure {
	evt, ok := b.keys[key]
	if !ok {
		return fail(simerrors.CodeInvalidKey, "invalid or expired event key")
	}
	delete(b.keys, key)
	b.queue.remove(evt)
	return nil
}

// fire processes one event: periodic events are rescheduled with the same
// key, one-shot keys expire.
func (b *Bench) fire(evt *scheduledEvent) *failure {
	if evt.periodic() {
		b.seq++
		evt.time = evt.time.Add(evt.period)
		evt.seq = b.seq
		b.queue.push(evt)
	} else if evt.key != nil {
		delete(b.keys, *evt.key)
	}
	return b.dispatch(evt.source, evt.event)
}

func (b *Bench) dispatch(source string, event []byte) (f *failure) {
	h, ok := b.sources[source]
	if !ok {
		return fail(simerrors.CodeSourceNotFound, "no source registered with the name '%s'", source)
	}

	defer func() {
		if r := recover(); r != nil {
			f = fail(simerrors.CodeSimulationPanic, "model panicked while processing an event from '%s': %v", source, r)
		}
	}()
	if err := h(b, event); err != nil {
		return failureFromError(err)
	}
	return nil
}

// stepSlice advances to the earliest scheduled time and processes every
// event due at that time.
func (b *Bench) stepSlice() *failure {
	if b.queue.Len() == 0 {
		return nil
	}
	t := b.queue.peek().time
	b.time = t
	for b.queue.Len() > 0 && b.queue.peek().time.Equal(t) {
		if f := b.fire(b.queue.pop()); f != nil {
			return f
		}
	}
	return nil
}

// stepUntil processes every event up to and including target and leaves
// the clock at target. halted is polled between time slices.
func (b *Bench) stepUntil(target simtime.MonotonicTime, halted func() bool) *failure {
	if target.Before(b.time) {
		return fail(simerrors.CodeInvalidDeadline, "the deadline %s lies in the past of %s", target, b.time)
	}
	for b.queue.Len() > 0 && !b.queue.peek().time.After(target) {
		if halted() {
			return fail(simerrors.CodeSimulationHalted, "the simulation was halted at %s", b.time)
		}
		if f := b.stepSlice(); f != nil {
			return f
		}
	}
	b.time = target
	return nil
}

func (b *Bench) stepUnbounded(halted func() bool) *failure {
	for b.queue.Len() > 0 {
		if halted() {
			return fail(simerrors.CodeSimulationHalted, "the simulation was halted at %s", b.time)
		}
		if f := b.stepSlice(); f != nil {
			return f
		}
	}
	return nil
}

func (b *Bench) query(source string, request []byte) (replies [][]byte, f *failure) {
	h, ok := b.queries[source]
	if !ok {
		return nil, fail(simerrors.CodeSourceNotFound, "no query source registered with the name '%s'", source)
	}
	if !serialization.Valid(request) {
		return nil, fail(simerrors.CodeInvalidMessage, "the request for query source '%s' could not be decoded", source)
	}

	defer func() {
		if r := recover(); r != nil {
			replies = nil
			f = fail(simerrors.CodeSimulationPanic, "model panicked while processing a query from '%s': %v", source, r)
		}
	}()
	values, err := h(b, request)
	if err != nil {
		return nil, failureFromError(err)
	}
	for _, v := range values {
		data, err := serialization.Marshal(v)
		if err != nil {
			return nil, fail(simerrors.CodeSimulationBadQuery, "reply could not be encoded: %v", err)
		}
		replies = append(replies, data)
	}
	return replies, nil
}

func (b *Bench) sink(name string) (*sink, *failure) {
	s, ok := b.sinks[name]
	if !ok {
		return nil, fail(simerrors.CodeSinkNotFound, "no sink registered with the name '%s'", name)
	}
	return s, nil
}

// failure is an error reported to the client in a reply's error member.
type failure struct {
	code    simerrors.Code
	message string
}

func (f *failure) Error() string {
	return fmt.Sprintf("%s: %s", f.code, f.message)
}

func fail(code simerrors.Code, format string, args ...interface{}) *failure {
	return &failure{code: code, message: fmt.Sprintf(format, args...)}
}

// failureFromError maps errors returned by handlers. Simulation errors keep
// their code, sentinels map to theirs, undecodable payloads are invalid
// messages and anything else is reported as a model panic.
func failureFromError(err error) *failure {
	var f *failure
	if simerrors.As(err, &f) {
		return f
	}
	if simerrors.IsSerializationError(err) {
		return &failure{code: simerrors.CodeInvalidMessage, message: err.Error()}
	}
	if code, ok := simerrors.GetCode(err); ok {
		var se *simerrors.SimulationError
		simerrors.As(err, &se)
		return &failure{code: code, message: se.Message}
	}
	for _, code := range simerrors.Codes() {
		if code != simerrors.CodeInternal && simerrors.Is(err, code.Sentinel()) {
			return &failure{code: code, message: err.Error()}
		}
	}
	return &failure{code: simerrors.CodeSimulationPanic, message: err.Error()}
}
