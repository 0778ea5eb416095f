package simtest

import (
	"sort"

	simerrors "github.com/nexosim/nexosim-go/pkg/errors"
	"github.com/nexosim/nexosim-go/pkg/simtime"
)

// snapshot is the CBOR form of a saved bench. Handlers are not saved: the
// bench is rebuilt from Cfg on restore and the dynamic state reapplied.
type snapshot struct {
	Cfg   []byte                  `cbor:"cfg"`
	Time  simtime.MonotonicTime   `cbor:"time"`
	Seq   uint64                  `cbor:"seq"`
	Sinks map[string]sinkSnapshot `cbor:"sinks"`
	Queue []eventSnapshot         `cbor:"queue"`
}

type sinkSnapshot struct {
	Open   bool     `cbor:"open"`
	Events [][]byte `cbor:"events"`
}

type eventSnapshot struct {
	Time    simtime.MonotonicTime `cbor:"time"`
	Seq     uint64                `cbor:"seq"`
	Source  string                `cbor:"source"`
	Event   []byte                `cbor:"event"`
	Period  simtime.Duration      `cbor:"period"`
	Keyed   bool                  `cbor:"keyed"`
	Subkey1 uint64                `cbor:"subkey1"`
	Subkey2 uint64                `cbor:"subkey2"`
}

func (b *Bench) snapshot() snapshot {
	snap := snapshot{
		Cfg:   b.cfg,
		Time:  b.time,
		Seq:   b.seq,
		Sinks: make(map[string]sinkSnapshot, len(b.sinks)),
	}
	for name, s := range b.sinks {
		snap.Sinks[name] = sinkSnapshot{Open: s.open, Events: s.events}
	}
	for _, evt := range b.queue {
		es := eventSnapshot{
			Time:   evt.time,
			Seq:    evt.seq,
			Source: evt.source,
			Event:  evt.event,
			Period: evt.period,
		}
		if evt.key != nil {
			es.Keyed = true
			es.Subkey1 = evt.key.subkey1
			es.Subkey2 = evt.key.subkey2
		}
		snap.Queue = append(snap.Queue, es)
	}
	sort.Slice(snap.Queue, func(i, j int) bool { return snap.Queue[i].Seq < snap.Queue[j].Seq })
	return snap
}

func (b *Bench) restore(snap snapshot) *failure {
	for name, ss := range snap.Sinks {
		s, ok := b.sinks[name]
		if !ok {
			return fail(simerrors.CodeInvalidMessage, "the saved state refers to unknown sink '%s'", name)
		}
		s.open = ss.Open
		s.events = ss.Events
	}

	for _, es := range snap.Queue {
		if _, ok := b.sources[es.Source]; !ok {
			return fail(simerrors.CodeInvalidMessage, "the saved state refers to unknown source '%s'", es.Source)
		}
		evt := &scheduledEvent{
			time:   es.Time,
			seq:    es.Seq,
			source: es.Source,
			event:  es.Event,
			period: es.Period,
		}
		if es.Keyed {
			evt.key = &eventKey{subkey1: es.Subkey1, subkey2: es.Subkey2}
			b.keys[*evt.key] = evt
		}
		b.queue.push(evt)
	}

	b.time = snap.Time
	b.seq = snap.Seq
	return nil
}
