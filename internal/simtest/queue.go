package simtest

import (
	"container/heap"

	"github.com/nexosim/nexosim-go/pkg/simtime"
)

type eventKey struct {
	subkey1 uint64
	subkey2 uint64
}

// scheduledEvent is a pending event. Events at the same time fire in
// scheduling order.
type scheduledEvent struct {
	time   simtime.MonotonicTime
	seq    uint64
	source string
	event  []byte
	period simtime.Duration
	key    *eventKey
	index  int
}

func (e *scheduledEvent) periodic() bool {
	return e.period.IsPositive()
}

// eventQueue orders scheduled events by time, then by sequence number.
type eventQueue []*scheduledEvent

func (q eventQueue) Len() int {
	return len(q)
}

func (q eventQueue) Less(i, j int) bool {
	if c := q[i].time.Compare(q[j].time); c != 0 {
		return c < 0
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *eventQueue) Push(x interface{}) {
	evt := x.(*scheduledEvent)
	evt.index = len(*q)
	*q = append(*q, evt)
}

func (q *eventQueue) Pop() interface{} {
	old := *q
	n := len(old)
	evt := old[n-1]
	old[n-1] = nil
	evt.index = -1
	*q = old[:n-1]
	return evt
}

func (q *eventQueue) push(evt *scheduledEvent) {
	heap.Push(q, evt)
}

func (q *eventQueue) pop() *scheduledEvent {
	return heap.Pop(q).(*scheduledEvent)
}

func (q *eventQueue) remove(evt *scheduledEvent) {
	heap.Remove(q, evt.index)
}

func (q eventQueue) peek() *scheduledEvent {
	return q[0]
}
