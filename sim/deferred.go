package sim

import (
	"container/heap"
	"time"
)

// DeferredKind identifies what a queued case event does when it fires.
type DeferredKind string

const (
	// DeferredProcedure executes a procedure against the case.
	DeferredProcedure DeferredKind = "procedure"
)

// DeferredEvent is a case-local action scheduled for a future tick.
type DeferredEvent struct {
	At          time.Time
	Kind        DeferredKind
	ProcedureID int64

	seq uint64
}

// DeferredQueue is a min-heap of deferred events.
// Ordering: timestamp → insertion sequence (FIFO among equal timestamps).
type DeferredQueue struct {
	events  []DeferredEvent
	nextSeq uint64
}

// NewDeferredQueue creates an empty queue.
func NewDeferredQueue() *DeferredQueue {
	q := &DeferredQueue{events: make([]DeferredEvent, 0)}
	heap.Init(q)
	return q
}

// Len implements heap.Interface
func (q *DeferredQueue) Len() int {
	return len(q.events)
}

// Less implements heap.Interface
func (q *DeferredQueue) Less(i, j int) bool {
	ei, ej := q.events[i], q.events[j]
	if !ei.At.Equal(ej.At) {
		return ei.At.Before(ej.At)
	}
	return ei.seq < ej.seq
}

// Swap implements heap.Interface
func (q *DeferredQueue) Swap(i, j int) {
	q.events[i], q.events[j] = q.events[j], q.events[i]
}

// Push implements heap.Interface
func (q *DeferredQueue) Push(x interface{}) {
	q.events = append(q.events, x.(DeferredEvent))
}

// Pop implements heap.Interface
func (q *DeferredQueue) Pop() interface{} {
	old := q.events
	n := len(old)
	item := old[n-1]
	q.events = old[0 : n-1]
	return item
}

// Schedule adds an event to the queue.
func (q *DeferredQueue) Schedule(e DeferredEvent) {
	q.nextSeq++
	e.seq = q.nextSeq
	heap.Push(q, e)
}

// Peek returns the earliest event without removing it.
func (q *DeferredQueue) Peek() (DeferredEvent, bool) {
	if q.Len() == 0 {
		return DeferredEvent{}, false
	}
	return q.events[0], true
}

// PopDue removes and returns, in order, every event scheduled at or before now.
func (q *DeferredQueue) PopDue(now time.Time) []DeferredEvent {
	var due []DeferredEvent
	for q.Len() > 0 && !q.events[0].At.After(now) {
		due = append(due, heap.Pop(q).(DeferredEvent))
	}
	return due
}
