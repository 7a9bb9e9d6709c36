package tracker

import "sync"

// EventQueue is the FIFO hand-off between the input sources and the writer's
// flush goroutine. Many producers push concurrently; a single consumer drains.
// The lock is held only for the append or the slice swap, never across I/O,
// so pushing from a hook callback stays cheap. The queue is unbounded: if the
// consumer stalls indefinitely, memory grows. That is a known limitation,
// accepted over dropping or blocking producers.
type EventQueue struct {
	mu     sync.Mutex
	events []Event
}

// Push appends an event at the tail. Safe for concurrent use.
func (q *EventQueue) Push(e Event) {
	q.mu.Lock()
	q.events = append(q.events, e)
	q.mu.Unlock()
}

// DrainAll atomically removes and returns all queued events in push order.
// Returns nil when the queue is empty. A Push racing a drain lands either in
// the returned batch or in the next one, never in both and never nowhere.
func (q *EventQueue) DrainAll() []Event {
	q.mu.Lock()
	batch := q.events
	q.events = nil
	q.mu.Unlock()
	return batch
}

// Len returns the number of currently queued events.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}
