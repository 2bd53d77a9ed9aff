package gameserver

import (
	"sync"

	"github.com/cory-johannsen/skirmish/internal/game/world"
)

// EventQueue buffers host events between ticks. Push may be called from any
// goroutine; Drain is called by the tick owner.
type EventQueue struct {
	mu     sync.Mutex
	events []world.Event
}

// Push appends ev.
func (q *EventQueue) Push(ev world.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, ev)
}

// Drain removes and returns every queued event in arrival order.
func (q *EventQueue) Drain() []world.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.events
	q.events = nil
	return out
}

// Len returns the number of queued events.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}
