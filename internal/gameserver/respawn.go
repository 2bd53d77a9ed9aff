package gameserver

import (
	"sync"

	"github.com/cory-johannsen/skirmish/internal/game/bot"
	"github.com/cory-johannsen/skirmish/internal/game/geom"
)

// Respawn is a pending agent respawn. It carries everything needed to spawn
// the replacement, so agents created with SpawnAgent in ad-hoc zones and
// agents using the built-in default profile come back unchanged.
type Respawn struct {
	ZoneName string
	Zone     geom.Bounds
	Profile  bot.Profile
	ReadyAt  uint64
	// Placeholder is reported in place of the removed agent until ReadyAt.
	Placeholder bot.Status
}

// RespawnQueue schedules agent respawns by simulation tick.
type RespawnQueue struct {
	mu      sync.Mutex
	pending []Respawn
}

// NewRespawnQueue returns an empty queue.
func NewRespawnQueue() *RespawnQueue {
	return &RespawnQueue{}
}

// Schedule queues r to become ready delay ticks after now. ReadyAt is
// overwritten.
//
// Postcondition: a delay <= 0 schedules nothing.
func (r *RespawnQueue) Schedule(e Respawn, now uint64, delay int) {
	if delay <= 0 {
		return
	}
	e.ReadyAt = now + uint64(delay)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, e)
}

// Due removes and returns every entry whose ReadyAt <= now, in scheduling order.
func (r *RespawnQueue) Due(now uint64) []Respawn {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ready, future []Respawn
	for _, e := range r.pending {
		if e.ReadyAt <= now {
			ready = append(ready, e)
		} else {
			future = append(future, e)
		}
	}
	r.pending = future
	return ready
}

// Pending returns the number of entries waiting for zoneName.
func (r *RespawnQueue) Pending(zoneName string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.pending {
		if e.ZoneName == zoneName {
			n++
		}
	}
	return n
}

// Cancel drops every entry for zoneName and returns how many were dropped.
func (r *RespawnQueue) Cancel(zoneName string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.pending[:0]
	dropped := 0
	for _, e := range r.pending {
		if e.ZoneName == zoneName {
			dropped++
			continue
		}
		kept = append(kept, e)
	}
	r.pending = kept
	return dropped
}

// Clear drops every entry and returns how many were dropped.
func (r *RespawnQueue) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.pending)
	r.pending = nil
	return n
}

// Snapshot returns a copy of the pending entries in scheduling order.
func (r *RespawnQueue) Snapshot() []Respawn {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Respawn, len(r.pending))
	copy(out, r.pending)
	return out
}

// Len returns the total number of pending entries.
func (r *RespawnQueue) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
