package combat

// Deferred runs callbacks a fixed number of simulation ticks in the future.
//
// Concurrency: a Deferred is owned by one agent and must not be shared.
type Deferred struct {
	tick    uint64
	pending []deferredEntry
}

type deferredEntry struct {
	due uint64
	fn  func()
}

// After schedules fn to run on the Tick that occurs ticks calls from now.
//
// Precondition: ticks >= 1; fn must not be nil.
func (d *Deferred) After(ticks int, fn func()) {
	if ticks < 1 {
		ticks = 1
	}
	d.pending = append(d.pending, deferredEntry{due: d.tick + uint64(ticks), fn: fn})
}

// Tick advances one step and runs every callback that has come due, in
// scheduling order.
func (d *Deferred) Tick() {
	d.tick++
	var due []deferredEntry
	kept := d.pending[:0]
	for _, e := range d.pending {
		if e.due <= d.tick {
			due = append(due, e)
		} else {
			kept = append(kept, e)
		}
	}
	d.pending = kept
	for _, e := range due {
		e.fn()
	}
}

// Cancel drops every pending callback. Safe to call multiple times.
//
// Postcondition: no previously scheduled callback will run.
func (d *Deferred) Cancel() {
	d.pending = nil
}

// Pending returns the number of callbacks not yet run.
func (d *Deferred) Pending() int { return len(d.pending) }
