package gameserver

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// TickLoop fires a fixed sequence of named steps once per interval.
// Steps run sequentially in registration order within the loop goroutine.
//
// Invariant: every registered step is invoked at most once per tick.
type TickLoop struct {
	interval time.Duration
	mu       sync.Mutex
	order    []string
	steps    map[string]func(context.Context)
	ticks    atomic.Uint64
}

// NewTickLoop returns a loop that fires every interval.
//
// Precondition: interval must be > 0.
func NewTickLoop(interval time.Duration) *TickLoop {
	if interval <= 0 {
		panic("gameserver.NewTickLoop: interval must be > 0")
	}
	return &TickLoop{
		interval: interval,
		steps:    make(map[string]func(context.Context)),
	}
}

// Register adds a named step. Re-registering a name replaces the step but
// keeps its place in the order.
func (l *TickLoop) Register(name string, fn func(context.Context)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.steps[name]; !ok {
		l.order = append(l.order, name)
	}
	l.steps[name] = fn
}

// Unregister removes the named step.
func (l *TickLoop) Unregister(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.steps[name]; !ok {
		return
	}
	delete(l.steps, name)
	for i, n := range l.order {
		if n == name {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// Ticks returns the number of completed ticks.
func (l *TickLoop) Ticks() uint64 { return l.ticks.Load() }

// Step runs every registered step once, in order.
func (l *TickLoop) Step(ctx context.Context) {
	l.mu.Lock()
	steps := make([]func(context.Context), 0, len(l.order))
	for _, name := range l.order {
		steps = append(steps, l.steps[name])
	}
	l.mu.Unlock()
	for _, fn := range steps {
		if ctx.Err() != nil {
			return
		}
		fn(ctx)
	}
	l.ticks.Add(1)
}

// Run blocks, stepping once per interval until ctx is cancelled.
//
// Postcondition: returns ctx.Err() after cancellation.
func (l *TickLoop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.Step(ctx)
		}
	}
}

// Start runs the loop in a new goroutine until ctx is cancelled.
func (l *TickLoop) Start(ctx context.Context) {
	go func() { _ = l.Run(ctx) }()
}
