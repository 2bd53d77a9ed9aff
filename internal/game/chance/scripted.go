package chance

import "sync"

// Scripted replays fixed sequences of draws. When a sequence runs out the
// matching default is returned for every further draw.
//
// Scripted is intended for tests that assert exact behavior.
type Scripted struct {
	mu           sync.Mutex
	floats       []float64
	ints         []int
	FloatDefault float64
	IntDefault   int
}

// NewScripted returns a Scripted source that yields floats in order.
func NewScripted(floats ...float64) *Scripted {
	return &Scripted{floats: floats}
}

// WithInts queues ints for Intn and returns s.
func (s *Scripted) WithInts(ints ...int) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ints = append(s.ints, ints...)
	return s
}

// PushFloats appends further float draws.
func (s *Scripted) PushFloats(floats ...float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.floats = append(s.floats, floats...)
}

// Float64 returns the next scripted float.
func (s *Scripted) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.floats) == 0 {
		return s.FloatDefault
	}
	f := s.floats[0]
	s.floats = s.floats[1:]
	return f
}

// Intn returns the next scripted int reduced into [0, n).
//
// Precondition: n > 0.
func (s *Scripted) Intn(n int) int {
	if n <= 0 {
		panic("chance: Intn called with n <= 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.IntDefault
	if len(s.ints) > 0 {
		v = s.ints[0]
		s.ints = s.ints[1:]
	}
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
