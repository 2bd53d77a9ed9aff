// Package chance provides the injectable randomness used by combat timing,
// strafing, wandering, and special abilities.
//
// Every random decision an agent makes flows through a Source so tests can
// substitute a scripted or seeded sequence and assert exact tick-by-tick
// behavior.
package chance

// Source is the randomness provider for agent decisions.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
	// Float64 returns a random float in [0, 1).
	Float64() float64
}
