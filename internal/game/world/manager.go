package world

import (
	"fmt"
	"sort"
	"sync"
)

// Manager provides thread-safe access to the loaded arenas.
type Manager struct {
	mu     sync.RWMutex
	arenas map[string]*Arena
}

// NewManager creates a Manager from the given arenas.
//
// Postcondition: Returns a Manager with all arenas indexed by ID, or an error on duplicate IDs.
func NewManager(arenas []*Arena) (*Manager, error) {
	m := &Manager{arenas: make(map[string]*Arena, len(arenas))}
	for _, a := range arenas {
		if _, exists := m.arenas[a.ID]; exists {
			return nil, fmt.Errorf("duplicate arena ID: %q", a.ID)
		}
		m.arenas[a.ID] = a
	}
	return m, nil
}

// Arena returns the arena with the given ID.
//
// Postcondition: Returns (arena, true) if found, or (nil, false) otherwise.
func (m *Manager) Arena(id string) (*Arena, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.arenas[id]
	return a, ok
}

// SetEnabled toggles whether an arena is populated.
//
// Postcondition: Returns an error if the arena is unknown.
func (m *Manager) SetEnabled(id string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.arenas[id]
	if !ok {
		return fmt.Errorf("arena %q not found", id)
	}
	a.Enabled = enabled
	return nil
}

// IsEnabled reports whether id names a loaded, enabled arena.
func (m *Manager) IsEnabled(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.arenas[id]
	return ok && a.Enabled
}

// All returns every loaded arena sorted by ID.
//
// Postcondition: Returns a non-nil slice; may be empty.
func (m *Manager) All() []*Arena {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Arena, 0, len(m.arenas))
	for _, a := range m.arenas {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Enabled returns the enabled arenas sorted by ID.
func (m *Manager) Enabled() []*Arena {
	var out []*Arena
	for _, a := range m.All() {
		m.mu.RLock()
		on := a.Enabled
		m.mu.RUnlock()
		if on {
			out = append(out, a)
		}
	}
	return out
}

// Count returns the number of loaded arenas.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.arenas)
}
