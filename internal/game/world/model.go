// Package world describes the arenas agents fight in and the host surface the
// combat core consumes. Sandbox is an in-memory host with a voxel grid and
// simple gravity, used by the simulator and by integration tests.
package world

import (
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/geom"
)

// Box is an inclusive block of solid cells.
type Box struct {
	Min geom.Cell
	Max geom.Cell
}

// Cells calls fn for every cell in the box.
func (b Box) Cells(fn func(geom.Cell)) {
	for x := b.Min.X; x <= b.Max.X; x++ {
		for y := b.Min.Y; y <= b.Max.Y; y++ {
			for z := b.Min.Z; z <= b.Max.Z; z++ {
				fn(geom.C(x, y, z))
			}
		}
	}
}

// Arena is a bounded fighting zone that the population loop keeps stocked
// with agents.
type Arena struct {
	// ID uniquely identifies this arena.
	ID string
	// Name is the display name.
	Name string
	// Bounds is the operating zone agents spawn and wander in. Its Domain
	// names the world instance.
	Bounds geom.Bounds
	// Enabled arenas are populated; disabled ones are loaded but left empty.
	Enabled bool
	// BotCount is the number of agents the population loop maintains.
	BotCount int
	// Profile is the agent profile ID. Empty means the configured default.
	Profile string
	// Floor is the Y level of the generated floor in a Sandbox. Nil means no floor.
	Floor *int
	// Blocks are extra solid boxes placed in a Sandbox.
	Blocks []Box
}

// Validate checks arena invariants.
//
// Postcondition: Returns nil if valid, or an error describing the first violation.
func (a *Arena) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("arena ID must not be empty")
	}
	if a.Name == "" {
		return fmt.Errorf("arena %q: name must not be empty", a.ID)
	}
	if err := a.Bounds.Validate(); err != nil {
		return fmt.Errorf("arena %q: %w", a.ID, err)
	}
	if a.BotCount < 0 {
		return fmt.Errorf("arena %q: bot_count must be >= 0", a.ID)
	}
	for i, b := range a.Blocks {
		if b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z {
			return fmt.Errorf("arena %q: block %d: min %s exceeds max %s", a.ID, i, b.Min, b.Max)
		}
	}
	return nil
}

// Domain returns the world instance the arena lives in.
func (a *Arena) Domain() string { return a.Bounds.Domain }
