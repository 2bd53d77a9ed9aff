// Package nav implements grid-based A* path planning over a host-provided
// walkability oracle. No navigation mesh is built; every query probes cells
// on demand.
package nav

import "github.com/cory-johannsen/skirmish/internal/game/geom"

// Oracle answers solidity queries for world cells. It is implemented by the
// host world.
//
// Implementations MUST be safe for concurrent use.
type Oracle interface {
	// IsSolid reports whether cell c in domain blocks movement.
	IsSolid(domain string, c geom.Cell) bool
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(domain string, c geom.Cell) bool

// IsSolid calls f.
func (f OracleFunc) IsSolid(domain string, c geom.Cell) bool { return f(domain, c) }

// StepKind classifies how an agent enters a neighboring cell.
type StepKind int

const (
	// StepBlocked means the cell cannot be entered.
	StepBlocked StepKind = iota
	// StepWalk means feet and head are clear over solid ground.
	StepWalk
	// StepClimb means the cell is obstructed but a single-block jump clears it.
	StepClimb
	// StepDescend means the ground is one cell lower.
	StepDescend
)

// Classify determines how an agent moving horizontally into c can occupy it.
//
// Postcondition: StepClimb implies the agent lands on top of c (one cell up);
// StepDescend implies the agent lands one cell down.
func Classify(o Oracle, domain string, c geom.Cell) StepKind {
	solid := func(x geom.Cell) bool { return o.IsSolid(domain, x) }

	feet, head := solid(c), solid(c.Up())
	if feet || head {
		// Only a solid feet cell with two clear cells above it can be stepped onto.
		if feet && !head && !solid(c.Offset(0, 2, 0)) {
			return StepClimb
		}
		return StepBlocked
	}
	if solid(c.Down()) {
		return StepWalk
	}
	if solid(c.Offset(0, -2, 0)) {
		return StepDescend
	}
	return StepBlocked
}

// Destination returns the cell actually occupied after entering c with kind.
func Destination(c geom.Cell, kind StepKind) geom.Cell {
	switch kind {
	case StepClimb:
		return c.Up()
	case StepDescend:
		return c.Down()
	default:
		return c
	}
}

// Standable reports whether an agent can stand in c: feet and head clear, ground solid.
func Standable(o Oracle, domain string, c geom.Cell) bool {
	return !o.IsSolid(domain, c) && !o.IsSolid(domain, c.Up()) && o.IsSolid(domain, c.Down())
}

// horizontal lists the eight same-height neighbor offsets.
var horizontal = [8][2]int{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {-1, -1}, {1, -1}, {-1, 1},
}

// ValidStep reports whether moving from cell a to cell b is a single step the
// planner could have generated.
func ValidStep(o Oracle, domain string, a, b geom.Cell) bool {
	dx, dz := b.X-a.X, b.Z-a.Z
	if dx < -1 || dx > 1 || dz < -1 || dz > 1 || (dx == 0 && dz == 0) {
		return false
	}
	cand := geom.C(b.X, a.Y, b.Z)
	kind := Classify(o, domain, cand)
	if kind == StepBlocked {
		return false
	}
	return Destination(cand, kind) == b
}

// ScanUp returns the lowest standable cell in the column (x, z) between
// minY and maxY inclusive.
func ScanUp(o Oracle, domain string, x, z, minY, maxY int) (geom.Cell, bool) {
	for y := minY; y <= maxY; y++ {
		c := geom.C(x, y, z)
		if Standable(o, domain, c) {
			return c, true
		}
	}
	return geom.Cell{}, false
}
