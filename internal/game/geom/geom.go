// Package geom provides the continuous and lattice coordinate types shared by
// navigation, locomotion, and combat.
package geom

import (
	"fmt"
	"math"
)

// Vec3 is a position or direction in continuous world space.
// Y is the vertical axis.
type Vec3 struct {
	X, Y, Z float64
}

// V returns the vector (x, y, z).
func V(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Scale returns v multiplied by s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

// LenSq returns the squared length of v.
func (v Vec3) LenSq() float64 { return v.Dot(v) }

// Len returns the length of v.
func (v Vec3) Len() float64 { return math.Sqrt(v.LenSq()) }

// Dist returns the euclidean distance between v and o.
func (v Vec3) Dist(o Vec3) float64 { return v.Sub(o).Len() }

// Horizontal returns v with Y zeroed.
func (v Vec3) Horizontal() Vec3 { return Vec3{X: v.X, Z: v.Z} }

// Normalize returns the unit vector in the direction of v.
//
// Postcondition: Returns the zero vector when v has zero length.
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Perp returns the horizontal perpendicular of v (rotated 90 degrees about Y).
func (v Vec3) Perp() Vec3 { return Vec3{X: -v.Z, Z: v.X} }

// IsZero reports whether all components are zero.
func (v Vec3) IsZero() bool { return v.X == 0 && v.Y == 0 && v.Z == 0 }

func (v Vec3) String() string { return fmt.Sprintf("(%.2f, %.2f, %.2f)", v.X, v.Y, v.Z) }

// Cell is an integer lattice coordinate. Cells are derived from positions by
// flooring each component and are never stored beyond a single search.
type Cell struct {
	X, Y, Z int
}

// C returns the cell (x, y, z).
func C(x, y, z int) Cell { return Cell{X: x, Y: y, Z: z} }

// CellOf returns the cell containing p.
func CellOf(p Vec3) Cell {
	return Cell{
		X: int(math.Floor(p.X)),
		Y: int(math.Floor(p.Y)),
		Z: int(math.Floor(p.Z)),
	}
}

// Offset returns the cell displaced by (dx, dy, dz).
func (c Cell) Offset(dx, dy, dz int) Cell { return Cell{c.X + dx, c.Y + dy, c.Z + dz} }

// Up returns the cell directly above c.
func (c Cell) Up() Cell { return c.Offset(0, 1, 0) }

// Down returns the cell directly below c.
func (c Cell) Down() Cell { return c.Offset(0, -1, 0) }

// Feet returns the standing position for c: horizontally centered, at the cell floor.
func (c Cell) Feet() Vec3 {
	return Vec3{X: float64(c.X) + 0.5, Y: float64(c.Y), Z: float64(c.Z) + 0.5}
}

// Dist returns the euclidean distance between cell coordinates.
func (c Cell) Dist(o Cell) float64 {
	dx, dy, dz := float64(c.X-o.X), float64(c.Y-o.Y), float64(c.Z-o.Z)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Manhattan returns the L1 distance between c and o.
func (c Cell) Manhattan(o Cell) int {
	return abs(c.X-o.X) + abs(c.Y-o.Y) + abs(c.Z-o.Z)
}

func (c Cell) String() string { return fmt.Sprintf("[%d %d %d]", c.X, c.Y, c.Z) }

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Location is a position inside a navigable domain (a world instance) plus
// a view orientation in degrees.
type Location struct {
	Domain string
	Pos    Vec3
	Yaw    float64
	Pitch  float64
}

// At returns a Location in domain at pos with zero orientation.
func At(domain string, pos Vec3) Location { return Location{Domain: domain, Pos: pos} }

// SameDomain reports whether l and o lie in the same navigable domain.
func (l Location) SameDomain(o Location) bool { return l.Domain == o.Domain }

// Dist returns the distance between l and o, or +Inf when the domains differ.
func (l Location) Dist(o Location) float64 {
	if !l.SameDomain(o) {
		return math.Inf(1)
	}
	return l.Pos.Dist(o.Pos)
}

// Eye returns the eye position for an entity standing at l.
func (l Location) Eye() Vec3 { return l.Pos.Add(Vec3{Y: EyeHeight}) }

// EyeHeight is the vertical offset from feet to eyes.
const EyeHeight = 1.62

// Orientation returns the yaw and pitch, in degrees, that look along dir.
// Yaw 0 faces +Z and increases clockwise toward -X.
func Orientation(dir Vec3) (yaw, pitch float64) {
	h := math.Hypot(dir.X, dir.Z)
	if h == 0 && dir.Y == 0 {
		return 0, 0
	}
	yaw = math.Atan2(-dir.X, dir.Z) * 180 / math.Pi
	pitch = -math.Atan2(dir.Y, h) * 180 / math.Pi
	return yaw, pitch
}

// AngleDelta returns the signed shortest rotation from current to target,
// in the range (-180, 180].
func AngleDelta(target, current float64) float64 {
	d := math.Mod(target-current, 360)
	if d > 180 {
		d -= 360
	}
	if d <= -180 {
		d += 360
	}
	return d
}
