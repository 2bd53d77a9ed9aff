package geom

import (
	"fmt"
	"math"
)

// Bounds is an axis-aligned box inside one domain: an agent's operating zone.
//
// Invariant: Min <= Max component-wise after NewBounds.
type Bounds struct {
	Domain string
	Min    Vec3
	Max    Vec3
}

// NewBounds returns the box spanned by two corners in any order.
func NewBounds(domain string, a, b Vec3) Bounds {
	return Bounds{
		Domain: domain,
		Min:    Vec3{math.Min(a.X, b.X), math.Min(a.Y, b.Y), math.Min(a.Z, b.Z)},
		Max:    Vec3{math.Max(a.X, b.X), math.Max(a.Y, b.Y), math.Max(a.Z, b.Z)},
	}
}

// Contains reports whether l is inside the box (inclusive).
func (b Bounds) Contains(l Location) bool {
	if l.Domain != b.Domain {
		return false
	}
	p := l.Pos
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Lerp maps unit coordinates (each in [0,1]) onto the box.
func (b Bounds) Lerp(u, v, w float64) Location {
	return At(b.Domain, Vec3{
		X: b.Min.X + (b.Max.X-b.Min.X)*u,
		Y: b.Min.Y + (b.Max.Y-b.Min.Y)*v,
		Z: b.Min.Z + (b.Max.Z-b.Min.Z)*w,
	})
}

// Validate reports whether the box is usable as an operating zone.
func (b Bounds) Validate() error {
	if b.Domain == "" {
		return fmt.Errorf("bounds: domain must not be empty")
	}
	if b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z {
		return fmt.Errorf("bounds: min %s exceeds max %s", b.Min, b.Max)
	}
	return nil
}
