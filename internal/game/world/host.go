package world

import (
	"errors"
	"fmt"
	"math"

	"github.com/cory-johannsen/skirmish/internal/game/chance"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/entity"
	"github.com/cory-johannsen/skirmish/internal/game/geom"
	"github.com/cory-johannsen/skirmish/internal/game/locomotion"
	"github.com/cory-johannsen/skirmish/internal/game/nav"
)

// ErrNoSafeLocation is returned when no standable cell could be found in a zone.
var ErrNoSafeLocation = errors.New("no safe location")

// EventKind classifies world events delivered to the combat core.
type EventKind int

const (
	// EventDamage reports a hit on Victim, possibly Cancelled by damage policy.
	EventDamage EventKind = iota
	// EventDeath reports that Victim died.
	EventDeath
	// EventLeave reports that Victim left the world (disconnect or removal).
	EventLeave
)

func (k EventKind) String() string {
	switch k {
	case EventDamage:
		return "damage"
	case EventDeath:
		return "death"
	case EventLeave:
		return "leave"
	default:
		return "unknown"
	}
}

// Event is a damage, death, or leave notification from the host.
type Event struct {
	Kind      EventKind
	Victim    entity.Ref
	Attacker  entity.Ref
	Amount    float64
	Cancelled bool
}

// Sink receives host events. It is called outside the host's own locks and
// must not block.
type Sink func(Event)

// Body is a host-owned agent body.
type Body interface {
	locomotion.Body
	ID() entity.ID
}

// BodySpec describes an agent body to create.
type BodySpec struct {
	ID        entity.ID
	Name      string
	Kit       string
	Location  geom.Location
	MaxHealth float64
}

// Host is the world surface the combat core consumes: solidity queries,
// entity observation, combat commands, and agent body management.
//
// All methods must be safe for concurrent use.
type Host interface {
	nav.Oracle
	Observe(id entity.ID) (entity.Observation, bool)
	Nearby(center geom.Location, radius float64) []entity.Observation
	Attack(attacker, victim entity.ID, critical bool, multiplier float64)
	Launch(attacker entity.ID, kind combat.Projectile, at geom.Vec3)
	SpawnBody(spec BodySpec) (Body, error)
	RemoveBody(id entity.ID)
	Subscribe(sink Sink)
}

// SafeLocation picks a random column inside b and returns the lowest
// standable cell in it, trying several columns.
//
// Postcondition: returns ErrNoSafeLocation (wrapped) when every attempt fails.
func SafeLocation(o nav.Oracle, b geom.Bounds, src chance.Source) (geom.Location, error) {
	const attempts = 16
	minY, maxY := int(math.Floor(b.Min.Y)), int(math.Floor(b.Max.Y))
	for i := 0; i < attempts; i++ {
		x := b.Min.X + (b.Max.X-b.Min.X)*src.Float64()
		z := b.Min.Z + (b.Max.Z-b.Min.Z)*src.Float64()
		c, ok := nav.ScanUp(o, b.Domain, int(math.Floor(x)), int(math.Floor(z)), minY, maxY)
		if ok {
			return geom.At(b.Domain, c.Feet()), nil
		}
	}
	return geom.Location{}, fmt.Errorf("%s in %s: %w", b.Min, b.Domain, ErrNoSafeLocation)
}
