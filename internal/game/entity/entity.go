// Package entity defines how the combat core identifies and classifies the
// live entities it observes in the host world.
//
// Classification happens once, when the host reports an entity, so targeting
// logic switches on Class instead of re-deriving an entity's kind.
package entity

import "github.com/cory-johannsen/skirmish/internal/game/geom"

// ID is an opaque entity identifier. Holding an ID never keeps the entity alive;
// it must be resolved against the host every tick.
type ID string

// Class tags an observed entity with its targeting eligibility.
type Class int

const (
	// ClassIneligible entities are never targeted.
	ClassIneligible Class = iota
	// ClassPlayer is the primary victim class (a real participant).
	ClassPlayer
	// ClassAgent is another controllable bot.
	ClassAgent
)

func (c Class) String() string {
	switch c {
	case ClassPlayer:
		return "player"
	case ClassAgent:
		return "agent"
	default:
		return "ineligible"
	}
}

// Mode is the participation mode of a player entity.
type Mode string

const (
	ModeSurvival  Mode = "survival"
	ModeAdventure Mode = "adventure"
	ModeCreative  Mode = "creative"
	ModeSpectator Mode = "spectator"
)

// Targetable reports whether players in mode m may be attacked.
func (m Mode) Targetable() bool {
	return m == ModeSurvival || m == ModeAdventure
}

// Classify resolves the targeting class for a host entity.
//
// Postcondition: players in a non-targetable mode are ClassIneligible.
func Classify(isBot, isPlayer bool, mode Mode) Class {
	switch {
	case isBot:
		return ClassAgent
	case isPlayer && mode.Targetable():
		return ClassPlayer
	default:
		return ClassIneligible
	}
}

// Ref identifies a victim together with its class, which selects the
// attacker ceiling applied by the arbitration registry.
type Ref struct {
	ID    ID
	Class Class
}

// Observation is a read-only snapshot of one live entity as reported by the host.
type Observation struct {
	ID        ID
	Class     Class
	Location  geom.Location
	Health    float64
	MaxHealth float64
	Alive     bool
}

// Ref returns the victim reference for o.
func (o Observation) Ref() Ref { return Ref{ID: o.ID, Class: o.Class} }

// HealthRatio returns Health/MaxHealth clamped to [0,1].
func (o Observation) HealthRatio() float64 {
	return Ratio(o.Health, o.MaxHealth)
}

// Ratio returns hp/max clamped to [0,1]; a non-positive max yields 0.
func Ratio(hp, max float64) float64 {
	if max <= 0 {
		return 0
	}
	r := hp / max
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}
