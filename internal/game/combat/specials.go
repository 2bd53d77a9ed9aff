package combat

import "github.com/cory-johannsen/skirmish/internal/game/chance"

// Projectile names a thrown or cast item.
type Projectile string

const (
	ProjectileRod    Projectile = "fishing_rod"
	ProjectilePotion Projectile = "splash_potion"
)

// SpecialsConfig tunes the ranged special abilities. Cooldowns are in ticks,
// ranges in blocks (exclusive).
type SpecialsConfig struct {
	HasRod         bool
	RodCooldown    int
	RodMin         float64
	RodMax         float64
	Potions        int
	PotionCooldown int
	PotionMin      float64
	PotionMax      float64
	// PotionChance is the chance to throw at a healthy agent's target beyond PotionEager.
	PotionChance float64
	PotionEager  float64
	// PotionHealth is the health ratio under which a potion is always thrown.
	PotionHealth float64
}

// DefaultSpecialsConfig returns a rod and two potions.
func DefaultSpecialsConfig() SpecialsConfig {
	return SpecialsConfig{
		HasRod:         true,
		RodCooldown:    60,
		RodMin:         3,
		RodMax:         10,
		Potions:        2,
		PotionCooldown: 100,
		PotionMin:      2,
		PotionMax:      15,
		PotionChance:   0.3,
		PotionEager:    5,
		PotionHealth:   0.5,
	}
}

// Specials tracks special-ability cooldowns and consumables for one agent.
//
// Invariant: cooldown counters are never negative.
type Specials struct {
	cfg      SpecialsConfig
	roller   *chance.Roller
	rodCD    int
	potionCD int
	potions  int
}

// NewSpecials creates a Specials with cfg.Potions in stock and no cooldowns running.
func NewSpecials(cfg SpecialsConfig, roller *chance.Roller) *Specials {
	d := DefaultSpecialsConfig()
	if cfg.RodCooldown <= 0 {
		cfg.RodCooldown = d.RodCooldown
	}
	if cfg.PotionCooldown <= 0 {
		cfg.PotionCooldown = d.PotionCooldown
	}
	if cfg.Potions < 0 {
		cfg.Potions = 0
	}
	cfg.PotionChance = clampUnit(cfg.PotionChance)
	return &Specials{cfg: cfg, roller: roller, potions: cfg.Potions}
}

// Tick counts every cooldown down by one.
func (s *Specials) Tick() {
	if s.rodCD > 0 {
		s.rodCD--
	}
	if s.potionCD > 0 {
		s.potionCD--
	}
}

// TryRod reports whether a rod should be cast at a target distance away and,
// if so, starts the rod cooldown.
func (s *Specials) TryRod(distance float64) bool {
	if !s.cfg.HasRod || s.rodCD > 0 {
		return false
	}
	if distance <= s.cfg.RodMin || distance >= s.cfg.RodMax {
		return false
	}
	s.rodCD = s.cfg.RodCooldown
	return true
}

// TryPotion reports whether a potion should be thrown and, if so, consumes
// one and starts the potion cooldown. healthRatio is the thrower's own.
func (s *Specials) TryPotion(distance, healthRatio float64) bool {
	if s.potions <= 0 || s.potionCD > 0 {
		return false
	}
	if distance <= s.cfg.PotionMin || distance >= s.cfg.PotionMax {
		return false
	}
	if healthRatio >= s.cfg.PotionHealth &&
		!(s.roller.Chance("potion", s.cfg.PotionChance) && distance > s.cfg.PotionEager) {
		return false
	}
	s.potions--
	s.potionCD = s.cfg.PotionCooldown
	return true
}

// Potions returns the remaining potion count.
func (s *Specials) Potions() int { return s.potions }

// Cooldowns returns the remaining rod and potion cooldown ticks.
func (s *Specials) Cooldowns() (rod, potion int) { return s.rodCD, s.potionCD }

// Restock refills potions and clears cooldowns, as on respawn.
func (s *Specials) Restock() {
	s.potions = s.cfg.Potions
	s.rodCD, s.potionCD = 0, 0
}
