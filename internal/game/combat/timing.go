package combat

import (
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/chance"
	"github.com/cory-johannsen/skirmish/internal/game/entity"
	"github.com/cory-johannsen/skirmish/internal/game/geom"
)

// Fighter is the part of an agent body the timing model manipulates:
// sprint state for feints and vertical velocity for critical jumps.
type Fighter interface {
	Grounded() bool
	Velocity() geom.Vec3
	SetVelocity(v geom.Vec3)
	Sprinting() bool
	SetSprinting(on bool)
}

// Striker lands a melee hit on victim. critical reports whether the hit
// was delivered out of a critical jump.
type Striker interface {
	Strike(victim entity.ID, critical bool)
}

// StrikerFunc adapts a function to Striker.
type StrikerFunc func(victim entity.ID, critical bool)

// Strike calls f.
func (f StrikerFunc) Strike(victim entity.ID, critical bool) { f(victim, critical) }

// TimingConfig tunes attack cadence for one agent.
type TimingConfig struct {
	// TickDuration is the simulated time that passes per Advance call.
	TickDuration time.Duration
	// MinCPS and MaxCPS bound the per-agent attack cadence, inclusive.
	MinCPS int
	MaxCPS int
	// MissChance is the fraction of otherwise-valid attacks discarded.
	MissChance float64
	// CritChance is the chance a grounded, off-cooldown attack is a critical.
	CritChance   float64
	CritCooldown time.Duration
	CritImpulse  float64
	// Feint enables the sprint drop-and-restore every two or three hits.
	Feint bool
}

// DefaultTimingConfig returns the cadence of a practiced human player.
func DefaultTimingConfig() TimingConfig {
	return TimingConfig{
		TickDuration: 50 * time.Millisecond,
		MinCPS:       10,
		MaxCPS:       14,
		MissChance:   0.1,
		CritChance:   0.3,
		CritCooldown: 500 * time.Millisecond,
		CritImpulse:  0.42,
		Feint:        true,
	}
}

// Hit describes the most recent landed attack.
type Hit struct {
	Victim   entity.ID
	Critical bool
	Feint    bool
	Combo    int
}

// TimingModel decides when one agent may attack and how: cadence, simulated
// miss-clicks, criticals, and feints. Time is simulated and advances only
// through Advance.
//
// Invariant: two successful attacks are never closer than Interval apart.
// Concurrency: owned by one agent; not safe for concurrent use.
type TimingModel struct {
	cfg    TimingConfig
	roller *chance.Roller
	body   Fighter
	logger *zap.Logger

	cps int
	now time.Duration

	lastAttack time.Duration
	attacked   bool
	lastCrit   time.Duration
	critted    bool

	combo    int
	feinting bool
	deferred Deferred
	last     Hit
}

// NewTimingModel creates a timing model and fixes its cadence for life.
//
// Precondition: roller and body must not be nil.
// Postcondition: Cadence() is in [cfg.MinCPS, cfg.MaxCPS].
func NewTimingModel(cfg TimingConfig, roller *chance.Roller, body Fighter, logger *zap.Logger) *TimingModel {
	if roller == nil || body == nil {
		panic("combat.NewTimingModel: roller and body must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.sanitized()
	return &TimingModel{
		cfg:    cfg,
		roller: roller,
		body:   body,
		logger: logger,
		cps:    roller.IntBetween("cadence", cfg.MinCPS, cfg.MaxCPS),
	}
}

func (c TimingConfig) sanitized() TimingConfig {
	d := DefaultTimingConfig()
	if c.TickDuration <= 0 {
		c.TickDuration = d.TickDuration
	}
	if c.MinCPS <= 0 {
		c.MinCPS = d.MinCPS
	}
	if c.MaxCPS < c.MinCPS {
		c.MaxCPS = c.MinCPS
	}
	c.MissChance = clampUnit(c.MissChance)
	c.CritChance = clampUnit(c.CritChance)
	if c.CritCooldown < 0 {
		c.CritCooldown = d.CritCooldown
	}
	if c.CritImpulse <= 0 {
		c.CritImpulse = d.CritImpulse
	}
	return c
}

func clampUnit(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// Advance moves simulated time forward one tick and runs any pending
// feint restore.
func (m *TimingModel) Advance() {
	m.now += m.cfg.TickDuration
	m.deferred.Tick()
}

// Cadence returns the agent's attacks-per-second target.
func (m *TimingModel) Cadence() int { return m.cps }

// Interval returns the minimum simulated time between two attacks.
func (m *TimingModel) Interval() time.Duration { return time.Second / time.Duration(m.cps) }

// CanAttack reports whether the cadence interval has elapsed since the last attack.
func (m *TimingModel) CanAttack() bool {
	return !m.attacked || m.now-m.lastAttack >= m.Interval()
}

// TryAttack attempts one melee attack on victim through s.
//
// Postcondition: returns true iff s.Strike was called exactly once. A false
// return with CanAttack true was a simulated miss-click and leaves the
// cadence clock untouched.
func (m *TimingModel) TryAttack(victim entity.ID, s Striker) bool {
	if !m.CanAttack() {
		return false
	}
	if m.roller.Chance("miss", m.cfg.MissChance) {
		return false
	}
	feint := false
	if m.cfg.Feint && m.shouldFeint() {
		feint = m.performFeint()
	}
	crit := m.ShouldCritical()
	if crit {
		v := m.body.Velocity()
		v.Y = m.cfg.CritImpulse
		m.body.SetVelocity(v)
	}
	s.Strike(victim, crit)

	m.lastAttack = m.now
	m.attacked = true
	m.combo++
	m.last = Hit{Victim: victim, Critical: crit, Feint: feint, Combo: m.combo}
	m.logger.Debug("attack",
		zap.String("victim", string(victim)),
		zap.Bool("critical", crit),
		zap.Bool("feint", feint),
		zap.Int("combo", m.combo),
	)
	return true
}

// ShouldCritical reports whether the next attack should be a critical. A
// true result starts the critical cooldown.
//
// Postcondition: false whenever the body is airborne or the cooldown has not elapsed.
func (m *TimingModel) ShouldCritical() bool {
	if !m.body.Grounded() {
		return false
	}
	if m.critted && m.now-m.lastCrit < m.cfg.CritCooldown {
		return false
	}
	if !m.roller.Chance("critical", m.cfg.CritChance) {
		return false
	}
	m.lastCrit = m.now
	m.critted = true
	return true
}

func (m *TimingModel) shouldFeint() bool {
	return m.combo%(2+m.roller.Intn(2)) == 0
}

// performFeint drops sprint now and restores it one tick later.
func (m *TimingModel) performFeint() bool {
	if !m.body.Sprinting() {
		return false
	}
	m.body.SetSprinting(false)
	m.feinting = true
	m.deferred.After(1, func() {
		m.body.SetSprinting(true)
		m.feinting = false
	})
	return true
}

// Feinting reports whether sprint is currently dropped by a feint. Movement
// must not re-enable sprint while this is true.
func (m *TimingModel) Feinting() bool { return m.feinting }

// Combo returns the number of hits landed since the last reset.
func (m *TimingModel) Combo() int { return m.combo }

// LastHit returns the most recent landed attack and whether one exists.
func (m *TimingModel) LastHit() (Hit, bool) { return m.last, m.attacked }

// Reset clears the combo and cancels a pending feint restore, leaving the
// cadence clock in place.
func (m *TimingModel) Reset() {
	m.combo = 0
	m.feinting = false
	m.deferred.Cancel()
}

// OptimalDistance draws a preferred fighting distance in [2.8, 3.5).
func (m *TimingModel) OptimalDistance() float64 {
	return m.roller.Between("optimal distance", 2.8, 3.5)
}

// AimJitter returns a small random offset added to the aim point.
//
// Postcondition: every component lies in [-0.0125, 0.0125).
func (m *TimingModel) AimJitter() geom.Vec3 {
	const spread = 0.025
	return geom.Vec3{
		X: (m.roller.Float64() - 0.5) * spread,
		Y: (m.roller.Float64() - 0.5) * spread,
		Z: (m.roller.Float64() - 0.5) * spread,
	}
}
