package bot

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/arbitration"
	"github.com/cory-johannsen/skirmish/internal/game/chance"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/entity"
	"github.com/cory-johannsen/skirmish/internal/game/geom"
	"github.com/cory-johannsen/skirmish/internal/game/locomotion"
	"github.com/cory-johannsen/skirmish/internal/game/nav"
)

// Environment is the slice of the host world an agent senses and acts on.
type Environment interface {
	nav.Oracle
	// Observe resolves id to a live snapshot. ok is false once the entity is gone.
	Observe(id entity.ID) (entity.Observation, bool)
	// Nearby lists live entities within radius of center, in any order.
	Nearby(center geom.Location, radius float64) []entity.Observation
	// Attack lands a melee hit from attacker on victim.
	Attack(attacker, victim entity.ID, critical bool, multiplier float64)
	// Launch throws or casts a projectile from attacker toward at.
	Launch(attacker entity.ID, kind combat.Projectile, at geom.Vec3)
}

// Options wires an Agent to its collaborators.
type Options struct {
	ID       entity.ID
	ZoneName string
	Zone     geom.Bounds
	Profile  Profile
	Body     locomotion.Body
	Env      Environment
	Registry *arbitration.Registry
	// Planner defaults to a nav.Planner over Env.
	Planner  locomotion.Pathfinder
	Roller   *chance.Roller
	Policy   Policy
	BotVsBot bool
	Logger   *zap.Logger
}

// Agent is one autonomous combatant: its target, cooldowns, combat state,
// and the movement and timing controllers it exclusively owns.
//
// Invariant: State() == Idle iff no target is held.
// Invariant: a held target is always the agent's claim in the registry.
// Concurrency: Tick, OnDamaged, and Stop must be called from one goroutine
// at a time; only the registry is shared with other agents.
type Agent struct {
	id       entity.ID
	zoneName string
	zone     geom.Bounds
	profile  Profile
	policy   Policy
	botVsBot bool

	body     locomotion.Body
	env      Environment
	registry *arbitration.Registry
	roller   *chance.Roller
	logger   *zap.Logger

	loco     *locomotion.Controller
	timing   *combat.TimingModel
	specials *combat.Specials

	state     State
	lifecycle Lifecycle
	target    entity.Ref
	hasTarget bool
	self      entity.Observation

	retargetCD int
	jumpCD     int
	strafeCD   int
	strafing   bool
	strafeSign int
	optimal    float64
}

// NewAgent builds an agent in the Idle state. The profile is sanitized here;
// corrections are logged at warn level.
//
// Precondition: ID, Body, Env, Registry, and Roller must be set.
func NewAgent(opts Options) (*Agent, error) {
	if opts.ID == "" {
		return nil, fmt.Errorf("bot.NewAgent: id must not be empty")
	}
	if opts.Body == nil || opts.Env == nil || opts.Registry == nil || opts.Roller == nil {
		return nil, fmt.Errorf("bot.NewAgent %s: body, env, registry and roller must not be nil", opts.ID)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("agent", string(opts.ID)))

	profile, fixed := opts.Profile.Sanitize()
	if len(fixed) > 0 {
		logger.Warn("profile values corrected", zap.String("profile", profile.ID), zap.Strings("fields", fixed))
	}
	planner := opts.Planner
	if planner == nil {
		planner = nav.NewPlanner(opts.Env)
	}

	a := &Agent{
		id:         opts.ID,
		zoneName:   opts.ZoneName,
		zone:       opts.Zone,
		profile:    profile,
		policy:     opts.Policy,
		botVsBot:   opts.BotVsBot,
		body:       opts.Body,
		env:        opts.Env,
		registry:   opts.Registry,
		roller:     opts.Roller,
		logger:     logger,
		loco:       locomotion.NewController(opts.Body, opts.Env, planner, profile.MovementConfig()),
		timing:     combat.NewTimingModel(profile.TimingConfig(), opts.Roller, opts.Body, logger),
		specials:   combat.NewSpecials(profile.SpecialsConfig(), opts.Roller),
		strafeSign: 1,
	}
	a.optimal = a.timing.OptimalDistance()
	return a, nil
}

// Tick runs one decision and movement step. Dead or respawning agents do nothing.
func (a *Agent) Tick() {
	if a.lifecycle != Alive {
		return
	}
	a.timing.Advance()
	a.specials.Tick()
	a.cooldowns()

	self, ok := a.env.Observe(a.id)
	if !ok || !self.Alive {
		return
	}
	a.self = self

	a.validateTarget(self)
	if a.retargetCD <= 0 {
		a.retargetCD = a.profile.RetargetTicks
		a.acquire(self)
	}

	if !a.hasTarget {
		a.setState(Idle)
		a.wander(self)
	} else if tgt, ok := a.env.Observe(a.target.ID); ok {
		a.fight(self, tgt)
	}
	a.loco.Tick()
}

func (a *Agent) cooldowns() {
	if a.retargetCD > 0 {
		a.retargetCD--
	}
	if a.jumpCD > 0 {
		a.jumpCD--
	}
	if a.strafeCD > 0 {
		a.strafeCD--
	}
}

// validateTarget drops a held target that died, vanished, moved out of the
// lose radius, or whose claim the registry no longer records.
func (a *Agent) validateTarget(self entity.Observation) {
	if !a.hasTarget {
		return
	}
	tgt, ok := a.env.Observe(a.target.ID)
	switch {
	case !ok:
		a.loseTarget("gone")
	case !tgt.Alive:
		a.loseTarget("dead")
	case tgt.Class == entity.ClassIneligible:
		a.loseTarget("ineligible")
	case self.Location.Dist(tgt.Location) > a.profile.LoseRange:
		a.loseTarget("out of range")
	default:
		if held, claimed := a.registry.ClaimOf(a.id); !claimed || held.ID != a.target.ID {
			a.loseTarget("claim revoked")
		}
	}
}

// acquire runs the target acquisition order for one evaluation cycle.
func (a *Agent) acquire(self entity.Observation) {
	if a.policy == StayEngaged && a.hasTarget {
		return
	}
	players, agents := a.candidates(self)
	for _, p := range players {
		if a.hasTarget && p.ID == a.target.ID {
			return
		}
		if a.forceTarget(p.Ref()) {
			return
		}
	}
	if a.hasTarget {
		return
	}
	if !a.botVsBot {
		return
	}
	for _, o := range agents {
		if a.forceTarget(o.Ref()) {
			return
		}
	}
}

// candidates returns eligible players and agents inside detection range with
// a free slot (or already claimed by a), nearest first.
func (a *Agent) candidates(self entity.Observation) (players, agents []entity.Observation) {
	type ranked struct {
		obs  entity.Observation
		dist float64
	}
	var all []ranked
	for _, o := range a.env.Nearby(self.Location, a.profile.DetectionRange) {
		if o.ID == a.id || !o.Alive || o.Class == entity.ClassIneligible {
			continue
		}
		d := self.Location.Dist(o.Location)
		if d >= a.profile.DetectionRange {
			continue
		}
		held := a.hasTarget && a.target.ID == o.ID
		if !held && !a.registry.IsSlotAvailable(o.Ref()) {
			continue
		}
		all = append(all, ranked{obs: o, dist: d})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].dist != all[j].dist {
			return all[i].dist < all[j].dist
		}
		return all[i].obs.ID < all[j].obs.ID
	})
	for _, r := range all {
		if r.obs.Class == entity.ClassPlayer {
			players = append(players, r.obs)
		} else {
			agents = append(agents, r.obs)
		}
	}
	return players, agents
}

// forceTarget claims victim and focuses on it for FocusTicks.
//
// Postcondition: returns false and leaves the current target untouched if the claim fails.
func (a *Agent) forceTarget(victim entity.Ref) bool {
	if !a.registry.Claim(a.id, victim) {
		return false
	}
	prev := a.target
	a.target = victim
	a.hasTarget = true
	a.retargetCD = a.profile.FocusTicks
	a.optimal = a.timing.OptimalDistance()
	a.timing.Reset()
	a.loco.Stop()
	if a.state == Idle {
		a.setState(Chasing)
	}
	a.logger.Debug("target claimed",
		zap.String("victim", string(victim.ID)),
		zap.Stringer("class", victim.Class),
		zap.String("previous", string(prev.ID)),
	)
	return true
}

func (a *Agent) loseTarget(reason string) {
	if !a.hasTarget {
		return
	}
	a.logger.Debug("target lost", zap.String("victim", string(a.target.ID)), zap.String("reason", reason))
	if held, ok := a.registry.ClaimOf(a.id); ok && held.ID == a.target.ID {
		a.registry.Release(a.id)
	}
	a.target = entity.Ref{}
	a.hasTarget = false
	a.strafing = false
	a.timing.Reset()
	a.loco.Stop()
	a.setState(Idle)
}

func (a *Agent) fight(self, tgt entity.Observation) {
	d := self.Location.Dist(tgt.Location)
	ratio := self.HealthRatio()
	sprint := !a.timing.Feinting()

	if ratio < a.profile.RetreatHealth || (a.state == Retreating && ratio < a.profile.RecoverHealth) {
		a.setState(Retreating)
		a.loco.MoveAway(tgt.Location.Pos, sprint)
		if a.specials.TryPotion(d, ratio) {
			a.env.Launch(a.id, combat.ProjectilePotion, tgt.Location.Pos)
		}
		return
	}

	aim := tgt.Location.Eye().Add(a.timing.AimJitter())
	a.loco.LookAt(aim)

	switch {
	case a.specials.TryRod(d):
		a.env.Launch(a.id, combat.ProjectileRod, aim)
	case a.specials.TryPotion(d, ratio):
		a.env.Launch(a.id, combat.ProjectilePotion, tgt.Location.Pos)
	}
	if d <= a.profile.AttackRange {
		a.timing.TryAttack(tgt.ID, combat.StrikerFunc(func(victim entity.ID, critical bool) {
			a.env.Attack(a.id, victim, critical, a.profile.DamageMultiplier)
		}))
		sprint = !a.timing.Feinting()
	}

	fighting := a.state == Engaging || a.state == Strafing
	chase := d > a.profile.AttackRange
	if fighting {
		chase = d > a.profile.AttackRange+a.profile.ChaseMargin
	}
	if chase {
		a.setState(Chasing)
		a.chase(self, tgt, sprint)
		return
	}

	if !fighting || a.strafeCD <= 0 {
		a.strafing = a.roller.Chance("strafe", a.profile.StrafeChance)
		a.strafeSign = a.roller.Sign("strafe side")
		a.strafeCD = a.profile.StrafeTicks
	}
	if a.strafing {
		a.setState(Strafing)
	} else {
		a.setState(Engaging)
	}

	toward := tgt.Location.Pos.Sub(self.Location.Pos)
	switch {
	case d < a.optimal-a.profile.BackoffMargin:
		a.loco.MoveAway(tgt.Location.Pos, false)
		a.loco.LookAt(aim)
	case a.strafing:
		a.loco.Strafe(aim, a.strafeSign, sprint)
	case d > a.optimal:
		a.loco.Steer(toward, sprint, 1)
	default:
		a.loco.Steer(geom.Vec3{}, false, 0)
	}
}

// chase paths toward the target, hopping or side-stepping a wall in the way.
func (a *Agent) chase(self, tgt entity.Observation, sprint bool) {
	dir := tgt.Location.Pos.Sub(self.Location.Pos).Horizontal().Normalize()
	if a.body.Grounded() && !dir.IsZero() && a.loco.FacingWall(dir) {
		if a.jumpCD <= 0 {
			a.loco.Jump()
			a.jumpCD = a.profile.JumpCooldown
		} else {
			a.loco.Steer(dir.Perp(), sprint, 1)
			return
		}
	}
	a.loco.MoveTo(tgt.Location, sprint)
}

// wander keeps an idle agent walking between random standable points in its zone.
func (a *Agent) wander(self entity.Observation) {
	if a.loco.IsMoving() && !a.loco.IsStuck() {
		return
	}
	if a.zone.Domain != self.Location.Domain {
		return
	}
	const attempts = 8
	b := a.zone
	for i := 0; i < attempts; i++ {
		x := b.Min.X + (b.Max.X-b.Min.X)*a.roller.Float64()
		z := b.Min.Z + (b.Max.Z-b.Min.Z)*a.roller.Float64()
		cell, ok := nav.ScanUp(a.env, b.Domain,
			int(math.Floor(x)), int(math.Floor(z)),
			int(math.Floor(b.Min.Y)), int(math.Floor(b.Max.Y)))
		if !ok {
			continue
		}
		a.loco.MoveTo(geom.At(b.Domain, cell.Feet()), false)
		return
	}
}

// OnDamaged lets an idle agent retaliate against whoever hit it.
//
// Postcondition: a non-idle agent, an ineligible or self attacker, or a full
// victim slot leaves the agent unchanged.
func (a *Agent) OnDamaged(attacker entity.Ref) {
	if a.lifecycle != Alive || a.hasTarget {
		return
	}
	if attacker.ID == "" || attacker.ID == a.id || attacker.Class == entity.ClassIneligible {
		return
	}
	if attacker.Class == entity.ClassAgent && !a.botVsBot {
		return
	}
	if a.forceTarget(attacker) {
		a.logger.Debug("retaliating", zap.String("attacker", string(attacker.ID)))
	}
}

// Stop cancels movement, pending timing callbacks, and the registry claim.
//
// Postcondition: the agent holds no claim and is Idle.
func (a *Agent) Stop() {
	a.loco.Stop()
	a.timing.Reset()
	a.registry.Release(a.id)
	a.target = entity.Ref{}
	a.hasTarget = false
	a.strafing = false
	a.setState(Idle)
}

func (a *Agent) setState(s State) {
	if s == a.state {
		return
	}
	a.logger.Debug("state transition", zap.Stringer("from", a.state), zap.Stringer("to", s))
	a.state = s
}

// ID returns the agent's entity ID.
func (a *Agent) ID() entity.ID { return a.id }

// Profile returns the sanitized profile.
func (a *Agent) Profile() Profile { return a.profile }

// ZoneName returns the name of the zone the agent operates in.
func (a *Agent) ZoneName() string { return a.zoneName }

// Zone returns the agent's operating bounds.
func (a *Agent) Zone() geom.Bounds { return a.zone }

// State returns the current combat state.
func (a *Agent) State() State { return a.state }

// Target returns the held target, if any.
func (a *Agent) Target() (entity.Ref, bool) { return a.target, a.hasTarget }

// Lifecycle returns whether the agent's body is alive.
func (a *Agent) Lifecycle() Lifecycle { return a.lifecycle }

// SetLifecycle records a lifecycle change made by the owner. Leaving Alive stops the agent.
func (a *Agent) SetLifecycle(l Lifecycle) {
	if l != Alive && a.lifecycle == Alive {
		a.Stop()
	}
	a.lifecycle = l
}

// Combo returns the current hit combo.
func (a *Agent) Combo() int { return a.timing.Combo() }

// Locomotion exposes the movement controller.
func (a *Agent) Locomotion() *locomotion.Controller { return a.loco }

// Timing exposes the combat timing model.
func (a *Agent) Timing() *combat.TimingModel { return a.timing }

// Specials exposes the special-ability cooldowns.
func (a *Agent) Specials() *combat.Specials { return a.specials }

// Status is the read-only view polled by display collaborators.
type Status struct {
	ID        entity.ID
	Name      string
	Profile   string
	Zone      string
	State     State
	Target    entity.ID
	Health    float64
	MaxHealth float64
	Lifecycle Lifecycle
	Combo     int
}

// Status snapshots the agent using its most recent self observation.
func (a *Agent) Status() Status {
	return Status{
		ID:        a.id,
		Name:      a.profile.Name,
		Profile:   a.profile.ID,
		Zone:      a.zoneName,
		State:     a.state,
		Target:    a.target.ID,
		Health:    a.self.Health,
		MaxHealth: a.self.MaxHealth,
		Lifecycle: a.lifecycle,
		Combo:     a.timing.Combo(),
	}
}
