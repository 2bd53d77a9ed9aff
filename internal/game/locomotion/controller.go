// Package locomotion turns movement intents into per-tick velocity and
// orientation commands for one agent body. It never touches combat state.
package locomotion

import (
	"github.com/cory-johannsen/skirmish/internal/game/geom"
	"github.com/cory-johannsen/skirmish/internal/game/nav"
)

// Body is the motion surface of one agent in the host world.
type Body interface {
	Location() geom.Location
	Velocity() geom.Vec3
	SetVelocity(v geom.Vec3)
	Grounded() bool
	Sprinting() bool
	SetSprinting(on bool)
	Look(yaw, pitch float64)
}

// Pathfinder produces routes. *nav.Planner satisfies it.
type Pathfinder interface {
	Plan(req nav.Request) (nav.Result, bool)
}

// Config holds movement tuning. Speeds are blocks per tick.
type Config struct {
	WalkSpeed    float64
	SprintSpeed  float64
	JumpVelocity float64
	// StuckEpsilon is the per-tick displacement below which the body counts as not moving.
	StuckEpsilon float64
	// StuckTicks is how many consecutive still ticks must be exceeded before the path is discarded.
	StuckTicks int
	// RetargetDistance is the jitter tolerance under which MoveTo keeps the active path.
	RetargetDistance float64
	// WaypointRadius advances the path cursor once the body is this close to a waypoint.
	WaypointRadius float64
	// ArriveRadius ends direct movement once the body is this close to the target.
	ArriveRadius float64
	StrafeFactor float64
	AirControl   float64
	// LookSmoothing is the fraction of the remaining rotation applied per tick.
	LookSmoothing float64
}

// DefaultConfig returns player-like movement values at 20 ticks per second.
func DefaultConfig() Config {
	return Config{
		WalkSpeed:        0.2,
		SprintSpeed:      0.26,
		JumpVelocity:     0.42,
		StuckEpsilon:     0.05,
		StuckTicks:       40,
		RetargetDistance: 3.0,
		WaypointRadius:   0.8,
		ArriveRadius:     0.5,
		StrafeFactor:     0.85,
		AirControl:       0.05,
		LookSmoothing:    0.4,
	}
}

type steerCmd struct {
	dir    geom.Vec3
	sprint bool
	factor float64
}

// Controller follows planned paths, falls back to direct movement when
// planning fails, and detects when the body is stuck.
//
// Invariant: path is nil whenever moving is false.
// Concurrency: a Controller is owned by one agent and must not be shared.
type Controller struct {
	body    Body
	oracle  nav.Oracle
	planner Pathfinder
	cfg     Config

	path   []geom.Vec3
	cursor int

	target    geom.Location
	hasTarget bool
	sprint    bool
	moving    bool

	last       geom.Location
	stillTicks int
	stuck      bool

	steer   *steerCmd
	replans int
}

// NewController builds a Controller for body.
//
// Precondition: body, oracle, and planner must not be nil.
func NewController(body Body, oracle nav.Oracle, planner Pathfinder, cfg Config) *Controller {
	if body == nil || oracle == nil || planner == nil {
		panic("locomotion.NewController: body, oracle and planner must not be nil")
	}
	return &Controller{
		body:    body,
		oracle:  oracle,
		planner: planner,
		cfg:     cfg,
		last:    body.Location(),
	}
}

// MoveTo starts moving toward target, planning a route.
//
// Postcondition: when a path is active, the controller is not stuck, and the
// previous target lies within RetargetDistance of target, no replanning occurs.
func (c *Controller) MoveTo(target geom.Location, sprint bool) {
	c.sprint = sprint
	if c.hasTarget && c.moving && c.path != nil && !c.stuck &&
		c.target.Dist(target) < c.cfg.RetargetDistance {
		return
	}
	c.target = target
	c.hasTarget = true
	c.replan()
	c.moving = true
	c.stillTicks = 0
}

func (c *Controller) replan() {
	c.replans++
	res, ok := c.planner.Plan(nav.Request{Start: c.body.Location(), Goal: c.target})
	if ok && len(res.Waypoints) > 0 {
		c.path = res.Waypoints
	} else {
		c.path = nil
	}
	c.cursor = 0
}

// Steer moves along dir for the next tick only, cancelling any active path.
// factor scales the walk/sprint speed.
func (c *Controller) Steer(dir geom.Vec3, sprint bool, factor float64) {
	c.cancel()
	c.steer = &steerCmd{dir: dir.Horizontal().Normalize(), sprint: sprint, factor: factor}
}

// Strafe circles around lookAt in direction sign (+1 or -1) for the next tick.
func (c *Controller) Strafe(lookAt geom.Vec3, sign int, sprint bool) {
	to := lookAt.Sub(c.body.Location().Pos).Horizontal().Normalize()
	c.Steer(to.Perp().Scale(float64(sign)), sprint, c.cfg.StrafeFactor)
	c.LookAt(lookAt)
}

// MoveAway steers directly away from threat for the next tick.
func (c *Controller) MoveAway(threat geom.Vec3, sprint bool) {
	away := c.body.Location().Pos.Sub(threat)
	c.Steer(away, sprint, 1)
}

// Tick advances motion by one simulation step.
func (c *Controller) Tick() {
	loc := c.body.Location()
	c.trackStuck(loc)
	c.last = loc

	if s := c.steer; s != nil {
		c.steer = nil
		c.applyVelocity(s.dir, s.sprint, s.factor)
		return
	}
	if !c.moving {
		return
	}
	if c.path != nil {
		c.followPath(loc)
		return
	}
	if c.hasTarget {
		c.moveDirectly(loc)
	}
}

func (c *Controller) trackStuck(loc geom.Location) {
	if !c.moving {
		c.stillTicks = 0
		return
	}
	if loc.Dist(c.last) >= c.cfg.StuckEpsilon {
		c.stillTicks = 0
		c.stuck = false
		return
	}
	c.stillTicks++
	if c.stillTicks > c.cfg.StuckTicks {
		c.stuck = true
		c.stillTicks = 0
		if c.hasTarget {
			c.replan()
		}
	}
}

func (c *Controller) followPath(loc geom.Location) {
	if c.cursor >= len(c.path) {
		c.Stop()
		return
	}
	wp := c.path[c.cursor]
	if loc.Pos.Dist(wp) < c.cfg.WaypointRadius {
		c.cursor++
		if c.cursor >= len(c.path) {
			c.Stop()
			return
		}
		wp = c.path[c.cursor]
	}
	c.moveToward(loc, wp)
}

func (c *Controller) moveDirectly(loc geom.Location) {
	if loc.Pos.Dist(c.target.Pos) < c.cfg.ArriveRadius {
		c.Stop()
		return
	}
	c.moveToward(loc, c.target.Pos)
}

func (c *Controller) moveToward(loc geom.Location, point geom.Vec3) {
	dir := point.Sub(loc.Pos).Horizontal()
	if dir.Len() < 0.1 {
		return
	}
	dir = dir.Normalize()
	if c.shouldHop(loc, dir) || (point.Y-loc.Pos.Y >= 0.5 && c.body.Grounded()) {
		c.Jump()
	}
	c.applyVelocity(dir, c.sprint, 1)
	c.LookAt(point.Add(geom.Vec3{Y: geom.EyeHeight}))
}

// shouldHop probes half a block ahead at foot level: a solid cell with
// clearance above is jumped.
func (c *Controller) shouldHop(loc geom.Location, dir geom.Vec3) bool {
	if !c.body.Grounded() {
		return false
	}
	probe := geom.CellOf(loc.Pos.Add(dir.Scale(0.5)))
	return c.oracle.IsSolid(loc.Domain, probe) && !c.oracle.IsSolid(loc.Domain, probe.Up())
}

// ledgeAhead reports whether the cell 0.6 blocks along dir is open at feet
// and head level but has no floor within one block below it. Planned paths
// are exempt: the planner already validated every step.
func (c *Controller) ledgeAhead(loc geom.Location, dir geom.Vec3) bool {
	probe := geom.CellOf(loc.Pos.Add(dir.Scale(0.6)))
	if probe == geom.CellOf(loc.Pos) {
		return false
	}
	if c.oracle.IsSolid(loc.Domain, probe) || c.oracle.IsSolid(loc.Domain, probe.Up()) {
		return false
	}
	return nav.Classify(c.oracle, loc.Domain, probe) == nav.StepBlocked
}

// FacingWall reports whether the eye-level cell 0.8 blocks along dir is solid.
func (c *Controller) FacingWall(dir geom.Vec3) bool {
	loc := c.body.Location()
	probe := loc.Eye().Add(dir.Horizontal().Normalize().Scale(0.8))
	return c.oracle.IsSolid(loc.Domain, geom.CellOf(probe))
}

func (c *Controller) applyVelocity(dir geom.Vec3, sprint bool, factor float64) {
	speed := c.cfg.WalkSpeed
	if sprint {
		speed = c.cfg.SprintSpeed
	}
	speed *= factor
	c.body.SetSprinting(sprint)

	v := c.body.Velocity()
	if c.body.Grounded() {
		v.X, v.Z = dir.X*speed, dir.Z*speed
		if c.path == nil && c.ledgeAhead(c.body.Location(), dir) {
			v.X, v.Z = 0, 0
		}
	} else {
		v = v.Add(dir.Scale(speed * c.cfg.AirControl))
	}
	c.body.SetVelocity(v)
}

// Jump applies the jump impulse when grounded.
//
// Postcondition: returns true iff the impulse was applied.
func (c *Controller) Jump() bool {
	if !c.body.Grounded() {
		return false
	}
	v := c.body.Velocity()
	v.Y = c.cfg.JumpVelocity
	c.body.SetVelocity(v)
	return true
}

// LookAt rotates the body's view toward point, covering LookSmoothing of the
// remaining angle each call.
func (c *Controller) LookAt(point geom.Vec3) {
	loc := c.body.Location()
	yaw, pitch := geom.Orientation(point.Sub(loc.Eye()))
	k := c.cfg.LookSmoothing
	c.body.Look(
		loc.Yaw+geom.AngleDelta(yaw, loc.Yaw)*k,
		loc.Pitch+(pitch-loc.Pitch)*k,
	)
}

// Stop halts horizontal motion and forgets the current target and path.
func (c *Controller) Stop() {
	v := c.body.Velocity()
	v.X, v.Z = 0, 0
	c.body.SetVelocity(v)
	c.body.SetSprinting(false)
	c.cancel()
}

func (c *Controller) cancel() {
	c.moving = false
	c.path = nil
	c.cursor = 0
	c.hasTarget = false
	c.stillTicks = 0
	c.stuck = false
}

// IsMoving reports whether a MoveTo is in progress.
func (c *Controller) IsMoving() bool { return c.moving }

// IsStuck reports whether the body has been still for more than StuckTicks
// while moving and has not moved since.
func (c *Controller) IsStuck() bool { return c.stuck }

// Target returns the last requested MoveTo target.
func (c *Controller) Target() (geom.Location, bool) { return c.target, c.hasTarget }

// Path returns a copy of the active waypoints.
func (c *Controller) Path() []geom.Vec3 {
	if c.path == nil {
		return nil
	}
	return append([]geom.Vec3(nil), c.path...)
}

// Cursor returns the index of the waypoint currently being approached.
func (c *Controller) Cursor() int { return c.cursor }

// Replans returns how many times a route has been requested from the planner.
func (c *Controller) Replans() int { return c.replans }
