package bot_test

import (
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/arbitration"
	"github.com/cory-johannsen/skirmish/internal/game/bot"
	"github.com/cory-johannsen/skirmish/internal/game/chance"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/entity"
	"github.com/cory-johannsen/skirmish/internal/game/geom"
)

const arena = "arena"

type body struct {
	loc       geom.Location
	vel       geom.Vec3
	sprinting bool
}

func (b *body) Location() geom.Location { return b.loc }
func (b *body) Velocity() geom.Vec3     { return b.vel }
func (b *body) SetVelocity(v geom.Vec3) { b.vel = v }
func (b *body) Grounded() bool          { return true }
func (b *body) Sprinting() bool         { return b.sprinting }
func (b *body) SetSprinting(on bool)    { b.sprinting = on }
func (b *body) Look(yaw, pitch float64) { b.loc.Yaw, b.loc.Pitch = yaw, pitch }

type attack struct {
	attacker, victim entity.ID
	critical         bool
	multiplier       float64
}

// env is a flat floor at y=0 holding agent bodies and plain observations.
type env struct {
	bodies   map[entity.ID]*body
	health   map[entity.ID]float64
	others   map[entity.ID]entity.Observation
	attacks  []attack
	launches []combat.Projectile
}

func newEnv() *env {
	return &env{
		bodies: make(map[entity.ID]*body),
		health: make(map[entity.ID]float64),
		others: make(map[entity.ID]entity.Observation),
	}
}

func (e *env) IsSolid(domain string, c geom.Cell) bool { return domain == arena && c.Y == 0 }

func (e *env) Observe(id entity.ID) (entity.Observation, bool) {
	if b, ok := e.bodies[id]; ok {
		hp := e.health[id]
		return entity.Observation{ID: id, Class: entity.ClassAgent, Location: b.loc, Health: hp, MaxHealth: 20, Alive: hp > 0}, true
	}
	o, ok := e.others[id]
	return o, ok
}

func (e *env) Nearby(center geom.Location, radius float64) []entity.Observation {
	var out []entity.Observation
	for id := range e.bodies {
		if o, _ := e.Observe(id); center.Dist(o.Location) <= radius {
			out = append(out, o)
		}
	}
	for _, o := range e.others {
		if center.Dist(o.Location) <= radius {
			out = append(out, o)
		}
	}
	return out
}

func (e *env) Attack(attacker, victim entity.ID, critical bool, multiplier float64) {
	e.attacks = append(e.attacks, attack{attacker, victim, critical, multiplier})
}

func (e *env) Launch(_ entity.ID, kind combat.Projectile, _ geom.Vec3) {
	e.launches = append(e.launches, kind)
}

func (e *env) player(id entity.ID, x, z float64) {
	e.others[id] = entity.Observation{
		ID: id, Class: entity.ClassPlayer, Location: geom.At(arena, geom.V(x, 1, z)),
		Health: 20, MaxHealth: 20, Alive: true,
	}
}

type harness struct {
	env      *env
	registry *arbitration.Registry
}

func newHarness(ceilings arbitration.Ceilings) *harness {
	return &harness{env: newEnv(), registry: arbitration.NewRegistry(ceilings)}
}

type agentOpt func(*bot.Options)

func withProfile(p bot.Profile) agentOpt { return func(o *bot.Options) { o.Profile = p } }
func withPolicy(p bot.Policy) agentOpt   { return func(o *bot.Options) { o.Policy = p } }
func withBotVsBot() agentOpt             { return func(o *bot.Options) { o.BotVsBot = true } }
func withSource(s chance.Source) agentOpt {
	return func(o *bot.Options) { o.Roller = chance.NewRoller(s, nil) }
}

func (h *harness) agent(t require.TestingT, id entity.ID, x, z float64, opts ...agentOpt) (*bot.Agent, *body) {
	b := &body{loc: geom.At(arena, geom.V(x, 1, z))}
	h.env.bodies[id] = b
	h.env.health[id] = 20
	o := bot.Options{
		ID:       id,
		ZoneName: "pit",
		Zone:     geom.NewBounds(arena, geom.V(-20, 0, -20), geom.V(20, 4, 20)),
		Profile:  bot.DefaultProfile(),
		Body:     b,
		Env:      h.env,
		Registry: h.registry,
		Roller:   chance.NewRoller(chance.NewSeededSource(7), nil),
		Logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	a, err := bot.NewAgent(o)
	require.NoError(t, err)
	return a, b
}
