package world

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/entity"
	"github.com/cory-johannsen/skirmish/internal/game/geom"
)

// SandboxConfig tunes the reference host's physics and damage rules.
type SandboxConfig struct {
	Gravity  float64
	Drag     float64
	Friction float64
	// VoidY kills anything that falls below it.
	VoidY float64

	AttackDamage   float64
	CritMultiplier float64
	Reach          float64
	Knockback      float64

	PotionDamage float64
	PotionRadius float64
	RodRadius    float64
	RodLift      float64

	// BotVsBot lets agents damage each other. When false such hits are
	// reported as cancelled damage events.
	BotVsBot bool
}

// DefaultSandboxConfig returns block-game physics at 20 ticks per second.
func DefaultSandboxConfig() SandboxConfig {
	return SandboxConfig{
		Gravity:        0.08,
		Drag:           0.98,
		Friction:       0.546,
		VoidY:          -64,
		AttackDamage:   2,
		CritMultiplier: 1.5,
		Reach:          6,
		Knockback:      0.4,
		PotionDamage:   3,
		PotionRadius:   2,
		RodRadius:      1.5,
		RodLift:        0.3,
	}
}

type sbEntity struct {
	id        entity.ID
	name      string
	kit       string
	isBot     bool
	mode      entity.Mode
	loc       geom.Location
	vel       geom.Vec3
	grounded  bool
	sprinting bool
	health    float64
	maxHealth float64
	alive     bool
}

func (e *sbEntity) class() entity.Class {
	return entity.Classify(e.isBot, !e.isBot, e.mode)
}

func (e *sbEntity) observe() entity.Observation {
	return entity.Observation{
		ID:        e.id,
		Class:     e.class(),
		Location:  e.loc,
		Health:    e.health,
		MaxHealth: e.maxHealth,
		Alive:     e.alive,
	}
}

// Sandbox is an in-memory Host: a sparse voxel grid per domain plus a set of
// player and agent entities under simple gravity.
//
// All methods are safe for concurrent use. Events are emitted after the
// internal lock is released.
type Sandbox struct {
	mu       sync.RWMutex
	cfg      SandboxConfig
	solid    map[string]map[geom.Cell]struct{}
	entities map[entity.ID]*sbEntity
	sinks    []Sink
	logger   *zap.Logger
}

var _ Host = (*Sandbox)(nil)

// NewSandbox creates an empty Sandbox.
func NewSandbox(cfg SandboxConfig, logger *zap.Logger) *Sandbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sandbox{
		cfg:      cfg,
		solid:    make(map[string]map[geom.Cell]struct{}),
		entities: make(map[entity.ID]*sbEntity),
		logger:   logger,
	}
}

// IsSolid reports whether c is solid in domain.
func (s *Sandbox) IsSolid(domain string, c geom.Cell) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isSolidLocked(domain, c)
}

func (s *Sandbox) isSolidLocked(domain string, c geom.Cell) bool {
	_, ok := s.solid[domain][c]
	return ok
}

// SetSolid places or clears one block.
func (s *Sandbox) SetSolid(domain string, c geom.Cell, solid bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setSolidLocked(domain, c, solid)
}

func (s *Sandbox) setSolidLocked(domain string, c geom.Cell, solid bool) {
	cells := s.solid[domain]
	if cells == nil {
		cells = make(map[geom.Cell]struct{})
		s.solid[domain] = cells
	}
	if solid {
		cells[c] = struct{}{}
	} else {
		delete(cells, c)
	}
}

// Fill makes every cell of b solid in domain.
func (s *Sandbox) Fill(domain string, b Box) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.Cells(func(c geom.Cell) { s.setSolidLocked(domain, c, true) })
}

// Build lays out an arena's floor and blocks.
func (s *Sandbox) Build(a *Arena) {
	domain := a.Domain()
	if a.Floor != nil {
		y := *a.Floor
		s.Fill(domain, Box{
			Min: geom.C(int(math.Floor(a.Bounds.Min.X)), y, int(math.Floor(a.Bounds.Min.Z))),
			Max: geom.C(int(math.Floor(a.Bounds.Max.X)), y, int(math.Floor(a.Bounds.Max.Z))),
		})
	}
	for _, b := range a.Blocks {
		s.Fill(domain, b)
	}
	s.logger.Debug("arena built", zap.String("arena", a.ID), zap.String("domain", domain), zap.Int("blocks", len(a.Blocks)))
}

// Subscribe registers sink for all future events.
func (s *Sandbox) Subscribe(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

func (s *Sandbox) emit(events []Event) {
	if len(events) == 0 {
		return
	}
	s.mu.RLock()
	sinks := append([]Sink(nil), s.sinks...)
	s.mu.RUnlock()
	for _, ev := range events {
		for _, sink := range sinks {
			sink(ev)
		}
	}
}

// AddPlayer places a player entity with full health.
//
// Postcondition: Returns an error if id is already present.
func (s *Sandbox) AddPlayer(id entity.ID, loc geom.Location, mode entity.Mode, maxHealth float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[id]; ok {
		return fmt.Errorf("entity %q already present", id)
	}
	s.entities[id] = &sbEntity{
		id: id, name: string(id), mode: mode, loc: loc,
		grounded: true, health: maxHealth, maxHealth: maxHealth, alive: true,
	}
	return nil
}

// SetMode changes a player's participation mode.
func (s *Sandbox) SetMode(id entity.ID, mode entity.Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entities[id]; ok {
		e.mode = mode
	}
}

// Teleport moves an entity, keeping its velocity.
func (s *Sandbox) Teleport(id entity.ID, loc geom.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entities[id]; ok {
		e.loc = loc
	}
}

// SetHealth sets an entity's health, clamped to [0, max]. Reaching zero kills it.
func (s *Sandbox) SetHealth(id entity.ID, hp float64) {
	s.mu.Lock()
	var events []Event
	if e, ok := s.entities[id]; ok && e.alive {
		e.health = math.Max(0, math.Min(hp, e.maxHealth))
		if e.health == 0 {
			e.alive = false
			events = append(events, Event{Kind: EventDeath, Victim: entity.Ref{ID: id, Class: e.class()}})
		}
	}
	s.mu.Unlock()
	s.emit(events)
}

// Damage applies amount to victim on behalf of attacker (which may be empty),
// honoring the bot-versus-bot policy.
func (s *Sandbox) Damage(victim, attacker entity.ID, amount float64) {
	s.mu.Lock()
	events := s.damageLocked(victim, attacker, amount, geom.Vec3{})
	s.mu.Unlock()
	s.emit(events)
}

func (s *Sandbox) damageLocked(victim, attacker entity.ID, amount float64, push geom.Vec3) []Event {
	v, ok := s.entities[victim]
	if !ok || !v.alive {
		return nil
	}
	ev := Event{Kind: EventDamage, Victim: entity.Ref{ID: victim, Class: v.class()}, Amount: amount}
	if a, ok := s.entities[attacker]; ok {
		ev.Attacker = entity.Ref{ID: attacker, Class: a.class()}
		if a.isBot && v.isBot && !s.cfg.BotVsBot {
			ev.Cancelled = true
			return []Event{ev}
		}
	}
	v.health -= amount
	v.vel = v.vel.Add(push)
	events := []Event{ev}
	if v.health <= 0 {
		v.health = 0
		v.alive = false
		events = append(events, Event{Kind: EventDeath, Victim: ev.Victim, Attacker: ev.Attacker})
	}
	return events
}

// Leave removes an entity and reports it as gone.
func (s *Sandbox) Leave(id entity.ID) {
	s.mu.Lock()
	e, ok := s.entities[id]
	if ok {
		delete(s.entities, id)
	}
	s.mu.Unlock()
	if ok {
		s.emit([]Event{{Kind: EventLeave, Victim: entity.Ref{ID: id, Class: e.class()}}})
	}
}

// Observe returns a snapshot of id.
func (s *Sandbox) Observe(id entity.ID) (entity.Observation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return entity.Observation{}, false
	}
	return e.observe(), true
}

// Nearby returns live entities within radius of center, sorted by ID.
func (s *Sandbox) Nearby(center geom.Location, radius float64) []entity.Observation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []entity.Observation
	for _, e := range s.entities {
		if e.alive && center.Dist(e.loc) <= radius {
			out = append(out, e.observe())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Attack lands a melee hit if victim is within reach of attacker.
func (s *Sandbox) Attack(attacker, victim entity.ID, critical bool, multiplier float64) {
	s.mu.Lock()
	var events []Event
	a, okA := s.entities[attacker]
	v, okV := s.entities[victim]
	if okA && okV && a.alive && v.alive && a.loc.Dist(v.loc) <= s.cfg.Reach {
		dmg := s.cfg.AttackDamage * multiplier
		if critical {
			dmg *= s.cfg.CritMultiplier
		}
		push := v.loc.Pos.Sub(a.loc.Pos).Horizontal().Normalize().Scale(s.cfg.Knockback)
		events = s.damageLocked(victim, attacker, dmg, push)
	}
	s.mu.Unlock()
	s.emit(events)
}

// Launch resolves a projectile instantly at its aim point: a rod lifts the
// nearest entity within RodRadius without damage, a potion damages everyone
// within PotionRadius except the thrower.
func (s *Sandbox) Launch(attacker entity.ID, kind combat.Projectile, at geom.Vec3) {
	s.mu.Lock()
	var events []Event
	a, ok := s.entities[attacker]
	if ok && a.alive {
		switch kind {
		case combat.ProjectileRod:
			var hit *sbEntity
			best := s.cfg.RodRadius
			for _, e := range s.entities {
				if e.id == attacker || !e.alive || e.loc.Domain != a.loc.Domain {
					continue
				}
				if d := math.Min(e.loc.Pos.Dist(at), e.loc.Eye().Dist(at)); d <= best {
					hit, best = e, d
				}
			}
			if hit != nil {
				events = s.damageLocked(hit.id, attacker, 0, geom.Vec3{Y: s.cfg.RodLift})
			}
		case combat.ProjectilePotion:
			ids := make([]entity.ID, 0)
			for _, e := range s.entities {
				if e.id != attacker && e.alive && e.loc.Domain == a.loc.Domain &&
					e.loc.Pos.Dist(at) <= s.cfg.PotionRadius {
					ids = append(ids, e.id)
				}
			}
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
			for _, id := range ids {
				events = append(events, s.damageLocked(id, attacker, s.cfg.PotionDamage, geom.Vec3{})...)
			}
		}
	}
	s.mu.Unlock()
	s.emit(events)
}

// SpawnBody creates an agent body at spec.Location.
//
// Postcondition: Returns an error if spec.ID is empty or already present.
func (s *Sandbox) SpawnBody(spec BodySpec) (Body, error) {
	if spec.ID == "" {
		return nil, fmt.Errorf("sandbox: body id must not be empty")
	}
	maxHealth := spec.MaxHealth
	if maxHealth <= 0 {
		maxHealth = 20
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[spec.ID]; ok {
		return nil, fmt.Errorf("sandbox: entity %q already present", spec.ID)
	}
	s.entities[spec.ID] = &sbEntity{
		id: spec.ID, name: spec.Name, kit: spec.Kit, isBot: true, mode: entity.ModeSurvival,
		loc: spec.Location, grounded: true, health: maxHealth, maxHealth: maxHealth, alive: true,
	}
	return &sandboxBody{s: s, id: spec.ID}, nil
}

// RemoveBody deletes an agent body without emitting an event. Idempotent.
func (s *Sandbox) RemoveBody(id entity.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entities, id)
}

// Len returns the number of entities, alive or dead.
func (s *Sandbox) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// Step integrates one tick of motion for every live entity: gravity, drag,
// ground friction, and collision against solid cells.
func (s *Sandbox) Step() {
	s.mu.Lock()
	var events []Event
	ids := make([]entity.ID, 0, len(s.entities))
	for id := range s.entities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		e := s.entities[id]
		if !e.alive {
			continue
		}
		s.integrateLocked(e)
		if e.loc.Pos.Y < s.cfg.VoidY {
			e.health = 0
			e.alive = false
			events = append(events, Event{Kind: EventDeath, Victim: entity.Ref{ID: id, Class: e.class()}})
		}
	}
	s.mu.Unlock()
	s.emit(events)
}

func (s *Sandbox) integrateLocked(e *sbEntity) {
	domain := e.loc.Domain
	pos, vel := e.loc.Pos, e.vel
	blocked := func(p geom.Vec3) bool {
		c := geom.CellOf(p)
		return s.isSolidLocked(domain, c) || s.isSolidLocked(domain, c.Up())
	}

	next := pos.Add(geom.Vec3{X: vel.X, Z: vel.Z})
	if blocked(next) {
		vel.X, vel.Z = 0, 0
	} else {
		pos = next
	}

	vel.Y -= s.cfg.Gravity
	vel.Y *= s.cfg.Drag
	ny := pos.Y + vel.Y
	switch {
	case vel.Y < 0 && s.isSolidLocked(domain, geom.CellOf(geom.V(pos.X, ny, pos.Z))):
		pos.Y = math.Floor(ny) + 1
		vel.Y = 0
		e.grounded = true
	case vel.Y > 0 && s.isSolidLocked(domain, geom.CellOf(geom.V(pos.X, ny+geom.EyeHeight, pos.Z))):
		vel.Y = 0
		e.grounded = false
	default:
		pos.Y = ny
		e.grounded = false
	}
	if e.grounded {
		vel.X *= s.cfg.Friction
		vel.Z *= s.cfg.Friction
	}
	e.loc.Pos, e.vel = pos, vel
}

// sandboxBody is the locomotion handle for one agent entity.
type sandboxBody struct {
	s  *Sandbox
	id entity.ID
}

func (b *sandboxBody) ID() entity.ID { return b.id }

func (b *sandboxBody) read(fn func(e *sbEntity)) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()
	if e, ok := b.s.entities[b.id]; ok {
		fn(e)
	}
}

func (b *sandboxBody) write(fn func(e *sbEntity)) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if e, ok := b.s.entities[b.id]; ok {
		fn(e)
	}
}

func (b *sandboxBody) Location() (l geom.Location) {
	b.read(func(e *sbEntity) { l = e.loc })
	return l
}

func (b *sandboxBody) Velocity() (v geom.Vec3) {
	b.read(func(e *sbEntity) { v = e.vel })
	return v
}

func (b *sandboxBody) SetVelocity(v geom.Vec3) {
	b.write(func(e *sbEntity) { e.vel = v })
}

func (b *sandboxBody) Grounded() (g bool) {
	b.read(func(e *sbEntity) { g = e.grounded })
	return g
}

func (b *sandboxBody) Sprinting() (on bool) {
	b.read(func(e *sbEntity) { on = e.sprinting })
	return on
}

func (b *sandboxBody) SetSprinting(on bool) {
	b.write(func(e *sbEntity) { e.sprinting = on })
}

func (b *sandboxBody) Look(yaw, pitch float64) {
	b.write(func(e *sbEntity) { e.loc.Yaw, e.loc.Pitch = yaw, pitch })
}
