package gameserver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/skirmish/internal/game/arbitration"
	"github.com/cory-johannsen/skirmish/internal/game/bot"
	"github.com/cory-johannsen/skirmish/internal/game/chance"
	"github.com/cory-johannsen/skirmish/internal/game/entity"
	"github.com/cory-johannsen/skirmish/internal/game/geom"
	"github.com/cory-johannsen/skirmish/internal/game/world"
)

var (
	// ErrAgentLimit is returned when spawning would exceed Config.MaxAgents.
	ErrAgentLimit = errors.New("agent limit reached")
	// ErrUnknownAgent is returned for an ID the manager does not own.
	ErrUnknownAgent = errors.New("unknown agent")
	// ErrUnknownArena is returned when spawning into an arena that is not loaded.
	ErrUnknownArena = errors.New("unknown arena")
	// ErrUnknownProfile is returned when a profile ID has no loaded template.
	ErrUnknownProfile = errors.New("unknown profile")
)

// Config holds the Manager's simulation settings.
type Config struct {
	// MaxAgents caps live agents; 0 means unlimited.
	MaxAgents int
	// ParallelTicks ticks agents concurrently with at most TickWorkers goroutines.
	ParallelTicks bool
	TickWorkers   int
	// PopulationInterval is the number of ticks between arena top-ups; 0 disables population.
	PopulationInterval int
	// RespawnDelay is the number of ticks before a dead agent respawns; 0 disables respawn.
	RespawnDelay   int
	Policy         bot.Policy
	BotVsBot       bool
	DefaultProfile string
}

// SourceFactory returns the random source for a newly spawned agent.
type SourceFactory func(id entity.ID) chance.Source

// Option customizes a Manager.
type Option func(*Manager)

// WithSourceFactory replaces the default crypto-backed per-agent sources.
func WithSourceFactory(f SourceFactory) Option {
	return func(m *Manager) { m.newSource = f }
}

// WithIDFactory replaces uuid-based agent IDs.
func WithIDFactory(f func() entity.ID) Option {
	return func(m *Manager) { m.newID = f }
}

// Manager owns every live agent: it spawns and despawns them, drains host
// events, and ticks each agent once per simulation tick.
//
// Invariant: a despawned agent is never ticked again and holds no claim.
// Concurrency: Spawn, Despawn, and Tick hold the write lock for their whole
// duration; Status and Statuses take the read lock. Deliver only touches the
// event queue and is safe to call from host callbacks at any time.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	host     world.Host
	arenas   *world.Manager
	profiles map[string]*bot.Profile
	registry *arbitration.Registry
	logger   *zap.Logger

	agents   map[entity.ID]*bot.Agent
	arenaOf  map[entity.ID]string
	events   EventQueue
	respawns *RespawnQueue
	tick     uint64
	serial   atomic.Uint64

	newSource SourceFactory
	newID     func() entity.ID
}

// NewManager creates a Manager and subscribes it to host events.
//
// Precondition: host, arenas, and registry must not be nil.
func NewManager(cfg Config, host world.Host, arenas *world.Manager, profiles map[string]*bot.Profile, registry *arbitration.Registry, logger *zap.Logger, opts ...Option) *Manager {
	if host == nil || arenas == nil || registry == nil {
		panic("gameserver.NewManager: host, arenas and registry must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if profiles == nil {
		profiles = make(map[string]*bot.Profile)
	}
	m := &Manager{
		cfg:       cfg,
		host:      host,
		arenas:    arenas,
		profiles:  profiles,
		registry:  registry,
		logger:    logger,
		agents:    make(map[entity.ID]*bot.Agent),
		arenaOf:   make(map[entity.ID]string),
		respawns:  NewRespawnQueue(),
		newSource: func(entity.ID) chance.Source { return chance.NewCryptoSource() },
		newID:     func() entity.ID { return entity.ID(uuid.NewString()) },
	}
	for _, opt := range opts {
		opt(m)
	}
	host.Subscribe(m.Deliver)
	return m
}

// Deliver queues a host event for the next tick.
func (m *Manager) Deliver(ev world.Event) {
	m.events.Push(ev)
}

// Registry returns the shared arbitration registry.
func (m *Manager) Registry() *arbitration.Registry { return m.registry }

// Spawn creates an agent in the named arena using the arena's profile, or
// the configured default profile when the arena names none.
func (m *Manager) Spawn(arenaID string) (entity.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.spawnInArenaLocked(arenaID)
}

// SpawnAgent creates an agent operating inside zone with the given profile.
// zoneName labels the agent for population accounting and status displays.
//
// Postcondition: on error no body is left in the host.
func (m *Manager) SpawnAgent(zoneName string, zone geom.Bounds, profile bot.Profile) (entity.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.spawnLocked(zoneName, zone, profile)
}

func (m *Manager) spawnInArenaLocked(arenaID string) (entity.ID, error) {
	arena, ok := m.arenas.Arena(arenaID)
	if !ok {
		return "", fmt.Errorf("spawning in %q: %w", arenaID, ErrUnknownArena)
	}
	profile, err := m.profileLocked(arena.Profile)
	if err != nil {
		return "", fmt.Errorf("spawning in %q: %w", arenaID, err)
	}
	return m.spawnLocked(arena.ID, arena.Bounds, profile)
}

func (m *Manager) profileLocked(id string) (bot.Profile, error) {
	if id == "" {
		id = m.cfg.DefaultProfile
	}
	if id == "" {
		return bot.DefaultProfile(), nil
	}
	p, ok := m.profiles[id]
	if !ok {
		return bot.Profile{}, fmt.Errorf("%q: %w", id, ErrUnknownProfile)
	}
	return *p, nil
}

func (m *Manager) spawnLocked(zoneName string, zone geom.Bounds, profile bot.Profile) (entity.ID, error) {
	if m.cfg.MaxAgents > 0 && len(m.agents) >= m.cfg.MaxAgents {
		return "", ErrAgentLimit
	}
	if err := zone.Validate(); err != nil {
		return "", fmt.Errorf("spawning in %q: %w", zoneName, err)
	}
	id := m.newID()
	src := m.newSource(id)
	loc, err := world.SafeLocation(m.host, zone, src)
	if err != nil {
		return "", fmt.Errorf("spawning in %q: %w", zoneName, err)
	}
	name := profile.Name
	if name == "" {
		name = "Bot"
	}
	body, err := m.host.SpawnBody(world.BodySpec{
		ID:        id,
		Name:      fmt.Sprintf("%s-%d", name, m.serial.Add(1)),
		Kit:       profile.Kit,
		Location:  loc,
		MaxHealth: profile.MaxHealth,
	})
	if err != nil {
		return "", fmt.Errorf("spawning in %q: %w", zoneName, err)
	}
	agent, err := bot.NewAgent(bot.Options{
		ID:       id,
		ZoneName: zoneName,
		Zone:     zone,
		Profile:  profile,
		Body:     body,
		Env:      m.host,
		Registry: m.registry,
		Roller:   chance.NewRoller(src, m.logger),
		Policy:   m.cfg.Policy,
		BotVsBot: m.cfg.BotVsBot,
		Logger:   m.logger,
	})
	if err != nil {
		m.host.RemoveBody(id)
		return "", fmt.Errorf("spawning in %q: %w", zoneName, err)
	}
	m.agents[id] = agent
	m.arenaOf[id] = zoneName
	m.logger.Info("agent spawned",
		zap.String("agent", string(id)),
		zap.String("zone", zoneName),
		zap.String("profile", agent.Profile().ID),
		zap.Stringer("location", loc.Pos),
	)
	return id, nil
}

// Despawn removes an agent synchronously: its movement and timing are
// cancelled, every claim by or on it is released, and its body is removed.
//
// Postcondition: returns ErrUnknownAgent if id is not owned.
func (m *Manager) Despawn(id entity.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agents[id]; !ok {
		return fmt.Errorf("despawning %q: %w", id, ErrUnknownAgent)
	}
	m.despawnLocked(id, "requested")
	return nil
}

func (m *Manager) despawnLocked(id entity.ID, reason string) {
	a, ok := m.agents[id]
	if !ok {
		return
	}
	a.Stop()
	m.registry.Forget(id)
	delete(m.agents, id)
	delete(m.arenaOf, id)
	m.host.RemoveBody(id)
	m.logger.Info("agent despawned", zap.String("agent", string(id)), zap.String("reason", reason))
}

// Tick advances the simulation by one tick: queued events are applied,
// due respawns and arena top-ups run, then every live agent ticks once.
//
// Postcondition: returns ctx.Err() without ticking when ctx is already done.
func (m *Manager) Tick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tick++

	for _, ev := range m.events.Drain() {
		m.handleEventLocked(ev)
	}
	m.respawnLocked()
	if m.cfg.PopulationInterval > 0 && (m.tick-1)%uint64(m.cfg.PopulationInterval) == 0 {
		m.populateLocked()
	}

	for _, id := range m.tickAgentsLocked(ctx) {
		r := respawnOf(m.agents[id])
		m.despawnLocked(id, "panic")
		m.respawns.Schedule(r, m.tick, m.respawnDelay())
	}
	return nil
}

// respawnOf captures what a replacement for a needs, plus the placeholder
// status reported while it waits.
func respawnOf(a *bot.Agent) Respawn {
	st := a.Status()
	st.State = bot.Idle
	st.Target = ""
	st.Health = 0
	st.Combo = 0
	st.Lifecycle = bot.Respawning
	return Respawn{
		ZoneName:    a.ZoneName(),
		Zone:        a.Zone(),
		Profile:     a.Profile(),
		Placeholder: st,
	}
}

func (m *Manager) respawnDelay() int {
	if m.cfg.RespawnDelay > 0 {
		return m.cfg.RespawnDelay
	}
	return 1
}

// tickAgentsLocked ticks every agent and returns those whose tick panicked.
func (m *Manager) tickAgentsLocked(ctx context.Context) []entity.ID {
	ids := m.sortedIDsLocked()
	var (
		pmu      sync.Mutex
		panicked []entity.ID
	)
	run := func(a *bot.Agent) {
		if m.tickAgent(a) {
			pmu.Lock()
			panicked = append(panicked, a.ID())
			pmu.Unlock()
		}
	}
	if !m.cfg.ParallelTicks {
		for _, id := range ids {
			run(m.agents[id])
		}
		return panicked
	}
	g, gctx := errgroup.WithContext(ctx)
	if m.cfg.TickWorkers > 0 {
		g.SetLimit(m.cfg.TickWorkers)
	}
	for _, id := range ids {
		a := m.agents[id]
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			run(a)
			return nil
		})
	}
	_ = g.Wait()
	sortIDs(panicked)
	return panicked
}

// tickAgent runs one agent tick, converting a panic into a logged failure.
func (m *Manager) tickAgent(a *bot.Agent) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("agent tick panicked",
				zap.String("agent", string(a.ID())),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			panicked = true
		}
	}()
	a.Tick()
	return false
}

func (m *Manager) handleEventLocked(ev world.Event) {
	switch ev.Kind {
	case world.EventDamage:
		if ev.Cancelled {
			return
		}
		if a, ok := m.agents[ev.Victim.ID]; ok {
			a.OnDamaged(ev.Attacker)
		}
	case world.EventDeath:
		m.registry.ReleaseVictim(ev.Victim.ID)
		a, ok := m.agents[ev.Victim.ID]
		if !ok {
			return
		}
		a.SetLifecycle(bot.Dead)
		r := respawnOf(a)
		m.despawnLocked(ev.Victim.ID, "died")
		m.respawns.Schedule(r, m.tick, m.cfg.RespawnDelay)
	case world.EventLeave:
		m.registry.ReleaseVictim(ev.Victim.ID)
		m.despawnLocked(ev.Victim.ID, "left")
	}
}

func (m *Manager) respawnLocked() {
	for _, r := range m.respawns.Due(m.tick) {
		if _, known := m.arenas.Arena(r.ZoneName); known && !m.arenas.IsEnabled(r.ZoneName) {
			continue
		}
		id, err := m.spawnLocked(r.ZoneName, r.Zone, r.Profile)
		if err != nil {
			m.logger.Warn("respawn failed", zap.String("zone", r.ZoneName), zap.Error(err))
			continue
		}
		m.logger.Info("agent respawned",
			zap.String("agent", string(id)),
			zap.String("replaces", string(r.Placeholder.ID)),
			zap.String("zone", r.ZoneName),
		)
	}
}

// Status returns the status of one agent. An agent removed by death or a
// panicked tick reports Lifecycle Respawning until its replacement spawns.
func (m *Manager) Status(id entity.ID) (bot.Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.agents[id]; ok {
		return a.Status(), true
	}
	for _, r := range m.respawns.Snapshot() {
		if r.Placeholder.ID == id {
			return r.Placeholder, true
		}
	}
	return bot.Status{}, false
}

// Statuses returns every live agent's status followed by the placeholders of
// pending respawns, ordered by ID.
func (m *Manager) Statuses() []bot.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pending := m.respawns.Snapshot()
	out := make([]bot.Status, 0, len(m.agents)+len(pending))
	for _, id := range m.sortedIDsLocked() {
		out = append(out, m.agents[id].Status())
	}
	for _, r := range pending {
		out = append(out, r.Placeholder)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of live agents. Pending respawns are not counted.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.agents)
}

// CurrentTick returns the number of ticks run so far.
func (m *Manager) CurrentTick() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tick
}

// PendingRespawns returns the number of respawns waiting for zoneName.
func (m *Manager) PendingRespawns(zoneName string) int {
	return m.respawns.Pending(zoneName)
}

// Shutdown despawns every agent and drops pending respawns.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.respawns.Clear()
	for _, id := range m.sortedIDsLocked() {
		m.despawnLocked(id, "shutdown")
	}
}

func (m *Manager) sortedIDsLocked() []entity.ID {
	ids := make([]entity.ID, 0, len(m.agents))
	for id := range m.agents {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

func sortIDs(ids []entity.ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
