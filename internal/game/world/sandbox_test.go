package world

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/chance"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/entity"
	"github.com/cory-johannsen/skirmish/internal/game/geom"
	"github.com/cory-johannsen/skirmish/internal/game/nav"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) sink(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

func newFloorSandbox(t *testing.T, cfg SandboxConfig) (*Sandbox, *recorder) {
	t.Helper()
	s := NewSandbox(cfg, zaptest.NewLogger(t))
	floor := 0
	s.Build(&Arena{ID: "pit", Name: "Pit", Bounds: geom.NewBounds("arena", geom.V(-10, 0, -10), geom.V(10, 6, 10)), Floor: &floor})
	rec := &recorder{}
	s.Subscribe(rec.sink)
	return s, rec
}

func at(x, y, z float64) geom.Location { return geom.At("arena", geom.V(x, y, z)) }

func TestSandbox_BodyStandsOnFloor(t *testing.T) {
	s, _ := newFloorSandbox(t, DefaultSandboxConfig())
	b, err := s.SpawnBody(BodySpec{ID: "bot", Location: at(0.5, 1, 0.5), MaxHealth: 20})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		s.Step()
	}
	assert.InDelta(t, 1.0, b.Location().Pos.Y, 1e-9)
	assert.True(t, b.Grounded())
}

func TestSandbox_JumpRisesAndLands(t *testing.T) {
	s, _ := newFloorSandbox(t, DefaultSandboxConfig())
	b, err := s.SpawnBody(BodySpec{ID: "bot", Location: at(0.5, 1, 0.5)})
	require.NoError(t, err)
	b.SetVelocity(geom.V(0, 0.42, 0))

	s.Step()
	assert.Greater(t, b.Location().Pos.Y, 1.0)
	assert.False(t, b.Grounded())
	for i := 0; i < 40; i++ {
		s.Step()
	}
	assert.InDelta(t, 1.0, b.Location().Pos.Y, 1e-9)
	assert.True(t, b.Grounded())
}

func TestSandbox_WallBlocksHorizontalMotion(t *testing.T) {
	s, _ := newFloorSandbox(t, DefaultSandboxConfig())
	s.SetSolid("arena", geom.C(1, 1, 0), true)
	b, err := s.SpawnBody(BodySpec{ID: "bot", Location: at(0.9, 1, 0.5)})
	require.NoError(t, err)
	b.SetVelocity(geom.V(0.2, 0, 0))

	s.Step()
	assert.InDelta(t, 0.9, b.Location().Pos.X, 1e-9)
}

func TestSandbox_FallIntoVoidKills(t *testing.T) {
	s, rec := newFloorSandbox(t, DefaultSandboxConfig())
	_, err := s.SpawnBody(BodySpec{ID: "bot", Location: at(50, 1, 50)})
	require.NoError(t, err)
	for i := 0; i < 200; i++ {
		s.Step()
	}
	o, ok := s.Observe("bot")
	require.True(t, ok)
	assert.False(t, o.Alive)
	assert.Equal(t, []EventKind{EventDeath}, rec.kinds())
}

func TestSandbox_AttackAppliesMultiplierAndCritical(t *testing.T) {
	s, rec := newFloorSandbox(t, DefaultSandboxConfig())
	require.NoError(t, s.AddPlayer("alice", at(2, 1, 0), entity.ModeSurvival, 20))
	_, err := s.SpawnBody(BodySpec{ID: "bot", Location: at(0, 1, 0)})
	require.NoError(t, err)

	s.Attack("bot", "alice", false, 1.5)
	o, _ := s.Observe("alice")
	assert.InDelta(t, 17, o.Health, 1e-9)

	s.Attack("bot", "alice", true, 1)
	o, _ = s.Observe("alice")
	assert.InDelta(t, 14, o.Health, 1e-9)

	require.Len(t, rec.events, 2)
	ev := rec.events[0]
	assert.Equal(t, EventDamage, ev.Kind)
	assert.Equal(t, entity.Ref{ID: "alice", Class: entity.ClassPlayer}, ev.Victim)
	assert.Equal(t, entity.Ref{ID: "bot", Class: entity.ClassAgent}, ev.Attacker)
	assert.False(t, ev.Cancelled)
}

func TestSandbox_AttackOutOfReachIgnored(t *testing.T) {
	s, rec := newFloorSandbox(t, DefaultSandboxConfig())
	require.NoError(t, s.AddPlayer("alice", at(9, 1, 0), entity.ModeSurvival, 20))
	_, err := s.SpawnBody(BodySpec{ID: "bot", Location: at(0, 1, 0)})
	require.NoError(t, err)
	s.Attack("bot", "alice", false, 1)
	assert.Empty(t, rec.kinds())
}

func TestSandbox_BotVsBotCancelledByPolicy(t *testing.T) {
	s, rec := newFloorSandbox(t, DefaultSandboxConfig())
	_, err := s.SpawnBody(BodySpec{ID: "a", Location: at(0, 1, 0)})
	require.NoError(t, err)
	_, err = s.SpawnBody(BodySpec{ID: "b", Location: at(1, 1, 0)})
	require.NoError(t, err)

	s.Attack("a", "b", false, 1)
	o, _ := s.Observe("b")
	assert.Equal(t, 20.0, o.Health)
	require.Len(t, rec.events, 1)
	assert.True(t, rec.events[0].Cancelled)

	cfg := DefaultSandboxConfig()
	cfg.BotVsBot = true
	s2, _ := newFloorSandbox(t, cfg)
	_, _ = s2.SpawnBody(BodySpec{ID: "a", Location: at(0, 1, 0)})
	_, _ = s2.SpawnBody(BodySpec{ID: "b", Location: at(1, 1, 0)})
	s2.Attack("a", "b", false, 1)
	o, _ = s2.Observe("b")
	assert.Equal(t, 18.0, o.Health)
}

func TestSandbox_LethalDamageEmitsDeath(t *testing.T) {
	s, rec := newFloorSandbox(t, DefaultSandboxConfig())
	require.NoError(t, s.AddPlayer("alice", at(1, 1, 0), entity.ModeSurvival, 3))
	_, err := s.SpawnBody(BodySpec{ID: "bot", Location: at(0, 1, 0)})
	require.NoError(t, err)

	s.Attack("bot", "alice", false, 2)
	assert.Equal(t, []EventKind{EventDamage, EventDeath}, rec.kinds())
	near := s.Nearby(at(0, 1, 0), 10)
	require.Len(t, near, 1, "dead entities are not nearby")
	assert.Equal(t, entity.ID("bot"), near[0].ID)
}

func TestSandbox_LaunchPotionAndRod(t *testing.T) {
	s, rec := newFloorSandbox(t, DefaultSandboxConfig())
	require.NoError(t, s.AddPlayer("alice", at(6, 1, 0), entity.ModeSurvival, 20))
	_, err := s.SpawnBody(BodySpec{ID: "bot", Location: at(0, 1, 0)})
	require.NoError(t, err)

	s.Launch("bot", combat.ProjectilePotion, geom.V(6, 1, 0))
	o, _ := s.Observe("alice")
	assert.Equal(t, 17.0, o.Health)

	s.Launch("bot", combat.ProjectileRod, geom.V(6, 1+geom.EyeHeight, 0))
	o, _ = s.Observe("alice")
	assert.Equal(t, 17.0, o.Health, "rod hits do not damage")
	assert.Len(t, rec.events, 2)
}

func TestSandbox_ClassifiesEntities(t *testing.T) {
	s, _ := newFloorSandbox(t, DefaultSandboxConfig())
	require.NoError(t, s.AddPlayer("ghost", at(1, 1, 1), entity.ModeSpectator, 20))
	require.NoError(t, s.AddPlayer("alice", at(2, 1, 1), entity.ModeAdventure, 20))
	_, err := s.SpawnBody(BodySpec{ID: "bot", Location: at(0, 1, 0)})
	require.NoError(t, err)

	got := map[entity.ID]entity.Class{}
	for _, o := range s.Nearby(at(0, 1, 0), 10) {
		got[o.ID] = o.Class
	}
	assert.Equal(t, map[entity.ID]entity.Class{
		"ghost": entity.ClassIneligible,
		"alice": entity.ClassPlayer,
		"bot":   entity.ClassAgent,
	}, got)

	s.SetMode("ghost", entity.ModeSurvival)
	o, _ := s.Observe("ghost")
	assert.Equal(t, entity.ClassPlayer, o.Class)
}

func TestSandbox_LeaveEmitsAndRemoves(t *testing.T) {
	s, rec := newFloorSandbox(t, DefaultSandboxConfig())
	require.NoError(t, s.AddPlayer("alice", at(2, 1, 0), entity.ModeSurvival, 20))
	s.Leave("alice")
	_, ok := s.Observe("alice")
	assert.False(t, ok)
	assert.Equal(t, []EventKind{EventLeave}, rec.kinds())

	s.Leave("alice")
	assert.Len(t, rec.kinds(), 1)
}

func TestSandbox_SpawnBodyRejectsDuplicates(t *testing.T) {
	s, _ := newFloorSandbox(t, DefaultSandboxConfig())
	_, err := s.SpawnBody(BodySpec{ID: "bot", Location: at(0, 1, 0)})
	require.NoError(t, err)
	_, err = s.SpawnBody(BodySpec{ID: "bot", Location: at(0, 1, 0)})
	assert.Error(t, err)
	_, err = s.SpawnBody(BodySpec{})
	assert.Error(t, err)

	s.RemoveBody("bot")
	s.RemoveBody("bot")
	assert.Zero(t, s.Len())
}

func TestSafeLocation_FindsStandableCellInBounds(t *testing.T) {
	s, _ := newFloorSandbox(t, DefaultSandboxConfig())
	s.Fill("arena", Box{Min: geom.C(-2, 1, -2), Max: geom.C(2, 3, 2)})
	b := geom.NewBounds("arena", geom.V(-10, 0, -10), geom.V(10, 6, 10))

	rapid.Check(t, func(rt *rapid.T) {
		src := chance.NewSeededSource(rapid.Uint64().Draw(rt, "seed"))
		loc, err := SafeLocation(s, b, src)
		require.NoError(rt, err)
		assert.True(rt, b.Contains(loc))
		assert.True(rt, nav.Standable(s, "arena", geom.CellOf(loc.Pos)))
	})
}

func TestSafeLocation_NoFloor(t *testing.T) {
	s := NewSandbox(DefaultSandboxConfig(), nil)
	b := geom.NewBounds("void", geom.V(0, 0, 0), geom.V(4, 4, 4))
	_, err := SafeLocation(s, b, chance.NewSeededSource(1))
	assert.True(t, errors.Is(err, ErrNoSafeLocation))
}
