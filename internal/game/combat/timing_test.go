package combat_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/chance"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/entity"
	"github.com/cory-johannsen/skirmish/internal/game/geom"
)

type fighter struct {
	grounded  bool
	sprinting bool
	vel       geom.Vec3
}

func (f *fighter) Grounded() bool          { return f.grounded }
func (f *fighter) Velocity() geom.Vec3     { return f.vel }
func (f *fighter) SetVelocity(v geom.Vec3) { f.vel = v }
func (f *fighter) Sprinting() bool         { return f.sprinting }
func (f *fighter) SetSprinting(on bool)    { f.sprinting = on }

type strikes struct {
	victims []entity.ID
	crits   []bool
}

func (s *strikes) Strike(victim entity.ID, critical bool) {
	s.victims = append(s.victims, victim)
	s.crits = append(s.crits, critical)
}

// newModel builds a model with cadence 10 (interval 100ms, two ticks) whose
// float draws come from floats and then default to 0.99.
func newModel(t *testing.T, body *fighter, floats ...float64) *combat.TimingModel {
	t.Helper()
	src := chance.NewScripted(floats...).WithInts(0)
	src.FloatDefault = 0.99
	roller := chance.NewRoller(src, zaptest.NewLogger(t))
	m := combat.NewTimingModel(combat.DefaultTimingConfig(), roller, body, zaptest.NewLogger(t))
	require.Equal(t, 10, m.Cadence())
	return m
}

func TestTimingModel_EnforcesCadence(t *testing.T) {
	body := &fighter{grounded: true}
	m := newModel(t, body)
	s := &strikes{}

	assert.Equal(t, 100*time.Millisecond, m.Interval())
	assert.True(t, m.CanAttack())
	require.True(t, m.TryAttack("victim", s))
	assert.False(t, m.CanAttack())
	assert.False(t, m.TryAttack("victim", s))

	m.Advance()
	assert.False(t, m.CanAttack())
	m.Advance()
	assert.True(t, m.CanAttack())
	require.True(t, m.TryAttack("victim", s))
	assert.Equal(t, []entity.ID{"victim", "victim"}, s.victims)
	assert.Equal(t, 2, m.Combo())
}

func TestTimingModel_MissClickLeavesClockUntouched(t *testing.T) {
	body := &fighter{grounded: true}
	m := newModel(t, body, 0.05)
	s := &strikes{}

	assert.False(t, m.TryAttack("victim", s))
	assert.Empty(t, s.victims)
	assert.True(t, m.CanAttack())
	assert.Equal(t, 0, m.Combo())

	assert.True(t, m.TryAttack("victim", s))
	assert.Len(t, s.victims, 1)
}

func TestTimingModel_CriticalJumpsBeforeStrike(t *testing.T) {
	body := &fighter{grounded: true}
	// miss roll, critical roll
	m := newModel(t, body, 0.5, 0.1)
	s := &strikes{}

	require.True(t, m.TryAttack("victim", s))
	assert.Equal(t, []bool{true}, s.crits)
	assert.InDelta(t, 0.42, body.vel.Y, 1e-9)
	hit, ok := m.LastHit()
	require.True(t, ok)
	assert.True(t, hit.Critical)
}

func TestTimingModel_CriticalRespectsCooldown(t *testing.T) {
	body := &fighter{grounded: true}
	m := newModel(t, body, 0.5, 0.1, 0.5, 0.1)
	s := &strikes{}

	require.True(t, m.TryAttack("victim", s))
	m.Advance()
	m.Advance()
	require.True(t, m.TryAttack("victim", s))
	assert.Equal(t, []bool{true, false}, s.crits, "second attack lands 100ms after a critical")

	for i := 0; i < 10; i++ {
		m.Advance()
	}
	assert.True(t, m.ShouldCritical(), "cooldown elapsed; scripted 0.1 is under 0.3")
}

func TestTimingModel_NoCriticalWhileAirborne(t *testing.T) {
	body := &fighter{grounded: false}
	m := newModel(t, body, 0.5, 0.0)
	assert.False(t, m.ShouldCritical())
	s := &strikes{}
	require.True(t, m.TryAttack("victim", s))
	assert.Equal(t, []bool{false}, s.crits)
	assert.Zero(t, body.vel.Y)
}

func TestTimingModel_FeintRestoresSprintNextTick(t *testing.T) {
	body := &fighter{grounded: true, sprinting: true}
	m := newModel(t, body)
	s := &strikes{}

	require.True(t, m.TryAttack("victim", s))
	hit, _ := m.LastHit()
	assert.True(t, hit.Feint)
	assert.False(t, body.sprinting)
	assert.True(t, m.Feinting())

	m.Advance()
	assert.True(t, body.sprinting)
	assert.False(t, m.Feinting())
}

func TestTimingModel_FeintNeedsSprint(t *testing.T) {
	body := &fighter{grounded: true}
	m := newModel(t, body)
	require.True(t, m.TryAttack("victim", &strikes{}))
	hit, _ := m.LastHit()
	assert.False(t, hit.Feint)
	assert.False(t, m.Feinting())
}

func TestTimingModel_ResetCancelsPendingRestore(t *testing.T) {
	body := &fighter{grounded: true, sprinting: true}
	m := newModel(t, body)
	require.True(t, m.TryAttack("victim", &strikes{}))
	require.True(t, m.Feinting())

	m.Reset()
	m.Advance()
	assert.False(t, body.sprinting)
	assert.Equal(t, 0, m.Combo())
}

func TestTimingModel_CadenceWithinBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Uint64().Draw(rt, "seed")
		roller := chance.NewRoller(chance.NewSeededSource(seed), nil)
		m := combat.NewTimingModel(combat.DefaultTimingConfig(), roller, &fighter{}, nil)
		assert.GreaterOrEqual(rt, m.Cadence(), 10)
		assert.LessOrEqual(rt, m.Cadence(), 14)

		d := m.OptimalDistance()
		assert.True(rt, d >= 2.8 && d < 3.5, "optimal distance %f", d)
		j := m.AimJitter()
		for _, c := range []float64{j.X, j.Y, j.Z} {
			assert.True(rt, c >= -0.0125 && c < 0.0125, "jitter %f", c)
		}
	})
}

func TestTimingModel_AttacksNeverCloserThanInterval(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Uint64().Draw(rt, "seed")
		roller := chance.NewRoller(chance.NewSeededSource(seed), nil)
		body := &fighter{grounded: true, sprinting: true}
		m := combat.NewTimingModel(combat.DefaultTimingConfig(), roller, body, nil)
		ticks := rapid.IntRange(1, 200).Draw(rt, "ticks")

		last := -1
		for i := 0; i < ticks; i++ {
			if m.TryAttack("victim", &strikes{}) {
				if last >= 0 {
					gap := time.Duration(i-last) * 50 * time.Millisecond
					assert.GreaterOrEqual(rt, gap, m.Interval())
				}
				last = i
			}
			m.Advance()
		}
	})
}
