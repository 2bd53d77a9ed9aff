package chance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/chance"
)

func TestCryptoSource_Ranges(t *testing.T) {
	src := chance.NewCryptoSource()
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 1000).Draw(rt, "n")
		v := src.Intn(n)
		assert.True(rt, v >= 0 && v < n)
		f := src.Float64()
		assert.True(rt, f >= 0 && f < 1)
	})
}

func TestCryptoSource_PanicsOnNonPositive(t *testing.T) {
	assert.PanicsWithValue(t, "chance: Intn called with n <= 0", func() {
		chance.NewCryptoSource().Intn(0)
	})
}

func TestSeededSource_Reproducible(t *testing.T) {
	a := chance.NewSeededSource(42)
	b := chance.NewSeededSource(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
		assert.Equal(t, a.Intn(17), b.Intn(17))
	}
}

func TestScripted_ReplaysThenDefaults(t *testing.T) {
	s := chance.NewScripted(0.1, 0.9).WithInts(5, -1)
	s.FloatDefault = 0.5
	assert.Equal(t, 0.1, s.Float64())
	assert.Equal(t, 0.9, s.Float64())
	assert.Equal(t, 0.5, s.Float64())
	assert.Equal(t, 2, s.Intn(3))
	assert.Equal(t, 2, s.Intn(3))
	assert.Equal(t, 0, s.Intn(3))
}

func TestRoller_Chance(t *testing.T) {
	r := chance.NewRoller(chance.NewScripted(0.3, 0.3, 0.0, 0.999), zaptest.NewLogger(t))
	assert.True(t, r.Chance("hit", 0.5))
	assert.False(t, r.Chance("miss", 0.2))
	assert.False(t, r.Chance("never", 0))
	assert.True(t, r.Chance("always", 1))
}

func TestRoller_IntBetweenInclusive(t *testing.T) {
	r := chance.NewRoller(chance.NewSeededSource(7), nil)
	seen := map[int]bool{}
	for i := 0; i < 500; i++ {
		v := r.IntBetween("cps", 10, 14)
		assert.GreaterOrEqual(t, v, 10)
		assert.LessOrEqual(t, v, 14)
		seen[v] = true
	}
	assert.Len(t, seen, 5)
}

func TestRoller_Between(t *testing.T) {
	r := chance.NewRoller(chance.NewScripted(0, 0.5), nil)
	assert.Equal(t, 2.8, r.Between("optimal", 2.8, 3.5))
	assert.InDelta(t, 3.15, r.Between("optimal", 2.8, 3.5), 1e-9)
}
