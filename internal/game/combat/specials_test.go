package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cory-johannsen/skirmish/internal/game/chance"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

func TestSpecials_RodRangeAndCooldown(t *testing.T) {
	s := combat.NewSpecials(combat.DefaultSpecialsConfig(), chance.NewRoller(chance.NewScripted(), nil))

	assert.False(t, s.TryRod(3))
	assert.False(t, s.TryRod(10))
	assert.True(t, s.TryRod(6))
	assert.False(t, s.TryRod(6), "cooldown running")

	for i := 0; i < 59; i++ {
		s.Tick()
	}
	assert.False(t, s.TryRod(6))
	s.Tick()
	assert.True(t, s.TryRod(6))
}

func TestSpecials_PotionLowHealthAlwaysThrows(t *testing.T) {
	src := chance.NewScripted()
	src.FloatDefault = 0.99
	s := combat.NewSpecials(combat.DefaultSpecialsConfig(), chance.NewRoller(src, nil))

	assert.False(t, s.TryPotion(4, 0.9), "healthy and the roll misses")
	assert.True(t, s.TryPotion(4, 0.3))
	assert.Equal(t, 1, s.Potions())
	_, potionCD := s.Cooldowns()
	assert.Equal(t, 100, potionCD)
}

func TestSpecials_PotionChanceNeedsDistance(t *testing.T) {
	src := chance.NewScripted(0.1, 0.1)
	s := combat.NewSpecials(combat.DefaultSpecialsConfig(), chance.NewRoller(src, nil))

	assert.False(t, s.TryPotion(4, 0.9), "roll hits but target is too close to bother")
	assert.True(t, s.TryPotion(8, 0.9))
}

func TestSpecials_PotionStockRunsOut(t *testing.T) {
	cfg := combat.DefaultSpecialsConfig()
	cfg.Potions = 1
	cfg.PotionCooldown = 1
	s := combat.NewSpecials(cfg, chance.NewRoller(chance.NewScripted(), nil))

	assert.True(t, s.TryPotion(4, 0.1))
	s.Tick()
	assert.False(t, s.TryPotion(4, 0.1))

	s.Restock()
	assert.True(t, s.TryPotion(4, 0.1))
}

func TestSpecials_NoRodConfigured(t *testing.T) {
	cfg := combat.DefaultSpecialsConfig()
	cfg.HasRod = false
	s := combat.NewSpecials(cfg, chance.NewRoller(chance.NewScripted(), nil))
	assert.False(t, s.TryRod(5))
}

func TestDeferred_RunsInOrderAndCancels(t *testing.T) {
	var d combat.Deferred
	var got []int
	d.After(2, func() { got = append(got, 2) })
	d.After(1, func() { got = append(got, 1) })
	d.After(1, func() { got = append(got, 11) })
	assert.Equal(t, 3, d.Pending())

	d.Tick()
	assert.Equal(t, []int{1, 11}, got)
	d.Cancel()
	d.Tick()
	assert.Equal(t, []int{1, 11}, got)
	assert.Zero(t, d.Pending())
}
