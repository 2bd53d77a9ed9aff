package arbitration_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/arbitration"
	"github.com/cory-johannsen/skirmish/internal/game/entity"
)

func player(id string) entity.Ref { return entity.Ref{ID: entity.ID(id), Class: entity.ClassPlayer} }
func agent(id string) entity.Ref  { return entity.Ref{ID: entity.ID(id), Class: entity.ClassAgent} }

func TestRegistry_ClaimUpToCeiling(t *testing.T) {
	r := arbitration.NewRegistry(arbitration.Ceilings{Player: 2, Agent: 1})

	assert.True(t, r.IsSlotAvailable(player("p")))
	assert.True(t, r.Claim("a1", player("p")))
	assert.True(t, r.Claim("a2", player("p")))
	assert.False(t, r.IsSlotAvailable(player("p")))
	assert.False(t, r.Claim("a3", player("p")))
	assert.Equal(t, []entity.ID{"a1", "a2"}, r.AttackersOf("p"))
	require.NoError(t, r.Verify())
}

func TestRegistry_AgentVictimsUseLowerCeiling(t *testing.T) {
	r := arbitration.NewRegistry(arbitration.Ceilings{Player: 3, Agent: 1})
	assert.True(t, r.Claim("a1", agent("b")))
	assert.False(t, r.Claim("a2", agent("b")))
	assert.Equal(t, 1, r.Count("b"))
}

func TestRegistry_IneligibleNeverClaimable(t *testing.T) {
	r := arbitration.NewRegistry(arbitration.DefaultCeilings())
	v := entity.Ref{ID: "spectator", Class: entity.ClassIneligible}
	assert.False(t, r.IsSlotAvailable(v))
	assert.False(t, r.Claim("a1", v))
}

func TestRegistry_SelfClaimRejected(t *testing.T) {
	r := arbitration.NewRegistry(arbitration.DefaultCeilings())
	assert.False(t, r.Claim("a1", agent("a1")))
}

func TestRegistry_ClaimingNewVictimReleasesPrevious(t *testing.T) {
	r := arbitration.NewRegistry(arbitration.Ceilings{Player: 1, Agent: 1})
	require.True(t, r.Claim("a1", player("p1")))
	require.True(t, r.Claim("a1", player("p2")))

	assert.Zero(t, r.Count("p1"))
	assert.True(t, r.IsSlotAvailable(player("p1")))
	held, ok := r.ClaimOf("a1")
	require.True(t, ok)
	assert.Equal(t, entity.ID("p2"), held.ID)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_FailedClaimKeepsExisting(t *testing.T) {
	r := arbitration.NewRegistry(arbitration.Ceilings{Player: 1, Agent: 1})
	require.True(t, r.Claim("a1", player("p1")))
	require.True(t, r.Claim("a2", player("p2")))

	assert.False(t, r.Claim("a1", player("p2")))
	held, ok := r.ClaimOf("a1")
	require.True(t, ok)
	assert.Equal(t, entity.ID("p1"), held.ID)
}

func TestRegistry_ReclaimSameVictimIsNoop(t *testing.T) {
	r := arbitration.NewRegistry(arbitration.Ceilings{Player: 1, Agent: 1})
	require.True(t, r.Claim("a1", player("p")))
	assert.True(t, r.Claim("a1", player("p")))
	assert.Equal(t, 1, r.Count("p"))
}

func TestRegistry_ReleaseIdempotent(t *testing.T) {
	r := arbitration.NewRegistry(arbitration.DefaultCeilings())
	_, ok := r.Release("nobody")
	assert.False(t, ok)

	require.True(t, r.Claim("a1", player("p")))
	v, ok := r.Release("a1")
	assert.True(t, ok)
	assert.Equal(t, entity.ID("p"), v.ID)
	_, ok = r.Release("a1")
	assert.False(t, ok)
	assert.Zero(t, r.Len())
}

func TestRegistry_ReleaseVictimFreesAllSlots(t *testing.T) {
	r := arbitration.NewRegistry(arbitration.Ceilings{Player: 3, Agent: 1})
	for _, a := range []entity.ID{"a3", "a1", "a2"} {
		require.True(t, r.Claim(a, player("p")))
	}
	assert.Equal(t, []entity.ID{"a1", "a2", "a3"}, r.ReleaseVictim("p"))
	assert.Zero(t, r.Len())
	_, ok := r.ClaimOf("a1")
	assert.False(t, ok)
	assert.Nil(t, r.ReleaseVictim("p"))
}

func TestRegistry_ForgetDropsBothDirections(t *testing.T) {
	r := arbitration.NewRegistry(arbitration.Ceilings{Player: 3, Agent: 2})
	require.True(t, r.Claim("bot", player("p")))
	require.True(t, r.Claim("other", agent("bot")))

	assert.Equal(t, []entity.ID{"other"}, r.Forget("bot"))
	assert.Zero(t, r.Len())
	require.NoError(t, r.Verify())
}

// Two agents race for a victim whose ceiling is one: exactly one wins.
func TestRegistry_ConcurrentClaimSingleWinner(t *testing.T) {
	for round := 0; round < 200; round++ {
		r := arbitration.NewRegistry(arbitration.Ceilings{Player: 1, Agent: 1})
		var wins atomic.Int32
		var wg sync.WaitGroup
		start := make(chan struct{})
		for _, a := range []entity.ID{"a1", "a2"} {
			wg.Add(1)
			go func(a entity.ID) {
				defer wg.Done()
				<-start
				if r.IsSlotAvailable(player("p")) && r.Claim(a, player("p")) {
					wins.Add(1)
				}
			}(a)
		}
		close(start)
		wg.Wait()
		require.Equal(t, int32(1), wins.Load(), "round %d", round)
		require.NoError(t, r.Verify())
	}
}

func TestRegistry_ConcurrentChurnKeepsInvariants(t *testing.T) {
	r := arbitration.NewRegistry(arbitration.Ceilings{Player: 2, Agent: 1})
	victims := []entity.Ref{player("p1"), player("p2"), agent("b1"), agent("b2")}
	var wg sync.WaitGroup
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			attacker := entity.ID(fmt.Sprintf("a%d", w))
			for i := 0; i < 500; i++ {
				switch (w + i) % 5 {
				case 0, 1, 2:
					r.Claim(attacker, victims[(w*7+i)%len(victims)])
				case 3:
					r.Release(attacker)
				default:
					r.ReleaseVictim(victims[i%len(victims)].ID)
				}
				for _, v := range victims {
					assert.LessOrEqual(t, r.Count(v.ID), r.Ceilings().For(v.Class))
				}
			}
		}(w)
	}
	wg.Wait()
	require.NoError(t, r.Verify())
}

func TestRegistry_InvariantsUnderRandomOperations(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ceilings := arbitration.Ceilings{
			Player: rapid.IntRange(0, 4).Draw(rt, "player ceiling"),
			Agent:  rapid.IntRange(0, 2).Draw(rt, "agent ceiling"),
		}
		r := arbitration.NewRegistry(ceilings)
		attackers := []entity.ID{"a1", "a2", "a3", "a4", "a5", "a6"}
		victims := []entity.Ref{player("p1"), player("p2"), agent("a1"), agent("a2")}
		held := make(map[entity.ID]entity.ID)

		steps := rapid.IntRange(1, 100).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			a := rapid.SampledFrom(attackers).Draw(rt, "attacker")
			switch rapid.IntRange(0, 3).Draw(rt, "op") {
			case 0, 1:
				v := rapid.SampledFrom(victims).Draw(rt, "victim")
				before := r.Count(v.ID)
				ok := r.Claim(a, v)
				if ok {
					held[a] = v.ID
				} else if prev, had := held[a]; had {
					cur, still := r.ClaimOf(a)
					assert.True(rt, still)
					assert.Equal(rt, prev, cur.ID, "failed claim must keep the prior claim")
					assert.Equal(rt, before, r.Count(v.ID))
				}
			case 2:
				r.Release(a)
				delete(held, a)
			default:
				v := rapid.SampledFrom(victims).Draw(rt, "victim")
				for _, lost := range r.ReleaseVictim(v.ID) {
					delete(held, lost)
				}
			}
			if err := r.Verify(); err != nil {
				rt.Fatalf("step %d: %v", i, err)
			}
			assert.Equal(rt, len(held), r.Len())
		}
	})
}
