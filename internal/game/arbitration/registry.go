// Package arbitration limits how many attackers may lock onto one victim.
//
// The Registry is the only mutable state shared between agents. Every
// operation runs in one critical section, so an availability check and the
// claim that depends on it can never interleave with another agent's claim.
package arbitration

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cory-johannsen/skirmish/internal/game/entity"
)

// Ceilings caps concurrent attackers per victim class.
type Ceilings struct {
	// Player applies to primary victims.
	Player int
	// Agent applies to other bots.
	Agent int
}

// DefaultCeilings allows three bots on one player and one bot on another bot.
func DefaultCeilings() Ceilings {
	return Ceilings{Player: 3, Agent: 1}
}

// For returns the ceiling for class c. Ineligible victims have ceiling 0.
func (c Ceilings) For(class entity.Class) int {
	switch class {
	case entity.ClassPlayer:
		return c.Player
	case entity.ClassAgent:
		return c.Agent
	default:
		return 0
	}
}

type victimSet struct {
	class     entity.Class
	attackers map[entity.ID]struct{}
}

// Registry maps victims to the attackers currently claiming them.
//
// Invariant: len(attackers of v) <= Ceilings.For(class of v) for every victim v.
// Invariant: each attacker appears in at most one victim set.
// All methods are safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	ceilings Ceilings
	claims   map[entity.ID]entity.Ref // attacker → victim
	victims  map[entity.ID]*victimSet // victim → attackers
}

// NewRegistry creates an empty Registry.
//
// Precondition: ceilings must be non-negative.
func NewRegistry(ceilings Ceilings) *Registry {
	if ceilings.Player < 0 {
		ceilings.Player = 0
	}
	if ceilings.Agent < 0 {
		ceilings.Agent = 0
	}
	return &Registry{
		ceilings: ceilings,
		claims:   make(map[entity.ID]entity.Ref),
		victims:  make(map[entity.ID]*victimSet),
	}
}

// Ceilings returns the configured limits.
func (r *Registry) Ceilings() Ceilings { return r.ceilings }

// IsSlotAvailable reports whether one more attacker could claim victim right now.
// The answer is advisory; only Claim reserves a slot.
func (r *Registry) IsSlotAvailable(victim entity.Ref) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.countLocked(victim.ID) < r.ceilingLocked(victim)
}

// ceilingLocked prefers the class recorded with the victim's first claim.
func (r *Registry) ceilingLocked(victim entity.Ref) int {
	if vs, ok := r.victims[victim.ID]; ok {
		return r.ceilings.For(vs.class)
	}
	return r.ceilings.For(victim.Class)
}

// Claim locks attacker onto victim if a slot is free.
//
// Postcondition: on true, attacker's only claim is victim and any previous
// claim was released. On false, the registry is unchanged and attacker keeps
// whatever claim it held. Re-claiming the currently held victim returns true.
func (r *Registry) Claim(attacker entity.ID, victim entity.Ref) bool {
	if attacker == "" || victim.ID == "" || attacker == victim.ID {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if held, ok := r.claims[attacker]; ok && held.ID == victim.ID {
		return true
	}
	if r.countLocked(victim.ID) >= r.ceilingLocked(victim) {
		return false
	}
	r.releaseLocked(attacker)

	vs := r.victims[victim.ID]
	if vs == nil {
		vs = &victimSet{class: victim.Class, attackers: make(map[entity.ID]struct{})}
		r.victims[victim.ID] = vs
	}
	vs.attackers[attacker] = struct{}{}
	r.claims[attacker] = victim
	return true
}

// Release drops attacker's claim. Idempotent.
//
// Postcondition: returns the released victim and true, or false if none was held.
func (r *Registry) Release(attacker entity.ID) (entity.Ref, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.releaseLocked(attacker)
}

func (r *Registry) releaseLocked(attacker entity.ID) (entity.Ref, bool) {
	victim, ok := r.claims[attacker]
	if !ok {
		return entity.Ref{}, false
	}
	delete(r.claims, attacker)
	if vs, ok := r.victims[victim.ID]; ok {
		delete(vs.attackers, attacker)
		if len(vs.attackers) == 0 {
			delete(r.victims, victim.ID)
		}
	}
	return victim, true
}

// ReleaseVictim drops every claim on victim, as when the victim dies or leaves.
//
// Postcondition: returns the attackers that lost their claim, sorted.
func (r *Registry) ReleaseVictim(victim entity.ID) []entity.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	vs, ok := r.victims[victim]
	if !ok {
		return nil
	}
	out := make([]entity.ID, 0, len(vs.attackers))
	for a := range vs.attackers {
		delete(r.claims, a)
		out = append(out, a)
	}
	delete(r.victims, victim)
	sortIDs(out)
	return out
}

// Forget removes id both as an attacker and as a victim. Used when an agent
// despawns: it stops attacking and nobody may keep a claim on it.
func (r *Registry) Forget(id entity.ID) []entity.ID {
	r.mu.Lock()
	r.releaseLocked(id)
	r.mu.Unlock()
	return r.ReleaseVictim(id)
}

// ClaimOf returns the victim attacker currently claims.
func (r *Registry) ClaimOf(attacker entity.ID) (entity.Ref, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.claims[attacker]
	return v, ok
}

// AttackersOf returns the attackers claiming victim, sorted.
func (r *Registry) AttackersOf(victim entity.ID) []entity.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	vs, ok := r.victims[victim]
	if !ok {
		return nil
	}
	out := make([]entity.ID, 0, len(vs.attackers))
	for a := range vs.attackers {
		out = append(out, a)
	}
	sortIDs(out)
	return out
}

// Count returns the number of attackers claiming victim.
func (r *Registry) Count(victim entity.ID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.countLocked(victim)
}

func (r *Registry) countLocked(victim entity.ID) int {
	if vs, ok := r.victims[victim]; ok {
		return len(vs.attackers)
	}
	return 0
}

// Len returns the total number of active claims.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.claims)
}

// Verify checks both registry invariants and the consistency of the two
// indexes. A non-nil result is a critical defect, never a runtime condition.
func (r *Registry) Verify() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []string
	seen := make(map[entity.ID]entity.ID)
	for vid, vs := range r.victims {
		if ceiling := r.ceilings.For(vs.class); len(vs.attackers) > ceiling {
			errs = append(errs, fmt.Sprintf("victim %s (%s) has %d attackers, ceiling %d", vid, vs.class, len(vs.attackers), ceiling))
		}
		for a := range vs.attackers {
			if prev, dup := seen[a]; dup {
				errs = append(errs, fmt.Sprintf("attacker %s claims both %s and %s", a, prev, vid))
			}
			seen[a] = vid
			if c, ok := r.claims[a]; !ok || c.ID != vid {
				errs = append(errs, fmt.Sprintf("attacker %s in set of %s but index says %v", a, vid, c.ID))
			}
		}
	}
	if len(seen) != len(r.claims) {
		errs = append(errs, fmt.Sprintf("claim index has %d entries, victim sets have %d", len(r.claims), len(seen)))
	}
	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("arbitration invariant violated: %s", strings.Join(errs, "; "))
	}
	return nil
}

func sortIDs(ids []entity.ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
