package gameserver

import (
	"errors"

	"go.uber.org/zap"
)

// populateLocked tops every enabled arena up to its bot count and removes
// agents from arenas that have been disabled.
//
// Precondition: m.mu is held for writing.
// Postcondition: live plus pending agents per enabled arena do not exceed BotCount
// unless agents were spawned into the arena explicitly.
func (m *Manager) populateLocked() {
	live := make(map[string]int)
	for _, arena := range m.arenaOf {
		live[arena]++
	}
	for _, arena := range m.arenas.All() {
		if m.arenas.IsEnabled(arena.ID) {
			continue
		}
		if n := m.respawns.Cancel(arena.ID); n > 0 {
			m.logger.Debug("cancelled respawns for disabled arena", zap.String("arena", arena.ID), zap.Int("count", n))
		}
		if live[arena.ID] == 0 {
			continue
		}
		for _, id := range m.sortedIDsLocked() {
			if m.arenaOf[id] == arena.ID {
				m.despawnLocked(id, "arena disabled")
			}
		}
	}
	for _, arena := range m.arenas.Enabled() {
		need := arena.BotCount - live[arena.ID] - m.respawns.Pending(arena.ID)
		for i := 0; i < need; i++ {
			if _, err := m.spawnInArenaLocked(arena.ID); err != nil {
				if errors.Is(err, ErrAgentLimit) {
					m.logger.Debug("population capped", zap.String("arena", arena.ID), zap.Int("max_agents", m.cfg.MaxAgents))
					return
				}
				m.logger.Warn("population spawn failed", zap.String("arena", arena.ID), zap.Error(err))
				break
			}
		}
	}
}
