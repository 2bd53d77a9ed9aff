// Package combat models humanlike melee timing: randomized click cadence,
// miss-clicks, jump criticals, sprint-reset feints, and the cooldowns of
// special abilities. All timing is counted in simulation ticks.
package combat
