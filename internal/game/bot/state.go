package bot

// State is the combat state of one agent.
type State int

const (
	// Idle holds no target and wanders the zone.
	Idle State = iota
	// Chasing closes distance to a target beyond attack range.
	Chasing
	// Engaging fights the target head on.
	Engaging
	// Strafing circles the target while fighting.
	Strafing
	// Retreating runs from the target while health is low.
	Retreating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Chasing:
		return "chasing"
	case Engaging:
		return "engaging"
	case Strafing:
		return "strafing"
	case Retreating:
		return "retreating"
	default:
		return "unknown"
	}
}

// InCombat reports whether s holds a target.
func (s State) InCombat() bool { return s != Idle }

// Lifecycle tracks whether an agent's body exists in the world.
type Lifecycle int

const (
	Alive Lifecycle = iota
	Dead
	Respawning
)

func (l Lifecycle) String() string {
	switch l {
	case Alive:
		return "alive"
	case Dead:
		return "dead"
	case Respawning:
		return "respawning"
	default:
		return "unknown"
	}
}

// Policy selects how an agent weighs a new primary victim against its current target.
type Policy int

const (
	// PreferPrimary switches to the nearest available player whenever one is in range.
	PreferPrimary Policy = iota
	// StayEngaged keeps the current target until it becomes invalid.
	StayEngaged
)

// ParsePolicy maps a configuration name to a Policy.
func ParsePolicy(s string) (Policy, bool) {
	switch s {
	case "", "prefer_primary":
		return PreferPrimary, true
	case "stay_engaged":
		return StayEngaged, true
	default:
		return PreferPrimary, false
	}
}

func (p Policy) String() string {
	if p == StayEngaged {
		return "stay_engaged"
	}
	return "prefer_primary"
}
