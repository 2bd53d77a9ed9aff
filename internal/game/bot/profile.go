// Package bot implements the per-agent combat decision core: the immutable
// Profile an agent is created from, and the Agent state machine that each
// tick chooses a target, a movement, and whether to attack.
package bot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/locomotion"
)

// Profile is the tuning an agent is created with. Distances are in blocks,
// cooldowns in ticks, chances in [0,1]. Chances and health thresholds are
// taken as given, so 0 switches the behavior off. Non-positive distances and
// tick counts take their defaults.
type Profile struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	// Kit names the equipment set the host dresses the body in.
	Kit       string  `yaml:"kit"`
	MaxHealth float64 `yaml:"max_health"`

	DetectionRange float64 `yaml:"detection_range"`
	AttackRange    float64 `yaml:"attack_range"`
	LoseRange      float64 `yaml:"lose_range"`
	// ChaseMargin is how far beyond AttackRange a fighting agent lets the
	// target drift before chasing again.
	ChaseMargin float64 `yaml:"chase_margin"`
	// BackoffMargin is how far inside the optimal distance the target may
	// come before the agent backs away.
	BackoffMargin float64 `yaml:"backoff_margin"`

	RetreatHealth float64 `yaml:"retreat_health"`
	RecoverHealth float64 `yaml:"recover_health"`

	StrafeChance float64 `yaml:"strafe_chance"`
	StrafeTicks  int     `yaml:"strafe_ticks"`

	MinCPS           int     `yaml:"min_cps"`
	MaxCPS           int     `yaml:"max_cps"`
	MissChance       float64 `yaml:"miss_chance"`
	CritChance       float64 `yaml:"crit_chance"`
	DamageMultiplier float64 `yaml:"damage_multiplier"`
	// NoFeint disables the sprint-reset feint.
	NoFeint bool `yaml:"no_feint"`

	RetargetTicks int `yaml:"retarget_ticks"`
	FocusTicks    int `yaml:"focus_ticks"`
	JumpCooldown  int `yaml:"jump_cooldown"`

	// NoRod removes the fishing rod from the agent's abilities.
	NoRod       bool `yaml:"no_rod"`
	RodCooldown int  `yaml:"rod_cooldown"`
	// Potions is taken as given once present; zero means the agent carries none.
	Potions        int     `yaml:"potions"`
	PotionCooldown int     `yaml:"potion_cooldown"`
	PotionChance   float64 `yaml:"potion_chance"`
}

// DefaultProfile returns the baseline duelist.
func DefaultProfile() Profile {
	return Profile{
		ID:               "default",
		Name:             "Bot",
		MaxHealth:        20,
		DetectionRange:   32,
		AttackRange:      3.5,
		LoseRange:        32,
		ChaseMargin:      0.5,
		BackoffMargin:    1.0,
		RetreatHealth:    0.25,
		RecoverHealth:    0.6,
		StrafeChance:     0.7,
		StrafeTicks:      20,
		MinCPS:           10,
		MaxCPS:           14,
		MissChance:       0.1,
		CritChance:       0.3,
		DamageMultiplier: 1.0,
		RetargetTicks:    20,
		FocusTicks:       100,
		JumpCooldown:     20,
		RodCooldown:      60,
		Potions:          2,
		PotionCooldown:   100,
		PotionChance:     0.3,
	}
}

// Validate checks the fields that cannot be defaulted.
//
// Postcondition: Returns nil iff ID is non-empty and MaxCPS, when set, is not below MinCPS.
func (p *Profile) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("bot profile: id must not be empty")
	}
	if p.MinCPS > 0 && p.MaxCPS > 0 && p.MaxCPS < p.MinCPS {
		return fmt.Errorf("bot profile %q: max_cps %d below min_cps %d", p.ID, p.MaxCPS, p.MinCPS)
	}
	return nil
}

// Sanitize returns a copy of p with every out-of-range value replaced. Chances
// are clamped into [0,1] and non-positive ranges or tick counts take their
// defaults. The second result names each field that was corrected.
//
// Postcondition: the returned Profile is safe to build an Agent from.
func (p Profile) Sanitize() (Profile, []string) {
	d := DefaultProfile()
	var fixed []string

	positive := func(name string, v *float64, def float64) {
		if !(*v > 0) {
			if *v != 0 {
				fixed = append(fixed, name)
			}
			*v = def
		}
	}
	ticks := func(name string, v *int, def int) {
		if *v <= 0 {
			if *v != 0 {
				fixed = append(fixed, name)
			}
			*v = def
		}
	}
	unit := func(name string, v *float64) {
		switch {
		case *v < 0:
			*v = 0
			fixed = append(fixed, name)
		case *v > 1:
			*v = 1
			fixed = append(fixed, name)
		case *v != *v:
			*v = 0
			fixed = append(fixed, name)
		}
	}

	if p.ID == "" {
		p.ID = d.ID
	}
	if p.Name == "" {
		p.Name = d.Name
	}
	positive("max_health", &p.MaxHealth, d.MaxHealth)
	positive("detection_range", &p.DetectionRange, d.DetectionRange)
	positive("attack_range", &p.AttackRange, d.AttackRange)
	positive("lose_range", &p.LoseRange, d.LoseRange)
	positive("chase_margin", &p.ChaseMargin, d.ChaseMargin)
	positive("backoff_margin", &p.BackoffMargin, d.BackoffMargin)
	positive("damage_multiplier", &p.DamageMultiplier, d.DamageMultiplier)
	if p.LoseRange < p.DetectionRange {
		p.LoseRange = p.DetectionRange
		fixed = append(fixed, "lose_range")
	}

	unit("retreat_health", &p.RetreatHealth)
	unit("recover_health", &p.RecoverHealth)
	if p.RecoverHealth < p.RetreatHealth {
		p.RecoverHealth = p.RetreatHealth
		fixed = append(fixed, "recover_health")
	}
	unit("strafe_chance", &p.StrafeChance)
	unit("miss_chance", &p.MissChance)
	unit("crit_chance", &p.CritChance)
	unit("potion_chance", &p.PotionChance)

	ticks("strafe_ticks", &p.StrafeTicks, d.StrafeTicks)
	ticks("min_cps", &p.MinCPS, d.MinCPS)
	ticks("max_cps", &p.MaxCPS, d.MaxCPS)
	if p.MaxCPS < p.MinCPS {
		p.MaxCPS = p.MinCPS
		fixed = append(fixed, "max_cps")
	}
	ticks("retarget_ticks", &p.RetargetTicks, d.RetargetTicks)
	ticks("focus_ticks", &p.FocusTicks, d.FocusTicks)
	ticks("jump_cooldown", &p.JumpCooldown, d.JumpCooldown)
	ticks("rod_cooldown", &p.RodCooldown, d.RodCooldown)
	ticks("potion_cooldown", &p.PotionCooldown, d.PotionCooldown)
	if p.Potions < 0 {
		p.Potions = 0
		fixed = append(fixed, "potions")
	}
	return p, fixed
}

// TimingConfig derives the combat timing configuration.
func (p Profile) TimingConfig() combat.TimingConfig {
	c := combat.DefaultTimingConfig()
	c.MinCPS, c.MaxCPS = p.MinCPS, p.MaxCPS
	c.MissChance = p.MissChance
	c.CritChance = p.CritChance
	c.Feint = !p.NoFeint
	return c
}

// SpecialsConfig derives the special-ability configuration.
func (p Profile) SpecialsConfig() combat.SpecialsConfig {
	c := combat.DefaultSpecialsConfig()
	c.HasRod = !p.NoRod
	c.RodCooldown = p.RodCooldown
	c.Potions = p.Potions
	c.PotionCooldown = p.PotionCooldown
	c.PotionChance = p.PotionChance
	return c
}

// MovementConfig derives the locomotion configuration.
func (p Profile) MovementConfig() locomotion.Config {
	return locomotion.DefaultConfig()
}

// LoadProfileFromBytes parses a single profile from raw YAML bytes. Keys
// absent from data keep their DefaultProfile values; keys present, including
// explicit zeros, override them.
//
// Postcondition: Returns a validated but unsanitized *Profile, or an error.
func LoadProfileFromBytes(data []byte) (*Profile, error) {
	p := DefaultProfile()
	p.ID = ""
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile YAML: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadProfiles reads all *.yaml files in dir and returns the parsed profiles
// keyed by ID.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all profiles or an error on the first parse,
// validation, or duplicate-ID failure.
func LoadProfiles(dir string) (map[string]*Profile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading profile dir %q: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	profiles := make(map[string]*Profile)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		p, err := LoadProfileFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		if _, dup := profiles[p.ID]; dup {
			return nil, fmt.Errorf("loading %q: duplicate profile id %q", path, p.ID)
		}
		profiles[p.ID] = p
	}
	return profiles, nil
}
