// Package config provides Viper-based configuration loading for the arena simulator.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// SimConfig holds tick loop and agent population settings.
type SimConfig struct {
	// TickInterval is the wall-clock period of one simulation tick.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// ParallelTicks ticks agents concurrently within a tick.
	ParallelTicks bool `mapstructure:"parallel_ticks"`
	// TickWorkers bounds the goroutines used when ParallelTicks is set.
	TickWorkers int `mapstructure:"tick_workers"`
	// MaxAgents caps live agents across all arenas. 0 means unlimited.
	MaxAgents int `mapstructure:"max_agents"`
	// PopulationIntervalTicks is the number of ticks between arena top-ups.
	PopulationIntervalTicks int `mapstructure:"population_interval_ticks"`
	// RespawnDelayTicks is the number of ticks before a dead agent returns.
	RespawnDelayTicks int `mapstructure:"respawn_delay_ticks"`
}

// ArbitrationConfig holds the per-victim attacker ceilings.
type ArbitrationConfig struct {
	PlayerCeiling int `mapstructure:"player_ceiling"`
	AgentCeiling  int `mapstructure:"agent_ceiling"`
}

// TargetingConfig selects the acquisition policy.
type TargetingConfig struct {
	// Policy is "prefer_primary" or "stay_engaged".
	Policy string `mapstructure:"policy"`
	// BotVsBot lets agents target and damage each other.
	BotVsBot bool `mapstructure:"bot_vs_bot"`
}

// StatusConfig holds the status endpoint settings.
type StatusConfig struct {
	GRPCHost string `mapstructure:"grpc_host"`
	GRPCPort int    `mapstructure:"grpc_port"`
}

// Addr returns the "host:port" gRPC address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (s StatusConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.GRPCHost, s.GRPCPort)
}

// ContentConfig locates arena and profile YAML files.
type ContentConfig struct {
	ZonesDir       string `mapstructure:"zones_dir"`
	ProfilesDir    string `mapstructure:"profiles_dir"`
	DefaultProfile string `mapstructure:"default_profile"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging     LoggingConfig     `mapstructure:"logging"`
	Sim         SimConfig         `mapstructure:"sim"`
	Arbitration ArbitrationConfig `mapstructure:"arbitration"`
	Targeting   TargetingConfig   `mapstructure:"targeting"`
	Status      StatusConfig      `mapstructure:"status"`
	Content     ContentConfig     `mapstructure:"content"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	for _, err := range []error{
		validateLogging(c.Logging),
		validateSim(c.Sim),
		validateArbitration(c.Arbitration),
		validateTargeting(c.Targeting),
		validateStatus(c.Status),
		validateContent(c.Content),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func joined(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(errs, "; "))
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateSim(s SimConfig) error {
	var errs []string
	if s.TickInterval <= 0 {
		errs = append(errs, fmt.Sprintf("sim.tick_interval must be > 0, got %s", s.TickInterval))
	}
	if s.ParallelTicks && s.TickWorkers < 1 {
		errs = append(errs, fmt.Sprintf("sim.tick_workers must be >= 1 when parallel_ticks is set, got %d", s.TickWorkers))
	}
	if s.MaxAgents < 0 {
		errs = append(errs, fmt.Sprintf("sim.max_agents must be >= 0, got %d", s.MaxAgents))
	}
	if s.PopulationIntervalTicks < 0 {
		errs = append(errs, fmt.Sprintf("sim.population_interval_ticks must be >= 0, got %d", s.PopulationIntervalTicks))
	}
	if s.RespawnDelayTicks < 0 {
		errs = append(errs, fmt.Sprintf("sim.respawn_delay_ticks must be >= 0, got %d", s.RespawnDelayTicks))
	}
	return joined(errs)
}

func validateArbitration(a ArbitrationConfig) error {
	var errs []string
	if a.PlayerCeiling < 1 {
		errs = append(errs, fmt.Sprintf("arbitration.player_ceiling must be >= 1, got %d", a.PlayerCeiling))
	}
	if a.AgentCeiling < 0 {
		errs = append(errs, fmt.Sprintf("arbitration.agent_ceiling must be >= 0, got %d", a.AgentCeiling))
	}
	return joined(errs)
}

func validateTargeting(t TargetingConfig) error {
	validPolicies := map[string]bool{"prefer_primary": true, "stay_engaged": true}
	if !validPolicies[t.Policy] {
		return fmt.Errorf("targeting.policy must be one of [prefer_primary, stay_engaged], got %q", t.Policy)
	}
	return nil
}

func validateStatus(s StatusConfig) error {
	var errs []string
	if s.GRPCHost == "" {
		errs = append(errs, "status.grpc_host must not be empty")
	}
	if s.GRPCPort < 1 || s.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("status.grpc_port must be 1-65535, got %d", s.GRPCPort))
	}
	return joined(errs)
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.ZonesDir == "" {
		errs = append(errs, "content.zones_dir must not be empty")
	}
	if c.ProfilesDir == "" {
		errs = append(errs, "content.profiles_dir must not be empty")
	}
	return joined(errs)
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := NewViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// NewViper returns a Viper instance with defaults and SKIRMISH_ environment
// overrides applied, ready for a config file or direct Set calls.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("SKIRMISH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("sim.tick_interval", "50ms")
	v.SetDefault("sim.parallel_ticks", false)
	v.SetDefault("sim.tick_workers", 4)
	v.SetDefault("sim.max_agents", 50)
	v.SetDefault("sim.population_interval_ticks", 100)
	v.SetDefault("sim.respawn_delay_ticks", 100)

	v.SetDefault("arbitration.player_ceiling", 3)
	v.SetDefault("arbitration.agent_ceiling", 1)

	v.SetDefault("targeting.policy", "prefer_primary")
	v.SetDefault("targeting.bot_vs_bot", false)

	v.SetDefault("status.grpc_host", "127.0.0.1")
	v.SetDefault("status.grpc_port", 50061)

	v.SetDefault("content.zones_dir", "content/arenas")
	v.SetDefault("content.profiles_dir", "content/profiles")
	v.SetDefault("content.default_profile", "")
}
