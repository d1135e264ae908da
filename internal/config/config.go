// Package config provides Viper-based configuration loading for the battle engine.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings for the combatant store.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// BattleConfig holds the tunable combat and session timing parameters.
// The damage-formula constants are deliberately configuration, not code.
type BattleConfig struct {
	// RoundDeadline is how long a session waits for action submissions
	// before defaulting missing participants to defend.
	RoundDeadline time.Duration `mapstructure:"round_deadline"`
	// LobbyTimeout is how long a lobby may sit below its minimum roster
	// before the session is abandoned.
	LobbyTimeout time.Duration `mapstructure:"lobby_timeout"`
	// ChargeCap is the maximum charge multiplier (progression 2-4-8-16).
	ChargeCap float64 `mapstructure:"charge_cap"`
	// ChargingVulnerability is the damage factor applied to a target that
	// declared charge this round.
	ChargingVulnerability float64 `mapstructure:"charging_vulnerability"`
	// CritThreshold is the minimum d20 roll counted as a critical hit.
	CritThreshold int `mapstructure:"crit_threshold"`
	// GroupEnemyScale is the per-extra-member stat scale applied to the
	// group-mode opponent (0.5 means +50% per ally beyond the first).
	GroupEnemyScale float64 `mapstructure:"group_enemy_scale"`
	// EventBuffer is the per-subscriber event channel capacity.
	EventBuffer int `mapstructure:"event_buffer"`
}

// RewardConfig holds the post-session reward parameters.
type RewardConfig struct {
	// BaseDivisor divides the opponent's max health to produce the base
	// PvE reward (100 HP enemy / 10 = 10 energon/XP before multipliers).
	BaseDivisor int `mapstructure:"base_divisor"`
	// TierMultipliers scales PvE rewards by opponent rarity tier.
	TierMultipliers map[string]float64 `mapstructure:"tier_multipliers"`
	// TierWeights drives loot rarity sampling (weights need not sum to 1).
	TierWeights map[string]float64 `mapstructure:"tier_weights"`
	// PvPWinXP and PvPWinCurrency are granted to each winning participant.
	PvPWinXP       int `mapstructure:"pvp_win_xp"`
	PvPWinCurrency int `mapstructure:"pvp_win_currency"`
	// PvPLossCurrency is deducted from each losing participant, floored so
	// a balance never drops below zero. Ignored in wagered modes.
	PvPLossCurrency int `mapstructure:"pvp_loss_currency"`
	PvPLossXP       int `mapstructure:"pvp_loss_xp"`
}

// ContentConfig holds the catalog content directories.
type ContentConfig struct {
	EnemiesDir string `mapstructure:"enemies_dir"`
	LootDir    string `mapstructure:"loot_dir"`
}

// Config is the top-level application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Battle   BattleConfig   `mapstructure:"battle"`
	Reward   RewardConfig   `mapstructure:"reward"`
	Content  ContentConfig  `mapstructure:"content"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateDatabase(c.Database); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateBattle(c.Battle); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateReward(c.Reward); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
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

func validateBattle(b BattleConfig) error {
	var errs []string
	if b.RoundDeadline <= 0 {
		errs = append(errs, fmt.Sprintf("battle.round_deadline must be > 0, got %s", b.RoundDeadline))
	}
	if b.LobbyTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("battle.lobby_timeout must be > 0, got %s", b.LobbyTimeout))
	}
	if b.ChargeCap < 1 {
		errs = append(errs, fmt.Sprintf("battle.charge_cap must be >= 1, got %g", b.ChargeCap))
	}
	if b.ChargingVulnerability < 1 {
		errs = append(errs, fmt.Sprintf("battle.charging_vulnerability must be >= 1, got %g", b.ChargingVulnerability))
	}
	if b.CritThreshold < 1 || b.CritThreshold > 20 {
		errs = append(errs, fmt.Sprintf("battle.crit_threshold must be 1-20, got %d", b.CritThreshold))
	}
	if b.GroupEnemyScale < 0 {
		errs = append(errs, fmt.Sprintf("battle.group_enemy_scale must be >= 0, got %g", b.GroupEnemyScale))
	}
	if b.EventBuffer < 1 {
		errs = append(errs, fmt.Sprintf("battle.event_buffer must be >= 1, got %d", b.EventBuffer))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateReward(r RewardConfig) error {
	var errs []string
	if r.BaseDivisor < 1 {
		errs = append(errs, fmt.Sprintf("reward.base_divisor must be >= 1, got %d", r.BaseDivisor))
	}
	for tier, m := range r.TierMultipliers {
		if m <= 0 {
			errs = append(errs, fmt.Sprintf("reward.tier_multipliers.%s must be > 0, got %g", tier, m))
		}
	}
	totalWeight := 0.0
	for tier, w := range r.TierWeights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("reward.tier_weights.%s must be >= 0, got %g", tier, w))
		}
		totalWeight += w
	}
	if len(r.TierWeights) > 0 && totalWeight <= 0 {
		errs = append(errs, "reward.tier_weights must have a positive total weight")
	}
	if r.PvPWinXP < 0 || r.PvPWinCurrency < 0 || r.PvPLossCurrency < 0 || r.PvPLossXP < 0 {
		errs = append(errs, "reward pvp amounts must be >= 0")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with ALLSPARK_ prefix
	v.SetEnvPrefix("ALLSPARK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
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

// Defaults returns the built-in configuration, used by tests and by callers
// that run the engine without a config file.
func Defaults() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Unmarshalling pure defaults cannot fail: the shapes match by construction.
	_ = v.Unmarshal(&cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "allspark")
	v.SetDefault("database.password", "allspark")
	v.SetDefault("database.name", "allspark")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("battle.round_deadline", "90s")
	v.SetDefault("battle.lobby_timeout", "2m")
	v.SetDefault("battle.charge_cap", 16.0)
	v.SetDefault("battle.charging_vulnerability", 1.25)
	v.SetDefault("battle.crit_threshold", 17)
	v.SetDefault("battle.group_enemy_scale", 0.5)
	v.SetDefault("battle.event_buffer", 64)

	v.SetDefault("reward.base_divisor", 10)
	v.SetDefault("reward.tier_multipliers", map[string]float64{
		"common": 1, "uncommon": 1.5, "rare": 2, "epic": 3, "legendary": 5, "mythic": 10,
	})
	v.SetDefault("reward.tier_weights", map[string]float64{
		"common": 50, "uncommon": 25, "rare": 15, "epic": 7, "legendary": 2.5, "mythic": 0.5,
	})
	v.SetDefault("reward.pvp_win_xp", 50)
	v.SetDefault("reward.pvp_win_currency", 100)
	v.SetDefault("reward.pvp_loss_currency", 25)
	v.SetDefault("reward.pvp_loss_xp", 10)

	v.SetDefault("content.enemies_dir", "content/enemies")
	v.SetDefault("content.loot_dir", "content/loot")
}
