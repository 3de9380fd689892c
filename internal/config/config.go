// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	DB        DBConfig        `mapstructure:"db"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Game      GameConfig      `mapstructure:"game"`
	Blob      BlobConfig      `mapstructure:"blob"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Events    EventsConfig    `mapstructure:"events"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN                 string `mapstructure:"dsn"`
	MaxConns            int32  `mapstructure:"max_conns"`
	MinConns            int32  `mapstructure:"min_conns"`
	MaxConnLifetimeMins int    `mapstructure:"max_conn_lifetime_minutes"`
}

// SchedulerConfig governs work leases and the hall-of-fame recrawl cycle.
type SchedulerConfig struct {
	PlayerLeaseMinutes int `mapstructure:"player_lease_minutes"`
	HofLeaseMinutes    int `mapstructure:"hof_lease_minutes"`
	HofCycleHours      int `mapstructure:"hof_cycle_hours"`
	ClaimCap           int `mapstructure:"claim_cap"`
}

// GameConfig carries constants of the external game's listing format.
type GameConfig struct {
	HofPageSize int `mapstructure:"hof_page_size"`
}

// BlobConfig tunes report payload compression.
type BlobConfig struct {
	ZstdLevel int `mapstructure:"zstd_level"`
}

// ArchiveConfig selects the raw report archive backend.
type ArchiveConfig struct {
	Provider  string `mapstructure:"provider"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// EventsConfig selects the outbound event backend.
type EventsConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HOFWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 4949)
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.max_conn_lifetime_minutes", 60)
	v.SetDefault("scheduler.player_lease_minutes", 30)
	v.SetDefault("scheduler.hof_lease_minutes", 30)
	v.SetDefault("scheduler.hof_cycle_hours", 72)
	v.SetDefault("scheduler.claim_cap", 500)
	v.SetDefault("game.hof_page_size", 51)
	v.SetDefault("blob.zstd_level", 3)
	v.SetDefault("archive.provider", "none")
	v.SetDefault("archive.prefix", "reports")
	v.SetDefault("events.provider", "none")
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Scheduler.PlayerLeaseMinutes <= 0 || c.Scheduler.HofLeaseMinutes <= 0 {
		return fmt.Errorf("scheduler lease durations must be > 0")
	}
	if c.Scheduler.HofCycleHours <= 0 {
		return fmt.Errorf("scheduler.hof_cycle_hours must be > 0")
	}
	if c.Scheduler.ClaimCap <= 0 {
		return fmt.Errorf("scheduler.claim_cap must be > 0")
	}
	if c.Game.HofPageSize <= 0 {
		return fmt.Errorf("game.hof_page_size must be > 0")
	}
	switch c.Archive.Provider {
	case "none", "gcs":
	default:
		return fmt.Errorf("archive.provider must be one of none, gcs")
	}
	if c.Archive.Provider == "gcs" && c.Archive.GCSBucket == "" {
		return fmt.Errorf("archive.gcs_bucket must be set for the gcs provider")
	}
	switch c.Events.Provider {
	case "none", "memory", "pubsub":
	default:
		return fmt.Errorf("events.provider must be one of none, memory, pubsub")
	}
	if c.Events.Provider == "pubsub" && (c.Events.ProjectID == "" || c.Events.TopicID == "") {
		return fmt.Errorf("events.project_id and events.topic_id must be set for the pubsub provider")
	}
	return nil
}

// PlayerLease returns the player claim lease as a duration.
func (c Config) PlayerLease() time.Duration {
	return time.Duration(c.Scheduler.PlayerLeaseMinutes) * time.Minute
}

// HofLease returns the hall-of-fame page claim lease as a duration.
func (c Config) HofLease() time.Duration {
	return time.Duration(c.Scheduler.HofLeaseMinutes) * time.Minute
}

// HofCycle returns the minimum interval between full hall-of-fame recrawls.
func (c Config) HofCycle() time.Duration {
	return time.Duration(c.Scheduler.HofCycleHours) * time.Hour
}
