package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the runtime's full configuration surface, loaded once at
// startup and handed down to every service constructor.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Story    StoryConfig    `json:"story"`
	Session  SessionConfig  `json:"session"`
	Redis    RedisConfig    `json:"redis"`
	Database DatabaseConfig `json:"database"`
}

type ServerConfig struct {
	Port         string `json:"port"`
	Host         string `json:"host"`
	Environment  string `json:"environment"`
	ReadTimeout  int    `json:"read_timeout"`
	WriteTimeout int    `json:"write_timeout"`
}

// StoryConfig points at the compiled story bundles a session can load and
// the locale table new sessions start with. BaseURL selects a remote story
// registry over the bundle directory, the same way RedisConfig.URL selects
// a Redis-backed sessionstore over the in-memory one.
type StoryConfig struct {
	BundleDir     string `json:"bundle_dir"`
	BaseURL       string `json:"base_url"`
	DefaultLocale string `json:"default_locale"`
}

// RemoteEnabled reports whether a story registry should be used instead of
// the local bundle directory.
func (s StoryConfig) RemoteEnabled() bool {
	return s.BaseURL != ""
}

// SessionConfig tunes session lifecycle management: how long a saved
// snapshot is kept, how often idle sessions are reaped, and whether new
// sessions start with reduced motion pacing.
type SessionConfig struct {
	SnapshotTTLSeconds     int  `json:"snapshot_ttl_seconds"`
	IdleReapIntervalSec    int  `json:"idle_reap_interval_seconds"`
	IdleTimeoutSeconds     int  `json:"idle_timeout_seconds"`
	ReduceMotionDefault    bool `json:"reduce_motion_default"`
}

type RedisConfig struct {
	URL      string `json:"url"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// DatabaseConfig is optional: a blank URL disables the Postgres
// session-history adapter and the in-memory/Redis SessionStore runs on
// its own.
type DatabaseConfig struct {
	URL             string `json:"url"`
	MaxConnections  int    `json:"max_connections"`
	MaxIdleTime     int    `json:"max_idle_time"`
	ConnMaxLifetime int    `json:"conn_max_lifetime"`
}

// Enabled reports whether a Postgres session-history adapter should be
// constructed at all.
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		slog.Info("no .env file found in current directory, trying relative paths", "error", err)
		if err := godotenv.Load("../.env"); err != nil {
			slog.Warn("no .env file found, using environment variables", "error", err)
		}
	} else {
		slog.Info(".env file loaded successfully")
	}

	viper.SetEnvPrefix("CONVO_RUNTIME")
	viper.AutomaticEnv()

	setDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	if err := viper.ReadInConfig(); err != nil {
		slog.Debug("no YAML config file found, using environment variables and defaults")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if bundleDir := os.Getenv("STORY_BUNDLE_DIR"); bundleDir != "" {
		cfg.Story.BundleDir = bundleDir
	}
	if storyBaseURL := os.Getenv("STORY_BASE_URL"); storyBaseURL != "" {
		cfg.Story.BaseURL = storyBaseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.Redis.URL = redisURL
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}
	if host := os.Getenv("HOST"); host != "" {
		cfg.Server.Host = host
	}

	slog.Info("configuration loaded",
		"server_port", cfg.Server.Port,
		"server_host", cfg.Server.Host,
		"environment", cfg.Server.Environment,
		"database_enabled", cfg.Database.Enabled())

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.environment", "development")
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)

	viper.SetDefault("story.bundle_dir", "./stories")
	viper.SetDefault("story.base_url", "")
	viper.SetDefault("story.default_locale", "en")

	viper.SetDefault("session.snapshot_ttl_seconds", 86400)
	viper.SetDefault("session.idle_reap_interval_seconds", 300)
	viper.SetDefault("session.idle_timeout_seconds", 1800)
	viper.SetDefault("session.reduce_motion_default", false)

	viper.SetDefault("redis.url", "redis://localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("database.url", "")
	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.max_idle_time", 15)
	viper.SetDefault("database.conn_max_lifetime", 300)

	viper.BindEnv("story.bundle_dir", "STORY_BUNDLE_DIR")
	viper.BindEnv("story.base_url", "STORY_BASE_URL")
	viper.BindEnv("database.url", "DATABASE_URL")
	viper.BindEnv("redis.url", "REDIS_URL")
	viper.BindEnv("server.port", "PORT")
	viper.BindEnv("server.host", "HOST")
	viper.BindEnv("server.environment", "GO_ENV")
}

func validateConfig(cfg *Config) error {
	slog.Debug("config validation",
		"has_story_bundle_dir", cfg.Story.BundleDir != "",
		"has_database_url", cfg.Database.Enabled())

	if cfg.Story.BundleDir == "" && !cfg.Story.RemoteEnabled() {
		return fmt.Errorf("story bundle directory is required when no story.base_url is set")
	}

	return nil
}
