// Package config provides configuration management for the journal.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "forex-journal/internal/errors"
)

// EnvPrefix prefixes every environment override, e.g. FXJOURNAL_STORE_BACKEND.
const EnvPrefix = "FXJOURNAL"

// Config holds all application configuration.
type Config struct {
	Journal     JournalConfig   `mapstructure:"journal" yaml:"journal"`
	Store       StoreConfig     `mapstructure:"store" yaml:"store"`
	Server      ServerConfig    `mapstructure:"server" yaml:"server"`
	Logging     LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	UI          UIConfig        `mapstructure:"ui" yaml:"ui"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Credentials Credentials     `mapstructure:"-" yaml:"-" json:"-"` // Loaded separately

	// Dir is the directory the configuration was loaded from.
	Dir string `mapstructure:"-" yaml:"dir"`
}

// JournalConfig holds journal behaviour.
type JournalConfig struct {
	DefaultUser    string  `mapstructure:"default_user" yaml:"default_user"`
	PipValuePerLot float64 `mapstructure:"pip_value_per_lot" yaml:"pip_value_per_lot"`
	Currency       string  `mapstructure:"currency" yaml:"currency"`
	RecentLimit    int     `mapstructure:"recent_limit" yaml:"recent_limit"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend    string `mapstructure:"backend" yaml:"backend"` // memory, sqlite, postgres, redis
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	RedisAddr  string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisDB    int    `mapstructure:"redis_db" yaml:"redis_db"`
	KeyPrefix  string `mapstructure:"key_prefix" yaml:"key_prefix"`
	MaxRetries int    `mapstructure:"max_retries" yaml:"max_retries"`

	// Circuit breaker for postgres and redis; 0 disables it.
	BreakerThreshold int           `mapstructure:"breaker_threshold" yaml:"breaker_threshold"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown" yaml:"breaker_cooldown"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	SnapshotMaxAge  time.Duration `mapstructure:"snapshot_max_age" yaml:"snapshot_max_age"`
	SessionIdleTTL  time.Duration `mapstructure:"session_idle_ttl" yaml:"session_idle_ttl"`
	RateLimit       float64       `mapstructure:"rate_limit" yaml:"rate_limit"` // requests per second per user, 0 = off
	RateBurst       int           `mapstructure:"rate_burst" yaml:"rate_burst"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Console    bool   `mapstructure:"console" yaml:"console"`
	File       bool   `mapstructure:"file" yaml:"file"`
	FilePath   string `mapstructure:"file_path" yaml:"file_path"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"` // days
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled" yaml:"color_enabled"`
	DateFormat   string `mapstructure:"date_format" yaml:"date_format"`
	TimeFormat   string `mapstructure:"time_format" yaml:"time_format"`
}

// TelemetryConfig controls tracing.
type TelemetryConfig struct {
	TraceStdout bool `mapstructure:"trace_stdout" yaml:"trace_stdout"`
}

// Credentials holds secrets kept out of config.toml.
type Credentials struct {
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	RedisPassword string `mapstructure:"redis_password"`
	JWTSecret     string `mapstructure:"jwt_secret"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "fxjournal")
	}
	return filepath.Join(home, ".config", "fxjournal")
}

// ConfigPath returns the path of config.toml inside configDir.
func ConfigPath(configDir string) string {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return filepath.Join(configDir, "config.toml")
}

// LoadEnvFiles loads .env from the working directory and from configDir.
// Variables already set in the environment win.
func LoadEnvFiles(configDir string) {
	for _, path := range []string{".env", filepath.Join(configDir, ".env")} {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
		}
	}
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. Missing files are
// created from templates and loading continues with the defaults.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	LoadEnvFiles(configDir)

	cfg := &Config{Dir: configDir}

	// Load main config
	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	// Load credentials
	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)
	cfg.resolvePaths()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration rooted at configDir, without
// touching the filesystem.
func Default(configDir string) *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{Dir: configDir}
	_ = v.Unmarshal(cfg)
	cfg.resolvePaths()
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("journal.default_user", "local")
	v.SetDefault("journal.pip_value_per_lot", 1.0)
	v.SetDefault("journal.currency", "USD")
	v.SetDefault("journal.recent_limit", 10)

	v.SetDefault("store.backend", "sqlite")
	v.SetDefault("store.sqlite_path", "")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.key_prefix", "fxjournal")
	v.SetDefault("store.max_retries", 3)
	v.SetDefault("store.breaker_threshold", 5)
	v.SetDefault("store.breaker_cooldown", "30s")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.snapshot_max_age", "1m")
	v.SetDefault("server.session_idle_ttl", "30m")
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
	v.SetDefault("logging.file_path", "")
	v.SetDefault("logging.max_size", 50)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 30)

	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "2006-01-02")
	v.SetDefault("ui.time_format", "15:04")

	v.SetDefault("telemetry.trace_stdout", false)
}

func newViper(configDir, name string) *viper.Viper {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func loadConfigFile(configDir string, cfg *Config) error {
	v := newViper(configDir, "config")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		// Config file not found, create template and continue with defaults
		if _, err := WriteTemplates(configDir, false); err != nil {
			return err
		}
	}

	return v.Unmarshal(cfg)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := newViper(configDir, "credentials")
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("jwt_secret", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	// Conventional names used by hosting platforms
	if v := os.Getenv("DATABASE_URL"); v != "" && cfg.Credentials.PostgresDSN == "" {
		cfg.Credentials.PostgresDSN = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" && cfg.Credentials.RedisPassword == "" {
		cfg.Credentials.RedisPassword = v
	}
	if v := os.Getenv("PORT"); v != "" && os.Getenv(EnvPrefix+"_SERVER_ADDR") == "" {
		cfg.Server.Addr = ":" + v
	}
}

func (c *Config) resolvePaths() {
	if c.Store.SQLitePath == "" {
		c.Store.SQLitePath = filepath.Join(c.Dir, "journal.db")
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = filepath.Join(c.Dir, "logs", "fxjournal.log")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Store.Backend) {
	case "memory", "sqlite", "postgres", "redis":
	default:
		return apperrors.NewConfigError("store.backend",
			fmt.Sprintf("unknown backend %q (must be memory, sqlite, postgres or redis)", c.Store.Backend))
	}

	if c.Journal.PipValuePerLot <= 0 {
		return apperrors.NewConfigError("journal.pip_value_per_lot", "must be positive")
	}
	if c.Journal.RecentLimit < 0 {
		return apperrors.NewConfigError("journal.recent_limit", "must be non-negative")
	}
	if strings.TrimSpace(c.Journal.Currency) == "" {
		return apperrors.NewConfigError("journal.currency", "must not be empty")
	}
	if c.Store.MaxRetries < 0 {
		return apperrors.NewConfigError("store.max_retries", "must be non-negative")
	}
	if c.Store.BreakerThreshold < 0 || c.Store.BreakerCooldown < 0 {
		return apperrors.NewConfigError("store.breaker_threshold", "breaker settings must be non-negative")
	}
	if c.Server.Addr == "" {
		return apperrors.NewConfigError("server.addr", "must not be empty")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 || c.Server.SessionIdleTTL < 0 {
		return apperrors.NewConfigError("server", "timeouts must be non-negative")
	}
	if c.Server.RateLimit < 0 {
		return apperrors.NewConfigError("server.rate_limit", "must be non-negative")
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		return apperrors.NewConfigError("server.rate_burst", "must be at least 1 when rate_limit is set")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return apperrors.NewConfigError("logging.level",
			fmt.Sprintf("invalid level %q (must be debug, info, warn or error)", c.Logging.Level))
	}

	return nil
}

// AuthEnabled reports whether the API verifies bearer tokens.
func (c *Config) AuthEnabled() bool {
	return c.Credentials.JWTSecret != ""
}
