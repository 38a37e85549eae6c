package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Identity   IdentityConfig   `mapstructure:"identity"`
	Countdown  CountdownConfig  `mapstructure:"countdown"`
	Generation GenerationConfig `mapstructure:"generation"`
}

// ServerConfig defines server ports and addresses
type ServerConfig struct {
	BindAddress string `mapstructure:"bind_address"`
	APIPort     int    `mapstructure:"api_port"`
	MetricsPort int    `mapstructure:"metrics_port"`
}

// StorageConfig defines storage backend settings
type StorageConfig struct {
	Type  string      `mapstructure:"type"` // "redis", "bolt", "sqlite" or "memory"
	Path  string      `mapstructure:"path"` // file path for bolt and sqlite
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// IdentityConfig supplies a fixed identity at startup.
// Leave ID empty to wait for PUT /api/identity.
type IdentityConfig struct {
	ID string `mapstructure:"id"`
}

// CountdownConfig defines controller behavior
type CountdownConfig struct {
	TickInterval string `mapstructure:"tick_interval"`
	DeadlineHour int    `mapstructure:"deadline_hour"` // local hour of day new deadlines land on
}

// GenerationConfig defines the content generation backend and retry policy
type GenerationConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	Timeout        string `mapstructure:"timeout"`
	MaxRetries     int    `mapstructure:"max_retries"`
	InitialBackoff string `mapstructure:"initial_backoff"`
	CacheSize      int    `mapstructure:"cache_size"`
	CacheTTL       string `mapstructure:"cache_ttl"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetEnvPrefix("COUNTDOWN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Defaults returns a configuration populated only with default values
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	_ = v.Unmarshal(&config)
	return &config
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.bind_address", "0.0.0.0")
	v.SetDefault("server.api_port", 8080)
	v.SetDefault("server.metrics_port", 9090)

	// Storage defaults
	v.SetDefault("storage.type", "bolt")
	v.SetDefault("storage.path", "/var/lib/countdown/countdown.bolt")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.min_idle_conns", 1)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Identity defaults
	v.SetDefault("identity.id", "")

	// Countdown defaults
	v.SetDefault("countdown.tick_interval", "1s")
	v.SetDefault("countdown.deadline_hour", 7)

	// Generation defaults
	v.SetDefault("generation.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("generation.api_key", "")
	v.SetDefault("generation.model", "gemini-2.0-flash")
	v.SetDefault("generation.timeout", "30s")
	v.SetDefault("generation.max_retries", 5)
	v.SetDefault("generation.initial_backoff", "1s")
	v.SetDefault("generation.cache_size", 0)
	v.SetDefault("generation.cache_ttl", "1h")
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.Server.APIPort <= 0 || cfg.Server.APIPort > 65535 {
		return fmt.Errorf("invalid API port: %d", cfg.Server.APIPort)
	}
	if cfg.Server.MetricsPort <= 0 || cfg.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.Server.MetricsPort)
	}

	switch cfg.Storage.Type {
	case "":
		cfg.Storage.Type = "bolt"
	case "bolt", "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("unknown storage type: %q", cfg.Storage.Type)
	}

	if cfg.Storage.Type == "bolt" || cfg.Storage.Type == "sqlite" {
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage path is required for %s storage", cfg.Storage.Type)
		}
		// Ensure storage directory exists
		storageDir := filepath.Dir(cfg.Storage.Path)
		if err := os.MkdirAll(storageDir, 0755); err != nil {
			return fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	if cfg.Storage.Type == "redis" && cfg.Storage.Redis.Host == "" {
		return fmt.Errorf("redis host is required for redis storage")
	}

	if cfg.Countdown.DeadlineHour < 0 || cfg.Countdown.DeadlineHour > 23 {
		return fmt.Errorf("invalid deadline hour: %d", cfg.Countdown.DeadlineHour)
	}

	for name, raw := range map[string]string{
		"countdown.tick_interval":    cfg.Countdown.TickInterval,
		"generation.timeout":         cfg.Generation.Timeout,
		"generation.initial_backoff": cfg.Generation.InitialBackoff,
		"generation.cache_ttl":       cfg.Generation.CacheTTL,
	} {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, raw, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if cfg.Generation.MaxRetries < 0 {
		return fmt.Errorf("generation max_retries cannot be negative: %d", cfg.Generation.MaxRetries)
	}
	if cfg.Generation.CacheSize < 0 {
		return fmt.Errorf("generation cache_size cannot be negative: %d", cfg.Generation.CacheSize)
	}

	return nil
}

// ParseDuration parses a duration string with a fallback
func ParseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
