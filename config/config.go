package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Port     string `mapstructure:"PORT"`
	GinMode  string `mapstructure:"GIN_MODE"`
	DevMode  bool   `mapstructure:"DEV_MODE"`
	DataDir  string `mapstructure:"DATA_DIR"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogFormat is "json" or "console"
	LogFormat string `mapstructure:"LOG_FORMAT"`

	FetchTimeout      time.Duration `mapstructure:"FETCH_TIMEOUT"`
	FetchMaxBodyBytes int64         `mapstructure:"FETCH_MAX_BODY_BYTES"`
	UserAgent         string        `mapstructure:"USER_AGENT"`

	// CacheBackend is "memory", "redis" or "none"
	CacheBackend         string        `mapstructure:"CACHE_BACKEND"`
	CacheTTL             time.Duration `mapstructure:"CACHE_TTL"`
	CacheCleanupInterval time.Duration `mapstructure:"CACHE_CLEANUP_INTERVAL"`
	RedisAddr            string        `mapstructure:"REDIS_ADDR"`
	RedisPassword        string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB              int           `mapstructure:"REDIS_DB"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`
}

var defaults = map[string]any{
	"PORT":                   "8082",
	"GIN_MODE":               "release",
	"DEV_MODE":               false,
	"DATA_DIR":               "./data",
	"LOG_LEVEL":              "info",
	"LOG_FORMAT":             "json",
	"FETCH_TIMEOUT":          "15s",
	"FETCH_MAX_BODY_BYTES":   10 << 20,
	"USER_AGENT":             "",
	"CACHE_BACKEND":          "memory",
	"CACHE_TTL":              "30m",
	"CACHE_CLEANUP_INTERVAL": "5m",
	"REDIS_ADDR":             "localhost:6379",
	"REDIS_PASSWORD":         "",
	"REDIS_DB":               0,
	"RATE_LIMIT_RPS":         2.0,
	"RATE_LIMIT_BURST":       5,
}

// LoadEnvFiles loads .env.development for local development, falling back
// to .env. Variables already set in the environment win.
func LoadEnvFiles(files ...string) (string, error) {
	if len(files) == 0 {
		files = []string{".env.development", ".env"}
	}
	for _, file := range files {
		err := godotenv.Load(file)
		if err == nil {
			return file, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return "", nil
}

// Load reads configuration from environment variables with defaults
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	switch c.CacheBackend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("invalid CACHE_BACKEND %q", c.CacheBackend)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive, got %s", c.FetchTimeout)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("invalid rate limit %v rps / burst %d", c.RateLimitRPS, c.RateLimitBurst)
	}
	return nil
}
