package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the Optigate server.
type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Optimizer OptimizerConfig
	Poll      PollConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type RedisConfig struct {
	URL string
}

type OptimizerConfig struct {
	BaseURL string
	Timeout time.Duration
}

// PollConfig governs the job-status poll loop: a fixed interval between
// polls and a hard attempt cap per run. The defaults give roughly a
// five-minute budget.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

type RateLimitConfig struct {
	RequestsPerMin int
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("OPTIGATE_PORT", 8080),
			Env:  envString("OPTIGATE_ENV", "development"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Optimizer: OptimizerConfig{
			BaseURL: os.Getenv("OPTIMIZER_BASE_URL"),
			Timeout: envDuration("OPTIMIZER_TIMEOUT", 30*time.Second),
		},
		Poll: PollConfig{
			Interval:    envDuration("POLL_INTERVAL", 500*time.Millisecond),
			MaxAttempts: envInt("POLL_MAX_ATTEMPTS", 600),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMin: envInt("RATE_LIMIT_PER_MIN", 60),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Optimizer.BaseURL == "" {
		return fmt.Errorf("OPTIMIZER_BASE_URL is required")
	}
	if !strings.HasPrefix(c.Optimizer.BaseURL, "http://") && !strings.HasPrefix(c.Optimizer.BaseURL, "https://") {
		return fmt.Errorf("OPTIMIZER_BASE_URL must start with http:// or https://, got %q", c.Optimizer.BaseURL)
	}

	if c.Poll.Interval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.Poll.Interval)
	}
	if c.Poll.MaxAttempts <= 0 {
		return fmt.Errorf("POLL_MAX_ATTEMPTS must be positive, got %d", c.Poll.MaxAttempts)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
