package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Config holds application level configuration. Values come from an optional
// YAML file named by CONFIG_FILE, then environment variables override them.
type Config struct {
	ServerPort       string        `yaml:"server_port"`
	Environment      string        `yaml:"environment"`
	LogLevel         string        `yaml:"log_level"`
	DBDriver         string        `yaml:"db_driver"`
	DatabaseDSN      string        `yaml:"database_dsn"`
	ResetDB          bool          `yaml:"reset_db"`
	SessionBackend   string        `yaml:"session_backend"`
	RedisAddr        string        `yaml:"redis_addr"`
	RedisDB          int           `yaml:"redis_db"`
	RedisPass        string        `yaml:"redis_password"`
	SessionSecret    string        `yaml:"session_secret"`
	SessionCookie    string        `yaml:"session_cookie"`
	SessionTTL       time.Duration `yaml:"session_ttl"`
	CookieSecure     bool          `yaml:"cookie_secure"`
	StoreTimeout     time.Duration `yaml:"store_timeout"`
	StaticDir        string        `yaml:"static_dir"`
	MetricsAddr      string        `yaml:"metrics_addr"`
	TraceSampleRatio float64       `yaml:"trace_sample_ratio"`
}

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	// DefaultSessionSecret is only accepted in the dev environment.
	DefaultSessionSecret = "change-me"
)

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		ServerPort:       "8080",
		Environment:      "dev",
		LogLevel:         "info",
		DBDriver:         "sqlite",
		DatabaseDSN:      "secdash.db",
		SessionBackend:   BackendMemory,
		RedisAddr:        "localhost:6379",
		SessionSecret:    DefaultSessionSecret,
		SessionCookie:    "id",
		SessionTTL:       24 * time.Hour,
		StoreTimeout:     5 * time.Second,
		StaticDir:        "static",
		MetricsAddr:      ":9090",
		TraceSampleRatio: 1,
	}
}

// Load builds Config from the optional file and environment.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ServerPort = getEnv("SERVER_PORT", c.ServerPort)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.DBDriver = getEnv("DB_DRIVER", c.DBDriver)
	c.DatabaseDSN = getEnv("DATABASE_DSN", getEnv("MYSQL_DSN", c.DatabaseDSN))
	c.ResetDB = getEnvBool("RESET_DB", c.ResetDB)
	c.SessionBackend = getEnv("SESSION_BACKEND", c.SessionBackend)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisDB = getEnvInt("REDIS_DB", c.RedisDB)
	c.RedisPass = getEnv("REDIS_PASSWORD", c.RedisPass)
	c.SessionSecret = getEnv("SESSION_SECRET", c.SessionSecret)
	c.SessionCookie = getEnv("SESSION_COOKIE", c.SessionCookie)
	c.SessionTTL = getEnvDuration("SESSION_TTL", c.SessionTTL)
	c.CookieSecure = getEnvBool("COOKIE_SECURE", c.CookieSecure)
	c.StoreTimeout = getEnvDuration("STORE_TIMEOUT", c.StoreTimeout)
	c.StaticDir = getEnv("STATIC_DIR", c.StaticDir)
	if v, ok := os.LookupEnv("METRICS_ADDR"); ok {
		// empty disables the metrics listener
		c.MetricsAddr = v
	}
	c.TraceSampleRatio = getEnvFloat("TRACE_SAMPLE_RATIO", c.TraceSampleRatio)
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.SessionBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unsupported SESSION_BACKEND %q", c.SessionBackend)
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET must not be empty")
	}
	if c.SessionSecret == DefaultSessionSecret && c.Environment != "dev" {
		return fmt.Errorf("SESSION_SECRET must be set outside the dev environment")
	}
	if c.SessionCookie == "" {
		return fmt.Errorf("SESSION_COOKIE must not be empty")
	}
	if c.SessionTTL <= 0 || c.StoreTimeout <= 0 {
		return fmt.Errorf("SESSION_TTL and STORE_TIMEOUT must be positive")
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		return fmt.Errorf("TRACE_SAMPLE_RATIO must be within [0,1]")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}
