// Package config loads server configuration from the environment.
//
// Values come from, in increasing priority: built-in defaults, a .env file
// in the working directory, FUEL_* environment variables. cmd/server flags
// override all of them.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// MemoryDB selects the in-memory record store instead of SQLite.
const MemoryDB = "memory"

// Config holds application configuration.
type Config struct {
	Port           int
	DBPath         string // sqlite path, ":memory:", or MemoryDB
	LogLevel       string
	LogDevelopment bool
	CORSOrigins    []string
	Scenario       string // demo scenario loaded into an empty store on startup
	RetryInterval  time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	ShutdownGrace  time.Duration
}

// Load reads configuration. A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return fromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("FUEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("PORT", 8080)
	v.SetDefault("DB_PATH", "fuel.db")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DEVELOPMENT", false)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("SCENARIO", "")
	v.SetDefault("RETRY_INTERVAL", "5s")
	v.SetDefault("READ_TIMEOUT", "15s")
	v.SetDefault("WRITE_TIMEOUT", "30s")
	v.SetDefault("IDLE_TIMEOUT", "60s")
	v.SetDefault("SHUTDOWN_GRACE", "30s")
	return v
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:           v.GetInt("PORT"),
		DBPath:         v.GetString("DB_PATH"),
		LogLevel:       strings.ToLower(v.GetString("LOG_LEVEL")),
		LogDevelopment: v.GetBool("LOG_DEVELOPMENT"),
		CORSOrigins:    splitList(v.GetString("CORS_ORIGINS")),
		Scenario:       v.GetString("SCENARIO"),
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"RETRY_INTERVAL", &cfg.RetryInterval},
		{"READ_TIMEOUT", &cfg.ReadTimeout},
		{"WRITE_TIMEOUT", &cfg.WriteTimeout},
		{"IDLE_TIMEOUT", &cfg.IdleTimeout},
		{"SHUTDOWN_GRACE", &cfg.ShutdownGrace},
	}
	for _, d := range durations {
		raw := v.GetString(d.key)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid FUEL_%s %q: %w", d.key, raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("database path is required")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	if c.RetryInterval <= 0 {
		return fmt.Errorf("retry interval must be positive")
	}
	return nil
}

// UseMemoryStore reports whether records should live only in process.
func (c *Config) UseMemoryStore() bool {
	return c.DBPath == MemoryDB
}

func splitList(s string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
