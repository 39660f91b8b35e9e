// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Auth backends.
const (
	AuthBackendLocal  = "local"
	AuthBackendGoTrue = "gotrue"
)

// Database drivers for the local auth backend.
const (
	DBDriverSQLite   = "sqlite"
	DBDriverPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Port         string
	BaseURL      string
	InstanceName string
	Auth         AuthConfig
	DB           DBConfig
	Session      SessionConfig
	Chat         ChatConfig
	RateLimit    RateLimitConfig
}

// AuthConfig selects and configures the auth collaborator.
type AuthConfig struct {
	Backend string // "local" or "gotrue"
	URL     string // hosted backend base URL, gotrue only
	AnonKey string // public API key sent as the apikey header, gotrue only
	Timeout time.Duration
}

// DBConfig configures the store used by the local auth backend.
type DBConfig struct {
	Driver      string
	Path        string
	DatabaseURL string
}

// SessionConfig controls the browser cookie and local session lifetime.
type SessionConfig struct {
	Secret        string
	TTL           time.Duration
	SweepInterval time.Duration
}

// ChatConfig controls how long an abandoned course page keeps its transcript.
type ChatConfig struct {
	ViewTTL time.Duration
}

// RateLimitConfig throttles auth form submissions per client address.
type RateLimitConfig struct {
	AuthRequests int
	AuthWindow   time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		BaseURL:      strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		InstanceName: getEnv("INSTANCE_NAME", "courses-1"),
		Auth: AuthConfig{
			Backend: strings.ToLower(getEnv("AUTH_BACKEND", AuthBackendLocal)),
			URL:     strings.TrimRight(getEnv("AUTH_URL", ""), "/"),
			AnonKey: getEnv("AUTH_ANON_KEY", ""),
			Timeout: getEnvDuration("AUTH_TIMEOUT", 10*time.Second),
		},
		DB: DBConfig{
			Driver:      strings.ToLower(getEnv("DB_DRIVER", DBDriverSQLite)),
			Path:        getEnv("DB_PATH", "./data/courses.db"),
			DatabaseURL: getEnv("DATABASE_URL", ""),
		},
		Session: SessionConfig{
			Secret:        getEnv("SESSION_SECRET", ""),
			TTL:           getEnvDuration("SESSION_TTL", 24*time.Hour),
			SweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", time.Minute),
		},
		Chat: ChatConfig{
			ViewTTL: getEnvDuration("CHAT_VIEW_TTL", 2*time.Hour),
		},
		RateLimit: RateLimitConfig{
			AuthRequests: getEnvInt("AUTH_RATE_LIMIT", 10),
			AuthWindow:   getEnvDuration("AUTH_RATE_WINDOW", time.Minute),
		},
	}

	if cfg.Session.Secret == "" && cfg.IsDevelopment() {
		cfg.Session.Secret = "dev-session-secret-change-me-0000"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.Auth.Backend {
	case AuthBackendLocal:
		switch c.DB.Driver {
		case DBDriverSQLite:
			if c.DB.Path == "" {
				return fmt.Errorf("DB_PATH cannot be empty")
			}
		case DBDriverPostgres:
			if c.DB.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required when DB_DRIVER=postgres")
			}
		default:
			return fmt.Errorf("unknown DB_DRIVER %q", c.DB.Driver)
		}
	case AuthBackendGoTrue:
		if c.Auth.URL == "" {
			return fmt.Errorf("AUTH_URL is required when AUTH_BACKEND=gotrue")
		}
		if c.Auth.AnonKey == "" {
			return fmt.Errorf("AUTH_ANON_KEY is required when AUTH_BACKEND=gotrue")
		}
	default:
		return fmt.Errorf("unknown AUTH_BACKEND %q", c.Auth.Backend)
	}
	if len(c.Session.Secret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 bytes")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be > 0")
	}
	if c.Chat.ViewTTL < time.Second {
		return fmt.Errorf("CHAT_VIEW_TTL must be at least 1s")
	}
	if c.RateLimit.AuthRequests <= 0 {
		return fmt.Errorf("AUTH_RATE_LIMIT must be > 0")
	}
	if c.RateLimit.AuthWindow <= 0 {
		return fmt.Errorf("AUTH_RATE_WINDOW must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env == "development"
	}
	return c.BaseURL == "" ||
		strings.Contains(c.BaseURL, "localhost") ||
		strings.Contains(c.BaseURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
