package config

import (
	"fmt"
	"net/url"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/joshdurbin/linkvault/internal/shortener"
)

// Database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Cache backends
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Links     LinksConfig
	Auth      AuthConfig
	Logging   LoggingConfig
	Shortener shortener.Config
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string
	ServerURL       string
	ShutdownTimeout time.Duration
	// TrustProxy honors X-Forwarded-For and X-Real-IP for click source addresses
	TrustProxy bool
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver string
	DSN    string // File path or libsql URL for sqlite, connection URL for postgres
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Backend         string
	TTL             time.Duration
	CleanupInterval time.Duration
	RedisURL        string
}

// LinksConfig holds link policy configuration
type LinksConfig struct {
	DefaultTTL    time.Duration // Zero disables the default expiration
	SweepInterval time.Duration // Zero disables the background expiry sweep
	PasswordCost  int
}

// AuthConfig holds the settings for verifying bearer tokens
type AuthConfig struct {
	JWTSecret string
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Verbose bool
}

// Default returns the default configuration. Auth.JWTSecret has no default.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8080",
			ServerURL:       "http://localhost:8080",
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			DSN:    "./linkvault.db",
		},
		Cache: CacheConfig{
			Backend:         CacheMemory,
			TTL:             5 * time.Minute,
			CleanupInterval: time.Minute,
		},
		Links: LinksConfig{
			DefaultTTL:    7 * 24 * time.Hour,
			SweepInterval: time.Minute,
			PasswordCost:  bcrypt.DefaultCost,
		},
		Shortener: shortener.DefaultConfig(),
	}
}

// New validates cfg and returns it
func New(cfg Config) (*Config, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// validate validates the configuration values
func (c *Config) validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}

	if c.Server.ServerURL == "" {
		return fmt.Errorf("server URL cannot be empty")
	}
	if u, err := url.Parse(c.Server.ServerURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server URL must be an absolute http(s) URL, got: %q", c.Server.ServerURL)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive, got: %v", c.Server.ShutdownTimeout)
	}

	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}

	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN cannot be empty")
	}

	switch c.Cache.Backend {
	case CacheNone:
	case CacheMemory:
		if c.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("cache cleanup interval must be positive, got: %v", c.Cache.CleanupInterval)
		}
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("redis URL cannot be empty when the redis cache is selected")
		}
	default:
		return fmt.Errorf("unsupported cache backend: %q", c.Cache.Backend)
	}

	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache TTL cannot be negative, got: %v", c.Cache.TTL)
	}

	if c.Links.DefaultTTL < 0 {
		return fmt.Errorf("default link TTL cannot be negative, got: %v", c.Links.DefaultTTL)
	}

	if c.Links.SweepInterval < 0 {
		return fmt.Errorf("sweep interval cannot be negative, got: %v", c.Links.SweepInterval)
	}

	if c.Links.PasswordCost < bcrypt.MinCost || c.Links.PasswordCost > bcrypt.MaxCost {
		return fmt.Errorf("password cost must be between %d and %d, got: %d", bcrypt.MinCost, bcrypt.MaxCost, c.Links.PasswordCost)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret cannot be empty")
	}

	if err := c.Shortener.Validate(); err != nil {
		return err
	}

	return nil
}
