package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Default()
	cfg.Auth.JWTSecret = "test-secret"
	return cfg
}

func TestConfig_New_Valid(t *testing.T) {
	cfg, err := New(validConfig())

	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// Verify server config
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "http://localhost:8080", cfg.Server.ServerURL)
	assert.False(t, cfg.Server.TrustProxy)

	// Verify database config
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "./linkvault.db", cfg.Database.DSN)

	// Verify cache config
	assert.Equal(t, CacheMemory, cfg.Cache.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)

	// Verify link policy
	assert.Equal(t, 7*24*time.Hour, cfg.Links.DefaultTTL)
	assert.Equal(t, time.Minute, cfg.Links.SweepInterval)

	// Verify shortener config
	assert.Equal(t, 7, cfg.Shortener.CodeLength)
	assert.Equal(t, 10, cfg.Shortener.MaxAttempts)

	assert.False(t, cfg.Logging.Verbose)
}

func TestConfig_Default_NeedsSecret(t *testing.T) {
	_, err := New(Default())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "JWT secret cannot be empty")
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name        string
		mutate      func(*Config)
		errContains string
	}{
		{
			name:        "empty server port",
			mutate:      func(c *Config) { c.Server.Port = "" },
			errContains: "server port cannot be empty",
		},
		{
			name:        "empty server URL",
			mutate:      func(c *Config) { c.Server.ServerURL = "" },
			errContains: "server URL cannot be empty",
		},
		{
			name:        "relative server URL",
			mutate:      func(c *Config) { c.Server.ServerURL = "localhost:8080" },
			errContains: "absolute http(s) URL",
		},
		{
			name:        "zero shutdown timeout",
			mutate:      func(c *Config) { c.Server.ShutdownTimeout = 0 },
			errContains: "shutdown timeout must be positive",
		},
		{
			name:        "unknown driver",
			mutate:      func(c *Config) { c.Database.Driver = "mysql" },
			errContains: "unsupported database driver",
		},
		{
			name:        "empty DSN",
			mutate:      func(c *Config) { c.Database.DSN = "" },
			errContains: "database DSN cannot be empty",
		},
		{
			name:        "unknown cache backend",
			mutate:      func(c *Config) { c.Cache.Backend = "memcached" },
			errContains: "unsupported cache backend",
		},
		{
			name:        "memory cache without cleanup interval",
			mutate:      func(c *Config) { c.Cache.CleanupInterval = 0 },
			errContains: "cache cleanup interval must be positive",
		},
		{
			name:        "redis cache without URL",
			mutate:      func(c *Config) { c.Cache.Backend = CacheRedis },
			errContains: "redis URL cannot be empty",
		},
		{
			name:        "negative cache TTL",
			mutate:      func(c *Config) { c.Cache.TTL = -time.Second },
			errContains: "cache TTL cannot be negative",
		},
		{
			name:        "negative default TTL",
			mutate:      func(c *Config) { c.Links.DefaultTTL = -time.Hour },
			errContains: "default link TTL cannot be negative",
		},
		{
			name:        "negative sweep interval",
			mutate:      func(c *Config) { c.Links.SweepInterval = -time.Second },
			errContains: "sweep interval cannot be negative",
		},
		{
			name:        "password cost too low",
			mutate:      func(c *Config) { c.Links.PasswordCost = 2 },
			errContains: "password cost must be between",
		},
		{
			name:        "code length out of range",
			mutate:      func(c *Config) { c.Shortener.CodeLength = 64 },
			errContains: "code length must be between",
		},
		{
			name:        "no generation attempts",
			mutate:      func(c *Config) { c.Shortener.MaxAttempts = 0 },
			errContains: "max attempts must be positive",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)

			_, err := New(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errContains)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}

func TestConfig_Validate_DirectCall(t *testing.T) {
	cfg := validConfig()

	err := cfg.validate()
	assert.NoError(t, err)
}

func TestConfig_EdgeCases(t *testing.T) {
	t.Run("cache disabled", func(t *testing.T) {
		cfg := validConfig()
		cfg.Cache.Backend = CacheNone
		cfg.Cache.CleanupInterval = 0

		_, err := New(cfg)
		require.NoError(t, err)
	})

	t.Run("no default expiration and no sweep", func(t *testing.T) {
		cfg := validConfig()
		cfg.Links.DefaultTTL = 0
		cfg.Links.SweepInterval = 0

		got, err := New(cfg)
		require.NoError(t, err)
		assert.Zero(t, got.Links.DefaultTTL)
	})
}

func TestConfig_RealWorldScenarios(t *testing.T) {
	t.Run("development config", func(t *testing.T) {
		cfg := validConfig()
		cfg.Database.DSN = "./dev.db"
		cfg.Logging.Verbose = true

		got, err := New(cfg)
		require.NoError(t, err)
		assert.NotNil(t, got)
	})

	t.Run("production config", func(t *testing.T) {
		cfg := validConfig()
		cfg.Server.Port = "80"
		cfg.Server.ServerURL = "https://lnk.example.com"
		cfg.Database.Driver = DriverPostgres
		cfg.Database.DSN = "postgres://links:secret@db:5432/links?sslmode=require"
		cfg.Cache.Backend = CacheRedis
		cfg.Cache.RedisURL = "redis://cache:6379/0"

		got, err := New(cfg)
		require.NoError(t, err)
		assert.NotNil(t, got)
	})

	t.Run("testing config", func(t *testing.T) {
		cfg := validConfig()
		cfg.Server.Port = "0" // Let OS assign port
		cfg.Database.DSN = ":memory:"

		got, err := New(cfg)
		require.NoError(t, err)
		assert.NotNil(t, got)
	})

	t.Run("turso config", func(t *testing.T) {
		cfg := validConfig()
		cfg.Database.DSN = "libsql://links-acme.turso.io?authToken=token"

		got, err := New(cfg)
		require.NoError(t, err)
		assert.NotNil(t, got)
	})
}
