package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/joshdurbin/linkvault/internal/cache"
	"github.com/joshdurbin/linkvault/internal/cache/memory"
	"github.com/joshdurbin/linkvault/internal/cache/redis"
	"github.com/joshdurbin/linkvault/internal/config"
	"github.com/joshdurbin/linkvault/internal/metrics"
	"github.com/joshdurbin/linkvault/internal/repository"
	"github.com/joshdurbin/linkvault/internal/repository/postgres"
	"github.com/joshdurbin/linkvault/internal/repository/sqlite"
	"github.com/joshdurbin/linkvault/internal/service"
	"github.com/joshdurbin/linkvault/internal/shortener"
	httpTransport "github.com/joshdurbin/linkvault/internal/transport/http"
)

func registerServerFlags(cmd *cobra.Command) {
	defaults := config.Default()
	flags := cmd.Flags()

	// Server configuration flags
	flags.StringP("port", "p", defaults.Server.Port, "Server port")
	flags.String("server-url", defaults.Server.ServerURL, "Public base URL used to build short URLs")
	flags.Duration("shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown timeout")
	flags.Bool("trust-proxy", defaults.Server.TrustProxy, "Take click source addresses from X-Forwarded-For/X-Real-IP (only behind a trusted reverse proxy)")

	// Database configuration flags
	flags.String("db-driver", defaults.Database.Driver, "Database driver (sqlite or postgres)")
	flags.String("db-dsn", defaults.Database.DSN, "SQLite file path or libsql URL, or PostgreSQL connection URL")

	// Cache configuration flags
	flags.String("cache-backend", defaults.Cache.Backend, "Cache backend (memory, redis or none); memory is per instance, so run several instances with redis or none")
	flags.Duration("cache-ttl", defaults.Cache.TTL, "Cache entry lifetime")
	flags.Duration("cache-cleanup-interval", defaults.Cache.CleanupInterval, "Memory cache eviction interval")
	flags.String("redis-url", defaults.Cache.RedisURL, "Redis URL or host:port for the redis cache backend")

	// Link policy flags
	flags.Duration("link-ttl", defaults.Links.DefaultTTL, "Default link lifetime when none is given (0 disables)")
	flags.Duration("sweep-interval", defaults.Links.SweepInterval, "Expired link sweep interval (0 disables)")
	flags.Int("password-cost", defaults.Links.PasswordCost, "bcrypt cost for link passwords")

	// Shortener configuration flags
	flags.Int("code-length", defaults.Shortener.CodeLength, "Generated short code length")
	flags.Int("max-attempts", defaults.Shortener.MaxAttempts, "Short code collision retries")

	// Auth configuration flags
	flags.String("jwt-secret", "", "HS256 secret used to verify owner tokens")

	// Logging configuration flags
	flags.BoolP("verbose", "v", false, "Enable verbose logging (HTTP requests/responses and error details)")
}

func configFromFlags(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	cfg := config.Default()

	cfg.Server.Port, _ = flags.GetString("port")
	cfg.Server.ServerURL, _ = flags.GetString("server-url")
	cfg.Server.ShutdownTimeout, _ = flags.GetDuration("shutdown-timeout")
	cfg.Server.TrustProxy, _ = flags.GetBool("trust-proxy")

	cfg.Database.Driver, _ = flags.GetString("db-driver")
	cfg.Database.DSN, _ = flags.GetString("db-dsn")

	cfg.Cache.Backend, _ = flags.GetString("cache-backend")
	cfg.Cache.TTL, _ = flags.GetDuration("cache-ttl")
	cfg.Cache.CleanupInterval, _ = flags.GetDuration("cache-cleanup-interval")
	cfg.Cache.RedisURL, _ = flags.GetString("redis-url")

	cfg.Links.DefaultTTL, _ = flags.GetDuration("link-ttl")
	cfg.Links.SweepInterval, _ = flags.GetDuration("sweep-interval")
	cfg.Links.PasswordCost, _ = flags.GetInt("password-cost")

	cfg.Shortener.CodeLength, _ = flags.GetInt("code-length")
	cfg.Shortener.MaxAttempts, _ = flags.GetInt("max-attempts")

	cfg.Auth.JWTSecret, _ = flags.GetString("jwt-secret")
	cfg.Logging.Verbose, _ = flags.GetBool("verbose")

	return config.New(cfg)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := configFromFlags(cmd)
	if err != nil {
		return fmt.Errorf("failed to create configuration: %w", err)
	}

	log.Printf("Starting link server with config: port=%s driver=%s cache=%s",
		cfg.Server.Port, cfg.Database.Driver, cfg.Cache.Backend)

	repo, err := openRepository(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	linkCache, err := openCache(cfg.Cache)
	if err != nil {
		repo.Close()
		return fmt.Errorf("failed to initialize cache: %w", err)
	}

	generator, err := shortener.NewGenerator(cfg.Shortener)
	if err != nil {
		linkCache.Close()
		repo.Close()
		return fmt.Errorf("failed to create shortener generator: %w", err)
	}
	log.Printf("Using %s shortener generator", generator.Type())

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// The service owns the repository and cache from here on
	links, err := service.NewShortener(repo, linkCache, generator, service.Options{
		Shortener:    cfg.Shortener,
		DefaultTTL:   cfg.Links.DefaultTTL,
		PasswordCost: cfg.Links.PasswordCost,
		Metrics:      metrics.New(registry),
	})
	if err != nil {
		linkCache.Close()
		repo.Close()
		return fmt.Errorf("failed to create link service: %w", err)
	}
	defer func() {
		if err := links.Close(); err != nil {
			log.Printf("Error closing link service: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if janitor, ok := linkCache.(cache.ExpiringCache); ok {
		if err := janitor.StartJanitor(ctx, cfg.Cache.CleanupInterval); err != nil {
			return fmt.Errorf("failed to start cache janitor: %w", err)
		}
	}

	if cfg.Links.SweepInterval > 0 {
		if err := links.StartExpirySweep(ctx, cfg.Links.SweepInterval); err != nil {
			return fmt.Errorf("failed to start expiry sweep: %w", err)
		}
	}

	// Create and start HTTP server
	server := httpTransport.NewServer(links, httpTransport.Options{
		Port:       cfg.Server.Port,
		ServerURL:  cfg.Server.ServerURL,
		JWTSecret:  cfg.Auth.JWTSecret,
		Verbose:    cfg.Logging.Verbose,
		TrustProxy: cfg.Server.TrustProxy,
		Gatherer:   registry,
	})

	// Set up graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down gracefully...", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error during server shutdown: %v", err)
		}
	}

	log.Println("Server stopped")
	return nil
}

func openRepository(cfg config.DatabaseConfig) (repository.Repository, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		log.Printf("Using PostgreSQL store")
		return postgres.New(cfg.DSN)
	default:
		log.Printf("Using SQLite store at %s", cfg.DSN)
		return sqlite.New(cfg.DSN)
	}
}

func openCache(cfg config.CacheConfig) (cache.LinkCache, error) {
	switch cfg.Backend {
	case config.CacheRedis:
		log.Printf("Using Redis cache")
		return redis.New(cfg.RedisURL, cfg.TTL)
	case config.CacheNone:
		log.Printf("Caching disabled")
		return cache.Noop{}, nil
	default:
		// Changes made through another instance stay invisible here until entries expire
		log.Printf("Using in-memory cache local to this instance (ttl=%v)", cfg.TTL)
		return memory.New(cfg.TTL), nil
	}
}
