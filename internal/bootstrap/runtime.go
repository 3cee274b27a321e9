// Package bootstrap opens the shared runtime dependencies used by the commands.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"strings"

	"flock/internal/cache"
	"flock/internal/config"
	"flock/internal/database"
	"flock/internal/models"
	"flock/internal/observability"
	"flock/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const serviceVersion = "1.0.0"

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo fills an empty development database with the given scenario.
	SeedDemo bool
	Scenario seed.Scenario
}

// Runtime holds the connections a command needs. Redis is nil when unreachable.
type Runtime struct {
	DB              *gorm.DB
	Redis           *redis.Client
	ShutdownTracing func(context.Context) error
}

// InitRuntime installs tracing, connects to DB and Redis and optionally seeds.
func InitRuntime(cfg *config.Config, opts Options) (*Runtime, error) {
	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "flock-api",
		ServiceVersion: serviceVersion,
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   1.0,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)

	rt := &Runtime{DB: db, Redis: cache.GetClient(), ShutdownTracing: shutdownTracing}

	if opts.SeedDemo {
		if err := seedIfEmpty(cfg, db, opts.Scenario); err != nil {
			return nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}
	return rt, nil
}

func seedIfEmpty(cfg *config.Config, db *gorm.DB, sc seed.Scenario) error {
	if cfg.IsProduction() || strings.EqualFold(cfg.Env, "staging") {
		return fmt.Errorf("refusing to seed in %s", cfg.Env)
	}

	var users int64
	if err := db.Model(&models.User{}).Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		log.Printf("database already has %d users, skipping demo seed", users)
		return nil
	}

	_, err := seed.NewSeeder(db, seed.NewFactory(0)).Run(context.Background(), sc)
	return err
}
