// Package bootstrap wires the storage runtime shared by the server and the CLI tools.
package bootstrap

import (
	"fmt"
	"log/slog"

	"blogicum/internal/cache"
	"blogicum/internal/config"
	"blogicum/internal/database"
	"blogicum/internal/middleware"
	"blogicum/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedReference loads the embedded categories and locations.
	SeedReference bool
}

// InitRuntime connects to the database (applying the schema) and Redis, then
// optionally seeds reference data. A nil Redis client is not an error.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.SeedReference {
		if err := seed.Reference(db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed reference data: %w", err)
		}
		middleware.Logger.Info("reference data ensured", slog.String("driver", db.Dialector.Name()))
	}

	return db, r, nil
}
