package commands

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dyluth/tarn/internal/config"
	"github.com/dyluth/tarn/internal/printer"
	"github.com/dyluth/tarn/pkg/lake"
	"github.com/dyluth/tarn/pkg/lake/redisstore"
)

// lakeEnv bundles the connected lake components a command needs. Built from
// the tarn.yml named by --config; Close releases everything.
type lakeEnv struct {
	cfg    *config.TarnConfig
	store  *redisstore.Store
	router *lake.Router
}

// openLake loads the configuration, connects to Redis, and wires the store
// and router. Connection problems come back as formatted printer errors.
func openLake(ctx context.Context) (*lakeEnv, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, printer.Error(
			"failed to load configuration",
			err.Error(),
			[]string{"Create a tarn.yml, or point at one:\n  tarn --config path/to/tarn.yml ..."},
		)
	}

	store, err := redisstore.New(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Instance)
	if err != nil {
		return nil, fmt.Errorf("failed to create datum store: %w", err)
	}

	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, printer.Error(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis at %s: %v", cfg.Redis.Addr, err),
			[]string{"Check that the Redis server is running and redis.addr in tarn.yml is correct"},
		)
	}

	router, err := lake.NewRouter(store, lake.SchemeOpener(map[string]lake.RegistryOpener{
		"redis": redisstore.OpenRegistry,
		"mem":   lake.InMemOpener(),
	}))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create storage router: %w", err)
	}

	return &lakeEnv{cfg: cfg, store: store, router: router}, nil
}

// Close releases the registry handles and the Redis connection.
func (e *lakeEnv) Close() {
	e.router.CloseRegistries()
	e.store.Close()
}
