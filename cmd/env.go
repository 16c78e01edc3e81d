package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/summit-goods/commission-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "commission.db"
		}
		return store.NewSQLite(ctx, dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initPostgres is for commands that need pgx bulk-copy support and
// cannot run against sqlite.
func initPostgres(ctx context.Context) (*store.PostgresStore, error) {
	if cfg.Store.Driver != "postgres" {
		return nil, eris.Errorf("command requires the postgres driver, got %q", cfg.Store.Driver)
	}
	return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
}
