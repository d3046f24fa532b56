package repository

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/set-night/mindchat/internal/config"
)

// Options select and configure a KV backend.
type Options struct {
	Driver      string
	Path        string
	DatabaseURL string
	// Migrations is applied before a postgres store is opened.
	Migrations fs.FS
}

// Open creates the KV backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (KV, error) {
	switch opts.Driver {
	case "", config.StoreDriverMemory:
		return NewMemoryKV(), nil
	case config.StoreDriverFile:
		return NewFileKV(opts.Path)
	case config.StoreDriverSQLite:
		return NewSQLiteKV(ctx, opts.Path)
	case config.StoreDriverPostgres:
		if opts.Migrations != nil {
			sub, err := fs.Sub(opts.Migrations, "migrations")
			if err != nil {
				return nil, fmt.Errorf("open migrations: %w", err)
			}
			if err := RunMigrations(opts.DatabaseURL, sub); err != nil {
				return nil, err
			}
		}
		pool, err := NewPool(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return NewPostgresKV(pool), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
