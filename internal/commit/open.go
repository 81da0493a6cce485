package commit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/JonMunkholm/csvimport/internal/config"
	"github.com/JonMunkholm/csvimport/internal/core"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Open builds the committer selected by cfg.Commit.Backend. The returned
// close func releases its resources and is never nil.
func Open(ctx context.Context, cfg *config.Config) (core.Committer, func(), error) {
	switch strings.ToLower(cfg.Commit.Backend) {
	case config.BackendPostgres:
		pool, err := openPool(ctx, cfg.Database)
		if err != nil {
			return nil, func() {}, err
		}
		c := NewPostgresCommitter(pool, RegistryKeyFields)
		if cfg.Database.EnsureSchema {
			if err := c.EnsureSchema(ctx); err != nil {
				pool.Close()
				return nil, func() {}, fmt.Errorf("ensure schema: %w", err)
			}
		}
		return c, pool.Close, nil

	case config.BackendHTTP:
		c, err := NewHTTPCommitter(cfg.Commit.Endpoint,
			WithAPIKey(cfg.Commit.APIKey),
			WithHTTPClient(&http.Client{Timeout: cfg.Commit.Timeout}),
		)
		if err != nil {
			return nil, func() {}, err
		}
		slog.Info("commit backend: http", "endpoint", cfg.Commit.Endpoint)
		return c, func() {}, nil

	case config.BackendMemory:
		slog.Warn("commit backend: memory, committed rows are not persisted")
		return NewMemoryCommitter(RegistryKeyFields), func() {}, nil

	default:
		return nil, func() {}, fmt.Errorf("unknown commit backend %q", cfg.Commit.Backend)
	}
}

// openPool parses and applies pool settings, then verifies the connection.
func openPool(ctx context.Context, db config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(db.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(db.MaxConns)
	poolConfig.MinConns = int32(db.MinConns)
	poolConfig.MaxConnLifetime = db.MaxConnLifetime
	poolConfig.MaxConnIdleTime = db.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(db.URL); err == nil {
		slog.Info("commit backend: postgres", "database", strings.TrimPrefix(u.Path, "/"))
	}
	return pool, nil
}
