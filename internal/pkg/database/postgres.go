package database

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/Pesokrava/game_catalog/internal/config"
)

const pingTimeout = 5 * time.Second

// NewPostgresDB opens a pooled PostgreSQL connection and verifies it
func NewPostgresDB(cfg *config.Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

// WaitForDB retries NewPostgresDB up to maxRetries times, starting at
// retryDelay and backing off exponentially
func WaitForDB(cfg *config.Config, maxRetries int, retryDelay time.Duration) (*sqlx.DB, error) {
	var db *sqlx.DB
	connect := func() error {
		var err error
		db, err = NewPostgresDB(cfg)
		return err
	}

	if err := backoff.Retry(connect, retryPolicy(maxRetries, retryDelay)); err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d retries: %w", maxRetries, err)
	}
	return db, nil
}

func retryPolicy(maxRetries int, retryDelay time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryDelay
	b.MaxInterval = 4 * retryDelay
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, uint64(max(maxRetries-1, 0)))
}
