package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
}

type DB struct {
	Pool   *pgxpool.Pool
	logger *zerolog.Logger
}

func New(ctx context.Context, config Config, logger *zerolog.Logger) (*DB, error) {
	connString := config.ConnectionString()
	pgPool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("Failed to connect to database, Error: %w", err)
	}

	return &DB{
		Pool:   pgPool,
		logger: logger,
	}, nil
}

// NewWithBackoff connects and pings the database, retrying with exponential
// backoff until maxRetries attempts have failed
func NewWithBackoff(ctx context.Context, config Config, maxRetries int, logger *zerolog.Logger) (*DB, error) {
	var lastErr error
	for i := range maxRetries {
		if i > 0 {
			backoff := time.Duration(1<<uint(i)) * time.Second
			logger.Info().Dur("backoff", backoff).Msg("Waiting before database retry")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		db, err := New(ctx, config, logger)
		if err == nil {
			if err = db.Ping(ctx); err == nil {
				logger.Info().Int("attempts_needed", i+1).Msg("Database connected")
				return db, nil
			}
			db.Close()
		}

		lastErr = err
		logger.Warn().Err(err).Int("attempt", i+1).Msg("Database ping failed")
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, lastErr)
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=%s", c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

func (db *DB) Ping(ctx context.Context) error {
	if err := db.Pool.Ping(ctx); err != nil {
		return err
	}

	return nil
}

func (db *DB) Close() {
	db.Pool.Close()
}

// EnsureSchema creates the vector extension and the documents table for
// embeddings of the given dimension
func (db *DB) EnsureSchema(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("invalid embedding dimension: %d", dim)
	}

	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS api_documents (
			id          INTEGER PRIMARY KEY,
			title       TEXT NOT NULL,
			description TEXT NOT NULL,
			endpoints   JSONB NOT NULL,
			raw         JSONB NOT NULL,
			embedding   vector(%d) NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, dim),
	}

	for _, stmt := range statements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	return nil
}
