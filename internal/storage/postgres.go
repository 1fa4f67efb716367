package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const createKVTable = `
	CREATE TABLE IF NOT EXISTS updown_kv (
		key   BYTEA PRIMARY KEY,
		value BYTEA NOT NULL
	)
`

// PostgresKV implements KV on a single PostgreSQL table.
type PostgresKV struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresKV connects and makes sure the table exists.
func NewPostgresKV(ctx context.Context, cfg *PostgresConfig) (*PostgresKV, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Test connection
	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := &PostgresKV{db: db, logger: cfg.Logger}

	err = p.EnsureSchema(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return p, nil
}

// EnsureSchema creates the key/value table if it is missing.
func (p *PostgresKV) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, createKVTable)
	if err != nil {
		return fmt.Errorf("create kv table: %w", err)
	}
	return nil
}

// Get returns the value stored under key.
func (p *PostgresKV) Get(ctx context.Context, key []byte) ([]byte, error) {
	var value []byte
	err := p.db.QueryRowContext(ctx, `SELECT value FROM updown_kv WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select key: %w", err)
	}
	return value, nil
}

// Commit upserts every write inside one SQL transaction.
func (p *PostgresKV) Commit(ctx context.Context, writes []Write) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	query := `
		INSERT INTO updown_kv (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`

	for _, w := range writes {
		_, err = tx.ExecContext(ctx, query, w.Key, w.Value)
		if err != nil {
			rbErr := tx.Rollback()
			if rbErr != nil {
				p.logger.Error("postgres-rollback-failed", zap.Error(rbErr))
			}
			return fmt.Errorf("upsert key: %w", err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	p.logger.Debug("postgres-commit", zap.Int("writes", len(writes)))
	return nil
}

// Ping checks the connection.
func (p *PostgresKV) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database connection.
func (p *PostgresKV) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
