package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"go.uber.org/zap"
)

// LevelDBConfig holds LevelDB configuration.
type LevelDBConfig struct {
	Path   string
	Sync   bool
	Logger *zap.Logger
}

// LevelDBKV persists into a LevelDB directory. Commits are a single batch.
type LevelDBKV struct {
	db     *leveldb.DB
	sync   bool
	logger *zap.Logger
}

// NewLevelDBKV opens (or creates) the database at cfg.Path.
func NewLevelDBKV(cfg *LevelDBConfig) (*LevelDBKV, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("leveldb path cannot be empty")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	db, err := leveldb.OpenFile(cfg.Path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb: %w", err)
	}

	cfg.Logger.Info("leveldb-storage-opened", zap.String("path", cfg.Path))

	return &LevelDBKV{db: db, sync: cfg.Sync, logger: cfg.Logger}, nil
}

// Get returns the value stored under key.
func (l *LevelDBKV) Get(_ context.Context, key []byte) ([]byte, error) {
	v, err := l.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("leveldb get: %w", err)
	}
	return v, nil
}

// Commit writes all entries in one leveldb.Batch.
func (l *LevelDBKV) Commit(_ context.Context, writes []Write) error {
	batch := new(leveldb.Batch)
	for _, w := range writes {
		batch.Put(w.Key, w.Value)
	}

	err := l.db.Write(batch, &opt.WriteOptions{Sync: l.sync})
	if err != nil {
		return fmt.Errorf("leveldb write batch: %w", err)
	}
	return nil
}

// Ping checks that the database is still open.
func (l *LevelDBKV) Ping(context.Context) error {
	_, err := l.db.GetProperty("leveldb.num-files-at-level0")
	if err != nil {
		return fmt.Errorf("leveldb ping: %w", err)
	}
	return nil
}

// Close closes the database.
func (l *LevelDBKV) Close() error {
	l.logger.Info("closing-leveldb-storage")
	return l.db.Close()
}
