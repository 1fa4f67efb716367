package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by KV.Get when the key has no value.
var ErrNotFound = errors.New("storage: key not found")

// KV is the byte-addressed store the market persists into.
type KV interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Commit applies all writes atomically.
	Commit(ctx context.Context, writes []Write) error

	// Close releases the underlying resources.
	Close() error
}

// Pinger is implemented by backends that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Write is a single key/value put inside a commit.
type Write struct {
	Key   []byte
	Value []byte
}
