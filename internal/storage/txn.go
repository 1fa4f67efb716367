package storage

import (
	"context"
	"fmt"
	"time"
)

// Txn buffers writes over a KV. Reads see the buffered writes first. Nothing
// reaches the KV until Commit.
type Txn struct {
	kv      KV
	pending map[string][]byte
	order   []string
	done    bool
}

// NewTxn opens a write buffer over kv.
func NewTxn(kv KV) *Txn {
	return &Txn{
		kv:      kv,
		pending: make(map[string][]byte),
	}
}

// Get returns the buffered value for key, falling back to the KV.
func (t *Txn) Get(ctx context.Context, key []byte) ([]byte, error) {
	if v, ok := t.pending[string(key)]; ok {
		return v, nil
	}
	return t.kv.Get(ctx, key)
}

// Put buffers a write. Later puts to the same key replace earlier ones.
func (t *Txn) Put(key, value []byte) {
	k := string(key)
	if _, ok := t.pending[k]; !ok {
		t.order = append(t.order, k)
	}
	t.pending[k] = append([]byte(nil), value...)
}

// Len returns the number of distinct buffered keys.
func (t *Txn) Len() int {
	return len(t.order)
}

// Commit flushes the buffered writes in first-write order.
func (t *Txn) Commit(ctx context.Context) error {
	if t.done {
		return fmt.Errorf("commit: transaction already finished")
	}
	t.done = true

	if len(t.order) == 0 {
		return nil
	}

	writes := make([]Write, 0, len(t.order))
	for _, k := range t.order {
		writes = append(writes, Write{Key: []byte(k), Value: t.pending[k]})
	}

	start := time.Now()
	err := t.kv.Commit(ctx, writes)
	CommitDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		CommitsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("commit %d writes: %w", len(writes), err)
	}

	CommitsTotal.WithLabelValues("ok").Inc()
	CommitWrites.Observe(float64(len(writes)))
	return nil
}

// Discard drops the buffered writes.
func (t *Txn) Discard() {
	t.done = true
	t.pending = nil
	t.order = nil
}
