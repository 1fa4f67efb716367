package storage

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

// ConsoleKV wraps another KV and pretty-prints every committed write.
type ConsoleKV struct {
	KV
	out    io.Writer
	logger *zap.Logger
}

// NewConsoleKV wraps kv. Writes are printed to stdout.
func NewConsoleKV(kv KV, logger *zap.Logger) *ConsoleKV {
	logger.Info("console-storage-initialized")
	return &ConsoleKV{KV: kv, out: os.Stdout, logger: logger}
}

// Commit forwards to the wrapped KV and prints the writes once they land.
func (c *ConsoleKV) Commit(ctx context.Context, writes []Write) error {
	err := c.KV.Commit(ctx, writes)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Fprintf(c.out, "COMMIT (%d writes)\n", len(writes))
	for _, w := range writes {
		fmt.Fprintf(c.out, "  %-40s %s\n", DescribeKey(w.Key), w.Value)
	}
	return nil
}

// Ping forwards to the wrapped KV when it supports it.
func (c *ConsoleKV) Ping(ctx context.Context) error {
	if p, ok := c.KV.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close closes the wrapped KV.
func (c *ConsoleKV) Close() error {
	c.logger.Info("closing-console-storage")
	return c.KV.Close()
}
