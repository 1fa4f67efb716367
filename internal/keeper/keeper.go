// Package keeper runs the operator bot that settles rounds on schedule.
package keeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/updown-rounds/internal/prediction"
	"github.com/mselser95/updown-rounds/pkg/types"
	"go.uber.org/zap"
)

// RoundExecutor is the part of the engine the keeper drives.
// prediction.Engine implements it.
type RoundExecutor interface {
	Executable(ctx context.Context, now uint64) (bool, error)
	Execute(ctx context.Context, env prediction.Env, op prediction.Operation) (*prediction.Response, error)
}

// Keeper polls the market and executes the current round as soon as it is
// due. After MaxFailures consecutive failed executions it trips and stays
// idle for Cooldown.
type Keeper struct {
	tripped atomic.Bool

	checkInterval time.Duration
	executor      RoundExecutor
	operator      common.Address
	contract      common.Address
	maxFailures   int
	cooldown      time.Duration
	clock         func() time.Time
	logger        *zap.Logger

	mu          sync.RWMutex
	failures    int
	trippedAt   time.Time
	lastCheck   time.Time
	lastEpoch   string
	executions  int
	height      uint64
	lastFailure error
}

// Config holds keeper configuration.
type Config struct {
	CheckInterval time.Duration
	Executor      RoundExecutor
	Operator      common.Address
	Contract      common.Address
	MaxFailures   int
	Cooldown      time.Duration
	Clock         func() time.Time // defaults to time.Now
	Logger        *zap.Logger
}

// Status is a snapshot for the HTTP status endpoint.
type Status struct {
	Tripped     bool      `json:"tripped"`
	Failures    int       `json:"consecutive_failures"`
	LastCheck   time.Time `json:"last_check"`
	LastEpoch   string    `json:"last_executed_epoch,omitempty"`
	Executions  int       `json:"executions"`
	LastFailure string    `json:"last_failure,omitempty"`
}

// New creates a keeper.
func New(cfg *Config) (*Keeper, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.CheckInterval <= 0 {
		return nil, fmt.Errorf("check interval must be positive")
	}
	if cfg.MaxFailures <= 0 {
		return nil, fmt.Errorf("max failures must be positive")
	}
	if cfg.Cooldown < 0 {
		return nil, fmt.Errorf("cooldown cannot be negative")
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	KeeperTripped.Set(0)

	return &Keeper{
		checkInterval: cfg.CheckInterval,
		executor:      cfg.Executor,
		operator:      cfg.Operator,
		contract:      cfg.Contract,
		maxFailures:   cfg.MaxFailures,
		cooldown:      cfg.Cooldown,
		clock:         clock,
		logger:        cfg.Logger,
	}, nil
}

// Tripped reports whether the keeper stopped executing after repeated
// failures.
func (k *Keeper) Tripped() bool {
	return k.tripped.Load()
}

// Tick runs one check. It returns true when a round was executed.
func (k *Keeper) Tick(ctx context.Context) (bool, error) {
	start := time.Now()
	defer func() {
		KeeperCheckDuration.Observe(time.Since(start).Seconds())
	}()

	now := k.clock()

	if k.tripped.Load() {
		if !k.coolDown(now) {
			return false, nil
		}
	}

	k.mu.Lock()
	k.lastCheck = now
	k.mu.Unlock()

	unix := uint64(now.Unix())
	due, err := k.executor.Executable(ctx, unix)
	if err != nil {
		return false, fmt.Errorf("check executable: %w", err)
	}
	if !due {
		KeeperChecksTotal.WithLabelValues("not_due").Inc()
		return false, nil
	}

	k.mu.Lock()
	k.height++
	height := k.height
	k.mu.Unlock()

	resp, err := k.executor.Execute(ctx, prediction.Env{
		Contract: k.contract,
		Sender:   k.operator,
		Time:     unix,
		Height:   height,
	}, prediction.OpExecuteRound{})
	if err != nil {
		k.recordFailure(now, err)
		return false, fmt.Errorf("execute round: %w", err)
	}

	epoch, _ := resp.Attr("epoch")

	k.mu.Lock()
	k.failures = 0
	k.lastFailure = nil
	k.lastEpoch = epoch
	k.executions++
	k.mu.Unlock()

	KeeperChecksTotal.WithLabelValues("executed").Inc()
	k.logger.Info("keeper-executed-round",
		zap.String("epoch", epoch),
		zap.String("tx-id", resp.TxID))

	return true, nil
}

func (k *Keeper) recordFailure(now time.Time, err error) {
	k.mu.Lock()
	k.failures++
	k.lastFailure = err
	failures := k.failures
	if failures >= k.maxFailures && !k.tripped.Load() {
		k.tripped.Store(true)
		k.trippedAt = now
		KeeperTripped.Set(1)
		KeeperTripsTotal.Inc()
	}
	tripped := k.tripped.Load()
	k.mu.Unlock()

	KeeperChecksTotal.WithLabelValues("failed").Inc()

	switch {
	case errors.Is(err, types.ErrExpired):
		k.logger.Warn("round-expired-needs-restart", zap.Error(err))
	case errors.Is(err, types.ErrStalePrice):
		k.logger.Warn("oracle-price-stale", zap.Error(err), zap.Int("failures", failures))
	default:
		k.logger.Error("keeper-execution-failed", zap.Error(err), zap.Int("failures", failures))
	}

	if tripped && failures == k.maxFailures {
		k.logger.Warn("keeper-tripped",
			zap.Int("failures", failures),
			zap.Duration("cooldown", k.cooldown))
	}
}

// coolDown resets a tripped keeper once the cooldown elapsed.
func (k *Keeper) coolDown(now time.Time) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	if now.Sub(k.trippedAt) < k.cooldown {
		KeeperChecksTotal.WithLabelValues("tripped").Inc()
		return false
	}

	k.tripped.Store(false)
	k.failures = 0
	KeeperTripped.Set(0)
	k.logger.Info("keeper-reset", zap.Duration("cooldown", k.cooldown))
	return true
}

// Start runs a first check and then checks every CheckInterval until ctx is
// cancelled.
func (k *Keeper) Start(ctx context.Context) {
	k.logger.Info("keeper-started",
		zap.Duration("check-interval", k.checkInterval),
		zap.String("operator", k.operator.Hex()),
		zap.Int("max-failures", k.maxFailures))

	if _, err := k.Tick(ctx); err != nil {
		k.logger.Debug("initial-keeper-check-failed", zap.Error(err))
	}

	go k.loop(ctx)
}

func (k *Keeper) loop(ctx context.Context) {
	ticker := time.NewTicker(k.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			k.logger.Info("keeper-stopped")
			return
		case <-ticker.C:
			if _, err := k.Tick(ctx); err != nil {
				k.logger.Debug("keeper-check-error", zap.Error(err))
			}
		}
	}
}

// Status returns the current keeper status.
func (k *Keeper) Status() Status {
	k.mu.RLock()
	defer k.mu.RUnlock()

	status := Status{
		Tripped:    k.tripped.Load(),
		Failures:   k.failures,
		LastCheck:  k.lastCheck,
		LastEpoch:  k.lastEpoch,
		Executions: k.executions,
	}
	if k.lastFailure != nil {
		status.LastFailure = k.lastFailure.Error()
	}
	return status
}
