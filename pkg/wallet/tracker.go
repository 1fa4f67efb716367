package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/updown-rounds/pkg/types"
	"go.uber.org/zap"
)

// BalanceReader is the part of Client the tracker needs.
type BalanceReader interface {
	Balance(ctx context.Context, asset types.AssetInfo, address common.Address) (*big.Int, error)
}

// Tracker periodically reads the market wallet's balance of the bet asset
// and exports it as a metric.
type Tracker struct {
	client       BalanceReader
	address      common.Address
	asset        types.AssetInfo
	decimals     int32
	pollInterval time.Duration
	logger       *zap.Logger
}

// Config holds tracker configuration.
type Config struct {
	RPCEndpoint  string
	Address      common.Address
	Asset        types.AssetInfo
	Decimals     int32
	PollInterval time.Duration
	Logger       *zap.Logger
}

// New creates a new wallet tracker.
func New(cfg *Config) (*Tracker, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.RPCEndpoint == "" {
		return nil, errors.New("RPC endpoint cannot be empty")
	}

	if cfg.PollInterval <= 0 {
		return nil, errors.New("poll interval must be positive")
	}

	client, err := NewClient(cfg.RPCEndpoint, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	return &Tracker{
		client:       client,
		address:      cfg.Address,
		asset:        cfg.Asset,
		decimals:     cfg.Decimals,
		pollInterval: cfg.PollInterval,
		logger:       cfg.Logger,
	}, nil
}

// Run starts the tracker polling loop (blocking).
func (t *Tracker) Run(ctx context.Context) error {
	t.logger.Info("wallet-tracker-starting",
		zap.Duration("poll-interval", t.pollInterval),
		zap.String("address", t.address.Hex()),
		zap.String("asset", t.asset.String()))

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	err := t.poll(ctx)
	if err != nil {
		t.logger.Error("initial-poll-failed", zap.Error(err))
		UpdateErrorsTotal.Inc()
	}

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("wallet-tracker-stopping")
			return ctx.Err()
		case <-ticker.C:
			err = t.poll(ctx)
			if err != nil {
				t.logger.Error("poll-failed", zap.Error(err))
				UpdateErrorsTotal.Inc()
			}
		}
	}
}

func (t *Tracker) poll(ctx context.Context) error {
	start := time.Now()
	defer func() {
		UpdateDuration.Observe(time.Since(start).Seconds())
	}()

	balCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	balance, err := t.client.Balance(balCtx, t.asset, t.address)
	if err != nil {
		return fmt.Errorf("get balance: %w", err)
	}

	MarketBalance.WithLabelValues(t.asset.String()).Set(scaleDown(balance, t.decimals))
	LastUpdateTimestamp.Set(float64(time.Now().Unix()))

	t.logger.Debug("poll-complete",
		zap.String("balance", balance.String()),
		zap.Duration("duration", time.Since(start)))

	return nil
}

// scaleDown converts a raw integer amount to whole units.
func scaleDown(amount *big.Int, decimals int32) float64 {
	f := new(big.Float).SetInt(amount)
	if decimals > 0 {
		f.Quo(f, new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)))
	}
	v, _ := f.Float64()
	return v
}
