package oracle

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/updown-rounds/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Feed is an in-process price oracle. The owner registers assets and a
// single feeder address pushes prices for them.
type Feed struct {
	mu     sync.RWMutex
	owner  common.Address
	feeder common.Address
	prices map[string]*PriceInfo // nil until the first update
	logger *zap.Logger
}

// FeedConfig holds Feed configuration.
type FeedConfig struct {
	Owner  common.Address
	Feeder common.Address
	Logger *zap.Logger
}

// NewFeed creates an empty feed.
func NewFeed(cfg *FeedConfig) (*Feed, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &Feed{
		owner:  cfg.Owner,
		feeder: cfg.Feeder,
		prices: make(map[string]*PriceInfo),
		logger: cfg.Logger,
	}, nil
}

// RegisterAsset starts tracking asset. Only the owner may register.
func (f *Feed) RegisterAsset(sender common.Address, asset types.AssetInfo) error {
	if sender != f.owner {
		return fmt.Errorf("register asset: %w", types.ErrUnauthorized)
	}
	err := asset.Validate()
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := asset.Key()
	if _, ok := f.prices[key]; !ok {
		f.prices[key] = nil
		f.logger.Info("oracle-asset-registered", zap.String("asset", key))
	}
	return nil
}

// SetFeeder replaces the feeder address. Only the owner may change it.
func (f *Feed) SetFeeder(sender, feeder common.Address) error {
	if sender != f.owner {
		return fmt.Errorf("set feeder: %w", types.ErrUnauthorized)
	}

	f.mu.Lock()
	f.feeder = feeder
	f.mu.Unlock()
	return nil
}

// FeedPrice records a price pushed by sender, who must be the feeder.
func (f *Feed) FeedPrice(sender common.Address, assetKey string, price decimal.Decimal, ts uint64) error {
	f.mu.RLock()
	feeder := f.feeder
	f.mu.RUnlock()

	if sender != feeder {
		FeedRejectedTotal.WithLabelValues("unauthorized").Inc()
		return ErrUnauthorizedFeeder
	}
	return f.update(assetKey, price, ts)
}

// update stores a price without the feeder check. Used by trusted in-process
// sources such as the price stream.
func (f *Feed) update(assetKey string, price decimal.Decimal, ts uint64) error {
	if !price.IsPositive() {
		FeedRejectedTotal.WithLabelValues("invalid_price").Inc()
		return fmt.Errorf("%w: %s", ErrInvalidPrice, price.String())
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	current, ok := f.prices[assetKey]
	if !ok {
		FeedRejectedTotal.WithLabelValues("unregistered").Inc()
		return fmt.Errorf("%w: %s", ErrAssetNotRegistered, assetKey)
	}

	// Out-of-order updates never move the price backwards in time.
	if current != nil && ts < current.LastUpdated {
		FeedRejectedTotal.WithLabelValues("stale").Inc()
		return nil
	}

	f.prices[assetKey] = &PriceInfo{Price: price, LastUpdated: ts}
	PriceUpdatesTotal.WithLabelValues(assetKey).Inc()
	LatestPriceGauge.WithLabelValues(assetKey).Set(price.InexactFloat64())

	f.logger.Debug("oracle-price-fed",
		zap.String("asset", assetKey),
		zap.String("price", price.String()),
		zap.Uint64("timestamp", ts))

	return nil
}

// LatestPrice implements PriceReader.
func (f *Feed) LatestPrice(_ context.Context, asset types.AssetInfo) (PriceInfo, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	key := asset.Key()
	info, ok := f.prices[key]
	if !ok {
		return PriceInfo{}, fmt.Errorf("%w: %s", ErrAssetNotRegistered, key)
	}
	if info == nil {
		return PriceInfo{}, fmt.Errorf("%w: %s", ErrNoPrice, key)
	}
	return *info, nil
}

// Assets returns the registered asset keys.
func (f *Feed) Assets() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	keys := make([]string, 0, len(f.prices))
	for k := range f.prices {
		keys = append(keys, k)
	}
	return keys
}
