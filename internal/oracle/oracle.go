// Package oracle provides the price sources rounds are settled against.
package oracle

import (
	"context"
	"errors"

	"github.com/mselser95/updown-rounds/pkg/types"
	"github.com/shopspring/decimal"
)

var (
	// ErrAssetNotRegistered is returned for assets the feed does not track.
	ErrAssetNotRegistered = errors.New("asset not registered")

	// ErrNoPrice is returned when a registered asset has not been fed yet.
	ErrNoPrice = errors.New("no price available")

	// ErrUnauthorizedFeeder is returned when someone other than the feeder pushes a price.
	ErrUnauthorizedFeeder = errors.New("unauthorized feeder")

	// ErrInvalidPrice is returned for non-positive prices.
	ErrInvalidPrice = errors.New("price must be positive")
)

// PriceInfo is the latest observation for an asset.
type PriceInfo struct {
	Price       decimal.Decimal `json:"price"`
	LastUpdated uint64          `json:"last_updated_time"`
}

// PriceReader returns the latest price of an asset.
type PriceReader interface {
	LatestPrice(ctx context.Context, asset types.AssetInfo) (PriceInfo, error)
}
