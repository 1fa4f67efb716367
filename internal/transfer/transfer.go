// Package transfer moves the bet asset between accounts.
package transfer

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/mselser95/updown-rounds/pkg/types"
)

var (
	// ErrInsufficientFunds is returned when the source balance is too low.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrWrongSender is returned when a sender cannot sign for from.
	ErrWrongSender = errors.New("sender cannot sign for source account")
)

// Transfer is one asset movement requested by a market operation.
type Transfer struct {
	Asset  types.AssetInfo `json:"asset"`
	Amount uint256.Int     `json:"-"`
	From   common.Address  `json:"from"`
	To     common.Address  `json:"to"`
}

// Sender executes transfers.
type Sender interface {
	Send(ctx context.Context, asset types.AssetInfo, amount *uint256.Int, from, to common.Address) error
}

// Collector is implemented by senders that also take custody of funds a
// caller attaches to an operation.
type Collector interface {
	Collect(ctx context.Context, asset types.AssetInfo, amount *uint256.Int, from, to common.Address) error
}
