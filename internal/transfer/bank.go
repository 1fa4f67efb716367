package transfer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/mselser95/updown-rounds/internal/storage"
	"github.com/mselser95/updown-rounds/pkg/types"
	"go.uber.org/zap"
)

// Bank is a balance ledger for local deployments where the market host
// itself custodies funds. With a store every balance change is committed
// before it is applied, so custody survives restarts alongside the rounds
// and bets kept in the same store.
type Bank struct {
	mu       sync.Mutex
	balances map[string]map[common.Address]*uint256.Int
	store    storage.KV
	logger   *zap.Logger
}

// NewBank creates an empty bank held in memory only.
func NewBank(logger *zap.Logger) *Bank {
	return NewPersistentBank(nil, logger)
}

// NewPersistentBank creates a bank that loads and commits balances through
// store. A nil store keeps balances in memory.
func NewPersistentBank(store storage.KV, logger *zap.Logger) *Bank {
	return &Bank{
		balances: make(map[string]map[common.Address]*uint256.Int),
		store:    store,
		logger:   logger,
	}
}

// Mint credits amount to addr out of thin air. Used for faucets and tests.
func (b *Bank) Mint(asset types.AssetInfo, addr common.Address, amount *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ctx := context.Background()
	bal, err := b.balance(ctx, asset, addr)
	if err != nil {
		return err
	}

	next := new(uint256.Int).Add(bal, amount)
	err = b.persist(ctx, asset, posting{addr, next})
	if err != nil {
		return err
	}
	bal.Set(next)

	b.logger.Debug("bank-mint",
		zap.String("asset", asset.Key()),
		zap.String("to", addr.Hex()),
		zap.String("amount", amount.Dec()))

	return nil
}

// Balance returns the balance of addr. A balance that cannot be loaded
// reads as zero.
func (b *Bank) Balance(asset types.AssetInfo, addr common.Address) uint256.Int {
	b.mu.Lock()
	defer b.mu.Unlock()

	bal, err := b.balance(context.Background(), asset, addr)
	if err != nil {
		b.logger.Warn("bank-balance-unavailable",
			zap.String("asset", asset.Key()),
			zap.String("address", addr.Hex()),
			zap.Error(err))
		return uint256.Int{}
	}
	return *bal
}

// Send implements Sender.
func (b *Bank) Send(ctx context.Context, asset types.AssetInfo, amount *uint256.Int, from, to common.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	src, err := b.balance(ctx, asset, from)
	if err != nil {
		return err
	}
	if src.Lt(amount) {
		TransfersTotal.WithLabelValues("bank", "insufficient_funds").Inc()
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, from.Hex(), src.Dec(), amount.Dec())
	}

	if from != to {
		dst, err := b.balance(ctx, asset, to)
		if err != nil {
			return err
		}

		nextSrc := new(uint256.Int).Sub(src, amount)
		nextDst := new(uint256.Int).Add(dst, amount)
		err = b.persist(ctx, asset, posting{from, nextSrc}, posting{to, nextDst})
		if err != nil {
			TransfersTotal.WithLabelValues("bank", "store_failed").Inc()
			return err
		}
		src.Set(nextSrc)
		dst.Set(nextDst)
	}

	TransfersTotal.WithLabelValues("bank", "ok").Inc()
	b.logger.Debug("bank-transfer",
		zap.String("asset", asset.Key()),
		zap.String("from", from.Hex()),
		zap.String("to", to.Hex()),
		zap.String("amount", amount.Dec()))

	return nil
}

// Collect implements Collector. Deposits are plain transfers into the market.
func (b *Bank) Collect(ctx context.Context, asset types.AssetInfo, amount *uint256.Int, from, to common.Address) error {
	return b.Send(ctx, asset, amount, from, to)
}

type posting struct {
	addr    common.Address
	balance *uint256.Int
}

func (b *Bank) persist(ctx context.Context, asset types.AssetInfo, postings ...posting) error {
	if b.store == nil {
		return nil
	}

	writes := make([]storage.Write, 0, len(postings))
	for _, p := range postings {
		writes = append(writes, storage.Write{
			Key:   storage.BalanceKey(asset.Key(), p.addr),
			Value: []byte(p.balance.Dec()),
		})
	}

	err := b.store.Commit(ctx, writes)
	if err != nil {
		return fmt.Errorf("store balances: %w", err)
	}
	return nil
}

// balance returns the cached balance pointer, loading it from the store on
// first use.
func (b *Bank) balance(ctx context.Context, asset types.AssetInfo, addr common.Address) (*uint256.Int, error) {
	accounts, ok := b.balances[asset.Key()]
	if !ok {
		accounts = make(map[common.Address]*uint256.Int)
		b.balances[asset.Key()] = accounts
	}
	if bal, ok := accounts[addr]; ok {
		return bal, nil
	}

	bal := new(uint256.Int)
	if b.store != nil {
		raw, err := b.store.Get(ctx, storage.BalanceKey(asset.Key(), addr))
		switch {
		case errors.Is(err, storage.ErrNotFound):
		case err != nil:
			return nil, fmt.Errorf("load balance of %s: %w", addr.Hex(), err)
		default:
			bal, err = uint256.FromDecimal(string(raw))
			if err != nil {
				return nil, fmt.Errorf("decode balance of %s: %w", addr.Hex(), err)
			}
		}
	}

	accounts[addr] = bal
	return bal, nil
}
