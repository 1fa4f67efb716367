package prediction

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/updown-rounds/internal/oracle"
	"github.com/mselser95/updown-rounds/internal/permit"
	"github.com/mselser95/updown-rounds/internal/storage"
	"github.com/mselser95/updown-rounds/pkg/types"
	"github.com/shopspring/decimal"
)

// settledRoundTTL bounds how long a settled round stays in the read cache.
const settledRoundTTL = time.Hour

// ConfigView is the public part of the config. The seed is never exposed.
type ConfigView struct {
	ContractAddr   common.Address  `json:"contract_addr"`
	OwnerAddr      common.Address  `json:"owner_addr"`
	OperatorAddr   common.Address  `json:"operator_addr"`
	TreasuryAddr   common.Address  `json:"treasury_addr"`
	BetAsset       types.AssetInfo `json:"bet_asset"`
	OracleAddr     common.Address  `json:"oracle_addr"`
	OracleCodeHash string          `json:"oracle_code_hash"`
	FeeRate        decimal.Decimal `json:"fee_rate"`
	Interval       uint64          `json:"interval"`
	GraceInterval  uint64          `json:"grace_interval"`
}

// RoundView is a round with its phase derived at query time.
type RoundView struct {
	Round *types.Round `json:"round"`
	Phase types.Phase  `json:"phase"`
}

// QueryConfig returns the market config.
func (e *Engine) QueryConfig(ctx context.Context) (*ConfigView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, err := e.ledger().Config(ctx)
	if err != nil {
		return nil, err
	}

	return &ConfigView{
		ContractAddr:   cfg.ContractAddr,
		OwnerAddr:      cfg.OwnerAddr,
		OperatorAddr:   cfg.OperatorAddr,
		TreasuryAddr:   cfg.TreasuryAddr,
		BetAsset:       cfg.BetAsset,
		OracleAddr:     cfg.OracleAddr,
		OracleCodeHash: cfg.OracleCodeHash,
		FeeRate:        cfg.FeeRate,
		Interval:       cfg.Interval,
		GraceInterval:  cfg.GraceInterval,
	}, nil
}

// QueryState returns the market state.
func (e *Engine) QueryState(ctx context.Context) (*types.State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.ledger().State(ctx)
}

// QueryRound returns round epoch and its phase at now.
func (e *Engine) QueryRound(ctx context.Context, epoch, now uint64) (*RoundView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	l := e.ledger()
	cfg, err := l.Config(ctx)
	if err != nil {
		return nil, err
	}

	round, err := e.loadRound(ctx, l, epoch)
	if err != nil {
		return nil, err
	}

	return &RoundView{Round: round, Phase: round.Phase(now, cfg.GraceInterval)}, nil
}

// QueryCurrentRound returns the round that is open for bets at the current
// epoch.
func (e *Engine) QueryCurrentRound(ctx context.Context, now uint64) (*RoundView, error) {
	st, err := e.QueryState(ctx)
	if err != nil {
		return nil, err
	}
	if st.Epoch == 0 {
		return nil, fmt.Errorf("%w: no round started", types.ErrRoundNotFound)
	}
	return e.QueryRound(ctx, st.Epoch, now)
}

// QueryBet returns user's bet on epoch after checking the viewing key.
func (e *Engine) QueryBet(ctx context.Context, epoch uint64, user common.Address, key string) (*types.Bet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	l := e.ledger()
	err := checkViewingKey(ctx, l, user, key)
	if err != nil {
		return nil, err
	}

	return l.Bet(ctx, epoch, user)
}

// QueryBetWithPermit returns the permit signer's bet on epoch.
func (e *Engine) QueryBetWithPermit(ctx context.Context, p permit.Permit, epoch uint64) (*types.Bet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	l := e.ledger()
	cfg, err := l.Config(ctx)
	if err != nil {
		return nil, err
	}

	account, err := e.checkPermit(ctx, l, cfg.ContractAddr, p)
	if err != nil {
		return nil, err
	}

	return l.Bet(ctx, epoch, account)
}

// QueryPrice returns the oracle's latest price for the bet asset.
func (e *Engine) QueryPrice(ctx context.Context) (oracle.PriceInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, err := e.ledger().Config(ctx)
	if err != nil {
		return oracle.PriceInfo{}, err
	}

	return e.oracle.LatestPrice(ctx, cfg.BetAsset)
}

// Executable reports whether OpExecuteRound would pass its time checks at now.
func (e *Engine) Executable(ctx context.Context, now uint64) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	l := e.ledger()
	st, err := l.State(ctx)
	if err != nil {
		return false, err
	}
	if st.Epoch < 2 {
		return false, nil
	}

	finishing, err := l.Round(ctx, st.Epoch-1)
	if errors.Is(err, types.ErrRoundNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	locking, err := l.Round(ctx, st.Epoch)
	if err != nil {
		return false, err
	}

	return finishing.Executable(now) && now >= locking.LockTime, nil
}

// ledger opens a read-only view of the store.
func (e *Engine) ledger() *storage.Ledger {
	return storage.NewLedger(storage.NewTxn(e.store))
}

// loadRound reads a round, serving settled rounds from the cache when one is
// configured. Settled rounds never change.
func (e *Engine) loadRound(ctx context.Context, l *storage.Ledger, epoch uint64) (*types.Round, error) {
	key := "round:" + strconv.FormatUint(epoch, 10)

	if e.rounds != nil {
		if v, ok := e.rounds.Get(key); ok {
			if r, ok := v.(types.Round); ok {
				return &r, nil
			}
		}
	}

	round, err := l.Round(ctx, epoch)
	if err != nil {
		return nil, err
	}

	if e.rounds != nil && round.ClosePrice != nil {
		e.rounds.Set(key, *round, settledRoundTTL)
	}
	return round, nil
}
