// Package prediction is the settlement core of the up/down market: the round
// state machine, the betting ledger and the payout engine.
package prediction

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/mselser95/updown-rounds/internal/oracle"
	"github.com/mselser95/updown-rounds/internal/permit"
	"github.com/mselser95/updown-rounds/internal/storage"
	"github.com/mselser95/updown-rounds/internal/transfer"
	"github.com/mselser95/updown-rounds/pkg/cache"
	"github.com/mselser95/updown-rounds/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Env is the per-operation execution context supplied by the host.
type Env struct {
	Contract common.Address
	Sender   common.Address
	Time     uint64
	Height   uint64
	Funds    []types.Coin
}

// Attribute is one key/value event attribute.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Response is the result of a successful operation.
type Response struct {
	TxID       string              `json:"tx_id"`
	Action     string              `json:"action"`
	Attributes []Attribute         `json:"attributes"`
	ViewingKey string              `json:"viewing_key,omitempty"`
	Transfers  []transfer.Transfer `json:"-"`

	deposit *transfer.Transfer
}

func (r *Response) attr(key string, value any) {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: fmt.Sprint(value)})
}

// Attr returns the value of the first attribute named key.
func (r *Response) Attr(key string) (string, bool) {
	for _, a := range r.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// Config holds engine dependencies.
type Config struct {
	Store   storage.KV
	Oracle  oracle.PriceReader
	Sender  transfer.Sender
	Permits permit.Verifier
	Rounds  cache.Cache // optional, caches settled rounds for queries
	Logger  *zap.Logger
}

// Engine executes market operations one at a time against the store.
type Engine struct {
	mu      sync.Mutex
	store   storage.KV
	oracle  oracle.PriceReader
	sender  transfer.Sender
	permits permit.Verifier
	rounds  cache.Cache
	logger  *zap.Logger
}

// New creates an engine.
func New(cfg *Config) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if cfg.Oracle == nil {
		return nil, fmt.Errorf("oracle cannot be nil")
	}
	if cfg.Sender == nil {
		return nil, fmt.Errorf("sender cannot be nil")
	}
	if cfg.Permits == nil {
		return nil, fmt.Errorf("permit verifier cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &Engine{
		store:   cfg.Store,
		oracle:  cfg.Oracle,
		sender:  cfg.Sender,
		permits: cfg.Permits,
		rounds:  cfg.Rounds,
		logger:  cfg.Logger,
	}, nil
}

// InitMsg configures a new market. The caller becomes the owner.
type InitMsg struct {
	OperatorAddr   common.Address
	TreasuryAddr   common.Address
	BetAsset       types.AssetInfo
	OracleAddr     common.Address
	OracleCodeHash string
	FeeRate        decimal.Decimal
	Interval       uint64
	GraceInterval  uint64
	PRNGSeed       []byte
}

// Initialize writes the config and a paused state at epoch 0.
func (e *Engine) Initialize(ctx context.Context, env Env, msg InitMsg) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	txn := storage.NewTxn(e.store)
	ledger := storage.NewLedger(txn)

	exists, err := ledger.HasConfig(ctx)
	if err != nil {
		return err
	}
	if exists {
		return types.ErrAlreadyInitialized
	}

	seed := sha256.Sum256(msg.PRNGSeed)
	cfg := &types.Config{
		ContractAddr:   env.Contract,
		OwnerAddr:      env.Sender,
		OperatorAddr:   msg.OperatorAddr,
		TreasuryAddr:   msg.TreasuryAddr,
		BetAsset:       msg.BetAsset,
		OracleAddr:     msg.OracleAddr,
		OracleCodeHash: msg.OracleCodeHash,
		FeeRate:        msg.FeeRate,
		Interval:       msg.Interval,
		GraceInterval:  msg.GraceInterval,
		PRNGSeed:       seed[:],
	}

	err = cfg.Validate()
	if err != nil {
		return err
	}

	err = ledger.SaveConfig(cfg)
	if err != nil {
		return err
	}
	err = ledger.SaveState(&types.State{Paused: true})
	if err != nil {
		return err
	}

	err = txn.Commit(ctx)
	if err != nil {
		return fmt.Errorf("commit init: %w", err)
	}

	e.logger.Info("market-initialized",
		zap.String("owner", cfg.OwnerAddr.Hex()),
		zap.String("operator", cfg.OperatorAddr.Hex()),
		zap.String("bet-asset", cfg.BetAsset.String()),
		zap.String("fee-rate", cfg.FeeRate.String()),
		zap.Uint64("interval", cfg.Interval),
		zap.Uint64("grace-interval", cfg.GraceInterval))

	return nil
}

// Execute runs op atomically. Either all of its writes and transfers happen
// or none do; the one exception is a claim that finds nothing to pay, which
// still records the bet as claimed.
func (e *Engine) Execute(ctx context.Context, env Env, op Operation) (*Response, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	action := op.action()
	defer func() {
		OperationDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())
	}()

	txn := storage.NewTxn(e.store)
	resp := &Response{TxID: uuid.NewString(), Action: action}
	resp.attr("action", action)

	err := e.dispatch(ctx, storage.NewLedger(txn), env, op, resp)
	if err != nil {
		if errors.Is(err, types.ErrNothingToClaim) {
			commitErr := txn.Commit(ctx)
			if commitErr != nil {
				return nil, fmt.Errorf("commit consumed claim: %w", commitErr)
			}
		} else {
			txn.Discard()
		}

		OperationsTotal.WithLabelValues(action, types.Kind(err).String()).Inc()
		e.logger.Debug("operation-rejected",
			zap.String("action", action),
			zap.String("sender", env.Sender.Hex()),
			zap.Error(err))
		return nil, err
	}

	giveBack := func() {}
	if resp.deposit != nil {
		d := resp.deposit
		giveBack, err = e.collect(ctx, d.Asset, &d.Amount, d.From, d.To)
		if err != nil {
			txn.Discard()
			OperationsTotal.WithLabelValues(action, "collect_failed").Inc()
			return nil, err
		}
	}

	for _, t := range resp.Transfers {
		amount := t.Amount
		err = e.sender.Send(ctx, t.Asset, &amount, t.From, t.To)
		if err != nil {
			txn.Discard()
			giveBack()
			OperationsTotal.WithLabelValues(action, "transfer_failed").Inc()
			return nil, fmt.Errorf("transfer %s to %s: %w", amount.Dec(), t.To.Hex(), err)
		}
	}

	err = txn.Commit(ctx)
	if err != nil {
		giveBack()
		if len(resp.Transfers) > 0 {
			e.logger.Error("commit-failed-after-transfer",
				zap.String("tx-id", resp.TxID),
				zap.String("action", action),
				zap.String("sender", env.Sender.Hex()),
				zap.Int("transfers", len(resp.Transfers)),
				zap.Error(err))
			OperationsTotal.WithLabelValues(action, "commit_failed_after_transfer").Inc()
			return nil, fmt.Errorf("commit %s (tx %s): %w: %w", action, resp.TxID, types.ErrUncommittedTransfer, err)
		}
		OperationsTotal.WithLabelValues(action, "commit_failed").Inc()
		return nil, fmt.Errorf("commit %s: %w", action, err)
	}

	OperationsTotal.WithLabelValues(action, "ok").Inc()
	e.logger.Info("operation-executed",
		zap.String("tx-id", resp.TxID),
		zap.String("action", action),
		zap.String("sender", env.Sender.Hex()),
		zap.Int("transfers", len(resp.Transfers)))

	return resp, nil
}

func (e *Engine) dispatch(ctx context.Context, l *storage.Ledger, env Env, op Operation, resp *Response) error {
	switch op := op.(type) {
	case OpUpdateConfig:
		return e.updateConfig(ctx, l, env, op, resp)
	case OpStartGenesisRound:
		return e.startGenesisRound(ctx, l, env, resp)
	case OpBet:
		return e.betWithFunds(ctx, l, env, op, resp)
	case OpReceive:
		return e.receive(ctx, l, env, op, resp)
	case OpExecuteRound:
		return e.executeRound(ctx, l, env, resp)
	case OpClaim:
		return e.claim(ctx, l, env, op, resp)
	case OpWithdraw:
		return e.withdraw(ctx, l, env, resp)
	case OpPause:
		return e.pause(ctx, l, env, resp)
	case OpUnpause:
		return e.unpause(ctx, l, env, resp)
	case OpCreateViewingKey:
		return e.createViewingKey(ctx, l, env, op, resp)
	case OpSetViewingKey:
		return e.setViewingKey(l, env, op, resp)
	case OpRevokePermit:
		return e.revokePermit(l, env, op, resp)
	default:
		return fmt.Errorf("%w: %T", types.ErrUnknownOperation, op)
	}
}

// collect pulls attached funds into the market account when the transfer
// backend takes custody, and returns a function that gives them back.
func (e *Engine) collect(ctx context.Context, asset types.AssetInfo, amount *uint256.Int, from, to common.Address) (func(), error) {
	c, ok := e.sender.(transfer.Collector)
	if !ok || amount.IsZero() {
		return func() {}, nil
	}

	err := c.Collect(ctx, asset, amount, from, to)
	if err != nil {
		return nil, fmt.Errorf("collect funds: %w", err)
	}

	return func() {
		refundErr := e.sender.Send(ctx, asset, amount, to, from)
		if refundErr != nil {
			e.logger.Error("deposit-return-failed",
				zap.String("to", from.Hex()),
				zap.String("amount", amount.Dec()),
				zap.Error(refundErr))
		}
	}, nil
}
