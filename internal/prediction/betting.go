package prediction

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	json "github.com/goccy/go-json"
	"github.com/holiman/uint256"
	"github.com/mselser95/updown-rounds/internal/storage"
	"github.com/mselser95/updown-rounds/internal/transfer"
	"github.com/mselser95/updown-rounds/pkg/types"
	"go.uber.org/zap"
)

// betWithFunds handles a bet paid with native funds attached to the call.
func (e *Engine) betWithFunds(ctx context.Context, l *storage.Ledger, env Env, op OpBet, resp *Response) error {
	cfg, err := l.Config(ctx)
	if err != nil {
		return err
	}
	if !cfg.BetAsset.IsNative() {
		return fmt.Errorf("%w: market takes token %s", types.ErrInvalidAsset, cfg.BetAsset.String())
	}

	amount := attached(env.Funds, cfg.BetAsset.Denom)
	err = e.placeBet(ctx, l, env.Time, env.Sender, op.Position, &amount, resp)
	if err != nil {
		return err
	}

	resp.deposit = &transfer.Transfer{
		Asset:  cfg.BetAsset,
		Amount: amount,
		From:   env.Sender,
		To:     cfg.ContractAddr,
	}
	return nil
}

// receive handles the token contract's transfer hook.
func (e *Engine) receive(ctx context.Context, l *storage.Ledger, env Env, op OpReceive, resp *Response) error {
	cfg, err := l.Config(ctx)
	if err != nil {
		return err
	}
	if cfg.BetAsset.IsNative() || env.Sender != cfg.BetAsset.ContractAddr {
		return fmt.Errorf("%w: unexpected token %s", types.ErrInvalidAsset, env.Sender.Hex())
	}

	if len(op.Msg) == 0 {
		return types.ErrMissingPayload
	}
	var msg ReceiveMsg
	err = json.Unmarshal(op.Msg, &msg)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidPayload, err)
	}
	if msg.Bet == nil {
		return fmt.Errorf("%w: no bet instruction", types.ErrInvalidPayload)
	}

	amount := op.Amount
	return e.placeBet(ctx, l, env.Time, op.From, msg.Bet.Position, &amount, resp)
}

func (e *Engine) placeBet(
	ctx context.Context,
	l *storage.Ledger,
	now uint64,
	user common.Address,
	position types.Position,
	amount *uint256.Int,
	resp *Response,
) error {
	if !position.Valid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidPosition, position)
	}
	if amount.IsZero() {
		return types.ErrZeroAmount
	}

	st, err := l.State(ctx)
	if err != nil {
		return err
	}
	if st.Paused {
		return types.ErrPaused
	}

	round, err := l.Round(ctx, st.Epoch)
	if errors.Is(err, types.ErrRoundNotFound) {
		return types.ErrNotBettable
	}
	if err != nil {
		return err
	}
	if !round.Bettable(now) {
		return types.ErrNotBettable
	}

	_, err = l.Bet(ctx, st.Epoch, user)
	if err == nil {
		return types.ErrAlreadyBet
	}
	if !errors.Is(err, types.ErrBetNotFound) {
		return err
	}

	round.AddBet(position, amount)
	err = l.SaveRound(round)
	if err != nil {
		return err
	}
	err = l.SaveBet(st.Epoch, user, &types.Bet{Amount: *amount, Position: position})
	if err != nil {
		return err
	}

	BetsPlacedTotal.WithLabelValues(string(position)).Inc()
	resp.attr("epoch", st.Epoch)
	resp.attr("amount", amount.Dec())
	resp.attr("position", string(position))

	e.logger.Info("bet-placed",
		zap.Uint64("epoch", st.Epoch),
		zap.String("user", user.Hex()),
		zap.String("position", string(position)),
		zap.String("amount", amount.Dec()))

	return nil
}

// attached sums the coins of denom in funds.
func attached(funds []types.Coin, denom string) uint256.Int {
	var total uint256.Int
	for _, c := range funds {
		if c.Denom == denom {
			total.Add(&total, &c.Amount)
		}
	}
	return total
}
