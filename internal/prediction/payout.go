package prediction

import (
	"context"

	"github.com/holiman/uint256"
	"github.com/mselser95/updown-rounds/internal/storage"
	"github.com/mselser95/updown-rounds/internal/transfer"
	"github.com/mselser95/updown-rounds/pkg/types"
	"go.uber.org/zap"
)

func (e *Engine) claim(ctx context.Context, l *storage.Ledger, env Env, op OpClaim, resp *Response) error {
	cfg, err := l.Config(ctx)
	if err != nil {
		return err
	}

	round, err := l.Round(ctx, op.Epoch)
	if err != nil {
		return err
	}

	now := env.Time
	if !round.Claimable(now) && !round.Refundable(now, cfg.GraceInterval) {
		return types.ErrNotClaimable
	}

	bet, err := l.Bet(ctx, op.Epoch, env.Sender)
	if err != nil {
		return err
	}
	if bet.Claimed {
		return types.ErrAlreadyClaimed
	}

	// The flag is stored before the amount is known so a losing claim
	// still consumes the bet.
	bet.Claimed = true
	err = l.SaveBet(op.Epoch, env.Sender, bet)
	if err != nil {
		return err
	}

	amount, refund := ClaimAmount(round, bet, now, cfg.GraceInterval)
	resp.attr("epoch", op.Epoch)
	resp.attr("amount", bet.Amount.Dec())
	resp.attr("claim_amount", amount.Dec())

	if amount.IsZero() {
		ClaimsTotal.WithLabelValues("nothing").Inc()
		return types.ErrNothingToClaim
	}

	resp.Transfers = append(resp.Transfers, transfer.Transfer{
		Asset:  cfg.BetAsset,
		Amount: amount,
		From:   cfg.ContractAddr,
		To:     env.Sender,
	})

	kind := "payout"
	if refund {
		kind = "refund"
	}
	ClaimsTotal.WithLabelValues(kind).Inc()

	e.logger.Info("bet-claimed",
		zap.Uint64("epoch", op.Epoch),
		zap.String("user", env.Sender.Hex()),
		zap.String("kind", kind),
		zap.String("amount", amount.Dec()))

	return nil
}

// ClaimAmount returns what bet is owed from round at now, and whether the
// amount is a refund of the stake. Winners get reward * stake / winning side
// rounded down; losers get nothing.
func ClaimAmount(round *types.Round, bet *types.Bet, now, grace uint64) (uint256.Int, bool) {
	var amount uint256.Int

	if round.Claimable(now) {
		winner, ok := round.Winner()
		if !ok || bet.Position != winner {
			return amount, false
		}
		side := round.SideAmount(winner)
		_, overflow := amount.MulDivOverflow(&round.RewardAmount, &bet.Amount, side)
		if overflow {
			amount.Clear()
		}
		return amount, false
	}

	if round.Refundable(now, grace) {
		amount.Set(&bet.Amount)
		return amount, true
	}

	return amount, false
}

func (e *Engine) withdraw(ctx context.Context, l *storage.Ledger, env Env, resp *Response) error {
	cfg, err := l.Config(ctx)
	if err != nil {
		return err
	}
	if !cfg.CanWithdraw(env.Sender) {
		return types.ErrUnauthorized
	}

	st, err := l.State(ctx)
	if err != nil {
		return err
	}
	if st.TotalFee.IsZero() {
		return types.ErrNoFee
	}

	fee := st.TotalFee
	st.TotalFee.Clear()
	err = l.SaveState(st)
	if err != nil {
		return err
	}

	resp.Transfers = append(resp.Transfers, transfer.Transfer{
		Asset:  cfg.BetAsset,
		Amount: fee,
		From:   cfg.ContractAddr,
		To:     cfg.TreasuryAddr,
	})
	resp.attr("amount", fee.Dec())

	e.logger.Info("fees-withdrawn",
		zap.String("treasury", cfg.TreasuryAddr.Hex()),
		zap.String("amount", fee.Dec()))

	return nil
}
