package prediction

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/mselser95/updown-rounds/internal/storage"
	"github.com/mselser95/updown-rounds/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (e *Engine) startGenesisRound(ctx context.Context, l *storage.Ledger, env Env, resp *Response) error {
	cfg, err := l.Config(ctx)
	if err != nil {
		return err
	}
	if env.Sender != cfg.OwnerAddr {
		return types.ErrUnauthorized
	}

	st, err := l.State(ctx)
	if err != nil {
		return err
	}
	if !st.Paused {
		return types.ErrAlreadyRunning
	}

	now := env.Time
	if now < cfg.Interval {
		return fmt.Errorf("%w: %d < %d", types.ErrInvalidBlockTime, now, cfg.Interval)
	}
	genesis := &types.Round{
		Epoch:     st.Epoch + 1,
		StartTime: now - cfg.Interval,
		LockTime:  now,
		EndTime:   now + cfg.Interval,
		IsGenesis: true,
	}
	first := newRound(st.Epoch+2, now, cfg.Interval)

	err = l.SaveRound(genesis)
	if err != nil {
		return err
	}
	err = l.SaveRound(first)
	if err != nil {
		return err
	}

	st.Epoch += 2
	st.Paused = false
	err = l.SaveState(st)
	if err != nil {
		return err
	}

	resp.attr("genesis_epoch", genesis.Epoch)
	resp.attr("epoch", first.Epoch)

	e.logger.Info("genesis-round-started",
		zap.Uint64("genesis-epoch", genesis.Epoch),
		zap.Uint64("epoch", first.Epoch),
		zap.Uint64("lock-time", first.LockTime))

	return nil
}

// newRound opens a regular round that starts at now.
func newRound(epoch, now, interval uint64) *types.Round {
	return &types.Round{
		Epoch:     epoch,
		StartTime: now,
		LockTime:  now + interval,
		EndTime:   now + 2*interval,
	}
}

func (e *Engine) executeRound(ctx context.Context, l *storage.Ledger, env Env, resp *Response) error {
	cfg, err := l.Config(ctx)
	if err != nil {
		return err
	}
	st, err := l.State(ctx)
	if err != nil {
		return err
	}
	if st.Epoch < 2 {
		return types.ErrNotExecutable
	}

	now := env.Time
	finishing, err := l.Round(ctx, st.Epoch-1)
	if err != nil {
		return err
	}
	locking, err := l.Round(ctx, st.Epoch)
	if err != nil {
		return err
	}

	if finishing.ClosePrice == nil && finishing.Expired(now, cfg.GraceInterval) {
		return fmt.Errorf("%w: round %d ended at %d", types.ErrExpired, finishing.Epoch, finishing.EndTime)
	}
	if !finishing.Executable(now) || now < locking.LockTime {
		return types.ErrNotExecutable
	}

	info, err := e.oracle.LatestPrice(ctx, cfg.BetAsset)
	if err != nil {
		return fmt.Errorf("read oracle price: %w", err)
	}
	if info.LastUpdated < finishing.StartTime {
		return fmt.Errorf("%w: updated at %d, round started at %d",
			types.ErrStalePrice, info.LastUpdated, finishing.StartTime)
	}
	price := info.Price

	fee := settle(finishing, price, cfg.FeeRate)
	st.TotalFee.Add(&st.TotalFee, &fee)

	locking.OpenPrice = &price
	next := newRound(st.Epoch+1, now, cfg.Interval)

	for _, r := range []*types.Round{finishing, locking, next} {
		err = l.SaveRound(r)
		if err != nil {
			return err
		}
	}

	st.Epoch++
	err = l.SaveState(st)
	if err != nil {
		return err
	}

	RoundsExecutedTotal.Inc()
	CurrentEpoch.Set(float64(st.Epoch))
	if !fee.IsZero() {
		FeesCollectedTotal.Add(fee.Float64())
	}

	resp.attr("epoch", finishing.Epoch)
	resp.attr("close_price", price.String())
	resp.attr("reward_amount", finishing.RewardAmount.Dec())
	resp.attr("fee", fee.Dec())

	e.logger.Info("round-executed",
		zap.Uint64("epoch", finishing.Epoch),
		zap.Bool("genesis", finishing.IsGenesis),
		zap.String("price", price.String()),
		zap.String("reward", finishing.RewardAmount.Dec()),
		zap.String("fee", fee.Dec()),
		zap.Uint64("next-epoch", next.Epoch))

	return nil
}

// settle records the close price and computes the reward pool. It returns the
// fee taken from the round.
func settle(r *types.Round, price decimal.Decimal, rate decimal.Decimal) uint256.Int {
	r.ClosePrice = &price

	var fee uint256.Int
	if r.IsGenesis || r.Push() || r.OneSided() {
		r.RewardAmount.Clear()
		return fee
	}

	fee = feeOf(&r.TotalAmount, rate)

	winner, _ := r.Winner()
	losing := r.SideAmount(opposite(winner))
	if fee.Gt(losing) {
		fee.Set(losing)
	}

	r.RewardAmount.Sub(&r.TotalAmount, &fee)
	return fee
}

// feeOf computes floor(rate * total) in integer arithmetic.
func feeOf(total *uint256.Int, rate decimal.Decimal) uint256.Int {
	var fee uint256.Int
	if rate.IsZero() {
		return fee
	}

	// rate = coef * 10^exp with exp <= 0 after normalizing.
	coef := rate.Coefficient()
	exp := rate.Exponent()
	if exp > 0 {
		coef.Mul(coef, decimal.New(1, exp).BigInt())
		exp = 0
	}

	num, overflow := uint256.FromBig(coef)
	if overflow {
		return *total.Clone()
	}
	denom := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(-exp)))

	_, overflow = fee.MulDivOverflow(total, num, denom)
	if overflow || fee.Gt(total) {
		return *total.Clone()
	}
	return fee
}

func opposite(p types.Position) types.Position {
	if p == types.PositionUp {
		return types.PositionDown
	}
	return types.PositionUp
}

func (e *Engine) pause(ctx context.Context, l *storage.Ledger, env Env, resp *Response) error {
	return e.setPaused(ctx, l, env, true)
}

func (e *Engine) unpause(ctx context.Context, l *storage.Ledger, env Env, resp *Response) error {
	return e.setPaused(ctx, l, env, false)
}

func (e *Engine) setPaused(ctx context.Context, l *storage.Ledger, env Env, paused bool) error {
	cfg, err := l.Config(ctx)
	if err != nil {
		return err
	}
	if !cfg.IsAdmin(env.Sender) {
		return types.ErrUnauthorized
	}

	st, err := l.State(ctx)
	if err != nil {
		return err
	}
	if paused && st.Paused {
		return types.ErrPaused
	}
	if !paused && !st.Paused {
		return types.ErrNotPaused
	}

	st.Paused = paused
	err = l.SaveState(st)
	if err != nil {
		return err
	}

	MarketPaused.Set(boolGauge(paused))
	e.logger.Info("market-pause-changed",
		zap.Bool("paused", paused),
		zap.String("sender", env.Sender.Hex()))

	return nil
}

func (e *Engine) updateConfig(ctx context.Context, l *storage.Ledger, env Env, op OpUpdateConfig, resp *Response) error {
	cfg, err := l.Config(ctx)
	if err != nil {
		return err
	}
	if !cfg.IsAdmin(env.Sender) {
		return types.ErrUnauthorized
	}

	updated := cfg.Apply(op.Update)
	err = updated.Validate()
	if err != nil {
		return err
	}

	err = l.SaveConfig(&updated)
	if err != nil {
		return err
	}

	e.logger.Info("config-updated",
		zap.String("sender", env.Sender.Hex()),
		zap.String("fee-rate", updated.FeeRate.String()),
		zap.Uint64("interval", updated.Interval),
		zap.Uint64("grace-interval", updated.GraceInterval))

	return nil
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
