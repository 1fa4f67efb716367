package prediction

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/mselser95/updown-rounds/internal/oracle"
	"github.com/mselser95/updown-rounds/internal/testutil"
	"github.com/mselser95/updown-rounds/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaim_WinnerAndLoser(t *testing.T) {
	h := newHarness(t, "0.05")
	h.startAndLock("100", func() {
		h.bet(testutil.Alice, types.PositionUp, 100)
		h.bet(testutil.Bob, types.PositionDown, 100)
	})
	h.settleRoundTwo("101")

	resp := h.mustExec(testutil.Alice, OpClaim{Epoch: 2})
	claimed, _ := resp.Attr("claim_amount")
	assert.Equal(t, "190", claimed)
	require.Len(t, resp.Transfers, 1)
	assert.Equal(t, testutil.ContractAddr, resp.Transfers[0].From)
	assert.Equal(t, testutil.Alice, resp.Transfers[0].To)
	assert.Equal(t, testBalance-100+190, h.balance(testutil.Alice))

	_, err := h.exec(testutil.Bob, OpClaim{Epoch: 2})
	assert.ErrorIs(t, err, types.ErrNothingToClaim)
	assert.Equal(t, testBalance-100, h.balance(testutil.Bob))

	// The losing claim still consumed the bet.
	bet, err := h.engine.ledger().Bet(h.ctx, 2, testutil.Bob)
	require.NoError(t, err)
	assert.True(t, bet.Claimed)

	_, err = h.exec(testutil.Bob, OpClaim{Epoch: 2})
	assert.ErrorIs(t, err, types.ErrAlreadyClaimed)

	// The fee stays in the market until withdrawn.
	assert.Equal(t, uint64(10), h.balance(testutil.ContractAddr))
}

func TestClaim_Idempotent(t *testing.T) {
	h := newHarness(t, "0.05")
	h.startAndLock("100", func() {
		h.bet(testutil.Alice, types.PositionDown, 100)
		h.bet(testutil.Bob, types.PositionUp, 100)
	})
	h.settleRoundTwo("90")

	h.mustExec(testutil.Alice, OpClaim{Epoch: 2})
	balance := h.balance(testutil.Alice)

	_, err := h.exec(testutil.Alice, OpClaim{Epoch: 2})
	assert.ErrorIs(t, err, types.ErrAlreadyClaimed)
	assert.Equal(t, balance, h.balance(testutil.Alice))
}

func TestClaim_Rejections(t *testing.T) {
	h := newHarness(t, "0.05")
	h.startAndLock("100", func() {
		h.bet(testutil.Alice, types.PositionUp, 100)
		h.bet(testutil.Bob, types.PositionDown, 100)
	})

	_, err := h.exec(testutil.Alice, OpClaim{Epoch: 99})
	assert.ErrorIs(t, err, types.ErrRoundNotFound)

	_, err = h.exec(testutil.Alice, OpClaim{Epoch: 2})
	assert.ErrorIs(t, err, types.ErrNotClaimable, "round is locked but not settled")

	h.settleRoundTwo("120")

	_, err = h.exec(testutil.Carol, OpClaim{Epoch: 2})
	assert.ErrorIs(t, err, types.ErrBetNotFound)

	_, err = h.exec(testutil.Alice, OpClaim{Epoch: 1})
	assert.ErrorIs(t, err, types.ErrBetNotFound, "genesis never pays out")
}

func TestClaim_PushRefundsEveryone(t *testing.T) {
	h := newHarness(t, "0.05")
	h.startAndLock("100", func() {
		h.bet(testutil.Alice, types.PositionUp, 70)
		h.bet(testutil.Bob, types.PositionDown, 30)
		h.bet(testutil.Carol, types.PositionDown, 45)
	})
	h.settleRoundTwo("100")

	for _, user := range []struct {
		addr  common.Address
		stake uint64
	}{
		{testutil.Alice, 70},
		{testutil.Bob, 30},
		{testutil.Carol, 45},
	} {
		resp := h.mustExec(user.addr, OpClaim{Epoch: 2})
		amount, _ := resp.Attr("claim_amount")
		assert.Equal(t, uint256.NewInt(user.stake).Dec(), amount)
		assert.Equal(t, testBalance, h.balance(user.addr))
	}
	assert.Equal(t, uint64(0), h.balance(testutil.ContractAddr))
}

func TestClaim_OneSidedRefund(t *testing.T) {
	h := newHarness(t, "0.05")
	h.startAndLock("100", func() {
		h.bet(testutil.Alice, types.PositionUp, 50)
	})

	// Refundable as soon as the round locks with an empty side.
	h.advance(1)
	h.mustExec(testutil.Alice, OpClaim{Epoch: 2})
	assert.Equal(t, testBalance, h.balance(testutil.Alice))
}

func TestClaim_OracleNeverAnswers(t *testing.T) {
	h := newHarness(t, "0.05")
	h.startAndLock("100", func() {
		h.bet(testutil.Alice, types.PositionUp, 100)
		h.bet(testutil.Bob, types.PositionDown, 250)
	})

	h.oracle.SetError(oracle.ErrNoPrice)
	h.advance(testInterval)
	_, err := h.exec(testutil.Carol, OpExecuteRound{})
	require.ErrorIs(t, err, oracle.ErrNoPrice)

	_, err = h.exec(testutil.Alice, OpClaim{Epoch: 2})
	assert.ErrorIs(t, err, types.ErrNotClaimable, "still inside the grace window")

	h.advance(testGrace + 1)
	h.mustExec(testutil.Alice, OpClaim{Epoch: 2})
	h.mustExec(testutil.Bob, OpClaim{Epoch: 2})
	assert.Equal(t, testBalance, h.balance(testutil.Alice))
	assert.Equal(t, testBalance, h.balance(testutil.Bob))
}

func TestClaim_WinnersNeverExceedReward(t *testing.T) {
	h := newHarness(t, "0.03")
	h.startAndLock("100", func() {
		h.bet(testutil.Alice, types.PositionUp, 333)
		h.bet(testutil.Carol, types.PositionUp, 667)
		h.bet(testutil.Bob, types.PositionDown, 101)
	})
	h.settleRoundTwo("100.5")

	r := h.round(2)
	var paid uint256.Int
	for _, user := range []common.Address{testutil.Alice, testutil.Carol} {
		before := h.balance(user)
		h.mustExec(user, OpClaim{Epoch: 2})
		paid.Add(&paid, uint256.NewInt(h.balance(user)-before))
	}

	assert.False(t, paid.Gt(&r.RewardAmount))
	// Rounding loses at most one unit per winner.
	var floor uint256.Int
	floor.Sub(&r.RewardAmount, uint256.NewInt(2))
	assert.False(t, paid.Lt(&floor))
}

func TestClaimAmount(t *testing.T) {
	open := testutil.Price("10")
	up := testutil.Price("11")
	r := &types.Round{
		StartTime:  0,
		LockTime:   10,
		EndTime:    20,
		OpenPrice:  &open,
		ClosePrice: &up,
	}
	r.AddBet(types.PositionUp, uint256.NewInt(3))
	r.AddBet(types.PositionDown, uint256.NewInt(7))
	r.RewardAmount.SetUint64(9)

	tests := []struct {
		name       string
		bet        types.Bet
		now        uint64
		wantAmount uint64
		wantRefund bool
	}{
		{name: "winner", bet: types.Bet{Amount: *uint256.NewInt(2), Position: types.PositionUp}, now: 20, wantAmount: 6},
		{name: "winner-rounds-down", bet: types.Bet{Amount: *uint256.NewInt(1), Position: types.PositionUp}, now: 20, wantAmount: 3},
		{name: "loser", bet: types.Bet{Amount: *uint256.NewInt(7), Position: types.PositionDown}, now: 20},
		{name: "before-end", bet: types.Bet{Amount: *uint256.NewInt(2), Position: types.PositionUp}, now: 19},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bet := tt.bet
			amount, refund := ClaimAmount(r, &bet, tt.now, 5)
			assert.Equal(t, tt.wantAmount, amount.Uint64())
			assert.Equal(t, tt.wantRefund, refund)
		})
	}
}

func TestWithdraw(t *testing.T) {
	h := newHarness(t, "0.05")

	_, err := h.exec(testutil.TreasuryAddr, OpWithdraw{})
	assert.ErrorIs(t, err, types.ErrNoFee)

	h.startAndLock("100", func() {
		h.bet(testutil.Alice, types.PositionUp, 100)
		h.bet(testutil.Bob, types.PositionDown, 100)
	})
	h.settleRoundTwo("80")

	_, err = h.exec(testutil.Alice, OpWithdraw{})
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	resp := h.mustExec(testutil.TreasuryAddr, OpWithdraw{})
	amount, _ := resp.Attr("amount")
	assert.Equal(t, "10", amount)
	assert.Equal(t, uint64(10), h.balance(testutil.TreasuryAddr))
	assert.True(t, h.state().TotalFee.IsZero())

	_, err = h.exec(testutil.OwnerAddr, OpWithdraw{})
	assert.ErrorIs(t, err, types.ErrNoFee)
}
