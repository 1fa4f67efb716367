package prediction

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/mselser95/updown-rounds/internal/testutil"
	"github.com/mselser95/updown-rounds/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBet(t *testing.T) {
	h := newHarness(t, "0.05")
	h.mustExec(testutil.OwnerAddr, OpStartGenesisRound{})

	resp := h.mustExec(testutil.Alice, OpBet{Position: types.PositionUp}, testutil.Coins(100)...)
	amount, _ := resp.Attr("amount")
	position, _ := resp.Attr("position")
	assert.Equal(t, "100", amount)
	assert.Equal(t, "up", position)

	h.bet(testutil.Bob, types.PositionDown, 40)
	h.bet(testutil.Carol, types.PositionDown, 60)

	r := h.round(2)
	assert.Equal(t, uint64(100), r.UpAmount.Uint64())
	assert.Equal(t, uint64(100), r.DownAmount.Uint64())
	assert.Equal(t, uint64(200), r.TotalAmount.Uint64())

	bet, err := h.engine.ledger().Bet(h.ctx, 2, testutil.Alice)
	require.NoError(t, err)
	assert.Equal(t, types.PositionUp, bet.Position)
	assert.False(t, bet.Claimed)

	assert.Equal(t, testBalance-100, h.balance(testutil.Alice))
	assert.Equal(t, uint64(200), h.balance(testutil.ContractAddr))
}

func TestBet_Rejections(t *testing.T) {
	h := newHarness(t, "0.05")

	_, err := h.exec(testutil.Alice, OpBet{Position: types.PositionUp}, testutil.Coins(10)...)
	assert.ErrorIs(t, err, types.ErrPaused, "market starts paused")

	h.mustExec(testutil.OwnerAddr, OpStartGenesisRound{})

	tests := []struct {
		name    string
		op      OpBet
		funds   []types.Coin
		wantErr error
	}{
		{name: "zero-amount", op: OpBet{Position: types.PositionUp}, wantErr: types.ErrZeroAmount},
		{
			name:    "wrong-denom",
			op:      OpBet{Position: types.PositionUp},
			funds:   []types.Coin{types.NewCoin("uatom", 10)},
			wantErr: types.ErrZeroAmount,
		},
		{
			name:    "bad-position",
			op:      OpBet{Position: "sideways"},
			funds:   testutil.Coins(10),
			wantErr: types.ErrInvalidPosition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.exec(testutil.Alice, tt.op, tt.funds...)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.True(t, h.round(2).TotalAmount.IsZero())
}

func TestBet_OnePerEpoch(t *testing.T) {
	h := newHarness(t, "0.05")
	h.mustExec(testutil.OwnerAddr, OpStartGenesisRound{})
	h.bet(testutil.Alice, types.PositionUp, 100)

	for _, pos := range []types.Position{types.PositionUp, types.PositionDown} {
		_, err := h.exec(testutil.Alice, OpBet{Position: pos}, testutil.Coins(5)...)
		assert.ErrorIs(t, err, types.ErrAlreadyBet)
	}

	r := h.round(2)
	assert.Equal(t, uint64(100), r.TotalAmount.Uint64())
	assert.Equal(t, testBalance-100, h.balance(testutil.Alice))
}

func TestBet_NotBettableAfterLock(t *testing.T) {
	h := newHarness(t, "0.05")
	h.mustExec(testutil.OwnerAddr, OpStartGenesisRound{})

	h.advance(testInterval)
	h.bet(testutil.Alice, types.PositionUp, 10)

	h.advance(1)
	_, err := h.exec(testutil.Bob, OpBet{Position: types.PositionUp}, testutil.Coins(10)...)
	assert.ErrorIs(t, err, types.ErrNotBettable)
	assert.Equal(t, testBalance, h.balance(testutil.Bob))
}

func TestBet_GenesisNeverBettable(t *testing.T) {
	h := newHarness(t, "0.05")
	h.mustExec(testutil.OwnerAddr, OpStartGenesisRound{})

	genesis := h.round(1)
	for _, now := range []uint64{genesis.StartTime, genesis.LockTime, genesis.EndTime} {
		assert.False(t, genesis.Bettable(now))
	}
}

func TestBet_PoolInvariant(t *testing.T) {
	h := newHarness(t, "0.05")
	h.mustExec(testutil.OwnerAddr, OpStartGenesisRound{})

	h.bet(testutil.Alice, types.PositionUp, 7)
	h.bet(testutil.Bob, types.PositionDown, 13)
	h.bet(testutil.Carol, types.PositionUp, 29)

	r := h.round(2)
	var sum uint256.Int
	sum.Add(&r.UpAmount, &r.DownAmount)
	assert.True(t, sum.Eq(&r.TotalAmount))
	assert.Equal(t, uint64(49), sum.Uint64())
}

func TestBet_NativeRejectedForTokenMarket(t *testing.T) {
	h := newTokenHarness(t)

	_, err := h.exec(testutil.Alice, OpBet{Position: types.PositionUp}, testutil.Coins(10)...)
	assert.ErrorIs(t, err, types.ErrInvalidAsset)
}

func TestReceive(t *testing.T) {
	h := newTokenHarness(t)

	resp := h.mustExec(testutil.TokenAddr, OpReceive{
		From:   testutil.Alice,
		Amount: *testutil.Amount(300),
		Msg:    []byte(`{"bet":{"position":"down"}}`),
	})
	assert.Equal(t, ActionBet, resp.Action)

	bet, err := h.engine.ledger().Bet(h.ctx, 2, testutil.Alice)
	require.NoError(t, err)
	assert.Equal(t, types.PositionDown, bet.Position)
	assert.Equal(t, uint64(300), bet.Amount.Uint64())
	assert.Equal(t, uint64(300), h.round(2).DownAmount.Uint64())
}

func TestReceive_Rejections(t *testing.T) {
	h := newTokenHarness(t)

	_, err := h.exec(testutil.Alice, OpReceive{From: testutil.Alice, Amount: *testutil.Amount(5), Msg: []byte(`{"bet":{"position":"up"}}`)})
	assert.ErrorIs(t, err, types.ErrInvalidAsset, "only the token contract may call the hook")

	_, err = h.exec(testutil.TokenAddr, OpReceive{From: testutil.Alice, Amount: *testutil.Amount(5)})
	assert.ErrorIs(t, err, types.ErrMissingPayload)

	_, err = h.exec(testutil.TokenAddr, OpReceive{From: testutil.Alice, Amount: *testutil.Amount(5), Msg: []byte(`{"bet":`)})
	assert.ErrorIs(t, err, types.ErrInvalidPayload)

	_, err = h.exec(testutil.TokenAddr, OpReceive{From: testutil.Alice, Amount: *testutil.Amount(5), Msg: []byte(`{}`)})
	assert.ErrorIs(t, err, types.ErrInvalidPayload)

	_, err = h.exec(testutil.TokenAddr, OpReceive{From: testutil.Alice, Msg: []byte(`{"bet":{"position":"up"}}`)})
	assert.ErrorIs(t, err, types.ErrZeroAmount)
}

func TestReceive_RejectedForNativeMarket(t *testing.T) {
	h := newHarness(t, "0.05")
	h.mustExec(testutil.OwnerAddr, OpStartGenesisRound{})

	_, err := h.exec(testutil.TokenAddr, OpReceive{
		From:   testutil.Alice,
		Amount: *testutil.Amount(5),
		Msg:    []byte(`{"bet":{"position":"up"}}`),
	})
	assert.ErrorIs(t, err, types.ErrInvalidAsset)
}

// newTokenHarness starts a market that takes the test token.
func newTokenHarness(t *testing.T) *harness {
	t.Helper()
	h := newHarnessWithAsset(t, "0.05", testutil.TokenAsset())
	h.mustExec(testutil.OwnerAddr, OpStartGenesisRound{})
	return h
}
