package transfer

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/mselser95/updown-rounds/internal/storage"
	"github.com/mselser95/updown-rounds/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

var (
	alice = common.HexToAddress("0xa1")
	bob   = common.HexToAddress("0xb0")
	scrt  = types.NativeAsset("uscrt")
)

func TestBank_SendMovesFunds(t *testing.T) {
	b := NewBank(zaptest.NewLogger(t))
	require.NoError(t, b.Mint(scrt, alice, uint256.NewInt(100)))

	require.NoError(t, b.Send(context.Background(), scrt, uint256.NewInt(30), alice, bob))

	aliceBal := b.Balance(scrt, alice)
	bobBal := b.Balance(scrt, bob)
	assert.Equal(t, uint64(70), aliceBal.Uint64())
	assert.Equal(t, uint64(30), bobBal.Uint64())
}

func TestBank_InsufficientFunds(t *testing.T) {
	b := NewBank(zap.NewNop())
	require.NoError(t, b.Mint(scrt, alice, uint256.NewInt(10)))

	err := b.Collect(context.Background(), scrt, uint256.NewInt(11), alice, bob)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	aliceBal := b.Balance(scrt, alice)
	assert.Equal(t, uint64(10), aliceBal.Uint64(), "failed transfer leaves balances untouched")
}

func TestBank_AssetsAreSeparate(t *testing.T) {
	b := NewBank(zap.NewNop())
	token := types.TokenAsset(common.HexToAddress("0xcafe"), "")
	require.NoError(t, b.Mint(scrt, alice, uint256.NewInt(5)))

	err := b.Send(context.Background(), token, uint256.NewInt(1), alice, bob)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestPersistentBank_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()

	b := NewPersistentBank(kv, zaptest.NewLogger(t))
	require.NoError(t, b.Mint(scrt, alice, uint256.NewInt(100)))
	require.NoError(t, b.Collect(ctx, scrt, uint256.NewInt(40), alice, bob))

	restarted := NewPersistentBank(kv, zaptest.NewLogger(t))
	aliceBal := restarted.Balance(scrt, alice)
	bobBal := restarted.Balance(scrt, bob)
	assert.Equal(t, uint64(60), aliceBal.Uint64())
	assert.Equal(t, uint64(40), bobBal.Uint64())

	require.NoError(t, restarted.Send(ctx, scrt, uint256.NewInt(40), bob, alice))
	aliceBal = NewPersistentBank(kv, zap.NewNop()).Balance(scrt, alice)
	assert.Equal(t, uint64(100), aliceBal.Uint64())
}

// rejectingKV stores nothing.
type rejectingKV struct {
	*storage.MemoryKV
}

func (rejectingKV) Commit(context.Context, []storage.Write) error {
	return errors.New("read-only")
}

func TestPersistentBank_StoreFailureLeavesBalances(t *testing.T) {
	kv := storage.NewMemoryKV()
	b := NewPersistentBank(kv, zap.NewNop())
	require.NoError(t, b.Mint(scrt, alice, uint256.NewInt(10)))

	ro := NewPersistentBank(rejectingKV{kv}, zap.NewNop())
	err := ro.Send(context.Background(), scrt, uint256.NewInt(4), alice, bob)
	require.Error(t, err)

	aliceBal := ro.Balance(scrt, alice)
	bobBal := ro.Balance(scrt, bob)
	assert.Equal(t, uint64(10), aliceBal.Uint64())
	assert.True(t, bobBal.IsZero())

	assert.Error(t, ro.Mint(scrt, bob, uint256.NewInt(1)))
}

type recordingChain struct {
	to     common.Address
	amount *big.Int
	err    error
}

func (r *recordingChain) Send(_ context.Context, _ *ecdsa.PrivateKey, _ types.AssetInfo, to common.Address, amount *big.Int) (common.Hash, error) {
	r.to = to
	r.amount = amount
	return common.HexToHash("0x01"), r.err
}

func TestEVMSender(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	hexKey := "0x" + common.Bytes2Hex(crypto.FromECDSA(key))

	chain := &recordingChain{}
	s, err := NewEVMSender(&EVMConfig{Chain: chain, PrivateKeyHex: hexKey, Logger: zap.NewNop()})
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), s.Address())

	err = s.Send(context.Background(), scrt, uint256.NewInt(9), alice, bob)
	assert.ErrorIs(t, err, ErrWrongSender)

	require.NoError(t, s.Send(context.Background(), scrt, uint256.NewInt(9), s.Address(), bob))
	assert.Equal(t, bob, chain.to)
	assert.Equal(t, int64(9), chain.amount.Int64())

	chain.err = errors.New("nonce too low")
	assert.Error(t, s.Send(context.Background(), scrt, uint256.NewInt(1), s.Address(), bob))
}

func TestNewEVMSender_Validation(t *testing.T) {
	_, err := NewEVMSender(nil)
	assert.Error(t, err)

	_, err = NewEVMSender(&EVMConfig{Logger: zap.NewNop()})
	assert.Error(t, err)

	_, err = NewEVMSender(&EVMConfig{Chain: &recordingChain{}, PrivateKeyHex: "zz", Logger: zap.NewNop()})
	assert.Error(t, err)
}
