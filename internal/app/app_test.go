package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/mselser95/updown-rounds/internal/prediction"
	"github.com/mselser95/updown-rounds/internal/testutil"
	"github.com/mselser95/updown-rounds/pkg/config"
	"github.com/mselser95/updown-rounds/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testConfig() *config.Config {
	return &config.Config{
		LogLevel:      "debug",
		HTTPPort:      "0",
		TxMaxSkew:     time.Minute,
		ContractAddr:  testutil.ContractAddr.Hex(),
		OperatorAddr:  testutil.OperatorAddr.Hex(),
		TreasuryAddr:  testutil.TreasuryAddr.Hex(),
		BetDenom:      testutil.Denom,
		FeeRate:       "0.03",
		RoundInterval: 300,
		GraceInterval: 60,
		PRNGSeed:      "seed",
		StorageMode:   "memory",
		RoundCacheMax: 100,
		OracleMode:    "feed",
		TransferMode:  "bank",
		PermitChainID: "updown-1",
	}
}

func ready(t *testing.T, a *App) int {
	t.Helper()
	a.healthChecker.SetReady(true)

	w := httptest.NewRecorder()
	a.healthChecker.Ready()(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	return w.Code
}

func TestNew_InitializesMarket(t *testing.T) {
	owner := testutil.OwnerAddr
	a, err := New(testConfig(), zaptest.NewLogger(t), &Options{Owner: &owner})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	cfg, err := a.Engine().QueryConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testutil.ContractAddr, cfg.ContractAddr)
	assert.Equal(t, owner, cfg.OwnerAddr)
	assert.Equal(t, testutil.NativeAsset(), cfg.BetAsset)
	assert.Equal(t, uint64(300), cfg.Interval)

	assert.Equal(t, testutil.ContractAddr, a.Contract())
	assert.NotNil(t, a.bank)
	assert.NotNil(t, a.feed)
	assert.Nil(t, a.keeper)
	assert.Nil(t, a.tracker)

	assert.Equal(t, http.StatusOK, ready(t, a))
}

func TestNew_UninitializedMarketIsNotReady(t *testing.T) {
	a, err := New(testConfig(), zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Equal(t, http.StatusServiceUnavailable, ready(t, a))
}

func TestEnsureMarket_Idempotent(t *testing.T) {
	owner := testutil.OwnerAddr
	cfg := testConfig()
	logger := zaptest.NewLogger(t)

	a, err := New(cfg, logger, &Options{Owner: &owner})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	err = EnsureMarket(context.Background(), a.Engine(), cfg, a.Contract(), testutil.Alice, logger)
	require.NoError(t, err)

	view, err := a.Engine().QueryConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, owner, view.OwnerAddr)
}

func TestNew_LevelDBPersistsAcrossRestarts(t *testing.T) {
	owner := testutil.OwnerAddr
	cfg := testConfig()
	cfg.StorageMode = "leveldb"
	cfg.LevelDBPath = filepath.Join(t.TempDir(), "db")

	first, err := New(cfg, zaptest.NewLogger(t), &Options{Owner: &owner})
	require.NoError(t, err)

	now := uint64(time.Now().Unix())
	env := prediction.Env{Contract: first.Contract(), Sender: owner, Time: now}
	_, err = first.Engine().Execute(context.Background(), env, prediction.OpStartGenesisRound{})
	require.NoError(t, err)

	require.NoError(t, first.bank.Mint(testutil.NativeAsset(), testutil.Alice, testutil.Amount(1000)))
	env.Sender = testutil.Alice
	env.Funds = testutil.Coins(400)
	_, err = first.Engine().Execute(context.Background(), env, prediction.OpBet{Position: types.PositionUp})
	require.NoError(t, err)
	first.Close()

	second, err := New(cfg, zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	t.Cleanup(second.Close)

	st, err := second.Engine().QueryState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), st.Epoch)
	assert.False(t, st.Paused)

	// Custody balances come back with the bets they back.
	alice := second.bank.Balance(testutil.NativeAsset(), testutil.Alice)
	market := second.bank.Balance(testutil.NativeAsset(), second.Contract())
	assert.Equal(t, uint64(600), alice.Uint64())
	assert.Equal(t, uint64(400), market.Uint64())

	round, err := second.Engine().QueryRound(context.Background(), 2, now)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), round.Round.UpAmount.Uint64())
}

func TestNew_KeeperEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.KeeperEnabled = true
	cfg.KeeperInterval = time.Second
	cfg.KeeperMaxFailures = 3
	cfg.KeeperCooldown = time.Minute

	a, err := New(cfg, zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	require.NotNil(t, a.keeper)
	assert.False(t, a.keeper.Status().Tripped)
}

func TestNew_HTTPOracle(t *testing.T) {
	api := testutil.NewMockPriceAPI()
	t.Cleanup(api.Close)
	api.SetPrice(testutil.NativeAsset(), testutil.Price("4.20"), 1_700_000_000)

	cfg := testConfig()
	cfg.OracleMode = "http"
	cfg.OracleURL = api.URL
	cfg.OracleTimeout = time.Second

	owner := testutil.OwnerAddr
	a, err := New(cfg, zaptest.NewLogger(t), &Options{Owner: &owner})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Nil(t, a.feed)

	info, err := a.Engine().QueryPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "4.2", info.Price.String())
	assert.Equal(t, uint64(1_700_000_000), info.LastUpdated)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		errMsg string
	}{
		{
			name: "bad_evm_key",
			mutate: func(c *config.Config) {
				c.TransferMode = "evm"
				c.EVMRPCURL = "http://127.0.0.1:8545"
				c.OperatorPrivateKey = "not-a-key"
			},
			errMsg: "setup transfers: create evm sender: parse private key",
		},
		{
			name: "leveldb_without_path",
			mutate: func(c *config.Config) {
				c.StorageMode = "leveldb"
				c.LevelDBPath = ""
			},
			errMsg: "setup storage: create leveldb storage: leveldb path cannot be empty",
		},
		{
			name: "bad_market_params",
			mutate: func(c *config.Config) {
				c.FeeRate = "2"
			},
			errMsg: "initialize market",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)

			owner := testutil.OwnerAddr
			_, err := New(cfg, zaptest.NewLogger(t), &Options{Owner: &owner})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestInitMsg(t *testing.T) {
	cfg := testConfig()
	cfg.BetTokenAddr = testutil.TokenAddr.Hex()
	cfg.BetTokenCodeHash = "token-code-hash"

	msg := InitMsg(cfg)
	assert.Equal(t, testutil.TokenAsset(), msg.BetAsset)
	assert.Equal(t, testutil.OperatorAddr, msg.OperatorAddr)
	assert.Equal(t, "0.03", msg.FeeRate.String())
	assert.Equal(t, []byte("seed"), msg.PRNGSeed)
}
