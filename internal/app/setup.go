package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/updown-rounds/internal/keeper"
	"github.com/mselser95/updown-rounds/internal/oracle"
	"github.com/mselser95/updown-rounds/internal/permit"
	"github.com/mselser95/updown-rounds/internal/prediction"
	"github.com/mselser95/updown-rounds/internal/storage"
	"github.com/mselser95/updown-rounds/internal/transfer"
	"github.com/mselser95/updown-rounds/pkg/cache"
	"github.com/mselser95/updown-rounds/pkg/config"
	"github.com/mselser95/updown-rounds/pkg/healthprobe"
	"github.com/mselser95/updown-rounds/pkg/httpserver"
	"github.com/mselser95/updown-rounds/pkg/types"
	"github.com/mselser95/updown-rounds/pkg/wallet"
	"github.com/mselser95/updown-rounds/pkg/websocket"
	"go.uber.org/zap"
)

// replayCacheMax bounds the number of remembered request signatures.
const replayCacheMax = 100_000

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthprobe.New(),
		ctx:           ctx,
		cancel:        cancel,
	}

	err := a.setup(opts)
	if err != nil {
		a.closeResources()
		cancel()
		return nil, err
	}

	return a, nil
}

func (a *App) setup(opts *Options) error {
	var err error

	a.store, err = setupStore(a.ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("setup storage: %w", err)
	}

	// ROUND_CACHE_MAX=0 disables the settled-round cache
	if a.cfg.RoundCacheMax > 0 {
		a.roundCache, err = cache.NewRistrettoCache(&cache.RistrettoConfig{
			MaxItems: a.cfg.RoundCacheMax,
			Logger:   a.logger,
		})
		if err != nil {
			return fmt.Errorf("setup round cache: %w", err)
		}
	}

	a.replayCache, err = cache.NewRistrettoCache(&cache.RistrettoConfig{
		MaxItems: replayCacheMax,
		Logger:   a.logger,
	})
	if err != nil {
		return fmt.Errorf("setup replay cache: %w", err)
	}

	sender, err := a.setupSender()
	if err != nil {
		return fmt.Errorf("setup transfers: %w", err)
	}

	reader, err := a.setupOracle()
	if err != nil {
		return fmt.Errorf("setup oracle: %w", err)
	}

	a.engine, err = prediction.New(&prediction.Config{
		Store:   a.store,
		Oracle:  reader,
		Sender:  sender,
		Permits: permit.NewEthVerifier(a.cfg.PermitChainID),
		Rounds:  a.roundCache,
		Logger:  a.logger,
	})
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	if opts.Owner != nil {
		err = EnsureMarket(a.ctx, a.engine, a.cfg, a.contract, *opts.Owner, a.logger)
		if err != nil {
			return err
		}
	}

	if a.cfg.KeeperEnabled {
		a.keeper, err = keeper.New(&keeper.Config{
			CheckInterval: a.cfg.KeeperInterval,
			Executor:      a.engine,
			Operator:      config.Address(a.cfg.OperatorAddr),
			Contract:      a.contract,
			MaxFailures:   a.cfg.KeeperMaxFailures,
			Cooldown:      a.cfg.KeeperCooldown,
			Logger:        a.logger,
		})
		if err != nil {
			return fmt.Errorf("create keeper: %w", err)
		}
	}

	a.setupHealthChecks()
	a.httpServer = a.setupHTTPServer()

	return nil
}

func setupStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.KV, error) {
	var kv storage.KV

	switch cfg.StorageMode {
	case "postgres":
		pg, err := storage.NewPostgresKV(ctx, &storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		kv = pg
	case "leveldb":
		ldb, err := storage.NewLevelDBKV(&storage.LevelDBConfig{
			Path:   cfg.LevelDBPath,
			Sync:   cfg.LevelDBSync,
			Logger: logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create leveldb storage: %w", err)
		}
		kv = ldb
	default:
		logger.Warn("memory-storage-selected",
			zap.String("note", "market state is lost on restart"))
		kv = storage.NewMemoryKV()
	}

	if cfg.StorageEcho {
		return storage.NewConsoleKV(kv, logger), nil
	}
	return kv, nil
}

// setupSender picks the payout backend. The bank keeps balances in the
// market store so custody survives restarts with the rounds. In evm mode the market account is
// the operator hot wallet, so bets are deposited on chain and only payouts
// go through the sender.
func (a *App) setupSender() (transfer.Sender, error) {
	if a.cfg.TransferMode != "evm" {
		a.bank = transfer.NewPersistentBank(a.store, a.logger)
		a.contract = config.Address(a.cfg.ContractAddr)
		return a.bank, nil
	}

	client, err := wallet.NewClient(a.cfg.EVMRPCURL, a.logger)
	if err != nil {
		return nil, fmt.Errorf("create wallet client: %w", err)
	}

	sender, err := transfer.NewEVMSender(&transfer.EVMConfig{
		Chain:         client,
		PrivateKeyHex: a.cfg.OperatorPrivateKey,
		Logger:        a.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create evm sender: %w", err)
	}
	a.contract = sender.Address()

	if configured := config.Address(a.cfg.ContractAddr); configured != a.contract {
		a.logger.Warn("contract-address-overridden",
			zap.String("configured", configured.Hex()),
			zap.String("hot-wallet", a.contract.Hex()))
	}

	a.tracker, err = wallet.New(&wallet.Config{
		RPCEndpoint:  a.cfg.EVMRPCURL,
		Address:      a.contract,
		Asset:        a.cfg.BetAsset(),
		Decimals:     int32(a.cfg.TokenDecimals),
		PollInterval: a.cfg.WalletPollInterval,
		Logger:       a.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create wallet tracker: %w", err)
	}

	return sender, nil
}

// setupOracle builds the price source rounds settle against. The feed and
// stream modes keep prices in an in-process Feed; http mode reads a remote
// endpoint directly.
func (a *App) setupOracle() (oracle.PriceReader, error) {
	if a.cfg.OracleMode == "http" {
		return oracle.NewHTTPClient(a.cfg.OracleURL, a.cfg.OracleTimeout, a.logger), nil
	}

	feed, err := oracle.NewFeed(&oracle.FeedConfig{
		Owner:  a.contract,
		Feeder: config.Address(a.cfg.OracleFeederAddr),
		Logger: a.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create price feed: %w", err)
	}

	err = feed.RegisterAsset(a.contract, a.cfg.BetAsset())
	if err != nil {
		return nil, fmt.Errorf("register bet asset: %w", err)
	}
	a.feed = feed

	if a.cfg.OracleMode == "stream" {
		source := websocket.New(websocket.Config{
			URL:                   a.cfg.OracleWSURL,
			DialTimeout:           a.cfg.WSDialTimeout,
			PongTimeout:           a.cfg.WSPongTimeout,
			PingInterval:          a.cfg.WSPingInterval,
			ReconnectInitialDelay: a.cfg.WSReconnectInitialDelay,
			ReconnectMaxDelay:     a.cfg.WSReconnectMaxDelay,
			ReconnectBackoffMult:  a.cfg.WSReconnectBackoffMult,
			ReconnectMaxAttempts:  a.cfg.WSReconnectMaxAttempts,
			MessageBufferSize:     a.cfg.WSMessageBufferSize,
			Logger:                a.logger,
		})
		a.stream = oracle.NewStreamFeed(feed, source, a.logger)
		a.healthChecker.AddCheck("price-stream", func(context.Context) error {
			if !source.Connected() {
				return errors.New("price stream disconnected")
			}
			return nil
		})
	}

	return feed, nil
}

func (a *App) setupHealthChecks() {
	if pinger, ok := a.store.(storage.Pinger); ok {
		a.healthChecker.AddCheck("store", pinger.Ping)
	}

	a.healthChecker.AddCheck("market", func(ctx context.Context) error {
		_, err := a.engine.QueryState(ctx)
		return err
	})
}

func (a *App) setupHTTPServer() *httpserver.Server {
	cfg := &httpserver.Config{
		Port:          a.cfg.HTTPPort,
		Logger:        a.logger,
		HealthChecker: a.healthChecker,
		Market:        a.engine,
		Contract:      a.contract,
		TxMaxSkew:     a.cfg.TxMaxSkew,
		Replay:        a.replayCache,
	}

	// Optional collaborators are only set when present so the interfaces
	// stay nil.
	if a.feed != nil {
		cfg.Feed = a.feed
	}
	if a.keeper != nil {
		cfg.Keeper = a.keeper
	}
	if a.cfg.DevEndpoints && a.bank != nil {
		cfg.Faucet = a.bank
		cfg.FaucetAsset = a.cfg.BetAsset()
		a.logger.Warn("dev-endpoints-enabled")
	}

	return httpserver.New(cfg)
}

// InitMsg builds the market parameters from configuration.
func InitMsg(cfg *config.Config) prediction.InitMsg {
	return prediction.InitMsg{
		OperatorAddr:   config.Address(cfg.OperatorAddr),
		TreasuryAddr:   config.Address(cfg.TreasuryAddr),
		BetAsset:       cfg.BetAsset(),
		OracleAddr:     config.Address(cfg.OracleAddr),
		OracleCodeHash: cfg.OracleCodeHash,
		FeeRate:        cfg.FeeRateDecimal(),
		Interval:       cfg.RoundInterval,
		GraceInterval:  cfg.GraceInterval,
		PRNGSeed:       []byte(cfg.PRNGSeed),
	}
}

// EnsureMarket initializes the market with owner unless the store already
// holds one.
func EnsureMarket(
	ctx context.Context,
	engine *prediction.Engine,
	cfg *config.Config,
	contract, owner common.Address,
	logger *zap.Logger,
) error {
	env := prediction.Env{
		Contract: contract,
		Sender:   owner,
		Time:     uint64(time.Now().Unix()),
	}

	err := engine.Initialize(ctx, env, InitMsg(cfg))
	if errors.Is(err, types.ErrAlreadyInitialized) {
		logger.Info("market-already-initialized", zap.String("contract", contract.Hex()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("initialize market: %w", err)
	}
	return nil
}
