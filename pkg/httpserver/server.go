package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/holiman/uint256"
	"github.com/mselser95/updown-rounds/internal/keeper"
	"github.com/mselser95/updown-rounds/internal/oracle"
	"github.com/mselser95/updown-rounds/internal/permit"
	"github.com/mselser95/updown-rounds/internal/prediction"
	"github.com/mselser95/updown-rounds/pkg/cache"
	"github.com/mselser95/updown-rounds/pkg/healthprobe"
	"github.com/mselser95/updown-rounds/pkg/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Market is the engine surface exposed over HTTP. prediction.Engine
// implements it.
type Market interface {
	Execute(ctx context.Context, env prediction.Env, op prediction.Operation) (*prediction.Response, error)
	QueryConfig(ctx context.Context) (*prediction.ConfigView, error)
	QueryState(ctx context.Context) (*types.State, error)
	QueryRound(ctx context.Context, epoch, now uint64) (*prediction.RoundView, error)
	QueryCurrentRound(ctx context.Context, now uint64) (*prediction.RoundView, error)
	QueryBet(ctx context.Context, epoch uint64, user common.Address, key string) (*types.Bet, error)
	QueryBetWithPermit(ctx context.Context, p permit.Permit, epoch uint64) (*types.Bet, error)
	QueryPrice(ctx context.Context) (oracle.PriceInfo, error)
}

// PriceFeeder accepts signed price updates. oracle.Feed implements it.
type PriceFeeder interface {
	FeedPrice(sender common.Address, assetKey string, price decimal.Decimal, ts uint64) error
}

// KeeperStatus reports the settlement bot's state.
type KeeperStatus interface {
	Status() keeper.Status
}

// Faucet credits test balances. transfer.Bank implements it.
type Faucet interface {
	Mint(asset types.AssetInfo, addr common.Address, amount *uint256.Int) error
}

// Server provides the market API plus metrics and health endpoints.
type Server struct {
	server        *http.Server
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker

	market    Market
	contract  common.Address
	txMaxSkew time.Duration
	replay    cache.Cache
	feed      PriceFeeder
	keeper    KeeperStatus
	faucet    Faucet
	faucetFor types.AssetInfo
	clock     func() time.Time
	height    atomic.Uint64
}

// Config holds server configuration. Feed, Keeper and Faucet are optional;
// their routes are only mounted when set.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker
	Market        Market
	Contract      common.Address
	TxMaxSkew     time.Duration
	Replay        cache.Cache // remembers accepted signatures for the skew window
	Feed          PriceFeeder
	Keeper        KeeperStatus
	Faucet        Faucet
	FaucetAsset   types.AssetInfo
	Clock         func() time.Time // defaults to time.Now
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	s := &Server{
		logger:        cfg.Logger,
		healthChecker: cfg.HealthChecker,
		market:        cfg.Market,
		contract:      cfg.Contract,
		txMaxSkew:     cfg.TxMaxSkew,
		replay:        cfg.Replay,
		feed:          cfg.Feed,
		keeper:        cfg.Keeper,
		faucet:        cfg.Faucet,
		faucetFor:     cfg.FaucetAsset,
		clock:         cfg.Clock,
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.txMaxSkew <= 0 {
		s.txMaxSkew = 2 * time.Minute
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Routes
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.HealthChecker.Health())
	r.Get("/ready", cfg.HealthChecker.Ready())

	if cfg.Market != nil {
		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/config", s.handleConfig)
			r.Get("/state", s.handleState)
			r.Get("/price", s.handlePrice)
			r.Get("/rounds/current", s.handleCurrentRound)
			r.Get("/rounds/{epoch}", s.handleRound)
			r.Get("/bets/{epoch}", s.handleBet)
			r.Post("/bets/{epoch}/permit", s.handleBetWithPermit)
			r.Post("/tx", s.handleTx)

			if cfg.Feed != nil {
				r.Post("/oracle/prices", s.handleFeedPrice)
			}
			if cfg.Keeper != nil {
				r.Get("/keeper", s.handleKeeper)
			}
			if cfg.Faucet != nil {
				r.Post("/dev/faucet", s.handleFaucet)
			}
		})
	}

	s.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
// This is a blocking call that returns when the server stops or encounters an error.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}
