// Package app wires the market engine to its storage, oracle, payout and
// HTTP surfaces.
package app

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/updown-rounds/internal/keeper"
	"github.com/mselser95/updown-rounds/internal/oracle"
	"github.com/mselser95/updown-rounds/internal/prediction"
	"github.com/mselser95/updown-rounds/internal/storage"
	"github.com/mselser95/updown-rounds/internal/transfer"
	"github.com/mselser95/updown-rounds/pkg/cache"
	"github.com/mselser95/updown-rounds/pkg/config"
	"github.com/mselser95/updown-rounds/pkg/healthprobe"
	"github.com/mselser95/updown-rounds/pkg/httpserver"
	"github.com/mselser95/updown-rounds/pkg/wallet"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	store         storage.KV
	roundCache    cache.Cache
	replayCache   cache.Cache
	feed          *oracle.Feed
	stream        *oracle.StreamFeed
	bank          *transfer.Bank
	engine        *prediction.Engine
	keeper        *keeper.Keeper
	tracker       *wallet.Tracker
	contract      common.Address
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// Options holds application options.
type Options struct {
	// Owner initializes an empty store with the configured market when set.
	// Ignored if the store already holds a market.
	Owner *common.Address
}

// Engine exposes the wired engine, for commands that run one operation.
func (a *App) Engine() *prediction.Engine {
	return a.engine
}

// Contract is the market account address.
func (a *App) Contract() common.Address {
	return a.contract
}
