package testutil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	json "github.com/goccy/go-json"
	"github.com/holiman/uint256"
	"github.com/mselser95/updown-rounds/internal/oracle"
	"github.com/mselser95/updown-rounds/internal/permit"
	"github.com/mselser95/updown-rounds/internal/transfer"
	"github.com/mselser95/updown-rounds/pkg/types"
	"github.com/shopspring/decimal"
)

// MockOracle is a settable PriceReader.
type MockOracle struct {
	mu    sync.Mutex
	info  oracle.PriceInfo
	err   error
	calls int
}

// NewMockOracle creates an oracle with no price.
func NewMockOracle() *MockOracle {
	return &MockOracle{err: oracle.ErrNoPrice}
}

// SetPrice sets the price returned by LatestPrice.
func (m *MockOracle) SetPrice(price decimal.Decimal, updated uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.info = oracle.PriceInfo{Price: price, LastUpdated: updated}
	m.err = nil
}

// SetError makes LatestPrice fail with err.
func (m *MockOracle) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times LatestPrice was called.
func (m *MockOracle) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LatestPrice implements oracle.PriceReader.
func (m *MockOracle) LatestPrice(_ context.Context, _ types.AssetInfo) (oracle.PriceInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return oracle.PriceInfo{}, m.err
	}
	return m.info, nil
}

// ErrMockTransfer is returned by a failing MockSender.
var ErrMockTransfer = errors.New("mock transfer failed")

// MockSender records transfers without moving anything.
type MockSender struct {
	mu        sync.Mutex
	Transfers []transfer.Transfer
	Fail      bool
}

// NewMockSender creates a recording sender.
func NewMockSender() *MockSender {
	return &MockSender{}
}

// Send implements transfer.Sender.
func (m *MockSender) Send(_ context.Context, asset types.AssetInfo, amount *uint256.Int, from, to common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return ErrMockTransfer
	}
	m.Transfers = append(m.Transfers, transfer.Transfer{Asset: asset, Amount: *amount, From: from, To: to})
	return nil
}

// Sent returns a copy of the recorded transfers.
func (m *MockSender) Sent() []transfer.Transfer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]transfer.Transfer, len(m.Transfers))
	copy(out, m.Transfers)
	return out
}

// SentTo sums the amounts sent to addr.
func (m *MockSender) SentTo(addr common.Address) uint256.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total uint256.Int
	for _, t := range m.Transfers {
		if t.To == addr {
			total.Add(&total, &t.Amount)
		}
	}
	return total
}

// MockVerifier accepts every permit as the configured account.
type MockVerifier struct {
	Account     common.Address
	Permissions []permit.Permission
	Err         error
}

// Verify implements permit.Verifier.
func (m *MockVerifier) Verify(p permit.Permit, _ common.Address) (*permit.Verified, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	perms := m.Permissions
	if perms == nil {
		perms = p.Params.Permissions
	}
	return &permit.Verified{Account: m.Account, Name: p.Params.PermitName, Permissions: perms}, nil
}

// MockPriceAPI is an httptest server answering GET /latest_price.
type MockPriceAPI struct {
	*httptest.Server
	mu     sync.RWMutex
	prices map[string]oracle.PriceInfo
}

// NewMockPriceAPI starts the server.
func NewMockPriceAPI() *MockPriceAPI {
	mock := &MockPriceAPI{prices: make(map[string]oracle.PriceInfo)}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/latest_price" {
			http.NotFound(w, r)
			return
		}

		mock.mu.RLock()
		info, ok := mock.prices[r.URL.Query().Get("asset")]
		mock.mu.RUnlock()
		if !ok {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(info)
	})

	mock.Server = httptest.NewServer(handler)
	return mock
}

// SetPrice publishes a price for asset.
func (m *MockPriceAPI) SetPrice(asset types.AssetInfo, price decimal.Decimal, updated uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[asset.Key()] = oracle.PriceInfo{Price: price, LastUpdated: updated}
}
