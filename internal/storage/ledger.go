package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	json "github.com/goccy/go-json"
	"github.com/mselser95/updown-rounds/pkg/types"
)

var (
	configKey         = []byte("config")
	stateKey          = []byte("state")
	roundPrefix       = []byte("round/")
	betPrefix         = []byte("bet/")
	viewingKeyPrefix  = []byte("viewingkey/")
	revokedPrefix     = []byte("revoked_permits/")
	balancePrefix     = []byte("balance/")
	revokedPermitMark = []byte{1}
)

// Ledger is the typed view of the market records inside one Txn.
type Ledger struct {
	txn *Txn
}

// NewLedger wraps txn.
func NewLedger(txn *Txn) *Ledger {
	return &Ledger{txn: txn}
}

// HasConfig reports whether the market was initialized.
func (l *Ledger) HasConfig(ctx context.Context) (bool, error) {
	_, err := l.txn.Get(ctx, configKey)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load config: %w", err)
	}
	return true, nil
}

// Config loads the config singleton.
func (l *Ledger) Config(ctx context.Context) (*types.Config, error) {
	var cfg types.Config
	err := l.load(ctx, configKey, &cfg)
	if errors.Is(err, ErrNotFound) {
		return nil, types.ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// SaveConfig stores the config singleton.
func (l *Ledger) SaveConfig(cfg *types.Config) error {
	return l.store(configKey, cfg)
}

// State loads the state singleton.
func (l *Ledger) State(ctx context.Context) (*types.State, error) {
	var st types.State
	err := l.load(ctx, stateKey, &st)
	if errors.Is(err, ErrNotFound) {
		return nil, types.ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	return &st, nil
}

// SaveState stores the state singleton.
func (l *Ledger) SaveState(st *types.State) error {
	return l.store(stateKey, st)
}

// Round loads the round stored under epoch.
func (l *Ledger) Round(ctx context.Context, epoch uint64) (*types.Round, error) {
	var r types.Round
	err := l.load(ctx, RoundKey(epoch), &r)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: epoch %d", types.ErrRoundNotFound, epoch)
	}
	if err != nil {
		return nil, fmt.Errorf("load round %d: %w", epoch, err)
	}
	r.Epoch = epoch
	return &r, nil
}

// SaveRound stores r under its epoch.
func (l *Ledger) SaveRound(r *types.Round) error {
	return l.store(RoundKey(r.Epoch), r)
}

// Bet loads the bet user placed on epoch.
func (l *Ledger) Bet(ctx context.Context, epoch uint64, user common.Address) (*types.Bet, error) {
	var b types.Bet
	err := l.load(ctx, BetKey(epoch, user), &b)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: epoch %d", types.ErrBetNotFound, epoch)
	}
	if err != nil {
		return nil, fmt.Errorf("load bet: %w", err)
	}
	return &b, nil
}

// SaveBet stores the bet user placed on epoch.
func (l *Ledger) SaveBet(epoch uint64, user common.Address, b *types.Bet) error {
	return l.store(BetKey(epoch, user), b)
}

// ViewingKeyHash returns the stored key hash, or ErrNotFound.
func (l *Ledger) ViewingKeyHash(ctx context.Context, user common.Address) ([]byte, error) {
	return l.txn.Get(ctx, ViewingKeyKey(user))
}

// SaveViewingKeyHash replaces the stored key hash for user.
func (l *Ledger) SaveViewingKeyHash(user common.Address, hash []byte) {
	l.txn.Put(ViewingKeyKey(user), hash)
}

// PermitRevoked reports whether user revoked the permit called name.
func (l *Ledger) PermitRevoked(ctx context.Context, user common.Address, name string) (bool, error) {
	_, err := l.txn.Get(ctx, RevokedPermitKey(user, name))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load permit revocation: %w", err)
	}
	return true, nil
}

// RevokePermit records name as revoked for user.
func (l *Ledger) RevokePermit(user common.Address, name string) {
	l.txn.Put(RevokedPermitKey(user, name), revokedPermitMark)
}

func (l *Ledger) load(ctx context.Context, key []byte, v any) error {
	data, err := l.txn.Get(ctx, key)
	if err != nil {
		return err
	}
	err = json.Unmarshal(data, v)
	if err != nil {
		return fmt.Errorf("decode %s: %w", DescribeKey(key), err)
	}
	return nil
}

func (l *Ledger) store(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", DescribeKey(key), err)
	}
	l.txn.Put(key, data)
	return nil
}

// RoundKey is round/<be64 epoch>.
func RoundKey(epoch uint64) []byte {
	return binary.BigEndian.AppendUint64(append([]byte(nil), roundPrefix...), epoch)
}

// BetKey is bet/<addr20><be64 epoch>.
func BetKey(epoch uint64, user common.Address) []byte {
	key := append([]byte(nil), betPrefix...)
	key = append(key, user.Bytes()...)
	return binary.BigEndian.AppendUint64(key, epoch)
}

// ViewingKeyKey is viewingkey/<addr20>.
func ViewingKeyKey(user common.Address) []byte {
	return append(append([]byte(nil), viewingKeyPrefix...), user.Bytes()...)
}

// RevokedPermitKey is revoked_permits/<addr20>/<name>.
func RevokedPermitKey(user common.Address, name string) []byte {
	key := append([]byte(nil), revokedPrefix...)
	key = append(key, user.Bytes()...)
	key = append(key, '/')
	return append(key, name...)
}

// BalanceKey is balance/<addr20>/<asset key>.
func BalanceKey(assetKey string, addr common.Address) []byte {
	key := append([]byte(nil), balancePrefix...)
	key = append(key, addr.Bytes()...)
	key = append(key, '/')
	return append(key, assetKey...)
}

// DescribeKey renders a binary key for logs.
func DescribeKey(key []byte) string {
	switch {
	case bytes.Equal(key, configKey), bytes.Equal(key, stateKey):
		return string(key)
	case bytes.HasPrefix(key, roundPrefix) && len(key) == len(roundPrefix)+8:
		return fmt.Sprintf("round/%d", binary.BigEndian.Uint64(key[len(roundPrefix):]))
	case bytes.HasPrefix(key, betPrefix) && len(key) == len(betPrefix)+common.AddressLength+8:
		rest := key[len(betPrefix):]
		return fmt.Sprintf("bet/%s/%d",
			common.BytesToAddress(rest[:common.AddressLength]).Hex(),
			binary.BigEndian.Uint64(rest[common.AddressLength:]))
	case bytes.HasPrefix(key, viewingKeyPrefix) && len(key) == len(viewingKeyPrefix)+common.AddressLength:
		return "viewingkey/" + common.BytesToAddress(key[len(viewingKeyPrefix):]).Hex()
	case bytes.HasPrefix(key, revokedPrefix) && len(key) > len(revokedPrefix)+common.AddressLength:
		rest := key[len(revokedPrefix):]
		return fmt.Sprintf("revoked_permits/%s%s",
			common.BytesToAddress(rest[:common.AddressLength]).Hex(),
			rest[common.AddressLength:])
	case bytes.HasPrefix(key, balancePrefix) && len(key) > len(balancePrefix)+common.AddressLength:
		rest := key[len(balancePrefix):]
		return fmt.Sprintf("balance/%s%s",
			common.BytesToAddress(rest[:common.AddressLength]).Hex(),
			rest[common.AddressLength:])
	default:
		return fmt.Sprintf("%x", key)
	}
}
