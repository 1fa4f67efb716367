package prediction

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/updown-rounds/internal/permit"
	"github.com/mselser95/updown-rounds/internal/storage"
	"github.com/mselser95/updown-rounds/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/crypto/hkdf"
)

// ViewingKeyPrefix starts every generated viewing key.
const ViewingKeyPrefix = "api_key_"

const viewingKeySize = 32

func (e *Engine) createViewingKey(ctx context.Context, l *storage.Ledger, env Env, op OpCreateViewingKey, resp *Response) error {
	cfg, err := l.Config(ctx)
	if err != nil {
		return err
	}

	key, err := deriveViewingKey(cfg.PRNGSeed, env, op.Entropy)
	if err != nil {
		return err
	}

	l.SaveViewingKeyHash(env.Sender, hashViewingKey(key))
	resp.ViewingKey = key

	e.logger.Debug("viewing-key-created", zap.String("user", env.Sender.Hex()))
	return nil
}

func (e *Engine) setViewingKey(l *storage.Ledger, env Env, op OpSetViewingKey, resp *Response) error {
	if op.Key == "" {
		return fmt.Errorf("%w: empty key", types.ErrInvalidViewingKey)
	}

	l.SaveViewingKeyHash(env.Sender, hashViewingKey(op.Key))
	resp.ViewingKey = op.Key

	e.logger.Debug("viewing-key-set", zap.String("user", env.Sender.Hex()))
	return nil
}

func (e *Engine) revokePermit(l *storage.Ledger, env Env, op OpRevokePermit, resp *Response) error {
	if op.Name == "" {
		return fmt.Errorf("%w: %v", types.ErrInvalidPayload, permit.ErrMissingName)
	}

	l.RevokePermit(env.Sender, op.Name)
	resp.attr("permit_name", op.Name)

	e.logger.Info("permit-revoked",
		zap.String("user", env.Sender.Hex()),
		zap.String("permit-name", op.Name))
	return nil
}

// deriveViewingKey expands the market seed into a key bound to the caller,
// the block and the caller's entropy.
func deriveViewingKey(seed []byte, env Env, entropy string) (string, error) {
	info := make([]byte, 0, common.AddressLength+16+len(entropy))
	info = append(info, env.Sender.Bytes()...)
	info = binary.BigEndian.AppendUint64(info, env.Time)
	info = binary.BigEndian.AppendUint64(info, env.Height)
	info = append(info, entropy...)

	out := make([]byte, viewingKeySize)
	_, err := io.ReadFull(hkdf.New(sha256.New, seed, nil, info), out)
	if err != nil {
		return "", fmt.Errorf("derive viewing key: %w", err)
	}

	return ViewingKeyPrefix + base64.StdEncoding.EncodeToString(out), nil
}

func hashViewingKey(key string) []byte {
	sum := sha256.Sum256([]byte(key))
	return sum[:]
}

// checkViewingKey compares key with the stored hash in constant time. A
// missing record never matches.
func checkViewingKey(ctx context.Context, l *storage.Ledger, user common.Address, key string) error {
	stored, err := l.ViewingKeyHash(ctx, user)
	if errors.Is(err, storage.ErrNotFound) {
		// Same work as a real comparison.
		subtle.ConstantTimeCompare(hashViewingKey(key), make([]byte, sha256.Size))
		return types.ErrInvalidViewingKey
	}
	if err != nil {
		return fmt.Errorf("load viewing key: %w", err)
	}

	if subtle.ConstantTimeCompare(hashViewingKey(key), stored) != 1 {
		return types.ErrInvalidViewingKey
	}
	return nil
}

// checkPermit verifies p for this market and returns the account it speaks
// for.
func (e *Engine) checkPermit(ctx context.Context, l *storage.Ledger, contract common.Address, p permit.Permit) (common.Address, error) {
	verified, err := e.permits.Verify(p, contract)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", types.ErrPermissionDenied, err)
	}

	revoked, err := l.PermitRevoked(ctx, verified.Account, verified.Name)
	if err != nil {
		return common.Address{}, err
	}
	if revoked {
		return common.Address{}, fmt.Errorf("%w: permit %q was revoked", types.ErrPermissionDenied, verified.Name)
	}

	if !verified.Has(permit.PermissionOwner) {
		return common.Address{}, fmt.Errorf("%w: owner permission required", types.ErrPermissionDenied)
	}

	return verified.Account, nil
}
