package transfer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/mselser95/updown-rounds/pkg/types"
	"go.uber.org/zap"
)

// ChainSubmitter submits signed transfers. Implemented by wallet.Client.
type ChainSubmitter interface {
	Send(ctx context.Context, key *ecdsa.PrivateKey, asset types.AssetInfo, to common.Address, amount *big.Int) (common.Hash, error)
}

// EVMSender pays out from a hot wallet on an EVM chain. The market account
// is the hot wallet address.
type EVMSender struct {
	chain   ChainSubmitter
	key     *ecdsa.PrivateKey
	address common.Address
	logger  *zap.Logger
}

// EVMConfig holds EVMSender configuration.
type EVMConfig struct {
	Chain         ChainSubmitter
	PrivateKeyHex string
	Logger        *zap.Logger
}

// NewEVMSender parses the hot wallet key.
func NewEVMSender(cfg *EVMConfig) (*EVMSender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Chain == nil {
		return nil, fmt.Errorf("chain client cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	key, err := crypto.HexToECDSA(trimHexPrefix(cfg.PrivateKeyHex))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	return &EVMSender{
		chain:   cfg.Chain,
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		logger:  cfg.Logger,
	}, nil
}

// Address is the hot wallet address.
func (s *EVMSender) Address() common.Address {
	return s.address
}

// Send implements Sender. Only transfers out of the hot wallet can be signed.
func (s *EVMSender) Send(ctx context.Context, asset types.AssetInfo, amount *uint256.Int, from, to common.Address) error {
	if from != s.address {
		TransfersTotal.WithLabelValues("evm", "wrong_sender").Inc()
		return fmt.Errorf("%w: %s", ErrWrongSender, from.Hex())
	}

	hash, err := s.chain.Send(ctx, s.key, asset, to, amount.ToBig())
	if err != nil {
		TransfersTotal.WithLabelValues("evm", "error").Inc()
		return fmt.Errorf("submit transfer: %w", err)
	}

	TransfersTotal.WithLabelValues("evm", "ok").Inc()
	s.logger.Info("payout-submitted",
		zap.String("tx-hash", hash.Hex()),
		zap.String("to", to.Hex()),
		zap.String("amount", amount.Dec()))

	return nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
