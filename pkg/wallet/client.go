package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/mselser95/updown-rounds/pkg/types"
	"go.uber.org/zap"
)

const (
	erc20BalanceOfABI = `[{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}]`
	erc20TransferABI  = `[{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"}]`

	// NativeTransferGas is the gas of a plain value transfer.
	NativeTransferGas = uint64(21000)

	// TokenTransferGas covers a standard ERC20 transfer.
	TokenTransferGas = uint64(100000)
)

// Client reads balances from and submits transfers to an EVM chain.
type Client struct {
	rpcURL string
	logger *zap.Logger
}

// NewClient creates a new wallet client.
func NewClient(rpcURL string, logger *zap.Logger) (*Client, error) {
	if rpcURL == "" {
		return nil, errors.New("rpcURL cannot be empty")
	}

	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &Client{rpcURL: rpcURL, logger: logger}, nil
}

// Balance returns the balance of address in asset. Native assets are read
// with eth_getBalance, token assets with balanceOf.
func (c *Client) Balance(ctx context.Context, asset types.AssetInfo, address common.Address) (*big.Int, error) {
	client, err := ethclient.DialContext(ctx, c.rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial RPC: %w", err)
	}
	defer client.Close()

	if asset.IsNative() {
		balance, err := client.BalanceAt(ctx, address, nil)
		if err != nil {
			return nil, fmt.Errorf("get native balance: %w", err)
		}
		return balance, nil
	}

	parsedABI, err := abi.JSON(strings.NewReader(erc20BalanceOfABI))
	if err != nil {
		return nil, fmt.Errorf("parse ABI: %w", err)
	}

	data, err := parsedABI.Pack("balanceOf", address)
	if err != nil {
		return nil, fmt.Errorf("pack ABI: %w", err)
	}

	tokenAddress := asset.ContractAddr
	result, err := client.CallContract(ctx, ethereum.CallMsg{To: &tokenAddress, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call contract: %w", err)
	}

	return new(big.Int).SetBytes(result), nil
}

// Send signs and submits a transfer of amount from the key's address to to.
func (c *Client) Send(
	ctx context.Context,
	key *ecdsa.PrivateKey,
	asset types.AssetInfo,
	to common.Address,
	amount *big.Int,
) (common.Hash, error) {
	client, err := ethclient.DialContext(ctx, c.rpcURL)
	if err != nil {
		return common.Hash{}, fmt.Errorf("dial RPC: %w", err)
	}
	defer client.Close()

	from := crypto.PubkeyToAddress(key.PublicKey)

	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get nonce: %w", err)
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get gas price: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get chain ID: %w", err)
	}

	tx, err := BuildTransfer(nonce, asset, to, amount, gasPrice)
	if err != nil {
		return common.Hash{}, err
	}

	signedTx, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(chainID), key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}

	err = client.SendTransaction(ctx, signedTx)
	if err != nil {
		TransfersSubmittedTotal.WithLabelValues("error").Inc()
		return common.Hash{}, fmt.Errorf("send transaction: %w", err)
	}
	TransfersSubmittedTotal.WithLabelValues("ok").Inc()

	c.logger.Info("transfer-submitted",
		zap.String("tx-hash", signedTx.Hash().Hex()),
		zap.String("asset", asset.String()),
		zap.String("from", from.Hex()),
		zap.String("to", to.Hex()),
		zap.String("amount", amount.String()),
		zap.Uint64("nonce", nonce))

	return signedTx.Hash(), nil
}

// BuildTransfer builds the unsigned transaction moving amount of asset to to.
func BuildTransfer(
	nonce uint64,
	asset types.AssetInfo,
	to common.Address,
	amount *big.Int,
	gasPrice *big.Int,
) (*ethtypes.Transaction, error) {
	if asset.IsNative() {
		return ethtypes.NewTransaction(nonce, to, amount, NativeTransferGas, gasPrice, nil), nil
	}

	parsedABI, err := abi.JSON(strings.NewReader(erc20TransferABI))
	if err != nil {
		return nil, fmt.Errorf("parse ABI: %w", err)
	}

	data, err := parsedABI.Pack("transfer", to, amount)
	if err != nil {
		return nil, fmt.Errorf("pack transfer call: %w", err)
	}

	return ethtypes.NewTransaction(nonce, asset.ContractAddr, big.NewInt(0), TokenTransferGas, gasPrice, data), nil
}
