package types

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// AssetKind distinguishes native coins from token contracts.
type AssetKind string

const (
	AssetNative AssetKind = "native_token"
	AssetToken  AssetKind = "token"
)

// AssetInfo identifies the asset a market is denominated in.
type AssetInfo struct {
	Kind         AssetKind      `json:"kind"`
	Denom        string         `json:"denom,omitempty"`
	ContractAddr common.Address `json:"contract_addr"`
	CodeHash     string         `json:"token_code_hash,omitempty"`
}

// NativeAsset returns the AssetInfo for a native denomination.
func NativeAsset(denom string) AssetInfo {
	return AssetInfo{Kind: AssetNative, Denom: denom}
}

// TokenAsset returns the AssetInfo for a token contract.
func TokenAsset(addr common.Address, codeHash string) AssetInfo {
	return AssetInfo{Kind: AssetToken, ContractAddr: addr, CodeHash: codeHash}
}

// IsNative reports whether the asset is a native coin.
func (a AssetInfo) IsNative() bool {
	return a.Kind == AssetNative
}

// Validate checks that the asset is well formed.
func (a AssetInfo) Validate() error {
	switch a.Kind {
	case AssetNative:
		if strings.TrimSpace(a.Denom) == "" {
			return fmt.Errorf("%w: native asset requires a denom", ErrInvalidAsset)
		}
	case AssetToken:
		if a.ContractAddr == (common.Address{}) {
			return fmt.Errorf("%w: token asset requires a contract address", ErrInvalidAsset)
		}
	default:
		return fmt.Errorf("%w: unknown asset kind %q", ErrInvalidAsset, a.Kind)
	}
	return nil
}

// Key is a stable identifier used to index prices and balances.
func (a AssetInfo) Key() string {
	if a.IsNative() {
		return "native:" + a.Denom
	}
	return "token:" + strings.ToLower(a.ContractAddr.Hex())
}

func (a AssetInfo) String() string {
	if a.IsNative() {
		return a.Denom
	}
	return a.ContractAddr.Hex()
}

// Coin is an amount of a native denomination attached to an operation.
type Coin struct {
	Denom  string
	Amount uint256.Int
}

// NewCoin builds a Coin from a uint64 amount.
func NewCoin(denom string, amount uint64) Coin {
	return Coin{Denom: denom, Amount: *uint256.NewInt(amount)}
}
