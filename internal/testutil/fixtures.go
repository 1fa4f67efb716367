package testutil

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/mselser95/updown-rounds/pkg/types"
	"github.com/shopspring/decimal"
)

// Well-known test accounts.
var (
	ContractAddr = common.HexToAddress("0x00000000000000000000000000000000000c0de1")
	OwnerAddr    = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	OperatorAddr = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	TreasuryAddr = common.HexToAddress("0x000000000000000000000000000000000000feed")
	OracleAddr   = common.HexToAddress("0x00000000000000000000000000000000000047ac")
	TokenAddr    = common.HexToAddress("0x000000000000000000000000000000000000701e")
	Alice        = common.HexToAddress("0x00000000000000000000000000000000000a1ce0")
	Bob          = common.HexToAddress("0x000000000000000000000000000000000000b0b0")
	Carol        = common.HexToAddress("0x00000000000000000000000000000000000ca201")
)

// Denom is the native denom used by test markets.
const Denom = "uscrt"

// NativeAsset returns the native test asset.
func NativeAsset() types.AssetInfo {
	return types.NativeAsset(Denom)
}

// TokenAsset returns the token test asset.
func TokenAsset() types.AssetInfo {
	return types.TokenAsset(TokenAddr, "token-code-hash")
}

// Amount builds a uint256 amount.
func Amount(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// Coins returns funds of v in the test denom.
func Coins(v uint64) []types.Coin {
	return []types.Coin{types.NewCoin(Denom, v)}
}

// Price parses a decimal price and panics on bad input.
func Price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// NewKey generates a fresh secp256k1 key and its address.
func NewKey() (*ecdsa.PrivateKey, common.Address) {
	key, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}
	return key, crypto.PubkeyToAddress(key.PublicKey)
}
