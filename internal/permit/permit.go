// Package permit implements signed query permits: an account signs a
// statement granting read permissions, and anyone holding the signed
// statement can query on that account's behalf.
package permit

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	json "github.com/goccy/go-json"
)

var (
	ErrWrongChain         = errors.New("permit signed for another chain")
	ErrContractNotAllowed = errors.New("permit does not cover this contract")
	ErrBadSignature       = errors.New("invalid permit signature")
	ErrMissingName        = errors.New("permit name cannot be empty")
)

// Permission is a right granted by a permit.
type Permission string

const (
	PermissionOwner     Permission = "owner"
	PermissionBalance   Permission = "balance"
	PermissionHistory   Permission = "history"
	PermissionAllowance Permission = "allowance"
)

// Params is the signed part of a permit.
type Params struct {
	PermitName    string       `json:"permit_name"`
	AllowedTokens []string     `json:"allowed_tokens"`
	ChainID       string       `json:"chain_id"`
	Permissions   []Permission `json:"permissions"`
}

// Permit is Params plus the owner's signature over them.
type Permit struct {
	Params    Params `json:"params"`
	Signature string `json:"signature"`
}

// Verified is what a successful verification yields.
type Verified struct {
	Account     common.Address
	Name        string
	Permissions []Permission
}

// Has reports whether p was granted.
func (v *Verified) Has(p Permission) bool {
	for _, granted := range v.Permissions {
		if granted == p {
			return true
		}
	}
	return false
}

// Verifier checks a permit against the contract it is presented to.
type Verifier interface {
	Verify(p Permit, contract common.Address) (*Verified, error)
}

// SignBytes is the canonical message a permit signature covers.
func (p Params) SignBytes() ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode permit params: %w", err)
	}
	return data, nil
}

// Sign produces a permit for params signed with key (EIP-191 personal sign).
func Sign(params Params, key *ecdsa.PrivateKey) (Permit, error) {
	msg, err := params.SignBytes()
	if err != nil {
		return Permit{}, err
	}

	sig, err := crypto.Sign(accounts.TextHash(msg), key)
	if err != nil {
		return Permit{}, fmt.Errorf("sign permit: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27

	return Permit{Params: params, Signature: hexutil.Encode(sig)}, nil
}

// EthVerifier verifies permits signed with secp256k1 keys.
type EthVerifier struct {
	chainID string
}

// NewEthVerifier creates a verifier bound to chainID.
func NewEthVerifier(chainID string) *EthVerifier {
	return &EthVerifier{chainID: chainID}
}

// Verify recovers the signing account and checks the permit scope.
func (v *EthVerifier) Verify(p Permit, contract common.Address) (*Verified, error) {
	if strings.TrimSpace(p.Params.PermitName) == "" {
		return nil, ErrMissingName
	}
	if p.Params.ChainID != v.chainID {
		return nil, fmt.Errorf("%w: %q", ErrWrongChain, p.Params.ChainID)
	}
	if !allows(p.Params.AllowedTokens, contract) {
		return nil, fmt.Errorf("%w: %s", ErrContractNotAllowed, contract.Hex())
	}

	msg, err := p.Params.SignBytes()
	if err != nil {
		return nil, err
	}

	account, err := RecoverSigner(msg, p.Signature)
	if err != nil {
		return nil, err
	}

	return &Verified{
		Account:     account,
		Name:        p.Params.PermitName,
		Permissions: p.Params.Permissions,
	}, nil
}

// RecoverSigner returns the address that personal-signed msg.
func RecoverSigner(msg []byte, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		return common.Address{}, ErrBadSignature
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash(msg), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// SignMessage personal-signs msg and returns the hex signature. It is the
// client side of RecoverSigner.
func SignMessage(msg []byte, key *ecdsa.PrivateKey) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash(msg), key)
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

func allows(tokens []string, contract common.Address) bool {
	for _, t := range tokens {
		if common.IsHexAddress(t) && common.HexToAddress(t) == contract {
			return true
		}
	}
	return false
}
