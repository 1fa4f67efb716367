package permit

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var contract = common.HexToAddress("0x00000000000000000000000000000000000c0de1")

func params() Params {
	return Params{
		PermitName:    "my-wallet",
		AllowedTokens: []string{contract.Hex()},
		ChainID:       "secret-4",
		Permissions:   []Permission{PermissionOwner},
	}
}

func TestEthVerifier_RoundTrip(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	p, err := Sign(params(), key)
	require.NoError(t, err)

	v, err := NewEthVerifier("secret-4").Verify(p, contract)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), v.Account)
	assert.Equal(t, "my-wallet", v.Name)
	assert.True(t, v.Has(PermissionOwner))
	assert.False(t, v.Has(PermissionBalance))
}

func TestEthVerifier_Rejections(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	signed, err := Sign(params(), key)
	require.NoError(t, err)

	tests := []struct {
		name     string
		mutate   func(p *Permit)
		contract common.Address
		wantErr  error
	}{
		{
			name:     "wrong-chain",
			mutate:   func(p *Permit) { p.Params.ChainID = "pulsar-3" },
			contract: contract,
			wantErr:  ErrWrongChain,
		},
		{
			name:     "other-contract",
			contract: common.HexToAddress("0xdead"),
			wantErr:  ErrContractNotAllowed,
		},
		{
			name:     "garbage-signature",
			mutate:   func(p *Permit) { p.Signature = "0x1234" },
			contract: contract,
			wantErr:  ErrBadSignature,
		},
		{
			name:     "missing-name",
			mutate:   func(p *Permit) { p.Params.PermitName = " " },
			contract: contract,
			wantErr:  ErrMissingName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := signed
			p.Params.AllowedTokens = append([]string(nil), signed.Params.AllowedTokens...)
			if tt.mutate != nil {
				tt.mutate(&p)
			}
			_, err := NewEthVerifier("secret-4").Verify(p, tt.contract)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEthVerifier_TamperedParamsRecoverAnotherAccount(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	p, err := Sign(params(), key)
	require.NoError(t, err)
	p.Params.Permissions = []Permission{PermissionOwner, PermissionHistory}

	v, err := NewEthVerifier("secret-4").Verify(p, contract)
	if err == nil {
		assert.NotEqual(t, crypto.PubkeyToAddress(key.PublicKey), v.Account)
	}
}

func TestSignMessage_RecoverSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	msg := []byte(`{"op":"claim","epoch":3}`)
	sig, err := SignMessage(msg, key)
	require.NoError(t, err)

	addr, err := RecoverSigner(msg, sig)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), addr)
}
