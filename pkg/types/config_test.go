package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateFeeRate(t *testing.T) {
	tests := []struct {
		name    string
		rate    string
		wantErr bool
	}{
		{name: "zero", rate: "0"},
		{name: "three-percent", rate: "0.03"},
		{name: "one", rate: "1"},
		{name: "negative", rate: "-0.01", wantErr: true},
		{name: "above-one", rate: "1.0001", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFeeRate(decimal.RequireFromString(tt.rate))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFeeRate)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateIntervals(t *testing.T) {
	assert.NoError(t, ValidateIntervals(60, 60))
	assert.ErrorIs(t, ValidateIntervals(60, 61), ErrInvalidGraceInterval)
	assert.ErrorIs(t, ValidateIntervals(0, 0), ErrInvalidInterval)
}

func TestConfig_Apply(t *testing.T) {
	cfg := Config{
		OwnerAddr: common.HexToAddress("0x01"),
		FeeRate:   decimal.RequireFromString("0.03"),
		Interval:  60,
	}

	fee := decimal.RequireFromString("0.05")
	grace := uint64(10)
	updated := cfg.Apply(ConfigUpdate{FeeRate: &fee, GraceInterval: &grace})

	assert.True(t, updated.FeeRate.Equal(fee))
	assert.Equal(t, uint64(10), updated.GraceInterval)
	assert.Equal(t, uint64(60), updated.Interval)
	assert.Equal(t, cfg.OwnerAddr, updated.OwnerAddr)
	assert.True(t, cfg.FeeRate.Equal(decimal.RequireFromString("0.03")), "receiver is not mutated")
}

func TestConfig_Roles(t *testing.T) {
	owner := common.HexToAddress("0x01")
	operator := common.HexToAddress("0x02")
	treasury := common.HexToAddress("0x03")
	cfg := Config{OwnerAddr: owner, OperatorAddr: operator, TreasuryAddr: treasury}

	assert.True(t, cfg.IsAdmin(owner))
	assert.True(t, cfg.IsAdmin(operator))
	assert.False(t, cfg.IsAdmin(treasury))
	assert.True(t, cfg.CanWithdraw(treasury))
	assert.False(t, cfg.CanWithdraw(common.HexToAddress("0x04")))
}

func TestAssetInfo_Validate(t *testing.T) {
	assert.NoError(t, NativeAsset("uscrt").Validate())
	assert.ErrorIs(t, NativeAsset("").Validate(), ErrInvalidAsset)
	assert.NoError(t, TokenAsset(common.HexToAddress("0xabc"), "hash").Validate())
	assert.ErrorIs(t, TokenAsset(common.Address{}, "").Validate(), ErrInvalidAsset)
	assert.ErrorIs(t, AssetInfo{Kind: "nft"}.Validate(), ErrInvalidAsset)
}

func TestKind(t *testing.T) {
	assert.Equal(t, KindState, Kind(fmt.Errorf("bet: %w", ErrNotBettable)))
	assert.Equal(t, KindAuthorization, Kind(ErrUnauthorized))
	assert.Equal(t, KindAuthentication, Kind(ErrInvalidViewingKey))
	assert.Equal(t, KindEconomic, Kind(ErrNothingToClaim))
	assert.Equal(t, KindNotFound, Kind(ErrRoundNotFound))
	assert.Equal(t, KindInconsistent, Kind(fmt.Errorf("commit: %w: %w", ErrUncommittedTransfer, errors.New("disk full"))))
	assert.Equal(t, KindUnknown, Kind(errors.New("boom")))
	assert.Equal(t, KindUnknown, Kind(nil))
}

func TestParsePosition(t *testing.T) {
	p, err := ParsePosition(" UP ")
	assert.NoError(t, err)
	assert.Equal(t, PositionUp, p)

	_, err = ParsePosition("sideways")
	assert.ErrorIs(t, err, ErrInvalidPosition)
}
