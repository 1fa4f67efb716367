package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	json "github.com/goccy/go-json"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Config is the market configuration, written at initialization and changed
// only through an explicit update.
type Config struct {
	ContractAddr   common.Address  `json:"contract_addr"`
	OwnerAddr      common.Address  `json:"owner_addr"`
	OperatorAddr   common.Address  `json:"operator_addr"`
	TreasuryAddr   common.Address  `json:"treasury_addr"`
	BetAsset       AssetInfo       `json:"bet_asset"`
	OracleAddr     common.Address  `json:"oracle_addr"`
	OracleCodeHash string          `json:"oracle_code_hash"`
	FeeRate        decimal.Decimal `json:"fee_rate"`
	Interval       uint64          `json:"interval"`
	GraceInterval  uint64          `json:"grace_interval"`
	PRNGSeed       []byte          `json:"prng_seed"`
}

// Validate checks the numeric bounds and the bet asset.
func (c *Config) Validate() error {
	err := ValidateFeeRate(c.FeeRate)
	if err != nil {
		return err
	}

	err = ValidateIntervals(c.Interval, c.GraceInterval)
	if err != nil {
		return err
	}

	return c.BetAsset.Validate()
}

// IsAdmin reports whether addr is the owner or the operator.
func (c *Config) IsAdmin(addr common.Address) bool {
	return addr == c.OwnerAddr || addr == c.OperatorAddr
}

// CanWithdraw reports whether addr may move accumulated fees to the treasury.
func (c *Config) CanWithdraw(addr common.Address) bool {
	return c.IsAdmin(addr) || addr == c.TreasuryAddr
}

// ValidateFeeRate rejects rates outside [0, 1].
func ValidateFeeRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w, got %s", ErrInvalidFeeRate, rate.String())
	}
	return nil
}

// ValidateIntervals requires a positive interval and a grace no larger than it.
func ValidateIntervals(interval, grace uint64) error {
	if interval == 0 {
		return ErrInvalidInterval
	}
	if grace > interval {
		return fmt.Errorf("%w: grace %d > interval %d", ErrInvalidGraceInterval, grace, interval)
	}
	return nil
}

// ConfigUpdate carries the fields an update overwrites. Nil fields are kept.
// The bet asset is fixed at initialization.
type ConfigUpdate struct {
	OwnerAddr      *common.Address  `json:"owner_addr,omitempty"`
	OperatorAddr   *common.Address  `json:"operator_addr,omitempty"`
	TreasuryAddr   *common.Address  `json:"treasury_addr,omitempty"`
	OracleAddr     *common.Address  `json:"oracle_addr,omitempty"`
	OracleCodeHash *string          `json:"oracle_code_hash,omitempty"`
	FeeRate        *decimal.Decimal `json:"fee_rate,omitempty"`
	Interval       *uint64          `json:"interval,omitempty"`
	GraceInterval  *uint64          `json:"grace_interval,omitempty"`
}

// Apply returns a copy of c with the supplied fields overwritten.
func (c Config) Apply(u ConfigUpdate) Config {
	if u.OwnerAddr != nil {
		c.OwnerAddr = *u.OwnerAddr
	}
	if u.OperatorAddr != nil {
		c.OperatorAddr = *u.OperatorAddr
	}
	if u.TreasuryAddr != nil {
		c.TreasuryAddr = *u.TreasuryAddr
	}
	if u.OracleAddr != nil {
		c.OracleAddr = *u.OracleAddr
	}
	if u.OracleCodeHash != nil {
		c.OracleCodeHash = *u.OracleCodeHash
	}
	if u.FeeRate != nil {
		c.FeeRate = *u.FeeRate
	}
	if u.Interval != nil {
		c.Interval = *u.Interval
	}
	if u.GraceInterval != nil {
		c.GraceInterval = *u.GraceInterval
	}
	return c
}

// State is the mutable market singleton.
type State struct {
	Epoch    uint64
	TotalFee uint256.Int
	Paused   bool
}

type stateJSON struct {
	Epoch    uint64 `json:"epoch"`
	TotalFee string `json:"total_fee"`
	Paused   bool   `json:"paused"`
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateJSON{
		Epoch:    s.Epoch,
		TotalFee: s.TotalFee.Dec(),
		Paused:   s.Paused,
	})
}

func (s *State) UnmarshalJSON(data []byte) error {
	var raw stateJSON
	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	fee, err := ParseAmount(raw.TotalFee)
	if err != nil {
		return fmt.Errorf("total_fee: %w", err)
	}

	s.Epoch = raw.Epoch
	s.TotalFee = fee
	s.Paused = raw.Paused
	return nil
}

// ParseAmount parses a base-10 amount. The empty string is zero.
func ParseAmount(s string) (uint256.Int, error) {
	if s == "" {
		return uint256.Int{}, nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return uint256.Int{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return *v, nil
}
