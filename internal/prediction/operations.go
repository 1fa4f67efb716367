package prediction

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/mselser95/updown-rounds/pkg/types"
)

// Action names reported in the "action" attribute.
const (
	ActionUpdateConfig      = "update_config"
	ActionStartGenesisRound = "start_genesis_round"
	ActionBet               = "bet"
	ActionExecuteRound      = "execute_round"
	ActionClaim             = "claim"
	ActionWithdraw          = "withdraw"
	ActionPause             = "pause"
	ActionUnpause           = "unpause"
	ActionCreateViewingKey  = "create_viewing_key"
	ActionSetViewingKey     = "set_viewing_key"
	ActionRevokePermit      = "revoke_permit"
)

// Operation is a state-changing market message. The set of implementations
// is closed; see Engine.dispatch.
type Operation interface {
	action() string
}

// OpUpdateConfig overwrites the supplied config fields.
type OpUpdateConfig struct {
	Update types.ConfigUpdate
}

// OpStartGenesisRound opens the genesis round and the first bettable round.
type OpStartGenesisRound struct{}

// OpBet places a bet paid with native funds attached in Env.Funds.
type OpBet struct {
	Position types.Position
}

// OpReceive is the token transfer hook. Env.Sender is the token contract,
// From the account that sent Amount, and Msg the JSON bet instruction.
type OpReceive struct {
	From   common.Address
	Amount uint256.Int
	Msg    []byte
}

// ReceiveMsg is the payload carried by OpReceive.
type ReceiveMsg struct {
	Bet *struct {
		Position types.Position `json:"position"`
	} `json:"bet"`
}

// OpExecuteRound settles the finishing round, locks the current one and
// opens the next.
type OpExecuteRound struct{}

// OpClaim pays out or refunds the caller's bet on Epoch.
type OpClaim struct {
	Epoch uint64
}

// OpWithdraw sends accumulated fees to the treasury.
type OpWithdraw struct{}

// OpPause stops new bets.
type OpPause struct{}

// OpUnpause resumes betting.
type OpUnpause struct{}

// OpCreateViewingKey derives and stores a fresh viewing key for the caller.
type OpCreateViewingKey struct {
	Entropy string
}

// OpSetViewingKey stores a caller-chosen viewing key.
type OpSetViewingKey struct {
	Key string
}

// OpRevokePermit revokes the caller's permit called Name.
type OpRevokePermit struct {
	Name string
}

func (OpUpdateConfig) action() string      { return ActionUpdateConfig }
func (OpStartGenesisRound) action() string { return ActionStartGenesisRound }
func (OpBet) action() string               { return ActionBet }
func (OpReceive) action() string           { return ActionBet }
func (OpExecuteRound) action() string      { return ActionExecuteRound }
func (OpClaim) action() string             { return ActionClaim }
func (OpWithdraw) action() string          { return ActionWithdraw }
func (OpPause) action() string             { return ActionPause }
func (OpUnpause) action() string           { return ActionUnpause }
func (OpCreateViewingKey) action() string  { return ActionCreateViewingKey }
func (OpSetViewingKey) action() string     { return ActionSetViewingKey }
func (OpRevokePermit) action() string      { return ActionRevokePermit }
