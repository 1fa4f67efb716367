package httpserver

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	json "github.com/goccy/go-json"
	"github.com/holiman/uint256"
	"github.com/mselser95/updown-rounds/internal/prediction"
	"github.com/mselser95/updown-rounds/pkg/types"
	"github.com/shopspring/decimal"
)

// SignatureHeader carries the hex EIP-191 signature over the raw request body.
const SignatureHeader = "X-Signature"

var (
	errMissingSignature = errors.New("missing " + SignatureHeader + " header")
	errSignerMismatch   = errors.New("signature does not match sender")
	errStaleRequest     = errors.New("request timestamp outside the accepted window")
	errReplayed         = errors.New("request already submitted")
)

// FundsJSON is a native coin attached to a transaction.
type FundsJSON struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// Envelope is the part every signed request body carries. Sender must be
// the account that produced the X-Signature header.
type Envelope struct {
	Sender    common.Address `json:"sender"`
	Timestamp int64          `json:"timestamp"`
}

// TxRequest is the body of POST /api/v1/tx. Exactly one field of Msg must
// be set.
type TxRequest struct {
	Envelope
	Funds []FundsJSON `json:"funds,omitempty"`
	Msg   TxMsg       `json:"msg"`
}

// PriceRequest is the body of POST /api/v1/oracle/prices.
type PriceRequest struct {
	Envelope
	Asset     string          `json:"asset"`
	Price     decimal.Decimal `json:"price"`
	UpdatedAt uint64          `json:"updated_at"`
}

// TxMsg is the operation union as it appears on the wire.
type TxMsg struct {
	UpdateConfig      *types.ConfigUpdate `json:"update_config,omitempty"`
	StartGenesisRound *struct{}           `json:"start_genesis_round,omitempty"`
	Bet               *BetMsg             `json:"bet,omitempty"`
	Receive           *ReceiveMsg         `json:"receive,omitempty"`
	ExecuteRound      *struct{}           `json:"execute_round,omitempty"`
	Claim             *ClaimMsg           `json:"claim,omitempty"`
	Withdraw          *struct{}           `json:"withdraw,omitempty"`
	Pause             *struct{}           `json:"pause,omitempty"`
	Unpause           *struct{}           `json:"unpause,omitempty"`
	CreateViewingKey  *CreateKeyMsg       `json:"create_viewing_key,omitempty"`
	SetViewingKey     *SetKeyMsg          `json:"set_viewing_key,omitempty"`
	RevokePermit      *RevokePermitMsg    `json:"revoke_permit,omitempty"`
}

type BetMsg struct {
	Position types.Position `json:"position"`
}

// ReceiveMsg is the token hook. The signer must be the token contract.
type ReceiveMsg struct {
	From   common.Address  `json:"from"`
	Amount string          `json:"amount"`
	Msg    json.RawMessage `json:"msg,omitempty"`
}

type ClaimMsg struct {
	Epoch uint64 `json:"epoch"`
}

type CreateKeyMsg struct {
	Entropy string `json:"entropy"`
}

type SetKeyMsg struct {
	Key string `json:"key"`
}

type RevokePermitMsg struct {
	PermitName string `json:"permit_name"`
}

// Operation converts the wire message into an engine operation.
func (m TxMsg) Operation() (prediction.Operation, error) {
	var ops []prediction.Operation

	if m.UpdateConfig != nil {
		ops = append(ops, prediction.OpUpdateConfig{Update: *m.UpdateConfig})
	}
	if m.StartGenesisRound != nil {
		ops = append(ops, prediction.OpStartGenesisRound{})
	}
	if m.Bet != nil {
		ops = append(ops, prediction.OpBet{Position: m.Bet.Position})
	}
	if m.Receive != nil {
		amount, err := uint256.FromDecimal(m.Receive.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: receive amount %q", types.ErrInvalidPayload, m.Receive.Amount)
		}
		ops = append(ops, prediction.OpReceive{From: m.Receive.From, Amount: *amount, Msg: m.Receive.Msg})
	}
	if m.ExecuteRound != nil {
		ops = append(ops, prediction.OpExecuteRound{})
	}
	if m.Claim != nil {
		ops = append(ops, prediction.OpClaim{Epoch: m.Claim.Epoch})
	}
	if m.Withdraw != nil {
		ops = append(ops, prediction.OpWithdraw{})
	}
	if m.Pause != nil {
		ops = append(ops, prediction.OpPause{})
	}
	if m.Unpause != nil {
		ops = append(ops, prediction.OpUnpause{})
	}
	if m.CreateViewingKey != nil {
		ops = append(ops, prediction.OpCreateViewingKey{Entropy: m.CreateViewingKey.Entropy})
	}
	if m.SetViewingKey != nil {
		ops = append(ops, prediction.OpSetViewingKey{Key: m.SetViewingKey.Key})
	}
	if m.RevokePermit != nil {
		ops = append(ops, prediction.OpRevokePermit{Name: m.RevokePermit.PermitName})
	}

	if len(ops) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one message, got %d", types.ErrUnknownOperation, len(ops))
	}
	return ops[0], nil
}

// Coins converts the attached funds.
func (r TxRequest) Coins() ([]types.Coin, error) {
	coins := make([]types.Coin, 0, len(r.Funds))
	for _, f := range r.Funds {
		amount, err := uint256.FromDecimal(f.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: funds amount %q", types.ErrInvalidAsset, f.Amount)
		}
		coins = append(coins, types.Coin{Denom: f.Denom, Amount: *amount})
	}
	return coins, nil
}

// fresh reports whether the request timestamp is within skew of now.
func (r Envelope) fresh(now time.Time, skew time.Duration) bool {
	d := now.Sub(time.Unix(r.Timestamp, 0))
	if d < 0 {
		d = -d
	}
	return d <= skew
}
