package types

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Phase is the lifecycle stage of a round. It is derived from timestamps and
// the clock and never stored.
type Phase string

const (
	PhaseScheduled          Phase = "scheduled"
	PhaseBettable           Phase = "bettable"
	PhaseLocked             Phase = "locked"
	PhaseAwaitingSettlement Phase = "awaiting_settlement"
	PhaseSettled            Phase = "settled"
	PhaseRefundable         Phase = "refundable"
	PhaseExpired            Phase = "expired"
)

// Round is one betting window keyed by its epoch.
//
// StartTime < LockTime < EndTime. TotalAmount always equals UpAmount +
// DownAmount. OpenPrice is set at lock, ClosePrice at settlement, and
// ClosePrice never changes once set.
type Round struct {
	Epoch        uint64
	StartTime    uint64
	LockTime     uint64
	EndTime      uint64
	OpenPrice    *decimal.Decimal
	ClosePrice   *decimal.Decimal
	TotalAmount  uint256.Int
	RewardAmount uint256.Int
	UpAmount     uint256.Int
	DownAmount   uint256.Int
	IsGenesis    bool
}

// Bettable reports whether new bets are accepted at now.
func (r *Round) Bettable(now uint64) bool {
	return !r.IsGenesis &&
		r.StartTime <= now &&
		now <= r.LockTime &&
		r.OpenPrice == nil
}

// Executable reports whether the round can be closed at now.
func (r *Round) Executable(now uint64) bool {
	return now >= r.EndTime &&
		(r.IsGenesis || r.OpenPrice != nil) &&
		r.ClosePrice == nil
}

// Expired reports whether the round missed its settlement window.
func (r *Round) Expired(now, grace uint64) bool {
	return r.ClosePrice == nil && now > r.EndTime+grace
}

// OneSided reports whether at least one pool side is empty.
func (r *Round) OneSided() bool {
	return r.UpAmount.IsZero() || r.DownAmount.IsZero()
}

// Push reports whether the round settled with an unchanged price.
func (r *Round) Push() bool {
	return r.OpenPrice != nil && r.ClosePrice != nil && r.OpenPrice.Equal(*r.ClosePrice)
}

// Claimable reports whether winners can be paid out.
func (r *Round) Claimable(now uint64) bool {
	return now >= r.EndTime &&
		r.OpenPrice != nil &&
		r.ClosePrice != nil &&
		!r.OpenPrice.Equal(*r.ClosePrice) &&
		!r.OneSided()
}

// Refundable reports whether every bettor gets their stake back.
func (r *Round) Refundable(now, grace uint64) bool {
	if r.Push() {
		return true
	}
	if r.Expired(now, grace) {
		return true
	}
	return now > r.LockTime && r.OneSided()
}

// Winner returns the winning position of a settled round, or false for a push
// or an unsettled round.
func (r *Round) Winner() (Position, bool) {
	if r.OpenPrice == nil || r.ClosePrice == nil {
		return "", false
	}
	switch r.ClosePrice.Cmp(*r.OpenPrice) {
	case 1:
		return PositionUp, true
	case -1:
		return PositionDown, true
	default:
		return "", false
	}
}

// SideAmount returns the pool total of one side.
func (r *Round) SideAmount(p Position) *uint256.Int {
	if p == PositionUp {
		return &r.UpAmount
	}
	return &r.DownAmount
}

// AddBet grows the total and the matching side by amount.
func (r *Round) AddBet(p Position, amount *uint256.Int) {
	side := r.SideAmount(p)
	side.Add(side, amount)
	r.TotalAmount.Add(&r.TotalAmount, amount)
}

// Phase derives the lifecycle stage at now.
func (r *Round) Phase(now, grace uint64) Phase {
	switch {
	case r.ClosePrice != nil:
		if r.IsGenesis || r.Claimable(now) {
			return PhaseSettled
		}
		return PhaseRefundable
	case r.Expired(now, grace):
		return PhaseExpired
	case !r.IsGenesis && now > r.LockTime && r.OneSided():
		return PhaseRefundable
	case now >= r.EndTime:
		return PhaseAwaitingSettlement
	case r.Bettable(now):
		return PhaseBettable
	case now < r.StartTime:
		return PhaseScheduled
	default:
		return PhaseLocked
	}
}

type roundJSON struct {
	Epoch        uint64           `json:"epoch"`
	StartTime    uint64           `json:"start_time"`
	LockTime     uint64           `json:"lock_time"`
	EndTime      uint64           `json:"end_time"`
	OpenPrice    *decimal.Decimal `json:"open_price,omitempty"`
	ClosePrice   *decimal.Decimal `json:"close_price,omitempty"`
	TotalAmount  string           `json:"total_amount"`
	RewardAmount string           `json:"reward_amount"`
	UpAmount     string           `json:"up_amount"`
	DownAmount   string           `json:"down_amount"`
	IsGenesis    bool             `json:"is_genesis"`
}

func (r Round) MarshalJSON() ([]byte, error) {
	return json.Marshal(roundJSON{
		Epoch:        r.Epoch,
		StartTime:    r.StartTime,
		LockTime:     r.LockTime,
		EndTime:      r.EndTime,
		OpenPrice:    r.OpenPrice,
		ClosePrice:   r.ClosePrice,
		TotalAmount:  r.TotalAmount.Dec(),
		RewardAmount: r.RewardAmount.Dec(),
		UpAmount:     r.UpAmount.Dec(),
		DownAmount:   r.DownAmount.Dec(),
		IsGenesis:    r.IsGenesis,
	})
}

func (r *Round) UnmarshalJSON(data []byte) error {
	var raw roundJSON
	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	amounts := []struct {
		name string
		in   string
		out  *uint256.Int
	}{
		{"total_amount", raw.TotalAmount, &r.TotalAmount},
		{"reward_amount", raw.RewardAmount, &r.RewardAmount},
		{"up_amount", raw.UpAmount, &r.UpAmount},
		{"down_amount", raw.DownAmount, &r.DownAmount},
	}
	for _, a := range amounts {
		v, err := ParseAmount(a.in)
		if err != nil {
			return fmt.Errorf("%s: %w", a.name, err)
		}
		*a.out = v
	}

	r.Epoch = raw.Epoch
	r.StartTime = raw.StartTime
	r.LockTime = raw.LockTime
	r.EndTime = raw.EndTime
	r.OpenPrice = raw.OpenPrice
	r.ClosePrice = raw.ClosePrice
	r.IsGenesis = raw.IsGenesis
	return nil
}
