package types

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/holiman/uint256"
)

// Bet is one user's wager on one round.
type Bet struct {
	Amount   uint256.Int
	Position Position
	Claimed  bool
}

type betJSON struct {
	Amount   string   `json:"amount"`
	Position Position `json:"position"`
	Claimed  bool     `json:"claimed"`
}

func (b Bet) MarshalJSON() ([]byte, error) {
	return json.Marshal(betJSON{
		Amount:   b.Amount.Dec(),
		Position: b.Position,
		Claimed:  b.Claimed,
	})
}

func (b *Bet) UnmarshalJSON(data []byte) error {
	var raw betJSON
	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	amount, err := ParseAmount(raw.Amount)
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	if !raw.Position.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPosition, raw.Position)
	}

	b.Amount = amount
	b.Position = raw.Position
	b.Claimed = raw.Claimed
	return nil
}
