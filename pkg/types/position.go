package types

import (
	"fmt"
	"strings"
)

// Position is the direction a bet wagers the price will move.
type Position string

const (
	PositionUp   Position = "up"
	PositionDown Position = "down"
)

// ParsePosition accepts "up" or "down" in any case.
func ParsePosition(s string) (Position, error) {
	switch Position(strings.ToLower(strings.TrimSpace(s))) {
	case PositionUp:
		return PositionUp, nil
	case PositionDown:
		return PositionDown, nil
	default:
		return "", fmt.Errorf("%w: unknown position %q", ErrInvalidPosition, s)
	}
}

// Valid reports whether p is one of the two known positions.
func (p Position) Valid() bool {
	return p == PositionUp || p == PositionDown
}
