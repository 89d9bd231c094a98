package models

import "github.com/google/uuid"

// Operation is the arithmetic a NumberLine card applies to the token.
type Operation string

const (
	OpAdd      Operation = "add"
	OpSubtract Operation = "subtract"
	OpMultiply Operation = "multiply"
)

// Card is an immutable NumberLine card. A card lives in exactly one
// container at a time: the deck, the central row, or a player's hand.
type Card struct {
	ID           string    `json:"id"`
	Value        string    `json:"value"` // e.g. "+3", "×2", "-1"
	Display      string    `json:"display"`
	NumericValue int       `json:"numericValue"`
	Operation    Operation `json:"operation"`
}

// NewCard builds a card with a fresh random id.
func NewCard(value, display string, numeric int, op Operation) *Card {
	return &Card{
		ID:           uuid.NewString(),
		Value:        value,
		Display:      display,
		NumericValue: numeric,
		Operation:    op,
	}
}

// Apply returns the token position after playing this card from pos.
func (c *Card) Apply(pos int) int {
	switch c.Operation {
	case OpAdd:
		return pos + c.NumericValue
	case OpSubtract:
		return pos - c.NumericValue
	case OpMultiply:
		return pos * c.NumericValue
	}
	return pos
}
