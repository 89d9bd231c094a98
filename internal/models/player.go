package models

// Player is a NumberLine participant.
type Player struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Hand            []*Card `json:"hand"`
	IsCurrentPlayer bool    `json:"isCurrentPlayer"`
}

func NewPlayer(id, name string) *Player {
	return &Player{ID: id, Name: name, Hand: []*Card{}}
}

// AddToHand appends a card to the end of the hand.
func (p *Player) AddToHand(c *Card) {
	p.Hand = append(p.Hand, c)
}

// RemoveFromHand removes and returns the card with the given id, or nil if
// the player does not hold it.
func (p *Player) RemoveFromHand(cardID string) *Card {
	for i, c := range p.Hand {
		if c.ID == cardID {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return c
		}
	}
	return nil
}

// HasCard reports whether the card is in the player's hand.
func (p *Player) HasCard(cardID string) bool {
	for _, c := range p.Hand {
		if c.ID == cardID {
			return true
		}
	}
	return false
}
