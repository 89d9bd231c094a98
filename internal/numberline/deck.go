package numberline

import (
	"fmt"
	"math/rand/v2"

	"github.com/duelhub/duel/internal/models"
)

// NewDeck builds the 15-card NumberLine deck and shuffles it with rng.
// Adds are the common case (two each of +1..+5), subtracts are scarcer and
// multiplies are single copies.
func NewDeck(rng *rand.Rand) []*models.Card {
	cards := make([]*models.Card, 0, 15)
	for v := 1; v <= 5; v++ {
		label := fmt.Sprintf("+%d", v)
		cards = append(cards,
			models.NewCard(label, label, v, models.OpAdd),
			models.NewCard(label, label, v, models.OpAdd),
		)
	}
	for v := 1; v <= 3; v++ {
		cards = append(cards, models.NewCard(fmt.Sprintf("-%d", v), fmt.Sprintf("−%d", v), v, models.OpSubtract))
	}
	cards = append(cards,
		models.NewCard("×2", "×2", 2, models.OpMultiply),
		models.NewCard("×3", "×3", 3, models.OpMultiply),
	)

	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	return cards
}

// newTarget picks the target number in [15,35].
func newTarget(rng *rand.Rand) int {
	return 15 + rng.IntN(21)
}
