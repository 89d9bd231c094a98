package goose

import (
	"fmt"
	"math/rand/v2"

	"github.com/duelhub/duel/internal/models"
)

// catalog holds the template for every card key. Ids are assigned when the
// deck is built.
var catalog = map[string]models.GooseCard{
	"move3":  {Kind: models.KindMovement, Name: "Move 3", Emoji: "🚶", Description: "Move 3 spaces forward", MoveSpaces: 3},
	"move4":  {Kind: models.KindMovement, Name: "Move 4", Emoji: "🏃", Description: "Move 4 spaces forward", MoveSpaces: 4},
	"move5":  {Kind: models.KindMovement, Name: "Move 5", Emoji: "🏃‍♂️", Description: "Move 5 spaces forward", MoveSpaces: 5},
	"move6":  {Kind: models.KindMovement, Name: "Move 6", Emoji: "💨", Description: "Move 6 spaces forward", MoveSpaces: 6},
	"move8":  {Kind: models.KindMovement, Name: "Move 8", Emoji: "⚡", Description: "Move 8 spaces forward", MoveSpaces: 8},
	"move10": {Kind: models.KindMovement, Name: "Move 10", Emoji: "🚀", Description: "Move 10 spaces forward", MoveSpaces: 10},

	"pitfall": {Kind: models.KindTrap, Name: "Pitfall", Emoji: "🕳️", Description: "Send opponent back 5 spaces", TrapType: models.TrapPitfall, TrapDuration: 5},
	"ice":     {Kind: models.KindTrap, Name: "Ice Block", Emoji: "🧊", Description: "Freeze opponent for 1 turn", TrapType: models.TrapIce, TrapDuration: 5},
	"swap":    {Kind: models.KindTrap, Name: "Swap Portal", Emoji: "🔄", Description: "Force position swap", TrapType: models.TrapSwap, TrapDuration: 5},
	"reverse": {Kind: models.KindTrap, Name: "Reverse", Emoji: "↩️", Description: "Opponent moves backward", TrapType: models.TrapReverse, TrapDuration: 3},
	"net":     {Kind: models.KindTrap, Name: "Net Trap", Emoji: "🕸️", Description: "Opponent loses next turn", TrapType: models.TrapNet, TrapDuration: 5},
	"bomb":    {Kind: models.KindTrap, Name: "Bomb", Emoji: "💣", Description: "Send opponent to start", TrapType: models.TrapBomb, TrapDuration: 5},

	"sprint":     {Kind: models.KindBoost, Name: "Sprint", Emoji: "🏃", Description: "Move +3 extra spaces", BoostType: models.BoostSprint, BoostValue: 3},
	"teleport":   {Kind: models.KindBoost, Name: "Teleport", Emoji: "✨", Description: "Jump to any space within 10", BoostType: models.BoostTeleport, BoostValue: 10},
	"double":     {Kind: models.KindBoost, Name: "Double Move", Emoji: "⏭️", Description: "Take two turns", BoostType: models.BoostDouble, BoostValue: 2},
	"shield":     {Kind: models.KindBoost, Name: "Shield", Emoji: "🛡️", Description: "Immune to next trap", BoostType: models.BoostShield, BoostValue: 1},
	"gooseBoost": {Kind: models.KindBoost, Name: "Goose Boost", Emoji: "🦢", Description: "Jump to next Goose space", BoostType: models.BoostGoose},

	"detector": {Kind: models.KindPowerUp, Name: "Trap Detector", Emoji: "🔍", Description: "See all traps for 3 turns", PowerUpType: models.PowerUpDetector, PowerUpDuration: 3},
	"removal":  {Kind: models.KindPowerUp, Name: "Trap Removal", Emoji: "🧹", Description: "Remove 1 trap from board", PowerUpType: models.PowerUpRemoval, PowerUpDuration: 1},
	"steal":    {Kind: models.KindPowerUp, Name: "Steal Card", Emoji: "🃏", Description: "Take random card from opponent", PowerUpType: models.PowerUpSteal, PowerUpDuration: 1},
	"undo":     {Kind: models.KindPowerUp, Name: "Undo", Emoji: "↶", Description: "Reverse last move", PowerUpType: models.PowerUpUndo, PowerUpDuration: 1},
	"mirror":   {Kind: models.KindPowerUp, Name: "Mirror", Emoji: "🪞", Description: "Reflect trap back", PowerUpType: models.PowerUpMirror, PowerUpDuration: 1},
}

// deckMix is how many cards of each kind go into a fresh deck and which
// catalog keys they are drawn from.
var deckMix = []struct {
	count int
	keys  []string
}{
	{40, []string{"move3", "move4", "move5", "move6", "move8", "move10"}},
	{30, []string{"pitfall", "ice", "swap", "reverse", "net", "bomb"}},
	{20, []string{"sprint", "teleport", "double", "shield", "gooseBoost"}},
	{10, []string{"detector", "removal", "steal", "undo", "mirror"}},
}

// DeckSize is the number of cards in a fresh goose deck.
const DeckSize = 100

// NewDeck builds a shuffled 100-card deck: 40% movement, 30% traps, 20%
// boosts and 10% power-ups, each slot picked uniformly from its catalog.
func NewDeck(rng *rand.Rand) []*models.GooseCard {
	deck := make([]*models.GooseCard, 0, DeckSize)
	n := 0
	for _, mix := range deckMix {
		for i := 0; i < mix.count; i++ {
			card := catalog[mix.keys[rng.IntN(len(mix.keys))]]
			card.ID = fmt.Sprintf("card-%d", n)
			n++
			deck = append(deck, &card)
		}
	}
	shuffle(rng, deck)
	return deck
}

func shuffle(rng *rand.Rand, cards []*models.GooseCard) {
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}

// Card returns a copy of a catalog card with the given id. Used by tests and
// tooling that need a specific card in hand.
func Card(key, id string) *models.GooseCard {
	c, ok := catalog[key]
	if !ok {
		return nil
	}
	c.ID = id
	return &c
}
