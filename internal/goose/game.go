// Package goose implements Goose Duel: a two-player race on a board of
// special spaces, driven by movement, trap, boost and power-up cards.
package goose

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/duelhub/duel/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	maxPlayers   = 2
	maxHand      = 5
	startingHand = 3
	maxTraps     = 3
	// defaultTrapDuration applies when a trap card carries no duration.
	defaultTrapDuration = 5
)

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

type Phase string

const (
	PhaseDraw     Phase = "draw"
	PhaseAction   Phase = "action"
	PhaseFinished Phase = "finished"
)

// ActionResult is returned by every player action and relayed to clients
// as gooseActionResult.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
}

func fail(msg string) ActionResult {
	return ActionResult{Success: false, Message: msg}
}

// Game holds the state of one goose room. Callers must hold Mu around every
// method call.
type Game struct {
	ID string
	Mu sync.Mutex

	CreatorName string
	CreatedAt   time.Time

	BoardLength int
	board       []models.BoardSpace

	players      []*models.GoosePlayer
	currentIndex int
	placedTraps  []*models.PlacedTrap

	deck        []*models.GooseCard
	discardPile []*models.GooseCard

	TurnNumber int
	Phase      Phase
	Status     Status
	WinnerID   string
	LastAction string

	rng *rand.Rand
	log logrus.FieldLogger
}

// NewGame builds a waiting goose game with a fresh board and shuffled deck.
func NewGame(id string, boardLength int, rng *rand.Rand, logger logrus.FieldLogger) *Game {
	if boardLength <= 0 {
		boardLength = DefaultBoardLength
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Game{
		ID:          id,
		CreatedAt:   time.Now(),
		BoardLength: boardLength,
		board:       GenerateBoard(boardLength),
		deck:        NewDeck(rng),
		TurnNumber:  1,
		Phase:       PhaseDraw,
		Status:      StatusWaiting,
		LastAction:  "Game started!",
		rng:         rng,
		log:         logger.WithField("room", id),
	}
}

// AddPlayer seats a player with a three card hand. The first player to sit
// holds the first turn; the second one starts the game.
func (g *Game) AddPlayer(id, name string) bool {
	if len(g.players) >= maxPlayers {
		return false
	}
	first := len(g.players) == 0
	p := &models.GoosePlayer{
		ID:              id,
		Name:            name,
		Token:           models.Token{PlayerID: id, Emoji: "🔵", Color: "blue"},
		Hand:            []*models.GooseCard{},
		ActiveEffects:   []models.Effect{},
		IsCurrentPlayer: first,
	}
	if !first {
		p.Token.Emoji, p.Token.Color = "🔴", "red"
	}
	for i := 0; i < startingHand; i++ {
		g.drawInto(p)
	}
	g.players = append(g.players, p)
	if first {
		g.CreatorName = name
	}
	if len(g.players) == maxPlayers {
		g.Status = StatusPlaying
		g.Phase = PhaseAction
		g.log.Infof("Goose game started between %s and %s", g.players[0].Name, g.players[1].Name)
	}
	return true
}

// drawCard takes the top card, reshuffling the discard pile into the deck
// when the deck runs out. Returns nil when both piles are empty.
func (g *Game) drawCard() *models.GooseCard {
	if len(g.deck) == 0 {
		if len(g.discardPile) == 0 {
			return nil
		}
		g.deck = g.discardPile
		g.discardPile = []*models.GooseCard{}
		shuffle(g.rng, g.deck)
		g.log.Debugf("Reshuffled %d cards from discard into deck", len(g.deck))
	}
	c := g.deck[len(g.deck)-1]
	g.deck = g.deck[:len(g.deck)-1]
	return c
}

// drawInto draws one card into p's hand unless the hand is full. A full hand
// leaves the deck untouched so no card is lost.
func (g *Game) drawInto(p *models.GoosePlayer) bool {
	if len(p.Hand) >= maxHand {
		return false
	}
	c := g.drawCard()
	if c == nil {
		return false
	}
	p.Hand = append(p.Hand, c)
	return true
}

// discard moves the card at idx from p's hand onto the discard pile.
func (g *Game) discard(p *models.GoosePlayer, idx int) *models.GooseCard {
	c := p.TakeCard(idx)
	g.discardPile = append(g.discardPile, c)
	return c
}

// actor checks that playerID may act now and finds the card of the wanted
// kind in their hand.
func (g *Game) actor(playerID, cardID string, kind models.CardKind) (*models.GoosePlayer, int, *ActionResult) {
	p, res := g.turnHolder(playerID)
	if res != nil {
		return nil, -1, res
	}
	idx := p.CardIndex(cardID)
	if idx == -1 {
		r := fail("Card not found!")
		return nil, -1, &r
	}
	if p.Hand[idx].Kind != kind {
		r := fail(fmt.Sprintf("Not a %s card!", kind))
		return nil, -1, &r
	}
	return p, idx, nil
}

func (g *Game) turnHolder(playerID string) (*models.GoosePlayer, *ActionResult) {
	switch g.Status {
	case StatusWaiting:
		r := fail("Waiting for an opponent!")
		return nil, &r
	case StatusFinished:
		r := fail("Game is over!")
		return nil, &r
	}
	p := g.Player(playerID)
	if p == nil || !p.IsCurrentPlayer {
		r := fail("Not your turn!")
		return nil, &r
	}
	return p, nil
}

// finish ends the game with p as the winner.
func (g *Game) finish(p *models.GoosePlayer) ActionResult {
	g.Status = StatusFinished
	g.Phase = PhaseFinished
	g.WinnerID = p.ID
	g.LastAction = fmt.Sprintf("%s wins! 🎉", p.Name)
	g.log.Infof("Player %s reached the finish", p.ID)
	return ActionResult{Success: true, Message: g.LastAction}
}

// endTurn hands the turn to the next player in seat order. A player flagged
// to skip loses the turn and it cascades onward. The new current player
// draws one card, then every trap and effect counter ticks down once.
func (g *Game) endTurn() {
	if g.Status != StatusPlaying || len(g.players) == 0 {
		return
	}
	if cur := g.currentPlayer(); cur != nil {
		cur.IsCurrentPlayer = false
		cur.RemoveEffect(models.EffectDoubleMove)
	}

	g.currentIndex = (g.currentIndex + 1) % len(g.players)
	if g.currentIndex == 0 {
		g.ageTraps()
	}
	next := g.players[g.currentIndex]
	if next.SkipNextTurn {
		next.SkipNextTurn = false
		g.LastAction += fmt.Sprintf(" | %s skips their turn", next.Name)
		g.endTurn()
		return
	}

	next.IsCurrentPlayer = true
	g.drawInto(next)

	for _, p := range g.players {
		p.TickEffects()
	}

	g.TurnNumber++
	g.Phase = PhaseAction
}

// ageTraps counts every trap down once per full round and drops the expired.
func (g *Game) ageTraps() {
	kept := g.placedTraps[:0]
	for _, t := range g.placedTraps {
		t.TurnsRemaining--
		if t.TurnsRemaining > 0 {
			kept = append(kept, t)
		}
	}
	g.placedTraps = kept
}

func (g *Game) currentPlayer() *models.GoosePlayer {
	if g.currentIndex < 0 || g.currentIndex >= len(g.players) {
		return nil
	}
	return g.players[g.currentIndex]
}

// Player returns the seated player with the given id, or nil.
func (g *Game) Player(id string) *models.GoosePlayer {
	for _, p := range g.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (g *Game) opponent(id string) *models.GoosePlayer {
	for _, p := range g.players {
		if p.ID != id {
			return p
		}
	}
	return nil
}

func (g *Game) PlayerCount() int { return len(g.players) }

// PlayerIDs lists seated players in seat order.
func (g *Game) PlayerIDs() []string {
	ids := make([]string, len(g.players))
	for i, p := range g.players {
		ids[i] = p.ID
	}
	return ids
}

// CurrentPlayerID returns the id of the player whose turn it is.
func (g *Game) CurrentPlayerID() string {
	if p := g.currentPlayer(); p != nil {
		return p.ID
	}
	return ""
}

// Joinable reports whether the room should appear in the lobby list.
func (g *Game) Joinable() bool {
	return g.Status == StatusWaiting && len(g.players) == 1
}

// Board returns the immutable board layout.
func (g *Game) Board() []models.BoardSpace { return g.board }

// Traps returns the traps currently on the board.
func (g *Game) Traps() []*models.PlacedTrap { return g.placedTraps }

// CardCount is the number of cards across deck, discard pile and all hands.
func (g *Game) CardCount() int {
	n := len(g.deck) + len(g.discardPile)
	for _, p := range g.players {
		n += len(p.Hand)
	}
	return n
}
