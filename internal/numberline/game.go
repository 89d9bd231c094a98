// Package numberline implements the NumberLine duel: two players draft
// arithmetic cards from a shared row and race a single token to a target.
package numberline

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/duelhub/duel/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	// MaxPosition is the right end of the number line.
	MaxPosition   = 50
	centralRowLen = 5
	startingHand  = 2
	maxPlayers    = 2
)

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

var (
	ErrGameFull     = errors.New("game is full")
	ErrNotPlaying   = errors.New("game is not in progress")
	ErrNotYourTurn  = errors.New("not your turn")
	ErrCardNotFound = errors.New("card not found")
	// ErrIllegalMove is returned when a card would push the token off the
	// line. The card goes back to the hand and the turn is still spent.
	ErrIllegalMove = errors.New("illegal move: token would leave the number line")
)

// Game holds the entire state for a single NumberLine room.
// Callers must hold Mu around every method call.
type Game struct {
	ID string
	Mu sync.Mutex

	CreatorName string
	CreatedAt   time.Time

	players    []*models.Player
	centralRow []*models.Card
	deck       []*models.Card

	TokenPosition int
	TargetNumber  int
	MaxPosition   int
	Status        Status
	WinnerID      string

	rng *rand.Rand
	log logrus.FieldLogger
}

// State is the snapshot broadcast to the room after every accepted action.
type State struct {
	Players         []models.Player `json:"players"`
	CurrentPlayerID string          `json:"currentPlayerId"`
	TokenPosition   int             `json:"tokenPosition"`
	TargetNumber    int             `json:"targetNumber"`
	CentralRow      []*models.Card  `json:"centralRow"`
	GameStatus      Status          `json:"gameStatus"`
	WinnerID        string          `json:"winnerId,omitempty"`
	MaxPosition     int             `json:"maxPosition"`
}

// NewGame builds a waiting game with a shuffled deck and a full central row.
func NewGame(id string, rng *rand.Rand, logger logrus.FieldLogger) *Game {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	g := &Game{
		ID:          id,
		CreatedAt:   time.Now(),
		MaxPosition: MaxPosition,
		Status:      StatusWaiting,
		rng:         rng,
		log:         logger.WithField("room", id),
	}
	g.resetBoard()
	return g
}

// resetBoard deals a fresh deck, target and central row, returns the token
// to zero and empties every seated hand.
func (g *Game) resetBoard() {
	g.deck = NewDeck(g.rng)
	g.TargetNumber = newTarget(g.rng)
	g.TokenPosition = 0
	g.centralRow = nil
	g.refillCentralRow()
	for _, p := range g.players {
		p.Hand = []*models.Card{}
	}
}

// refillCentralRow tops the row back up to five cards while the deck lasts.
func (g *Game) refillCentralRow() {
	for len(g.centralRow) < centralRowLen && len(g.deck) > 0 {
		g.centralRow = append(g.centralRow, g.drawTop())
	}
}

// drawTop pops the top of the draw pile. Assumes the deck is non-empty.
func (g *Game) drawTop() *models.Card {
	c := g.deck[len(g.deck)-1]
	g.deck = g.deck[:len(g.deck)-1]
	return c
}

// AddPlayer seats a player. When the second player sits down the game starts
// and each player is dealt two cards.
func (g *Game) AddPlayer(id, name string) error {
	if len(g.players) >= maxPlayers {
		return ErrGameFull
	}
	g.players = append(g.players, models.NewPlayer(id, name))
	if g.CreatorName == "" {
		g.CreatorName = name
	}
	if len(g.players) == maxPlayers {
		g.start()
	}
	return nil
}

func (g *Game) start() {
	g.Status = StatusPlaying
	g.players[0].IsCurrentPlayer = true
	g.players[1].IsCurrentPlayer = false
	for _, p := range g.players {
		for i := 0; i < startingHand && len(g.deck) > 0; i++ {
			p.AddToHand(g.drawTop())
		}
	}
	g.log.Infof("NumberLine game started, target %d", g.TargetNumber)
}

// RemovePlayer drops a player and puts the room back to waiting. A game
// abandoned mid-play gets a fresh board for the next match; a finished game
// keeps its result.
func (g *Game) RemovePlayer(id string) {
	kept := g.players[:0]
	for _, p := range g.players {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	g.players = kept
	for _, p := range g.players {
		p.IsCurrentPlayer = false
	}
	if g.Status == StatusPlaying {
		g.Status = StatusWaiting
		g.resetBoard()
	}
}

// DraftCard moves a card from the central row into the current player's
// hand, refills the row and passes the turn.
func (g *Game) DraftCard(playerID, cardID string) error {
	p, err := g.actor(playerID)
	if err != nil {
		return err
	}
	idx := -1
	for i, c := range g.centralRow {
		if c.ID == cardID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrCardNotFound
	}

	card := g.centralRow[idx]
	g.centralRow = append(g.centralRow[:idx], g.centralRow[idx+1:]...)
	p.AddToHand(card)
	if len(g.deck) > 0 {
		g.centralRow = append(g.centralRow, g.drawTop())
	}
	g.nextTurn()
	return nil
}

// PlayCard applies a card from hand to the token. An out-of-range result is
// rejected with ErrIllegalMove, the card stays in hand and the turn passes
// anyway. Landing on the target finishes the game without passing the turn.
func (g *Game) PlayCard(playerID, cardID string) error {
	p, err := g.actor(playerID)
	if err != nil {
		return err
	}
	card := p.RemoveFromHand(cardID)
	if card == nil {
		return ErrCardNotFound
	}

	next := card.Apply(g.TokenPosition)
	if next < 0 || next > g.MaxPosition {
		p.AddToHand(card)
		g.nextTurn()
		return ErrIllegalMove
	}

	g.TokenPosition = next
	if g.TokenPosition == g.TargetNumber {
		g.Status = StatusFinished
		g.WinnerID = playerID
		g.log.Infof("Player %s reached %d and wins", playerID, g.TargetNumber)
		return nil
	}
	g.nextTurn()
	return nil
}

// actor validates that playerID may act right now.
func (g *Game) actor(playerID string) (*models.Player, error) {
	if g.Status != StatusPlaying {
		return nil, ErrNotPlaying
	}
	p := g.Player(playerID)
	if p == nil || !p.IsCurrentPlayer {
		return nil, ErrNotYourTurn
	}
	return p, nil
}

// nextTurn flips both flags together; with exactly two players that hands the
// turn to the other one.
func (g *Game) nextTurn() {
	for _, p := range g.players {
		p.IsCurrentPlayer = !p.IsCurrentPlayer
	}
}

// Player returns the seated player with the given id, or nil.
func (g *Game) Player(id string) *models.Player {
	for _, p := range g.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (g *Game) PlayerCount() int { return len(g.players) }

// CurrentPlayerID returns the id of the player whose turn it is, or "".
func (g *Game) CurrentPlayerID() string {
	for _, p := range g.players {
		if p.IsCurrentPlayer {
			return p.ID
		}
	}
	return ""
}

// Joinable reports whether the room should appear in the lobby list.
func (g *Game) Joinable() bool {
	return g.Status == StatusWaiting && len(g.players) == 1
}

// State returns a copy of the public game state.
func (g *Game) State() State {
	players := make([]models.Player, len(g.players))
	for i, p := range g.players {
		players[i] = *p
		players[i].Hand = append([]*models.Card(nil), p.Hand...)
	}
	return State{
		Players:         players,
		CurrentPlayerID: g.CurrentPlayerID(),
		TokenPosition:   g.TokenPosition,
		TargetNumber:    g.TargetNumber,
		CentralRow:      append([]*models.Card(nil), g.centralRow...),
		GameStatus:      g.Status,
		WinnerID:        g.WinnerID,
		MaxPosition:     g.MaxPosition,
	}
}

// DeckSize is the number of cards left in the draw pile.
func (g *Game) DeckSize() int { return len(g.deck) }
