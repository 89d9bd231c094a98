package goose

import "github.com/duelhub/duel/internal/models"

// PlayerView is a player as seen by one viewer. Opponents' hands are hidden
// and only their size is shown.
type PlayerView struct {
	models.GoosePlayer
	HandSize int `json:"handSize"`
}

// State is the gooseGameState payload for a single viewer.
type State struct {
	GameID          string              `json:"gameId"`
	Players         []PlayerView        `json:"players"`
	CurrentPlayerID string              `json:"currentPlayerId"`
	Board           []models.BoardSpace `json:"board"`
	PlacedTraps     []models.PlacedTrap `json:"placedTraps"`
	BoardLength     int                 `json:"boardLength"`
	TurnNumber      int                 `json:"turnNumber"`
	Phase           Phase               `json:"phase"`
	GameStatus      Status              `json:"gameStatus"`
	WinnerID        string              `json:"winnerId,omitempty"`
	LastAction      string              `json:"lastAction"`
	DeckSize        int                 `json:"deckSize"`
}

// StateFor builds the state visible to viewerID. Traps the viewer cannot
// see are left out.
func (g *Game) StateFor(viewerID string) State {
	viewer := g.Player(viewerID)

	players := make([]PlayerView, len(g.players))
	for i, p := range g.players {
		v := PlayerView{GoosePlayer: *p, HandSize: len(p.Hand)}
		v.ActiveEffects = append([]models.Effect{}, p.ActiveEffects...)
		if p.ID == viewerID {
			v.Hand = append([]*models.GooseCard{}, p.Hand...)
		} else {
			v.Hand = []*models.GooseCard{}
		}
		players[i] = v
	}

	traps := []models.PlacedTrap{}
	for _, t := range g.placedTraps {
		if t.VisibleTo(viewer) {
			traps = append(traps, *t)
		}
	}

	return State{
		GameID:          g.ID,
		Players:         players,
		CurrentPlayerID: g.CurrentPlayerID(),
		Board:           g.board,
		PlacedTraps:     traps,
		BoardLength:     g.BoardLength,
		TurnNumber:      g.TurnNumber,
		Phase:           g.Phase,
		GameStatus:      g.Status,
		WinnerID:        g.WinnerID,
		LastAction:      g.LastAction,
		DeckSize:        len(g.deck),
	}
}
