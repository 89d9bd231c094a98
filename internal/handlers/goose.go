package handlers

import (
	"github.com/duelhub/duel/internal/goose"
	"github.com/sirupsen/logrus"
)

type gooseRoom struct {
	GameID    string      `json:"gameId"`
	GameState goose.State `json:"gameState"`
}

func (h *Hub) createGoose(cl *client, p Payload) {
	code := h.newCode()
	k := roomKey{kindGoose, code}
	g := goose.NewGame(code, h.cfg.GooseBoardLength, newRNG(), h.log)

	g.Mu.Lock()
	g.AddPlayer(cl.id, playerName(p.PlayerName, "Player 1"))
	state := g.StateFor(cl.id)
	g.Mu.Unlock()

	h.goose.Set(code, g)
	h.openMatch(k)
	h.join(k, cl)
	h.log.WithFields(logrus.Fields{"room": code, "client": cl.id}).Info("Goose game created")

	h.send(cl, "gooseGameCreated", gooseRoom{GameID: code, GameState: state})
	h.broadcastGooseGamesList()
}

func (h *Hub) joinGoose(cl *client, p Payload) {
	g, ok := h.goose.Get(p.GameID)
	if !ok {
		h.sendError(cl, "Game not found")
		return
	}
	k := roomKey{kindGoose, p.GameID}

	g.Mu.Lock()
	if g.Player(cl.id) != nil {
		g.Mu.Unlock()
		h.sendError(cl, "Already in this game")
		return
	}
	if !g.AddPlayer(cl.id, playerName(p.PlayerName, "Player 2")) {
		g.Mu.Unlock()
		h.sendError(cl, "Game is full")
		return
	}
	h.join(k, cl)
	h.send(cl, "gooseGameJoined", gooseRoom{GameID: p.GameID, GameState: g.StateFor(cl.id)})
	h.gooseState(k, g)
	if g.Status == goose.StatusPlaying {
		h.setMatchPlayers(k, g.PlayerIDs())
		h.toRoom(k, "gooseGameStarted", map[string]string{"gameId": p.GameID})
	}
	g.Mu.Unlock()

	h.broadcastGooseGamesList()
}

// gooseState sends each seated player their own view. The mirror gets the
// view of an outside observer.
func (h *Hub) gooseState(k roomKey, g *goose.Game) {
	for _, id := range g.PlayerIDs() {
		h.sendTo(id, "gooseGameState", g.StateFor(id))
	}
	h.mirrorOnly(k, "gooseGameState", g.StateFor(""))
}

// gooseAction runs one player action. Failures go back to the sender only;
// successes refresh everyone's state.
func (h *Hub) gooseAction(cl *client, p Payload, action string, act func(*goose.Game) goose.ActionResult) {
	g, ok := h.goose.Get(p.GameID)
	if !ok {
		h.send(cl, "gooseActionResult", goose.ActionResult{Success: false, Message: "Game not found"})
		return
	}
	k := roomKey{kindGoose, p.GameID}

	g.Mu.Lock()
	defer g.Mu.Unlock()

	res := act(g)
	if !res.Success {
		h.send(cl, "gooseActionResult", res)
		return
	}

	payload := map[string]any{"turn": g.TurnNumber}
	if p.CardID != "" {
		payload["card_id"] = p.CardID
	}
	switch action {
	case "place_trap":
		payload["space"] = p.Space
	case "use_boost":
		if p.TargetSpace != nil {
			payload["target_space"] = *p.TargetSpace
		}
	}
	h.record(k, cl.id, action, payload)

	h.gooseState(k, g)
	h.toRoom(k, "gooseActionResult", res)
	if g.Status == goose.StatusFinished {
		winner := g.WinnerID
		h.toRoom(k, "gooseGameOver", gameOver{Winner: &winner, Reason: ReasonReachedFinish})
		h.endMatch(k, winner, ReasonReachedFinish)
	}
}

// gooseDisconnect ends the room: a goose game cannot continue one handed.
func (h *Hub) gooseDisconnect(k roomKey, cl *client) {
	g, ok := h.goose.Get(k.code)
	if !ok {
		return
	}
	g.Mu.Lock()
	wasPlaying := g.Status == goose.StatusPlaying
	if g.Status != goose.StatusFinished {
		g.Status = goose.StatusFinished
		g.Phase = goose.PhaseFinished
	}
	h.toRoom(k, "gooseGameOver", gameOver{Reason: "Player disconnected"})
	if wasPlaying {
		h.endMatch(k, "", ReasonDisconnected)
	}
	g.Mu.Unlock()

	h.goose.Delete(k.code)
	h.dropRoom(k)
	h.closeMatch(k)
	h.log.WithFields(logrus.Fields{"room": k.code, "client": cl.id}).Info("Goose room closed after disconnect")
}
