package handlers

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/duelhub/duel/internal/numberline"
	"github.com/sirupsen/logrus"
)

const maxChatLength = 500

type numberLineCreated struct {
	GameID    string           `json:"gameId"`
	GameState numberline.State `json:"gameState"`
}

type chatPayload struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Message    string `json:"message"`
	Timestamp  int64  `json:"timestamp"`
}

func playerName(name, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	return name
}

func (h *Hub) createNumberLine(cl *client, p Payload) {
	code := h.newCode()
	k := roomKey{kindNumberLine, code}
	g := numberline.NewGame(code, newRNG(), h.log)

	g.Mu.Lock()
	if err := g.AddPlayer(cl.id, playerName(p.PlayerName, "Player 1")); err != nil {
		g.Mu.Unlock()
		h.sendError(cl, err.Error())
		return
	}
	state := g.State()
	g.Mu.Unlock()

	h.numberline.Set(code, g)
	h.openMatch(k)
	h.join(k, cl)
	h.log.WithFields(logrus.Fields{"room": code, "client": cl.id}).Info("NumberLine game created")

	h.send(cl, "gameCreated", numberLineCreated{GameID: code, GameState: state})
	h.broadcastGamesList()
}

func (h *Hub) joinNumberLine(cl *client, p Payload) {
	g, ok := h.numberline.Get(p.GameID)
	if !ok {
		h.sendError(cl, "Game not found")
		return
	}
	k := roomKey{kindNumberLine, p.GameID}

	g.Mu.Lock()
	if g.Player(cl.id) != nil {
		g.Mu.Unlock()
		h.sendError(cl, "Already in this game")
		return
	}
	if g.Status == numberline.StatusFinished {
		g.Mu.Unlock()
		h.sendError(cl, "Game has already ended")
		return
	}
	if err := g.AddPlayer(cl.id, playerName(p.PlayerName, "Player 2")); err != nil {
		g.Mu.Unlock()
		if errors.Is(err, numberline.ErrGameFull) {
			h.sendError(cl, "Game is full")
		} else {
			h.sendError(cl, err.Error())
		}
		return
	}
	h.join(k, cl)
	if g.Status == numberline.StatusPlaying {
		ids := make([]string, 0, 2)
		for _, pl := range g.State().Players {
			ids = append(ids, pl.ID)
		}
		h.setMatchPlayers(k, ids)
	}
	h.toRoom(k, "gameStateUpdate", g.State())
	g.Mu.Unlock()

	h.broadcastGamesList()
}

func (h *Hub) draftCard(cl *client, p Payload) {
	h.numberLineMove(cl, p, "draft_card", func(g *numberline.Game) error {
		return g.DraftCard(cl.id, p.CardID)
	})
}

func (h *Hub) playCard(cl *client, p Payload) {
	h.numberLineMove(cl, p, "play_card", func(g *numberline.Game) error {
		return g.PlayCard(cl.id, p.CardID)
	})
}

// numberLineMove runs one card action. An illegal move still spends the
// turn, so the new state goes out alongside the error.
func (h *Hub) numberLineMove(cl *client, p Payload, action string, move func(*numberline.Game) error) {
	g, ok := h.numberline.Get(p.GameID)
	if !ok {
		h.sendError(cl, "Game not found")
		return
	}
	k := roomKey{kindNumberLine, p.GameID}

	g.Mu.Lock()
	defer g.Mu.Unlock()

	err := move(g)
	switch {
	case err == nil:
		h.record(k, cl.id, action, map[string]any{"card_id": p.CardID, "token_position": g.TokenPosition})
	case errors.Is(err, numberline.ErrIllegalMove):
		h.record(k, cl.id, action+"_illegal", map[string]any{"card_id": p.CardID})
		h.sendError(cl, err.Error())
	default:
		h.sendError(cl, err.Error())
		return
	}

	h.toRoom(k, "gameStateUpdate", g.State())
	if g.Status == numberline.StatusFinished {
		h.endMatch(k, g.WinnerID, ReasonReachedTarget)
	}
}

func (h *Hub) chat(cl *client, p Payload) {
	g, ok := h.numberline.Get(p.GameID)
	if !ok {
		h.sendError(cl, "Game not found")
		return
	}
	k := roomKey{kindNumberLine, p.GameID}
	msg := strings.TrimSpace(p.Message)
	if msg == "" {
		return
	}
	if utf8.RuneCountInString(msg) > maxChatLength {
		msg = string([]rune(msg)[:maxChatLength])
	}

	g.Mu.Lock()
	defer g.Mu.Unlock()
	player := g.Player(cl.id)
	if player == nil {
		h.sendError(cl, "You are not in this game")
		return
	}
	h.toRoom(k, "chatMessage", chatPayload{
		PlayerID:   cl.id,
		PlayerName: player.Name,
		Message:    msg,
		Timestamp:  time.Now().UnixMilli(),
	})
}

// numberLineDisconnect frees the seat. An empty room is deleted; a game in
// progress goes back to waiting and its match ends without a winner.
func (h *Hub) numberLineDisconnect(k roomKey, cl *client) {
	g, ok := h.numberline.Get(k.code)
	if !ok {
		return
	}
	g.Mu.Lock()
	wasPlaying := g.Status == numberline.StatusPlaying
	g.RemovePlayer(cl.id)
	empty := g.PlayerCount() == 0
	if wasPlaying {
		h.endMatch(k, "", ReasonDisconnected)
	}
	if !empty {
		h.toRoom(k, "gameStateUpdate", g.State())
	}
	g.Mu.Unlock()

	switch {
	case empty:
		h.numberline.Delete(k.code)
		h.dropRoom(k)
		h.closeMatch(k)
		h.log.WithField("room", k.code).Info("NumberLine room empty, deleted")
	case wasPlaying:
		h.openMatch(k)
	}
}
