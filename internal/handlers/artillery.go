package handlers

import (
	"errors"
	"time"

	"github.com/duelhub/duel/internal/artillery"
	"github.com/sirupsen/logrus"
)

type queueJoined struct {
	Position   int                  `json:"position"`
	Difficulty artillery.Difficulty `json:"difficulty"`
	Message    string               `json:"message"`
}

type matchFound struct {
	RoomID string          `json:"roomId"`
	State  artillery.State `json:"state"`
}

// gameOver is shared by goose and artillery. Winner is null when the game
// ended without one.
type gameOver struct {
	Winner *string `json:"winner"`
	Reason string  `json:"reason"`
}

func (h *Hub) joinArtilleryQueue(cl *client, p Payload) {
	if h.inActiveArtillery(cl) {
		h.sendError(cl, "Already in an artillery game")
		return
	}
	d := artillery.ParseDifficulty(p.Difficulty)
	m, pos := h.queue.Join(cl.id, d)
	if m == nil {
		h.send(cl, "artilleryQueueJoined", queueJoined{Position: pos, Difficulty: d, Message: "Waiting for opponent..."})
		return
	}
	h.startArtillery(m)
}

// inActiveArtillery reports whether the client still sits in a live match.
func (h *Hub) inActiveArtillery(cl *client) bool {
	h.mu.Lock()
	var codes []string
	for k := range cl.rooms {
		if k.kind == kindArtillery {
			codes = append(codes, k.code)
		}
	}
	h.mu.Unlock()

	for _, code := range codes {
		g, ok := h.artillery.Get(code)
		if !ok {
			continue
		}
		g.Mu.Lock()
		live := g.Status != artillery.StatusFinished
		g.Mu.Unlock()
		if live {
			return true
		}
	}
	return false
}

// startArtillery seats a queue match in a fresh room. The player who waited
// longer is p1 and shoots first.
func (h *Hub) startArtillery(m *artillery.Match) {
	h.mu.Lock()
	first, second := h.clients[m.First], h.clients[m.Second]
	h.mu.Unlock()
	if first == nil || second == nil {
		for _, cl := range []*client{first, second} {
			if cl != nil {
				h.joinArtilleryQueue(cl, Payload{Difficulty: string(m.Difficulty)})
			}
		}
		return
	}

	code := h.newCode()
	k := roomKey{kindArtillery, code}
	g := artillery.NewGame(code, m.Difficulty, newRNG(), h.log)
	g.TurnTimeLimit = h.cfg.ArtilleryTurnTime
	g.TurnDelay = h.cfg.ArtilleryTurnDelay
	g.BroadcastFn = h.artilleryBroadcaster(k, g)
	g.OnGameEnd = func(g *artillery.Game, winnerID, reason string) {
		h.endMatch(k, winnerID, reason)
		time.AfterFunc(h.cfg.ArtilleryCleanupTime, func() { h.removeArtillery(k, g) })
	}

	g.Mu.Lock()
	defer g.Mu.Unlock()
	h.artillery.Set(code, g)
	h.openMatch(k)
	h.join(k, first)
	h.join(k, second)
	_ = g.AddPlayer(first.id, "Player 1")
	_ = g.AddPlayer(second.id, "Player 2")
	h.setMatchPlayers(k, g.PlayerIDs())

	h.log.WithFields(logrus.Fields{"room": code, "difficulty": m.Difficulty, "waited": m.Waited}).Info("Artillery match found")
	h.toRoom(k, "artilleryMatchFound", matchFound{RoomID: code, State: g.State()})
}

// artilleryBroadcaster relays game events to the room. Runs under the game
// lock, including from turn timers.
func (h *Hub) artilleryBroadcaster(k roomKey, g *artillery.Game) func(artillery.Event) {
	return func(ev artillery.Event) {
		switch pl := ev.Payload.(type) {
		case artillery.Hit:
			h.record(k, g.CurrentPlayerID(), "hit", map[string]any{"victim": pl.Victim, "damage": pl.Damage, "health": pl.Health})
		case artillery.TurnChanged:
			if pl.TimedOut {
				h.record(k, "", "turn_timeout", map[string]any{"next": pl.CurrentPlayerID})
			}
		}
		h.toRoom(k, string(ev.Type), ev.Payload)
	}
}

// artilleryRoom resolves the addressed game by gameId, falling back to
// the roomId carried in artilleryMatchFound.
func (h *Hub) artilleryRoom(cl *client, p Payload) (roomKey, *artillery.Game, bool) {
	code := p.GameID
	if code == "" {
		code = p.RoomID
	}
	g, ok := h.artillery.Get(code)
	if !ok {
		h.sendError(cl, "Game not found")
		return roomKey{}, nil, false
	}
	return roomKey{kindArtillery, code}, g, true
}

func (h *Hub) artilleryFire(cl *client, p Payload) {
	k, g, ok := h.artilleryRoom(cl, p)
	if !ok {
		return
	}

	g.Mu.Lock()
	defer g.Mu.Unlock()
	shot, err := g.Fire(cl.id, p.Angle, p.Power)
	if err != nil {
		h.artilleryError(cl, err)
		return
	}
	h.record(k, cl.id, "fire", map[string]any{
		"shot_id":       shot.ShotID,
		"angle":         shot.Angle,
		"power":         shot.Power,
		"predicted_hit": shot.PredictedHit,
	})
}

func (h *Hub) artilleryConfirm(cl *client, p Payload, hit bool) {
	k, g, ok := h.artilleryRoom(cl, p)
	if !ok {
		return
	}

	g.Mu.Lock()
	defer g.Mu.Unlock()
	if hit {
		// The hit itself is recorded from the event stream so it lands
		// before a fatal game_over.
		if err := g.ConfirmHit(cl.id, p.ShotID, p.Victim); err != nil {
			h.artilleryError(cl, err)
		}
		return
	}
	if err := g.ConfirmMiss(cl.id, p.ShotID); err != nil {
		h.artilleryError(cl, err)
		return
	}
	h.record(k, cl.id, "miss", map[string]any{"shot_id": p.ShotID})
}

func (h *Hub) artilleryError(cl *client, err error) {
	switch {
	case errors.Is(err, artillery.ErrDuplicateShot):
		h.log.WithField("client", cl.id).Debug("Ignoring duplicate shot confirmation")
	case errors.Is(err, artillery.ErrNotYourTurn):
		h.sendError(cl, "Not your turn")
	case errors.Is(err, artillery.ErrInvalidShot):
		h.sendError(cl, "Invalid angle or power")
	case errors.Is(err, artillery.ErrNotActive):
		h.sendError(cl, "Game is not active")
	case errors.Is(err, artillery.ErrTurnEnding):
		h.sendError(cl, "Turn is already ending")
	case errors.Is(err, artillery.ErrUnknownVictim):
		h.sendError(cl, "Unknown victim")
	case errors.Is(err, artillery.ErrUnknownShot):
		h.sendError(cl, "No shot to confirm")
	default:
		h.sendError(cl, err.Error())
	}
}

// artilleryDisconnect ends a live match without a winner and closes the room.
func (h *Hub) artilleryDisconnect(k roomKey, cl *client) {
	g, ok := h.artillery.Get(k.code)
	if !ok {
		return
	}
	g.Mu.Lock()
	live := g.Status != artillery.StatusFinished
	g.RemovePlayer(cl.id)
	if live {
		h.toRoom(k, string(artillery.EventGameOver), gameOver{Reason: artillery.ReasonDisconnected})
		h.endMatch(k, "", artillery.ReasonDisconnected)
	}
	g.Mu.Unlock()
	h.removeArtillery(k, g)
}

// removeArtillery deletes the room if it still holds g.
func (h *Hub) removeArtillery(k roomKey, g *artillery.Game) {
	if cur, ok := h.artillery.Get(k.code); !ok || cur != g {
		return
	}
	g.Mu.Lock()
	g.Close()
	g.Mu.Unlock()
	h.artillery.Delete(k.code)
	h.dropRoom(k)
	h.closeMatch(k)
	h.log.WithField("room", k.code).Info("Artillery room removed")
}
