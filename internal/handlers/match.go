package handlers

import (
	"context"
	"time"

	"github.com/duelhub/duel/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	ReasonReachedTarget = "reached_target"
	ReasonReachedFinish = "reached_finish"
	ReasonDisconnected  = "player_disconnected"

	resultTimeout = 5 * time.Second
)

// match is the history of one game played in a room. A room code outlives
// its matches when a NumberLine room refills after a player leaves.
type match struct {
	id        string
	players   []string
	actions   int
	startedAt time.Time
	ended     bool
}

// openMatch starts a new history for the room, replacing any previous one.
func (h *Hub) openMatch(k roomKey) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.matches[k] = &match{id: uuid.NewString(), startedAt: time.Now()}
}

func (h *Hub) setMatchPlayers(k roomKey, ids []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m := h.matches[k]; m != nil {
		m.players = append([]string(nil), ids...)
	}
}

// record ships one accepted action to the historian.
func (h *Hub) record(k roomKey, actorID, action string, payload map[string]any) {
	h.mu.Lock()
	m := h.matches[k]
	if m == nil || m.ended {
		h.mu.Unlock()
		return
	}
	m.actions++
	rec := models.ActionRecord{
		GameType:      k.kind,
		GameID:        m.id,
		RoomCode:      k.code,
		ActionIndex:   m.actions,
		ActorID:       actorID,
		ActionType:    action,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	h.mu.Unlock()
	h.history.Publish(rec)
}

// endMatch closes the room's current history once and stores the result.
func (h *Hub) endMatch(k roomKey, winnerID, reason string) {
	h.record(k, winnerID, models.ActionGameOver, map[string]any{"winner": winnerID, "reason": reason})

	h.mu.Lock()
	m := h.matches[k]
	if m == nil || m.ended {
		h.mu.Unlock()
		return
	}
	m.ended = true
	res := models.GameResult{
		GameType:  k.kind,
		GameID:    m.id,
		RoomCode:  k.code,
		PlayerIDs: m.players,
		WinnerID:  winnerID,
		Reason:    reason,
		Turns:     m.actions - 1,
		StartedAt: m.startedAt,
		EndedAt:   time.Now(),
	}
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{"room": k.code, "game": k.kind, "winner": winnerID, "reason": reason}).Info("Match finished")
	h.history.Forget(res.GameID)
	if h.results == nil {
		return
	}
	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), resultTimeout)
		defer cancel()
		if err := h.results.RecordResult(ctx, res); err != nil {
			h.log.WithField("room", k.code).Warnf("Failed to record result: %v", err)
		}
	}()
}

// closeMatch forgets the room's history. An unfinished match is dropped
// without a result.
func (h *Hub) closeMatch(k roomKey) {
	h.mu.Lock()
	m := h.matches[k]
	delete(h.matches, k)
	h.mu.Unlock()
	if m != nil {
		h.history.Forget(m.id)
	}
}
