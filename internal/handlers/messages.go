package handlers

import (
	"encoding/json"
	"time"

	"github.com/coder/websocket"
	"github.com/duelhub/duel/internal/bus"
)

// GameMessage is an inbound client message.
type GameMessage struct {
	Type    string  `json:"type"`
	Payload Payload `json:"payload"`
}

// Payload carries the union of every inbound verb's fields. Each verb reads
// the ones it needs.
type Payload struct {
	GameID     string `json:"gameId,omitempty"`
	RoomID     string `json:"roomId,omitempty"`
	PlayerName string `json:"playerName,omitempty"`
	CardID     string `json:"cardId,omitempty"`
	Message    string `json:"message,omitempty"`

	// Goose targets.
	Space       int  `json:"space,omitempty"`
	TargetSpace *int `json:"targetSpace,omitempty"`

	// Artillery.
	Difficulty string  `json:"difficulty,omitempty"`
	Angle      float64 `json:"angle,omitempty"`
	Power      float64 `json:"power,omitempty"`
	ShotID     string  `json:"shotId,omitempty"`
	Victim     string  `json:"victim,omitempty"`
	// Damage and Health are reported by clients but the server applies its
	// own damage.
	Damage int `json:"damage,omitempty"`
	Health int `json:"health,omitempty"`
}

// Outbound is every server to client message.
type Outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

const (
	kindNumberLine = "numberline"
	kindGoose      = "goose"
	kindArtillery  = "artillery"
)

// roomKey names a room across game types.
type roomKey struct {
	kind string
	code string
}

func (h *Hub) encode(typ string, payload any) ([]byte, bool) {
	data, err := json.Marshal(Outbound{Type: typ, Payload: payload})
	if err != nil {
		h.log.WithField("type", typ).Errorf("Failed to marshal outbound message: %v", err)
		return nil, false
	}
	return data, true
}

// enqueue never blocks. A client whose buffer is full is too slow to keep
// up and gets disconnected.
func (h *Hub) enqueue(cl *client, data []byte) {
	select {
	case cl.send <- data:
	default:
		h.log.WithField("client", cl.id).Warn("Send buffer full, closing connection")
		go cl.conn.Close(websocket.StatusPolicyViolation, "send buffer full")
	}
}

func (h *Hub) send(cl *client, typ string, payload any) {
	if data, ok := h.encode(typ, payload); ok {
		h.enqueue(cl, data)
	}
}

func (h *Hub) sendError(cl *client, msg string) {
	h.send(cl, "error", errorPayload{Message: msg})
}

// sendTo delivers to a connected player by id.
func (h *Hub) sendTo(playerID, typ string, payload any) {
	h.mu.Lock()
	cl := h.clients[playerID]
	h.mu.Unlock()
	if cl != nil {
		h.send(cl, typ, payload)
	}
}

// toRoom delivers to every member of the room and mirrors the event.
func (h *Hub) toRoom(k roomKey, typ string, payload any) {
	data, ok := h.encode(typ, payload)
	if !ok {
		return
	}
	h.mu.Lock()
	for _, cl := range h.rooms[k] {
		h.enqueue(cl, data)
	}
	h.mu.Unlock()
	h.mirrorOnly(k, typ, payload)
}

// mirrorOnly publishes a room event without delivering it to clients.
func (h *Hub) mirrorOnly(k roomKey, typ string, payload any) {
	h.mirror.Publish(bus.RoomEvent{GameType: k.kind, Room: k.code, Type: typ, Payload: payload, At: time.Now()})
}

// toAll delivers to every connected client.
func (h *Hub) toAll(typ string, payload any) {
	data, ok := h.encode(typ, payload)
	if !ok {
		return
	}
	h.mu.Lock()
	for _, cl := range h.clients {
		h.enqueue(cl, data)
	}
	h.mu.Unlock()
}

func (h *Hub) join(k roomKey, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members := h.rooms[k]
	if members == nil {
		members = make(map[string]*client)
		h.rooms[k] = members
	}
	members[cl.id] = cl
	cl.rooms[k] = struct{}{}
}

func (h *Hub) leave(k roomKey, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(cl.rooms, k)
	if members := h.rooms[k]; members != nil {
		delete(members, cl.id)
		if len(members) == 0 {
			delete(h.rooms, k)
		}
	}
}

// dropRoom forgets every membership of a deleted room.
func (h *Hub) dropRoom(k roomKey) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, cl := range h.rooms[k] {
		delete(cl.rooms, k)
	}
	delete(h.rooms, k)
}

func (h *Hub) inRoom(k roomKey, playerID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.rooms[k][playerID]
	return ok
}
