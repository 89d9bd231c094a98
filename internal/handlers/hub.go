// Package handlers serves the duel WebSocket protocol and the small HTTP
// lobby API. One Hub owns every room of every game type.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/duelhub/duel/internal/artillery"
	"github.com/duelhub/duel/internal/bus"
	"github.com/duelhub/duel/internal/config"
	"github.com/duelhub/duel/internal/goose"
	"github.com/duelhub/duel/internal/historian"
	"github.com/duelhub/duel/internal/middleware"
	"github.com/duelhub/duel/internal/models"
	"github.com/duelhub/duel/internal/numberline"
	"github.com/duelhub/duel/internal/room"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
	pingTimeout  = 15 * time.Second
)

// ResultRecorder stores the outcome of a finished match.
type ResultRecorder interface {
	RecordResult(ctx context.Context, res models.GameResult) error
}

// Deps are the optional sinks a Hub reports to. Nil fields are disabled.
type Deps struct {
	History historian.Recorder
	Results ResultRecorder
	Mirror  bus.Mirror
}

// Hub routes client messages to rooms and room events back to clients.
//
// Lock order is game.Mu before Hub.mu. Game callbacks run with the game
// lock held and may enqueue messages, so nothing may take a game lock while
// holding Hub.mu.
type Hub struct {
	cfg config.Config
	log logrus.FieldLogger

	numberline room.Repository[*numberline.Game]
	goose      room.Repository[*goose.Game]
	artillery  room.Repository[*artillery.Game]
	queue      *artillery.Queue

	history *historian.Async
	results ResultRecorder
	mirror  bus.Mirror

	mu      sync.Mutex
	clients map[string]*client
	rooms   map[roomKey]map[string]*client
	matches map[roomKey]*match

	// pending tracks background result writes.
	pending sync.WaitGroup
}

// NewHub builds an empty hub.
func NewHub(cfg config.Config, deps Deps, logger logrus.FieldLogger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if deps.History == nil {
		deps.History = historian.Nop{}
	}
	if deps.Mirror == nil {
		deps.Mirror = bus.Nop{}
	}
	return &Hub{
		cfg:        cfg,
		log:        logger,
		numberline: room.NewStore[*numberline.Game](),
		goose:      room.NewStore[*goose.Game](),
		artillery:  room.NewStore[*artillery.Game](),
		queue:      artillery.NewQueue(),
		history:    historian.NewAsync(deps.History, logger),
		results:    deps.Results,
		mirror:     deps.Mirror,
		clients:    make(map[string]*client),
		rooms:      make(map[roomKey]map[string]*client),
		matches:    make(map[roomKey]*match),
	}
}

// client is one WebSocket connection. Its id doubles as the player id.
type client struct {
	id     string
	remote string
	conn   *websocket.Conn
	send   chan []byte

	// rooms is guarded by Hub.mu.
	rooms map[roomKey]struct{}
}

// ServeWS upgrades the request and runs the connection until it closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(h.cfg.AllowedOrigins),
	})
	if err != nil {
		h.log.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	cl := &client{
		id:     uuid.NewString(),
		remote: r.RemoteAddr,
		conn:   c,
		send:   make(chan []byte, sendBuffer),
		rooms:  make(map[roomKey]struct{}),
	}
	h.mu.Lock()
	h.clients[cl.id] = cl
	h.mu.Unlock()
	middleware.LogWebSocketConnect(h.log, cl.id, cl.remote)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go h.writePump(ctx, cl)

	h.send(cl, "connected", map[string]string{"playerId": cl.id})
	err = h.readLoop(ctx, cl)

	h.disconnect(cl)
	middleware.LogWebSocketDisconnect(h.log, cl.id, cl.remote, err)
	c.Close(websocket.StatusNormalClosure, "")
}

// originPatterns turns configured origins into host patterns.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		o = strings.TrimPrefix(o, "https://")
		o = strings.TrimPrefix(o, "http://")
		if o != "" {
			out = append(out, strings.TrimSuffix(o, "/"))
		}
	}
	if len(out) == 0 {
		out = append(out, "*")
	}
	return out
}

func (h *Hub) readLoop(ctx context.Context, cl *client) error {
	for {
		typ, data, err := cl.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			h.sendError(cl, "Only text messages are supported")
			continue
		}
		var msg GameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendError(cl, "Invalid message format")
			continue
		}
		h.dispatch(cl, msg)
	}
}

func (h *Hub) writePump(ctx context.Context, cl *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case data := <-cl.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := cl.conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				h.log.WithField("client", cl.id).Warnf("Failed to write to websocket: %v", err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := cl.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				h.log.WithField("client", cl.id).Warnf("Failed to ping client: %v. Assuming disconnect.", err)
				return
			}
		}
	}
}

func (h *Hub) dispatch(cl *client, msg GameMessage) {
	p := msg.Payload
	switch msg.Type {
	case "ping":
		h.send(cl, "pong", nil)

	case "createGame":
		h.createNumberLine(cl, p)
	case "joinGame":
		h.joinNumberLine(cl, p)
	case "draftCard":
		h.draftCard(cl, p)
	case "playCard":
		h.playCard(cl, p)
	case "chatMessage":
		h.chat(cl, p)
	case "requestGamesList":
		h.send(cl, "gamesList", h.numberLineListings())

	case "createGooseGame":
		h.createGoose(cl, p)
	case "joinGooseGame":
		h.joinGoose(cl, p)
	case "requestGooseGamesList":
		h.send(cl, "gooseGamesList", h.gooseListings())
	case "goosePlayMovement":
		h.gooseAction(cl, p, "play_movement", func(g *goose.Game) goose.ActionResult {
			return g.PlayMovementCard(cl.id, p.CardID)
		})
	case "goosePlaceTrap":
		h.gooseAction(cl, p, "place_trap", func(g *goose.Game) goose.ActionResult {
			return g.PlaceTrap(cl.id, p.CardID, p.Space)
		})
	case "gooseUseBoost":
		h.gooseAction(cl, p, "use_boost", func(g *goose.Game) goose.ActionResult {
			return g.UseBoost(cl.id, p.CardID, p.TargetSpace)
		})
	case "gooseUsePowerUp":
		h.gooseAction(cl, p, "use_powerup", func(g *goose.Game) goose.ActionResult {
			return g.UsePowerUp(cl.id, p.CardID)
		})
	case "gooseEndTurn":
		h.gooseAction(cl, p, "end_turn", func(g *goose.Game) goose.ActionResult {
			return g.EndTurn(cl.id)
		})
	case "gooseSkipTurn":
		h.gooseAction(cl, p, "skip_turn", func(g *goose.Game) goose.ActionResult {
			return g.SkipTurn(cl.id)
		})

	case "artilleryJoinQueue":
		h.joinArtilleryQueue(cl, p)
	case "artilleryLeaveQueue":
		h.queue.Leave(cl.id)
	case "artilleryFire":
		h.artilleryFire(cl, p)
	case "artilleryHitConfirmed":
		h.artilleryConfirm(cl, p, true)
	case "artilleryMissConfirmed":
		h.artilleryConfirm(cl, p, false)

	default:
		h.log.WithFields(logrus.Fields{"client": cl.id, "type": msg.Type}).Debug("Unknown message type")
		h.sendError(cl, "Unknown message type: "+msg.Type)
	}
}

// disconnect removes the client from every room it sat in, then refreshes
// the lobby lists for everyone still connected.
func (h *Hub) disconnect(cl *client) {
	h.queue.Leave(cl.id)

	h.mu.Lock()
	delete(h.clients, cl.id)
	keys := make([]roomKey, 0, len(cl.rooms))
	for k := range cl.rooms {
		keys = append(keys, k)
	}
	h.mu.Unlock()

	for _, k := range keys {
		h.leave(k, cl)
		switch k.kind {
		case kindNumberLine:
			h.numberLineDisconnect(k, cl)
		case kindGoose:
			h.gooseDisconnect(k, cl)
		case kindArtillery:
			h.artilleryDisconnect(k, cl)
		}
	}
	h.broadcastGamesList()
	h.broadcastGooseGamesList()
}

// newCode returns a room code unused by any game type.
func (h *Hub) newCode() string {
	nl, gs, ar := room.Exists(h.numberline), room.Exists(h.goose), room.Exists(h.artillery)
	return room.NewCode(func(code string) bool {
		return nl(code) || gs(code) || ar(code)
	})
}

func newRNG() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Stats is a point in time view of hub load.
type Stats struct {
	Clients int                          `json:"clients"`
	Rooms   map[string]int               `json:"rooms"`
	Queue   map[artillery.Difficulty]int `json:"queue"`
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	clients := len(h.clients)
	h.mu.Unlock()
	return Stats{
		Clients: clients,
		Rooms: map[string]int{
			kindNumberLine: h.numberline.Len(),
			kindGoose:      h.goose.Len(),
			kindArtillery:  h.artillery.Len(),
		},
		Queue: h.queue.Lengths(),
	}
}

// Close stops artillery timers and waits for background sink writes.
func (h *Hub) Close() {
	h.artillery.Range(func(_ string, g *artillery.Game) bool {
		g.Mu.Lock()
		g.Close()
		g.Mu.Unlock()
		return true
	})
	h.history.Wait()
	h.pending.Wait()
}
