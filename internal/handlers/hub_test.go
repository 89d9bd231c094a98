package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/duelhub/duel/internal/artillery"
	"github.com/duelhub/duel/internal/bus"
	"github.com/duelhub/duel/internal/config"
	"github.com/duelhub/duel/internal/goose"
	"github.com/duelhub/duel/internal/models"
	"github.com/duelhub/duel/internal/numberline"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	mu   sync.Mutex
	recs []models.ActionRecord
}

func (f *fakeRecorder) Record(_ context.Context, rec models.ActionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeRecorder) Forget(string) {}

func (f *fakeRecorder) actions(gameType string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, r := range f.recs {
		if r.GameType == gameType {
			out = append(out, r.ActionType)
		}
	}
	return out
}

type fakeResults struct {
	mu      sync.Mutex
	results []models.GameResult
}

func (f *fakeResults) RecordResult(_ context.Context, res models.GameResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, res)
	return nil
}

func (f *fakeResults) all() []models.GameResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.GameResult(nil), f.results...)
}

type fakeMirror struct {
	mu     sync.Mutex
	events []bus.RoomEvent
}

func (f *fakeMirror) Publish(ev bus.RoomEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func (f *fakeMirror) Close() {}

func (f *fakeMirror) count(typ string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, ev := range f.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

type testEnv struct {
	hub     *Hub
	srv     *httptest.Server
	history *fakeRecorder
	results *fakeResults
	mirror  *fakeMirror
}

func testConfig() config.Config {
	return config.Config{
		AllowedOrigins:       []string{"*"},
		RateLimit:            600,
		GooseBoardLength:     goose.DefaultBoardLength,
		ArtilleryTurnDelay:   10 * time.Millisecond,
		ArtilleryCleanupTime: time.Hour,
	}
}

func setupHub(t *testing.T) *testEnv {
	t.Helper()
	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	env := &testEnv{history: &fakeRecorder{}, results: &fakeResults{}, mirror: &fakeMirror{}}
	env.hub = NewHub(testConfig(), Deps{History: env.history, Results: env.results, Mirror: env.mirror}, logger)
	env.srv = httptest.NewServer(env.hub.NewRouter())
	t.Cleanup(func() {
		env.srv.Close()
		env.hub.Close()
	})
	return env
}

type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type testClient struct {
	t    *testing.T
	conn *websocket.Conn
	id   string
}

func (env *testEnv) dial(t *testing.T) *testClient {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	conn.SetReadLimit(4 << 20)
	c := &testClient{t: t, conn: conn}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })

	var hello struct {
		PlayerID string `json:"playerId"`
	}
	decode(t, c.expect("connected"), &hello)
	require.NotEmpty(t, hello.PlayerID)
	c.id = hello.PlayerID
	return c
}

func (c *testClient) send(typ string, payload any) {
	c.t.Helper()
	data, err := json.Marshal(map[string]any{"type": typ, "payload": payload})
	require.NoError(c.t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(c.t, c.conn.Write(ctx, websocket.MessageText, data))
}

// expect reads until a message of type typ arrives, skipping others.
func (c *testClient) expect(typ string) inbound {
	c.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for {
		_, data, err := c.conn.Read(ctx)
		require.NoError(c.t, err, "waiting for %s", typ)
		var msg inbound
		require.NoError(c.t, json.Unmarshal(data, &msg))
		if msg.Type == typ {
			return msg
		}
	}
}

func (c *testClient) expectError(want string) {
	c.t.Helper()
	var p errorPayload
	decode(c.t, c.expect("error"), &p)
	assert.Equal(c.t, want, p.Message)
}

// expectShot waits for a shot fired by shooterID.
func (c *testClient) expectShot(shooterID string) artillery.ShotFired {
	c.t.Helper()
	for {
		var shot artillery.ShotFired
		decode(c.t, c.expect("artilleryShotFired"), &shot)
		if shot.ShooterID == shooterID {
			return shot
		}
	}
}

func (c *testClient) close() {
	c.conn.Close(websocket.StatusNormalClosure, "bye")
}

func decode(t *testing.T, m inbound, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(m.Payload, v))
}

func TestPingPong(t *testing.T) {
	env := setupHub(t)
	a := env.dial(t)
	a.send("ping", nil)
	a.expect("pong")
}

func TestUnknownMessageType(t *testing.T) {
	env := setupHub(t)
	a := env.dial(t)
	a.send("teleportEveryone", nil)
	a.expectError("Unknown message type: teleportEveryone")
}

func createNumberLine(t *testing.T, a, b *testClient) (string, numberline.State) {
	t.Helper()
	a.send("createGame", map[string]any{"playerName": "Alice"})
	var created numberLineCreated
	decode(t, a.expect("gameCreated"), &created)
	require.Len(t, created.GameID, 6)
	assert.Equal(t, numberline.StatusWaiting, created.GameState.GameStatus)

	b.send("joinGame", map[string]any{"gameId": created.GameID, "playerName": "Bob"})
	var state numberline.State
	decode(t, b.expect("gameStateUpdate"), &state)
	require.Equal(t, numberline.StatusPlaying, state.GameStatus)
	return created.GameID, state
}

func TestNumberLineCreateJoinDraft(t *testing.T) {
	env := setupHub(t)
	a, b := env.dial(t), env.dial(t)
	code, state := createNumberLine(t, a, b)

	var aView numberline.State
	decode(t, a.expect("gameStateUpdate"), &aView)
	assert.Equal(t, a.id, aView.CurrentPlayerID)
	require.Len(t, state.Players, 2)
	assert.Equal(t, "Alice", state.Players[0].Name)
	assert.Len(t, state.Players[0].Hand, 2)

	// Bob may not act out of turn.
	b.send("draftCard", map[string]any{"gameId": code, "cardId": state.CentralRow[0].ID})
	b.expectError(numberline.ErrNotYourTurn.Error())

	a.send("draftCard", map[string]any{"gameId": code, "cardId": state.CentralRow[0].ID})
	var after numberline.State
	decode(t, b.expect("gameStateUpdate"), &after)
	assert.Equal(t, b.id, after.CurrentPlayerID)
	assert.Len(t, after.Players[0].Hand, 3)
	assert.Len(t, after.CentralRow, 5)

	assert.Eventually(t, func() bool {
		return len(env.history.actions(kindNumberLine)) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Positive(t, env.mirror.count("gameStateUpdate"))
}

func TestNumberLineJoinErrors(t *testing.T) {
	env := setupHub(t)
	a, b, c := env.dial(t), env.dial(t), env.dial(t)

	c.send("joinGame", map[string]any{"gameId": "NOPE00"})
	c.expectError("Game not found")

	code, _ := createNumberLine(t, a, b)
	c.send("joinGame", map[string]any{"gameId": code, "playerName": "Carol"})
	c.expectError("Game is full")

	a.send("playCard", map[string]any{"gameId": "NOPE00", "cardId": "x"})
	a.expectError("Game not found")
}

func TestNumberLineChat(t *testing.T) {
	env := setupHub(t)
	a, b, c := env.dial(t), env.dial(t), env.dial(t)
	code, _ := createNumberLine(t, a, b)

	b.send("chatMessage", map[string]any{"gameId": code, "message": "  good luck  "})
	var msg chatPayload
	decode(t, a.expect("chatMessage"), &msg)
	assert.Equal(t, b.id, msg.PlayerID)
	assert.Equal(t, "Bob", msg.PlayerName)
	assert.Equal(t, "good luck", msg.Message)

	c.send("chatMessage", map[string]any{"gameId": code, "message": "hi"})
	c.expectError("You are not in this game")
}

func TestNumberLineDisconnect(t *testing.T) {
	env := setupHub(t)
	a, b := env.dial(t), env.dial(t)
	code, _ := createNumberLine(t, a, b)

	b.close()
	assert.Eventually(t, func() bool {
		g, ok := env.hub.numberline.Get(code)
		if !ok {
			return false
		}
		g.Mu.Lock()
		defer g.Mu.Unlock()
		return g.PlayerCount() == 1 && g.Status == numberline.StatusWaiting
	}, 2*time.Second, 10*time.Millisecond)

	// The room is listed again for a new opponent.
	var list []Listing
	decode(t, a.expect("gamesList"), &list)
	assert.Eventually(t, func() bool {
		for _, l := range env.hub.numberLineListings() {
			if l.GameID == code && l.PlayerName == "Alice" {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		res := env.results.all()
		return len(res) == 1 && res[0].Reason == ReasonDisconnected && res[0].WinnerID == ""
	}, time.Second, 10*time.Millisecond)

	a.close()
	assert.Eventually(t, func() bool {
		_, ok := env.hub.numberline.Get(code)
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestListingsNewestFirst(t *testing.T) {
	env := setupHub(t)
	a, b := env.dial(t), env.dial(t)

	a.send("createGame", map[string]any{"playerName": "Alice"})
	a.expect("gameCreated")
	time.Sleep(5 * time.Millisecond)
	b.send("createGame", map[string]any{"playerName": "Bob"})
	b.expect("gameCreated")

	a.send("requestGamesList", nil)
	var list []Listing
	for len(list) < 2 {
		decode(t, a.expect("gamesList"), &list)
	}
	require.Len(t, list, 2)
	assert.Equal(t, "Bob", list[0].PlayerName)
	assert.Equal(t, "Alice", list[1].PlayerName)
}

func TestGooseFlow(t *testing.T) {
	env := setupHub(t)
	a, b := env.dial(t), env.dial(t)

	a.send("createGooseGame", map[string]any{"playerName": "Alice"})
	var created gooseRoom
	decode(t, a.expect("gooseGameCreated"), &created)
	assert.Equal(t, goose.StatusWaiting, created.GameState.GameStatus)
	assert.Len(t, created.GameState.Players[0].Hand, 3)

	b.send("joinGooseGame", map[string]any{"gameId": created.GameID, "playerName": "Bob"})
	var joined gooseRoom
	decode(t, b.expect("gooseGameJoined"), &joined)
	assert.Equal(t, goose.StatusPlaying, joined.GameState.GameStatus)

	var aState goose.State
	decode(t, a.expect("gooseGameState"), &aState)
	a.expect("gooseGameStarted")
	require.Len(t, aState.Players, 2)
	assert.Len(t, aState.Players[0].Hand, 3)
	assert.Empty(t, aState.Players[1].Hand, "opponent hand is hidden")
	assert.Equal(t, 3, aState.Players[1].HandSize)

	b.send("gooseEndTurn", map[string]any{"gameId": created.GameID})
	var res goose.ActionResult
	decode(t, b.expect("gooseActionResult"), &res)
	assert.False(t, res.Success)
	assert.Equal(t, "Not your turn!", res.Message)

	a.send("gooseEndTurn", map[string]any{"gameId": created.GameID})
	var bState goose.State
	decode(t, b.expect("gooseGameState"), &bState)
	assert.Equal(t, b.id, bState.CurrentPlayerID)
	assert.Equal(t, 2, bState.TurnNumber)
	decode(t, b.expect("gooseActionResult"), &res)
	assert.True(t, res.Success)
	decode(t, a.expect("gooseActionResult"), &res)
	assert.True(t, res.Success, "the actor gets the room-wide result too")

	a.send("goosePlayMovement", map[string]any{"gameId": "NOPE00", "cardId": "x"})
	res = goose.ActionResult{}
	decode(t, a.expect("gooseActionResult"), &res)
	assert.Equal(t, goose.ActionResult{Success: false, Message: "Game not found"}, res)

	assert.Eventually(t, func() bool {
		return len(env.history.actions(kindGoose)) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestGooseDisconnectEndsRoom(t *testing.T) {
	env := setupHub(t)
	a, b := env.dial(t), env.dial(t)

	a.send("createGooseGame", map[string]any{"playerName": "Alice"})
	var created gooseRoom
	decode(t, a.expect("gooseGameCreated"), &created)
	b.send("joinGooseGame", map[string]any{"gameId": created.GameID, "playerName": "Bob"})
	b.expect("gooseGameJoined")

	b.close()
	var over struct {
		Winner *string `json:"winner"`
		Reason string  `json:"reason"`
	}
	decode(t, a.expect("gooseGameOver"), &over)
	assert.Nil(t, over.Winner)
	assert.Equal(t, "Player disconnected", over.Reason)

	assert.Eventually(t, func() bool {
		_, ok := env.hub.goose.Get(created.GameID)
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func startArtillery(t *testing.T, a, b *testClient) matchFound {
	t.Helper()
	a.send("artilleryJoinQueue", map[string]any{"difficulty": "easy"})
	var queued queueJoined
	decode(t, a.expect("artilleryQueueJoined"), &queued)
	assert.Equal(t, 1, queued.Position)
	assert.Equal(t, artillery.Easy, queued.Difficulty)

	b.send("artilleryJoinQueue", map[string]any{"difficulty": "easy"})
	var found matchFound
	decode(t, b.expect("artilleryMatchFound"), &found)
	a.expect("artilleryMatchFound")
	require.Len(t, found.State.Players, 2)
	assert.Equal(t, a.id, found.State.CurrentPlayerID, "the player who waited shoots first")
	assert.Equal(t, "Player 1", found.State.Players[0].Name)
	return found
}

func TestArtilleryQueueAndFire(t *testing.T) {
	env := setupHub(t)
	a, b := env.dial(t), env.dial(t)
	found := startArtillery(t, a, b)
	room := found.RoomID

	a.send("artilleryFire", map[string]any{"roomId": room, "angle": 120, "power": 50})
	a.expectError("Invalid angle or power")

	b.send("artilleryFire", map[string]any{"roomId": room, "angle": 45, "power": 50})
	b.expectError("Not your turn")

	a.send("artilleryFire", map[string]any{"roomId": "NOPE00", "angle": 45, "power": 50})
	a.expectError("Game not found")

	a.send("artilleryFire", map[string]any{"roomId": room, "angle": 45, "power": 50})
	var shot artillery.ShotFired
	decode(t, b.expect("artilleryShotFired"), &shot)
	assert.Equal(t, a.id, shot.ShooterID)
	assert.NotEmpty(t, shot.Trajectory)

	a.send("artilleryMissConfirmed", map[string]any{"roomId": room, "shotId": shot.ShotID})
	var turn artillery.TurnChanged
	decode(t, b.expect("artilleryTurnChanged"), &turn)
	assert.Equal(t, "p2", turn.Turn)
	assert.Equal(t, b.id, turn.CurrentPlayerID)
}

func TestArtilleryAddressedByGameID(t *testing.T) {
	env := setupHub(t)
	a, b := env.dial(t), env.dial(t)
	room := startArtillery(t, a, b).RoomID

	a.send("artilleryMissConfirmed", map[string]any{"gameId": room})
	a.expectError("No shot to confirm")

	a.send("artilleryFire", map[string]any{"gameId": room, "angle": 45, "power": 55})
	shot := b.expectShot(a.id)

	a.send("artilleryHitConfirmed", map[string]any{"gameId": room, "shotId": "stale", "victim": "p2"})
	a.expectError("No shot to confirm")

	a.send("artilleryHitConfirmed", map[string]any{"gameId": room, "shotId": shot.ShotID, "victim": "p2"})
	var hit artillery.Hit
	decode(t, b.expect("artilleryHit"), &hit)
	assert.Equal(t, "p2", hit.Victim)
	assert.Equal(t, artillery.MaxHealth-artillery.HitDamage, hit.Health)
	b.expect("artilleryTurnChanged")

	b.send("artilleryFire", map[string]any{"gameId": room, "angle": 45, "power": 55})
	shot = a.expectShot(b.id)
	b.send("artilleryMissConfirmed", map[string]any{"gameId": room, "shotId": shot.ShotID})
	var turn artillery.TurnChanged
	decode(t, a.expect("artilleryTurnChanged"), &turn)
	assert.Equal(t, a.id, turn.CurrentPlayerID)

	assert.Eventually(t, func() bool {
		acts := env.history.actions(kindArtillery)
		return slices.Contains(acts, "fire") && slices.Contains(acts, "hit") && slices.Contains(acts, "miss")
	}, time.Second, 10*time.Millisecond)
}

func TestArtilleryEliminationRecordsResult(t *testing.T) {
	env := setupHub(t)
	a, b := env.dial(t), env.dial(t)
	room := startArtillery(t, a, b).RoomID

	var over struct {
		Winner *string `json:"winner"`
		Reason string  `json:"reason"`
	}
	for round := 1; round <= artillery.MaxHealth/artillery.HitDamage; round++ {
		a.send("artilleryFire", map[string]any{"roomId": room, "angle": 45, "power": 60})
		shot := a.expectShot(a.id)
		a.send("artilleryHitConfirmed", map[string]any{"roomId": room, "shotId": shot.ShotID, "victim": "p2", "damage": 999})
		var hit artillery.Hit
		decode(t, a.expect("artilleryHit"), &hit)
		assert.Equal(t, artillery.MaxHealth-round*artillery.HitDamage, hit.Health)
		if hit.IsDead {
			decode(t, a.expect("artilleryGameOver"), &over)
			break
		}
		a.expect("artilleryTurnChanged")

		b.send("artilleryFire", map[string]any{"roomId": room, "angle": 45, "power": 60})
		shot = b.expectShot(b.id)
		b.send("artilleryMissConfirmed", map[string]any{"roomId": room, "shotId": shot.ShotID})
		a.expect("artilleryTurnChanged")
	}

	require.NotNil(t, over.Winner)
	assert.Equal(t, a.id, *over.Winner)
	assert.Equal(t, artillery.ReasonElimination, over.Reason)

	assert.Eventually(t, func() bool {
		res := env.results.all()
		return len(res) == 1 && res[0].WinnerID == a.id
	}, time.Second, 10*time.Millisecond)
	res := env.results.all()[0]
	assert.Equal(t, kindArtillery, res.GameType)
	assert.ElementsMatch(t, []string{a.id, b.id}, res.PlayerIDs)

	assert.Eventually(t, func() bool {
		for _, act := range env.history.actions(kindArtillery) {
			if act == models.ActionGameOver {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestArtilleryDisconnect(t *testing.T) {
	env := setupHub(t)
	a, b := env.dial(t), env.dial(t)
	room := startArtillery(t, a, b).RoomID

	a.close()
	var over struct {
		Winner *string `json:"winner"`
		Reason string  `json:"reason"`
	}
	decode(t, b.expect("artilleryGameOver"), &over)
	assert.Nil(t, over.Winner)
	assert.Equal(t, artillery.ReasonDisconnected, over.Reason)

	assert.Eventually(t, func() bool {
		_, ok := env.hub.artillery.Get(room)
		return !ok
	}, time.Second, 10*time.Millisecond)

	// b may queue again straight away.
	b.send("artilleryJoinQueue", map[string]any{"difficulty": "hard"})
	var queued queueJoined
	decode(t, b.expect("artilleryQueueJoined"), &queued)
	assert.Equal(t, artillery.Hard, queued.Difficulty)
}

func TestQueueLeftOnDisconnect(t *testing.T) {
	env := setupHub(t)
	a := env.dial(t)
	a.send("artilleryJoinQueue", map[string]any{"difficulty": "medium"})
	a.expect("artilleryQueueJoined")
	a.close()
	assert.Eventually(t, func() bool {
		return env.hub.queue.Lengths()[artillery.Medium] == 0
	}, time.Second, 10*time.Millisecond)
}

func TestHTTPRoutes(t *testing.T) {
	env := setupHub(t)
	a := env.dial(t)
	a.send("createGooseGame", map[string]any{"playerName": "Alice"})
	a.expect("gooseGameCreated")

	resp, err := http.Get(env.srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(env.srv.URL + "/api/goose/games")
	require.NoError(t, err)
	var list []Listing
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	require.Len(t, list, 1)
	assert.Equal(t, "Alice", list[0].PlayerName)

	resp, err = http.Get(env.srv.URL + "/api/games")
	require.NoError(t, err)
	list = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	assert.Empty(t, list)

	resp, err = http.Get(env.srv.URL + "/api/stats")
	require.NoError(t, err)
	var stats Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	resp.Body.Close()
	assert.Equal(t, 1, stats.Clients)
	assert.Equal(t, 1, stats.Rooms[kindGoose])
}

func TestOriginPatterns(t *testing.T) {
	assert.Equal(t, []string{"*"}, originPatterns(nil))
	assert.Equal(t, []string{"example.com", "localhost:3000"},
		originPatterns([]string{"https://example.com/", " http://localhost:3000"}))
}
