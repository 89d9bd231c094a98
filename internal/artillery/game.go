// Package artillery implements Artillery Duel: two tanks on procedurally
// generated terrain trading shots under a shifting wind.
package artillery

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/duelhub/duel/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	MaxHealth = 100
	// HitDamage is applied per confirmed hit regardless of what the client
	// reports.
	HitDamage = 20

	DefaultTurnTimeLimit = 30 * time.Second
	DefaultTurnDelay     = time.Second

	windChangeChance = 0.4
	maxPlayers       = 2
)

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// Reasons reported with artilleryGameOver.
const (
	ReasonElimination  = "elimination"
	ReasonDisconnected = "player_disconnected"
)

var (
	ErrGameFull      = errors.New("game is full")
	ErrNotActive     = errors.New("game is not active")
	ErrNotYourTurn   = errors.New("not your turn")
	ErrInvalidShot   = errors.New("invalid angle or power")
	ErrTurnEnding    = errors.New("turn is already ending")
	ErrDuplicateShot = errors.New("shot already processed")
	ErrUnknownVictim = errors.New("unknown victim")
	ErrUnknownShot   = errors.New("no matching shot this turn")
)

type EventType string

const (
	EventShotFired   EventType = "artilleryShotFired"
	EventHit         EventType = "artilleryHit"
	EventTurnChanged EventType = "artilleryTurnChanged"
	EventGameState   EventType = "artilleryGameState"
	EventGameOver    EventType = "artilleryGameOver"
)

// Event is broadcast to both players of a game.
type Event struct {
	Type    EventType
	Payload any
}

type ShotFired struct {
	Trajectory   []Point `json:"trajectory"`
	Shooter      string  `json:"shooter"`
	ShooterID    string  `json:"shooterId"`
	ShotID       string  `json:"shotId"`
	Angle        float64 `json:"angle"`
	Power        float64 `json:"power"`
	PredictedHit bool    `json:"predictedHit"`
}

type Hit struct {
	Victim string `json:"victim"`
	Damage int    `json:"damage"`
	Health int    `json:"health"`
	IsDead bool   `json:"isDead"`
}

type TurnChanged struct {
	Turn            string `json:"turn"`
	CurrentPlayerID string `json:"currentPlayerId"`
	WindChanged     bool   `json:"windChanged"`
	NewWind         Wind   `json:"newWind"`
	TimedOut        bool   `json:"timedOut,omitempty"`
}

type GameOver struct {
	Winner string `json:"winner,omitempty"`
	Reason string `json:"reason"`
}

// OnGameEndFunc is invoked once when a game finishes, with the lock held.
type OnGameEndFunc func(g *Game, winnerID, reason string)

// Game is one artillery match. Callers hold Mu around every exported method;
// timer callbacks take it themselves.
type Game struct {
	ID string
	Mu sync.Mutex

	Difficulty Difficulty
	Status     Status
	CreatedAt  time.Time

	terrain    []float64
	vegetation []Vegetation
	clouds     []Cloud
	Wind       Wind

	players  []*models.ArtilleryPlayer
	current  int
	WinnerID string

	// turnNumber increments on every switch so stale timers can tell they
	// are stale.
	turnNumber    int
	TurnStartTime time.Time
	TurnTimeLimit time.Duration
	TurnDelay     time.Duration

	currentShotID     string
	processedShotIDs  map[string]struct{}
	waitingForTurnEnd bool

	switchTimer  *time.Timer
	timeoutTimer *time.Timer

	// BroadcastFn sends events to both players. Called with the lock held.
	BroadcastFn func(ev Event)
	OnGameEnd   OnGameEndFunc

	rng *rand.Rand
	log logrus.FieldLogger
}

// NewGame generates terrain, scenery and wind for a waiting game.
func NewGame(id string, d Difficulty, rng *rand.Rand, logger logrus.FieldLogger) *Game {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	terrain := GenerateTerrain(rng, d)
	return &Game{
		ID:               id,
		Difficulty:       d,
		Status:           StatusWaiting,
		CreatedAt:        time.Now(),
		terrain:          terrain,
		vegetation:       GenerateVegetation(rng, terrain),
		clouds:           GenerateClouds(rng),
		Wind:             InitialWind(rng, d),
		TurnStartTime:    time.Now(),
		TurnTimeLimit:    DefaultTurnTimeLimit,
		TurnDelay:        DefaultTurnDelay,
		processedShotIDs: make(map[string]struct{}),
		rng:              rng,
		log:              logger.WithFields(logrus.Fields{"room": id, "difficulty": d}),
	}
}

// AddPlayer places the first player at x=200 and the second at x=800, both
// resting on the terrain. The second player activates the game.
func (g *Game) AddPlayer(id, name string) error {
	if len(g.players) >= maxPlayers {
		return ErrGameFull
	}
	x := float64(p1X)
	if len(g.players) == 1 {
		x = p2X
	}
	g.players = append(g.players, &models.ArtilleryPlayer{
		ID:       id,
		Name:     name,
		Health:   MaxHealth,
		Pos:      models.Position{X: x, Y: HeightAt(g.terrain, x) - 25},
		IsActive: true,
	})
	if len(g.players) == maxPlayers {
		g.Status = StatusActive
		g.TurnStartTime = time.Now()
		g.scheduleTimeout()
		g.log.Infof("Artillery game started between %s and %s", g.players[0].ID, g.players[1].ID)
	}
	return nil
}

// RemovePlayer drops a player. A game in progress ends without a winner.
func (g *Game) RemovePlayer(id string) bool {
	for i, p := range g.players {
		if p.ID != id {
			continue
		}
		g.players = append(g.players[:i], g.players[i+1:]...)
		if g.current >= len(g.players) {
			g.current = 0
		}
		if g.Status != StatusFinished {
			g.Status = StatusFinished
			g.stopTimers()
		}
		return true
	}
	return false
}

// Fire validates and resolves a shot from the current player, broadcasting
// the trajectory. Damage waits for the shooter's confirmation.
func (g *Game) Fire(playerID string, angle, power float64) (ShotFired, error) {
	shooter, err := g.turnHolder(playerID)
	if err != nil {
		return ShotFired{}, err
	}
	if g.waitingForTurnEnd {
		return ShotFired{}, ErrTurnEnding
	}
	if angle < 0 || angle > 90 || power < 1 || power > 100 {
		return ShotFired{}, ErrInvalidShot
	}

	// The shooter gets a fresh clock while the shell is in flight.
	g.TurnStartTime = time.Now()
	g.scheduleTimeout()

	g.currentShotID = uuid.NewString()
	first := g.current == 0
	points := Trajectory(angle, power, shooter.Pos, g.terrain, first, g.Wind)

	shot := ShotFired{
		Trajectory: points,
		Shooter:    g.Turn(),
		ShooterID:  shooter.ID,
		ShotID:     g.currentShotID,
		Angle:      angle,
		Power:      power,
	}
	if target := g.opponent(); target != nil {
		shot.PredictedHit = PredictHit(points, target.Pos, g.terrain)
	}
	g.log.Debugf("Player %s fired angle=%.1f power=%.1f (%d points)", shooter.ID, angle, power, len(points))
	g.broadcast(EventShotFired, shot)
	return shot, nil
}

// ConfirmHit applies HitDamage to the victim seat ("p1" or "p2") reported by
// the shooter. Each shot id and each turn is resolved at most once.
func (g *Game) ConfirmHit(playerID, shotID, victim string) error {
	if _, err := g.resolvable(playerID, shotID); err != nil {
		return err
	}
	target := g.seat(victim)
	if target == nil {
		return ErrUnknownVictim
	}
	g.latch(shotID)

	out := target.TakeDamage(HitDamage)
	g.broadcast(EventHit, Hit{Victim: victim, Damage: HitDamage, Health: target.Health, IsDead: out})
	g.log.Infof("Player %s hit %s, health now %d", playerID, target.ID, target.Health)

	if out {
		winner := ""
		for _, p := range g.players {
			if p.ID != target.ID {
				winner = p.ID
			}
		}
		g.finish(winner, ReasonElimination)
		return nil
	}
	g.scheduleTurnEnd()
	return nil
}

// ConfirmMiss ends the shooter's turn without damage.
func (g *Game) ConfirmMiss(playerID, shotID string) error {
	if _, err := g.resolvable(playerID, shotID); err != nil {
		return err
	}
	g.latch(shotID)
	g.scheduleTurnEnd()
	return nil
}

func (g *Game) resolvable(playerID, shotID string) (*models.ArtilleryPlayer, error) {
	p, err := g.turnHolder(playerID)
	if err != nil {
		return nil, err
	}
	if shotID != "" {
		if _, seen := g.processedShotIDs[shotID]; seen {
			return nil, ErrDuplicateShot
		}
	}
	if g.waitingForTurnEnd {
		return nil, ErrTurnEnding
	}
	// An empty id resolves the shot fired this turn.
	if g.currentShotID == "" || (shotID != "" && shotID != g.currentShotID) {
		return nil, ErrUnknownShot
	}
	return p, nil
}

func (g *Game) latch(shotID string) {
	g.waitingForTurnEnd = true
	if shotID != "" {
		g.processedShotIDs[shotID] = struct{}{}
	}
}

func (g *Game) turnHolder(playerID string) (*models.ArtilleryPlayer, error) {
	if g.Status != StatusActive {
		return nil, ErrNotActive
	}
	cur := g.CurrentPlayer()
	if cur == nil || cur.ID != playerID {
		return nil, ErrNotYourTurn
	}
	return cur, nil
}

// scheduleTurnEnd hands the turn over after TurnDelay. Assumes lock is held.
func (g *Game) scheduleTurnEnd() {
	if g.switchTimer != nil {
		g.switchTimer.Stop()
	}
	turn := g.turnNumber
	g.switchTimer = time.AfterFunc(g.TurnDelay, func() {
		g.Mu.Lock()
		defer g.Mu.Unlock()
		g.completeTurn(turn, false)
	})
}

// scheduleTimeout arms the turn clock. When it runs out the turn is treated
// as a miss. Assumes lock is held.
func (g *Game) scheduleTimeout() {
	if g.timeoutTimer != nil {
		g.timeoutTimer.Stop()
	}
	if g.TurnTimeLimit <= 0 {
		return
	}
	turn := g.turnNumber
	g.timeoutTimer = time.AfterFunc(g.TurnTimeLimit, func() {
		g.Mu.Lock()
		defer g.Mu.Unlock()
		if g.waitingForTurnEnd {
			return
		}
		if g.completeTurn(turn, true) {
			g.log.Infof("Turn %d timed out", turn)
		}
	})
}

// completeTurn switches turns if turn is still the live turn. Stale or
// repeated calls are no-ops. Assumes lock is held.
func (g *Game) completeTurn(turn int, timedOut bool) bool {
	if g.Status != StatusActive || turn != g.turnNumber {
		return false
	}
	prev := g.Wind
	g.switchTurn()
	g.broadcast(EventTurnChanged, TurnChanged{
		Turn:            g.Turn(),
		CurrentPlayerID: g.CurrentPlayerID(),
		WindChanged:     prev != g.Wind,
		NewWind:         g.Wind,
		TimedOut:        timedOut,
	})
	g.broadcast(EventGameState, g.State())
	return true
}

func (g *Game) switchTurn() {
	g.current = 1 - g.current
	g.turnNumber++
	g.TurnStartTime = time.Now()
	if g.rng.Float64() < windChangeChance {
		g.Wind = DriftWind(g.rng, g.Difficulty, g.Wind)
	}
	g.waitingForTurnEnd = false
	g.currentShotID = ""
	g.scheduleTimeout()
}

func (g *Game) finish(winnerID, reason string) {
	g.Status = StatusFinished
	g.WinnerID = winnerID
	g.stopTimers()
	g.broadcast(EventGameOver, GameOver{Winner: winnerID, Reason: reason})
	g.log.Infof("Artillery game over: winner=%s reason=%s", winnerID, reason)
	if g.OnGameEnd != nil {
		g.OnGameEnd(g, winnerID, reason)
	}
}

// Close stops any pending timers.
func (g *Game) Close() { g.stopTimers() }

func (g *Game) stopTimers() {
	if g.switchTimer != nil {
		g.switchTimer.Stop()
	}
	if g.timeoutTimer != nil {
		g.timeoutTimer.Stop()
	}
}

func (g *Game) broadcast(t EventType, payload any) {
	if g.BroadcastFn != nil {
		g.BroadcastFn(Event{Type: t, Payload: payload})
	}
}

// IsTimeUp reports whether the current turn has outrun its limit.
func (g *Game) IsTimeUp() bool {
	return g.Status == StatusActive && g.TurnTimeLimit > 0 && time.Since(g.TurnStartTime) > g.TurnTimeLimit
}

// CurrentPlayer returns the player whose turn it is, or nil.
func (g *Game) CurrentPlayer() *models.ArtilleryPlayer {
	if g.current < 0 || g.current >= len(g.players) {
		return nil
	}
	return g.players[g.current]
}

func (g *Game) CurrentPlayerID() string {
	if p := g.CurrentPlayer(); p != nil {
		return p.ID
	}
	return ""
}

func (g *Game) opponent() *models.ArtilleryPlayer {
	if len(g.players) < maxPlayers {
		return nil
	}
	return g.players[1-g.current]
}

// seat resolves "p1"/"p2" to a player.
func (g *Game) seat(s string) *models.ArtilleryPlayer {
	i := -1
	switch s {
	case "p1":
		i = 0
	case "p2":
		i = 1
	}
	if i < 0 || i >= len(g.players) {
		return nil
	}
	return g.players[i]
}

// Turn is "p1" or "p2".
func (g *Game) Turn() string {
	if g.current == 0 {
		return "p1"
	}
	return "p2"
}

// Player returns the player with id, or nil.
func (g *Game) Player(id string) *models.ArtilleryPlayer {
	for _, p := range g.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (g *Game) PlayerIDs() []string {
	ids := make([]string, len(g.players))
	for i, p := range g.players {
		ids[i] = p.ID
	}
	return ids
}

func (g *Game) Terrain() []float64 { return g.terrain }

type State struct {
	GameID          string                   `json:"gameId"`
	GameStatus      Status                   `json:"gameStatus"`
	Terrain         []float64                `json:"terrain"`
	Vegetation      []Vegetation             `json:"vegetation"`
	Clouds          []Cloud                  `json:"clouds"`
	Players         []models.ArtilleryPlayer `json:"players"`
	CurrentPlayerID string                   `json:"currentPlayerId"`
	Turn            string                   `json:"turn"`
	Difficulty      Difficulty               `json:"difficulty"`
	Wind            Wind                     `json:"wind"`
	TurnStartTime   int64                    `json:"turnStartTime"`
	TurnTimeLimit   int64                    `json:"turnTimeLimit"`
	WinnerID        string                   `json:"winnerId,omitempty"`
}

// State snapshots the game for artilleryGameState. Times are unix millis.
func (g *Game) State() State {
	players := make([]models.ArtilleryPlayer, len(g.players))
	for i, p := range g.players {
		players[i] = *p
	}
	return State{
		GameID:          g.ID,
		GameStatus:      g.Status,
		Terrain:         g.terrain,
		Vegetation:      g.vegetation,
		Clouds:          g.clouds,
		Players:         players,
		CurrentPlayerID: g.CurrentPlayerID(),
		Turn:            g.Turn(),
		Difficulty:      g.Difficulty,
		Wind:            g.Wind,
		TurnStartTime:   g.TurnStartTime.UnixMilli(),
		TurnTimeLimit:   g.TurnTimeLimit.Milliseconds(),
		WinnerID:        g.WinnerID,
	}
}
