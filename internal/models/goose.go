package models

// CardKind tags the GooseCard variant. Handlers switch on it exhaustively.
type CardKind string

const (
	KindMovement CardKind = "movement"
	KindTrap     CardKind = "trap"
	KindBoost    CardKind = "boost"
	KindPowerUp  CardKind = "powerup"
)

type TrapType string

const (
	TrapPitfall TrapType = "pitfall"
	TrapIce     TrapType = "ice"
	TrapSwap    TrapType = "swap"
	TrapReverse TrapType = "reverse"
	TrapNet     TrapType = "net"
	TrapBomb    TrapType = "bomb"
)

type BoostType string

const (
	BoostSprint   BoostType = "sprint"
	BoostTeleport BoostType = "teleport"
	BoostDouble   BoostType = "double"
	BoostShield   BoostType = "shield"
	BoostGoose    BoostType = "goose"
)

type PowerUpType string

const (
	PowerUpDetector PowerUpType = "detector"
	PowerUpRemoval  PowerUpType = "removal"
	PowerUpSteal    PowerUpType = "steal"
	PowerUpUndo     PowerUpType = "undo"
	PowerUpMirror   PowerUpType = "mirror"
)

// GooseCard is a tagged union over movement, trap, boost and power-up cards.
// Only the fields belonging to Kind are meaningful.
type GooseCard struct {
	ID          string   `json:"id"`
	Kind        CardKind `json:"type"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Emoji       string   `json:"emoji"`

	MoveSpaces int `json:"moveSpaces,omitempty"`

	TrapType     TrapType `json:"trapType,omitempty"`
	TrapDuration int      `json:"trapDuration,omitempty"`

	BoostType  BoostType `json:"boostType,omitempty"`
	BoostValue int       `json:"boostValue,omitempty"`

	PowerUpType     PowerUpType `json:"powerUpType,omitempty"`
	PowerUpDuration int         `json:"powerUpDuration,omitempty"`
}

// Token is a player's piece on the goose board.
type Token struct {
	PlayerID string `json:"playerId"`
	Position int    `json:"position"`
	Emoji    string `json:"emoji"`
	Color    string `json:"color"`
}

// Effect is a timed status on a player. Counters tick down every time any
// turn advances and the effect is pruned at zero.
type Effect struct {
	Type           string `json:"type"`
	TurnsRemaining int    `json:"turnsRemaining"`
	Description    string `json:"description"`
}

const (
	EffectDoubleMove = "double_move"
	EffectDetector   = "detector"
	EffectMirror     = "mirror"
	EffectReverse    = "reverse"
)

type GoosePlayer struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Token           Token        `json:"token"`
	Hand            []*GooseCard `json:"hand"`
	ActiveEffects   []Effect     `json:"activeEffects"`
	IsCurrentPlayer bool         `json:"isCurrentPlayer"`
	SkipNextTurn    bool         `json:"skipNextTurn"`
	HasShield       bool         `json:"hasShield"`
}

// CardIndex returns the position of the card in hand, or -1.
func (p *GoosePlayer) CardIndex(cardID string) int {
	for i, c := range p.Hand {
		if c.ID == cardID {
			return i
		}
	}
	return -1
}

// TakeCard removes the card at index i from the hand.
func (p *GoosePlayer) TakeCard(i int) *GooseCard {
	c := p.Hand[i]
	p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
	return c
}

// HasEffect reports whether an effect of the given type is live.
func (p *GoosePlayer) HasEffect(kind string) bool {
	for _, e := range p.ActiveEffects {
		if e.Type == kind {
			return true
		}
	}
	return false
}

// RemoveEffect drops every effect of the given type.
func (p *GoosePlayer) RemoveEffect(kind string) {
	kept := p.ActiveEffects[:0]
	for _, e := range p.ActiveEffects {
		if e.Type != kind {
			kept = append(kept, e)
		}
	}
	p.ActiveEffects = kept
}

// TickEffects decrements every effect once and prunes the expired ones.
func (p *GoosePlayer) TickEffects() {
	kept := p.ActiveEffects[:0]
	for _, e := range p.ActiveEffects {
		e.TurnsRemaining--
		if e.TurnsRemaining > 0 {
			kept = append(kept, e)
		}
	}
	p.ActiveEffects = kept
}

// PlacedTrap is a trap card sitting on the board.
type PlacedTrap struct {
	ID             string     `json:"id"`
	Position       int        `json:"position"`
	PlayerID       string     `json:"playerId"`
	TrapCard       *GooseCard `json:"trapCard"`
	TurnsRemaining int        `json:"turnsRemaining"`
	Visible        bool       `json:"isVisible"`
}

// VisibleTo reports whether the viewer can see the trap: bombs are always
// visible, owners see their own traps, and a live detector reveals the rest.
func (t *PlacedTrap) VisibleTo(viewer *GoosePlayer) bool {
	if t.Visible {
		return true
	}
	if viewer == nil {
		return false
	}
	return t.PlayerID == viewer.ID || viewer.HasEffect(EffectDetector)
}

type SpaceType string

const (
	SpaceNormal     SpaceType = "normal"
	SpaceGoose      SpaceType = "goose"
	SpaceBridge     SpaceType = "bridge"
	SpaceStar       SpaceType = "star"
	SpaceShuffle    SpaceType = "shuffle"
	SpaceRest       SpaceType = "rest"
	SpaceCheckpoint SpaceType = "checkpoint"
)

// SpaceEffect is what happens when a token lands on a special space.
type SpaceEffect struct {
	Type        string `json:"type"`
	Value       int    `json:"value,omitempty"`
	Description string `json:"description"`
}

type BoardSpace struct {
	Position    int          `json:"position"`
	Type        SpaceType    `json:"type"`
	Emoji       string       `json:"emoji,omitempty"`
	Description string       `json:"description,omitempty"`
	Effect      *SpaceEffect `json:"effect,omitempty"`
}
