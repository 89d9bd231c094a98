package goose

import (
	"fmt"

	"github.com/duelhub/duel/internal/models"
	"github.com/google/uuid"
)

// throughNextOwnTurn keeps an effect gained during a player's own turn live
// for their next turn in a two-seat game: effects tick on every turn change.
const throughNextOwnTurn = 3

// PlayMovementCard moves the player's token, resolves the landed space and
// any opponent trap there, then ends the turn unless the player finished.
func (g *Game) PlayMovementCard(playerID, cardID string) ActionResult {
	p, idx, res := g.actor(playerID, cardID, models.KindMovement)
	if res != nil {
		return *res
	}
	card := g.discard(p, idx)

	from := p.Token.Position
	if p.HasEffect(models.EffectReverse) {
		p.Token.Position = max(0, from-card.MoveSpaces)
		p.RemoveEffect(models.EffectReverse)
		g.LastAction = fmt.Sprintf("%s was reversed from %d to %d using %s", p.Name, from, p.Token.Position, card.Name)
	} else {
		p.Token.Position = min(from+card.MoveSpaces, g.BoardLength)
		g.LastAction = fmt.Sprintf("%s moved from %d to %d using %s", p.Name, from, p.Token.Position, card.Name)
	}

	g.triggerSpaceEffect(p)
	g.checkTraps(p)

	if p.Token.Position >= g.BoardLength {
		return g.finish(p)
	}
	msg := g.LastAction
	g.endTurn()
	return ActionResult{Success: true, Message: msg, Action: "movement"}
}

// PlaceTrap puts a trap card face down on an empty normal space.
func (g *Game) PlaceTrap(playerID, cardID string, position int) ActionResult {
	p, idx, res := g.actor(playerID, cardID, models.KindTrap)
	if res != nil {
		return *res
	}
	if position < 0 || position > g.BoardLength {
		return fail("Invalid position!")
	}
	for _, other := range g.players {
		if other.Token.Position == position {
			return fail("Cannot place trap on occupied space!")
		}
	}
	if g.board[position].Type != models.SpaceNormal {
		return fail("Cannot place trap on special space!")
	}
	owned := 0
	for _, t := range g.placedTraps {
		if t.PlayerID == playerID {
			owned++
		}
	}
	if owned >= maxTraps {
		return fail(fmt.Sprintf("Maximum %d traps on board!", maxTraps))
	}

	card := g.discard(p, idx)
	duration := card.TrapDuration
	if duration <= 0 {
		duration = defaultTrapDuration
	}
	g.placedTraps = append(g.placedTraps, &models.PlacedTrap{
		ID:             uuid.NewString(),
		Position:       position,
		PlayerID:       playerID,
		TrapCard:       card,
		TurnsRemaining: duration,
		Visible:        card.TrapType == models.TrapBomb,
	})
	g.LastAction = fmt.Sprintf("%s placed %s at position %d", p.Name, card.Name, position)
	msg := g.LastAction
	g.endTurn()
	return ActionResult{Success: true, Message: msg, Action: "placeTrap"}
}

// UseBoost plays a boost card. target is only read by teleport. Double
// leaves the turn open for one more action.
func (g *Game) UseBoost(playerID, cardID string, target *int) ActionResult {
	p, idx, res := g.actor(playerID, cardID, models.KindBoost)
	if res != nil {
		return *res
	}
	card := p.Hand[idx]

	var msg string
	switch card.BoostType {
	case models.BoostSprint:
		steps := card.BoostValue
		if steps <= 0 {
			steps = 3
		}
		p.Token.Position = min(p.Token.Position+steps, g.BoardLength)
		msg = fmt.Sprintf("%s sprinted %d extra spaces!", p.Name, steps)
	case models.BoostTeleport:
		if target == nil {
			return fail("Target position required for teleport!")
		}
		reach := card.BoostValue
		if reach <= 0 {
			reach = 10
		}
		if *target < 0 || abs(*target-p.Token.Position) > reach {
			return fail("Target too far for teleport!")
		}
		p.Token.Position = min(*target, g.BoardLength)
		msg = fmt.Sprintf("%s teleported to position %d!", p.Name, p.Token.Position)
	case models.BoostShield:
		p.HasShield = true
		msg = fmt.Sprintf("%s activated shield! 🛡️", p.Name)
	case models.BoostGoose:
		if next := nextGoose(g.board, p.Token.Position); next != -1 {
			p.Token.Position = next
			msg = fmt.Sprintf("%s boosted to Goose space at %d!", p.Name, next)
		} else {
			p.Token.Position = g.BoardLength
			msg = fmt.Sprintf("%s boosted to finish!", p.Name)
		}
	case models.BoostDouble:
		p.ActiveEffects = append(p.ActiveEffects, models.Effect{
			Type:           models.EffectDoubleMove,
			TurnsRemaining: 1,
			Description:    "Take another turn",
		})
		msg = fmt.Sprintf("%s gets another turn!", p.Name)
	default:
		return fail("Unknown boost!")
	}

	g.discard(p, idx)
	g.LastAction = msg
	if p.Token.Position >= g.BoardLength {
		return g.finish(p)
	}
	if card.BoostType != models.BoostDouble {
		g.endTurn()
	}
	return ActionResult{Success: true, Message: msg, Action: "boost"}
}

// UsePowerUp plays a power-up card and ends the turn.
func (g *Game) UsePowerUp(playerID, cardID string) ActionResult {
	p, idx, res := g.actor(playerID, cardID, models.KindPowerUp)
	if res != nil {
		return *res
	}
	card := g.discard(p, idx)

	var msg string
	switch card.PowerUpType {
	case models.PowerUpDetector:
		turns := card.PowerUpDuration
		if turns <= 0 {
			turns = 3
		}
		p.ActiveEffects = append(p.ActiveEffects, models.Effect{
			Type:           models.EffectDetector,
			TurnsRemaining: turns,
			Description:    "Can see all traps",
		})
		msg = fmt.Sprintf("%s can now see all traps!", p.Name)
	case models.PowerUpRemoval:
		msg = fmt.Sprintf("%s used Trap Removal, but no traps to remove!", p.Name)
		for i, t := range g.placedTraps {
			if t.PlayerID != p.ID && !t.Visible {
				g.placedTraps = append(g.placedTraps[:i], g.placedTraps[i+1:]...)
				msg = fmt.Sprintf("%s removed a trap at position %d!", p.Name, t.Position)
				break
			}
		}
	case models.PowerUpSteal:
		opp := g.opponent(p.ID)
		if opp == nil || len(opp.Hand) == 0 {
			msg = fmt.Sprintf("%s tried to steal but opponent has no cards!", p.Name)
			break
		}
		stolen := opp.TakeCard(g.rng.IntN(len(opp.Hand)))
		if len(p.Hand) < maxHand {
			p.Hand = append(p.Hand, stolen)
			msg = fmt.Sprintf("%s stole a %s from %s!", p.Name, stolen.Name, opp.Name)
		} else {
			g.discardPile = append(g.discardPile, stolen)
			msg = fmt.Sprintf("%s tried to steal but hand is full!", p.Name)
		}
	case models.PowerUpUndo:
		if p.Token.Position > 0 {
			p.Token.Position = max(0, p.Token.Position-3)
			msg = fmt.Sprintf("%s undid their last move!", p.Name)
		} else {
			msg = fmt.Sprintf("%s is already at the start!", p.Name)
		}
	case models.PowerUpMirror:
		// Only the flag is tracked; incoming traps are not redirected.
		p.ActiveEffects = append(p.ActiveEffects, models.Effect{
			Type:           models.EffectMirror,
			TurnsRemaining: throughNextOwnTurn,
			Description:    "Next trap is reflected",
		})
		msg = fmt.Sprintf("%s will reflect the next trap!", p.Name)
	default:
		msg = fmt.Sprintf("%s played an unknown power-up", p.Name)
	}

	g.LastAction = msg
	g.endTurn()
	return ActionResult{Success: true, Message: msg, Action: "powerup"}
}

// SkipTurn discards the whole hand, draws up to three fresh cards and ends
// the turn. It is the way out of a hand with no playable movement.
func (g *Game) SkipTurn(playerID string) ActionResult {
	p, res := g.turnHolder(playerID)
	if res != nil {
		return *res
	}
	g.discardPile = append(g.discardPile, p.Hand...)
	p.Hand = []*models.GooseCard{}
	for i := 0; i < startingHand; i++ {
		g.drawInto(p)
	}
	g.LastAction = fmt.Sprintf("%s discarded all cards and drew new ones", p.Name)
	g.endTurn()
	return ActionResult{Success: true, Message: "Skipped turn and drew new cards", Action: "skipTurn"}
}

// EndTurn lets the current player pass without playing a card.
func (g *Game) EndTurn(playerID string) ActionResult {
	p, res := g.turnHolder(playerID)
	if res != nil {
		return *res
	}
	g.LastAction = fmt.Sprintf("%s ended their turn", p.Name)
	g.endTurn()
	return ActionResult{Success: true, Message: "Turn ended", Action: "endTurn"}
}

// triggerSpaceEffect resolves the space the player just landed on.
func (g *Game) triggerSpaceEffect(p *models.GoosePlayer) {
	if p.Token.Position < 0 || p.Token.Position >= len(g.board) {
		return
	}
	effect := g.board[p.Token.Position].Effect
	if effect == nil {
		return
	}
	switch effect.Type {
	case "goose":
		if next := nextGoose(g.board, p.Token.Position); next != -1 {
			p.Token.Position = next
			g.LastAction += fmt.Sprintf(" → Goose! Jumped to %d", next)
		}
	case "advance":
		p.Token.Position = min(p.Token.Position+effect.Value, g.BoardLength)
		g.LastAction += fmt.Sprintf(" → Bridge! Skipped ahead %d", effect.Value)
	case "draw":
		for i := 0; i < effect.Value; i++ {
			g.drawInto(p)
		}
		g.LastAction += fmt.Sprintf(" → Star! Drew %d cards", effect.Value)
	case "swap":
		if opp := g.opponent(p.ID); opp != nil {
			p.Token.Position, opp.Token.Position = opp.Token.Position, p.Token.Position
			g.LastAction += fmt.Sprintf(" → Shuffle! Swapped positions with %s", opp.Name)
		}
	case "rest":
		p.SkipNextTurn = true
		for i := 0; i < effect.Value; i++ {
			g.drawInto(p)
		}
		g.LastAction += fmt.Sprintf(" → Rest! Skips next turn but drew %d cards", effect.Value)
	case "safe":
	}
}

// checkTraps springs the first opponent trap on the player's space. A shield
// absorbs it instead. Either way the trap leaves the board.
func (g *Game) checkTraps(p *models.GoosePlayer) {
	idx := -1
	for i, t := range g.placedTraps {
		if t.Position == p.Token.Position && t.PlayerID != p.ID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}
	trap := g.placedTraps[idx]
	g.placedTraps = append(g.placedTraps[:idx], g.placedTraps[idx+1:]...)

	if p.HasShield {
		p.HasShield = false
		g.LastAction += " 🛡️ Shield protected from traps!"
		return
	}

	switch trap.TrapCard.TrapType {
	case models.TrapPitfall:
		p.Token.Position = max(0, p.Token.Position-5)
		g.LastAction += " 🕳️ Fell in pitfall! Back 5 spaces"
	case models.TrapIce:
		p.SkipNextTurn = true
		g.LastAction += " 🧊 Frozen! Skip next turn"
	case models.TrapSwap:
		if opp := g.opponent(p.ID); opp != nil {
			p.Token.Position, opp.Token.Position = opp.Token.Position, p.Token.Position
			g.LastAction += " 🔄 Swap trap! Positions swapped"
		}
	case models.TrapNet:
		p.SkipNextTurn = true
		g.LastAction += " 🕸️ Caught in net! Skip next turn"
	case models.TrapBomb:
		p.Token.Position = 0
		g.LastAction += " 💣 BOOM! Back to start!"
	case models.TrapReverse:
		p.ActiveEffects = append(p.ActiveEffects, models.Effect{
			Type:           models.EffectReverse,
			TurnsRemaining: throughNextOwnTurn,
			Description:    "Next move is backward",
		})
		g.LastAction += " ↩️ Reverse trap! Next move backward"
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
