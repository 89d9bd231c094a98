package models

// Position is a point on the artillery canvas (y grows downwards).
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type ArtilleryPlayer struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Health   int      `json:"health"`
	Pos      Position `json:"pos"`
	IsActive bool     `json:"isActive"`
}

// TakeDamage lowers health, clamping at zero, and reports whether the player
// is out of the game.
func (p *ArtilleryPlayer) TakeDamage(dmg int) bool {
	p.Health -= dmg
	if p.Health <= 0 {
		p.Health = 0
		p.IsActive = false
	}
	return !p.IsActive
}
