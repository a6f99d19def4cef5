package engine

import (
	"github.com/google/uuid"
)

// Player is the session-side view of a bound (or bindable) player. The
// engine reads health and action timestamps; mutation happens only through
// the methods below so temperament bookkeeping stays consistent.
type Player struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Health    float64 `json:"health"`
	MaxHealth float64 `json:"max_health"`
	MoveSpeed float64 `json:"move_speed"`

	// LastAttack is the session-clock second of the most recent attack
	// action. Negative until the first attack.
	LastAttack float64 `json:"last_attack"`

	// LastDamaged is the session-clock second the player last took damage
	// from any source other than tether drain. Negative until first hit.
	LastDamaged float64 `json:"last_damaged"`
}

// NewPlayer creates a player with a fresh UUID and full health.
func NewPlayer(name string, maxHealth float64) *Player {
	return &Player{
		ID:          uuid.NewString(),
		Name:        name,
		Health:      maxHealth,
		MaxHealth:   maxHealth,
		MoveSpeed:   1.0,
		LastAttack:  -1,
		LastDamaged: -1,
	}
}

// Damage applies damage, clamping health at zero, and stamps LastDamaged.
func (p *Player) Damage(amount, now float64) {
	if amount <= 0 {
		return
	}
	p.Health -= amount
	if p.Health < 0 {
		p.Health = 0
	}
	p.LastDamaged = now
}

// Heal restores health up to the maximum.
func (p *Player) Heal(amount float64) {
	if amount <= 0 {
		return
	}
	p.Health += amount
	if p.Health > p.MaxHealth {
		p.Health = p.MaxHealth
	}
}

// drain subtracts a tether cost without counting as damage taken.
// Returns false when the player cannot cover the cost (health clamps to 0).
func (p *Player) drain(cost float64) bool {
	if p.Health > cost {
		p.Health -= cost
		return true
	}
	p.Health = 0
	return false
}

// Alive reports whether the player has health remaining.
func (p *Player) Alive() bool {
	return p.Health > 0
}
