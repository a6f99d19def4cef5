package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/tetherbound/internal/affinity"
	"github.com/talgya/tetherbound/internal/entity"
)

// BindingState tracks the tether lifecycle: Tethered until a clean sever,
// an unexpected break, or (Heirs only) a terminal fade.
type BindingState uint8

const (
	StateTethered BindingState = iota
	StateSeveredClean
	StateBroken
	StateFaded
)

// BindingStateName returns a display name for a binding state.
func BindingStateName(st BindingState) string {
	switch st {
	case StateTethered:
		return "Tethered"
	case StateSeveredClean:
		return "SeveredClean"
	case StateBroken:
		return "Broken"
	case StateFaded:
		return "Faded"
	default:
		return "Unknown"
	}
}

// Binding is one active tether between a player and an entity. Created on
// summon, destroyed on sever or break. At most one per player; at most one
// per entity outside a custody contest.
type Binding struct {
	PlayerID  string       `json:"player_id"`
	EntityID  entity.ID    `json:"entity_id"`
	BoundAt   float64      `json:"bound_at"`   // Session-clock second of the summon
	DrainRate float64      `json:"drain_rate"` // Solo rate; contests multiply on top
	Satisfied bool         `json:"satisfied"`  // Last temperament verdict
	State     BindingState `json:"state"`
	InContest bool         `json:"in_contest"`

	// Temperament evaluator bookkeeping, local to this binding.
	rhythmSet    bool
	rhythmLast   float64
	rhythmStreak int
	rhythmMiss   bool
	lastPunish   float64

	// Active ability effect expiry; 0 = none running.
	abilityUntil float64

	// tickedAt guards against a binding updating twice in one tick when a
	// contest resolves mid-tick and the winner returns to the solo loop.
	tickedAt float64
}

// RhythmStreak exposes the current compliance streak (rhythmic entities).
func (b *Binding) RhythmStreak() int {
	return b.rhythmStreak
}

// Summon binds a player to an entity. Fails with ErrAlreadyBound if the
// player holds a binding, ErrEntityFaded for a faded Heir, and
// ErrEntityUnavailable for rampant entities. Summoning an entity another
// player already holds starts a custody contest for Progenitors and is
// refused for lower tiers.
func (s *Session) Summon(playerID string, ent entity.ID) (*Binding, error) {
	p, ok := s.Players[playerID]
	if !ok {
		return nil, ErrUnknownPlayer
	}
	def := s.Catalog.Get(ent)
	if def == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, ent)
	}
	if _, bound := s.Bindings[playerID]; bound {
		return nil, ErrAlreadyBound
	}
	if s.faded[ent] && !s.Opts.AllowHeirResummon {
		return nil, ErrEntityFaded
	}
	if s.Rampant.Active(ent) {
		return nil, fmt.Errorf("%w: %s is rampant", ErrEntityUnavailable, ent)
	}

	holders := s.boundTo(ent)
	if len(holders) > 0 {
		if def.Tier != entity.TierProgenitor {
			return nil, fmt.Errorf("%w: %s is already tethered", ErrEntityUnavailable, ent)
		}
		if _, contested := s.Contests[ent]; contested {
			return nil, fmt.Errorf("%w: %s is already contested", ErrEntityUnavailable, ent)
		}
	}

	b := s.bind(p, def)
	delete(s.faded, ent) // Resummon (when allowed) clears the fade

	if len(holders) == 1 {
		s.startContest(def, holders[0], b)
	}
	return b, nil
}

// bind creates the binding and applies the entity's environmental shift.
func (s *Session) bind(p *Player, def *entity.Definition) *Binding {
	traits := def.Traits()
	costMod := traits.CostModifier
	if def.Tier == entity.TierHeir && s.Opts.HeirCostModifier > 0 {
		costMod = s.Opts.HeirCostModifier
	}
	level := s.Ledger.Record(p.ID, def.ID).Level()

	b := &Binding{
		PlayerID:  p.ID,
		EntityID:  def.ID,
		BoundAt:   s.Clock,
		DrainRate: def.BaseDrainRate * costMod * affinity.CostMultiplier(level),
		Satisfied: true,
		State:     StateTethered,
	}
	s.Bindings[p.ID] = b
	s.Shifts[def.ID] = def.ScaledShift(1.0)

	s.EmitEvent(Event{
		Clock:       s.Clock,
		Kind:        "tether",
		Description: fmt.Sprintf("%s tethered %s", p.Name, def.Name),
	})
	slog.Info("tether formed",
		"player", p.Name,
		"entity", def.ID,
		"tier", entity.TierName(def.Tier),
		"drain_rate", b.DrainRate,
		"level", affinity.LevelName(level),
	)
	return b
}

// Sever ends the player's tether cleanly. Always SeveredClean, always a
// bonus, never rampancy.
func (s *Session) Sever(playerID string) error {
	b, ok := s.Bindings[playerID]
	if !ok {
		return ErrNotBound
	}
	def := s.Catalog.Get(b.EntityID)
	traits := def.Traits()

	b.State = StateSeveredClean
	s.release(b)
	s.Ledger.CleanSever(playerID, b.EntityID, traits.SeverBonus)

	s.EmitEvent(Event{
		Clock:       s.Clock,
		Kind:        "sever",
		Description: fmt.Sprintf("%s released %s cleanly", s.playerName(playerID), def.Name),
	})
	slog.Info("tether severed", "player", s.playerName(playerID), "entity", def.ID, "bonus", traits.SeverBonus)
	return nil
}

// tickBinding advances one binding by dt: drain, temperament, punishment,
// affinity, cooldown bookkeeping — in that order.
func (s *Session) tickBinding(b *Binding, dt float64, contested bool) {
	def := s.Catalog.Get(b.EntityID)
	p := s.Players[b.PlayerID]
	if def == nil || p == nil || b.State != StateTethered {
		return
	}
	b.tickedAt = s.Clock
	traits := def.Traits()

	rate := b.DrainRate
	if contested {
		rate *= s.Opts.ContestFactor
	}
	if !p.drain(rate * dt) {
		s.breakBinding(b, def, p, "drained dry")
		return
	}

	res := s.evaluateTemperament(b, def, p)
	b.Satisfied = res.Satisfied
	if res.Punished {
		scale := traits.PunishScale
		if def.Tier == entity.TierHeir && s.Opts.HeirForgiving {
			scale = 0
		}
		if dmg := def.Temperament.PunishDamage * scale; dmg > 0 {
			p.Damage(dmg, s.Clock)
			s.EmitEvent(Event{
				Clock:       s.Clock,
				Kind:        "violation",
				Description: fmt.Sprintf("%s displeased %s (%s temperament, -%.1f health)", p.Name, def.Name, entity.TemperamentKindName(def.Temperament.Kind), dmg),
			})
		}
	}

	s.Ledger.AddTetherGain(b.PlayerID, b.EntityID, dt, res.Satisfied, traits.GainMultiplier)
	if traits.AncestralShare > 0 {
		if anc := s.Catalog.Ancestor(b.EntityID); anc != nil {
			s.Ledger.Propagate(b.PlayerID, anc.ID, dt*traits.AncestralShare)
		}
	}

	if b.abilityUntil > 0 && s.Clock >= b.abilityUntil {
		b.abilityUntil = 0
		s.EmitEvent(Event{
			Clock:       s.Clock,
			Kind:        "ability",
			Description: fmt.Sprintf("%s faded for %s", def.Ability.Name, p.Name),
		})
	}

	// Punishment may have finished the player off.
	if !p.Alive() {
		s.breakBinding(b, def, p, "succumbed to punishment")
	}
}

// breakBinding handles an unexpected break. Progenitors and Scions go
// rampant and the ledger records a full betrayal; Heirs take a reduced
// penalty and fade with no hostile behavior.
func (s *Session) breakBinding(b *Binding, def *entity.Definition, p *Player, cause string) {
	traits := def.Traits()
	s.release(b)

	if traits.CanRampant {
		b.State = StateBroken
		s.Ledger.Betrayal(b.PlayerID, def.ID, traits.BreakPenalty)
		// Under custody the entity may still be held by the other
		// contestant; it only rampages once fully unbound.
		if len(s.boundTo(def.ID)) == 0 {
			s.Rampant.Trigger(def, b.PlayerID)
		}
	} else {
		b.State = StateFaded
		s.Ledger.Betrayal(b.PlayerID, def.ID, traits.BreakPenalty)
		s.faded[def.ID] = true
		s.EmitEvent(Event{
			Clock:       s.Clock,
			Kind:        "break",
			Description: fmt.Sprintf("%s faded quietly after %s %s", def.Name, p.Name, cause),
		})
	}

	s.EmitEvent(Event{
		Clock:       s.Clock,
		Kind:        "break",
		Description: fmt.Sprintf("tether to %s broke: %s %s", def.Name, p.Name, cause),
	})
	slog.Info("tether broken",
		"player", p.Name,
		"entity", def.ID,
		"cause", cause,
		"penalty", traits.BreakPenalty,
		"rampant", traits.CanRampant && s.Rampant.Active(def.ID),
	)
}

// release removes the binding from the session and withdraws the
// environmental shift unless the entity remains held or rampant.
func (s *Session) release(b *Binding) {
	delete(s.Bindings, b.PlayerID)
	b.InContest = false
	if c, ok := s.Contests[b.EntityID]; ok {
		c.dropContestant(b.PlayerID)
	}
	if len(s.boundTo(b.EntityID)) == 0 && !s.Rampant.Active(b.EntityID) {
		delete(s.Shifts, b.EntityID)
	}
}
