package engine

import (
	"log/slog"

	"github.com/talgya/tetherbound/internal/entity"
)

// TemperamentResult is the outcome of one evaluation tick.
type TemperamentResult struct {
	Satisfied bool
	Punished  bool
}

// evaluateTemperament runs the entity's behavioral contract against the
// player's recent actions. It decides compliance and whether punishment
// fires this tick; the tether manager applies the damage.
func (s *Session) evaluateTemperament(b *Binding, def *entity.Definition, p *Player) TemperamentResult {
	now := s.Clock
	traits := def.Traits()

	// Lenient tiers get a grace window after binding before any check fires.
	grace := traits.GracePeriod
	if def.Tier == entity.TierHeir && s.Opts.HeirGracePeriod > 0 {
		grace = s.Opts.HeirGracePeriod
	}
	if now-b.BoundAt < grace {
		return TemperamentResult{Satisfied: true}
	}

	t := def.Temperament
	switch t.Kind {
	case entity.TemperamentAggressive:
		return s.evalAggressive(b, t, p, now)
	case entity.TemperamentPassive:
		return s.evalPassive(b, t, p, now)
	case entity.TemperamentRhythmic:
		return s.evalRhythmic(b, t, now)
	case entity.TemperamentSacrificial:
		return s.evalSacrificial(b, t, p, now)
	default:
		return TemperamentResult{Satisfied: true}
	}
}

// evalAggressive: the entity demands bloodshed. Violated when the player has
// hesitated longer than the window. Punishment fires every evaluation while
// the hesitation lasts; the tick cadence is the only rate limit.
func (s *Session) evalAggressive(b *Binding, t entity.Temperament, p *Player, now float64) TemperamentResult {
	ref := b.BoundAt
	if p.LastAttack > ref {
		ref = p.LastAttack
	}
	if now-ref > t.HesitationWindow {
		return TemperamentResult{Satisfied: false, Punished: true}
	}
	return TemperamentResult{Satisfied: true}
}

// evalPassive: the entity demands stillness. Violated when the player
// attacked too recently. Punishment is rate-limited to once per sustained
// violation interval so a flurry of attacks does not become punishment spam.
func (s *Session) evalPassive(b *Binding, t entity.Temperament, p *Player, now float64) TemperamentResult {
	if p.LastAttack < 0 || now-p.LastAttack >= t.CalmWindow {
		return TemperamentResult{Satisfied: true}
	}
	res := TemperamentResult{Satisfied: false}
	if now-b.lastPunish >= s.Opts.PassivePunishInterval {
		b.lastPunish = now
		res.Punished = true
	}
	return res
}

// evalRhythmic: attacks must land on a steady beat. Interval judgment
// happens when the attack is recorded (noteAttack); this tick-side check
// consumes any pending miss and watches for the beat dying out entirely.
func (s *Session) evalRhythmic(b *Binding, t entity.Temperament, now float64) TemperamentResult {
	if b.rhythmMiss {
		b.rhythmMiss = false
		return TemperamentResult{Satisfied: false, Punished: true}
	}

	// No action for too long: punish and drop the baseline so the next
	// attack re-establishes it rather than resuming a streak.
	if b.rhythmSet {
		timeout := t.RhythmWindow + t.RhythmTolerance*s.Opts.RhythmTimeoutMult
		if now-b.rhythmLast > timeout {
			b.rhythmSet = false
			b.rhythmStreak = 0
			slog.Debug("rhythm lapsed", "player", b.PlayerID, "entity", b.EntityID)
			return TemperamentResult{Satisfied: false, Punished: true}
		}
	}
	return TemperamentResult{Satisfied: true}
}

// evalSacrificial: the entity demands the player keep bleeding. Violated
// when no damage has been taken within the window; the window restarts after
// each punishment so one dry spell costs one punishment.
func (s *Session) evalSacrificial(b *Binding, t entity.Temperament, p *Player, now float64) TemperamentResult {
	ref := b.BoundAt
	if p.LastDamaged > ref {
		ref = p.LastDamaged
	}
	if b.lastPunish > ref {
		ref = b.lastPunish
	}
	if now-ref > t.SacrificeWindow {
		b.lastPunish = now
		return TemperamentResult{Satisfied: false, Punished: true}
	}
	return TemperamentResult{Satisfied: true}
}

// noteAttack feeds an attack action into the rhythmic bookkeeping. The first
// attack only establishes the baseline; later intervals are judged against
// the target window and tolerance.
func (b *Binding) noteAttack(now float64, t entity.Temperament) {
	if t.Kind != entity.TemperamentRhythmic {
		return
	}
	if !b.rhythmSet {
		b.rhythmSet = true
		b.rhythmLast = now
		return
	}
	interval := now - b.rhythmLast
	b.rhythmLast = now

	dev := interval - t.RhythmWindow
	if dev < 0 {
		dev = -dev
	}
	if dev <= t.RhythmTolerance {
		b.rhythmStreak++
	} else {
		b.rhythmStreak = 0
		b.rhythmMiss = true
	}
}
