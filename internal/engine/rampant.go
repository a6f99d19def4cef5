package engine

import (
	"fmt"
	"log/slog"
	"sort"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/tetherbound/internal/entity"
)

// rampantShiftBoost intensifies an entity's environmental shift while it
// rampages.
const rampantShiftBoost = 1.5

// RampantSession is one entity loose in its hostile state. Mutually
// exclusive with any binding on the same entity; Heirs never get one.
type RampantSession struct {
	EntityID        entity.ID              `json:"entity_id"`
	Behavior        entity.RampantBehavior `json:"behavior"`
	Remaining       float64                `json:"remaining"`
	DamagePerAttack float64                `json:"damage_per_attack"`

	betrayer string  // Player whose break freed the entity
	attackIn float64 // Countdown to the next attack
	noiseT   float64 // Cursor into the wander noise field
}

// RampantController owns every active rampant session and its state machine:
// Dormant -> Rampant(behavior, remaining) -> Dormant.
type RampantController struct {
	session  *Session
	sessions map[entity.ID]*RampantSession
	noise    opensimplex.Noise
}

// NewRampantController creates a controller over the session's players.
func NewRampantController(s *Session) *RampantController {
	return &RampantController{
		session:  s,
		sessions: make(map[entity.ID]*RampantSession),
		noise:    opensimplex.New(0x7e7be4),
	}
}

// Active reports whether an entity is currently rampant.
func (rc *RampantController) Active(id entity.ID) bool {
	_, ok := rc.sessions[id]
	return ok
}

// Sessions returns the active rampant sessions.
func (rc *RampantController) Sessions() []*RampantSession {
	out := make([]*RampantSession, 0, len(rc.sessions))
	for _, rs := range rc.sessions {
		out = append(out, rs)
	}
	return out
}

// Trigger enters the rampant state after an unexpected break. Heirs never
// arrive here; the tether manager routes them to their fade instead.
func (rc *RampantController) Trigger(def *entity.Definition, betrayer string) {
	if !def.Traits().CanRampant {
		return
	}
	s := rc.session
	rc.sessions[def.ID] = &RampantSession{
		EntityID:        def.ID,
		Behavior:        def.Rampant.Behavior,
		Remaining:       def.Rampant.Duration,
		DamagePerAttack: def.Rampant.DamagePerAttack,
		betrayer:        betrayer,
		attackIn:        def.Rampant.AttackInterval,
	}

	// The shift does not fade with the tether — it intensifies.
	s.Shifts[def.ID] = def.ScaledShift(rampantShiftBoost)

	s.EmitEvent(Event{
		Clock:       s.Clock,
		Kind:        "rampant",
		Description: fmt.Sprintf("%s breaks loose, %s and hostile", def.Name, entity.RampantBehaviorName(def.Rampant.Behavior)),
	})
	slog.Info("entity rampant",
		"entity", def.ID,
		"behavior", entity.RampantBehaviorName(def.Rampant.Behavior),
		"duration", def.Rampant.Duration,
	)
}

// Tick advances every rampant session: countdown, periodic attacks, and the
// return to dormancy.
func (rc *RampantController) Tick(dt float64) {
	s := rc.session
	for id, rs := range rc.sessions {
		def := s.Catalog.Get(id)
		if def == nil {
			delete(rc.sessions, id)
			continue
		}
		rs.Remaining -= dt
		rs.noiseT += dt

		if rs.Remaining <= 0 {
			delete(rc.sessions, id)
			delete(s.Shifts, id)
			s.EmitEvent(Event{
				Clock:       s.Clock,
				Kind:        "rampant",
				Description: fmt.Sprintf("%s spends its fury and falls dormant", def.Name),
			})
			slog.Info("rampancy ended", "entity", id)
			continue
		}

		rs.attackIn -= dt
		for rs.attackIn <= 0 {
			rs.attackIn += def.Rampant.AttackInterval
			rc.attack(rs, def)
		}
	}
}

// attack performs one behavioral strike.
func (rc *RampantController) attack(rs *RampantSession, def *entity.Definition) {
	s := rc.session

	switch rs.Behavior {
	case entity.RampantAggressive:
		// Seeks its betrayer first, anyone else after.
		target := s.Players[rs.betrayer]
		if target == nil || !target.Alive() {
			target = rc.pickTarget(rs)
		}
		if target != nil {
			target.Damage(rs.DamagePerAttack, s.Clock)
			s.EmitEvent(Event{
				Clock:       s.Clock,
				Kind:        "rampant",
				Description: fmt.Sprintf("%s hunts down %s (-%.1f health)", def.Name, target.Name, rs.DamagePerAttack),
			})
		}
	case entity.RampantChaotic:
		// Wander direction comes off a smooth noise field, so movement is
		// erratic but deterministic for a given session.
		dx := rc.noise.Eval2(rs.noiseT*0.4, float64(len(rs.EntityID)))
		dy := rc.noise.Eval2(float64(len(rs.EntityID)), rs.noiseT*0.4)
		if target := rc.pickTarget(rs); target != nil {
			target.Damage(rs.DamagePerAttack, s.Clock)
			s.EmitEvent(Event{
				Clock:       s.Clock,
				Kind:        "rampant",
				Description: fmt.Sprintf("%s lashes out wildly at %s (drift %.2f,%.2f)", def.Name, target.Name, dx, dy),
			})
		}
	case entity.RampantDestructive:
		s.EmitEvent(Event{
			Clock:       s.Clock,
			Kind:        "environment",
			Description: fmt.Sprintf("%s tears at the surroundings", def.Name),
		})
		if target := rc.pickTarget(rs); target != nil {
			target.Damage(rs.DamagePerAttack*0.5, s.Clock)
			s.EmitEvent(Event{
				Clock:       s.Clock,
				Kind:        "rampant",
				Description: fmt.Sprintf("%s catches %s in the wreckage (-%.1f health)", def.Name, target.Name, rs.DamagePerAttack*0.5),
			})
		}
	}
}

// pickTarget selects a living player, noise-driven for variety but stable
// within a tick.
func (rc *RampantController) pickTarget(rs *RampantSession) *Player {
	s := rc.session
	var alive []*Player
	for _, p := range s.Players {
		if p.Alive() {
			alive = append(alive, p)
		}
	}
	if len(alive) == 0 {
		return nil
	}
	sort.Slice(alive, func(i, j int) bool { return alive[i].ID < alive[j].ID })

	v := rc.noise.Eval2(rs.noiseT, 7.3) // [-1, 1]
	idx := int((v + 1) / 2 * float64(len(alive)))
	if idx >= len(alive) {
		idx = len(alive) - 1
	}
	return alive[idx]
}

// Rebind ends a rampant session early and re-establishes a tether. Allowed
// only for a player whose standing with the entity meets the configured
// floor.
func (s *Session) Rebind(playerID string, ent entity.ID) (*Binding, error) {
	p, ok := s.Players[playerID]
	if !ok {
		return nil, ErrUnknownPlayer
	}
	def := s.Catalog.Get(ent)
	if def == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, ent)
	}
	if !s.Rampant.Active(ent) {
		return nil, ErrNotRampant
	}
	if _, bound := s.Bindings[playerID]; bound {
		return nil, ErrAlreadyBound
	}
	if s.Ledger.Record(playerID, ent).Level() < s.Opts.RebindMinLevel {
		return nil, fmt.Errorf("%w: affinity too low to rebind", ErrEntityUnavailable)
	}

	delete(s.Rampant.sessions, ent)
	s.EmitEvent(Event{
		Clock:       s.Clock,
		Kind:        "rampant",
		Description: fmt.Sprintf("%s calms %s out of its rampage", p.Name, def.Name),
	})
	slog.Info("rampant entity rebound", "entity", ent, "player", p.Name)
	return s.bind(p, def), nil
}
