// Package engine provides the tether simulation: the session aggregate, the
// per-tick tether lifecycle, temperament evaluation, rampancy, and custody
// contests. All state advances on a single logical clock via Tick; nothing
// here assumes real time.
package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/talgya/tetherbound/internal/affinity"
	"github.com/talgya/tetherbound/internal/entity"
)

// Rejection cases. All failures are local: the action is refused, nothing
// changes, and the caller may retry.
var (
	ErrUnknownPlayer     = errors.New("unknown player")
	ErrUnknownEntity     = errors.New("unknown entity")
	ErrAlreadyBound      = errors.New("player already bound")
	ErrEntityUnavailable = errors.New("entity unavailable")
	ErrEntityFaded       = errors.New("entity has faded")
	ErrNotBound          = errors.New("no active tether")
	ErrAbilityLocked     = errors.New("ability not unlocked")
	ErrAbilityCooldown   = errors.New("ability on cooldown")
	ErrNotRampant        = errors.New("entity is not rampant")
)

// Options holds the tunable policy knobs. Zero values are replaced by
// DefaultOptions in NewSession.
type Options struct {
	HeirCostModifier      float64        // Heir drain multiplier; 0 = tier default
	HeirForgiving         bool           // Fully forgiving Heirs never punish
	HeirGracePeriod       float64        // Seconds before Heir checks fire; 0 = tier default
	PassivePunishInterval float64        // Min seconds between passive punishments
	RhythmTimeoutMult     float64        // Tolerance multiplier for the rhythm timeout
	ContestFactor         float64        // Drain multiplier while a custody contest runs
	ContestMargin         float64        // Compliance-second lead required to win custody
	ContestBacklash       float64        // Flat damage applied to the custody loser
	RebindMinLevel        affinity.Level // Minimum level to rebind a rampant entity
	AllowHeirResummon     bool           // Whether a faded Heir may be summoned again
}

// DefaultOptions returns the standard policy values.
func DefaultOptions() Options {
	return Options{
		PassivePunishInterval: 1.0,
		RhythmTimeoutMult:     2.0,
		ContestFactor:         1.5,
		ContestMargin:         5.0,
		ContestBacklash:       10,
		RebindMinLevel:        affinity.LevelAcquainted,
	}
}

// Session holds the complete simulation state and wires the components
// together. Constructed explicitly and passed where needed; there are no
// package-level singletons.
type Session struct {
	Catalog *entity.Catalog
	Ledger  *affinity.Ledger
	Opts    Options

	Players  map[string]*Player
	Bindings map[string]*Binding // Player ID → active binding
	Contests map[entity.ID]*CustodyContest
	Rampant  *RampantController

	// Shifts holds the environmental signal per entity while it is
	// tethered or rampant. The rendering collaborator polls this.
	Shifts map[entity.ID]entity.EnvShift

	// faded marks Heirs whose tether broke; terminal unless resummon is
	// explicitly allowed.
	faded map[entity.ID]bool

	Events []Event
	Clock  float64 // Session seconds, advances only through Tick
}

// NewSession creates a session over a catalog and ledger.
func NewSession(catalog *entity.Catalog, ledger *affinity.Ledger, opts Options) *Session {
	def := DefaultOptions()
	if opts.PassivePunishInterval <= 0 {
		opts.PassivePunishInterval = def.PassivePunishInterval
	}
	if opts.RhythmTimeoutMult <= 0 {
		opts.RhythmTimeoutMult = def.RhythmTimeoutMult
	}
	if opts.ContestFactor <= 0 {
		opts.ContestFactor = def.ContestFactor
	}
	if opts.ContestMargin <= 0 {
		opts.ContestMargin = def.ContestMargin
	}
	if opts.ContestBacklash <= 0 {
		opts.ContestBacklash = def.ContestBacklash
	}
	if opts.RebindMinLevel == 0 {
		opts.RebindMinLevel = def.RebindMinLevel
	}

	s := &Session{
		Catalog:  catalog,
		Ledger:   ledger,
		Opts:     opts,
		Players:  make(map[string]*Player),
		Bindings: make(map[string]*Binding),
		Contests: make(map[entity.ID]*CustodyContest),
		Shifts:   make(map[entity.ID]entity.EnvShift),
		faded:    make(map[entity.ID]bool),
	}
	s.Rampant = NewRampantController(s)

	ledger.OnLevelChange(func(rec affinity.Record, from, to affinity.Level) {
		s.EmitEvent(Event{
			Clock: s.Clock,
			Kind:  "affinity",
			Description: fmt.Sprintf("%s with %s: %s -> %s",
				s.playerName(rec.PlayerID), string(rec.EntityID),
				affinity.LevelName(from), affinity.LevelName(to)),
		})
	})
	return s
}

// AddPlayer registers a player with the session.
func (s *Session) AddPlayer(p *Player) {
	s.Players[p.ID] = p
}

func (s *Session) playerName(id string) string {
	if p, ok := s.Players[id]; ok {
		return p.Name
	}
	return id
}

// Tick advances the session by dt seconds. Fixed ordering within a tick:
// custody contests first (both contestants fully updated before comparison),
// then solo bindings (drain, temperament, punishment, affinity, cooldowns),
// then rampant entities.
func (s *Session) Tick(dt float64) {
	if dt <= 0 {
		return
	}
	s.Clock += dt

	for _, c := range s.Contests {
		s.tickContest(c, dt)
	}
	for _, b := range s.Bindings {
		if b.InContest || b.tickedAt == s.Clock {
			continue
		}
		s.tickBinding(b, dt, false)
	}
	s.Rampant.Tick(dt)
}

// RecordAttack stamps an attack action from the player and feeds it into any
// rhythm bookkeeping on their binding. Unknown players are ignored.
func (s *Session) RecordAttack(playerID string) {
	p, ok := s.Players[playerID]
	if !ok {
		return
	}
	p.LastAttack = s.Clock
	if b, ok := s.Bindings[playerID]; ok {
		if def := s.Catalog.Get(b.EntityID); def != nil {
			b.noteAttack(s.Clock, def.Temperament)
		}
	}
}

// DamagePlayer applies external damage to a player. The stamp feeds
// sacrificial temperaments.
func (s *Session) DamagePlayer(playerID string, amount float64) error {
	p, ok := s.Players[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	p.Damage(amount, s.Clock)
	return nil
}

// HealPlayer restores player health.
func (s *Session) HealPlayer(playerID string, amount float64) error {
	p, ok := s.Players[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	p.Heal(amount)
	return nil
}

// ActivateAbility fires the bound entity's ability for the player. Rejected
// while locked (below Ascended), during cooldown (the error reports the
// remaining seconds), or with no active binding.
func (s *Session) ActivateAbility(playerID string) error {
	b, ok := s.Bindings[playerID]
	if !ok || b.State != StateTethered {
		return ErrNotBound
	}
	def := s.Catalog.Get(b.EntityID)
	if def == nil {
		return ErrUnknownEntity
	}
	if !s.Ledger.AbilityUnlocked(playerID, b.EntityID) {
		return ErrAbilityLocked
	}
	if remaining := s.AbilityCooldownRemaining(playerID, b.EntityID); remaining > 0 {
		return fmt.Errorf("%w: %.1fs remaining", ErrAbilityCooldown, remaining)
	}

	s.Ledger.MarkAbilityUse(playerID, b.EntityID, s.Clock)
	b.abilityUntil = s.Clock + def.Ability.Duration
	s.EmitEvent(Event{
		Clock:       s.Clock,
		Kind:        "ability",
		Description: fmt.Sprintf("%s invoked %s (%s)", s.playerName(playerID), def.Ability.Name, def.Name),
	})
	slog.Info("ability activated",
		"player", s.playerName(playerID),
		"entity", def.ID,
		"ability", def.Ability.Name,
		"duration", def.Ability.Duration,
	)
	return nil
}

// AbilityCooldownRemaining returns the seconds left on the pair's ability
// cooldown, or 0 when ready.
func (s *Session) AbilityCooldownRemaining(playerID string, ent entity.ID) float64 {
	def := s.Catalog.Get(ent)
	if def == nil {
		return 0
	}
	rec := s.Ledger.Record(playerID, ent)
	if rec.LastAbilityUse < 0 {
		return 0
	}
	remaining := def.Ability.Cooldown - (s.Clock - rec.LastAbilityUse)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// AbilityActive reports whether the player's ability effect is currently
// running.
func (s *Session) AbilityActive(playerID string) bool {
	b, ok := s.Bindings[playerID]
	return ok && b.abilityUntil > s.Clock
}

// EntityState describes an entity's lifecycle position for observers.
func (s *Session) EntityState(id entity.ID) string {
	if s.faded[id] {
		return "faded"
	}
	if s.Rampant.Active(id) {
		return "rampant"
	}
	if _, ok := s.Contests[id]; ok {
		return "contested"
	}
	for _, b := range s.Bindings {
		if b.EntityID == id {
			return "tethered"
		}
	}
	return "idle"
}

// boundTo returns the active bindings on an entity (0, 1, or 2 under
// custody).
func (s *Session) boundTo(id entity.ID) []*Binding {
	var out []*Binding
	for _, b := range s.Bindings {
		if b.EntityID == id {
			out = append(out, b)
		}
	}
	return out
}
