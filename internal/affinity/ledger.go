// Package affinity provides the persistent relationship ledger between
// players and entities: scores, levels, cost multipliers, and unlocks.
// All records are owned here and mutated only through the Ledger API.
package affinity

import (
	"github.com/talgya/tetherbound/internal/entity"
)

// Affinity gain rates per tethered second.
const (
	GainBaseRate       = 0.5 // Earned for simply holding the tether
	GainComplianceRate = 0.2 // Extra when the temperament was satisfied
)

// Level is the derived relationship tier of a record.
type Level uint8

const (
	LevelHostile    Level = iota // Low affinity plus repeated betrayals
	LevelStranger                // [0, 20)
	LevelAcquainted              // [20, 40)
	LevelBonded                  // [40, 70)
	LevelDevoted                 // [70, 100)
	LevelAscended                // Exactly 100
)

// LevelName returns a display name for a level.
func LevelName(l Level) string {
	switch l {
	case LevelHostile:
		return "Hostile"
	case LevelStranger:
		return "Stranger"
	case LevelAcquainted:
		return "Acquainted"
	case LevelBonded:
		return "Bonded"
	case LevelDevoted:
		return "Devoted"
	case LevelAscended:
		return "Ascended"
	default:
		return "Unknown"
	}
}

// hostileBetrayals is the betrayal count at which low affinity turns hostile.
const hostileBetrayals = 3

// LevelFor derives a level from raw record state. Pure: the same inputs
// always produce the same level.
func LevelFor(affinity float64, betrayals int) Level {
	if affinity < 20 && betrayals >= hostileBetrayals {
		return LevelHostile
	}
	switch {
	case affinity >= 100:
		return LevelAscended
	case affinity >= 70:
		return LevelDevoted
	case affinity >= 40:
		return LevelBonded
	case affinity >= 20:
		return LevelAcquainted
	default:
		return LevelStranger
	}
}

// CostMultiplier returns the drain-rate multiplier earned by a level.
func CostMultiplier(l Level) float64 {
	switch l {
	case LevelHostile:
		return 1.5
	case LevelStranger:
		return 1.0
	case LevelAcquainted:
		return 0.9
	case LevelBonded:
		return 0.8
	case LevelDevoted:
		return 0.65
	case LevelAscended:
		return 0.5
	default:
		return 1.0
	}
}

// Record is the persistent relationship state for one (player, entity) pair.
type Record struct {
	PlayerID       string    `json:"player_id" db:"player_id"`
	EntityID       entity.ID `json:"entity_id" db:"entity_id"`
	Affinity       float64   `json:"affinity" db:"affinity"`                 // Clamped to [0, 100]
	Betrayals      int       `json:"betrayals" db:"betrayals"`               // Monotonic
	LastAbilityUse float64   `json:"last_ability_use" db:"last_ability_use"` // Session-clock seconds; negative = never
}

// Level returns the record's derived relationship level.
func (r *Record) Level() Level {
	return LevelFor(r.Affinity, r.Betrayals)
}

type recordKey struct {
	player string
	entity entity.ID
}

// LevelChangeFunc observes level transitions after a mutation.
type LevelChangeFunc func(rec Record, from, to Level)

// Ledger holds every affinity record for a session. Not safe for concurrent
// use; all mutations are sequenced by the session tick.
type Ledger struct {
	records map[recordKey]*Record
	onLevel LevelChangeFunc
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{records: make(map[recordKey]*Record)}
}

// OnLevelChange registers the level-transition observer. One observer only;
// the session fans out to its own listeners.
func (l *Ledger) OnLevelChange(fn LevelChangeFunc) {
	l.onLevel = fn
}

// Record returns the record for a (player, entity) pair, creating a fresh
// Stranger record on first contact. Unknown pairs are never an error.
func (l *Ledger) Record(player string, ent entity.ID) *Record {
	k := recordKey{player, ent}
	r, ok := l.records[k]
	if !ok {
		r = &Record{PlayerID: player, EntityID: ent, LastAbilityUse: -1}
		l.records[k] = r
	}
	return r
}

// Load replaces the ledger contents with persisted records.
func (l *Ledger) Load(recs []Record) {
	l.records = make(map[recordKey]*Record, len(recs))
	for i := range recs {
		r := recs[i]
		r.Affinity = clamp(r.Affinity)
		l.records[recordKey{r.PlayerID, r.EntityID}] = &r
	}
}

// All returns every record. Order is unspecified.
func (l *Ledger) All() []*Record {
	out := make([]*Record, 0, len(l.records))
	for _, r := range l.records {
		out = append(out, r)
	}
	return out
}

// AddTetherGain applies the continuous per-tick gain formula for dt tethered
// seconds. gainMult is the tier gain multiplier applied to dt before the
// formula (Heirs earn at 1.5x). Returns the gain actually credited.
func (l *Ledger) AddTetherGain(player string, ent entity.ID, dt float64, satisfied bool, gainMult float64) float64 {
	if dt <= 0 {
		return 0
	}
	edt := dt * gainMult
	gain := GainBaseRate * edt
	if satisfied {
		gain += GainComplianceRate * edt
	}
	r := l.Record(player, ent)
	l.shift(r, gain)
	return gain
}

// Propagate credits an ancestral share to a linked Progenitor's record.
// The amount is dt-derived by the caller and always counts as full
// compliance; the Progenitor is never blamed for a descendant's conduct.
func (l *Ledger) Propagate(player string, ent entity.ID, amount float64) {
	if amount <= 0 {
		return
	}
	r := l.Record(player, ent)
	l.shift(r, amount)
}

// CleanSever credits the clean-severance bonus. Never decreases affinity.
func (l *Ledger) CleanSever(player string, ent entity.ID, bonus float64) {
	r := l.Record(player, ent)
	l.shift(r, bonus)
}

// Betrayal records an unexpected break: the tier's penalty comes off the
// score and the betrayal count rises. Betrayal counts never reset.
func (l *Ledger) Betrayal(player string, ent entity.ID, penalty float64) {
	r := l.Record(player, ent)
	before := r.Level()
	r.Betrayals++
	r.Affinity = clamp(r.Affinity - penalty)
	l.emit(r, before)
}

// AbilityUnlocked reports whether the pair has reached Ascended.
func (l *Ledger) AbilityUnlocked(player string, ent entity.ID) bool {
	return l.Record(player, ent).Level() == LevelAscended
}

// MarkAbilityUse stamps the session clock onto the record.
func (l *Ledger) MarkAbilityUse(player string, ent entity.ID, now float64) {
	l.Record(player, ent).LastAbilityUse = now
}

// shift moves a record's affinity by delta, clamping and emitting any level
// transition.
func (l *Ledger) shift(r *Record, delta float64) {
	before := r.Level()
	r.Affinity = clamp(r.Affinity + delta)
	l.emit(r, before)
}

func (l *Ledger) emit(r *Record, before Level) {
	after := r.Level()
	if after != before && l.onLevel != nil {
		l.onLevel(*r, before, after)
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
