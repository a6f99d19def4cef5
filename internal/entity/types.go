// Package entity provides the static catalog of summonable entities:
// tiers, temperaments, rampant profiles, and abilities.
package entity

// ID is a unique identifier for a catalog entity.
type ID string

// Tier is the entity power class.
type Tier uint8

const (
	TierProgenitor Tier = iota // Strongest: full drain, full shift, strict temperament
	TierScion                  // Mid: reduced drain, localized shift, feeds its Progenitor
	TierHeir                   // Weakest: cheap, lenient, never turns Rampant
)

// TierName returns a display name for a tier.
func TierName(t Tier) string {
	switch t {
	case TierProgenitor:
		return "Progenitor"
	case TierScion:
		return "Scion"
	case TierHeir:
		return "Heir"
	default:
		return "Unknown"
	}
}

// TemperamentKind selects the behavioral contract an entity imposes on its
// bound player.
type TemperamentKind uint8

const (
	TemperamentAggressive  TemperamentKind = iota // Demands constant attacking
	TemperamentPassive                            // Forbids attacking
	TemperamentRhythmic                           // Demands attacks on a steady beat
	TemperamentSacrificial                        // Demands the player keep bleeding
)

// TemperamentKindName returns a display name for a temperament kind.
func TemperamentKindName(k TemperamentKind) string {
	switch k {
	case TemperamentAggressive:
		return "Aggressive"
	case TemperamentPassive:
		return "Passive"
	case TemperamentRhythmic:
		return "Rhythmic"
	case TemperamentSacrificial:
		return "Sacrificial"
	default:
		return "Unknown"
	}
}

// Temperament holds the contract kind plus its per-entity thresholds.
// Only the fields relevant to Kind are consulted.
type Temperament struct {
	Kind TemperamentKind `json:"kind"`

	// Aggressive: violated when the player hesitates longer than this (seconds).
	HesitationWindow float64 `json:"hesitation_window,omitempty"`

	// Passive: violated when the player attacked more recently than this (seconds).
	CalmWindow float64 `json:"calm_window,omitempty"`

	// Rhythmic: target interval between attacks, with tolerance (seconds).
	RhythmWindow    float64 `json:"rhythm_window,omitempty"`
	RhythmTolerance float64 `json:"rhythm_tolerance,omitempty"`

	// Sacrificial: violated when the player has taken no damage for this long (seconds).
	SacrificeWindow float64 `json:"sacrifice_window,omitempty"`

	// PunishDamage is the base punishment on violation, before tier scaling.
	PunishDamage float64 `json:"punish_damage"`
}

// RampantBehavior selects how an unbound hostile entity acts.
type RampantBehavior uint8

const (
	RampantAggressive  RampantBehavior = iota // Seeks and attacks the nearest player
	RampantChaotic                            // Noise-driven wandering, attacks of opportunity
	RampantDestructive                        // Tears at the environment, players incidental
)

// RampantBehaviorName returns a display name for a rampant behavior.
func RampantBehaviorName(b RampantBehavior) string {
	switch b {
	case RampantAggressive:
		return "Aggressive"
	case RampantChaotic:
		return "Chaotic"
	case RampantDestructive:
		return "Destructive"
	default:
		return "Unknown"
	}
}

// RampantProfile describes the hostile state an entity enters after an
// unexpected tether break. Heirs never use theirs.
type RampantProfile struct {
	Behavior        RampantBehavior `json:"behavior"`
	Duration        float64         `json:"duration"`          // Seconds of rampancy
	DamagePerAttack float64         `json:"damage_per_attack"` // Health per hit
	AttackInterval  float64         `json:"attack_interval"`   // Seconds between hits
}

// Ability describes the power unlocked at Ascended affinity.
type Ability struct {
	Name      string  `json:"name"`
	Duration  float64 `json:"duration"`  // Seconds the effect lasts
	Magnitude float64 `json:"magnitude"` // Effect strength, ability-specific units
	Cooldown  float64 `json:"cooldown"`  // Seconds between uses
}

// EnvShift is the discrete environmental signal an entity projects while
// tethered. Rendering and physics consume it; the engine only owns the values.
type EnvShift struct {
	Tint        string  `json:"tint"`         // Ambient tint descriptor
	GravityMult float64 `json:"gravity_mult"` // 1.0 = unchanged
	SpeedMult   float64 `json:"speed_mult"`   // Player movement multiplier
}

// Definition is the immutable catalog record for one entity.
type Definition struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
	Tier Tier   `json:"tier"`

	Temperament   Temperament    `json:"temperament"`
	BaseDrainRate float64        `json:"base_drain_rate"` // Health per second before modifiers
	Rampant       RampantProfile `json:"rampant"`
	Ability       Ability        `json:"ability"`
	Shift         EnvShift       `json:"shift"`

	// AncestorID links a Scion or Heir to its Progenitor for affinity
	// propagation. Empty for Progenitors.
	AncestorID ID `json:"ancestor_id,omitempty"`
}
