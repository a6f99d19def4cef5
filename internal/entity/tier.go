package entity

// Traits is the per-tier behavior table. Replaces a virtual-dispatch
// hierarchy: every tier-dependent quantity lives here.
type Traits struct {
	CostModifier   float64 // Multiplier on base drain rate
	GainMultiplier float64 // Multiplier on affinity gain dt
	AncestralShare float64 // Fraction of tethered dt propagated to the Progenitor
	PunishScale    float64 // Multiplier on temperament punishment damage
	GracePeriod    float64 // Seconds after bind before temperament checks fire
	ShiftIntensity float64 // Scale on the entity's EnvShift deltas
	SeverBonus     float64 // Affinity granted on clean severance
	BreakPenalty   float64 // Affinity lost on unexpected break
	CanRampant     bool    // Whether an unexpected break spawns a RampantSession
}

var tierTraits = [3]Traits{
	TierProgenitor: {
		CostModifier:   1.0,
		GainMultiplier: 1.0,
		AncestralShare: 0,
		PunishScale:    1.0,
		GracePeriod:    0,
		ShiftIntensity: 1.0,
		SeverBonus:     5,
		BreakPenalty:   15,
		CanRampant:     true,
	},
	TierScion: {
		CostModifier:   0.75,
		GainMultiplier: 1.0,
		AncestralShare: 0.5,
		PunishScale:    0.6,
		GracePeriod:    0,
		ShiftIntensity: 0.5,
		SeverBonus:     5,
		BreakPenalty:   15,
		CanRampant:     true,
	},
	TierHeir: {
		CostModifier:   0.5,
		GainMultiplier: 1.5,
		AncestralShare: 0.3,
		PunishScale:    0.2,
		GracePeriod:    10,
		ShiftIntensity: 0.15,
		SeverBonus:     8, // Standard +5 plus the Heir's +3 gratitude bonus
		BreakPenalty:   5,
		CanRampant:     false,
	},
}

// TierTraits returns the behavior table entry for a tier.
func TierTraits(t Tier) Traits {
	if int(t) >= len(tierTraits) {
		return tierTraits[TierProgenitor]
	}
	return tierTraits[t]
}

// Traits returns the behavior table entry for this definition's tier.
func (d *Definition) Traits() Traits {
	return TierTraits(d.Tier)
}

// ScaledShift returns the entity's environmental shift with its deltas scaled
// by tier intensity and an extra factor (rampancy intensifies, 1.0 = as bound).
func (d *Definition) ScaledShift(extra float64) EnvShift {
	scale := d.Traits().ShiftIntensity * extra
	return EnvShift{
		Tint:        d.Shift.Tint,
		GravityMult: 1 + (d.Shift.GravityMult-1)*scale,
		SpeedMult:   1 + (d.Shift.SpeedMult-1)*scale,
	}
}
