package entity

import "fmt"

// Catalog is the loaded set of entity definitions, immutable after construction.
type Catalog struct {
	defs  map[ID]*Definition
	order []ID // Load order, for stable listings
}

// NewCatalog validates and indexes a set of definitions.
func NewCatalog(defs []Definition) (*Catalog, error) {
	c := &Catalog{defs: make(map[ID]*Definition, len(defs))}

	for i := range defs {
		d := defs[i]
		if d.ID == "" {
			return nil, fmt.Errorf("definition %d: empty id", i)
		}
		if _, dup := c.defs[d.ID]; dup {
			return nil, fmt.Errorf("duplicate entity id %q", d.ID)
		}
		if d.BaseDrainRate <= 0 {
			return nil, fmt.Errorf("entity %q: base drain rate must be positive", d.ID)
		}
		switch d.Tier {
		case TierProgenitor:
			if d.AncestorID != "" {
				return nil, fmt.Errorf("entity %q: progenitors have no ancestor", d.ID)
			}
		case TierScion, TierHeir:
			if d.AncestorID == "" {
				return nil, fmt.Errorf("entity %q: %s requires an ancestor link", d.ID, TierName(d.Tier))
			}
		default:
			return nil, fmt.Errorf("entity %q: unknown tier %d", d.ID, d.Tier)
		}
		c.defs[d.ID] = &d
		c.order = append(c.order, d.ID)
	}

	// Ancestor links must resolve to a Progenitor in the same catalog.
	for _, id := range c.order {
		d := c.defs[id]
		if d.AncestorID == "" {
			continue
		}
		anc, ok := c.defs[d.AncestorID]
		if !ok {
			return nil, fmt.Errorf("entity %q: ancestor %q not in catalog", d.ID, d.AncestorID)
		}
		if anc.Tier != TierProgenitor {
			return nil, fmt.Errorf("entity %q: ancestor %q is not a progenitor", d.ID, d.AncestorID)
		}
	}

	return c, nil
}

// Get returns the definition for an entity id, or nil if unknown.
func (c *Catalog) Get(id ID) *Definition {
	return c.defs[id]
}

// Ancestor returns the linked Progenitor for a Scion or Heir, or nil.
func (c *Catalog) Ancestor(id ID) *Definition {
	d := c.defs[id]
	if d == nil || d.AncestorID == "" {
		return nil
	}
	return c.defs[d.AncestorID]
}

// All returns every definition in load order.
func (c *Catalog) All() []*Definition {
	out := make([]*Definition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.defs[id])
	}
	return out
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	return len(c.defs)
}

// DefaultCatalog returns the built-in entity roster: two Progenitor lineages,
// each with a Scion and an Heir.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog([]Definition{
		{
			ID: "vaelith", Name: "Vaelith, the Red Hunger", Tier: TierProgenitor,
			Temperament: Temperament{
				Kind:             TemperamentAggressive,
				HesitationWindow: 4.0,
				PunishDamage:     8,
			},
			BaseDrainRate: 10,
			Rampant: RampantProfile{
				Behavior:        RampantAggressive,
				Duration:        45,
				DamagePerAttack: 12,
				AttackInterval:  2.5,
			},
			Ability: Ability{Name: "Crimson Surge", Duration: 8, Magnitude: 2.0, Cooldown: 60},
			Shift:   EnvShift{Tint: "blood-red haze", GravityMult: 1.1, SpeedMult: 1.15},
		},
		{
			ID: "ssarion", Name: "Ssarion, Hungering Echo", Tier: TierScion,
			AncestorID: "vaelith",
			Temperament: Temperament{
				Kind:             TemperamentAggressive,
				HesitationWindow: 6.0,
				PunishDamage:     8,
			},
			BaseDrainRate: 8,
			Rampant: RampantProfile{
				Behavior:        RampantChaotic,
				Duration:        30,
				DamagePerAttack: 7,
				AttackInterval:  3,
			},
			Ability: Ability{Name: "Echoing Cut", Duration: 5, Magnitude: 1.5, Cooldown: 45},
			Shift:   EnvShift{Tint: "rust shimmer", GravityMult: 1.05, SpeedMult: 1.1},
		},
		{
			ID: "embrel", Name: "Embrel the Small Flame", Tier: TierHeir,
			AncestorID: "vaelith",
			Temperament: Temperament{
				Kind:            TemperamentSacrificial,
				SacrificeWindow: 8.0,
				PunishDamage:    5,
			},
			BaseDrainRate: 8,
			// Profile retained for catalog completeness; Heirs fade instead.
			Rampant: RampantProfile{Behavior: RampantChaotic, Duration: 0, DamagePerAttack: 0, AttackInterval: 3},
			Ability: Ability{Name: "Warm Ember", Duration: 10, Magnitude: 1.2, Cooldown: 30},
			Shift:   EnvShift{Tint: "ember glow", GravityMult: 1.0, SpeedMult: 1.05},
		},
		{
			ID: "omarruth", Name: "Omarruth, Keeper of the Still Hour", Tier: TierProgenitor,
			Temperament: Temperament{
				Kind:         TemperamentPassive,
				CalmWindow:   5.0,
				PunishDamage: 10,
			},
			BaseDrainRate: 9,
			Rampant: RampantProfile{
				Behavior:        RampantDestructive,
				Duration:        60,
				DamagePerAttack: 15,
				AttackInterval:  4,
			},
			Ability: Ability{Name: "Stillness", Duration: 12, Magnitude: 3.0, Cooldown: 90},
			Shift:   EnvShift{Tint: "grey hush", GravityMult: 0.85, SpeedMult: 0.9},
		},
		{
			ID: "cadenz", Name: "Cadenz, the Measured Pulse", Tier: TierScion,
			AncestorID: "omarruth",
			Temperament: Temperament{
				Kind:            TemperamentRhythmic,
				RhythmWindow:    3.0,
				RhythmTolerance: 0.5,
				PunishDamage:    6,
			},
			BaseDrainRate: 7,
			Rampant: RampantProfile{
				Behavior:        RampantChaotic,
				Duration:        30,
				DamagePerAttack: 6,
				AttackInterval:  3,
			},
			Ability: Ability{Name: "Tempo Shift", Duration: 6, Magnitude: 1.8, Cooldown: 50},
			Shift:   EnvShift{Tint: "silver pulse", GravityMult: 0.95, SpeedMult: 1.05},
		},
		{
			ID: "lull", Name: "Lull, Last Note of the Hour", Tier: TierHeir,
			AncestorID: "omarruth",
			Temperament: Temperament{
				Kind:         TemperamentPassive,
				CalmWindow:   3.0,
				PunishDamage: 4,
			},
			BaseDrainRate: 6,
			Rampant: RampantProfile{Behavior: RampantChaotic, Duration: 0, DamagePerAttack: 0, AttackInterval: 3},
			Ability: Ability{Name: "Hushed Step", Duration: 8, Magnitude: 1.3, Cooldown: 35},
			Shift:   EnvShift{Tint: "faint mist", GravityMult: 1.0, SpeedMult: 0.98},
		},
	})
	if err != nil {
		// The built-in roster is validated by tests; a failure here is a
		// programming error.
		panic(err)
	}
	return c
}
