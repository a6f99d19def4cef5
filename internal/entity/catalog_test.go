package entity

import (
	"math"
	"strings"
	"testing"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	c := DefaultCatalog()
	if c.Len() != 6 {
		t.Fatalf("catalog size = %d, want 6", c.Len())
	}

	// Every Scion and Heir must resolve to a Progenitor.
	for _, d := range c.All() {
		if d.Tier == TierProgenitor {
			continue
		}
		anc := c.Ancestor(d.ID)
		if anc == nil {
			t.Errorf("%s: no ancestor", d.ID)
			continue
		}
		if anc.Tier != TierProgenitor {
			t.Errorf("%s: ancestor %s is %s, want Progenitor", d.ID, anc.ID, TierName(anc.Tier))
		}
	}
}

func TestCatalogValidation(t *testing.T) {
	base := Definition{
		ID: "ok", Name: "OK", Tier: TierProgenitor,
		BaseDrainRate: 5,
	}

	tests := []struct {
		name    string
		defs    []Definition
		wantErr string
	}{
		{
			"empty id",
			[]Definition{{Tier: TierProgenitor, BaseDrainRate: 5}},
			"empty id",
		},
		{
			"duplicate id",
			[]Definition{base, base},
			"duplicate",
		},
		{
			"zero drain",
			[]Definition{{ID: "x", Tier: TierProgenitor}},
			"drain rate",
		},
		{
			"progenitor with ancestor",
			[]Definition{{ID: "x", Tier: TierProgenitor, BaseDrainRate: 5, AncestorID: "ok"}},
			"no ancestor",
		},
		{
			"scion without ancestor",
			[]Definition{{ID: "x", Tier: TierScion, BaseDrainRate: 5}},
			"requires an ancestor",
		},
		{
			"dangling ancestor",
			[]Definition{{ID: "x", Tier: TierScion, BaseDrainRate: 5, AncestorID: "ghost"}},
			"not in catalog",
		},
		{
			"ancestor not a progenitor",
			[]Definition{
				base,
				{ID: "mid", Tier: TierScion, BaseDrainRate: 5, AncestorID: "ok"},
				{ID: "x", Tier: TierHeir, BaseDrainRate: 5, AncestorID: "mid"},
			},
			"not a progenitor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.defs)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestTierTraits(t *testing.T) {
	prog := TierTraits(TierProgenitor)
	scion := TierTraits(TierScion)
	heir := TierTraits(TierHeir)

	if prog.CostModifier != 1.0 || scion.CostModifier != 0.75 || heir.CostModifier != 0.5 {
		t.Fatalf("cost modifiers = %v/%v/%v", prog.CostModifier, scion.CostModifier, heir.CostModifier)
	}
	if prog.AncestralShare != 0 {
		t.Fatal("progenitors propagate to no one")
	}
	if scion.AncestralShare != 0.5 || heir.AncestralShare != 0.3 {
		t.Fatalf("ancestral shares = %v/%v", scion.AncestralShare, heir.AncestralShare)
	}
	if !prog.CanRampant || !scion.CanRampant || heir.CanRampant {
		t.Fatal("only progenitors and scions go rampant")
	}
	if heir.BreakPenalty >= prog.BreakPenalty {
		t.Fatal("heirs should carry the reduced break penalty")
	}
	if heir.GainMultiplier != 1.5 {
		t.Fatalf("heir gain multiplier = %v, want 1.5", heir.GainMultiplier)
	}
}

func TestScaledShift(t *testing.T) {
	c := DefaultCatalog()

	// Progenitor at full intensity passes its deltas through.
	v := c.Get("vaelith")
	got := v.ScaledShift(1.0)
	if math.Abs(got.GravityMult-1.1) > 1e-9 || math.Abs(got.SpeedMult-1.15) > 1e-9 {
		t.Fatalf("progenitor shift = %+v", got)
	}

	// Rampancy intensifies the same deltas.
	boosted := v.ScaledShift(1.5)
	if math.Abs(boosted.GravityMult-1.15) > 1e-9 {
		t.Fatalf("boosted gravity = %v, want 1.15", boosted.GravityMult)
	}

	// Heirs barely move the environment.
	e := c.Get("embrel")
	faint := e.ScaledShift(1.0)
	if math.Abs(faint.SpeedMult-1.0075) > 1e-9 {
		t.Fatalf("heir speed shift = %v, want 1.0075", faint.SpeedMult)
	}
	if faint.Tint != e.Shift.Tint {
		t.Fatal("tint should pass through unscaled")
	}
}
