package engine

import (
	"errors"
	"fmt"
	"testing"
)

func TestAbilityLifecycle(t *testing.T) {
	s := newTestSession(Options{})
	p := addPlayer(s, "ash", 200)

	rec := s.Ledger.Record(p.ID, "vaelith")
	rec.Affinity = 100 // Ascended

	if _, err := s.Summon(p.ID, "vaelith"); err != nil {
		t.Fatalf("summon: %v", err)
	}

	if err := s.ActivateAbility(p.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if !s.AbilityActive(p.ID) {
		t.Fatal("ability effect should be running")
	}

	// Immediate reuse hits the cooldown.
	err := s.ActivateAbility(p.ID)
	if !errors.Is(err, ErrAbilityCooldown) {
		t.Fatalf("reactivate = %v, want ErrAbilityCooldown", err)
	}

	// The effect expires with the clock; the cooldown keeps counting.
	for i := 0; i < 8; i++ {
		s.Tick(1.0)
	}
	if s.AbilityActive(p.ID) {
		t.Fatal("effect should have expired after its duration")
	}
	if got := s.AbilityCooldownRemaining(p.ID, "vaelith"); !almostEqual(got, 52) {
		t.Fatalf("cooldown remaining = %v, want 52", got)
	}
}

func TestAbilityRejections(t *testing.T) {
	s := newTestSession(Options{})
	p := addPlayer(s, "ash", 200)

	// No binding at all.
	if err := s.ActivateAbility(p.ID); !errors.Is(err, ErrNotBound) {
		t.Fatalf("unbound activate = %v, want ErrNotBound", err)
	}

	// Bound but below Ascended.
	if _, err := s.Summon(p.ID, "omarruth"); err != nil {
		t.Fatalf("summon: %v", err)
	}
	if err := s.ActivateAbility(p.ID); !errors.Is(err, ErrAbilityLocked) {
		t.Fatalf("locked activate = %v, want ErrAbilityLocked", err)
	}
}

func TestTickIgnoresNonPositiveDt(t *testing.T) {
	s := newTestSession(Options{})
	p := addPlayer(s, "ash", 100)
	if _, err := s.Summon(p.ID, "vaelith"); err != nil {
		t.Fatalf("summon: %v", err)
	}

	s.Tick(0)
	s.Tick(-1)

	if s.Clock != 0 {
		t.Fatalf("clock = %v, want 0", s.Clock)
	}
	if p.Health != 100 {
		t.Fatalf("health = %v, want 100", p.Health)
	}
}

func TestEnvironmentalShiftAppearsOnBind(t *testing.T) {
	s := newTestSession(Options{})
	p := addPlayer(s, "ash", 100)

	if _, ok := s.Shifts["vaelith"]; ok {
		t.Fatal("no shift before binding")
	}
	if _, err := s.Summon(p.ID, "vaelith"); err != nil {
		t.Fatalf("summon: %v", err)
	}
	shift, ok := s.Shifts["vaelith"]
	if !ok {
		t.Fatal("binding should raise the entity's shift")
	}
	if !almostEqual(shift.GravityMult, 1.1) || !almostEqual(shift.SpeedMult, 1.15) {
		t.Fatalf("progenitor shift = %+v", shift)
	}
}

func TestRecentEventsReturnsNewestLast(t *testing.T) {
	s := newTestSession(Options{})
	for i := 0; i < 5; i++ {
		s.EmitEvent(Event{Clock: float64(i), Kind: "test", Description: fmt.Sprintf("e%d", i)})
	}

	got := s.RecentEvents(3)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Description != "e2" || got[2].Description != "e4" {
		t.Fatalf("window = %q..%q, want e2..e4", got[0].Description, got[2].Description)
	}

	// Zero or oversized limits return everything.
	if len(s.RecentEvents(0)) != 5 || len(s.RecentEvents(100)) != 5 {
		t.Fatal("limit clamping broken")
	}
}

func TestLevelTransitionsAreJournaled(t *testing.T) {
	s := newTestSession(Options{})
	p := addPlayer(s, "ash", 10000)

	if _, err := s.Summon(p.ID, "lull"); err != nil {
		t.Fatalf("summon: %v", err)
	}

	// Passive heir, never attacking: compliant forever. 1.05/s of gain
	// crosses Stranger -> Acquainted at ~19s.
	for i := 0; i < 25; i++ {
		s.Tick(1.0)
	}

	if countEvents(s, "affinity") == 0 {
		t.Fatal("crossing a level threshold should journal an affinity event")
	}
}
