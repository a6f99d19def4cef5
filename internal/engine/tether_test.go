package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/talgya/tetherbound/internal/affinity"
	"github.com/talgya/tetherbound/internal/entity"
)

func newTestSession(opts Options) *Session {
	return NewSession(entity.DefaultCatalog(), affinity.NewLedger(), opts)
}

func addPlayer(s *Session, name string, maxHealth float64) *Player {
	p := NewPlayer(name, maxHealth)
	s.AddPlayer(p)
	return p
}

func countEvents(s *Session, kind string) int {
	n := 0
	for _, e := range s.Events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestDrainAndGain(t *testing.T) {
	s := newTestSession(Options{})
	p := addPlayer(s, "ash", 100)

	b, err := s.Summon(p.ID, "vaelith")
	if err != nil {
		t.Fatalf("summon: %v", err)
	}
	if !almostEqual(b.DrainRate, 10) {
		t.Fatalf("stranger drain rate = %v, want 10", b.DrainRate)
	}

	// Five compliant seconds: pure drain, full gain. An attack at t=4
	// keeps the hesitation window satisfied.
	for i := 0; i < 4; i++ {
		s.Tick(1.0)
	}
	s.RecordAttack(p.ID)
	s.Tick(1.0)

	if !almostEqual(p.Health, 50) {
		t.Fatalf("health after 5s = %v, want 50", p.Health)
	}
	rec := s.Ledger.Record(p.ID, "vaelith")
	if !almostEqual(rec.Affinity, 3.5) {
		t.Fatalf("affinity after 5s = %v, want 3.5", rec.Affinity)
	}
	if !b.Satisfied {
		t.Fatal("binding should be satisfied throughout")
	}
}

func TestDrainRateDiscountedByLevel(t *testing.T) {
	s := newTestSession(Options{})
	p := addPlayer(s, "ash", 100)

	rec := s.Ledger.Record(p.ID, "vaelith")
	rec.Affinity = 75 // Devoted

	b, err := s.Summon(p.ID, "vaelith")
	if err != nil {
		t.Fatalf("summon: %v", err)
	}
	if !almostEqual(b.DrainRate, 6.5) {
		t.Fatalf("devoted drain rate = %v, want 6.5", b.DrainRate)
	}
}

func TestDrainedDryBreaksAndRampants(t *testing.T) {
	s := newTestSession(Options{})
	p := addPlayer(s, "ash", 15)

	if _, err := s.Summon(p.ID, "vaelith"); err != nil {
		t.Fatalf("summon: %v", err)
	}

	s.Tick(1.0) // health 5
	s.Tick(1.0) // cannot cover the cost: break

	if _, bound := s.Bindings[p.ID]; bound {
		t.Fatal("binding should be gone after draining dry")
	}
	if p.Health != 0 {
		t.Fatalf("health = %v, want 0", p.Health)
	}
	if !s.Rampant.Active("vaelith") {
		t.Fatal("progenitor should go rampant on an unexpected break")
	}
	if got := s.EntityState("vaelith"); got != "rampant" {
		t.Fatalf("entity state = %q, want rampant", got)
	}

	rec := s.Ledger.Record(p.ID, "vaelith")
	if rec.Betrayals != 1 {
		t.Fatalf("betrayals = %d, want 1", rec.Betrayals)
	}
	if rec.Affinity != 0 {
		t.Fatalf("affinity = %v, want 0 after the break penalty", rec.Affinity)
	}

	// Rampant entities refuse new tethers.
	p2 := addPlayer(s, "brin", 100)
	if _, err := s.Summon(p2.ID, "vaelith"); !errors.Is(err, ErrEntityUnavailable) {
		t.Fatalf("summon while rampant = %v, want ErrEntityUnavailable", err)
	}
}

func TestHeirBreakFadesQuietly(t *testing.T) {
	s := newTestSession(Options{})
	p := addPlayer(s, "ash", 3)

	rec := s.Ledger.Record(p.ID, "embrel")
	rec.Affinity = 10
	rec.Betrayals = 2

	b, err := s.Summon(p.ID, "embrel")
	if err != nil {
		t.Fatalf("summon: %v", err)
	}

	// Heir drain is 8 * 0.5 = 4/s; 3 health cannot cover the first second.
	s.Tick(1.0)

	if b.State != StateFaded {
		t.Fatalf("binding state = %s, want Faded", BindingStateName(b.State))
	}
	if !almostEqual(rec.Affinity, 5) {
		t.Fatalf("affinity = %v, want 5 (reduced penalty)", rec.Affinity)
	}
	if rec.Betrayals != 3 {
		t.Fatalf("betrayals = %d, want 3", rec.Betrayals)
	}
	if rec.Level() != affinity.LevelHostile {
		t.Fatalf("level = %s, want Hostile", affinity.LevelName(rec.Level()))
	}
	if s.Rampant.Active("embrel") {
		t.Fatal("heirs never go rampant")
	}
	if got := s.EntityState("embrel"); got != "faded" {
		t.Fatalf("entity state = %q, want faded", got)
	}

	// The fade is terminal by default.
	p2 := addPlayer(s, "brin", 100)
	if _, err := s.Summon(p2.ID, "embrel"); !errors.Is(err, ErrEntityFaded) {
		t.Fatalf("summon faded heir = %v, want ErrEntityFaded", err)
	}
}

func TestHeirResummonWhenAllowed(t *testing.T) {
	s := newTestSession(Options{AllowHeirResummon: true})
	p := addPlayer(s, "ash", 3)

	if _, err := s.Summon(p.ID, "embrel"); err != nil {
		t.Fatalf("summon: %v", err)
	}
	s.Tick(1.0) // break -> fade

	p2 := addPlayer(s, "brin", 100)
	if _, err := s.Summon(p2.ID, "embrel"); err != nil {
		t.Fatalf("resummon with the policy enabled: %v", err)
	}
	if got := s.EntityState("embrel"); got != "tethered" {
		t.Fatalf("entity state = %q, want tethered", got)
	}
}

func TestCleanSever(t *testing.T) {
	s := newTestSession(Options{})
	p := addPlayer(s, "ash", 200)

	if _, err := s.Summon(p.ID, "ssarion"); err != nil {
		t.Fatalf("summon: %v", err)
	}
	s.Tick(1.0)
	s.Tick(1.0)

	rec := s.Ledger.Record(p.ID, "ssarion")
	before := rec.Affinity

	if err := s.Sever(p.ID); err != nil {
		t.Fatalf("sever: %v", err)
	}
	if rec.Affinity < before {
		t.Fatalf("clean sever decreased affinity: %v -> %v", before, rec.Affinity)
	}
	if !almostEqual(rec.Affinity, before+5) {
		t.Fatalf("affinity = %v, want %v (+5 bonus)", rec.Affinity, before+5)
	}
	if rec.Betrayals != 0 {
		t.Fatal("clean sever is not a betrayal")
	}
	if _, ok := s.Shifts["ssarion"]; ok {
		t.Fatal("environmental shift should lift after severance")
	}
	if got := s.EntityState("ssarion"); got != "idle" {
		t.Fatalf("entity state = %q, want idle", got)
	}

	// The entity is immediately available again.
	if _, err := s.Summon(p.ID, "ssarion"); err != nil {
		t.Fatalf("re-summon after sever: %v", err)
	}
}

func TestScionPropagatesToProgenitor(t *testing.T) {
	s := newTestSession(Options{})
	p := addPlayer(s, "ash", 200)

	if _, err := s.Summon(p.ID, "ssarion"); err != nil {
		t.Fatalf("summon: %v", err)
	}

	s.Tick(1.0)
	scion := s.Ledger.Record(p.ID, "ssarion")
	prog := s.Ledger.Record(p.ID, "vaelith")
	if !almostEqual(scion.Affinity, 0.7) {
		t.Fatalf("scion affinity = %v, want 0.7", scion.Affinity)
	}
	if !almostEqual(prog.Affinity, 0.5) {
		t.Fatalf("progenitor share = %v, want 0.5", prog.Affinity)
	}

	s.Tick(1.0)
	if !almostEqual(prog.Affinity, 1.0) {
		t.Fatalf("progenitor share after 2s = %v, want 1.0", prog.Affinity)
	}
}

func TestSummonRejections(t *testing.T) {
	s := newTestSession(Options{})
	p := addPlayer(s, "ash", 100)

	if _, err := s.Summon("nobody", "vaelith"); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("unknown player: %v", err)
	}
	if _, err := s.Summon(p.ID, "ghost"); !errors.Is(err, ErrUnknownEntity) {
		t.Fatalf("unknown entity: %v", err)
	}

	if _, err := s.Summon(p.ID, "ssarion"); err != nil {
		t.Fatalf("summon: %v", err)
	}
	if _, err := s.Summon(p.ID, "cadenz"); !errors.Is(err, ErrAlreadyBound) {
		t.Fatalf("double bind: %v", err)
	}

	// Scions cannot be contested; a second claimant is simply refused.
	p2 := addPlayer(s, "brin", 100)
	if _, err := s.Summon(p2.ID, "ssarion"); !errors.Is(err, ErrEntityUnavailable) {
		t.Fatalf("scion double-summon: %v", err)
	}
}
