package engine

import (
	"testing"
)

func TestAggressiveDemandsBloodshed(t *testing.T) {
	s := newTestSession(Options{})
	p := addPlayer(s, "ash", 200)

	if _, err := s.Summon(p.ID, "vaelith"); err != nil {
		t.Fatalf("summon: %v", err)
	}

	// Stay inside the 4s hesitation window by attacking at t=4.
	for i := 0; i < 4; i++ {
		s.Tick(1.0)
	}
	s.RecordAttack(p.ID)
	for i := 0; i < 4; i++ {
		s.Tick(1.0)
	}
	if !almostEqual(p.Health, 120) { // 8s of drain only
		t.Fatalf("health = %v, want 120 (no punishment while attacking)", p.Health)
	}
	if countEvents(s, "violation") != 0 {
		t.Fatal("no violations expected while the window holds")
	}

	// Two more idle seconds cross the window: punished every tick.
	s.Tick(1.0)
	s.Tick(1.0)
	if !almostEqual(p.Health, 84) { // -20 drain, -16 punishment
		t.Fatalf("health = %v, want 84", p.Health)
	}
	if countEvents(s, "violation") != 2 {
		t.Fatalf("violations = %d, want 2", countEvents(s, "violation"))
	}
}

func TestPassivePunishmentIsRateLimited(t *testing.T) {
	s := newTestSession(Options{PassivePunishInterval: 3})
	p := addPlayer(s, "ash", 200)

	if _, err := s.Summon(p.ID, "omarruth"); err != nil {
		t.Fatalf("summon: %v", err)
	}

	// Never attacking satisfies a passive entity.
	for i := 0; i < 3; i++ {
		s.Tick(1.0)
	}
	if countEvents(s, "violation") != 0 {
		t.Fatal("stillness should satisfy")
	}

	// One attack violates the calm window for 5s, but punishment fires at
	// most once per interval: t=4 and t=7 only.
	s.RecordAttack(p.ID)
	for i := 0; i < 5; i++ {
		s.Tick(1.0)
	}
	if got := countEvents(s, "violation"); got != 2 {
		t.Fatalf("violations = %d, want 2 (rate limited)", got)
	}

	// At t=8 the calm window has elapsed; satisfaction returns.
	b := s.Bindings[p.ID]
	if !b.Satisfied {
		t.Fatal("calm restored after the window elapsed")
	}
}

func TestRhythmicStreakAndMiss(t *testing.T) {
	s := newTestSession(Options{})
	p := addPlayer(s, "ash", 200)

	if _, err := s.Summon(p.ID, "cadenz"); err != nil {
		t.Fatalf("summon: %v", err)
	}
	b := s.Bindings[p.ID]

	// Beat: 3.0s target, 0.5s tolerance. First attack is the baseline;
	// 3.2s and 3.1s intervals both land inside tolerance.
	s.RecordAttack(p.ID)
	s.Tick(3.2)
	s.RecordAttack(p.ID)
	s.Tick(3.1)
	s.RecordAttack(p.ID)

	if b.RhythmStreak() != 2 {
		t.Fatalf("streak = %d, want 2", b.RhythmStreak())
	}
	if countEvents(s, "violation") != 0 {
		t.Fatal("on-beat attacks should not be punished")
	}

	// A wildly early attack breaks the rhythm: the next tick punishes and
	// the streak resets.
	s.Tick(0.1)
	s.RecordAttack(p.ID)
	healthBefore := p.Health
	s.Tick(0.1)

	if b.RhythmStreak() != 0 {
		t.Fatalf("streak = %d, want 0 after a miss", b.RhythmStreak())
	}
	if countEvents(s, "violation") != 1 {
		t.Fatalf("violations = %d, want 1", countEvents(s, "violation"))
	}
	// Scion punishment: 6 damage at 0.6 scale, plus 0.1s of drain (5.25/s).
	wantHealth := healthBefore - 3.6 - 0.525
	if !almostEqual(p.Health, wantHealth) {
		t.Fatalf("health = %v, want %v", p.Health, wantHealth)
	}
}

func TestRhythmicTimeoutDropsBaseline(t *testing.T) {
	s := newTestSession(Options{})
	p := addPlayer(s, "ash", 500)

	if _, err := s.Summon(p.ID, "cadenz"); err != nil {
		t.Fatalf("summon: %v", err)
	}
	b := s.Bindings[p.ID]

	s.RecordAttack(p.ID)
	s.Tick(3.0)
	s.RecordAttack(p.ID)
	if b.RhythmStreak() != 1 {
		t.Fatalf("streak = %d, want 1", b.RhythmStreak())
	}

	// Silence beyond window + tolerance*mult (3 + 0.5*2 = 4s): punished,
	// baseline dropped.
	s.Tick(4.5)
	if got := countEvents(s, "violation"); got != 1 {
		t.Fatalf("violations = %d, want 1 after the beat died", got)
	}
	if b.RhythmStreak() != 0 {
		t.Fatalf("streak = %d, want 0 after timeout", b.RhythmStreak())
	}

	// The next attack re-establishes the baseline instead of counting as
	// a huge interval miss.
	s.RecordAttack(p.ID)
	s.Tick(0.5)
	if got := countEvents(s, "violation"); got != 1 {
		t.Fatalf("violations = %d, want still 1 (baseline attack is free)", got)
	}
}

func TestSacrificialWindowRestartsOnDamageAndPunishment(t *testing.T) {
	s := newTestSession(Options{})
	p := addPlayer(s, "ash", 200)

	if _, err := s.Summon(p.ID, "embrel"); err != nil {
		t.Fatalf("summon: %v", err)
	}

	// Heir grace covers the first 10s even though the 8s sacrifice window
	// lapses inside it; the first punishment lands at t=10.
	for i := 0; i < 10; i++ {
		s.Tick(1.0)
	}
	if got := countEvents(s, "violation"); got != 1 {
		t.Fatalf("violations = %d, want 1 after grace ends", got)
	}

	// Taking damage restarts the window: 8 quiet seconds follow for free.
	if err := s.DamagePlayer(p.ID, 2); err != nil {
		t.Fatalf("damage: %v", err)
	}
	for i := 0; i < 8; i++ {
		s.Tick(1.0)
	}
	if got := countEvents(s, "violation"); got != 1 {
		t.Fatalf("violations = %d, want still 1 inside the restarted window", got)
	}

	// One more dry second and the entity objects again.
	s.Tick(1.0)
	if got := countEvents(s, "violation"); got != 2 {
		t.Fatalf("violations = %d, want 2", got)
	}
}

func TestHeirForgivingSuppressesPunishmentDamage(t *testing.T) {
	s := newTestSession(Options{HeirForgiving: true})
	p := addPlayer(s, "ash", 200)

	if _, err := s.Summon(p.ID, "embrel"); err != nil {
		t.Fatalf("summon: %v", err)
	}
	for i := 0; i < 12; i++ {
		s.Tick(1.0)
	}
	// 12s of drain at 4/s, nothing else.
	if !almostEqual(p.Health, 152) {
		t.Fatalf("health = %v, want 152 (drain only)", p.Health)
	}
	if countEvents(s, "violation") != 0 {
		t.Fatal("forgiving heirs deal no punishment damage")
	}
}
