package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/tetherbound/internal/entity"
)

// CustodyContest wraps two bindings fighting over one Progenitor. Both drain
// at the contest rate; compliance accumulates per contestant until one leads
// by the margin. Exact ties never resolve — the contest simply continues.
type CustodyContest struct {
	EntityID entity.ID   `json:"entity_id"`
	A        *Contestant `json:"a"`
	B        *Contestant `json:"b"`
	Since    float64     `json:"since"`
}

// Contestant is one side of a custody contest.
type Contestant struct {
	PlayerID string  `json:"player_id"`
	Score    float64 `json:"score"` // Cumulative compliance-seconds
	gone     bool    // Binding broke mid-contest
}

// startContest begins a contest between the current holder and a challenger.
func (s *Session) startContest(def *entity.Definition, holder, challenger *Binding) {
	holder.InContest = true
	challenger.InContest = true

	c := &CustodyContest{
		EntityID: def.ID,
		A:        &Contestant{PlayerID: holder.PlayerID},
		B:        &Contestant{PlayerID: challenger.PlayerID},
		Since:    s.Clock,
	}
	s.Contests[def.ID] = c

	s.EmitEvent(Event{
		Clock: s.Clock,
		Kind:  "custody",
		Description: fmt.Sprintf("%s and %s now contest custody of %s",
			s.playerName(holder.PlayerID), s.playerName(challenger.PlayerID), def.Name),
	})
	slog.Info("custody contest started",
		"entity", def.ID,
		"holder", s.playerName(holder.PlayerID),
		"challenger", s.playerName(challenger.PlayerID),
		"factor", s.Opts.ContestFactor,
	)
}

// dropContestant marks a side as gone after its binding broke.
func (c *CustodyContest) dropContestant(playerID string) {
	if c.A.PlayerID == playerID {
		c.A.gone = true
	}
	if c.B.PlayerID == playerID {
		c.B.gone = true
	}
}

// tickContest updates both contestants fully, then — and only then — checks
// the win condition, so the comparison never sees one stale side.
func (s *Session) tickContest(c *CustodyContest, dt float64) {
	def := s.Catalog.Get(c.EntityID)
	if def == nil {
		delete(s.Contests, c.EntityID)
		return
	}

	for _, cont := range [2]*Contestant{c.A, c.B} {
		if cont.gone {
			continue
		}
		b, ok := s.Bindings[cont.PlayerID]
		if !ok {
			cont.gone = true
			continue
		}
		s.tickBinding(b, dt, true)
		// The tick may have broken the binding; score only survivors.
		if b2, still := s.Bindings[cont.PlayerID]; still && b2.Satisfied {
			cont.Score += dt
		}
	}

	switch {
	case c.A.gone && c.B.gone:
		// Both broke this tick; the entity is loose and the last break
		// already triggered rampancy.
		delete(s.Contests, c.EntityID)
	case c.A.gone:
		s.resolveContest(c, def, c.B, nil)
	case c.B.gone:
		s.resolveContest(c, def, c.A, nil)
	default:
		diff := c.A.Score - c.B.Score
		if diff > s.Opts.ContestMargin {
			s.resolveContest(c, def, c.A, c.B)
		} else if -diff > s.Opts.ContestMargin {
			s.resolveContest(c, def, c.B, c.A)
		}
	}
}

// resolveContest ends a contest. A forced loser takes flat backlash damage
// and a Broken transition; the winner keeps the sole binding at the solo
// drain rate. loser is nil when the other side already broke on its own.
func (s *Session) resolveContest(c *CustodyContest, def *entity.Definition, winner, loser *Contestant) {
	delete(s.Contests, c.EntityID)

	if loser != nil {
		if lb, ok := s.Bindings[loser.PlayerID]; ok {
			p := s.Players[loser.PlayerID]
			p.Damage(s.Opts.ContestBacklash, s.Clock)
			s.breakBinding(lb, def, p, fmt.Sprintf("lost custody of %s", def.Name))
		}
	}

	if wb, ok := s.Bindings[winner.PlayerID]; ok {
		wb.InContest = false
	}

	s.EmitEvent(Event{
		Clock: s.Clock,
		Kind:  "custody",
		Description: fmt.Sprintf("%s won custody of %s (score %.1f)",
			s.playerName(winner.PlayerID), def.Name, winner.Score),
	})
	slog.Info("custody contest resolved",
		"entity", def.ID,
		"winner", s.playerName(winner.PlayerID),
		"winner_score", winner.Score,
		"forced", loser != nil,
	)
}
