package engine

// Event is a notable occurrence in the session, journaled for the API and
// persisted alongside affinity records.
type Event struct {
	Clock       float64 `json:"clock"` // Session-clock seconds
	Kind        string  `json:"kind"`  // "tether", "sever", "break", "rampant", "custody", "affinity", "violation", "ability", "environment"
	Description string  `json:"description"`
}

// maxJournal caps the in-memory event journal; older entries are dropped
// once persisted.
const maxJournal = 1000

// EmitEvent appends to the session journal, trimming the oldest entries
// beyond the cap.
func (s *Session) EmitEvent(ev Event) {
	s.Events = append(s.Events, ev)
	if len(s.Events) > maxJournal {
		s.Events = s.Events[len(s.Events)-maxJournal:]
	}
}

// RecentEvents returns up to limit of the newest journal entries.
func (s *Session) RecentEvents(limit int) []Event {
	if limit <= 0 || limit > len(s.Events) {
		limit = len(s.Events)
	}
	return s.Events[len(s.Events)-limit:]
}
