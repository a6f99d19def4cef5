// Package api provides the HTTP surface for a tether session.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (the control plane for
// collaborators: input, combat, and UI systems drive the core through them).
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/talgya/tetherbound/internal/affinity"
	"github.com/talgya/tetherbound/internal/engine"
	"github.com/talgya/tetherbound/internal/entity"
)

// Server serves session state over HTTP.
type Server struct {
	Session  *engine.Session
	Clock    *engine.Clock
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	// Mu serializes API access with the tick loop; the driver locks it
	// around every Tick call.
	Mu sync.Mutex
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	actions := NewLimiter(120, time.Minute)

	mux := http.NewServeMux()

	// Public observation endpoints.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/entities", s.handleEntities)
	mux.HandleFunc("/api/v1/entity/", s.handleEntityDetail)
	mux.HandleFunc("/api/v1/players", s.handlePlayers)
	mux.HandleFunc("/api/v1/affinity", s.handleAffinity)
	mux.HandleFunc("/api/v1/events", s.handleEvents)

	// Control endpoints (POST, bearer token, rate limited).
	mux.HandleFunc("/api/v1/player", s.adminOnly(limited(actions, s.handleCreatePlayer)))
	mux.HandleFunc("/api/v1/summon", s.adminOnly(limited(actions, s.handleSummon)))
	mux.HandleFunc("/api/v1/sever", s.adminOnly(limited(actions, s.handleSever)))
	mux.HandleFunc("/api/v1/rebind", s.adminOnly(limited(actions, s.handleRebind)))
	mux.HandleFunc("/api/v1/ability", s.adminOnly(limited(actions, s.handleAbility)))
	mux.HandleFunc("/api/v1/attack", s.adminOnly(limited(actions, s.handleAttack)))
	mux.HandleFunc("/api/v1/damage", s.adminOnly(limited(actions, s.handleDamage)))
	mux.HandleFunc("/api/v1/heal", s.adminOnly(limited(actions, s.handleHeal)))
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		handler := corsMiddleware(mux)
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra allowed origins;
// localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// adminOnly requires bearer token auth on POST requests.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.AdminKey == "" {
			http.Error(w, "control endpoints disabled (no TETHERD_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.AdminKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// rejectErr maps a simulation rejection to an HTTP status. Rejections are
// ordinary outcomes, not server faults.
func rejectErr(w http.ResponseWriter, err error) {
	status := http.StatusConflict
	switch {
	case errors.Is(err, engine.ErrUnknownPlayer), errors.Is(err, engine.ErrUnknownEntity):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrAbilityCooldown), errors.Is(err, engine.ErrAbilityLocked):
		status = http.StatusUnprocessableEntity
	}
	http.Error(w, err.Error(), status)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	sess := s.Session
	writeJSON(w, map[string]any{
		"clock":    sess.Clock,
		"speed":    s.Clock.Speed,
		"running":  s.Clock.Running,
		"players":  len(sess.Players),
		"tethers":  len(sess.Bindings),
		"contests": len(sess.Contests),
		"rampant":  len(sess.Rampant.Sessions()),
		"records":  len(sess.Ledger.All()),
	})
}

func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	type entitySummary struct {
		ID          entity.ID `json:"id"`
		Name        string    `json:"name"`
		Tier        string    `json:"tier"`
		Temperament string    `json:"temperament"`
		BaseDrain   float64   `json:"base_drain"`
		State       string    `json:"state"`
	}

	var result []entitySummary
	for _, def := range s.Session.Catalog.All() {
		result = append(result, entitySummary{
			ID:          def.ID,
			Name:        def.Name,
			Tier:        entity.TierName(def.Tier),
			Temperament: entity.TemperamentKindName(def.Temperament.Kind),
			BaseDrain:   def.BaseDrainRate,
			State:       s.Session.EntityState(def.ID),
		})
	}
	writeJSON(w, result)
}

func (s *Server) handleEntityDetail(w http.ResponseWriter, r *http.Request) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	id := entity.ID(strings.TrimPrefix(r.URL.Path, "/api/v1/entity/"))
	def := s.Session.Catalog.Get(id)
	if def == nil {
		http.Error(w, "entity not found", http.StatusNotFound)
		return
	}

	result := map[string]any{
		"definition": def,
		"state":      s.Session.EntityState(id),
	}
	if shift, ok := s.Session.Shifts[id]; ok {
		result["shift"] = shift
	}
	for _, rs := range s.Session.Rampant.Sessions() {
		if rs.EntityID == id {
			result["rampant"] = rs
		}
	}
	if c, ok := s.Session.Contests[id]; ok {
		result["contest"] = c
	}
	writeJSON(w, result)
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	type playerSummary struct {
		ID       string  `json:"id"`
		Name     string  `json:"name"`
		Health   float64 `json:"health"`
		MaxHP    float64 `json:"max_health"`
		Tethered string  `json:"tethered,omitempty"`
		Drain    float64 `json:"drain_rate,omitempty"`
	}

	var result []playerSummary
	for _, p := range s.Session.Players {
		ps := playerSummary{
			ID:     p.ID,
			Name:   p.Name,
			Health: p.Health,
			MaxHP:  p.MaxHealth,
		}
		if b, ok := s.Session.Bindings[p.ID]; ok {
			ps.Tethered = string(b.EntityID)
			ps.Drain = b.DrainRate
		}
		result = append(result, ps)
	}
	writeJSON(w, result)
}

func (s *Server) handleAffinity(w http.ResponseWriter, r *http.Request) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	type recordView struct {
		PlayerID  string  `json:"player_id"`
		EntityID  string  `json:"entity_id"`
		Affinity  float64 `json:"affinity"`
		Betrayals int     `json:"betrayals"`
		Level     string  `json:"level"`
		CostMult  float64 `json:"cost_multiplier"`
		Unlocked  bool    `json:"ability_unlocked"`
		Cooldown  float64 `json:"cooldown_remaining"`
	}

	var result []recordView
	for _, rec := range s.Session.Ledger.All() {
		lvl := rec.Level()
		result = append(result, recordView{
			PlayerID:  rec.PlayerID,
			EntityID:  string(rec.EntityID),
			Affinity:  rec.Affinity,
			Betrayals: rec.Betrayals,
			Level:     affinity.LevelName(lvl),
			CostMult:  affinity.CostMultiplier(lvl),
			Unlocked:  lvl == affinity.LevelAscended,
			Cooldown:  s.Session.AbilityCooldownRemaining(rec.PlayerID, rec.EntityID),
		})
	}
	writeJSON(w, result)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	events := s.Session.RecentEvents(limit)

	// Optional kind filter.
	if kind := r.URL.Query().Get("kind"); kind != "" {
		var filtered []engine.Event
		for _, e := range events {
			if e.Kind == kind {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}
	writeJSON(w, events)
}

func (s *Server) handleCreatePlayer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string  `json:"name"`
		MaxHealth float64 `json:"max_health"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.MaxHealth <= 0 {
		req.MaxHealth = 100
	}

	s.Mu.Lock()
	defer s.Mu.Unlock()
	p := engine.NewPlayer(req.Name, req.MaxHealth)
	s.Session.AddPlayer(p)
	writeJSON(w, p)
}

type playerEntityReq struct {
	PlayerID string `json:"player_id"`
	EntityID string `json:"entity_id"`
}

func (s *Server) handleSummon(w http.ResponseWriter, r *http.Request) {
	var req playerEntityReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	s.Mu.Lock()
	defer s.Mu.Unlock()
	b, err := s.Session.Summon(req.PlayerID, entity.ID(req.EntityID))
	if err != nil {
		rejectErr(w, err)
		return
	}
	writeJSON(w, b)
}

func (s *Server) handleRebind(w http.ResponseWriter, r *http.Request) {
	var req playerEntityReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	s.Mu.Lock()
	defer s.Mu.Unlock()
	b, err := s.Session.Rebind(req.PlayerID, entity.ID(req.EntityID))
	if err != nil {
		rejectErr(w, err)
		return
	}
	writeJSON(w, b)
}

func (s *Server) handleSever(w http.ResponseWriter, r *http.Request) {
	var req playerEntityReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	s.Mu.Lock()
	defer s.Mu.Unlock()
	if err := s.Session.Sever(req.PlayerID); err != nil {
		rejectErr(w, err)
		return
	}
	writeJSON(w, map[string]string{"result": "severed"})
}

func (s *Server) handleAbility(w http.ResponseWriter, r *http.Request) {
	var req playerEntityReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	s.Mu.Lock()
	defer s.Mu.Unlock()
	if err := s.Session.ActivateAbility(req.PlayerID); err != nil {
		rejectErr(w, err)
		return
	}
	writeJSON(w, map[string]string{"result": "activated"})
}

func (s *Server) handleAttack(w http.ResponseWriter, r *http.Request) {
	var req playerEntityReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.Session.RecordAttack(req.PlayerID)
	writeJSON(w, map[string]string{"result": "recorded"})
}

func (s *Server) handleDamage(w http.ResponseWriter, r *http.Request) {
	s.handleHealthChange(w, r, s.damage)
}

func (s *Server) handleHeal(w http.ResponseWriter, r *http.Request) {
	s.handleHealthChange(w, r, s.heal)
}

func (s *Server) damage(id string, amount float64) error {
	return s.Session.DamagePlayer(id, amount)
}

func (s *Server) heal(id string, amount float64) error {
	return s.Session.HealPlayer(id, amount)
}

func (s *Server) handleHealthChange(w http.ResponseWriter, r *http.Request, apply func(string, float64) error) {
	var req struct {
		PlayerID string  `json:"player_id"`
		Amount   float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount <= 0 {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	s.Mu.Lock()
	defer s.Mu.Unlock()
	if err := apply(req.PlayerID, req.Amount); err != nil {
		rejectErr(w, err)
		return
	}
	p := s.Session.Players[req.PlayerID]
	writeJSON(w, map[string]float64{"health": p.Health})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Speed < 0 || req.Speed > 100 {
		http.Error(w, "speed must be 0-100", http.StatusBadRequest)
		return
	}
	s.Clock.Speed = req.Speed
	slog.Info("speed changed", "speed", req.Speed)
	writeJSON(w, map[string]float64{"speed": s.Clock.Speed})
}
