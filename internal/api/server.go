// Package api provides the read-only HTTP observation surface and the
// websocket event stream. GET endpoints are public; the speed control
// requires a bearer token. See design doc Section 11.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/talgya/solsim/internal/ecs"
	"github.com/talgya/solsim/internal/engine"
	"github.com/talgya/solsim/internal/persistence"
)

// Server serves simulation state over HTTP.
type Server struct {
	Sim   *engine.Simulation
	Clock *engine.Clock
	DB    *persistence.DB
	Hub   *Hub
	Port  int

	// Mu guards Sim reads against the stepping clock. Shared with Clock.Mu.
	Mu sync.Locker

	// AdminKey is the bearer token for control endpoints. Empty disables them.
	AdminKey string
}

// Start begins serving in a goroutine.
func (s *Server) Start() {
	eventLimiter := NewRateLimiter(120, time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/stations", s.handleStations)
	mux.HandleFunc("/api/v1/station/", s.handleStationDetail)
	mux.HandleFunc("/api/v1/ships", s.handleShips)
	mux.HandleFunc("/api/v1/ship/", s.handleShipDetail)
	mux.HandleFunc("/api/v1/factions", s.handleFactions)
	mux.HandleFunc("/api/v1/faction/", s.handleFactionDetail)
	mux.HandleFunc("/api/v1/events", RateLimitMiddleware(eventLimiter, s.handleEvents))
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

func (s *Server) lock() func() {
	if s.Mu == nil {
		return func() {}
	}
	s.Mu.Lock()
	return s.Mu.Unlock
}

// adminOnly requires the bearer token on non-GET requests.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			if s.AdminKey == "" {
				http.Error(w, "control endpoints disabled", http.StatusForbidden)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") ||
				strings.TrimPrefix(auth, "Bearer ") != s.AdminKey {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	defer s.lock()()
	writeJSON(w, map[string]any{
		"name":     "solsim",
		"tick":     s.Sim.Tick,
		"seed":     s.Sim.Seed,
		"speed":    s.Clock.Speed(),
		"entities": s.Sim.World.EntityCount(),
		"stations": len(s.Sim.StationIDs()),
		"ships":    len(s.Sim.ShipIDs()),
		"factions": len(s.Sim.Factions.IDs()),
	})
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	defer s.lock()()
	views := make([]engine.StationView, 0)
	for _, id := range s.Sim.StationIDs() {
		if v, err := s.Sim.StationMarket(id); err == nil {
			views = append(views, v)
		}
	}
	writeJSON(w, views)
}

func (s *Server) handleStationDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "/api/v1/station/")
	if !ok {
		return
	}
	defer s.lock()()
	v, err := s.Sim.StationMarket(id)
	if err != nil {
		notFound(w, err, "station")
		return
	}
	writeJSON(w, v)
}

func (s *Server) handleShips(w http.ResponseWriter, r *http.Request) {
	defer s.lock()()
	views := make([]engine.ShipView, 0)
	for _, id := range s.Sim.ShipIDs() {
		if v, err := s.Sim.ShipState(id); err == nil {
			views = append(views, v)
		}
	}
	writeJSON(w, views)
}

func (s *Server) handleShipDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "/api/v1/ship/")
	if !ok {
		return
	}
	defer s.lock()()
	v, err := s.Sim.ShipState(id)
	if err != nil {
		notFound(w, err, "ship")
		return
	}
	writeJSON(w, v)
}

func (s *Server) handleFactions(w http.ResponseWriter, r *http.Request) {
	defer s.lock()()
	views := make([]engine.FactionView, 0)
	for _, id := range s.Sim.Factions.IDs() {
		if v, err := s.Sim.FactionSummary(id); err == nil {
			views = append(views, v)
		}
	}
	writeJSON(w, views)
}

func (s *Server) handleFactionDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/faction/")
	if id == "" {
		http.Error(w, "missing faction id", http.StatusBadRequest)
		return
	}
	defer s.lock()()
	v, err := s.Sim.FactionSummary(id)
	if err != nil {
		notFound(w, err, "faction")
		return
	}
	writeJSON(w, v)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	// Persisted log when available, in-memory bus log otherwise.
	if s.DB != nil {
		rows, err := s.DB.RecentEvents(limit)
		if err == nil {
			writeJSON(w, rows)
			return
		}
		slog.Error("event query failed", "error", err)
	}

	defer s.lock()()
	log := s.Sim.Bus.Log()
	if len(log) > limit {
		log = log[len(log)-limit:]
	}
	writeJSON(w, log)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Clock.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}
	writeJSON(w, map[string]float64{"speed": s.Clock.Speed()})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.Hub == nil {
		http.Error(w, "streaming disabled", http.StatusServiceUnavailable)
		return
	}
	ServeWs(s.Hub, w, r)
}

func pathID(w http.ResponseWriter, r *http.Request, prefix string) (ecs.EntityID, bool) {
	raw := strings.TrimPrefix(r.URL.Path, prefix)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		http.Error(w, "invalid entity id", http.StatusBadRequest)
		return 0, false
	}
	return ecs.EntityID(id), true
}

func notFound(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, ecs.ErrNotFound) {
		http.Error(w, what+" not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
