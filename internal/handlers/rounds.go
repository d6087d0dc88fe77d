// internal/handlers/rounds.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type generateRequest struct {
	MaxPlayers int `json:"max_players"`
}

// GenerateRoundHandler regenerates today's round on admin request. The body
// may carry max_players to cap the roster below the configured maximum.
func (s *Server) GenerateRoundHandler(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err.Error() != "EOF" {
		http.Error(w, "bad generate payload", http.StatusBadRequest)
		return
	}

	round, err := s.Engine.Generate(r.Context(), todayFn(), req.MaxPlayers)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

// CurrentRoundHandler returns today's round, generating it on the first read
// of the day.
func (s *Server) CurrentRoundHandler(w http.ResponseWriter, r *http.Request) {
	round, err := s.Engine.CurrentRound(r.Context(), todayFn())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

// RoundByDateHandler returns the stored round for a specific date.
func (s *Server) RoundByDateHandler(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	round, err := s.Engine.RoundByDate(r.Context(), date)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

type winnerRequest struct {
	Slot int `json:"slot"`
}

// RecordWinnerHandler finalizes a round with the winning slot reported by
// the game client.
func (s *Server) RecordWinnerHandler(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	date := chi.URLParam(r, "date")
	var req winnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad winner payload", http.StatusBadRequest)
		return
	}

	round, err := s.Engine.RecordWinner(r.Context(), date, req.Slot)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

// LeaderboardHandler returns the all-time win tally.
func (s *Server) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Engine.Leaderboard(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HealthHandler pings the registered dependencies and reports per-dependency
// status. Any failing dependency turns the response into a 503.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	report := make(map[string]string, len(s.HealthCheckers))
	for name, check := range s.HealthCheckers {
		if err := check(ctx); err != nil {
			report[name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			report[name] = "ok"
		}
	}
	writeJSON(w, status, report)
}
