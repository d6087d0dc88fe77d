// internal/handlers/server.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/dailyrumble/rumble/internal/auth"
	"github.com/dailyrumble/rumble/internal/engine"
	"github.com/dailyrumble/rumble/internal/models"
)

// todayFn supplies the current round date; tests pin it.
var todayFn = engine.Today

// RoundEngine is the engine surface the HTTP layer calls. The concrete
// implementation is *engine.Engine; tests substitute a stub.
type RoundEngine interface {
	Generate(ctx context.Context, date string, maxPlayers int) (*models.Round, error)
	CurrentRound(ctx context.Context, date string) (*models.Round, error)
	RoundByDate(ctx context.Context, date string) (*models.Round, error)
	RecordWinner(ctx context.Context, date string, slot int) (*models.Round, error)
	Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error)
}

// Server holds everything the HTTP handlers need. It formats responses and
// maps engine errors onto status codes; all round semantics live below it.
type Server struct {
	Engine        RoundEngine
	Tokens        *auth.Tokens
	AdminPassHash string
	Logger        *logrus.Logger
	Hub           *RoundHub

	// HealthCheckers are pinged by the healthz endpoint, keyed by name.
	HealthCheckers map[string]func(ctx context.Context) error
}

// NewServer builds a handler server around an engine.
func NewServer(eng RoundEngine, tokens *auth.Tokens, adminPassHash string, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{
		Engine:         eng,
		Tokens:         tokens,
		AdminPassHash:  adminPassHash,
		Logger:         logger,
		Hub:            NewRoundHub(logger),
		HealthCheckers: make(map[string]func(ctx context.Context) error),
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeEngineError maps the engine's error taxonomy onto HTTP statuses:
// validation failures are the client's fault, a missing round is a 404, and
// anything else (persistence included) is a 500.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	var ve *engine.ValidationError
	switch {
	case errors.As(err, &ve):
		http.Error(w, ve.Msg, http.StatusBadRequest)
	case errors.Is(err, engine.ErrRoundNotFound):
		http.Error(w, "round not found", http.StatusNotFound)
	default:
		s.Logger.Errorf("engine error: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// requireAdmin verifies the admin_token cookie, writing the error response
// itself. Returns false when the request must not proceed.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	cookie := r.Header.Get("Cookie")
	token := extractCookieToken(cookie, "admin_token")
	if token == "" {
		http.Error(w, "missing admin_token", http.StatusUnauthorized)
		return false
	}
	if err := s.Tokens.VerifyAdminToken(token); err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return false
	}
	return true
}
