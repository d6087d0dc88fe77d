// internal/handlers/rounds_test.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailyrumble/rumble/internal/auth"
	"github.com/dailyrumble/rumble/internal/engine"
	"github.com/dailyrumble/rumble/internal/models"
)

// stubEngine returns canned values and records what it was asked for.
type stubEngine struct {
	round   *models.Round
	entries []models.LeaderboardEntry
	err     error

	gotDate string
	gotSlot int
	gotMax  int
}

func (s *stubEngine) Generate(ctx context.Context, date string, maxPlayers int) (*models.Round, error) {
	s.gotDate, s.gotMax = date, maxPlayers
	return s.round, s.err
}

func (s *stubEngine) CurrentRound(ctx context.Context, date string) (*models.Round, error) {
	s.gotDate = date
	return s.round, s.err
}

func (s *stubEngine) RoundByDate(ctx context.Context, date string) (*models.Round, error) {
	s.gotDate = date
	return s.round, s.err
}

func (s *stubEngine) RecordWinner(ctx context.Context, date string, slot int) (*models.Round, error) {
	s.gotDate, s.gotSlot = date, slot
	return s.round, s.err
}

func (s *stubEngine) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	return s.entries, s.err
}

func testRound() *models.Round {
	return &models.Round{
		RoundDate:   "2026-08-29",
		Mode:        models.ModeLive,
		Status:      models.StatusPending,
		FinaleCount: 2,
		Entrants: []models.Entrant{
			{Slot: 1, Handle: "alice", Source: models.SourceComment},
			{Slot: 2, Handle: "bob", Source: models.SourceComment},
		},
	}
}

func newTestServer(t *testing.T, eng RoundEngine) (*Server, *chi.Mux) {
	t.Helper()
	tokens, err := auth.NewTokens(time.Hour)
	require.NoError(t, err)

	hash, err := auth.HashPassword("letmein")
	require.NoError(t, err)

	s := NewServer(eng, tokens, hash, nil)

	r := chi.NewRouter()
	r.Post("/admin/login", s.LoginHandler)
	r.Post("/admin/rounds/generate", s.GenerateRoundHandler)
	r.Get("/rounds/today", s.CurrentRoundHandler)
	r.Get("/rounds/{date}", s.RoundByDateHandler)
	r.Post("/rounds/{date}/winner", s.RecordWinnerHandler)
	r.Get("/leaderboard", s.LeaderboardHandler)
	return s, r
}

func adminCookie(t *testing.T, s *Server) string {
	t.Helper()
	tok, err := s.Tokens.CreateAdminToken()
	require.NoError(t, err)
	return "admin_token=" + tok
}

func TestCurrentRoundHandler(t *testing.T) {
	prev := todayFn
	todayFn = func() string { return "2026-08-29" }
	defer func() { todayFn = prev }()

	eng := &stubEngine{round: testRound()}
	_, r := newTestServer(t, eng)

	req := httptest.NewRequest("GET", "/rounds/today", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2026-08-29", eng.gotDate)

	var round models.Round
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &round))
	assert.Equal(t, models.ModeLive, round.Mode)
	assert.Len(t, round.Entrants, 2)
}

func TestRoundByDateNotFound(t *testing.T) {
	eng := &stubEngine{err: engine.ErrRoundNotFound}
	_, r := newTestServer(t, eng)

	req := httptest.NewRequest("GET", "/rounds/2026-01-01", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "2026-01-01", eng.gotDate)
}

func TestGenerateRequiresAdmin(t *testing.T) {
	eng := &stubEngine{round: testRound()}
	s, r := newTestServer(t, eng)

	req := httptest.NewRequest("POST", "/admin/rounds/generate", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest("POST", "/admin/rounds/generate", nil)
	req.Header.Set("Cookie", "admin_token=bogus")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	body := bytes.NewBufferString(`{"max_players": 6}`)
	req = httptest.NewRequest("POST", "/admin/rounds/generate", body)
	req.Header.Set("Cookie", adminCookie(t, s))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 6, eng.gotMax)
}

func TestRecordWinnerHandler(t *testing.T) {
	eng := &stubEngine{round: testRound()}
	s, r := newTestServer(t, eng)

	body := bytes.NewBufferString(`{"slot": 2}`)
	req := httptest.NewRequest("POST", "/rounds/2026-08-29/winner", body)
	req.Header.Set("Cookie", adminCookie(t, s))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2026-08-29", eng.gotDate)
	assert.Equal(t, 2, eng.gotSlot)
}

func TestRecordWinnerValidationMapsTo400(t *testing.T) {
	eng := &stubEngine{err: &engine.ValidationError{Msg: "slot 9 is not part of the round"}}
	s, r := newTestServer(t, eng)

	body := bytes.NewBufferString(`{"slot": 9}`)
	req := httptest.NewRequest("POST", "/rounds/2026-08-29/winner", body)
	req.Header.Set("Cookie", adminCookie(t, s))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLeaderboardHandler(t *testing.T) {
	eng := &stubEngine{entries: []models.LeaderboardEntry{
		{Handle: "alice", Wins: 3},
		{Handle: "bob", Wins: 2},
	}}
	_, r := newTestServer(t, eng)

	req := httptest.NewRequest("GET", "/leaderboard", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var entries []models.LeaderboardEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Equal(t, eng.entries, entries)
}

func TestLoginHandler(t *testing.T) {
	_, r := newTestServer(t, &stubEngine{})

	req := httptest.NewRequest("POST", "/admin/login", bytes.NewBufferString(`{"password":"wrong"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest("POST", "/admin/login", bytes.NewBufferString(`{"password":"letmein"}`))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "admin_token" && c.Value != "" {
			found = true
		}
	}
	assert.True(t, found, "expected admin_token cookie to be set")
}
