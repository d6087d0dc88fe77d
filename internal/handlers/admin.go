// internal/handlers/admin.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dailyrumble/rumble/internal/auth"
)

type loginRequest struct {
	Password string `json:"password"`
}

// LoginHandler exchanges the admin password for a signed admin token,
// delivered as an http-only cookie. The password is checked against the
// argon2id hash supplied via configuration.
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if s.AdminPassHash == "" {
		http.Error(w, "admin login not configured", http.StatusServiceUnavailable)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad login payload", http.StatusBadRequest)
		return
	}

	ok, err := auth.VerifyPassword(req.Password, s.AdminPassHash)
	if err != nil {
		s.Logger.Errorf("verify admin password: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "invalid password", http.StatusForbidden)
		return
	}

	token, err := s.Tokens.CreateAdminToken()
	if err != nil {
		s.Logger.Errorf("create admin token: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "admin_token",
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
