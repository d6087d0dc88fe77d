// internal/auth/token.go
package auth

import (
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Tokens mints and verifies admin session tokens. Keys are generated fresh
// at startup, so tokens do not survive a restart; admins just log in again.
type Tokens struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	expire     time.Duration
}

// NewTokens generates an ed25519 key pair for signing admin tokens.
// expire == 0 mints tokens without an expiry claim.
func NewTokens(expire time.Duration) (*Tokens, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key pair: %w", err)
	}
	return &Tokens{privateKey: priv, publicKey: pub, expire: expire}, nil
}

// CreateAdminToken mints a signed token carrying the admin role.
func (t *Tokens) CreateAdminToken() (string, error) {
	claims := jwt.MapClaims{
		"sub":  "admin",
		"role": "admin",
	}
	if t.expire > 0 {
		claims["exp"] = time.Now().Add(t.expire).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(t.privateKey)
}

// VerifyAdminToken checks a token string and returns an error unless it is a
// valid, unexpired token carrying the admin role.
func (t *Tokens) VerifyAdminToken(tokenString string) error {
	parsed, err := jwt.Parse(tokenString, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.publicKey, nil
	})
	if err != nil {
		return fmt.Errorf("jwt parse error: %w", err)
	}
	if !parsed.Valid {
		return fmt.Errorf("invalid token")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return fmt.Errorf("invalid jwt claims")
	}
	if role, _ := claims["role"].(string); role != "admin" {
		return fmt.Errorf("missing admin role")
	}
	return nil
}
