package card

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const sessionCookieName = "cardvault_session"

// Identity resolves the session identity a store operation is attributed to.
// An identity is guaranteed to exist before any store call is made; it is an
// attribution marker, not a credential.
type Identity interface {
	Resolve(w http.ResponseWriter, r *http.Request) string
}

// CookieIdentity implements Identity with an anonymous session cookie. A
// request without one is assigned a fresh anonymous identifier; if minting
// fails, a locally generated fallback identifier is used instead.
type CookieIdentity struct {
	mint func() (string, error)
}

// NewCookieIdentity creates a CookieIdentity minting UUID session identifiers
func NewCookieIdentity() *CookieIdentity {
	return &CookieIdentity{
		mint: func() (string, error) {
			id, err := uuid.NewRandom()
			if err != nil {
				return "", err
			}
			return id.String(), nil
		},
	}
}

// Resolve returns the session identity for a request, setting the session
// cookie when a new identity is assigned.
func (ci *CookieIdentity) Resolve(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	id, err := ci.mint()
	if err != nil {
		id = fallbackIdentity()
		slog.Warn("Failed to mint session identity, using local fallback", "error", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// fallbackIdentity generates a local anonymous identifier when minting fails
func fallbackIdentity() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("anon-%d", time.Now().UnixNano())
	}
	return "anon-" + hex.EncodeToString(b[:])
}
