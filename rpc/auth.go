package rpc

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
)

// Authenticator verifies admin requests before they reach handlers. Only
// bearer tokens are supported; an empty token disables the admin surface
// rather than leaving it open.
type Authenticator struct {
	bearerToken string
}

// NewAuthenticator constructs an authenticator from a shared bearer token.
func NewAuthenticator(bearerToken string) (*Authenticator, error) {
	token := strings.TrimSpace(bearerToken)
	if token == "" {
		return nil, fmt.Errorf("rpc: admin bearer token must be configured")
	}
	return &Authenticator{bearerToken: token}, nil
}

// Middleware enforces authentication for admin endpoints.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a == nil || !a.authenticate(r) {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) authenticate(r *http.Request) bool {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return false
	}
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return subtle.ConstantTimeCompare([]byte(token), []byte(a.bearerToken)) == 1
}
