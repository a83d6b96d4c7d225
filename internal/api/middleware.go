// Package api implements the platform REST API using chi.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// SessionTokens exposes the access token of the signed-in corpus user.
// *corpus.TokenStore implements it.
type SessionTokens interface {
	AccessTokenID() string
}

// AuthMiddleware returns middleware that checks the Bearer credential.
// With enabled false every request passes. Otherwise the credential must be
// the configured API token or, when sessions is set, the access token of the
// current corpus session.
func AuthMiddleware(enabled bool, token string, sessions SessionTokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			got, ok := bearer(r)
			if !ok || !(tokenEqual(got, token) || sessionToken(sessions, got)) {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearer(r *http.Request) (string, bool) {
	v, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func sessionToken(sessions SessionTokens, got string) bool {
	if sessions == nil {
		return false
	}
	return tokenEqual(got, sessions.AccessTokenID())
}

// tokenEqual compares in constant time. An empty want never matches.
func tokenEqual(got, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
