package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jason-s-yu/themind/internal/auth"
)

// Rejection codes written by the guards.
const (
	CodeAuthRequired = "AUTH_REQUIRED"
	CodeCSRFInvalid  = "CSRF_INVALID"
)

const tokenCookie = "auth_token"

func reject(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"code":    code,
		"message": message,
	})
}

// bearerToken returns the JWT from the auth_token cookie or the Authorization header.
func bearerToken(r *http.Request) string {
	if c, err := r.Cookie(tokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// RequireIdentity verifies the caller's JWT and stores the identity in the
// request context.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			reject(w, http.StatusUnauthorized, CodeAuthRequired, "authentication required")
			return
		}
		id, err := auth.AuthenticateJWT(token)
		if err != nil {
			reject(w, http.StatusUnauthorized, CodeAuthRequired, "authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

// RequireCSRF enforces the double-submit check on state-changing methods.
func RequireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		var cookie string
		if c, err := r.Cookie(auth.CSRFCookieName); err == nil {
			cookie = c.Value
		}
		if !auth.ValidCSRF(cookie, r.Header.Get(auth.CSRFHeaderName)) {
			reject(w, http.StatusForbidden, CodeCSRFInvalid, "invalid anti-forgery token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
