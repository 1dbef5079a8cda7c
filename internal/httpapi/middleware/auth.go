package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Keys are the bearer tokens accepted by the status API. Control tokens may
// also read.
type Keys struct {
	Read    []string
	Control []string
}

func readToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func hasToken(given string, set []string) bool {
	if given == "" {
		return false
	}
	for _, k := range set {
		if subtle.ConstantTimeCompare([]byte(k), []byte(given)) == 1 {
			return true
		}
	}
	return false
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}

// RequireRead allows requests that present a read or control token.
// If no tokens are configured at all, every request is allowed.
func RequireRead(keys Keys) func(http.Handler) http.Handler {
	enabled := len(keys.Read) > 0 || len(keys.Control) > 0
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := readToken(r)
			if hasToken(tok, keys.Read) || hasToken(tok, keys.Control) {
				next.ServeHTTP(w, r)
				return
			}
			deny(w, http.StatusUnauthorized, "unauthorized")
		})
	}
}

// RequireControl only permits requests that present a control token.
// Without control tokens it falls back to RequireRead. With no tokens at
// all, browser requests (those carrying an Origin header) are refused.
func RequireControl(keys Keys) func(http.Handler) http.Handler {
	if len(keys.Control) == 0 {
		if len(keys.Read) > 0 {
			return RequireRead(keys)
		}
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Origin") != "" {
					deny(w, http.StatusForbidden, "browser requests need a control token")
					return
				}
				next.ServeHTTP(w, r)
			})
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := readToken(r)
			switch {
			case hasToken(tok, keys.Control):
				next.ServeHTTP(w, r)
			case hasToken(tok, keys.Read):
				deny(w, http.StatusForbidden, "forbidden")
			default:
				deny(w, http.StatusUnauthorized, "unauthorized")
			}
		})
	}
}
