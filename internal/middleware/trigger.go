package middleware

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const headerTriggerToken = "X-Trigger-Token"

// TriggerToken returns middleware that requires a token matching the bcrypt
// hash. The token is read from "Authorization: Bearer <token>" or the
// X-Trigger-Token header. An empty hash leaves the endpoint open. CORS
// preflight requests are never checked.
func TriggerToken(hash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if hash == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if token == "" {
				token = r.Header.Get(headerTriggerToken)
			}
			if token == "" {
				writeUnauthorized(w, "missing trigger token")
				return
			}
			if bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) != nil {
				writeUnauthorized(w, "invalid trigger token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if t, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(t)
	}
	return ""
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
