package middleware

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/jobdeck/jobdeck/api/internal/model"
)

// AdminKey returns a middleware that guards operational endpoints behind
// a shared admin API key. Only the bcrypt hash of the key is configured;
// the plaintext never touches the config surface.
func AdminKey(keyHash string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-Admin-Key")
			if key == "" {
				authHeader := r.Header.Get("Authorization")
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
					key = parts[1]
				}
			}
			if key == "" {
				model.NewUnauthorizedError("missing admin key").WriteJSON(w)
				return
			}

			if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
				model.NewUnauthorizedError("invalid admin key").WriteJSON(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
