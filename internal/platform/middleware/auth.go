package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"certo/pkg/requestcontext"
)

// JWTValidator validates a bearer token and returns the issuer profile id.
// Implemented by internal/jwttoken.Service.
type JWTValidator interface {
	Validate(token string) (int64, error)
}

// RequireAuth guards issuer-facing endpoints. The validated profile id is
// placed in the request context as the actor.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeUnauthorized(w)
				return
			}
			profileID, err := validator.Validate(token)
			if err != nil {
				logger.Warn("rejected bearer token",
					"request_id", requestcontext.RequestID(r.Context()),
					"error", err.Error(),
				)
				writeUnauthorized(w)
				return
			}
			ctx := requestcontext.WithActorID(r.Context(), strconv.FormatInt(profileID, 10))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}
