package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"tryon/internal/authn"
	"tryon/internal/domain"
)

type principalKey struct{}

// Authenticate rejects the request with 401 unless the bearer token
// resolves to a principal, which is then stored in the request context.
// It runs before body parsing so an anonymous caller never reaches the
// ledger.
func Authenticate(a authn.Authenticator, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := authn.ParseBearer(r.Header.Get("Authorization"))
			if err == nil {
				var principal domain.Principal
				principal, err = a.Authenticate(r.Context(), token)
				if err == nil {
					next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
					return
				}
			}
			logger.Debug().Err(err).Str("path", r.URL.Path).Msg("authentication failed")
			writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or missing access token.")
		})
	}
}

func ContextWithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domain.Principal)
	return p, ok && p.Valid()
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
}
