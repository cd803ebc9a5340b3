package handlers

import (
	"errors"
	"net/http"

	"tryon/internal/domain"
	"tryon/internal/middleware"
)

// Credits handles GET /credits.
func (a *App) Credits(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "Invalid or missing access token.")
		return
	}

	balance, err := a.TryOn.Credits(r.Context(), principal)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			a.error(w, http.StatusUnauthorized, "unauthorized", "Invalid or missing access token.")
			return
		}
		a.Logger.Error().Err(err).Str("user_id", principal.UserID).Msg("credits: balance read failed")
		if a.CreditsZeroOnError {
			a.json(w, http.StatusOK, map[string]any{"credits": 0, "error": err.Error()})
			return
		}
		a.error(w, http.StatusServiceUnavailable, "credits_unavailable", "Credit balance is temporarily unavailable.")
		return
	}
	a.json(w, http.StatusOK, map[string]int{"credits": balance})
}
