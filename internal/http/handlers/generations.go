package handlers

import (
	"net/http"
	"strconv"
	"time"

	"tryon/internal/middleware"
)

const maxHistoryLimit = 100

type generationItem struct {
	ID            int64     `json:"id"`
	Status        string    `json:"status"`
	CostInCredits int       `json:"costInCredits"`
	Provider      string    `json:"provider"`
	Model         string    `json:"model,omitempty"`
	PromptMode    string    `json:"promptMode,omitempty"`
	AspectRatio   string    `json:"aspectRatio,omitempty"`
	DurationMs    int64     `json:"durationMs"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Generations handles GET /generations: the caller's successful try-ons,
// newest first.
func (a *App) Generations(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "Invalid or missing access token.")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxHistoryLimit {
			a.error(w, http.StatusBadRequest, "bad_request", "limit must be between 1 and 100.")
			return
		}
		limit = n
	}

	records, err := a.TryOn.History(r.Context(), principal, limit)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", principal.UserID).Msg("generations: history read failed")
		a.error(w, http.StatusInternalServerError, "internal_error", "Could not load generations.")
		return
	}

	items := make([]generationItem, 0, len(records))
	for _, rec := range records {
		items = append(items, generationItem{
			ID:            rec.ID,
			Status:        string(rec.Status),
			CostInCredits: rec.CostCredits,
			Provider:      rec.Provider,
			Model:         rec.Model,
			PromptMode:    rec.PromptMode,
			AspectRatio:   rec.AspectRatio,
			DurationMs:    rec.Duration.Milliseconds(),
			ImageURL:      rec.ImageURL,
			CreatedAt:     rec.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
