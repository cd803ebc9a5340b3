package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"tryon/internal/domain"
	"tryon/internal/tryon"
)

// TryOn is the slice of tryon.Service the handlers depend on.
type TryOn interface {
	Generate(ctx context.Context, req tryon.Request) (*tryon.Result, error)
	Credits(ctx context.Context, principal domain.Principal) (int, error)
	History(ctx context.Context, principal domain.Principal, limit int) ([]domain.GenerationRecord, error)
}

type App struct {
	TryOn  TryOn
	Logger zerolog.Logger

	// CreditsZeroOnError answers a failed balance read with 200 and a zero
	// balance instead of 503.
	CreditsZeroOnError bool

	started time.Time
}

func NewApp(svc TryOn, logger zerolog.Logger) *App {
	return &App{TryOn: svc, Logger: logger, started: time.Now()}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"error": errCode, "message": message})
}

func (a *App) NotFound(w http.ResponseWriter, r *http.Request) {
	a.error(w, http.StatusNotFound, "not_found", "Resource not found.")
}

func (a *App) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	a.error(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method "+r.Method+" is not allowed.")
}
