package handlers

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status        string `json:"status"`
	Service       string `json:"service"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
}

// Health handles GET /v1/healthz. It never touches the ledger or the
// provider, so it stays green while either is degraded.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	var uptime time.Duration
	if !a.started.IsZero() {
		uptime = time.Since(a.started)
	}
	a.json(w, http.StatusOK, healthResponse{
		Status:        "ok",
		Service:       "tryon",
		UptimeSeconds: int64(uptime / time.Second),
	})
}
