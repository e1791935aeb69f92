package handlers

import (
	"net/http"
	"time"
)

// HealthResponse reports process liveness.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Uptime      string    `json:"uptime"`
	Environment string    `json:"environment"`
}

// Healthz returns a liveness handler for the given environment name.
func Healthz(environment string) http.HandlerFunc {
	startedAt := time.Now()
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:      "UP",
			Timestamp:   time.Now().UTC(),
			Uptime:      time.Since(startedAt).Round(time.Second).String(),
			Environment: environment,
		})
	}
}
