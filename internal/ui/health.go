package ui

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"
)

type healthResponse struct {
	Status        string `json:"status"`
	GoVersion     string `json:"go_version"`
	Uptime        string `json:"uptime"`
	Service       string `json:"service"`
	Authenticated bool   `json:"authenticated"`
	RequestID     string `json:"request_id"`
}

// HandleHealth reports liveness. It bypasses the route guard.
func (ui *UI) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(healthResponse{
		Status:        "healthy",
		GoVersion:     runtime.Version(),
		Uptime:        time.Since(ui.startTime).Round(time.Second).String(),
		Service:       ui.client.BaseURL,
		Authenticated: ui.sessions.Current().Authenticated(),
		RequestID:     RequestIDFromContext(r.Context()),
	})
}
