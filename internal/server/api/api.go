// Package api provides HTTP API handlers for the gazescroll control panel.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/gazescroll/internal/app"
	"github.com/ayusman/gazescroll/internal/gesture"
	"github.com/ayusman/gazescroll/internal/store"
)

// Controller is the live application state the panel reads and mutates.
type Controller interface {
	Snapshot() app.Snapshot
	SetActive(active bool)
	Settings() gesture.Settings
	ModifySettings(fn func(gesture.Settings) gesture.Settings) (gesture.Settings, error)
	ToggleMode() gesture.Mode
	RequestCalibration(b gesture.Bound) time.Time
	ResetCalibration()
	Calibration() gesture.Calibration
	RecentEvents(limit int) ([]*store.ScrollEvent, error)
	EventTotals() (map[gesture.Action]int, error)
}

var _ Controller = (*app.App)(nil)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}
