package api

import (
	"encoding/json"
	"net/http"
)

// StateHandler serves GET /api/state.
type StateHandler struct {
	ctrl Controller
}

// NewStateHandler creates a new StateHandler.
func NewStateHandler(c Controller) *StateHandler {
	return &StateHandler{ctrl: c}
}

func (h *StateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

// TrackingHandler serves POST /api/tracking to start or stop tracking.
type TrackingHandler struct {
	ctrl Controller
}

// NewTrackingHandler creates a new TrackingHandler.
func NewTrackingHandler(c Controller) *TrackingHandler {
	return &TrackingHandler{ctrl: c}
}

type trackingRequest struct {
	Active *bool `json:"active"`
}

type trackingResponse struct {
	Active bool `json:"active"`
}

func (h *TrackingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, trackingResponse{Active: h.ctrl.Snapshot().Active})
	case http.MethodPost:
		var req trackingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if req.Active == nil {
			writeError(w, http.StatusBadRequest, "active is required")
			return
		}
		h.ctrl.SetActive(*req.Active)
		writeJSON(w, http.StatusOK, trackingResponse{Active: *req.Active})
	default:
		methodNotAllowed(w)
	}
}

// ModeHandler serves POST /api/mode/toggle.
type ModeHandler struct {
	ctrl Controller
}

// NewModeHandler creates a new ModeHandler.
func NewModeHandler(c Controller) *ModeHandler {
	return &ModeHandler{ctrl: c}
}

type modeResponse struct {
	Mode  string `json:"mode"`
	Label string `json:"label"`
}

func (h *ModeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	m := h.ctrl.ToggleMode()
	writeJSON(w, http.StatusOK, modeResponse{Mode: string(m), Label: m.String()})
}
