package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/gazescroll/internal/gesture"
)

// SettingsHandler serves GET and PUT /api/settings.
type SettingsHandler struct {
	ctrl Controller
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(c Controller) *SettingsHandler {
	return &SettingsHandler{ctrl: c}
}

// Request and response types

// updateSettingsRequest holds a partial update; omitted fields keep their value.
type updateSettingsRequest struct {
	Sensitivity  *float64 `json:"sensitivity"`
	DelaySeconds *float64 `json:"delay_seconds"`
	Mode         *string  `json:"mode"`
}

type settingsResponse struct {
	Sensitivity  float64 `json:"sensitivity"`
	DelaySeconds float64 `json:"delay_seconds"`
	CooldownMs   int     `json:"cooldown_ms"`
	Mode         string  `json:"mode"`
	ModeLabel    string  `json:"mode_label"`
}

func toSettingsResponse(s gesture.Settings) settingsResponse {
	return settingsResponse{
		Sensitivity:  s.Sensitivity,
		DelaySeconds: s.Cooldown().Seconds(),
		CooldownMs:   s.CooldownMs,
		Mode:         string(s.Mode),
		ModeLabel:    s.Mode.String(),
	}
}

func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, toSettingsResponse(h.ctrl.Settings()))
	case http.MethodPut:
		h.update(w, r)
	default:
		methodNotAllowed(w)
	}
}

// update handles PUT /api/settings.
func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	applied, err := h.ctrl.ModifySettings(func(s gesture.Settings) gesture.Settings {
		if req.Sensitivity != nil {
			s.Sensitivity = *req.Sensitivity
		}
		if req.DelaySeconds != nil {
			s.CooldownMs = gesture.CooldownFromSeconds(*req.DelaySeconds)
		}
		if req.Mode != nil {
			s.Mode = gesture.Mode(*req.Mode)
		}
		return s
	})
	if err != nil {
		if errors.Is(err, gesture.ErrOutOfRange) || errors.Is(err, gesture.ErrUnknownMode) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update settings")
		return
	}

	writeJSON(w, http.StatusOK, toSettingsResponse(applied))
}
