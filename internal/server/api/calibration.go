package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/gazescroll/internal/gesture"
)

// CalibrationHandler serves /api/calibration and /api/calibration/{bound}.
type CalibrationHandler struct {
	ctrl Controller
}

// NewCalibrationHandler creates a new CalibrationHandler.
func NewCalibrationHandler(c Controller) *CalibrationHandler {
	return &CalibrationHandler{ctrl: c}
}

type calibrationRequestResponse struct {
	Bound    string    `json:"bound"`
	Deadline time.Time `json:"deadline"`
	DelayMs  int64     `json:"delay_ms"`
}

type calibrationResponse struct {
	Calibration gesture.Calibration      `json:"calibration"`
	Calibrated  bool                     `json:"calibrated"`
	Pending     []gesture.PendingRequest `json:"pending"`
}

func (h *CalibrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/calibration or /api/calibration/{bound}
	path := strings.TrimPrefix(r.URL.Path, "/api/calibration")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.get(w)
		case http.MethodDelete:
			h.ctrl.ResetCalibration()
			h.get(w)
		default:
			methodNotAllowed(w)
		}
		return
	}

	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	bound, err := gesture.ParseBound(path)
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown calibration bound")
		return
	}

	deadline := h.ctrl.RequestCalibration(bound)
	writeJSON(w, http.StatusAccepted, calibrationRequestResponse{
		Bound:    string(bound),
		Deadline: deadline,
		DelayMs:  time.Until(deadline).Milliseconds(),
	})
}

func (h *CalibrationHandler) get(w http.ResponseWriter) {
	snap := h.ctrl.Snapshot()
	writeJSON(w, http.StatusOK, calibrationResponse{
		Calibration: snap.Calibration,
		Calibrated:  snap.Calibrated,
		Pending:     snap.Pending,
	})
}
