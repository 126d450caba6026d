package api

import (
	"net/http"
	"strconv"

	"github.com/ayusman/gazescroll/internal/gesture"
	"github.com/ayusman/gazescroll/internal/store"
)

// MaxEventLimit caps the limit query parameter.
const MaxEventLimit = 500

// EventsHandler serves GET /api/events?limit=N.
type EventsHandler struct {
	ctrl Controller
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(c Controller) *EventsHandler {
	return &EventsHandler{ctrl: c}
}

type listEventsResponse struct {
	Events []*store.ScrollEvent   `json:"events"`
	Count  int                    `json:"count"`
	Totals map[gesture.Action]int `json:"totals"` // all stored events, not only the listed ones
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	limit := store.DefaultEventLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > MaxEventLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	events, err := h.ctrl.RecentEvents(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}
	if events == nil {
		events = []*store.ScrollEvent{}
	}

	totals, err := h.ctrl.EventTotals()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count events")
		return
	}
	if totals == nil {
		totals = map[gesture.Action]int{}
	}

	writeJSON(w, http.StatusOK, listEventsResponse{Events: events, Count: len(events), Totals: totals})
}
