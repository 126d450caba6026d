package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/gazescroll/internal/gesture"
)

// DefaultEventLimit caps ListRecent when no positive limit is given.
const DefaultEventLimit = 50

// ScrollEvent is a fired scroll action recorded for history.
type ScrollEvent struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Action    gesture.Action `json:"action"`
	Position  float64        `json:"position"`
	Top       float64        `json:"top"`
	Bottom    float64        `json:"bottom"`
	CreatedAt time.Time      `json:"created_at"`
}

// EventRepository records scroll events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Create inserts e, assigning an ID and timestamp when missing.
func (r *EventRepository) Create(e *ScrollEvent) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO scroll_events (id, session_id, action, position, top, bottom, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, string(e.Action), e.Position, e.Top, e.Bottom, e.CreatedAt,
	)
	return err
}

// ListRecent returns up to limit events, newest first.
func (r *EventRepository) ListRecent(limit int) ([]*ScrollEvent, error) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}

	rows, err := r.db.Query(
		`SELECT id, session_id, action, position, top, bottom, created_at
		 FROM scroll_events ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*ScrollEvent
	for rows.Next() {
		e := &ScrollEvent{}
		var action string
		if err := rows.Scan(&e.ID, &e.SessionID, &action, &e.Position, &e.Top, &e.Bottom, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Action = gesture.Action(action)
		events = append(events, e)
	}

	return events, rows.Err()
}

// CountByAction returns the number of recorded events per action.
func (r *EventRepository) CountByAction() (map[gesture.Action]int, error) {
	rows, err := r.db.Query(`SELECT action, COUNT(*) FROM scroll_events GROUP BY action`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[gesture.Action]int)
	for rows.Next() {
		var action string
		var n int
		if err := rows.Scan(&action, &n); err != nil {
			return nil, err
		}
		counts[gesture.Action(action)] = n
	}

	return counts, rows.Err()
}

// DeleteBefore removes events older than t and returns how many were deleted.
func (r *EventRepository) DeleteBefore(t time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM scroll_events WHERE created_at < ?`, t)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
