package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Settings table - key/value pairs restored at start
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Scroll events table - history of fired scroll actions
		`CREATE TABLE IF NOT EXISTS scroll_events (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL DEFAULT '',
			action TEXT NOT NULL CHECK(action IN ('scroll_up', 'scroll_down')),
			position REAL NOT NULL,
			top REAL NOT NULL,
			bottom REAL NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_scroll_events_created_at ON scroll_events(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
