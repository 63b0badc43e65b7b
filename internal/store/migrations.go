package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per process run (or explicit restart)
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL DEFAULT 'camera',
			started_at DATETIME NOT NULL,
			ended_at DATETIME
		)`,

		// Commands table - every device command a session emitted
		`CREATE TABLE IF NOT EXISTS commands (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			device TEXT NOT NULL CHECK(device IN ('LED', 'MOTOR')),
			kind TEXT NOT NULL,
			level INTEGER NOT NULL DEFAULT 0,
			delta INTEGER NOT NULL DEFAULT 0,
			value REAL NOT NULL DEFAULT 0,
			gesture TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			at DATETIME NOT NULL
		)`,

		// Gesture stats table - occurrence counts per label
		`CREATE TABLE IF NOT EXISTS gesture_stats (
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			label TEXT NOT NULL,
			count INTEGER NOT NULL DEFAULT 0,
			last_seen DATETIME NOT NULL,
			PRIMARY KEY (session_id, label)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_commands_session_id ON commands(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
