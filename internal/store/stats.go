package store

import (
	"database/sql"
	"time"
)

// GestureStat counts how often a label was shown during a session.
type GestureStat struct {
	SessionID string    `json:"session_id"`
	Label     string    `json:"label"`
	Count     int       `json:"count"`
	LastSeen  time.Time `json:"last_seen"`
}

// StatsRepository provides access to gesture statistics.
type StatsRepository struct {
	db *sql.DB
}

// Stats returns the statistics repository for this store.
func (s *Store) Stats() *StatsRepository {
	return &StatsRepository{db: s.db}
}

// Increment adds one occurrence of label to the session's counts.
func (r *StatsRepository) Increment(sessionID, label string, at time.Time) error {
	_, err := r.db.Exec(
		`INSERT INTO gesture_stats (session_id, label, count, last_seen) VALUES (?, ?, 1, ?)
		 ON CONFLICT(session_id, label) DO UPDATE SET count = count + 1, last_seen = excluded.last_seen`,
		sessionID, label, at.UTC(),
	)
	return err
}

// ListBySession returns counts for a session, most frequent first.
func (r *StatsRepository) ListBySession(sessionID string) ([]GestureStat, error) {
	rows, err := r.db.Query(
		`SELECT session_id, label, count, last_seen
		 FROM gesture_stats
		 WHERE session_id = ?
		 ORDER BY count DESC, label`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []GestureStat
	for rows.Next() {
		var st GestureStat
		if err := rows.Scan(&st.SessionID, &st.Label, &st.Count, &st.LastSeen); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
