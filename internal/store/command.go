package store

import (
	"database/sql"
	"time"
)

// CommandRecord is a journaled device command.
type CommandRecord struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Device    string    `json:"device"`
	Kind      string    `json:"kind"`
	Level     int       `json:"level"`
	Delta     int       `json:"delta,omitempty"`
	Value     float64   `json:"value"`
	Gesture   string    `json:"gesture"`
	Status    string    `json:"status"`
	At        time.Time `json:"at"`
}

// CommandRepository provides access to the command journal.
type CommandRepository struct {
	db *sql.DB
}

// Commands returns the command repository for this store.
func (s *Store) Commands() *CommandRepository {
	return &CommandRepository{db: s.db}
}

// Create appends a command to the journal and sets its ID.
func (r *CommandRepository) Create(c *CommandRecord) error {
	if c.At.IsZero() {
		c.At = time.Now()
	}

	result, err := r.db.Exec(
		`INSERT INTO commands (session_id, device, kind, level, delta, value, gesture, status, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.SessionID, c.Device, c.Kind, c.Level, c.Delta, c.Value, c.Gesture, c.Status, c.At.UTC(),
	)
	if err != nil {
		return err
	}

	c.ID, err = result.LastInsertId()
	return err
}

// ListBySession returns a session's commands in emission order.
func (r *CommandRepository) ListBySession(sessionID string) ([]CommandRecord, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, device, kind, level, delta, value, gesture, status, at
		 FROM commands
		 WHERE session_id = ?
		 ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []CommandRecord
	for rows.Next() {
		var c CommandRecord
		if err := rows.Scan(&c.ID, &c.SessionID, &c.Device, &c.Kind, &c.Level, &c.Delta,
			&c.Value, &c.Gesture, &c.Status, &c.At); err != nil {
			return nil, err
		}
		records = append(records, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
