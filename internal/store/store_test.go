package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// newTestStore creates a Store backed by a file in a temp dir.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatal("database file should not exist before creating store")
	}

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file should exist after creating store")
	}
	if s.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", s.Path(), dbPath)
	}
}

func TestNewStore_RunsMigrations(t *testing.T) {
	s := newTestStore(t)

	for _, table := range []string{"sessions", "commands", "gesture_stats"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q should exist after migrations: %v", table, err)
		}
	}

	for _, idx := range []string{"idx_commands_session_id", "idx_sessions_started_at"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='index' AND name=?",
			idx,
		).Scan(&name)
		if err != nil {
			t.Errorf("index %q should exist after migrations: %v", idx, err)
		}
	}
}

func TestNewStore_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	sess := &Session{}
	if err := s.Sessions().Create(sess); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("reopening should rerun migrations cleanly: %v", err)
	}
	defer s.Close()

	if _, err := s.Sessions().GetByID(sess.ID); err != nil {
		t.Errorf("session lost across reopen: %v", err)
	}
}

func TestStore_Close(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("close should not return error: %v", err)
	}

	if _, err := s.DB().Exec("SELECT 1"); err == nil {
		t.Error("DB operations should fail after close")
	}
}

func TestStore_ForeignKeysEnabled(t *testing.T) {
	s := newTestStore(t)

	var fkEnabled int
	if err := s.DB().QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		t.Fatalf("failed to check foreign keys pragma: %v", err)
	}
	if fkEnabled != 1 {
		t.Error("foreign keys should be enabled")
	}

	err := s.Commands().Create(&CommandRecord{SessionID: "missing", Device: "LED", Kind: "POWER_ON"})
	if err == nil {
		t.Error("command for unknown session should be rejected")
	}
}

func TestSessionRepository(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	first := &Session{StartedAt: start}
	if err := repo.Create(first); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(first.ID) != 36 {
		t.Errorf("expected a UUID, got %q", first.ID)
	}
	if first.Source != "camera" {
		t.Errorf("Source = %q, want camera", first.Source)
	}

	second := &Session{ID: "api-run", Source: "api", StartedAt: start.Add(time.Hour)}
	if err := repo.Create(second); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(first.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !got.StartedAt.Equal(start) || got.EndedAt != nil {
		t.Errorf("unexpected session %+v", got)
	}

	end := start.Add(30 * time.Minute)
	if err := repo.End(first.ID, end); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	got, _ = repo.GetByID(first.ID)
	if got.EndedAt == nil || !got.EndedAt.Equal(end) {
		t.Errorf("EndedAt = %v, want %v", got.EndedAt, end)
	}

	if _, err := repo.GetByID("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID(missing) error = %v, want ErrNotFound", err)
	}
	if err := repo.End("nope", end); !errors.Is(err, ErrNotFound) {
		t.Errorf("End(missing) error = %v, want ErrNotFound", err)
	}

	list, err := repo.List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != "api-run" || list[1].ID != first.ID {
		t.Errorf("List() should be newest first, got %v", list)
	}

	list, _ = repo.List(1)
	if len(list) != 1 {
		t.Errorf("List(1) returned %d sessions", len(list))
	}
}

func TestCommandRepository(t *testing.T) {
	s := newTestStore(t)

	sess := &Session{}
	if err := s.Sessions().Create(sess); err != nil {
		t.Fatal(err)
	}

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	records := []*CommandRecord{
		{SessionID: sess.ID, Device: "LED", Kind: "POWER_ON", Level: 3, Value: 60, Gesture: "OPEN", Status: "LED,ON,3,OFF,0", At: at},
		{SessionID: sess.ID, Device: "LED", Kind: "LEVEL_CHANGED", Level: 4, Delta: 1, Value: 80, Gesture: "THUMBS_UP", Status: "LED,ON,4,OFF,0", At: at.Add(2 * time.Second)},
		{SessionID: sess.ID, Device: "MOTOR", Kind: "MODE_SWITCH", Gesture: "TWO", Status: "MOTOR,ON,4,OFF,0", At: at.Add(3 * time.Second)},
	}
	for _, r := range records {
		if err := s.Commands().Create(r); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if r.ID == 0 {
			t.Error("expected ID to be set")
		}
	}

	got, err := s.Commands().ListBySession(sess.ID)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 commands, got %d", len(got))
	}
	if got[1].Kind != "LEVEL_CHANGED" || got[1].Delta != 1 || got[1].Value != 80 || !got[1].At.Equal(at.Add(2*time.Second)) {
		t.Errorf("unexpected record %+v", got[1])
	}
	if got[2].Device != "MOTOR" || got[2].Status != "MOTOR,ON,4,OFF,0" {
		t.Errorf("unexpected record %+v", got[2])
	}

	loaded, _ := s.Sessions().GetByID(sess.ID)
	if loaded.Commands != 3 {
		t.Errorf("session command count = %d, want 3", loaded.Commands)
	}

	empty, err := s.Commands().ListBySession("other")
	if err != nil || len(empty) != 0 {
		t.Errorf("expected no commands for other session, got %v, %v", empty, err)
	}
}

func TestStatsRepository(t *testing.T) {
	s := newTestStore(t)

	sess := &Session{}
	if err := s.Sessions().Create(sess); err != nil {
		t.Fatal(err)
	}

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, label := range []string{"OPEN", "THUMBS_UP", "OPEN", "CLOSED", "OPEN"} {
		if err := s.Stats().Increment(sess.ID, label, at.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("Increment() error = %v", err)
		}
	}

	stats, err := s.Stats().ListBySession(sess.ID)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(stats) != 3 {
		t.Fatalf("expected 3 labels, got %v", stats)
	}
	if stats[0].Label != "OPEN" || stats[0].Count != 3 || !stats[0].LastSeen.Equal(at.Add(4*time.Second)) {
		t.Errorf("unexpected top stat %+v", stats[0])
	}
	if stats[1].Label != "CLOSED" || stats[2].Label != "THUMBS_UP" {
		t.Errorf("ties should sort by label, got %v", stats)
	}
}
