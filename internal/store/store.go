// Package store implements the local record store: durable key-value
// persistence for the device's list collection and user profile.
//
// Values are opaque JSON snapshots replaced wholesale on every save (no
// partial writes). The backing database is embedded SQLite with WAL mode so
// a watch daemon can read while a CLI command writes.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/kaitodo/kaitodo/internal/model"
)

// Fixed keys for the two snapshots the core persists.
const (
	KeyLists   = "kaitodo.lists"
	KeyProfile = "kaitodo.profile"
)

// ErrNotFound is returned by Load when no value exists for the key.
var ErrNotFound = errors.New("key not found")

// Store wraps the SQLite connection holding snapshot values.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates or opens the local store at the given path.
//
// The caller MUST call Close() when done.
//
// Example:
//
//	st, err := store.Open(filepath.Join(dataDir, "kaitodo.db"))
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping store: %w", err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{conn: conn, path: path}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := s.conn.Exec(pragma); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at TEXT NOT NULL
	);`
	if _, err := s.conn.Exec(schema); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return s, nil
}

// Path returns the on-disk location of the store database.
func (s *Store) Path() string {
	return s.path
}

// Close closes the connection after a WAL checkpoint.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	s.conn = nil
	return nil
}

// Save replaces the value under key.
func (s *Store) Save(key string, value []byte) error {
	query := `
	INSERT INTO snapshots (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := s.conn.Exec(query, key, value, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// Load returns the value under key, or ErrNotFound.
func (s *Store) Load(key string) ([]byte, error) {
	var value []byte
	err := s.conn.QueryRow(`SELECT value FROM snapshots WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return value, nil
}

// Delete removes the value under key. Missing keys are not an error.
func (s *Store) Delete(key string) error {
	if _, err := s.conn.Exec(`DELETE FROM snapshots WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// SaveLists persists the full list collection as one snapshot.
func (s *Store) SaveLists(lists []model.TodoList) error {
	data, err := json.Marshal(lists)
	if err != nil {
		return fmt.Errorf("failed to encode lists: %w", err)
	}
	return s.Save(KeyLists, data)
}

// LoadLists returns the persisted list collection. A missing snapshot is an
// empty collection, not an error.
func (s *Store) LoadLists() ([]model.TodoList, error) {
	data, err := s.Load(KeyLists)
	if errors.Is(err, ErrNotFound) {
		return []model.TodoList{}, nil
	}
	if err != nil {
		return nil, err
	}
	var lists []model.TodoList
	if err := json.Unmarshal(data, &lists); err != nil {
		return nil, fmt.Errorf("failed to decode lists: %w", err)
	}
	return lists, nil
}

// SaveProfile persists the user profile snapshot.
func (s *Store) SaveProfile(profile model.UserProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	return s.Save(KeyProfile, data)
}

// LoadProfile returns the persisted profile, or ErrNotFound if the user has
// never onboarded (or has logged out).
func (s *Store) LoadProfile() (model.UserProfile, error) {
	data, err := s.Load(KeyProfile)
	if err != nil {
		return model.UserProfile{}, err
	}
	var profile model.UserProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return model.UserProfile{}, fmt.Errorf("failed to decode profile: %w", err)
	}
	return profile, nil
}

// ClearProfile removes the profile snapshot, leaving lists untouched.
func (s *Store) ClearProfile() error {
	return s.Delete(KeyProfile)
}
