// Package recordserver implements the shared record service: a queryable,
// multi-writer store of typed records (shared lists, shared tasks, user
// profiles, invitations) over embedded SQLite, with a websocket feed
// broadcasting record changes to connected devices.
//
// There are no multi-record transactions: each write is independently
// durable once acknowledged, which is exactly the contract the client-side
// sharing engine is built to tolerate.
package recordserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/kaitodo/kaitodo/internal/remote"
)

// ErrNotFound is returned for operations on a missing record ID.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateCode is returned when an invitation's code is already taken.
var ErrDuplicateCode = errors.New("invite code already in use")

// fieldNamePattern restricts queryable field names so they can be spliced
// into a json_extract path.
var fieldNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// DB stores records in a single SQLite table with a JSON fields column.
type DB struct {
	conn *sql.DB
	path string
}

// OpenDB creates or opens the record database at the given path.
// The caller MUST call Close() when done.
func OpenDB(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn, path: path}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.conn.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	if err := db.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		fields TEXT NOT NULL,  -- JSON object
		created_at TEXT NOT NULL,
		modified_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_type ON records(type);
	CREATE INDEX IF NOT EXISTS idx_records_type_created ON records(type, created_at);`
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection after a WAL checkpoint.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	db.conn = nil
	return nil
}

// Create stores a new record and returns it. Invitation records enforce
// invite-code uniqueness at insert time.
func (db *DB) Create(recordType string, fields remote.Fields) (remote.Record, error) {
	if recordType == remote.TypeInvitation {
		code := remote.Fields(fields).Str(remote.FieldCode)
		existing, err := db.Query(remote.TypeInvitation, remote.FieldCode, code)
		if err != nil {
			return remote.Record{}, err
		}
		if len(existing) > 0 {
			return remote.Record{}, ErrDuplicateCode
		}
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return remote.Record{}, fmt.Errorf("failed to encode fields: %w", err)
	}

	now := time.Now().UTC()
	rec := remote.Record{
		ID:         uuid.New().String(),
		Type:       recordType,
		Fields:     fields,
		CreatedAt:  now,
		ModifiedAt: now,
	}

	query := `INSERT INTO records (id, type, fields, created_at, modified_at) VALUES (?, ?, ?, ?, ?)`
	ts := now.Format(time.RFC3339Nano)
	if _, err := db.conn.Exec(query, rec.ID, recordType, string(data), ts, ts); err != nil {
		return remote.Record{}, fmt.Errorf("failed to insert record: %w", err)
	}
	return rec, nil
}

// Get returns the record with the given ID, or ErrNotFound.
func (db *DB) Get(id string) (remote.Record, error) {
	row := db.conn.QueryRow(`SELECT id, type, fields, created_at, modified_at FROM records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return remote.Record{}, ErrNotFound
	}
	return rec, err
}

// Update merges fields into an existing record and bumps its modification
// time. Returns ErrNotFound for a missing ID.
func (db *DB) Update(id string, fields remote.Fields) (remote.Record, error) {
	rec, err := db.Get(id)
	if err != nil {
		return remote.Record{}, err
	}
	for k, v := range fields {
		rec.Fields[k] = v
	}
	rec.ModifiedAt = time.Now().UTC()

	data, err := json.Marshal(rec.Fields)
	if err != nil {
		return remote.Record{}, fmt.Errorf("failed to encode fields: %w", err)
	}
	query := `UPDATE records SET fields = ?, modified_at = ? WHERE id = ?`
	if _, err := db.conn.Exec(query, string(data), rec.ModifiedAt.Format(time.RFC3339Nano), id); err != nil {
		return remote.Record{}, fmt.Errorf("failed to update record: %w", err)
	}
	return rec, nil
}

// Delete removes a record. Deleting a missing record is not an error, but
// the returned bool reports whether anything was removed.
func (db *DB) Delete(id string) (bool, error) {
	res, err := db.conn.Exec(`DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete record: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Query returns records of the given type whose field equals value, oldest
// first.
func (db *DB) Query(recordType, field string, value string) ([]remote.Record, error) {
	if !fieldNamePattern.MatchString(field) {
		return nil, fmt.Errorf("invalid field name %q", field)
	}

	query := fmt.Sprintf(
		`SELECT id, type, fields, created_at, modified_at FROM records
		 WHERE type = ? AND json_extract(fields, '$.%s') = ?
		 ORDER BY created_at, id`, field)
	rows, err := db.conn.Query(query, recordType, value)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []remote.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (remote.Record, error) {
	var rec remote.Record
	var fieldsJSON, createdAt, modifiedAt string
	if err := s.Scan(&rec.ID, &rec.Type, &fieldsJSON, &createdAt, &modifiedAt); err != nil {
		return remote.Record{}, err
	}
	if err := json.Unmarshal([]byte(fieldsJSON), &rec.Fields); err != nil {
		return remote.Record{}, fmt.Errorf("failed to decode fields for %s: %w", rec.ID, err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	rec.ModifiedAt, _ = time.Parse(time.RFC3339Nano, modifiedAt)
	return rec, nil
}
