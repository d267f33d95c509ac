// Package store is a content-addressed program library backed by SQLite.
// Programs are keyed by the hex SHA-256 of their text, so the same program
// always lands on the same id and re-adding it is a no-op.
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrNotFound indicates the requested program id does not exist.
var ErrNotFound = errors.New("program not found")

// Store is a handle on the program database.
type Store struct {
	db *sql.DB
}

// Entry describes a stored program.
type Entry struct {
	ID   string
	Name string
	Size int
}

// Open opens (creating if needed) the store at path. Use ":memory:" for an
// ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: set busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		id   TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		code BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores a program and returns its content id. Storing the same code
// twice updates the name and returns the same id.
func (s *Store) Put(name string, code []byte) (string, error) {
	if len(code) == 0 {
		return "", fmt.Errorf("store: refusing to store an empty program")
	}
	id := ID(code)
	_, err := s.db.Exec(
		`INSERT INTO programs (id, name, code) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		id, name, code)
	if err != nil {
		return "", fmt.Errorf("store: put %q: %w", name, err)
	}
	return id, nil
}

// Get returns the name and code for a program id.
func (s *Store) Get(id string) (string, []byte, error) {
	var name string
	var code []byte
	err := s.db.QueryRow(`SELECT name, code FROM programs WHERE id = ?`, id).Scan(&name, &code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, ErrNotFound
	}
	if err != nil {
		return "", nil, fmt.Errorf("store: get %s: %w", id, err)
	}
	return name, code, nil
}

// List returns all stored programs ordered by name.
func (s *Store) List() ([]Entry, error) {
	rows, err := s.db.Query(`SELECT id, name, length(code) FROM programs ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Name, &e.Size); err != nil {
			return nil, fmt.Errorf("store: scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return entries, nil
}

// Delete removes a program. Deleting an unknown id returns ErrNotFound.
func (s *Store) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM programs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ID returns the content id for program text.
func ID(code []byte) string {
	sum := sha256.Sum256(code)
	return hex.EncodeToString(sum[:])
}
