// Package session persists annotation sessions, one record per
// normalized page URL, plus a handful of global settings. Saving is best
// effort: callers log failures and carry on, they never abort an edit
// over a storage problem.
package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/omarthisside/annoted/internal/annotation"
	"github.com/omarthisside/annoted/internal/history"
	"github.com/omarthisside/annoted/internal/share"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	page_url   TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const defaultWidthKey = "default_pen_width"

// Record is one page's saved session.
type Record struct {
	PageURL   string               `json:"pageUrl"`
	Commands  []*history.Command   `json:"commandLog"`
	Tools     annotation.ToolState `json:"toolState"`
	UpdatedAt time.Time            `json:"timestamp"`
}

// Summary describes a saved session without its payload.
type Summary struct {
	PageURL   string
	UpdatedAt time.Time
}

// Store is the SQLite-backed session store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the session database at path. Pass
// ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("session: create db directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("session: open database: %w", err)
	}
	// One writer at a time is plenty here, but WAL keeps readers cheap.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts the record under its normalized page URL.
func (s *Store) Save(rec *Record) error {
	rec.PageURL = share.NormalizeURL(rec.PageURL)
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("session: marshal record: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO sessions (page_url, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(page_url) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		rec.PageURL, string(payload), rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("session: save %s: %w", rec.PageURL, err)
	}
	return nil
}

// Load returns the record saved for the page, or nil if there is none.
// The stored URL must match the requested one after normalization; a
// mismatch is treated as no session. A record that no longer parses is
// deleted so it cannot fail on every page load, and nil is returned.
func (s *Store) Load(pageURL string) (*Record, error) {
	key := share.NormalizeURL(pageURL)
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM sessions WHERE page_url = ?`, key).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: load %s: %w", key, err)
	}
	var rec Record
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		log.Printf("[session] corrupt record for %s, deleting: %v", key, err)
		if _, delErr := s.db.Exec(`DELETE FROM sessions WHERE page_url = ?`, key); delErr != nil {
			log.Printf("[session] delete corrupt record: %v", delErr)
		}
		return nil, nil
	}
	if share.NormalizeURL(rec.PageURL) != key {
		return nil, nil
	}
	return &rec, nil
}

// Delete removes the page's saved session.
func (s *Store) Delete(pageURL string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE page_url = ?`, share.NormalizeURL(pageURL))
	if err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}

// List enumerates saved sessions, most recently updated first.
func (s *Store) List() ([]Summary, error) {
	rows, err := s.db.Query(`SELECT page_url, updated_at FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("session: list: %w", err)
	}
	defer rows.Close()
	var out []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.PageURL, &sum.UpdatedAt); err != nil {
			return nil, fmt.Errorf("session: scan: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Prune deletes sessions not updated within maxAge and reports how many
// went away.
func (s *Store) Prune(maxAge time.Duration) (int, error) {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE updated_at < ?`, time.Now().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("session: prune: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// SaveDefaultWidth stores the global last-used pen width, independent of
// any page.
func (s *Store) SaveDefaultWidth(width int) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		defaultWidthKey, fmt.Sprintf("%d", width))
	if err != nil {
		return fmt.Errorf("session: save default width: %w", err)
	}
	return nil
}

// DefaultWidth returns the global pen width and whether one was saved.
func (s *Store) DefaultWidth() (int, bool) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, defaultWidthKey).Scan(&value)
	if err != nil {
		return 0, false
	}
	var width int
	if _, err := fmt.Sscanf(value, "%d", &width); err != nil || width <= 0 {
		return 0, false
	}
	return width, true
}
